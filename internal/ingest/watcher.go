package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"sideline/internal/config"
	"sideline/internal/fileutil"
	"sideline/internal/logging"
)

const (
	processedDir = "processed"
	rejectedDir  = "rejected"

	defaultSettle = 750 * time.Millisecond
)

// Watcher submits files dropped into the inbox directory on behalf of one
// configured coach. Text files become typed notes; audio files become voice
// notes. Handled files move to processed/ or rejected/.
type Watcher struct {
	service *Service
	dir     string
	orgID   string
	coachID string
	channel string
	settle  time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	wg      sync.WaitGroup
}

// NewWatcher constructs an inbox watcher from the inbox configuration.
func NewWatcher(cfg *config.Config, service *Service, logger *slog.Logger) *Watcher {
	channel := strings.TrimSpace(cfg.Inbox.Channel)
	if channel == "" {
		channel = "inbox"
	}
	return &Watcher{
		service: service,
		dir:     cfg.Paths.InboxDir,
		orgID:   cfg.Inbox.OrgID,
		coachID: cfg.Inbox.CoachID,
		channel: channel,
		settle:  defaultSettle,
		logger:  logging.NewComponentLogger(logger, "inbox"),
		pending: make(map[string]*time.Timer),
	}
}

// SetSettleDelay overrides how long a file must stay unchanged before it is
// submitted.
func (w *Watcher) SetSettleDelay(d time.Duration) {
	if d > 0 {
		w.settle = d
	}
}

// Run scans the inbox once, then watches it until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	for _, sub := range []string{"", processedDir, rejectedDir} {
		if err := os.MkdirAll(filepath.Join(w.dir, sub), 0o755); err != nil {
			return fmt.Errorf("create inbox directory: %w", err)
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.logger.Info("watching inbox",
		logging.String(logging.FieldEventType, "inbox_watch_started"),
		logging.String("dir", w.dir),
		logging.String(logging.FieldCoachID, w.coachID),
	)

	if _, err := w.Scan(ctx); err != nil {
		w.logger.Warn("initial inbox scan failed", logging.Error(err))
	}

	defer w.drain()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				w.schedule(ctx, event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.WarnWithContext(w.logger, "inbox watch error", "inbox_watch_error",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check inbox directory permissions"),
			)
		}
	}
}

// Scan submits every eligible file already in the inbox and returns how
// many were accepted.
func (w *Watcher) Scan(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return 0, fmt.Errorf("read inbox: %w", err)
	}
	accepted := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if w.handle(ctx, filepath.Join(w.dir, entry.Name())) {
			accepted++
		}
	}
	return accepted, nil
}

// schedule debounces writes so a file is submitted once it stops changing.
func (w *Watcher) schedule(ctx context.Context, path string) {
	if !eligible(path) {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.pending[path]; ok && timer.Stop() {
		timer.Reset(w.settle)
		return
	}
	w.wg.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(w.settle, func() {
		defer w.wg.Done()
		w.mu.Lock()
		if w.pending[path] == timer {
			delete(w.pending, path)
		}
		w.mu.Unlock()
		if ctx.Err() == nil {
			w.handle(ctx, path)
		}
	})
	w.pending[path] = timer
}

func (w *Watcher) drain() {
	w.mu.Lock()
	for path, timer := range w.pending {
		if timer.Stop() {
			w.wg.Done()
		}
		delete(w.pending, path)
	}
	w.mu.Unlock()
	w.wg.Wait()
}

func eligible(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return strings.EqualFold(filepath.Ext(base), ".txt") || IsAudio(base)
}

// handle submits one file and files it away. It reports whether the file
// became an artifact.
func (w *Watcher) handle(ctx context.Context, path string) bool {
	if !eligible(path) {
		return false
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}

	sub := Submission{OrgID: w.orgID, CoachID: w.coachID, Channel: w.channel}
	if IsAudio(path) {
		sub.AudioPath = path
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			w.logger.Warn("read inbox file failed", logging.String("file", path), logging.Error(err))
			return false
		}
		sub.Transcript = string(data)
	}

	id, err := w.service.Submit(ctx, sub)
	if err != nil {
		logging.WarnWithContext(w.logger, "inbox file rejected", "inbox_file_rejected",
			logging.String("file", filepath.Base(path)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "file moved to rejected/ and not processed"),
		)
		w.archive(path, rejectedDir)
		return false
	}
	w.logger.Info("inbox file submitted",
		logging.String(logging.FieldEventType, "inbox_file_submitted"),
		logging.String("file", filepath.Base(path)),
		logging.String(logging.FieldArtifactID, id),
	)
	w.archive(path, processedDir)
	return true
}

func (w *Watcher) archive(path, sub string) {
	dst := filepath.Join(w.dir, sub, time.Now().UTC().Format("20060102T150405")+"-"+filepath.Base(path))
	if err := fileutil.MoveFile(path, dst); err != nil {
		w.logger.Warn("archive inbox file failed", logging.String("file", path), logging.Error(err))
	}
}
