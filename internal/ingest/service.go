package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"

	"sideline/internal/config"
	"sideline/internal/fileutil"
	"sideline/internal/logging"
	"sideline/internal/services"
	"sideline/internal/store"
)

const component = "ingest"

// AudioExtensions lists the accepted voice note formats.
var AudioExtensions = []string{".m4a", ".mp3", ".wav", ".ogg", ".webm"}

// IsAudio reports whether name has an accepted audio extension.
func IsAudio(name string) bool {
	return slices.Contains(AudioExtensions, strings.ToLower(filepath.Ext(name)))
}

// Submission is one coach note. Exactly one of Transcript, AudioPath or
// Audio must be set.
type Submission struct {
	OrgID   string
	CoachID string
	Channel string

	// Transcript carries a typed note.
	Transcript string
	// AudioPath names an existing audio file to copy into the audio store.
	AudioPath string
	// Audio streams an uploaded file; AudioName supplies its extension.
	Audio     io.Reader
	AudioName string
}

// Service creates artifacts from submissions.
type Service struct {
	store    *store.Store
	audioDir string
	logger   *slog.Logger
	notify   func()
}

// NewService constructs the submission service. Audio is stored under
// cfg.Paths.AudioDir.
func NewService(cfg *config.Config, st *store.Store, logger *slog.Logger) *Service {
	return &Service{
		store:    st,
		audioDir: cfg.Paths.AudioDir,
		logger:   logging.NewComponentLogger(logger, component),
	}
}

// OnSubmit registers fn to run after every accepted submission, typically
// to wake the workflow lanes.
func (s *Service) OnSubmit(fn func()) {
	s.notify = fn
}

// Submit validates sub and creates its artifact. Stage failures never
// surface here; the returned ID is the caller's handle for polling.
func (s *Service) Submit(ctx context.Context, sub Submission) (string, error) {
	input, err := s.prepare(sub)
	if err != nil {
		return "", err
	}
	if input.MediaKind == store.MediaAudio {
		path, err := s.storeAudio(sub)
		if err != nil {
			return "", err
		}
		input.AudioPath = path
	}

	artifact, err := s.store.NewArtifact(ctx, input)
	if err != nil {
		if input.AudioPath != "" {
			_ = os.Remove(input.AudioPath)
		}
		return "", services.Wrap(services.ErrTransient, component, "create artifact", "", err)
	}

	logging.WithContext(services.WithArtifactID(ctx, artifact.ID), s.logger).Info("artifact submitted",
		logging.String(logging.FieldEventType, "artifact_submitted"),
		logging.String(logging.FieldOrgID, artifact.OrgID),
		logging.String(logging.FieldCoachID, artifact.CoachID),
		logging.String("media_kind", string(artifact.MediaKind)),
		logging.String("channel", artifact.SourceChannel),
	)
	if s.notify != nil {
		s.notify()
	}
	return artifact.ID, nil
}

func (s *Service) prepare(sub Submission) (store.ArtifactInput, error) {
	input := store.ArtifactInput{
		OrgID:         strings.TrimSpace(sub.OrgID),
		CoachID:       strings.TrimSpace(sub.CoachID),
		SourceChannel: strings.TrimSpace(sub.Channel),
		Transcript:    strings.TrimSpace(sub.Transcript),
	}
	if input.OrgID == "" || input.CoachID == "" {
		return input, invalid("org and coach are required")
	}

	sources := 0
	if input.Transcript != "" {
		sources++
	}
	if sub.AudioPath != "" {
		sources++
	}
	if sub.Audio != nil {
		sources++
	}
	switch {
	case sources == 0:
		return input, invalid("submission has no transcript or audio")
	case sources > 1:
		return input, invalid("submission must carry exactly one of transcript or audio")
	}

	if input.Transcript != "" {
		input.MediaKind = store.MediaText
		return input, nil
	}
	name := sub.AudioName
	if sub.AudioPath != "" {
		name = sub.AudioPath
	}
	if !IsAudio(name) {
		return input, invalid(fmt.Sprintf("unsupported audio format %q", filepath.Ext(name)))
	}
	input.MediaKind = store.MediaAudio
	return input, nil
}

func (s *Service) storeAudio(sub Submission) (string, error) {
	if strings.TrimSpace(s.audioDir) == "" {
		return "", services.Wrap(services.ErrConfiguration, component, "store audio", "audio directory is not configured", nil)
	}
	if err := os.MkdirAll(s.audioDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrTransient, component, "store audio", "", err)
	}

	name := sub.AudioName
	if sub.AudioPath != "" {
		name = sub.AudioPath
	}
	dst := filepath.Join(s.audioDir, uuid.NewString()+strings.ToLower(filepath.Ext(name)))

	if sub.AudioPath != "" {
		if _, err := os.Stat(sub.AudioPath); err != nil {
			return "", services.Wrap(services.ErrValidation, component, "store audio", "audio file is not readable", err)
		}
		if err := fileutil.CopyFileVerified(sub.AudioPath, dst); err != nil {
			return "", services.Wrap(services.ErrTransient, component, "store audio", "", err)
		}
		return dst, nil
	}

	written, _, err := fileutil.WriteAtomic(sub.Audio, dst, 0o644)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, component, "store audio", "", err)
	}
	if written == 0 {
		_ = os.Remove(dst)
		return "", invalid("audio upload is empty")
	}
	return dst, nil
}

func invalid(msg string) error {
	return services.Wrap(services.ErrValidation, component, "submit", msg, nil)
}
