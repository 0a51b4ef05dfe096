package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"sideline/internal/logging"
	"sideline/internal/store"
)

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	lanes := make([]*laneState, 0, len(m.laneOrder))
	for _, kind := range m.laneOrder {
		lane := m.lanes[kind]
		if lane == nil || len(lane.statusOrder) == 0 {
			continue
		}
		lanes = append(lanes, lane)
	}
	if len(lanes) == 0 {
		m.mu.Unlock()
		return errors.New("workflow stages not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	for _, lane := range lanes {
		lane.logger = m.laneLogger(lane)
	}
	m.wg.Add(len(lanes))
	m.mu.Unlock()

	for _, lane := range lanes {
		go m.runLane(runCtx, lane)
	}

	return nil
}

// Stop terminates background processing and waits for completion.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// Wake nudges idle lanes to poll immediately instead of waiting out the poll
// interval. Submission and retry paths call it after writing a status.
func (m *Manager) Wake() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, kind := range m.laneOrder {
		m.lanes[kind].poke()
	}
}

func (m *Manager) runLane(ctx context.Context, lane *laneState) {
	defer m.wg.Done()
	if lane == nil {
		return
	}
	logger := lane.logger
	if logger == nil {
		logger = m.logger
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if lane.runReclaimer {
			if err := m.heartbeat.ReclaimStaleArtifacts(ctx, logger); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("reclaim stale processing failed; stuck artifacts may remain",
					logging.Error(err),
					logging.String(logging.FieldEventType, "heartbeat_reclaim_failed"),
					logging.String(logging.FieldErrorHint, "check database access"),
				)
			}
		}

		artifact, err := m.nextArtifactForLane(ctx, lane)
		if err != nil {
			m.handleNextArtifactError(ctx, logger, err)
			continue
		}
		if artifact == nil {
			m.waitForArtifactOrShutdown(ctx, lane)
			continue
		}

		outcome, err := m.processArtifact(ctx, lane, logger, artifact)
		if err != nil && errors.Is(err, context.Canceled) {
			return
		}
		switch outcome {
		case outcomeAdvanced:
			m.Wake()
		case outcomeRetry:
			m.waitForRetry(ctx)
		}
	}
}

func (m *Manager) nextArtifactForLane(ctx context.Context, lane *laneState) (*store.Artifact, error) {
	if lane == nil || len(lane.statusOrder) == 0 {
		return nil, nil
	}
	return m.store.NextForStatuses(ctx, lane.statusOrder...)
}

func (m *Manager) handleNextArtifactError(ctx context.Context, logger *slog.Logger, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	m.setLastError(err)
	logger.Error("failed to fetch next artifact",
		logging.Error(err),
		logging.String(logging.FieldEventType, "artifact_fetch_failed"),
		logging.String(logging.FieldErrorHint, "check database access"),
	)
	m.waitForRetry(ctx)
}

func (m *Manager) waitForRetry(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(m.retryInterval):
	}
}

func (m *Manager) waitForArtifactOrShutdown(ctx context.Context, lane *laneState) {
	select {
	case <-ctx.Done():
	case <-lane.wake:
	case <-time.After(m.pollInterval):
	}
}
