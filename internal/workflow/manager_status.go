package workflow

import (
	"context"

	"sideline/internal/logging"
	"sideline/internal/stage"
	"sideline/internal/store"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running       bool
	LastError     string
	LastArtifact  *store.Artifact
	ArtifactStats map[store.Status]int
	StageHealth   map[string]stage.Health
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := m.lastErr
	lastArtifact := m.lastArtifact
	stageSet := make([]pipelineStage, 0)
	for _, kind := range m.laneOrder {
		lane := m.lanes[kind]
		if lane == nil {
			continue
		}
		stageSet = append(stageSet, lane.stages...)
	}
	m.mu.RUnlock()

	stats, err := m.store.ArtifactStats(ctx)
	if err != nil {
		m.logger.Warn("failed to read artifact stats", logging.Error(err))
	}

	health := make(map[string]stage.Health, len(stageSet))
	for _, stg := range stageSet {
		if stg.handler == nil {
			continue
		}
		health[stg.name] = stg.handler.HealthCheck(ctx)
	}

	summary := StatusSummary{Running: running, ArtifactStats: stats, StageHealth: health}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	if lastArtifact != nil {
		copy := *lastArtifact
		summary.LastArtifact = &copy
	}
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastArtifact(artifact *store.Artifact) {
	m.mu.Lock()
	if artifact != nil {
		copy := *artifact
		m.lastArtifact = &copy
	} else {
		m.lastArtifact = nil
	}
	m.mu.Unlock()
}
