package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"sideline/internal/logging"
	"sideline/internal/stage"
	"sideline/internal/store"
)

type stageOutcome int

const (
	outcomeIdle stageOutcome = iota
	outcomeAdvanced
	outcomeRetry
	outcomeParked
)

func (m *Manager) processArtifact(ctx context.Context, lane *laneState, laneLogger *slog.Logger, artifact *store.Artifact) (stageOutcome, error) {
	stg, ok := lane.stageForStatus(artifact.Status)
	if !ok {
		laneLogger.Warn("no stage configured for status", logging.String("status", string(artifact.Status)))
		m.waitForArtifactOrShutdown(ctx, lane)
		return outcomeIdle, nil
	}

	requestID := uuid.NewString()
	stageCtx := withStageContext(ctx, lane, stg.name, artifact, requestID)
	stageLogger := logging.WithContext(stageCtx, laneLogger)

	if err := m.transitionToProcessing(stageCtx, stg.processingStatus, artifact); err != nil {
		stageLogger.Error("failed to transition artifact to processing", logging.Error(err))
		m.setLastError(err)
		return outcomeRetry, err
	}

	return m.executeStage(stageCtx, stageLogger, stg, artifact)
}

func (m *Manager) executeStage(ctx context.Context, stageLogger *slog.Logger, stg pipelineStage, artifact *store.Artifact) (stageOutcome, error) {
	stageStart := time.Now()
	stageLogger.Info(
		"stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("processing_status", string(stg.processingStatus)),
		logging.String("media_kind", string(artifact.MediaKind)),
		logging.Int("attempts", artifact.Attempts),
	)

	handler := stg.handler
	if handler == nil {
		err := fmt.Errorf("stage %s missing handler", stg.name)
		return m.handleStageFailure(ctx, stageLogger, stg, artifact, err), err
	}

	if err := handler.Prepare(ctx, artifact); err != nil {
		if errors.Is(err, context.Canceled) {
			return outcomeIdle, err
		}
		m.setLastError(err)
		return m.handleStageFailure(ctx, stageLogger, stg, artifact, err), err
	}

	if execErr := m.executeWithHeartbeat(ctx, handler, artifact); execErr != nil {
		if errors.Is(execErr, context.Canceled) {
			stageLogger.Debug("stage interrupted by shutdown")
			return outcomeIdle, execErr
		}
		m.setLastError(execErr)
		return m.handleStageFailure(ctx, stageLogger, stg, artifact, execErr), execErr
	}

	if artifact.Status == stg.processingStatus || artifact.Status == "" {
		artifact.Status = stg.doneStatus
	}
	artifact.LastHeartbeat = nil
	artifact.Attempts = 0
	artifact.ErrorMessage = ""
	if err := m.store.UpdateArtifact(ctx, artifact); err != nil {
		wrapped := fmt.Errorf("persist stage result: %w", err)
		stageLogger.Error("failed to persist stage result", logging.Error(wrapped))
		m.setLastError(wrapped)
		return outcomeRetry, wrapped
	}
	stageLogger.Info(
		"stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_status", string(artifact.Status)),
		logging.Duration("stage_duration", time.Since(stageStart)),
	)
	m.setLastArtifact(artifact)
	return outcomeAdvanced, nil
}

func (m *Manager) executeWithHeartbeat(ctx context.Context, handler stage.Handler, artifact *store.Artifact) error {
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, artifact.ID)

	execErr := handler.Execute(ctx, artifact)
	hbCancel()
	hbWG.Wait()
	return execErr
}

func (m *Manager) transitionToProcessing(ctx context.Context, processing store.Status, artifact *store.Artifact) error {
	if processing == "" {
		return errors.New("processing status must not be empty")
	}
	now := time.Now().UTC()
	artifact.Status = processing
	artifact.LastHeartbeat = &now
	if err := m.store.UpdateArtifact(ctx, artifact); err != nil {
		return fmt.Errorf("persist processing transition: %w", err)
	}
	m.setLastArtifact(artifact)
	return nil
}
