package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"sideline/internal/logging"
	"sideline/internal/services"
	"sideline/internal/store"
)

// handleStageFailure applies the error disposition and persists the artifact.
func (m *Manager) handleStageFailure(ctx context.Context, logger *slog.Logger, stg pipelineStage, artifact *store.Artifact, stageErr error) stageOutcome {
	message := stageFailureMessage(stg.name, stageErr)
	disposition := services.Classify(stageErr)

	artifact.LastHeartbeat = nil
	artifact.ErrorMessage = message
	outcome := outcomeParked

	switch disposition {
	case services.DispositionHalt:
		artifact.Status = stg.startStatus
		artifact.Halted = true
		logging.WarnWithContext(logger, "stage halted until configured", "stage_halted",
			logging.String("error_message", message),
			logging.String("resolved_status", string(artifact.Status)),
			logging.String(logging.FieldErrorHint, "configure a model route for this stage; halted artifacts resume automatically"),
			logging.String(logging.FieldImpact, "artifact parked without spending an attempt"),
		)
	case services.DispositionRetry:
		artifact.Attempts++
		if artifact.Attempts >= m.maxAttempts {
			m.failArtifact(artifact, stg)
			logging.ErrorWithContext(logger, "stage failed after retries", "stage_failure",
				logging.Error(stageErr),
				logging.Int("attempts", artifact.Attempts),
				logging.String("resume_status", string(artifact.ResumeStatus)),
				logging.String(logging.FieldErrorHint, "fix the provider issue then retry the artifact"),
			)
		} else {
			artifact.Status = stg.startStatus
			outcome = outcomeRetry
			logging.WarnWithContext(logger, "stage failed; will retry", "stage_retry",
				logging.Error(stageErr),
				logging.Int("attempts", artifact.Attempts),
				logging.Int("max_attempts", m.maxAttempts),
				logging.String(logging.FieldImpact, "artifact rolled back to stage start"),
			)
		}
	default:
		m.failArtifact(artifact, stg)
		logging.ErrorWithContext(logger, "stage failed", "stage_failure",
			logging.Error(stageErr),
			logging.String("resume_status", string(artifact.ResumeStatus)),
			logging.String(logging.FieldErrorHint, "inspect the artifact and retry it once the cause is fixed"),
		)
	}

	if err := m.store.UpdateArtifact(ctx, artifact); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not persist stage failure")
		} else {
			logger.Error("failed to persist stage failure", logging.Error(err))
		}
	}
	m.setLastArtifact(artifact)
	return outcome
}

func (m *Manager) failArtifact(artifact *store.Artifact, stg pipelineStage) {
	artifact.Status = store.StatusFailed
	artifact.ResumeStatus = stg.startStatus
}

func stageFailureMessage(stageName string, stageErr error) string {
	if stageErr != nil {
		if msg := strings.TrimSpace(stageErr.Error()); msg != "" {
			return msg
		}
	}
	if stageName != "" {
		return fmt.Sprintf("%s failed without error detail", stageName)
	}
	return "workflow failed without error detail"
}
