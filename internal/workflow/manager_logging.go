package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"sideline/internal/logging"
	"sideline/internal/services"
	"sideline/internal/store"
)

func (m *Manager) laneLogger(lane *laneState) *slog.Logger {
	name := lane.name
	if name == "" {
		name = string(lane.kind)
	}
	return m.logger.With(
		logging.String(logging.FieldComponent, fmt.Sprintf("workflow-%s-runner", name)),
		logging.String(logging.FieldLane, name),
	)
}

func withStageContext(ctx context.Context, lane *laneState, stageName string, artifact *store.Artifact, requestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if artifact != nil {
		ctx = services.WithArtifactID(ctx, artifact.ID)
		ctx = services.WithOrgID(ctx, artifact.OrgID)
	}
	if stageName != "" {
		ctx = services.WithStage(ctx, stageName)
	}
	if lane != nil {
		laneLabel := strings.TrimSpace(lane.name)
		if laneLabel == "" {
			laneLabel = string(lane.kind)
		}
		ctx = services.WithLane(ctx, laneLabel)
	}
	if requestID != "" {
		ctx = services.WithRequestID(ctx, requestID)
	}
	return ctx
}
