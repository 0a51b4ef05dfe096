package gate

import (
	"context"
	"log/slog"

	"sideline/internal/logging"
	"sideline/internal/services"
	"sideline/internal/stage"
	"sideline/internal/store"
)

// Stage integrates draft building with the workflow manager.
type Stage struct {
	builder *Builder
	logger  *slog.Logger
}

// NewStage constructs the drafting workflow stage.
func NewStage(builder *Builder, logger *slog.Logger) *Stage {
	return &Stage{builder: builder, logger: logging.NewComponentLogger(logger, "drafting")}
}

// Prepare validates the stage wiring and the artifact.
func (s *Stage) Prepare(_ context.Context, artifact *store.Artifact) error {
	if s == nil || s.builder == nil || s.builder.store == nil || s.builder.drafts == nil {
		return services.Wrap(services.ErrConfiguration, stageName, "prepare", "Drafting stage is not configured", nil)
	}
	return stage.RequireArtifact(stageName, artifact)
}

// Execute builds the artifact's drafts.
func (s *Stage) Execute(ctx context.Context, artifact *store.Artifact) error {
	return s.builder.DraftArtifact(ctx, artifact)
}

// HealthCheck reports whether the store is reachable.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	if s == nil || s.builder == nil {
		return stage.Unhealthy(stageName, "builder unavailable")
	}
	return stage.FromError(stageName, s.builder.store.Ping(ctx))
}
