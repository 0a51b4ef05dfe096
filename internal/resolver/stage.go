package resolver

import (
	"context"
	"log/slog"

	"sideline/internal/inference"
	"sideline/internal/logging"
	"sideline/internal/modelrouter"
	"sideline/internal/services"
	"sideline/internal/stage"
	"sideline/internal/store"
)

// Stage integrates entity resolution with the workflow manager.
type Stage struct {
	resolver *Resolver
	routes   inference.RouteResolver
	logger   *slog.Logger
}

// NewStage constructs the resolution workflow stage.
func NewStage(resolver *Resolver, routes inference.RouteResolver, logger *slog.Logger) *Stage {
	return &Stage{
		resolver: resolver,
		routes:   routes,
		logger:   logging.NewComponentLogger(logger, "resolution"),
	}
}

// Prepare validates the stage wiring and the artifact.
func (s *Stage) Prepare(_ context.Context, artifact *store.Artifact) error {
	if s == nil || s.resolver == nil || s.resolver.store == nil || s.resolver.rosters == nil {
		return services.Wrap(services.ErrConfiguration, stageName, "prepare", "Resolution stage is not configured", nil)
	}
	return stage.RequireArtifact(stageName, artifact)
}

// Execute resolves the artifact's claims. The artifact only advances once
// every claim is settled.
func (s *Stage) Execute(ctx context.Context, artifact *store.Artifact) error {
	if err := s.resolver.ResolveArtifact(ctx, artifact); err != nil {
		return err
	}
	claims, err := s.resolver.store.ClaimsForArtifact(ctx, artifact.ID)
	if err != nil {
		return services.Wrap(services.ErrTransient, stageName, "verify claims", "", err)
	}
	for _, claim := range claims {
		if !claim.Status.Settled() {
			return services.Wrap(services.ErrTransient, stageName, "verify claims",
				"claim "+claim.ID+" is still "+string(claim.Status), nil)
		}
	}
	return nil
}

// HealthCheck reports stage readiness. Model hints are optional, so a missing
// entity_resolution route only shows in the detail.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	if s == nil || s.resolver == nil {
		return stage.Unhealthy(stageName, "resolver unavailable")
	}
	if !s.resolver.opts.ModelHints || s.routes == nil {
		return stage.Healthy(stageName)
	}
	if _, err := s.routes.Resolve(ctx, modelrouter.StageEntityResolution, ""); err != nil {
		return stage.Degraded(stageName, "model hints disabled: "+err.Error())
	}
	return stage.Healthy(stageName)
}
