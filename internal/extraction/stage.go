package extraction

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

// TeamSource supplies team names for prompt context.
type TeamSource interface {
	TeamNames(ctx context.Context, orgID string) ([]string, error)
}

// Stage integrates claim extraction with the workflow manager.
type Stage struct {
	extractor *Extractor
	store     *store.Store
	teams     TeamSource
	routes    inference.RouteResolver
	logger    *slog.Logger
}

// NewStage constructs the extraction workflow stage.
func NewStage(extractor *Extractor, st *store.Store, teams TeamSource, routes inference.RouteResolver, logger *slog.Logger) *Stage {
	return &Stage{
		extractor: extractor,
		store:     st,
		teams:     teams,
		routes:    routes,
		logger:    logging.NewComponentLogger(logger, "extraction"),
	}
}

// Prepare validates the stage wiring and the artifact.
func (s *Stage) Prepare(_ context.Context, artifact *store.Artifact) error {
	if s == nil || s.extractor == nil || s.store == nil {
		return services.Wrap(services.ErrConfiguration, stageName, "prepare", "Extraction stage is not configured", nil)
	}
	return stage.RequireArtifact(stageName, artifact)
}

// Execute extracts claims and replaces any earlier extraction for the artifact.
func (s *Stage) Execute(ctx context.Context, artifact *store.Artifact) error {
	org := OrgContext{OrgID: artifact.OrgID, CoachID: artifact.CoachID}
	if s.teams != nil {
		names, err := s.teams.TeamNames(ctx, artifact.OrgID)
		if err != nil {
			logging.WarnWithContext(logging.WithContext(ctx, s.logger), "team names unavailable", "roster_unavailable",
				logging.Error(err),
				logging.String(logging.FieldImpact, "extraction runs without team context"),
			)
		}
		org.Teams = names
	}

	claims, err := s.extractor.Extract(ctx, artifact.Transcript, org)
	if err != nil {
		return err
	}
	if err := s.store.ReplaceClaims(ctx, artifact.ID, claims); err != nil {
		return services.Wrap(services.ErrTransient, stageName, "persist claims", "", err)
	}

	discarded := 0
	for _, claim := range claims {
		if claim.Status == store.ClaimDiscarded {
			discarded++
		}
	}
	logging.WithContext(ctx, s.logger).Info("claims stored",
		logging.String(logging.FieldEventType, "claims_extracted"),
		logging.Int("claims", len(claims)),
		logging.Int("discarded", discarded),
	)
	return nil
}

// HealthCheck reports whether a platform extraction route exists.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	if s == nil || s.extractor == nil {
		return stage.Unhealthy(stageName, "extractor unavailable")
	}
	if s.routes == nil {
		return stage.Healthy(stageName)
	}
	_, err := s.routes.Resolve(ctx, modelrouter.StageClaimExtraction, "")
	return stage.FromError(stageName, err)
}
