package api

import (
	"context"
	"strings"

	"sideline/internal/drafts"
	"sideline/internal/ingest"
	"sideline/internal/modelrouter"
	"sideline/internal/pipeline"
	"sideline/internal/resolver"
	"sideline/internal/roster"
	"sideline/internal/services"
	"sideline/internal/store"
)

const component = "api"

// Service exposes coach and operator operations returning API DTOs.
type Service struct {
	store    *store.Store
	ingest   *ingest.Service
	drafts   *drafts.Manager
	resolver *resolver.Resolver
	router   *modelrouter.Router
	roster   *roster.Directory
}

// NewService constructs a Service around wired pipeline components.
func NewService(st *store.Store, components *pipeline.Components, submissions *ingest.Service) *Service {
	if st == nil || components == nil {
		return nil
	}
	return &Service{
		store:    st,
		ingest:   submissions,
		drafts:   components.Drafts,
		resolver: components.Resolver,
		router:   components.Router,
		roster:   components.Roster,
	}
}

// Submit accepts a note and returns its artifact ID without waiting for
// processing.
func (s *Service) Submit(ctx context.Context, sub ingest.Submission) (SubmitResponse, error) {
	if s.ingest == nil {
		return SubmitResponse{}, services.Wrap(services.ErrNotConfigured, component, "submit", "submissions are not enabled", nil)
	}
	id, err := s.ingest.Submit(ctx, sub)
	if err != nil {
		return SubmitResponse{}, err
	}
	return SubmitResponse{ArtifactID: id}, nil
}

// Artifacts lists artifacts matching filter.
func (s *Service) Artifacts(ctx context.Context, filter store.ArtifactFilter) ([]Artifact, error) {
	list, err := s.store.ListArtifacts(ctx, filter)
	if err != nil {
		return nil, err
	}
	return FromArtifacts(list), nil
}

// Artifact returns one of the coach's artifacts with its claims and drafts.
// An empty coachID skips the ownership check for operator tooling.
func (s *Service) Artifact(ctx context.Context, id, coachID string) (*ArtifactDetail, error) {
	artifact, err := s.ownedArtifact(ctx, id, coachID)
	if err != nil {
		return nil, err
	}
	claims, err := s.store.ClaimsForArtifact(ctx, id)
	if err != nil {
		return nil, err
	}
	list, err := s.store.DraftsForArtifact(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &ArtifactDetail{
		Artifact: FromArtifact(artifact, true),
		Claims:   make([]Claim, 0, len(claims)),
		Drafts:   FromDrafts(list),
	}
	for _, c := range claims {
		detail.Claims = append(detail.Claims, FromClaim(c))
	}
	return detail, nil
}

// RetryArtifact resets one of the coach's failed artifacts to the status
// it failed at.
func (s *Service) RetryArtifact(ctx context.Context, id, coachID string) (RetryResponse, error) {
	artifact, err := s.ownedArtifact(ctx, id, coachID)
	if err != nil {
		return RetryResponse{}, err
	}
	if artifact.Status != store.StatusFailed {
		return RetryResponse{}, services.Wrap(services.ErrValidation, component, "retry", "artifact is not failed", nil)
	}
	n, err := s.store.RetryFailed(ctx, id)
	if err != nil {
		return RetryResponse{}, err
	}
	return RetryResponse{Updated: n}, nil
}

// RetryFailed resets failed artifacts; no IDs means all of them.
func (s *Service) RetryFailed(ctx context.Context, ids ...string) (RetryResponse, error) {
	n, err := s.store.RetryFailed(ctx, ids...)
	if err != nil {
		return RetryResponse{}, err
	}
	return RetryResponse{Updated: n}, nil
}

// ReleaseHalted clears halts so parked artifacts are picked up again.
func (s *Service) ReleaseHalted(ctx context.Context) (RetryResponse, error) {
	n, err := s.store.ReleaseHalted(ctx)
	if err != nil {
		return RetryResponse{}, err
	}
	return RetryResponse{Updated: n}, nil
}

// PendingDrafts returns the coach's unexpired pending drafts.
func (s *Service) PendingDrafts(ctx context.Context, orgID, coachID string) ([]Draft, error) {
	if err := requireCoach(coachID); err != nil {
		return nil, err
	}
	list, err := s.drafts.PendingForCoach(ctx, orgID, coachID)
	if err != nil {
		return nil, err
	}
	return FromDrafts(list), nil
}

// ConfirmDraft confirms one pending draft.
func (s *Service) ConfirmDraft(ctx context.Context, id, coachID string) (Draft, error) {
	return s.review(ctx, id, coachID, s.drafts.Confirm)
}

// RejectDraft rejects one pending draft.
func (s *Service) RejectDraft(ctx context.Context, id, coachID string) (Draft, error) {
	return s.review(ctx, id, coachID, s.drafts.Reject)
}

func (s *Service) review(ctx context.Context, id, coachID string, fn func(context.Context, string, string) (*store.Draft, error)) (Draft, error) {
	if err := requireCoach(coachID); err != nil {
		return Draft{}, err
	}
	draft, err := fn(ctx, id, coachID)
	if err != nil {
		return Draft{}, err
	}
	return FromDraft(draft), nil
}

// ConfirmAll confirms every pending draft of an artifact.
func (s *Service) ConfirmAll(ctx context.Context, artifactID, coachID string) ([]Draft, error) {
	return s.reviewAll(ctx, artifactID, coachID, s.drafts.ConfirmAll)
}

// RejectAll rejects every pending draft of an artifact.
func (s *Service) RejectAll(ctx context.Context, artifactID, coachID string) ([]Draft, error) {
	return s.reviewAll(ctx, artifactID, coachID, s.drafts.RejectAll)
}

func (s *Service) reviewAll(ctx context.Context, artifactID, coachID string, fn func(context.Context, string, string) ([]*store.Draft, error)) ([]Draft, error) {
	if err := requireCoach(coachID); err != nil {
		return nil, err
	}
	list, err := fn(ctx, artifactID, coachID)
	if err != nil {
		return nil, err
	}
	return FromDrafts(list), nil
}

// ApplyDraft writes a confirmed draft to the player's record.
func (s *Service) ApplyDraft(ctx context.Context, id, coachID string) (Insight, error) {
	if err := requireCoach(coachID); err != nil {
		return Insight{}, err
	}
	insight, err := s.drafts.Apply(ctx, id, coachID)
	if err != nil {
		return Insight{}, err
	}
	return FromInsight(insight), nil
}

// Disambiguate resolves an ambiguous claim to the chosen player and returns
// the resulting draft, if one was built.
func (s *Service) Disambiguate(ctx context.Context, claimID, coachID, playerID string) (DisambiguateResponse, error) {
	if err := requireCoach(coachID); err != nil {
		return DisambiguateResponse{}, err
	}
	if strings.TrimSpace(playerID) == "" {
		return DisambiguateResponse{}, services.Wrap(services.ErrValidation, component, "disambiguate", "player id is required", nil)
	}
	draft, err := s.resolver.Disambiguate(ctx, claimID, coachID, playerID)
	if err != nil {
		return DisambiguateResponse{}, err
	}
	if draft == nil {
		return DisambiguateResponse{}, nil
	}
	dto := FromDraft(draft)
	return DisambiguateResponse{Draft: &dto}, nil
}

// CoachStats returns derived statistics for a coach.
func (s *Service) CoachStats(ctx context.Context, orgID, coachID string) (CoachStats, error) {
	if err := requireCoach(coachID); err != nil {
		return CoachStats{}, err
	}
	stats, err := s.drafts.CoachStats(ctx, orgID, coachID)
	if err != nil {
		return CoachStats{}, err
	}
	return FromStats(stats), nil
}

// SaveCoachSettings validates and stores a coach's gate settings.
func (s *Service) SaveCoachSettings(ctx context.Context, orgID, coachID string, settings CoachSettings) error {
	return s.drafts.SaveSettings(ctx, store.CoachSettings{
		OrgID:       orgID,
		CoachID:     coachID,
		AutoApprove: settings.AutoApprove,
		Threshold:   settings.Threshold,
		Trusted:     settings.Trusted,
		TrustBoost:  settings.TrustBoost,
	})
}

// Sweep expires stale pending drafts.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	return s.drafts.Sweep(ctx)
}

// Routes lists every configured model route.
func (s *Service) Routes(ctx context.Context) ([]ModelRoute, error) {
	rows, err := s.router.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ModelRoute, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModelConfig(row))
	}
	return out, nil
}

// SetRoute creates or replaces a stage route.
func (s *Service) SetRoute(ctx context.Context, route ModelRoute, actor, reason string) error {
	_, err := s.router.Upsert(ctx, store.ModelConfig{
		Stage:       route.Stage,
		OrgID:       route.OrgID,
		Provider:    route.Provider,
		ModelID:     route.ModelID,
		MaxTokens:   route.MaxTokens,
		Temperature: route.Temperature,
		Active:      true,
	}, actor, reason)
	return err
}

// DeleteRoute removes a stage route.
func (s *Service) DeleteRoute(ctx context.Context, stage, orgID, actor, reason string) error {
	_, err := s.router.Delete(ctx, stage, orgID, actor, reason)
	return err
}

// RouteHistory returns the newest changes to a stage route.
func (s *Service) RouteHistory(ctx context.Context, stage, orgID string, limit int) ([]*store.ModelConfigChange, error) {
	return s.router.History(ctx, stage, orgID, limit)
}

// ImportRoster replaces an org's roster read model.
func (s *Service) ImportRoster(ctx context.Context, orgID string, r store.Roster) (store.RosterImportResult, error) {
	return s.roster.Import(ctx, orgID, r)
}

func (s *Service) ownedArtifact(ctx context.Context, id, coachID string) (*store.Artifact, error) {
	artifact, err := s.store.GetArtifact(ctx, id)
	if err != nil {
		return nil, err
	}
	if artifact == nil {
		return nil, services.Wrap(services.ErrNotFound, component, "load artifact", "artifact "+id+" not found", nil)
	}
	if coachID != "" && artifact.CoachID != coachID {
		return nil, services.Wrap(services.ErrAccessDenied, component, "load artifact", "artifact belongs to another coach", nil)
	}
	return artifact, nil
}

func requireCoach(coachID string) error {
	if strings.TrimSpace(coachID) == "" {
		return services.Wrap(services.ErrValidation, component, "identify coach", "coach id is required", nil)
	}
	return nil
}
