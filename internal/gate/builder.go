package gate

import (
	"context"
	"log/slog"

	"sideline/internal/drafts"
	"sideline/internal/logging"
	"sideline/internal/services"
	"sideline/internal/store"
)

const stageName = "drafting"

// Builder writes drafts for resolved claims and auto-approves the ones the
// coach's settings allow.
type Builder struct {
	store     *store.Store
	drafts    *drafts.Manager
	autoApply bool
	logger    *slog.Logger
}

// NewBuilder constructs a draft builder. When autoApply is set, drafts that
// skip confirmation are applied as well as confirmed.
func NewBuilder(st *store.Store, manager *drafts.Manager, autoApply bool, logger *slog.Logger) *Builder {
	return &Builder{
		store:     st,
		drafts:    manager,
		autoApply: autoApply,
		logger:    logging.NewComponentLogger(logger, "draft-builder"),
	}
}

// SettingsFor derives the coach's gate settings from their saved settings
// and review statistics.
func (b *Builder) SettingsFor(ctx context.Context, orgID, coachID string) (Settings, error) {
	stats, err := b.drafts.CoachStats(ctx, orgID, coachID)
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		AutoApprove: stats.AutoApprove,
		Threshold:   stats.EffectiveThreshold,
		TrustBoost:  stats.TrustBoost,
	}, nil
}

// DraftArtifact builds drafts for every resolved claim of artifact. Claims
// that already have a draft are reconciled rather than duplicated.
func (b *Builder) DraftArtifact(ctx context.Context, artifact *store.Artifact) error {
	claims, err := b.store.ClaimsForArtifact(ctx, artifact.ID)
	if err != nil {
		return services.Wrap(services.ErrTransient, stageName, "load claims", "", err)
	}
	existing, err := b.store.DraftsForArtifact(ctx, artifact.ID)
	if err != nil {
		return services.Wrap(services.ErrTransient, stageName, "load drafts", "", err)
	}
	byClaim := make(map[string]*store.Draft, len(existing))
	for _, draft := range existing {
		byClaim[draft.ClaimID] = draft
	}
	settings, err := b.SettingsFor(ctx, artifact.OrgID, artifact.CoachID)
	if err != nil {
		return err
	}

	built, auto := 0, 0
	for _, claim := range claims {
		if claim.Status != store.ClaimResolved {
			continue
		}
		if draft, ok := byClaim[claim.ID]; ok {
			if draft.Status == store.DraftPending && !draft.RequiresConfirmation {
				if err := b.autoApprove(ctx, draft); err != nil {
					return err
				}
				auto++
			}
			continue
		}
		draft, err := b.draft(ctx, artifact, claim, settings)
		if err != nil {
			return err
		}
		if draft == nil {
			continue
		}
		built++
		if !draft.RequiresConfirmation {
			auto++
		}
	}

	logging.WithContext(ctx, b.logger).Info("drafts built",
		logging.String(logging.FieldEventType, "drafts_built"),
		logging.Int("drafts", built),
		logging.Int("auto_approved", auto),
		logging.Float64("threshold", settings.Threshold),
		logging.Bool("auto_approve", settings.AutoApprove),
	)
	return nil
}

// DraftClaim builds the draft for one claim, such as one a coach just
// disambiguated. It returns nil when the claim yields no draft.
func (b *Builder) DraftClaim(ctx context.Context, artifact *store.Artifact, claim *store.Claim) (*store.Draft, error) {
	settings, err := b.SettingsFor(ctx, artifact.OrgID, artifact.CoachID)
	if err != nil {
		return nil, err
	}
	return b.draft(ctx, artifact, claim, settings)
}

func (b *Builder) draft(ctx context.Context, artifact *store.Artifact, claim *store.Claim, settings Settings) (*store.Draft, error) {
	logger := logging.WithContext(ctx, b.logger)
	draft, skip := Build(claim, artifact, settings)
	if skip != "" {
		if skip == SkipNoTarget {
			claim.Status = store.ClaimDiscarded
			claim.StatusReason = skip
			if err := b.store.UpdateClaim(ctx, claim); err != nil {
				return nil, services.Wrap(services.ErrTransient, stageName, "discard claim", "", err)
			}
		}
		attrs := append(logging.DecisionAttrs("draft_gate", "skipped", skip),
			logging.String(logging.FieldClaimID, claim.ID),
		)
		logger.Debug("claim not drafted", logging.Args(attrs...)...)
		return nil, nil
	}

	inserted, err := b.store.InsertDraft(ctx, draft)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, stageName, "insert draft", "", err)
	}
	if !inserted {
		logger.Debug("claim already drafted", logging.String(logging.FieldClaimID, claim.ID))
		return nil, nil
	}

	result := "requires_confirmation"
	if !draft.RequiresConfirmation {
		result = "auto_approved"
	}
	attrs := append(logging.DecisionAttrs("draft_gate", result, "overall confidence against coach threshold"),
		logging.String(logging.FieldDraftID, draft.ID),
		logging.String(logging.FieldClaimID, claim.ID),
		logging.Confidence("overall_confidence", draft.OverallConfidence),
		logging.Float64("threshold", settings.Threshold),
	)
	logger.Info("draft created", logging.Args(attrs...)...)

	if !draft.RequiresConfirmation {
		if err := b.autoApprove(ctx, draft); err != nil {
			return nil, err
		}
	}
	return draft, nil
}

func (b *Builder) autoApprove(ctx context.Context, draft *store.Draft) error {
	approved, _, err := b.drafts.AutoApprove(ctx, draft.ID, b.autoApply)
	if err != nil {
		return err
	}
	*draft = *approved
	return nil
}
