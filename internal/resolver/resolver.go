package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"sideline/internal/config"
	"sideline/internal/logging"
	"sideline/internal/roster"
	"sideline/internal/services"
	"sideline/internal/store"
)

const stageName = "resolution"

// RosterSource loads an org's roster candidates.
type RosterSource interface {
	Load(ctx context.Context, orgID string) (*roster.Snapshot, error)
}

// Drafter builds the draft for a claim that has just been resolved.
type Drafter interface {
	DraftClaim(ctx context.Context, artifact *store.Artifact, claim *store.Claim) (*store.Draft, error)
}

// Options configures a Resolver.
type Options struct {
	Policy     Policy
	ModelHints bool
}

// OptionsFromConfig reads resolver thresholds from configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Policy: Policy{
			MinConfidence: cfg.Resolver.MinConfidence,
			TieEpsilon:    cfg.Resolver.TieEpsilon,
		},
		ModelHints: cfg.Resolver.ModelHints,
	}
}

// Resolver resolves the claims of an artifact and handles coach
// disambiguation.
type Resolver struct {
	store     *store.Store
	rosters   RosterSource
	completer Completer
	drafter   Drafter
	opts      Options
	logger    *slog.Logger
}

// NewResolver constructs a resolver. completer may be nil to disable model
// hints; drafter may be nil when disambiguation should not draft.
func NewResolver(st *store.Store, rosters RosterSource, completer Completer, drafter Drafter, opts Options, logger *slog.Logger) *Resolver {
	return &Resolver{
		store:     st,
		rosters:   rosters,
		completer: completer,
		drafter:   drafter,
		opts:      opts,
		logger:    logging.NewComponentLogger(logger, "entity-resolver"),
	}
}

// ResolveArtifact resolves every unsettled claim of artifact and persists
// the outcomes in one transaction.
func (r *Resolver) ResolveArtifact(ctx context.Context, artifact *store.Artifact) error {
	logger := logging.WithContext(ctx, r.logger)
	claims, err := r.store.ClaimsForArtifact(ctx, artifact.ID)
	if err != nil {
		return services.Wrap(services.ErrTransient, stageName, "load claims", "", err)
	}

	var work []*store.Claim
	for _, claim := range claims {
		if claim.Status == store.ClaimExtracted || claim.Status == store.ClaimResolving {
			work = append(work, claim)
		}
	}
	if len(work) == 0 {
		logger.Debug("no claims to resolve", logging.Int("claims", len(claims)))
		return nil
	}

	if err := r.markResolving(ctx, work); err != nil {
		return err
	}

	snap, err := r.rosters.Load(ctx, artifact.OrgID)
	if err != nil {
		return services.Wrap(services.ErrTransient, stageName, "load roster", "", err)
	}

	for _, claim := range work {
		ResolveClaim(claim, snap, r.opts.Policy, nil)
	}
	if hints := r.hints(ctx, logger, artifact.OrgID, work, snap); len(hints) > 0 {
		for _, claim := range work {
			ResolveClaim(claim, snap, r.opts.Policy, hints)
		}
	}
	merged := MergeDuplicates(claims)

	err = r.store.WithTx(ctx, func(tx *store.Tx) error {
		for _, claim := range claims {
			if claim.Status == store.ClaimDiscarded || claim.Status == store.ClaimFailed {
				continue
			}
			if err := tx.UpdateClaim(ctx, claim); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return services.Wrap(services.ErrTransient, stageName, "persist resolutions", "", err)
	}

	counts := make(map[store.ClaimStatus]int)
	for _, claim := range work {
		counts[claim.Status]++
		if claim.Status == store.ClaimNeedsDisambiguation {
			attrs := append(logging.DecisionAttrs("entity_resolution", string(claim.Status), claim.StatusReason),
				logging.String(logging.FieldClaimID, claim.ID),
				logging.Int("sequence", claim.Sequence),
			)
			logger.Info("claim needs disambiguation", logging.Args(attrs...)...)
		}
	}
	logger.Info("claims resolved",
		logging.String(logging.FieldEventType, "claims_resolved"),
		logging.Int("resolved", counts[store.ClaimResolved]),
		logging.Int("needs_disambiguation", counts[store.ClaimNeedsDisambiguation]),
		logging.Int("merged", merged),
	)
	return nil
}

func (r *Resolver) markResolving(ctx context.Context, claims []*store.Claim) error {
	err := r.store.WithTx(ctx, func(tx *store.Tx) error {
		for _, claim := range claims {
			claim.Status = store.ClaimResolving
			if err := tx.UpdateClaim(ctx, claim); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return services.Wrap(services.ErrTransient, stageName, "mark claims resolving", "", err)
	}
	return nil
}

// hints asks the model about mentions the matcher could not place. Hints are
// optional: an unconfigured route disables them and other failures are
// logged and ignored.
func (r *Resolver) hints(ctx context.Context, logger *slog.Logger, orgID string, claims []*store.Claim, snap *roster.Snapshot) Hints {
	if !r.opts.ModelHints || r.completer == nil {
		return nil
	}
	mentions := unmatchedMentions(claims)
	if len(mentions) == 0 {
		return nil
	}
	hints, err := requestHints(ctx, r.completer, orgID, mentions, snap)
	switch {
	case err == nil:
		logger.Debug("model hints received", logging.Int("mentions", len(mentions)), logging.Int("hints", len(hints)))
		return hints
	case errors.Is(err, services.ErrNotConfigured):
		logger.Debug("model hints disabled", logging.String("reason", "entity_resolution route not configured"))
	default:
		logging.WarnWithContext(logger, "model hints failed", "resolution_hints_failed",
			logging.Error(err),
			logging.Int("mentions", len(mentions)),
			logging.String(logging.FieldImpact, "unmatched mentions stay unmatched"),
		)
	}
	return nil
}

// Disambiguate records the coach's choice of player for a claim that needs
// disambiguation, resolves it with full confidence, and builds its draft.
// Only the coach who submitted the note may disambiguate its claims.
func (r *Resolver) Disambiguate(ctx context.Context, claimID, coachID, playerID string) (*store.Draft, error) {
	claim, err := r.store.GetClaim(ctx, claimID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, stageName, "load claim", "", err)
	}
	if claim == nil {
		return nil, services.Wrap(services.ErrNotFound, stageName, "disambiguate", fmt.Sprintf("claim %s not found", claimID), nil)
	}
	artifact, err := r.store.GetArtifact(ctx, claim.ArtifactID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, stageName, "load artifact", "", err)
	}
	if artifact == nil {
		return nil, services.Wrap(services.ErrNotFound, stageName, "disambiguate", "claim has no artifact", nil)
	}
	if artifact.CoachID != coachID {
		return nil, services.Wrap(services.ErrAccessDenied, stageName, "disambiguate", "claim belongs to another coach", nil)
	}
	player, err := r.store.GetPlayer(ctx, artifact.OrgID, playerID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, stageName, "load player", "", err)
	}
	if player == nil {
		return nil, services.Wrap(services.ErrValidation, stageName, "disambiguate", fmt.Sprintf("player %s is not on the roster", playerID), nil)
	}

	err = r.store.WithTx(ctx, func(tx *store.Tx) error {
		current, err := tx.GetClaim(ctx, claimID)
		if err != nil {
			return err
		}
		if current == nil || current.Status != store.ClaimNeedsDisambiguation {
			return services.Wrap(services.ErrAlreadyTerminal, stageName, "disambiguate", "claim does not need disambiguation", nil)
		}
		applyChoice(current, *player)
		if err := tx.UpdateClaim(ctx, current); err != nil {
			return err
		}
		claim = current
		return tx.AppendCoachEvent(ctx, store.CoachEvent{
			OrgID:      artifact.OrgID,
			CoachID:    artifact.CoachID,
			Kind:       store.EventDisambiguated,
			ClaimID:    claim.ID,
			ArtifactID: artifact.ID,
			Actor:      coachID,
			CreatedAt:  time.Now().UTC(),
		})
	})
	if err != nil {
		if errors.Is(err, services.ErrAlreadyTerminal) {
			return nil, err
		}
		return nil, services.Wrap(services.ErrTransient, stageName, "persist disambiguation", "", err)
	}

	logger := logging.WithContext(services.WithArtifactID(ctx, artifact.ID), r.logger)
	attrs := append(logging.DecisionAttrs("disambiguation", "resolved", "coach selected player"),
		logging.String(logging.FieldClaimID, claim.ID),
		logging.String(logging.FieldCoachID, coachID),
		logging.String("player_id", player.ID),
	)
	logger.Info("claim disambiguated", logging.Args(attrs...)...)

	if r.drafter == nil {
		return nil, nil
	}
	return r.drafter.DraftClaim(ctx, artifact, claim)
}

// applyChoice resolves claim to player. Ambiguous team mentions resolve to
// a tied team the player belongs to; any other ambiguity becomes no match.
func applyChoice(claim *store.Claim, player store.Player) {
	claim.PlayerID = player.ID
	onTeam := func(teamID string) bool {
		for _, id := range player.TeamIDs {
			if id == teamID {
				return true
			}
		}
		return false
	}
	for i := range claim.Resolutions {
		res := &claim.Resolutions[i]
		if res.Outcome != store.OutcomeAmbiguous {
			continue
		}
		switch res.Kind {
		case store.MentionPlayer:
			res.Outcome = store.OutcomeMatched
			res.RefID = player.ID
			res.DisplayName = player.DisplayName()
			res.Confidence = 1
			res.Tier = TierCoach
		case store.MentionTeam:
			res.Outcome = store.OutcomeNoMatch
			for _, candidate := range res.Candidates {
				if onTeam(candidate.ID) {
					res.Outcome = store.OutcomeMatched
					res.RefID = candidate.ID
					res.DisplayName = candidate.Name
					res.Confidence = 1
					res.Tier = TierCoach
					break
				}
			}
		default:
			res.Outcome = store.OutcomeNoMatch
		}
		if res.Outcome == store.OutcomeNoMatch {
			res.Kind, res.Confidence, res.Tier = "", 0, ""
		}
	}
	if claim.TeamID == "" || !onTeam(claim.TeamID) {
		claim.TeamID = ""
		for _, res := range claim.Resolutions {
			if res.Outcome == store.OutcomeMatched && res.Kind == store.MentionTeam {
				claim.TeamID = res.RefID
				break
			}
		}
		if claim.TeamID == "" && len(player.TeamIDs) == 1 {
			claim.TeamID = player.TeamIDs[0]
		}
	}
	claim.ResolutionConfidence = 1
	claim.Status = store.ClaimResolved
	claim.StatusReason = "disambiguated by coach"
}
