package drafts

import (
	"context"
	"fmt"

	"sideline/internal/logging"
	"sideline/internal/services"
	"sideline/internal/store"
)

// Apply writes the insight for a confirmed draft and marks the draft applied,
// all in one transaction. Re-applying an applied draft is ErrAlreadyTerminal
// and writes nothing.
func (m *Manager) Apply(ctx context.Context, draftID, coachID string) (*store.Insight, error) {
	return m.apply(ctx, draftID, coachID, coachID)
}

func (m *Manager) apply(ctx context.Context, draftID, coachID, actor string) (*store.Insight, error) {
	var (
		insight *store.Insight
		draft   *store.Draft
	)
	err := m.store.WithTx(ctx, func(tx *store.Tx) error {
		current, err := tx.GetDraft(ctx, draftID)
		if err != nil {
			return err
		}
		if err := checkOwner(current, draftID, coachID); err != nil {
			return err
		}
		switch current.Status {
		case store.DraftConfirmed:
		case store.DraftPending:
			return services.Wrap(services.ErrValidation, component, "apply", "draft must be confirmed before it is applied", nil)
		default:
			return services.Wrap(services.ErrAlreadyTerminal, component, "apply", fmt.Sprintf("draft is %s", current.Status), nil)
		}

		claim, err := tx.GetClaim(ctx, current.ClaimID)
		if err != nil {
			return err
		}
		if claim == nil {
			return services.Wrap(services.ErrNotFound, component, "apply", "source claim missing", nil)
		}

		now := m.now()
		record := &store.Insight{
			OrgID:             current.OrgID,
			PlayerID:          current.PlayerID,
			TeamID:            current.TeamID,
			Category:          current.InsightType,
			Title:             current.Title,
			Description:       current.Description,
			RecommendedAction: claim.RecommendedAction,
			Severity:          claim.Severity,
			SourceArtifactID:  current.ArtifactID,
			DraftID:           current.ID,
			ClaimID:           current.ClaimID,
			Confidence:        current.OverallConfidence,
			CoachID:           current.CoachID,
			CreatedAt:         now,
		}
		if err := tx.InsertInsight(ctx, record); err != nil {
			return err
		}
		won, err := tx.TransitionDraft(ctx, store.DraftTransition{
			ID:   current.ID,
			From: store.DraftConfirmed,
			To:   store.DraftApplied,
			At:   now,
		})
		if err != nil {
			return err
		}
		if !won {
			return services.Wrap(services.ErrAlreadyTerminal, component, "apply", "draft changed while applying", nil)
		}
		current.Status = store.DraftApplied
		current.AppliedAt = &now
		if err := tx.AppendCoachEvent(ctx, store.CoachEvent{
			OrgID:      current.OrgID,
			CoachID:    current.CoachID,
			Kind:       store.EventApplied,
			DraftID:    current.ID,
			ClaimID:    current.ClaimID,
			ArtifactID: current.ArtifactID,
			Actor:      actor,
			CreatedAt:  now,
		}); err != nil {
			return err
		}
		insight, draft = record, current
		return nil
	})
	if err != nil {
		return nil, classify(err, "apply")
	}
	m.log(ctx, draft, "draft applied",
		logging.String(logging.FieldEventType, "draft_applied"),
		logging.String("insight_id", insight.ID),
		logging.String("player_id", insight.PlayerID),
	)
	return insight, nil
}
