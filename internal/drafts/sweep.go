package drafts

import (
	"context"

	"sideline/internal/logging"
	"sideline/internal/store"
)

// Sweep marks pending drafts past the retention window as expired and
// records one expired event per draft. Reads already hide these drafts; the
// sweep makes the state explicit.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	expired := 0
	err := m.store.WithTx(ctx, func(tx *store.Tx) error {
		expired = 0
		now := m.now()
		stale, err := tx.StalePendingDrafts(ctx, m.cutoff())
		if err != nil {
			return err
		}
		for _, draft := range stale {
			won, err := tx.TransitionDraft(ctx, store.DraftTransition{
				ID:   draft.ID,
				From: store.DraftPending,
				To:   store.DraftExpired,
				At:   now,
			})
			if err != nil {
				return err
			}
			if !won {
				continue
			}
			if err := tx.AppendCoachEvent(ctx, store.CoachEvent{
				OrgID:      draft.OrgID,
				CoachID:    draft.CoachID,
				Kind:       store.EventExpired,
				DraftID:    draft.ID,
				ClaimID:    draft.ClaimID,
				ArtifactID: draft.ArtifactID,
				Actor:      SystemActor,
				CreatedAt:  now,
			}); err != nil {
				return err
			}
			expired++
		}
		return nil
	})
	if err != nil {
		return 0, classify(err, "sweep")
	}
	if expired > 0 {
		logging.WithContext(ctx, m.logger).Info("expired stale drafts",
			logging.String(logging.FieldEventType, "drafts_expired"),
			logging.Int("drafts", expired),
			logging.Duration("retention", m.policy.Retention),
		)
	}
	return expired, nil
}
