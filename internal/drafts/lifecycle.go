package drafts

import (
	"context"
	"errors"

	"sideline/internal/logging"
	"sideline/internal/services"
	"sideline/internal/store"
)

// action describes one coach review transition.
type action struct {
	name  string
	to    store.DraftStatus
	event store.CoachEventKind
}

var (
	confirmAction = action{name: "confirm", to: store.DraftConfirmed, event: store.EventConfirmed}
	rejectAction  = action{name: "reject", to: store.DraftRejected, event: store.EventRejected}
)

// Confirm moves a pending draft the coach owns to confirmed.
func (m *Manager) Confirm(ctx context.Context, draftID, coachID string) (*store.Draft, error) {
	return m.review(ctx, draftID, coachID, confirmAction)
}

// Reject moves a pending draft the coach owns to rejected.
func (m *Manager) Reject(ctx context.Context, draftID, coachID string) (*store.Draft, error) {
	return m.review(ctx, draftID, coachID, rejectAction)
}

// ConfirmAll confirms every pending, unexpired draft of an artifact in one
// transaction. Either all eligible drafts move or none do.
func (m *Manager) ConfirmAll(ctx context.Context, artifactID, coachID string) ([]*store.Draft, error) {
	return m.reviewAll(ctx, artifactID, coachID, confirmAction)
}

// RejectAll rejects every pending, unexpired draft of an artifact in one
// transaction. Either all eligible drafts move or none do.
func (m *Manager) RejectAll(ctx context.Context, artifactID, coachID string) ([]*store.Draft, error) {
	return m.reviewAll(ctx, artifactID, coachID, rejectAction)
}

func (m *Manager) review(ctx context.Context, draftID, coachID string, act action) (*store.Draft, error) {
	var draft *store.Draft
	err := m.store.WithTx(ctx, func(tx *store.Tx) error {
		current, err := tx.GetDraft(ctx, draftID)
		if err != nil {
			return err
		}
		if err := checkOwner(current, draftID, coachID); err != nil {
			return err
		}
		if err := m.transition(ctx, tx, current, act, coachID); err != nil {
			return err
		}
		draft = current
		return nil
	})
	if err != nil {
		return nil, classify(err, act.name)
	}
	m.log(ctx, draft, "draft "+string(act.to), logging.String(logging.FieldEventType, "draft_"+string(act.to)))
	return draft, nil
}

func (m *Manager) reviewAll(ctx context.Context, artifactID, coachID string, act action) ([]*store.Draft, error) {
	if _, err := m.ownedArtifact(ctx, artifactID, coachID); err != nil {
		return nil, err
	}
	var moved []*store.Draft
	err := m.store.WithTx(ctx, func(tx *store.Tx) error {
		moved = moved[:0]
		drafts, err := tx.DraftsForArtifact(ctx, artifactID)
		if err != nil {
			return err
		}
		for _, draft := range drafts {
			if draft.Status != store.DraftPending || m.Expired(draft) {
				continue
			}
			if err := checkOwner(draft, draft.ID, coachID); err != nil {
				return err
			}
			if err := m.transition(ctx, tx, draft, act, coachID); err != nil {
				return err
			}
			moved = append(moved, draft)
		}
		return nil
	})
	if err != nil {
		return nil, classify(err, act.name+" all")
	}
	logging.WithContext(ctx, m.logger).Info("drafts "+string(act.to)+" in bulk",
		logging.String(logging.FieldEventType, "drafts_bulk_"+string(act.to)),
		logging.String(logging.FieldArtifactID, artifactID),
		logging.String(logging.FieldCoachID, coachID),
		logging.Int("drafts", len(moved)),
	)
	return moved, nil
}

// transition applies one conditional pending transition and its coach event.
// It updates draft in place when the transition lands.
func (m *Manager) transition(ctx context.Context, tx *store.Tx, draft *store.Draft, act action, actor string) error {
	now := m.now()
	won, err := tx.TransitionDraft(ctx, store.DraftTransition{
		ID:        draft.ID,
		From:      store.DraftPending,
		To:        act.to,
		At:        now,
		NotBefore: m.cutoff(),
	})
	if err != nil {
		return err
	}
	if !won {
		return ErrDraftNotPending
	}
	draft.Status = act.to
	if act.to == store.DraftConfirmed {
		draft.ConfirmedAt = &now
	}
	return tx.AppendCoachEvent(ctx, store.CoachEvent{
		OrgID:      draft.OrgID,
		CoachID:    draft.CoachID,
		Kind:       act.event,
		DraftID:    draft.ID,
		ClaimID:    draft.ClaimID,
		ArtifactID: draft.ArtifactID,
		Actor:      actor,
		CreatedAt:  now,
	})
}

// AutoApprove confirms a draft on the coach's behalf and, when apply is set,
// applies it. Only drafts that do not require confirmation qualify.
func (m *Manager) AutoApprove(ctx context.Context, draftID string, apply bool) (*store.Draft, *store.Insight, error) {
	var draft *store.Draft
	err := m.store.WithTx(ctx, func(tx *store.Tx) error {
		current, err := tx.GetDraft(ctx, draftID)
		if err != nil {
			return err
		}
		if current == nil {
			return services.Wrap(services.ErrNotFound, component, "auto approve", "draft "+draftID+" not found", nil)
		}
		if current.RequiresConfirmation {
			return services.Wrap(services.ErrValidation, component, "auto approve", "draft requires coach confirmation", nil)
		}
		auto := action{name: "auto approve", to: store.DraftConfirmed, event: store.EventAutoConfirmed}
		if err := m.transition(ctx, tx, current, auto, SystemActor); err != nil {
			return err
		}
		draft = current
		return nil
	})
	if err != nil {
		return nil, nil, classify(err, "auto approve")
	}
	m.log(ctx, draft, "draft auto-confirmed",
		logging.String(logging.FieldEventType, "draft_auto_confirmed"),
		logging.Confidence("overall_confidence", draft.OverallConfidence),
	)
	if !apply {
		return draft, nil, nil
	}
	insight, err := m.apply(ctx, draft.ID, draft.CoachID, SystemActor)
	if err != nil {
		return draft, nil, err
	}
	draft.Status = store.DraftApplied
	draft.AppliedAt = &insight.CreatedAt
	return draft, insight, nil
}

// classify keeps lifecycle markers and wraps storage failures as transient.
func classify(err error, op string) error {
	for _, marker := range []error{
		services.ErrNotFound,
		services.ErrAccessDenied,
		services.ErrAlreadyTerminal,
		services.ErrValidation,
	} {
		if errors.Is(err, marker) {
			return err
		}
	}
	return services.Wrap(services.ErrTransient, component, op, "", err)
}
