package drafts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"sideline/internal/config"
	"sideline/internal/logging"
	"sideline/internal/services"
	"sideline/internal/store"
)

const component = "drafts"

// ErrDraftNotPending reports a transition attempted on a draft that is no
// longer pending, either because another action won or because it expired.
var ErrDraftNotPending = fmt.Errorf("draft not pending: %w", services.ErrAlreadyTerminal)

// SystemActor is recorded on events the pipeline raises without a coach.
const SystemActor = "system"

// Policy holds the lifecycle and gate settings.
type Policy struct {
	Retention        time.Duration
	DefaultThreshold float64
	RejectionPenalty float64
	MaxTrustBoost    float64
}

// PolicyFromConfig reads draft settings from configuration.
func PolicyFromConfig(cfg *config.Config) Policy {
	return Policy{
		Retention:        time.Duration(cfg.Drafts.RetentionDays) * 24 * time.Hour,
		DefaultThreshold: cfg.Drafts.DefaultThreshold,
		RejectionPenalty: cfg.Drafts.RejectionPenalty,
		MaxTrustBoost:    cfg.Drafts.MaxTrustBoost,
	}
}

// Manager applies coach actions to drafts.
type Manager struct {
	store  *store.Store
	policy Policy
	now    func() time.Time
	logger *slog.Logger
}

// NewManager constructs a draft lifecycle manager.
func NewManager(st *store.Store, policy Policy, logger *slog.Logger) *Manager {
	if policy.Retention <= 0 {
		policy.Retention = 7 * 24 * time.Hour
	}
	return &Manager{
		store:  st,
		policy: policy,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logging.NewComponentLogger(logger, component),
	}
}

// Policy returns the manager's settings.
func (m *Manager) Policy() Policy {
	return m.policy
}

// cutoff is the oldest creation time still inside the retention window.
func (m *Manager) cutoff() time.Time {
	return m.now().Add(-m.policy.Retention)
}

// Expired reports whether a pending draft has aged out of the retention
// window, whether or not it has been swept.
func (m *Manager) Expired(draft *store.Draft) bool {
	return draft.Status == store.DraftExpired ||
		(draft.Status == store.DraftPending && draft.CreatedAt.Before(m.cutoff()))
}

// PendingForCoach lists the coach's pending, unexpired drafts in display
// order.
func (m *Manager) PendingForCoach(ctx context.Context, orgID, coachID string) ([]*store.Draft, error) {
	drafts, err := m.store.PendingDrafts(ctx, orgID, coachID, m.cutoff())
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, component, "list pending", "", err)
	}
	return drafts, nil
}

// Get returns a draft the coach owns.
func (m *Manager) Get(ctx context.Context, draftID, coachID string) (*store.Draft, error) {
	draft, err := m.store.GetDraft(ctx, draftID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, component, "load draft", "", err)
	}
	if err := checkOwner(draft, draftID, coachID); err != nil {
		return nil, err
	}
	return draft, nil
}

// ForArtifact lists every draft built from an artifact the coach owns.
func (m *Manager) ForArtifact(ctx context.Context, artifactID, coachID string) ([]*store.Draft, error) {
	if _, err := m.ownedArtifact(ctx, artifactID, coachID); err != nil {
		return nil, err
	}
	drafts, err := m.store.DraftsForArtifact(ctx, artifactID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, component, "list drafts", "", err)
	}
	return drafts, nil
}

func checkOwner(draft *store.Draft, draftID, coachID string) error {
	if draft == nil {
		return services.Wrap(services.ErrNotFound, component, "load draft", fmt.Sprintf("draft %s not found", draftID), nil)
	}
	if draft.CoachID != coachID {
		return services.Wrap(services.ErrAccessDenied, component, "check owner", "draft belongs to another coach", nil)
	}
	return nil
}

func (m *Manager) ownedArtifact(ctx context.Context, artifactID, coachID string) (*store.Artifact, error) {
	artifact, err := m.store.GetArtifact(ctx, artifactID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, component, "load artifact", "", err)
	}
	if artifact == nil {
		return nil, services.Wrap(services.ErrNotFound, component, "load artifact", fmt.Sprintf("artifact %s not found", artifactID), nil)
	}
	if artifact.CoachID != coachID {
		return nil, services.Wrap(services.ErrAccessDenied, component, "check owner", "artifact belongs to another coach", nil)
	}
	return artifact, nil
}

func (m *Manager) log(ctx context.Context, draft *store.Draft, msg string, attrs ...logging.Attr) {
	base := []logging.Attr{
		logging.String(logging.FieldDraftID, draft.ID),
		logging.String(logging.FieldArtifactID, draft.ArtifactID),
		logging.String(logging.FieldCoachID, draft.CoachID),
	}
	logging.WithContext(ctx, m.logger).Info(msg, logging.Args(append(base, attrs...)...)...)
}
