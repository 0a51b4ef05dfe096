package drafts

import (
	"context"
	"time"

	"sideline/internal/services"
	"sideline/internal/store"
)

// thresholdCeiling caps the effective auto-approval threshold.
const thresholdCeiling = 0.99

// Stats are a coach's review statistics, derived from the event log.
type Stats struct {
	OrgID              string                       `json:"org_id"`
	CoachID            string                       `json:"coach_id"`
	Counts             map[store.CoachEventKind]int `json:"counts"`
	Reviewed           int                          `json:"reviewed"`
	ApprovalRate       float64                      `json:"approval_rate"`
	RejectionRate      float64                      `json:"rejection_rate"`
	BaseThreshold      float64                      `json:"base_threshold"`
	EffectiveThreshold float64                      `json:"effective_threshold"`
	AutoApprove        bool                         `json:"auto_approve"`
	Trusted            bool                         `json:"trusted"`
	TrustBoost         float64                      `json:"trust_boost"`
}

// Settings returns the coach's gate settings, falling back to defaults for
// coaches who never saved any. Auto-approval is off by default.
func (m *Manager) Settings(ctx context.Context, orgID, coachID string) (store.CoachSettings, error) {
	saved, err := m.store.GetCoachSettings(ctx, orgID, coachID)
	if err != nil {
		return store.CoachSettings{}, services.Wrap(services.ErrTransient, component, "load settings", "", err)
	}
	if saved == nil {
		return store.CoachSettings{OrgID: orgID, CoachID: coachID, Threshold: m.policy.DefaultThreshold}, nil
	}
	if saved.Threshold <= 0 {
		saved.Threshold = m.policy.DefaultThreshold
	}
	return *saved, nil
}

// SaveSettings validates and stores a coach's gate settings.
func (m *Manager) SaveSettings(ctx context.Context, settings store.CoachSettings) error {
	if settings.OrgID == "" || settings.CoachID == "" {
		return services.Wrap(services.ErrValidation, component, "save settings", "org and coach are required", nil)
	}
	if settings.Threshold < 0 || settings.Threshold > 1 {
		return services.Wrap(services.ErrValidation, component, "save settings", "threshold must be within [0, 1]", nil)
	}
	if settings.TrustBoost < 0 || settings.TrustBoost > m.policy.MaxTrustBoost {
		return services.Wrap(services.ErrValidation, component, "save settings", "trust boost exceeds the allowed maximum", nil)
	}
	if err := m.store.SaveCoachSettings(ctx, settings); err != nil {
		return services.Wrap(services.ErrTransient, component, "save settings", "", err)
	}
	return nil
}

// CoachStats aggregates the coach's events. The effective threshold rises
// with the rejection rate: base + penalty*rate, clamped to [base, 0.99].
func (m *Manager) CoachStats(ctx context.Context, orgID, coachID string) (Stats, error) {
	settings, err := m.Settings(ctx, orgID, coachID)
	if err != nil {
		return Stats{}, err
	}
	counts, err := m.store.CoachEventCounts(ctx, orgID, coachID, time.Time{})
	if err != nil {
		return Stats{}, services.Wrap(services.ErrTransient, component, "count events", "", err)
	}

	stats := Stats{
		OrgID:         orgID,
		CoachID:       coachID,
		Counts:        counts,
		BaseThreshold: settings.Threshold,
		AutoApprove:   settings.AutoApprove,
		Trusted:       settings.Trusted,
		TrustBoost:    m.TrustBoost(settings),
	}
	confirmed, rejected := counts[store.EventConfirmed], counts[store.EventRejected]
	stats.Reviewed = confirmed + rejected
	if stats.Reviewed > 0 {
		stats.ApprovalRate = float64(confirmed) / float64(stats.Reviewed)
		stats.RejectionRate = float64(rejected) / float64(stats.Reviewed)
	}
	stats.EffectiveThreshold = EffectiveThreshold(settings.Threshold, m.policy.RejectionPenalty, stats.RejectionRate)
	return stats, nil
}

// EffectiveThreshold raises base by penalty per unit of rejection rate,
// never below base and never above 0.99 unless base already is.
func EffectiveThreshold(base, penalty, rejectionRate float64) float64 {
	raised := min(base+penalty*rejectionRate, thresholdCeiling)
	return max(raised, base)
}

// TrustBoost is the boost applied to a coach's drafts: zero unless the coach
// is trusted, and never above the configured maximum.
func (m *Manager) TrustBoost(settings store.CoachSettings) float64 {
	if !settings.Trusted {
		return 0
	}
	return max(0, min(settings.TrustBoost, m.policy.MaxTrustBoost))
}
