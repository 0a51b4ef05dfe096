package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetCoachSettings returns a coach's gate settings. Missing rows return nil, nil.
func (s *Store) GetCoachSettings(ctx context.Context, orgID, coachID string) (*CoachSettings, error) {
	var (
		cs          CoachSettings
		autoApprove int
		trusted     int
		updatedRaw  string
	)
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT org_id, coach_id, auto_approve, threshold, trusted, trust_boost, updated_at
         FROM coach_settings WHERE org_id = ? AND coach_id = ?`,
		orgID, coachID,
	).Scan(&cs.OrgID, &cs.CoachID, &autoApprove, &cs.Threshold, &trusted, &cs.TrustBoost, &updatedRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get coach settings: %w", err)
	}
	cs.AutoApprove = autoApprove != 0
	cs.Trusted = trusted != 0
	if updated, err := parseTimeString(updatedRaw); err == nil {
		cs.UpdatedAt = updated
	}
	return &cs, nil
}

// SaveCoachSettings inserts or replaces a coach's gate settings.
func (s *Store) SaveCoachSettings(ctx context.Context, cs CoachSettings) error {
	if cs.OrgID == "" || cs.CoachID == "" {
		return errors.New("coach settings require org and coach")
	}
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO coach_settings (org_id, coach_id, auto_approve, threshold, trusted, trust_boost, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT (org_id, coach_id) DO UPDATE SET
             auto_approve = excluded.auto_approve, threshold = excluded.threshold,
             trusted = excluded.trusted, trust_boost = excluded.trust_boost, updated_at = excluded.updated_at`,
		cs.OrgID,
		cs.CoachID,
		boolToInt(cs.AutoApprove),
		cs.Threshold,
		boolToInt(cs.Trusted),
		cs.TrustBoost,
		formatTime(time.Now()),
	); err != nil {
		return fmt.Errorf("save coach settings: %w", err)
	}
	return nil
}

// AppendCoachEvent records one statistics event inside the transaction.
func (t *Tx) AppendCoachEvent(ctx context.Context, ev CoachEvent) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	if ev.Actor == "" {
		ev.Actor = ev.CoachID
	}
	if _, err := t.tx.ExecContext(
		ctx,
		`INSERT INTO coach_events (org_id, coach_id, kind, draft_id, claim_id, artifact_id, actor, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.OrgID,
		ev.CoachID,
		string(ev.Kind),
		nullableString(ev.DraftID),
		nullableString(ev.ClaimID),
		nullableString(ev.ArtifactID),
		ev.Actor,
		formatTime(ev.CreatedAt),
	); err != nil {
		return fmt.Errorf("append coach event: %w", err)
	}
	return nil
}

// CoachEventCounts aggregates a coach's events by kind since the given time.
// A zero since counts the whole history.
func (s *Store) CoachEventCounts(ctx context.Context, orgID, coachID string, since time.Time) (map[CoachEventKind]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT kind, COUNT(1) FROM coach_events
         WHERE org_id = ? AND coach_id = ? AND created_at >= ?
         GROUP BY kind`,
		orgID, coachID, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("coach event counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[CoachEventKind]int)
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, err
		}
		counts[CoachEventKind(kind)] = count
	}
	return counts, rows.Err()
}

// CoachEvents returns a coach's raw events, newest first.
func (s *Store) CoachEvents(ctx context.Context, orgID, coachID string, limit int) ([]CoachEvent, error) {
	query := `SELECT seq, org_id, coach_id, kind, draft_id, claim_id, artifact_id, actor, created_at
        FROM coach_events WHERE org_id = ? AND coach_id = ? ORDER BY seq DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, orgID, coachID)
	if err != nil {
		return nil, fmt.Errorf("coach events: %w", err)
	}
	defer rows.Close()

	var events []CoachEvent
	for rows.Next() {
		var (
			ev         CoachEvent
			kind       string
			draftID    sql.NullString
			claimID    sql.NullString
			artifactID sql.NullString
			createdRaw string
		)
		if err := rows.Scan(&ev.Seq, &ev.OrgID, &ev.CoachID, &kind, &draftID, &claimID, &artifactID, &ev.Actor, &createdRaw); err != nil {
			return nil, err
		}
		ev.Kind = CoachEventKind(kind)
		ev.DraftID = draftID.String
		ev.ClaimID = claimID.String
		ev.ArtifactID = artifactID.String
		if created, err := parseTimeString(createdRaw); err == nil {
			ev.CreatedAt = created
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
