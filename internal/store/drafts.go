package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const draftColumns = "id, artifact_id, claim_id, org_id, coach_id, player_id, player_name, team_id, insight_type, title, description, evidence_snippet, evidence_offset_ms, display_order, extraction_confidence, resolution_confidence, overall_confidence, requires_confirmation, status, created_at, confirmed_at, applied_at"

func scanDraft(scanner interface{ Scan(dest ...any) error }) (*Draft, error) {
	var (
		d              Draft
		playerID       sql.NullString
		playerName     sql.NullString
		teamID         sql.NullString
		insightType    string
		evidenceOffset sql.NullInt64
		requires       int
		status         string
		createdRaw     string
		confirmedRaw   sql.NullString
		appliedRaw     sql.NullString
	)
	if err := scanner.Scan(
		&d.ID,
		&d.ArtifactID,
		&d.ClaimID,
		&d.OrgID,
		&d.CoachID,
		&playerID,
		&playerName,
		&teamID,
		&insightType,
		&d.Title,
		&d.Description,
		&d.EvidenceSnippet,
		&evidenceOffset,
		&d.DisplayOrder,
		&d.ExtractionConfidence,
		&d.ResolutionConfidence,
		&d.OverallConfidence,
		&requires,
		&status,
		&createdRaw,
		&confirmedRaw,
		&appliedRaw,
	); err != nil {
		return nil, err
	}
	d.PlayerID = playerID.String
	d.PlayerName = playerName.String
	d.TeamID = teamID.String
	d.InsightType = Topic(insightType)
	d.EvidenceOffsetMS = int64Ptr(evidenceOffset)
	d.RequiresConfirmation = requires != 0
	d.Status = DraftStatus(status)
	if created, err := parseTimeString(createdRaw); err == nil {
		d.CreatedAt = created
	}
	d.ConfirmedAt = parseNullTime(confirmedRaw)
	d.AppliedAt = parseNullTime(appliedRaw)
	return &d, nil
}

func queryDrafts(ctx context.Context, q queryer, query string, args ...any) ([]*Draft, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query drafts: %w", err)
	}
	defer rows.Close()

	var drafts []*Draft
	for rows.Next() {
		draft, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, draft)
	}
	return drafts, rows.Err()
}

// insertDraft writes a new pending draft. A second draft for the same claim is
// ignored and reported as not inserted.
func insertDraft(ctx context.Context, q queryer, d *Draft) (bool, error) {
	if d == nil {
		return false, errors.New("draft is nil")
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	if d.Status == "" {
		d.Status = DraftPending
	}
	res, err := q.ExecContext(
		ctx,
		`INSERT INTO drafts (`+draftColumns+`)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT (claim_id) DO NOTHING`,
		d.ID,
		d.ArtifactID,
		d.ClaimID,
		d.OrgID,
		d.CoachID,
		nullableString(d.PlayerID),
		nullableString(d.PlayerName),
		nullableString(d.TeamID),
		string(d.InsightType),
		d.Title,
		d.Description,
		d.EvidenceSnippet,
		nullableInt64(d.EvidenceOffsetMS),
		d.DisplayOrder,
		d.ExtractionConfidence,
		d.ResolutionConfidence,
		d.OverallConfidence,
		boolToInt(d.RequiresConfirmation),
		string(d.Status),
		formatTime(d.CreatedAt),
		nullableTime(d.ConfirmedAt),
		nullableTime(d.AppliedAt),
	)
	if err != nil {
		return false, fmt.Errorf("insert draft: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected == 1, nil
}

func getDraft(ctx context.Context, q queryer, id string) (*Draft, error) {
	row := q.QueryRowContext(ctx, `SELECT `+draftColumns+` FROM drafts WHERE id = ?`, id)
	draft, err := scanDraft(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get draft: %w", err)
	}
	return draft, nil
}

// transitionDraft applies a conditional status change and reports whether
// this caller won it.
func transitionDraft(ctx context.Context, q queryer, tr DraftTransition) (bool, error) {
	at := tr.At
	if at.IsZero() {
		at = time.Now()
	}
	query := `UPDATE drafts SET status = ?`
	args := []any{string(tr.To)}
	switch tr.To {
	case DraftConfirmed:
		query += `, confirmed_at = ?`
		args = append(args, formatTime(at))
	case DraftApplied:
		query += `, applied_at = ?`
		args = append(args, formatTime(at))
	}
	query += ` WHERE id = ? AND status = ?`
	args = append(args, tr.ID, string(tr.From))
	if !tr.NotBefore.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, formatTime(tr.NotBefore))
	}
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("transition draft: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected == 1, nil
}

// InsertDraft writes a pending draft; false means the claim already has one.
func (s *Store) InsertDraft(ctx context.Context, d *Draft) (bool, error) {
	ctx = ensureContext(ctx)
	var inserted bool
	err := retryOnBusy(ctx, func() error {
		var err error
		inserted, err = insertDraft(ctx, s.db, d)
		return err
	})
	return inserted, err
}

// GetDraft fetches a draft by identifier. Missing drafts return nil, nil.
func (s *Store) GetDraft(ctx context.Context, id string) (*Draft, error) {
	return getDraft(ensureContext(ctx), s.db, id)
}

// TransitionDraft applies a single conditional status change outside any
// wider transaction.
func (s *Store) TransitionDraft(ctx context.Context, tr DraftTransition) (bool, error) {
	ctx = ensureContext(ctx)
	var won bool
	err := retryOnBusy(ctx, func() error {
		var err error
		won, err = transitionDraft(ctx, s.db, tr)
		return err
	})
	return won, err
}

// DraftsForArtifact returns every draft built from an artifact in display order.
func (s *Store) DraftsForArtifact(ctx context.Context, artifactID string) ([]*Draft, error) {
	return queryDrafts(ensureContext(ctx), s.db,
		`SELECT `+draftColumns+` FROM drafts WHERE artifact_id = ? ORDER BY display_order, created_at, id`, artifactID)
}

// PendingDrafts returns a coach's pending drafts created at or after cutoff,
// ordered by display order.
func (s *Store) PendingDrafts(ctx context.Context, orgID, coachID string, cutoff time.Time) ([]*Draft, error) {
	return queryDrafts(ensureContext(ctx), s.db,
		`SELECT `+draftColumns+` FROM drafts
         WHERE org_id = ? AND coach_id = ? AND status = ? AND created_at >= ?
         ORDER BY display_order, created_at, id`,
		orgID, coachID, string(DraftPending), formatTime(cutoff))
}

// GetDraft reads a draft inside the transaction.
func (t *Tx) GetDraft(ctx context.Context, id string) (*Draft, error) {
	return getDraft(ctx, t.tx, id)
}

// InsertDraft writes a draft inside the transaction.
func (t *Tx) InsertDraft(ctx context.Context, d *Draft) (bool, error) {
	return insertDraft(ctx, t.tx, d)
}

// TransitionDraft applies a conditional status change inside the transaction.
func (t *Tx) TransitionDraft(ctx context.Context, tr DraftTransition) (bool, error) {
	return transitionDraft(ctx, t.tx, tr)
}

// DraftsForArtifact reads every draft of an artifact inside the transaction.
func (t *Tx) DraftsForArtifact(ctx context.Context, artifactID string) ([]*Draft, error) {
	return queryDrafts(ctx, t.tx,
		`SELECT `+draftColumns+` FROM drafts WHERE artifact_id = ? ORDER BY display_order, created_at, id`, artifactID)
}

// StalePendingDrafts returns pending drafts created before cutoff.
func (t *Tx) StalePendingDrafts(ctx context.Context, cutoff time.Time) ([]*Draft, error) {
	return queryDrafts(ctx, t.tx,
		`SELECT `+draftColumns+` FROM drafts WHERE status = ? AND created_at < ? ORDER BY created_at`,
		string(DraftPending), formatTime(cutoff))
}
