package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const insightColumns = "id, org_id, player_id, team_id, category, title, description, recommended_action, severity, source_artifact_id, draft_id, claim_id, confidence, coach_id, created_at"

func scanInsight(scanner interface{ Scan(dest ...any) error }) (*Insight, error) {
	var (
		in                Insight
		playerID          sql.NullString
		teamID            sql.NullString
		category          string
		recommendedAction sql.NullString
		severity          sql.NullString
		createdRaw        string
	)
	if err := scanner.Scan(
		&in.ID,
		&in.OrgID,
		&playerID,
		&teamID,
		&category,
		&in.Title,
		&in.Description,
		&recommendedAction,
		&severity,
		&in.SourceArtifactID,
		&in.DraftID,
		&in.ClaimID,
		&in.Confidence,
		&in.CoachID,
		&createdRaw,
	); err != nil {
		return nil, err
	}
	in.PlayerID = playerID.String
	in.TeamID = teamID.String
	in.Category = Topic(category)
	in.RecommendedAction = recommendedAction.String
	in.Severity = Severity(severity.String)
	if created, err := parseTimeString(createdRaw); err == nil {
		in.CreatedAt = created
	}
	return &in, nil
}

// InsertInsight writes the permanent record inside the transaction. The
// UNIQUE draft_id constraint rejects a second insight for the same draft.
func (t *Tx) InsertInsight(ctx context.Context, in *Insight) error {
	if in == nil {
		return errors.New("insight is nil")
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now().UTC()
	}
	if _, err := t.tx.ExecContext(
		ctx,
		`INSERT INTO insights (`+insightColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID,
		in.OrgID,
		nullableString(in.PlayerID),
		nullableString(in.TeamID),
		string(in.Category),
		in.Title,
		in.Description,
		nullableString(in.RecommendedAction),
		nullableString(string(in.Severity)),
		in.SourceArtifactID,
		in.DraftID,
		in.ClaimID,
		in.Confidence,
		in.CoachID,
		formatTime(in.CreatedAt),
	); err != nil {
		return fmt.Errorf("insert insight: %w", err)
	}
	return nil
}

// InsightForDraft returns the insight written for a draft, or nil.
func (s *Store) InsightForDraft(ctx context.Context, draftID string) (*Insight, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+insightColumns+` FROM insights WHERE draft_id = ?`, draftID)
	insight, err := scanInsight(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get insight: %w", err)
	}
	return insight, nil
}

// InsightsForPlayer returns a player's permanent insights, newest first.
func (s *Store) InsightsForPlayer(ctx context.Context, orgID, playerID string) ([]*Insight, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+insightColumns+` FROM insights WHERE org_id = ? AND player_id = ? ORDER BY created_at DESC`,
		orgID, playerID)
	if err != nil {
		return nil, fmt.Errorf("list insights: %w", err)
	}
	defer rows.Close()

	var insights []*Insight
	for rows.Next() {
		insight, err := scanInsight(rows)
		if err != nil {
			return nil, err
		}
		insights = append(insights, insight)
	}
	return insights, rows.Err()
}

// CountInsights returns how many permanent insights exist for a draft.
func (s *Store) CountInsights(ctx context.Context, draftID string) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ensureContext(ctx), `SELECT COUNT(1) FROM insights WHERE draft_id = ?`, draftID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count insights: %w", err)
	}
	return count, nil
}
