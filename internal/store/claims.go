package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const claimColumns = "id, artifact_id, sequence, topic, title, snippet, recommended_action, audio_offset_ms, mentions_json, extraction_confidence, severity, sentiment, player_id, team_id, assignee_id, resolutions_json, resolution_confidence, status, status_reason, merged_into, created_at, updated_at"

func scanClaim(scanner interface{ Scan(dest ...any) error }) (*Claim, error) {
	var (
		c                 Claim
		topic             string
		recommendedAction sql.NullString
		audioOffset       sql.NullInt64
		mentionsJSON      string
		severity          sql.NullString
		sentiment         sql.NullString
		playerID          sql.NullString
		teamID            sql.NullString
		assigneeID        sql.NullString
		resolutionsJSON   sql.NullString
		status            string
		statusReason      sql.NullString
		mergedInto        sql.NullString
		createdRaw        string
		updatedRaw        string
	)
	if err := scanner.Scan(
		&c.ID,
		&c.ArtifactID,
		&c.Sequence,
		&topic,
		&c.Title,
		&c.Snippet,
		&recommendedAction,
		&audioOffset,
		&mentionsJSON,
		&c.ExtractionConfidence,
		&severity,
		&sentiment,
		&playerID,
		&teamID,
		&assigneeID,
		&resolutionsJSON,
		&c.ResolutionConfidence,
		&status,
		&statusReason,
		&mergedInto,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	c.Topic = Topic(topic)
	c.RecommendedAction = recommendedAction.String
	c.AudioOffsetMS = int64Ptr(audioOffset)
	c.Mentions = decodeStrings(mentionsJSON)
	c.Severity = Severity(severity.String)
	c.Sentiment = Sentiment(sentiment.String)
	c.PlayerID = playerID.String
	c.TeamID = teamID.String
	c.AssigneeID = assigneeID.String
	if resolutionsJSON.Valid && resolutionsJSON.String != "" {
		if err := json.Unmarshal([]byte(resolutionsJSON.String), &c.Resolutions); err != nil {
			return nil, fmt.Errorf("decode claim resolutions: %w", err)
		}
	}
	c.Status = ClaimStatus(status)
	c.StatusReason = statusReason.String
	c.MergedInto = mergedInto.String
	if created, err := parseTimeString(createdRaw); err == nil {
		c.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		c.UpdatedAt = updated
	}
	return &c, nil
}

func encodeResolutions(resolutions []MentionResolution) (any, error) {
	if len(resolutions) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(resolutions)
	if err != nil {
		return nil, fmt.Errorf("encode claim resolutions: %w", err)
	}
	return string(data), nil
}

// ReplaceClaims swaps the claims of an artifact for a fresh extraction result
// in one transaction, so a retried extraction never duplicates claims. IDs,
// sequence numbers and timestamps are assigned here.
func (s *Store) ReplaceClaims(ctx context.Context, artifactID string, claims []*Claim) error {
	ctx = ensureContext(ctx)
	return s.WithTx(ctx, func(tx *Tx) error {
		if _, err := tx.tx.ExecContext(ctx, `DELETE FROM claims WHERE artifact_id = ?`, artifactID); err != nil {
			return fmt.Errorf("clear claims: %w", err)
		}
		now := time.Now().UTC()
		for i, claim := range claims {
			if claim == nil {
				continue
			}
			claim.ID = uuid.NewString()
			claim.ArtifactID = artifactID
			claim.Sequence = i + 1
			claim.CreatedAt = now
			claim.UpdatedAt = now
			if claim.Status == "" {
				claim.Status = ClaimExtracted
			}
			if err := insertClaim(ctx, tx.tx, claim); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertClaim(ctx context.Context, q queryer, c *Claim) error {
	resolutions, err := encodeResolutions(c.Resolutions)
	if err != nil {
		return err
	}
	if _, err := q.ExecContext(
		ctx,
		`INSERT INTO claims (`+claimColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.ArtifactID,
		c.Sequence,
		string(c.Topic),
		c.Title,
		c.Snippet,
		nullableString(c.RecommendedAction),
		nullableInt64(c.AudioOffsetMS),
		encodeStrings(c.Mentions),
		c.ExtractionConfidence,
		nullableString(string(c.Severity)),
		nullableString(string(c.Sentiment)),
		nullableString(c.PlayerID),
		nullableString(c.TeamID),
		nullableString(c.AssigneeID),
		resolutions,
		c.ResolutionConfidence,
		string(c.Status),
		nullableString(c.StatusReason),
		nullableString(c.MergedInto),
		formatTime(c.CreatedAt),
		formatTime(c.UpdatedAt),
	); err != nil {
		return fmt.Errorf("insert claim: %w", err)
	}
	return nil
}

func getClaim(ctx context.Context, q queryer, id string) (*Claim, error) {
	row := q.QueryRowContext(ctx, `SELECT `+claimColumns+` FROM claims WHERE id = ?`, id)
	claim, err := scanClaim(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get claim: %w", err)
	}
	return claim, nil
}

func updateClaim(ctx context.Context, q queryer, c *Claim) error {
	if c == nil {
		return errors.New("claim is nil")
	}
	resolutions, err := encodeResolutions(c.Resolutions)
	if err != nil {
		return err
	}
	c.UpdatedAt = time.Now().UTC()
	if _, err := q.ExecContext(
		ctx,
		`UPDATE claims
         SET player_id = ?, team_id = ?, assignee_id = ?, resolutions_json = ?,
             resolution_confidence = ?, status = ?, status_reason = ?, merged_into = ?, updated_at = ?
         WHERE id = ?`,
		nullableString(c.PlayerID),
		nullableString(c.TeamID),
		nullableString(c.AssigneeID),
		resolutions,
		c.ResolutionConfidence,
		string(c.Status),
		nullableString(c.StatusReason),
		nullableString(c.MergedInto),
		formatTime(c.UpdatedAt),
		c.ID,
	); err != nil {
		return fmt.Errorf("update claim: %w", err)
	}
	return nil
}

// GetClaim fetches a claim by identifier. Missing claims return nil, nil.
func (s *Store) GetClaim(ctx context.Context, id string) (*Claim, error) {
	return getClaim(ensureContext(ctx), s.db, id)
}

// UpdateClaim persists the resolution fields and status of a claim. Extracted
// content (topic, text, mentions, extraction confidence) is never rewritten.
func (s *Store) UpdateClaim(ctx context.Context, c *Claim) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error { return updateClaim(ctx, s.db, c) })
}

// ClaimsForArtifact returns the claims of an artifact in extraction order.
func (s *Store) ClaimsForArtifact(ctx context.Context, artifactID string) ([]*Claim, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT `+claimColumns+` FROM claims WHERE artifact_id = ? ORDER BY sequence`, artifactID)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	defer rows.Close()

	var claims []*Claim
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		claims = append(claims, claim)
	}
	return claims, rows.Err()
}

// GetClaim reads a claim inside the transaction.
func (t *Tx) GetClaim(ctx context.Context, id string) (*Claim, error) {
	return getClaim(ctx, t.tx, id)
}

// UpdateClaim persists claim resolution fields inside the transaction.
func (t *Tx) UpdateClaim(ctx context.Context, c *Claim) error {
	return updateClaim(ctx, t.tx, c)
}
