package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const artifactColumns = "id, org_id, coach_id, source_channel, media_kind, audio_path, transcript, status, attempts, resume_status, halted, error_message, created_at, updated_at, last_heartbeat"

func scanArtifact(scanner interface{ Scan(dest ...any) error }) (*Artifact, error) {
	var (
		a                Artifact
		mediaKind        string
		status           string
		audioPath        sql.NullString
		transcript       sql.NullString
		resumeStatus     sql.NullString
		halted           int
		errorMessage     sql.NullString
		createdRaw       string
		updatedRaw       string
		lastHeartbeatRaw sql.NullString
	)
	if err := scanner.Scan(
		&a.ID,
		&a.OrgID,
		&a.CoachID,
		&a.SourceChannel,
		&mediaKind,
		&audioPath,
		&transcript,
		&status,
		&a.Attempts,
		&resumeStatus,
		&halted,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
		&lastHeartbeatRaw,
	); err != nil {
		return nil, err
	}
	a.MediaKind = MediaKind(mediaKind)
	a.AudioPath = audioPath.String
	a.Transcript = transcript.String
	a.Status = Status(status)
	a.ResumeStatus = Status(resumeStatus.String)
	a.Halted = halted != 0
	a.ErrorMessage = errorMessage.String
	if created, err := parseTimeString(createdRaw); err == nil {
		a.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		a.UpdatedAt = updated
	}
	a.LastHeartbeat = parseNullTime(lastHeartbeatRaw)
	return &a, nil
}

// NewArtifact records a submission. Audio starts at received; text notes
// skip transcription and start at transcribed.
func (s *Store) NewArtifact(ctx context.Context, in ArtifactInput) (*Artifact, error) {
	in.OrgID = strings.TrimSpace(in.OrgID)
	in.CoachID = strings.TrimSpace(in.CoachID)
	in.SourceChannel = strings.TrimSpace(in.SourceChannel)
	if in.OrgID == "" || in.CoachID == "" {
		return nil, errors.New("artifact requires org and coach")
	}
	if in.SourceChannel == "" {
		in.SourceChannel = "api"
	}

	status := StatusTranscribed
	switch in.MediaKind {
	case MediaAudio:
		if strings.TrimSpace(in.AudioPath) == "" {
			return nil, errors.New("audio artifact requires an audio path")
		}
		status = StatusReceived
	case MediaText:
	default:
		return nil, fmt.Errorf("unknown media kind %q", in.MediaKind)
	}

	now := formatTime(time.Now())
	id := uuid.NewString()
	if _, err := s.execWithRetry(
		ctx,
		`INSERT INTO artifacts (
            id, org_id, coach_id, source_channel, media_kind, audio_path, transcript,
            status, attempts, halted, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, 0, ?, ?)`,
		id,
		in.OrgID,
		in.CoachID,
		in.SourceChannel,
		string(in.MediaKind),
		nullableString(in.AudioPath),
		nullableString(in.Transcript),
		string(status),
		now,
		now,
	); err != nil {
		return nil, fmt.Errorf("insert artifact: %w", err)
	}
	return s.GetArtifact(ctx, id)
}

// GetArtifact fetches an artifact by identifier. Missing artifacts return nil, nil.
func (s *Store) GetArtifact(ctx context.Context, id string) (*Artifact, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+artifactColumns+` FROM artifacts WHERE id = ?`, id)
	artifact, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get artifact: %w", err)
	}
	return artifact, nil
}

// UpdateArtifact persists the mutable pipeline fields of an artifact.
func (s *Store) UpdateArtifact(ctx context.Context, a *Artifact) error {
	if a == nil {
		return errors.New("artifact is nil")
	}
	a.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE artifacts
         SET audio_path = ?, transcript = ?, status = ?, attempts = ?, resume_status = ?,
             halted = ?, error_message = ?, updated_at = ?, last_heartbeat = ?
         WHERE id = ?`,
		nullableString(a.AudioPath),
		nullableString(a.Transcript),
		string(a.Status),
		a.Attempts,
		nullableString(string(a.ResumeStatus)),
		boolToInt(a.Halted),
		nullableString(a.ErrorMessage),
		formatTime(a.UpdatedAt),
		nullableTime(a.LastHeartbeat),
		a.ID,
	); err != nil {
		return fmt.Errorf("update artifact: %w", err)
	}
	return nil
}

// ListArtifacts returns artifacts matching the filter, newest first.
func (s *Store) ListArtifacts(ctx context.Context, filter ArtifactFilter) ([]*Artifact, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.OrgID != "" {
		clauses = append(clauses, "org_id = ?")
		args = append(args, filter.OrgID)
	}
	if filter.CoachID != "" {
		clauses = append(clauses, "coach_id = ?")
		args = append(args, filter.CoachID)
	}
	if len(filter.Statuses) > 0 {
		clauses = append(clauses, "status IN ("+makePlaceholders(len(filter.Statuses))+")")
		args = append(args, statusArgs(filter.Statuses)...)
	}
	query := `SELECT ` + artifactColumns + ` FROM artifacts`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []*Artifact
	for rows.Next() {
		artifact, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, artifact)
	}
	return artifacts, rows.Err()
}

// NextForStatuses returns the oldest runnable artifact in any of the provided
// statuses. Halted artifacts are skipped.
func (s *Store) NextForStatuses(ctx context.Context, statuses ...Status) (*Artifact, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	query := `SELECT ` + artifactColumns + ` FROM artifacts
        WHERE status IN (` + makePlaceholders(len(statuses)) + `) AND halted = 0
        ORDER BY created_at LIMIT 1`
	row := s.db.QueryRowContext(ensureContext(ctx), query, statusArgs(statuses)...)
	artifact, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return artifact, nil
}

// ArtifactStats returns a count of artifacts grouped by status.
func (s *Store) ArtifactStats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM artifacts GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("artifact stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[Status(status)] = count
	}
	return stats, rows.Err()
}
