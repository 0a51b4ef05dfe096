package store

import (
	"context"
	"fmt"
	"time"
)

func rollbackCase() (string, []any) {
	clause := "CASE status"
	args := make([]any, 0, len(stageRollbackTransitions)*2)
	for _, tr := range stageRollbackTransitions {
		clause += " WHEN ? THEN ?"
		args = append(args, string(tr.from), string(tr.to))
	}
	clause += " ELSE status END"
	return clause, args
}

func inFlightStatuses() []Status {
	statuses := make([]Status, 0, len(stageRollbackTransitions))
	for _, tr := range stageRollbackTransitions {
		statuses = append(statuses, tr.from)
	}
	return statuses
}

// ResetStuckProcessing returns every in-flight artifact to the start of its
// current stage. The daemon calls it on startup.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	caseClause, args := rollbackCase()
	inFlight := inFlightStatuses()
	args = append(args, formatTime(time.Now()))
	args = append(args, statusArgs(inFlight)...)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE artifacts SET status = `+caseClause+`, last_heartbeat = NULL, updated_at = ?
         WHERE status IN (`+makePlaceholders(len(inFlight))+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck artifacts: %w", err)
	}
	return res.RowsAffected()
}

// UpdateHeartbeat updates the last heartbeat timestamp for an in-flight artifact.
func (s *Store) UpdateHeartbeat(ctx context.Context, id string) error {
	now := formatTime(time.Now())
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE artifacts SET last_heartbeat = ?, updated_at = ? WHERE id = ?`,
		now,
		now,
		id,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// ReclaimStaleProcessing returns artifacts whose heartbeat expired to the
// start of their current stage.
func (s *Store) ReclaimStaleProcessing(ctx context.Context, cutoff time.Time) (int64, error) {
	caseClause, args := rollbackCase()
	inFlight := inFlightStatuses()
	args = append(args, formatTime(time.Now()))
	args = append(args, statusArgs(inFlight)...)
	args = append(args, formatTime(cutoff))
	res, err := s.execWithRetry(
		ctx,
		`UPDATE artifacts SET status = `+caseClause+`, last_heartbeat = NULL, updated_at = ?
         WHERE status IN (`+makePlaceholders(len(inFlight))+`)
           AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale artifacts: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed moves failed artifacts back to the stage they failed in with a
// fresh retry budget. With no ids every failed artifact is retried.
func (s *Store) RetryFailed(ctx context.Context, ids ...string) (int64, error) {
	query := `UPDATE artifacts
        SET status = COALESCE(resume_status, CASE media_kind WHEN 'audio' THEN ? ELSE ? END),
            attempts = 0, halted = 0, error_message = NULL, resume_status = NULL, updated_at = ?
        WHERE status = ?`
	args := []any{string(StatusReceived), string(StatusTranscribed), formatTime(time.Now()), string(StatusFailed)}
	if len(ids) > 0 {
		query += ` AND id IN (` + makePlaceholders(len(ids)) + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry failed artifacts: %w", err)
	}
	return res.RowsAffected()
}

// ReleaseHalted clears the halt flag so parked artifacts are picked up again.
// With no statuses every halted artifact is released.
func (s *Store) ReleaseHalted(ctx context.Context, statuses ...Status) (int64, error) {
	query := `UPDATE artifacts SET halted = 0, error_message = NULL, updated_at = ? WHERE halted = 1`
	args := []any{formatTime(time.Now())}
	if len(statuses) > 0 {
		query += ` AND status IN (` + makePlaceholders(len(statuses)) + `)`
		args = append(args, statusArgs(statuses)...)
	}
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("release halted artifacts: %w", err)
	}
	return res.RowsAffected()
}
