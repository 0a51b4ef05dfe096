package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const modelConfigColumns = "stage, org_id, provider, model_id, max_tokens, temperature, active, updated_by, updated_at"

func scanModelConfig(scanner interface{ Scan(dest ...any) error }) (*ModelConfig, error) {
	var (
		mc         ModelConfig
		active     int
		updatedBy  sql.NullString
		updatedRaw string
	)
	if err := scanner.Scan(
		&mc.Stage,
		&mc.OrgID,
		&mc.Provider,
		&mc.ModelID,
		&mc.MaxTokens,
		&mc.Temperature,
		&active,
		&updatedBy,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	mc.Active = active != 0
	mc.UpdatedBy = updatedBy.String
	if updated, err := parseTimeString(updatedRaw); err == nil {
		mc.UpdatedAt = updated
	}
	return &mc, nil
}

func getModelConfig(ctx context.Context, q queryer, stage, orgID string) (*ModelConfig, error) {
	row := q.QueryRowContext(ctx, `SELECT `+modelConfigColumns+` FROM model_configs WHERE stage = ? AND org_id = ?`, stage, orgID)
	mc, err := scanModelConfig(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get model config: %w", err)
	}
	return mc, nil
}

func snapshotJSON(mc *ModelConfig) (any, error) {
	if mc == nil {
		return nil, nil
	}
	data, err := json.Marshal(mc)
	if err != nil {
		return nil, fmt.Errorf("encode model config snapshot: %w", err)
	}
	return string(data), nil
}

func appendConfigChange(ctx context.Context, q queryer, change *ModelConfigChange) error {
	prev, err := snapshotJSON(change.Previous)
	if err != nil {
		return err
	}
	next, err := snapshotJSON(change.Next)
	if err != nil {
		return err
	}
	res, err := q.ExecContext(
		ctx,
		`INSERT INTO model_config_changes (stage, org_id, action, previous_json, next_json, actor, reason, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		change.Stage,
		change.OrgID,
		string(change.Action),
		prev,
		next,
		change.Actor,
		nullableString(change.Reason),
		formatTime(change.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("append model config change: %w", err)
	}
	if seq, err := res.LastInsertId(); err == nil {
		change.Seq = seq
	}
	return nil
}

// GetModelConfig returns the stored configuration for stage and org (empty org
// is the platform default). Missing rows return nil, nil.
func (s *Store) GetModelConfig(ctx context.Context, stage, orgID string) (*ModelConfig, error) {
	return getModelConfig(ensureContext(ctx), s.db, stage, orgID)
}

// ListModelConfigs returns every stored configuration ordered by stage then org.
func (s *Store) ListModelConfigs(ctx context.Context) ([]*ModelConfig, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT `+modelConfigColumns+` FROM model_configs ORDER BY stage, org_id`)
	if err != nil {
		return nil, fmt.Errorf("list model configs: %w", err)
	}
	defer rows.Close()

	var configs []*ModelConfig
	for rows.Next() {
		mc, err := scanModelConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, mc)
	}
	return configs, rows.Err()
}

// UpsertModelConfig writes the configuration and its change-log entry in one
// transaction.
func (s *Store) UpsertModelConfig(ctx context.Context, mc ModelConfig, actor, reason string) (*ModelConfigChange, error) {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(actor) == "" {
		return nil, errors.New("model config change requires an actor")
	}
	var change *ModelConfigChange
	err := s.WithTx(ctx, func(tx *Tx) error {
		prev, err := getModelConfig(ctx, tx.tx, mc.Stage, mc.OrgID)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		mc.UpdatedAt = now
		mc.UpdatedBy = actor
		if _, err := tx.tx.ExecContext(
			ctx,
			`INSERT INTO model_configs (`+modelConfigColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
             ON CONFLICT (stage, org_id) DO UPDATE SET
                 provider = excluded.provider, model_id = excluded.model_id,
                 max_tokens = excluded.max_tokens, temperature = excluded.temperature,
                 active = excluded.active, updated_by = excluded.updated_by, updated_at = excluded.updated_at`,
			mc.Stage,
			mc.OrgID,
			mc.Provider,
			mc.ModelID,
			mc.MaxTokens,
			mc.Temperature,
			boolToInt(mc.Active),
			nullableString(mc.UpdatedBy),
			formatTime(now),
		); err != nil {
			return fmt.Errorf("upsert model config: %w", err)
		}
		next := mc
		change = &ModelConfigChange{
			Stage:     mc.Stage,
			OrgID:     mc.OrgID,
			Action:    ConfigUpsert,
			Previous:  prev,
			Next:      &next,
			Actor:     actor,
			Reason:    reason,
			CreatedAt: now,
		}
		return appendConfigChange(ctx, tx.tx, change)
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

// DeleteModelConfig removes a configuration and logs the removal. A missing
// row is not a write and returns nil, nil.
func (s *Store) DeleteModelConfig(ctx context.Context, stage, orgID, actor, reason string) (*ModelConfigChange, error) {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(actor) == "" {
		return nil, errors.New("model config change requires an actor")
	}
	var change *ModelConfigChange
	err := s.WithTx(ctx, func(tx *Tx) error {
		prev, err := getModelConfig(ctx, tx.tx, stage, orgID)
		if err != nil {
			return err
		}
		if prev == nil {
			return nil
		}
		if _, err := tx.tx.ExecContext(ctx, `DELETE FROM model_configs WHERE stage = ? AND org_id = ?`, stage, orgID); err != nil {
			return fmt.Errorf("delete model config: %w", err)
		}
		change = &ModelConfigChange{
			Stage:     stage,
			OrgID:     orgID,
			Action:    ConfigDelete,
			Previous:  prev,
			Actor:     actor,
			Reason:    reason,
			CreatedAt: time.Now().UTC(),
		}
		return appendConfigChange(ctx, tx.tx, change)
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

// ModelConfigHistory returns change-log entries, newest first. Empty stage
// returns every stage; orgID filters when non-empty.
func (s *Store) ModelConfigHistory(ctx context.Context, stage, orgID string, limit int) ([]*ModelConfigChange, error) {
	var (
		clauses []string
		args    []any
	)
	if stage != "" {
		clauses = append(clauses, "stage = ?")
		args = append(args, stage)
	}
	if orgID != "" {
		clauses = append(clauses, "org_id = ?")
		args = append(args, orgID)
	}
	query := `SELECT seq, stage, org_id, action, previous_json, next_json, actor, reason, created_at FROM model_config_changes`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY seq DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("model config history: %w", err)
	}
	defer rows.Close()

	var changes []*ModelConfigChange
	for rows.Next() {
		var (
			change     ModelConfigChange
			action     string
			prevJSON   sql.NullString
			nextJSON   sql.NullString
			reason     sql.NullString
			createdRaw string
		)
		if err := rows.Scan(&change.Seq, &change.Stage, &change.OrgID, &action, &prevJSON, &nextJSON, &change.Actor, &reason, &createdRaw); err != nil {
			return nil, err
		}
		change.Action = ConfigAction(action)
		change.Reason = reason.String
		if prevJSON.Valid {
			var prev ModelConfig
			if err := json.Unmarshal([]byte(prevJSON.String), &prev); err == nil {
				change.Previous = &prev
			}
		}
		if nextJSON.Valid {
			var next ModelConfig
			if err := json.Unmarshal([]byte(nextJSON.String), &next); err == nil {
				change.Next = &next
			}
		}
		if created, err := parseTimeString(createdRaw); err == nil {
			change.CreatedAt = created
		}
		changes = append(changes, &change)
	}
	return changes, rows.Err()
}
