package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	dataexport "github.com/folio-org/mod-data-export-spring-sub001"
	"github.com/folio-org/mod-data-export-spring-sub001/export"
	"github.com/folio-org/mod-data-export-spring-sub001/id"
	"github.com/folio-org/mod-data-export-spring-sub001/schedule"
	"github.com/folio-org/mod-data-export-spring-sub001/trigger"
)

const triggerColumns = `
	group_name, name, weekday, tenant, export_type, config_id, schedule,
	last_run_at, next_run_at, locked_by, locked_until,
	enabled, created_at, updated_at`

// RegisterTriggers persists a set of new triggers inside one transaction.
func (s *Store) RegisterTriggers(ctx context.Context, triggers []*trigger.Trigger) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("dataexport/postgres: begin register triggers: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, t := range triggers {
		if err = insertTrigger(ctx, tx, t); err != nil {
			return err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("dataexport/postgres: commit register triggers: %w", err)
	}
	return nil
}

func insertTrigger(ctx context.Context, tx pgx.Tx, t *trigger.Trigger) error {
	sched, err := json.Marshal(t.Schedule)
	if err != nil {
		return fmt.Errorf("dataexport/postgres: encode schedule: %w", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO dataexport_triggers (`+triggerColumns+`
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		t.Key.Group, t.Key.Name, string(t.Key.Weekday),
		t.Tenant, string(t.Type), t.ConfigID, sched,
		t.LastRunAt, t.NextRunAt, nilIfEmpty(t.LockedBy), t.LockedUntil,
		t.Enabled, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("%w: %s", dataexport.ErrDuplicateTrigger, t.Key)
		}
		return fmt.Errorf("dataexport/postgres: register trigger: %w", err)
	}
	return nil
}

// TriggerExists reports whether any trigger is registered under the identity.
func (s *Store) TriggerExists(ctx context.Context, ident trigger.Identity) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM dataexport_triggers
			WHERE group_name = $1 AND name = $2)`,
		ident.Group, ident.Name,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("dataexport/postgres: trigger exists: %w", err)
	}
	return exists, nil
}

// GetTriggers returns all triggers registered under the identity.
func (s *Store) GetTriggers(ctx context.Context, ident trigger.Identity) ([]*trigger.Trigger, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+triggerColumns+`
		FROM dataexport_triggers
		WHERE group_name = $1 AND name = $2
		ORDER BY weekday ASC`,
		ident.Group, ident.Name,
	)
	if err != nil {
		return nil, fmt.Errorf("dataexport/postgres: get triggers: %w", err)
	}
	defer rows.Close()

	return collectTriggers(rows)
}

// ReplaceTriggers atomically replaces the triggers under the identity.
func (s *Store) ReplaceTriggers(ctx context.Context, ident trigger.Identity, triggers []*trigger.Trigger) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("dataexport/postgres: begin replace triggers: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`DELETE FROM dataexport_triggers WHERE group_name = $1 AND name = $2`,
		ident.Group, ident.Name,
	)
	if err != nil {
		return fmt.Errorf("dataexport/postgres: clear triggers: %w", err)
	}

	for _, t := range triggers {
		if err = insertTrigger(ctx, tx, t); err != nil {
			return err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("dataexport/postgres: commit replace triggers: %w", err)
	}
	return nil
}

// DeleteTriggers removes every trigger under the identity.
func (s *Store) DeleteTriggers(ctx context.Context, ident trigger.Identity) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM dataexport_triggers WHERE group_name = $1 AND name = $2`,
		ident.Group, ident.Name,
	)
	if err != nil {
		return 0, fmt.Errorf("dataexport/postgres: delete triggers: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// DeleteGroup removes every trigger in a group.
func (s *Store) DeleteGroup(ctx context.Context, group string) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM dataexport_triggers WHERE group_name = $1`,
		group,
	)
	if err != nil {
		return 0, fmt.Errorf("dataexport/postgres: delete group: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ListDueTriggers returns enabled triggers whose next run is at or before now.
func (s *Store) ListDueTriggers(ctx context.Context, now time.Time, limit int) ([]*trigger.Trigger, error) {
	q := `
		SELECT ` + triggerColumns + `
		FROM dataexport_triggers
		WHERE enabled = TRUE AND next_run_at IS NOT NULL AND next_run_at <= $1
		ORDER BY next_run_at ASC`
	args := []any{now}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("dataexport/postgres: list due triggers: %w", err)
	}
	defer rows.Close()

	return collectTriggers(rows)
}

// AcquireFireLock attempts to acquire the distributed fire lock for one
// concrete trigger. A single conditional UPDATE claims the lock when no
// lock is held, the previous lock has expired, or we already hold it.
func (s *Store) AcquireFireLock(ctx context.Context, key trigger.Key, workerID id.WorkerID, ttl time.Duration) (bool, error) {
	now := time.Now().UTC()
	until := now.Add(ttl)
	wID := workerID.String()

	tag, err := s.pool.Exec(ctx, `
		UPDATE dataexport_triggers
		SET locked_by = $4, locked_until = $5, updated_at = NOW()
		WHERE group_name = $1 AND name = $2 AND weekday = $3
		  AND (locked_by IS NULL OR locked_until < $6 OR locked_by = $4)`,
		key.Group, key.Name, string(key.Weekday), wID, until, now,
	)
	if err != nil {
		return false, fmt.Errorf("dataexport/postgres: acquire fire lock: %w", err)
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		existErr := s.pool.QueryRow(ctx, `
			SELECT EXISTS(
				SELECT 1 FROM dataexport_triggers
				WHERE group_name = $1 AND name = $2 AND weekday = $3)`,
			key.Group, key.Name, string(key.Weekday),
		).Scan(&exists)
		if existErr != nil {
			return false, fmt.Errorf("dataexport/postgres: check trigger exists: %w", existErr)
		}
		if !exists {
			return false, fmt.Errorf("%w: %s", dataexport.ErrTriggerNotFound, key)
		}
		// Trigger exists but the lock is held by another worker.
		return false, nil
	}

	return true, nil
}

// ReleaseFireLock releases the fire lock for a concrete trigger.
func (s *Store) ReleaseFireLock(ctx context.Context, key trigger.Key, workerID id.WorkerID) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE dataexport_triggers
		SET locked_by = NULL, locked_until = NULL, updated_at = NOW()
		WHERE group_name = $1 AND name = $2 AND weekday = $3 AND locked_by = $4`,
		key.Group, key.Name, string(key.Weekday), workerID.String(),
	)
	if err != nil {
		return fmt.Errorf("dataexport/postgres: release fire lock: %w", err)
	}
	return nil
}

// UpdateTriggerLastRun records when a concrete trigger last fired.
func (s *Store) UpdateTriggerLastRun(ctx context.Context, key trigger.Key, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE dataexport_triggers
		SET last_run_at = $4, updated_at = NOW()
		WHERE group_name = $1 AND name = $2 AND weekday = $3`,
		key.Group, key.Name, string(key.Weekday), at,
	)
	if err != nil {
		return fmt.Errorf("dataexport/postgres: update trigger last run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", dataexport.ErrTriggerNotFound, key)
	}
	return nil
}

// UpdateTrigger updates a trigger (NextRunAt, Enabled, etc.).
func (s *Store) UpdateTrigger(ctx context.Context, t *trigger.Trigger) error {
	sched, err := json.Marshal(t.Schedule)
	if err != nil {
		return fmt.Errorf("dataexport/postgres: encode schedule: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE dataexport_triggers SET
			tenant = $4, export_type = $5, config_id = $6, schedule = $7,
			last_run_at = $8, next_run_at = $9,
			locked_by = $10, locked_until = $11,
			enabled = $12, updated_at = NOW()
		WHERE group_name = $1 AND name = $2 AND weekday = $3`,
		t.Key.Group, t.Key.Name, string(t.Key.Weekday),
		t.Tenant, string(t.Type), t.ConfigID, sched,
		t.LastRunAt, t.NextRunAt,
		nilIfEmpty(t.LockedBy), t.LockedUntil,
		t.Enabled,
	)
	if err != nil {
		return fmt.Errorf("dataexport/postgres: update trigger: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", dataexport.ErrTriggerNotFound, t.Key)
	}
	return nil
}

func collectTriggers(rows pgx.Rows) ([]*trigger.Trigger, error) {
	var triggers []*trigger.Trigger
	for rows.Next() {
		t, scanErr := scanTrigger(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("dataexport/postgres: scan trigger row: %w", scanErr)
		}
		triggers = append(triggers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dataexport/postgres: iterate trigger rows: %w", err)
	}
	return triggers, nil
}

// scanTrigger scans a single trigger row.
func scanTrigger(row pgx.Row) (*trigger.Trigger, error) {
	var (
		t        trigger.Trigger
		weekday  string
		exType   string
		sched    []byte
		lockedBy *string
	)
	err := row.Scan(
		&t.Key.Group, &t.Key.Name, &weekday,
		&t.Tenant, &exType, &t.ConfigID, &sched,
		&t.LastRunAt, &t.NextRunAt, &lockedBy, &t.LockedUntil,
		&t.Enabled, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Key.Weekday = schedule.Weekday(weekday)
	t.Type = export.Type(exType)
	if err = json.Unmarshal(sched, &t.Schedule); err != nil {
		return nil, fmt.Errorf("dataexport/postgres: decode schedule: %w", err)
	}
	if lockedBy != nil {
		t.LockedBy = *lockedBy
	}
	return &t, nil
}
