package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	dataexport "github.com/folio-org/mod-data-export-spring-sub001"
	"github.com/folio-org/mod-data-export-spring-sub001/id"
	"github.com/folio-org/mod-data-export-spring-sub001/trigger"

	goredis "github.com/redis/go-redis/v9"
)

// RegisterTriggers persists a set of new triggers.
func (s *Store) RegisterTriggers(ctx context.Context, triggers []*trigger.Trigger) error {
	for _, t := range triggers {
		exists, err := s.client.Exists(ctx, triggerKey(t.Key.String())).Result()
		if err != nil {
			return fmt.Errorf("dataexport/redis: register check: %w", err)
		}
		if exists > 0 {
			return fmt.Errorf("%w: %s", dataexport.ErrDuplicateTrigger, t.Key)
		}
	}
	for _, t := range triggers {
		if err := s.writeTrigger(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

// writeTrigger stores the trigger entity and keeps indexes in sync.
func (s *Store) writeTrigger(ctx context.Context, t *trigger.Trigger) error {
	key := t.Key.String()
	if err := s.setEntity(ctx, triggerKey(key), t); err != nil {
		return fmt.Errorf("dataexport/redis: write trigger: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, identKey(t.Key.Identity.String()), key)
	pipe.SAdd(ctx, groupKey(t.Key.Group), key)
	if t.Enabled && t.NextRunAt != nil {
		pipe.ZAdd(ctx, dueKey, goredis.Z{
			Score:  float64(t.NextRunAt.UnixMilli()),
			Member: key,
		})
	} else {
		pipe.ZRem(ctx, dueKey, key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("dataexport/redis: write trigger indexes: %w", err)
	}
	return nil
}

// TriggerExists reports whether any trigger is registered under the identity.
func (s *Store) TriggerExists(ctx context.Context, ident trigger.Identity) (bool, error) {
	n, err := s.client.SCard(ctx, identKey(ident.String())).Result()
	if err != nil {
		return false, fmt.Errorf("dataexport/redis: trigger exists: %w", err)
	}
	return n > 0, nil
}

// GetTriggers returns all triggers registered under the identity.
func (s *Store) GetTriggers(ctx context.Context, ident trigger.Identity) ([]*trigger.Trigger, error) {
	keys, err := s.client.SMembers(ctx, identKey(ident.String())).Result()
	if err != nil {
		return nil, fmt.Errorf("dataexport/redis: get triggers: %w", err)
	}

	triggers := make([]*trigger.Trigger, 0, len(keys))
	for _, key := range keys {
		var t trigger.Trigger
		if getErr := s.getEntity(ctx, triggerKey(key), &t); getErr != nil {
			if isRedisNil(getErr) {
				continue
			}
			return nil, fmt.Errorf("dataexport/redis: get trigger %s: %w", key, getErr)
		}
		triggers = append(triggers, &t)
	}
	return triggers, nil
}

// ReplaceTriggers replaces the triggers registered under the identity.
func (s *Store) ReplaceTriggers(ctx context.Context, ident trigger.Identity, triggers []*trigger.Trigger) error {
	if _, err := s.DeleteTriggers(ctx, ident); err != nil {
		return err
	}
	for _, t := range triggers {
		if err := s.writeTrigger(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

// DeleteTriggers removes every trigger under the identity.
func (s *Store) DeleteTriggers(ctx context.Context, ident trigger.Identity) (int, error) {
	keys, err := s.client.SMembers(ctx, identKey(ident.String())).Result()
	if err != nil {
		return 0, fmt.Errorf("dataexport/redis: delete triggers: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	pipe := s.client.TxPipeline()
	for _, key := range keys {
		pipe.Del(ctx, triggerKey(key))
		pipe.Del(ctx, fireLockKey(key))
		pipe.SRem(ctx, groupKey(ident.Group), key)
		pipe.ZRem(ctx, dueKey, key)
	}
	pipe.Del(ctx, identKey(ident.String()))
	if _, err = pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("dataexport/redis: delete trigger indexes: %w", err)
	}
	return len(keys), nil
}

// DeleteGroup removes every trigger in a group.
func (s *Store) DeleteGroup(ctx context.Context, group string) (int, error) {
	keys, err := s.client.SMembers(ctx, groupKey(group)).Result()
	if err != nil {
		return 0, fmt.Errorf("dataexport/redis: delete group: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	pipe := s.client.TxPipeline()
	for _, key := range keys {
		var t trigger.Trigger
		if getErr := s.getEntity(ctx, triggerKey(key), &t); getErr == nil {
			pipe.Del(ctx, identKey(t.Key.Identity.String()))
		}
		pipe.Del(ctx, triggerKey(key))
		pipe.Del(ctx, fireLockKey(key))
		pipe.ZRem(ctx, dueKey, key)
	}
	pipe.Del(ctx, groupKey(group))
	if _, err = pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("dataexport/redis: delete group indexes: %w", err)
	}
	return len(keys), nil
}

// ListDueTriggers returns enabled triggers whose next run is at or before
// now, in due order.
func (s *Store) ListDueTriggers(ctx context.Context, now time.Time, limit int) ([]*trigger.Trigger, error) {
	rng := &goredis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}
	if limit > 0 {
		rng.Count = int64(limit)
	}

	keys, err := s.client.ZRangeByScore(ctx, dueKey, rng).Result()
	if err != nil {
		return nil, fmt.Errorf("dataexport/redis: list due triggers: %w", err)
	}

	triggers := make([]*trigger.Trigger, 0, len(keys))
	for _, key := range keys {
		var t trigger.Trigger
		if getErr := s.getEntity(ctx, triggerKey(key), &t); getErr != nil {
			if isRedisNil(getErr) {
				// Stale index entry, drop it.
				s.client.ZRem(ctx, dueKey, key)
				continue
			}
			return nil, fmt.Errorf("dataexport/redis: get due trigger %s: %w", key, getErr)
		}
		if !t.Enabled {
			continue
		}
		triggers = append(triggers, &t)
	}
	return triggers, nil
}

// AcquireFireLock attempts to acquire the fire lock using SET NX with TTL.
func (s *Store) AcquireFireLock(ctx context.Context, key trigger.Key, workerID id.WorkerID, ttl time.Duration) (bool, error) {
	exists, err := s.client.Exists(ctx, triggerKey(key.String())).Result()
	if err != nil {
		return false, fmt.Errorf("dataexport/redis: acquire fire lock exists: %w", err)
	}
	if exists == 0 {
		return false, fmt.Errorf("%w: %s", dataexport.ErrTriggerNotFound, key)
	}

	wID := workerID.String()
	ok, err := s.client.SetNX(ctx, fireLockKey(key.String()), wID, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dataexport/redis: acquire fire lock setnx: %w", err)
	}
	if ok {
		return true, nil
	}

	// Re-acquire when we already hold it.
	current, err := s.client.Get(ctx, fireLockKey(key.String())).Result()
	if err != nil && !isRedisNil(err) {
		return false, fmt.Errorf("dataexport/redis: acquire fire lock get: %w", err)
	}
	if current == wID {
		if eErr := s.client.Expire(ctx, fireLockKey(key.String()), ttl).Err(); eErr != nil {
			s.logger.Warn("failed to extend fire lock", "key", key.String(), "error", eErr)
		}
		return true, nil
	}
	return false, nil
}

// ReleaseFireLock releases the fire lock if this worker holds it.
func (s *Store) ReleaseFireLock(ctx context.Context, key trigger.Key, workerID id.WorkerID) error {
	current, err := s.client.Get(ctx, fireLockKey(key.String())).Result()
	if err != nil {
		if isRedisNil(err) {
			return nil
		}
		return fmt.Errorf("dataexport/redis: release fire lock get: %w", err)
	}
	if current != workerID.String() {
		return nil
	}
	if err = s.client.Del(ctx, fireLockKey(key.String())).Err(); err != nil {
		return fmt.Errorf("dataexport/redis: release fire lock del: %w", err)
	}
	return nil
}

// UpdateTriggerLastRun records when a concrete trigger last fired.
func (s *Store) UpdateTriggerLastRun(ctx context.Context, key trigger.Key, at time.Time) error {
	var t trigger.Trigger
	if err := s.getEntity(ctx, triggerKey(key.String()), &t); err != nil {
		if isRedisNil(err) {
			return fmt.Errorf("%w: %s", dataexport.ErrTriggerNotFound, key)
		}
		return fmt.Errorf("dataexport/redis: update last run get: %w", err)
	}
	at = at.UTC()
	t.LastRunAt = &at
	t.Touch()
	return s.writeTrigger(ctx, &t)
}

// UpdateTrigger updates an existing trigger.
func (s *Store) UpdateTrigger(ctx context.Context, t *trigger.Trigger) error {
	exists, err := s.client.Exists(ctx, triggerKey(t.Key.String())).Result()
	if err != nil {
		return fmt.Errorf("dataexport/redis: update trigger exists: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: %s", dataexport.ErrTriggerNotFound, t.Key)
	}
	t.Touch()
	return s.writeTrigger(ctx, t)
}
