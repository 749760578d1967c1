package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	dataexport "github.com/folio-org/mod-data-export-spring-sub001"
	"github.com/folio-org/mod-data-export-spring-sub001/cluster"
	"github.com/folio-org/mod-data-export-spring-sub001/id"
)

// RegisterWorker adds a new worker to the cluster registry.
func (s *Store) RegisterWorker(ctx context.Context, w *cluster.Worker) error {
	if err := s.setEntity(ctx, workerKey(w.ID.String()), w); err != nil {
		return fmt.Errorf("dataexport/redis: register worker: %w", err)
	}
	if err := s.client.SAdd(ctx, workerIDsKey, w.ID.String()).Err(); err != nil {
		return fmt.Errorf("dataexport/redis: register worker index: %w", err)
	}
	return nil
}

// DeregisterWorker removes a worker from the cluster registry.
func (s *Store) DeregisterWorker(ctx context.Context, workerID id.WorkerID) error {
	wID := workerID.String()

	n, err := s.client.Del(ctx, workerKey(wID)).Result()
	if err != nil {
		return fmt.Errorf("dataexport/redis: deregister worker: %w", err)
	}
	if n == 0 {
		return dataexport.ErrWorkerNotFound
	}
	if err = s.client.SRem(ctx, workerIDsKey, wID).Err(); err != nil {
		return fmt.Errorf("dataexport/redis: deregister worker index: %w", err)
	}

	// Give up leadership if this worker held it.
	current, err := s.client.Get(ctx, leaderKey).Result()
	if err == nil && current == wID {
		s.client.Del(ctx, leaderKey)
	}
	return nil
}

// HeartbeatWorker updates the last-seen timestamp for a worker.
func (s *Store) HeartbeatWorker(ctx context.Context, workerID id.WorkerID) error {
	w, err := s.getWorker(ctx, workerID.String())
	if err != nil {
		return err
	}
	w.LastSeen = time.Now().UTC()
	if err = s.setEntity(ctx, workerKey(workerID.String()), w); err != nil {
		return fmt.Errorf("dataexport/redis: heartbeat worker: %w", err)
	}
	return nil
}

// ListWorkers returns all registered workers.
func (s *Store) ListWorkers(ctx context.Context) ([]*cluster.Worker, error) {
	ids, err := s.client.SMembers(ctx, workerIDsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("dataexport/redis: list workers: %w", err)
	}

	workers := make([]*cluster.Worker, 0, len(ids))
	for _, wID := range ids {
		w, getErr := s.getWorker(ctx, wID)
		if getErr != nil {
			continue
		}
		workers = append(workers, w)
	}
	return workers, nil
}

// ReapDeadWorkers returns workers whose last-seen timestamp is older than
// the given threshold.
func (s *Store) ReapDeadWorkers(ctx context.Context, threshold time.Duration) ([]*cluster.Worker, error) {
	all, err := s.ListWorkers(ctx)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().UTC().Add(-threshold)
	var dead []*cluster.Worker
	for _, w := range all {
		if w.LastSeen.Before(cutoff) {
			w.State = cluster.WorkerDead
			dead = append(dead, w)
		}
	}
	return dead, nil
}

// AcquireLeadership attempts to become the cluster leader using SET NX
// with TTL.
func (s *Store) AcquireLeadership(ctx context.Context, workerID id.WorkerID, ttl time.Duration) (bool, error) {
	wID := workerID.String()

	exists, err := s.client.Exists(ctx, workerKey(wID)).Result()
	if err != nil {
		return false, fmt.Errorf("dataexport/redis: acquire leadership exists: %w", err)
	}
	if exists == 0 {
		return false, dataexport.ErrWorkerNotFound
	}

	ok, err := s.client.SetNX(ctx, leaderKey, wID, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dataexport/redis: acquire leadership setnx: %w", err)
	}
	if ok {
		s.markLeader(ctx, wID, ttl)
		return true, nil
	}

	// Check if we already hold it.
	current, err := s.client.Get(ctx, leaderKey).Result()
	if err != nil && !isRedisNil(err) {
		return false, fmt.Errorf("dataexport/redis: acquire leadership get: %w", err)
	}
	if current == wID {
		if eErr := s.client.Expire(ctx, leaderKey, ttl).Err(); eErr != nil {
			s.logger.Warn("failed to extend leader key", "error", eErr)
		}
		s.markLeader(ctx, wID, ttl)
		return true, nil
	}

	return false, nil
}

// RenewLeadership extends the leader's hold.
func (s *Store) RenewLeadership(ctx context.Context, workerID id.WorkerID, ttl time.Duration) (bool, error) {
	wID := workerID.String()

	current, err := s.client.Get(ctx, leaderKey).Result()
	if err != nil {
		if isRedisNil(err) {
			return false, nil // no leader
		}
		return false, fmt.Errorf("dataexport/redis: renew leadership get: %w", err)
	}
	if current != wID {
		return false, nil
	}
	if err = s.client.Expire(ctx, leaderKey, ttl).Err(); err != nil {
		return false, fmt.Errorf("dataexport/redis: renew leadership expire: %w", err)
	}
	s.markLeader(ctx, wID, ttl)
	return true, nil
}

// GetLeader returns the current cluster leader, or nil if there is no leader.
func (s *Store) GetLeader(ctx context.Context) (*cluster.Worker, error) {
	wID, err := s.client.Get(ctx, leaderKey).Result()
	if err != nil {
		if isRedisNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("dataexport/redis: get leader: %w", err)
	}

	w, err := s.getWorker(ctx, wID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return w, nil
}

// markLeader updates the leader fields on the worker entity. Failures are
// logged, not returned: the leader key is the source of truth.
func (s *Store) markLeader(ctx context.Context, wID string, ttl time.Duration) {
	w, err := s.getWorker(ctx, wID)
	if err != nil {
		s.logger.Warn("failed to load leader worker", "worker_id", wID, "error", err)
		return
	}
	until := time.Now().UTC().Add(ttl)
	w.IsLeader = true
	w.LeaderUntil = &until
	if err = s.setEntity(ctx, workerKey(wID), w); err != nil {
		s.logger.Warn("failed to update leader fields", "worker_id", wID, "error", err)
	}
}

func (s *Store) getWorker(ctx context.Context, wID string) (*cluster.Worker, error) {
	var w cluster.Worker
	if err := s.getEntity(ctx, workerKey(wID), &w); err != nil {
		if isRedisNil(err) {
			return nil, dataexport.ErrWorkerNotFound
		}
		return nil, fmt.Errorf("dataexport/redis: get worker %s: %w", wID, err)
	}
	return &w, nil
}

// isNotFound reports whether err is the worker-not-found sentinel.
func isNotFound(err error) bool {
	return errors.Is(err, dataexport.ErrWorkerNotFound)
}
