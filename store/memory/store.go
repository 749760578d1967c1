// Package memory provides an in-memory store implementation for tests and
// single-node deployments. All state lives in maps guarded by one mutex;
// reads return copies so callers can never mutate stored state.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	dataexport "github.com/folio-org/mod-data-export-spring-sub001"
	"github.com/folio-org/mod-data-export-spring-sub001/cluster"
	"github.com/folio-org/mod-data-export-spring-sub001/id"
	"github.com/folio-org/mod-data-export-spring-sub001/schedule"
	"github.com/folio-org/mod-data-export-spring-sub001/trigger"
)

// Store is an in-memory implementation of the aggregate store.
type Store struct {
	mu sync.RWMutex

	triggers map[string]*trigger.Trigger // by Key.String()
	workers  map[string]*cluster.Worker  // by worker id

	leaderID    string
	leaderUntil time.Time

	closed bool
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		triggers: make(map[string]*trigger.Trigger),
		workers:  make(map[string]*cluster.Worker),
	}
}

// Migrate is a no-op for the memory store.
func (s *Store) Migrate(ctx context.Context) error { return nil }

// Ping reports whether the store is open.
func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return dataexport.ErrStoreClosed
	}
	return nil
}

// Close marks the store closed. Subsequent operations fail.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) checkClosed() error {
	if s.closed {
		return dataexport.ErrStoreClosed
	}
	return nil
}

// --- trigger.Store ---

func (s *Store) RegisterTriggers(ctx context.Context, triggers []*trigger.Trigger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkClosed(); err != nil {
		return err
	}
	for _, t := range triggers {
		if _, ok := s.triggers[t.Key.String()]; ok {
			return fmt.Errorf("%w: %s", dataexport.ErrDuplicateTrigger, t.Key)
		}
	}
	for _, t := range triggers {
		s.triggers[t.Key.String()] = copyTrigger(t)
	}
	return nil
}

func (s *Store) TriggerExists(ctx context.Context, ident trigger.Identity) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkClosed(); err != nil {
		return false, err
	}
	for _, t := range s.triggers {
		if t.Key.Identity == ident {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) GetTriggers(ctx context.Context, ident trigger.Identity) ([]*trigger.Trigger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkClosed(); err != nil {
		return nil, err
	}
	var out []*trigger.Trigger
	for _, t := range s.triggers {
		if t.Key.Identity == ident {
			out = append(out, copyTrigger(t))
		}
	}
	sortTriggers(out)
	return out, nil
}

func (s *Store) ReplaceTriggers(ctx context.Context, ident trigger.Identity, triggers []*trigger.Trigger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkClosed(); err != nil {
		return err
	}
	for k, t := range s.triggers {
		if t.Key.Identity == ident {
			delete(s.triggers, k)
		}
	}
	for _, t := range triggers {
		s.triggers[t.Key.String()] = copyTrigger(t)
	}
	return nil
}

func (s *Store) DeleteTriggers(ctx context.Context, ident trigger.Identity) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkClosed(); err != nil {
		return 0, err
	}
	n := 0
	for k, t := range s.triggers {
		if t.Key.Identity == ident {
			delete(s.triggers, k)
			n++
		}
	}
	return n, nil
}

func (s *Store) DeleteGroup(ctx context.Context, group string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkClosed(); err != nil {
		return 0, err
	}
	n := 0
	for k, t := range s.triggers {
		if t.Key.Group == group {
			delete(s.triggers, k)
			n++
		}
	}
	return n, nil
}

func (s *Store) ListDueTriggers(ctx context.Context, now time.Time, limit int) ([]*trigger.Trigger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkClosed(); err != nil {
		return nil, err
	}
	var out []*trigger.Trigger
	for _, t := range s.triggers {
		if !t.Enabled || t.NextRunAt == nil {
			continue
		}
		if t.NextRunAt.After(now) {
			continue
		}
		out = append(out, copyTrigger(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextRunAt.Before(*out[j].NextRunAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) AcquireFireLock(ctx context.Context, key trigger.Key, workerID id.WorkerID, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkClosed(); err != nil {
		return false, err
	}
	t, ok := s.triggers[key.String()]
	if !ok {
		return false, fmt.Errorf("%w: %s", dataexport.ErrTriggerNotFound, key)
	}
	now := time.Now().UTC()
	if t.LockedUntil != nil && t.LockedUntil.After(now) && t.LockedBy != workerID.String() {
		return false, nil
	}
	until := now.Add(ttl)
	t.LockedBy = workerID.String()
	t.LockedUntil = &until
	return true, nil
}

func (s *Store) ReleaseFireLock(ctx context.Context, key trigger.Key, workerID id.WorkerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkClosed(); err != nil {
		return err
	}
	t, ok := s.triggers[key.String()]
	if !ok {
		return nil
	}
	if t.LockedBy == workerID.String() {
		t.LockedBy = ""
		t.LockedUntil = nil
	}
	return nil
}

func (s *Store) UpdateTriggerLastRun(ctx context.Context, key trigger.Key, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkClosed(); err != nil {
		return err
	}
	t, ok := s.triggers[key.String()]
	if !ok {
		return fmt.Errorf("%w: %s", dataexport.ErrTriggerNotFound, key)
	}
	at = at.UTC()
	t.LastRunAt = &at
	t.Touch()
	return nil
}

func (s *Store) UpdateTrigger(ctx context.Context, upd *trigger.Trigger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkClosed(); err != nil {
		return err
	}
	if _, ok := s.triggers[upd.Key.String()]; !ok {
		return fmt.Errorf("%w: %s", dataexport.ErrTriggerNotFound, upd.Key)
	}
	c := copyTrigger(upd)
	c.Touch()
	s.triggers[upd.Key.String()] = c
	return nil
}

// --- cluster.Store ---

func (s *Store) RegisterWorker(ctx context.Context, w *cluster.Worker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkClosed(); err != nil {
		return err
	}
	cp := *w
	s.workers[w.ID.String()] = &cp
	return nil
}

func (s *Store) DeregisterWorker(ctx context.Context, workerID id.WorkerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkClosed(); err != nil {
		return err
	}
	delete(s.workers, workerID.String())
	if s.leaderID == workerID.String() {
		s.leaderID = ""
		s.leaderUntil = time.Time{}
	}
	return nil
}

func (s *Store) HeartbeatWorker(ctx context.Context, workerID id.WorkerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkClosed(); err != nil {
		return err
	}
	w, ok := s.workers[workerID.String()]
	if !ok {
		return fmt.Errorf("%w: %s", dataexport.ErrWorkerNotFound, workerID)
	}
	w.LastSeen = time.Now().UTC()
	return nil
}

func (s *Store) ListWorkers(ctx context.Context) ([]*cluster.Worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkClosed(); err != nil {
		return nil, err
	}
	out := make([]*cluster.Worker, 0, len(s.workers))
	for _, w := range s.workers {
		cp := *w
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (s *Store) ReapDeadWorkers(ctx context.Context, threshold time.Duration) ([]*cluster.Worker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkClosed(); err != nil {
		return nil, err
	}
	cutoff := time.Now().UTC().Add(-threshold)
	var dead []*cluster.Worker
	for _, w := range s.workers {
		if w.LastSeen.Before(cutoff) {
			w.State = cluster.WorkerDead
			cp := *w
			dead = append(dead, &cp)
		}
	}
	return dead, nil
}

func (s *Store) AcquireLeadership(ctx context.Context, workerID id.WorkerID, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkClosed(); err != nil {
		return false, err
	}
	now := time.Now().UTC()
	if s.leaderID != "" && s.leaderID != workerID.String() && s.leaderUntil.After(now) {
		return false, nil
	}
	s.leaderID = workerID.String()
	s.leaderUntil = now.Add(ttl)
	s.markLeader(workerID.String())
	return true, nil
}

func (s *Store) RenewLeadership(ctx context.Context, workerID id.WorkerID, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkClosed(); err != nil {
		return false, err
	}
	if s.leaderID != workerID.String() {
		return false, nil
	}
	s.leaderUntil = time.Now().UTC().Add(ttl)
	return true, nil
}

func (s *Store) GetLeader(ctx context.Context) (*cluster.Worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkClosed(); err != nil {
		return nil, err
	}
	if s.leaderID == "" || !s.leaderUntil.After(time.Now().UTC()) {
		return nil, nil
	}
	w, ok := s.workers[s.leaderID]
	if !ok {
		return nil, nil
	}
	cp := *w
	until := s.leaderUntil
	cp.IsLeader = true
	cp.LeaderUntil = &until
	return &cp, nil
}

func (s *Store) markLeader(workerID string) {
	for wid, w := range s.workers {
		w.IsLeader = wid == workerID
	}
}

func copyTrigger(t *trigger.Trigger) *trigger.Trigger {
	cp := *t
	if t.LastRunAt != nil {
		v := *t.LastRunAt
		cp.LastRunAt = &v
	}
	if t.NextRunAt != nil {
		v := *t.NextRunAt
		cp.NextRunAt = &v
	}
	if t.LockedUntil != nil {
		v := *t.LockedUntil
		cp.LockedUntil = &v
	}
	if t.Schedule.Weekdays != nil {
		cp.Schedule.Weekdays = append([]schedule.Weekday(nil), t.Schedule.Weekdays...)
	}
	return &cp
}

func sortTriggers(ts []*trigger.Trigger) {
	sort.Slice(ts, func(i, j int) bool { return ts[i].Key.String() < ts[j].Key.String() })
}
