// Package scheduler runs the tick loop that fires due triggers. Only the
// cluster leader ticks, so in a multi-node deployment exactly one node
// scans for due triggers; the per-trigger fire lock then guards against
// double-firing during leadership handover.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/folio-org/mod-data-export-spring-sub001/cluster"
	"github.com/folio-org/mod-data-export-spring-sub001/id"
	"github.com/folio-org/mod-data-export-spring-sub001/schedule"
	"github.com/folio-org/mod-data-export-spring-sub001/trigger"
)

// DispatchFunc is the callback the scheduler uses to hand a due trigger to
// the executor pool. This breaks the import cycle: the engine provides the
// implementation.
type DispatchFunc func(ctx context.Context, t *trigger.Trigger, firingID id.FiringID) error

// Emitter emits trigger lifecycle events.
type Emitter interface {
	EmitTriggerFired(ctx context.Context, key trigger.Key, firingID id.FiringID)
	EmitTriggerMisfired(ctx context.Context, key trigger.Key, realignedTo time.Time)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithTickInterval sets how often the scheduler checks for due triggers.
func WithTickInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.tickInterval = d }
}

// WithLockTTL sets the TTL for per-trigger fire locks.
func WithLockTTL(d time.Duration) Option {
	return func(s *Scheduler) { s.lockTTL = d }
}

// WithLeaderTTL sets the TTL for leader election.
func WithLeaderTTL(d time.Duration) Option {
	return func(s *Scheduler) { s.leaderTTL = d }
}

// WithMisfireThreshold sets how far behind a trigger may run before the
// missed occurrence is skipped instead of fired.
func WithMisfireThreshold(d time.Duration) Option {
	return func(s *Scheduler) { s.misfireThreshold = d }
}

// WithEmitter sets the lifecycle event emitter.
func WithEmitter(e Emitter) Option {
	return func(s *Scheduler) { s.emitter = e }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// Scheduler fires due triggers on a tick loop. Only the cluster leader
// executes ticks to prevent double-firing.
type Scheduler struct {
	triggerStore trigger.Store
	clusterStore cluster.Store
	dispatch     DispatchFunc
	emitter      Emitter
	workerID     id.WorkerID
	logger       *slog.Logger
	now          func() time.Time

	tickInterval     time.Duration
	lockTTL          time.Duration
	leaderTTL        time.Duration
	misfireThreshold time.Duration

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a Scheduler.
func New(
	triggerStore trigger.Store,
	clusterStore cluster.Store,
	dispatch DispatchFunc,
	workerID id.WorkerID,
	logger *slog.Logger,
	opts ...Option,
) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		triggerStore:     triggerStore,
		clusterStore:     clusterStore,
		dispatch:         dispatch,
		workerID:         workerID,
		logger:           logger,
		now:              func() time.Time { return time.Now().UTC() },
		tickInterval:     1 * time.Second,
		lockTTL:          30 * time.Second,
		leaderTTL:        15 * time.Second,
		misfireThreshold: 5 * time.Minute,
		stopCh:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the leader election and tick goroutines.
func (s *Scheduler) Start(_ context.Context) error {
	s.wg.Add(2)
	go s.leaderLoop()
	go s.tickLoop()
	s.logger.Info("scheduler started",
		slog.String("worker_id", s.workerID.String()),
		slog.Duration("tick_interval", s.tickInterval),
	)
	return nil
}

// Stop signals the scheduler to stop and waits for goroutines to finish.
func (s *Scheduler) Stop(_ context.Context) error {
	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
	return nil
}

// leaderLoop continuously attempts to acquire or renew leadership.
func (s *Scheduler) leaderLoop() {
	defer s.wg.Done()

	renewInterval := s.leaderTTL / 2
	ticker := time.NewTicker(renewInterval)
	defer ticker.Stop()

	// Try once immediately at start.
	s.tryLeadership()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.tryLeadership()
		}
	}
}

func (s *Scheduler) tryLeadership() {
	ctx := context.Background()

	// Renew first (cheap if already leader).
	renewed, err := s.clusterStore.RenewLeadership(ctx, s.workerID, s.leaderTTL)
	if err != nil {
		s.logger.Warn("leadership renew error", slog.String("error", err.Error()))
		return
	}
	if renewed {
		return
	}

	acquired, err := s.clusterStore.AcquireLeadership(ctx, s.workerID, s.leaderTTL)
	if err != nil {
		s.logger.Warn("leadership acquire error", slog.String("error", err.Error()))
		return
	}
	if acquired {
		s.logger.Info("acquired scheduler leadership", slog.String("worker_id", s.workerID.String()))
	}
}

// tickLoop fires on each tick interval and processes due triggers.
func (s *Scheduler) tickLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.Tick(context.Background())
		}
	}
}

// Tick scans for due triggers and fires each one. Exported so tests and
// single-shot callers can drive the scheduler without the loop.
func (s *Scheduler) Tick(ctx context.Context) {
	leader, err := s.clusterStore.GetLeader(ctx)
	if err != nil {
		s.logger.Warn("get leader error", slog.String("error", err.Error()))
		return
	}
	if leader == nil || leader.ID.String() != s.workerID.String() {
		return // Not the leader; skip.
	}

	now := s.now()
	due, err := s.triggerStore.ListDueTriggers(ctx, now, 0)
	if err != nil {
		s.logger.Error("list due triggers error", slog.String("error", err.Error()))
		return
	}

	for _, t := range due {
		s.fire(ctx, t, now)
	}
}

func (s *Scheduler) fire(ctx context.Context, t *trigger.Trigger, now time.Time) {
	acquired, err := s.triggerStore.AcquireFireLock(ctx, t.Key, s.workerID, s.lockTTL)
	if err != nil {
		s.logger.Error("acquire fire lock error",
			slog.String("trigger", t.Key.String()),
			slog.String("error", err.Error()),
		)
		return
	}
	if !acquired {
		return // Another worker got it.
	}
	defer func() {
		if relErr := s.triggerStore.ReleaseFireLock(ctx, t.Key, s.workerID); relErr != nil {
			s.logger.Error("release fire lock error",
				slog.String("trigger", t.Key.String()),
				slog.String("error", relErr.Error()),
			)
		}
	}()

	// Misfire: the trigger is further behind than the threshold allows.
	// Skip the missed occurrences entirely and realign to the next future
	// one — a late export is worse than no export, the next cycle covers
	// the same data.
	if t.NextRunAt != nil && now.Sub(*t.NextRunAt) > s.misfireThreshold {
		missed := *t.NextRunAt
		next := schedule.Realign(t.Schedule, missed, now)
		t.NextRunAt = &next
		if updErr := s.triggerStore.UpdateTrigger(ctx, t); updErr != nil {
			s.logger.Error("realign trigger error",
				slog.String("trigger", t.Key.String()),
				slog.String("error", updErr.Error()),
			)
			return
		}
		s.logger.Warn("trigger misfired, realigned without firing",
			slog.String("trigger", t.Key.String()),
			slog.Time("missed", missed),
			slog.Time("next_run_at", next),
		)
		if s.emitter != nil {
			s.emitter.EmitTriggerMisfired(ctx, t.Key, next)
		}
		return
	}

	firingID := id.NewFiringID()
	if dispErr := s.dispatch(ctx, t, firingID); dispErr != nil {
		s.logger.Error("dispatch trigger error",
			slog.String("trigger", t.Key.String()),
			slog.String("firing_id", firingID.String()),
			slog.String("error", dispErr.Error()),
		)
		return
	}

	if updateErr := s.triggerStore.UpdateTriggerLastRun(ctx, t.Key, now); updateErr != nil {
		s.logger.Error("update trigger last run error",
			slog.String("trigger", t.Key.String()),
			slog.String("error", updateErr.Error()),
		)
	}

	// Compute and persist the next occurrence.
	next, ok, nextErr := schedule.NextRun(t.Schedule, t.Key.Weekday, &now, now)
	if nextErr != nil {
		s.logger.Error("compute next run error",
			slog.String("trigger", t.Key.String()),
			slog.String("error", nextErr.Error()),
		)
		return
	}
	if !ok {
		// One-shot or disabled schedule: no further occurrences.
		t.NextRunAt = nil
		t.Enabled = false
	} else {
		t.NextRunAt = &next
	}
	t.LastRunAt = &now
	if updateErr := s.triggerStore.UpdateTrigger(ctx, t); updateErr != nil {
		s.logger.Error("update trigger next run error",
			slog.String("trigger", t.Key.String()),
			slog.String("error", updateErr.Error()),
		)
	}

	if s.emitter != nil {
		s.emitter.EmitTriggerFired(ctx, t.Key, firingID)
	}

	s.logger.Info("trigger fired",
		slog.String("trigger", t.Key.String()),
		slog.String("tenant", t.Tenant),
		slog.String("export_type", string(t.Type)),
		slog.String("firing_id", firingID.String()),
	)
}
