package executor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/folio-org/mod-data-export-spring-sub001/cluster"
	"github.com/folio-org/mod-data-export-spring-sub001/id"
	"github.com/folio-org/mod-data-export-spring-sub001/trigger"
)

// firing is one unit of work handed to the pool.
type firing struct {
	trigger  *trigger.Trigger
	firingID id.FiringID
}

// Pool manages a set of concurrent worker goroutines that execute firings
// handed over by the scheduler. It also registers this node in the cluster
// worker registry, heartbeats it, and reaps workers that stopped
// responding.
type Pool struct {
	executor     *Executor
	clusterStore cluster.Store
	concurrency  int
	workerID     id.WorkerID
	logger       *slog.Logger

	heartbeatInterval   time.Duration
	deadWorkerThreshold time.Duration

	limiter *Limiter

	firings chan firing

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool

	activeMu      sync.Mutex
	activeFirings map[string]context.CancelFunc
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithPoolConcurrency sets the number of concurrent worker goroutines.
func WithPoolConcurrency(n int) PoolOption {
	return func(p *Pool) { p.concurrency = n }
}

// WithHeartbeatInterval sets how often the pool heartbeats its cluster
// worker record. A zero value disables heartbeats.
func WithHeartbeatInterval(d time.Duration) PoolOption {
	return func(p *Pool) { p.heartbeatInterval = d }
}

// WithDeadWorkerThreshold sets the threshold after which silent workers
// are reaped from the cluster registry. A zero value disables reaping.
func WithDeadWorkerThreshold(d time.Duration) PoolOption {
	return func(p *Pool) { p.deadWorkerThreshold = d }
}

// WithLimiter sets the per-tenant limiter.
func WithLimiter(l *Limiter) PoolOption {
	return func(p *Pool) { p.limiter = l }
}

// WithWorkerID overrides the generated worker id, for tests.
func WithWorkerID(workerID id.WorkerID) PoolOption {
	return func(p *Pool) { p.workerID = workerID }
}

// NewPool creates a worker pool.
func NewPool(
	executor *Executor,
	clusterStore cluster.Store,
	logger *slog.Logger,
	opts ...PoolOption,
) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{
		executor:      executor,
		clusterStore:  clusterStore,
		concurrency:   10,
		workerID:      id.NewWorkerID(),
		logger:        logger,
		stopCh:        make(chan struct{}),
		activeFirings: make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.firings = make(chan firing, p.concurrency*2)
	return p
}

// WorkerID returns the pool's unique worker identifier.
func (p *Pool) WorkerID() id.WorkerID { return p.workerID }

// Dispatch hands a due trigger to the pool. It never blocks: when the pool
// is saturated or the tenant is over its limits, the firing is refused and
// the trigger stays due for the next tick.
func (p *Pool) Dispatch(_ context.Context, t *trigger.Trigger, firingID id.FiringID) error {
	if p.limiter != nil && !p.limiter.Acquire(t.Tenant) {
		return fmt.Errorf("tenant %s over firing limits", t.Tenant)
	}

	select {
	case p.firings <- firing{trigger: t, firingID: firingID}:
		return nil
	default:
		if p.limiter != nil {
			p.limiter.Release(t.Tenant)
		}
		return fmt.Errorf("firing queue full, refusing %s", t.Key)
	}
}

// Start registers the worker in the cluster and launches the worker
// goroutines. It returns immediately.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}
	p.running = true

	hostname, _ := os.Hostname()
	now := time.Now().UTC()
	w := &cluster.Worker{
		ID:          p.workerID,
		Hostname:    hostname,
		Concurrency: p.concurrency,
		State:       cluster.WorkerActive,
		LastSeen:    now,
		CreatedAt:   now,
	}
	if err := p.clusterStore.RegisterWorker(ctx, w); err != nil {
		p.running = false
		return fmt.Errorf("register worker: %w", err)
	}

	p.logger.Info("executor pool starting",
		slog.String("worker_id", p.workerID.String()),
		slog.Int("concurrency", p.concurrency),
	)

	for range p.concurrency {
		p.wg.Add(1)
		go p.workLoop()
	}

	if p.heartbeatInterval > 0 {
		p.wg.Add(1)
		go p.heartbeatLoop()
	}

	if p.deadWorkerThreshold > 0 {
		p.wg.Add(1)
		go p.reaperLoop()
	}

	return nil
}

// Stop signals all workers to stop and waits for them to finish. If the
// context has a deadline, active firings are cancelled when time runs out.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	p.mu.Unlock()

	p.logger.Info("executor pool stopping", slog.String("worker_id", p.workerID.String()))

	close(p.stopCh)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("executor pool stopped gracefully")
	case <-ctx.Done():
		p.logger.Warn("executor pool shutdown timed out, cancelling active firings")
		p.cancelActiveFirings()
		p.wg.Wait()
	}

	if err := p.clusterStore.DeregisterWorker(context.Background(), p.workerID); err != nil {
		p.logger.Warn("deregister worker failed",
			slog.String("worker_id", p.workerID.String()),
			slog.String("error", err.Error()),
		)
	}

	return nil
}

// workLoop is run by each worker goroutine.
func (p *Pool) workLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			return
		case f := <-p.firings:
			p.run(f)
		}
	}
}

func (p *Pool) run(f firing) {
	ctx, cancel := context.WithCancel(context.Background())
	p.trackFiring(f.firingID.String(), cancel)

	execErr := p.executor.Execute(ctx, f.trigger, f.firingID)
	if execErr != nil {
		p.logger.Debug("firing execution failed",
			slog.String("trigger", f.trigger.Key.String()),
			slog.String("firing_id", f.firingID.String()),
			slog.String("error", execErr.Error()),
		)
	}

	p.untrackFiring(f.firingID.String())
	cancel()

	if p.limiter != nil {
		p.limiter.Release(f.trigger.Tenant)
	}
}

// heartbeatLoop periodically refreshes this worker's last-seen timestamp.
func (p *Pool) heartbeatLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			if err := p.clusterStore.HeartbeatWorker(context.Background(), p.workerID); err != nil {
				p.logger.Warn("heartbeat failed",
					slog.String("worker_id", p.workerID.String()),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// reaperLoop periodically removes workers that stopped heartbeating.
func (p *Pool) reaperLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.deadWorkerThreshold)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.reapDeadWorkers()
		}
	}
}

func (p *Pool) reapDeadWorkers() {
	ctx := context.Background()

	dead, err := p.clusterStore.ReapDeadWorkers(ctx, p.deadWorkerThreshold)
	if err != nil {
		p.logger.Error("reap dead workers error", slog.String("error", err.Error()))
		return
	}

	for _, w := range dead {
		if w.ID.String() == p.workerID.String() {
			continue
		}
		if delErr := p.clusterStore.DeregisterWorker(ctx, w.ID); delErr != nil {
			p.logger.Error("reap: failed to deregister dead worker",
				slog.String("worker_id", w.ID.String()),
				slog.String("error", delErr.Error()),
			)
			continue
		}
		p.logger.Info("reaped dead worker",
			slog.String("worker_id", w.ID.String()),
			slog.String("hostname", w.Hostname),
		)
	}
}

func (p *Pool) trackFiring(firingID string, cancel context.CancelFunc) {
	p.activeMu.Lock()
	p.activeFirings[firingID] = cancel
	p.activeMu.Unlock()
}

func (p *Pool) untrackFiring(firingID string) {
	p.activeMu.Lock()
	delete(p.activeFirings, firingID)
	p.activeMu.Unlock()
}

func (p *Pool) cancelActiveFirings() {
	p.activeMu.Lock()
	defer p.activeMu.Unlock()
	for firingID, cancel := range p.activeFirings {
		p.logger.Warn("cancelling active firing", slog.String("firing_id", firingID))
		cancel()
	}
}
