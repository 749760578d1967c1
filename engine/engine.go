// Package engine assembles the scheduling engine: trigger lifecycle
// manager, executor pool, and the leader-elected scheduler, all sharing
// one backing store. Build wires the pieces; Start/Stop run them.
package engine

import (
	"context"
	"log/slog"

	dataexport "github.com/folio-org/mod-data-export-spring-sub001"
	"github.com/folio-org/mod-data-export-spring-sub001/bus"
	"github.com/folio-org/mod-data-export-spring-sub001/executor"
	"github.com/folio-org/mod-data-export-spring-sub001/export"
	mw "github.com/folio-org/mod-data-export-spring-sub001/middleware"
	"github.com/folio-org/mod-data-export-spring-sub001/scheduler"
	"github.com/folio-org/mod-data-export-spring-sub001/store"
	"github.com/folio-org/mod-data-export-spring-sub001/trigger"

	"go.opentelemetry.io/otel/trace"
)

// Engine is the assembled scheduling engine.
type Engine struct {
	cfg    dataexport.Config
	st     store.Store
	logger *slog.Logger

	manager   *trigger.Manager
	exec      *executor.Executor
	pool      *executor.Pool
	scheduler *scheduler.Scheduler
	publisher bus.Publisher

	// Build-time options.
	codec          export.Codec
	validators     *export.Resolver[export.Validator]
	mappers        *export.Resolver[export.Mapper]
	builders       *export.Resolver[export.CommandBuilder]
	limiter        *executor.Limiter
	emitter        scheduler.Emitter
	mws            []mw.Middleware
	tracerProvider trace.TracerProvider
}

// Option configures the Engine at build time.
type Option func(*Engine)

// WithConfig sets the engine configuration. Defaults to
// dataexport.DefaultConfig.
func WithConfig(cfg dataexport.Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithPublisher sets the outbound message bus. Defaults to an in-process
// broker.
func WithPublisher(p bus.Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithCodec sets the command serialization codec. Defaults to JSON.
func WithCodec(c export.Codec) Option {
	return func(e *Engine) { e.codec = c }
}

// WithValidators overrides the per-type validator resolver.
func WithValidators(v *export.Resolver[export.Validator]) Option {
	return func(e *Engine) { e.validators = v }
}

// WithMappers overrides the per-type mapper resolver.
func WithMappers(m *export.Resolver[export.Mapper]) Option {
	return func(e *Engine) { e.mappers = m }
}

// WithCommandBuilders overrides the per-type command-builder resolver.
func WithCommandBuilders(b *export.Resolver[export.CommandBuilder]) Option {
	return func(e *Engine) { e.builders = b }
}

// WithTenantLimits configures per-tenant firing limits.
func WithTenantLimits(configs ...executor.TenantConfig) Option {
	return func(e *Engine) { e.limiter = executor.NewLimiter(configs...) }
}

// WithEmitter sets the trigger lifecycle event emitter.
func WithEmitter(em scheduler.Emitter) Option {
	return func(e *Engine) { e.emitter = em }
}

// WithMiddleware appends custom middleware to the default firing stack.
func WithMiddleware(m mw.Middleware) Option {
	return func(e *Engine) { e.mws = append(e.mws, m) }
}

// WithTracerProvider sets a specific TracerProvider for firing spans.
// Without it the global otel provider is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) { e.tracerProvider = tp }
}

// Build assembles the engine from the backing store and the two external
// collaborators: the configuration source and the job-record bookkeeper.
func Build(st store.Store, configs trigger.ConfigSource, recorder executor.Recorder, opts ...Option) (*Engine, error) {
	if st == nil {
		return nil, dataexport.ErrNoStore
	}

	e := &Engine{
		cfg:    dataexport.DefaultConfig(),
		st:     st,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.codec == nil {
		e.codec = export.GetCodec("")
	}
	if e.validators == nil {
		e.validators = export.NewValidators()
	}
	if e.mappers == nil {
		e.mappers = export.NewMappers()
	}
	if e.builders == nil {
		e.builders = export.NewCommandBuilders(e.codec)
	}
	if e.publisher == nil {
		e.publisher = bus.NewBroker(bus.WithLogger(e.logger))
	}

	e.manager = trigger.NewManager(st,
		trigger.WithValidators(e.validators),
		trigger.WithMappers(e.mappers),
		trigger.WithLogger(e.logger),
	)

	// Default middleware stack: recover → tracing → logging → scope →
	// timeout. The firing deadline matches the fire-lock TTL: a firing
	// that outlives its lock could double-fire anyway.
	var tracingMw mw.Middleware
	if e.tracerProvider != nil {
		tracingMw = mw.TracingWithTracer(e.tracerProvider.Tracer("github.com/folio-org/mod-data-export-spring-sub001"))
	} else {
		tracingMw = mw.Tracing()
	}
	mws := []mw.Middleware{
		mw.Recover(e.logger),
		tracingMw,
		mw.Logging(e.logger),
		mw.Scope(),
		mw.Timeout(e.cfg.LockTTL),
	}
	mws = append(mws, e.mws...)

	e.exec = executor.NewExecutor(
		configs, recorder, e.manager, e.builders, e.publisher, e.codec, e.logger, mws...,
	)

	poolOpts := []executor.PoolOption{
		executor.WithPoolConcurrency(e.cfg.Concurrency),
		executor.WithHeartbeatInterval(e.cfg.HeartbeatInterval),
		executor.WithDeadWorkerThreshold(e.cfg.DeadWorkerThreshold),
	}
	if e.limiter != nil {
		poolOpts = append(poolOpts, executor.WithLimiter(e.limiter))
	}
	e.pool = executor.NewPool(e.exec, st, e.logger, poolOpts...)

	schedOpts := []scheduler.Option{
		scheduler.WithTickInterval(e.cfg.TickInterval),
		scheduler.WithLockTTL(e.cfg.LockTTL),
		scheduler.WithLeaderTTL(e.cfg.LeaderTTL),
		scheduler.WithMisfireThreshold(e.cfg.MisfireThreshold),
	}
	if e.emitter != nil {
		schedOpts = append(schedOpts, scheduler.WithEmitter(e.emitter))
	}
	e.scheduler = scheduler.New(st, st, e.pool.Dispatch, e.pool.WorkerID(), e.logger, schedOpts...)

	return e, nil
}

// Start runs migrations, starts the executor pool and the scheduler.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.st.Migrate(ctx); err != nil {
		return err
	}
	if err := e.pool.Start(ctx); err != nil {
		return err
	}
	return e.scheduler.Start(ctx)
}

// Stop shuts down the scheduler first so nothing new fires, then drains
// the pool within the configured shutdown timeout.
func (e *Engine) Stop(ctx context.Context) error {
	if err := e.scheduler.Stop(ctx); err != nil {
		return err
	}
	stopCtx, cancel := context.WithTimeout(ctx, e.cfg.ShutdownTimeout)
	defer cancel()
	return e.pool.Stop(stopCtx)
}

// Apply evaluates the trigger lifecycle for one configuration write.
func (e *Engine) Apply(ctx context.Context, cfg *export.Config) (*trigger.ScheduledJob, error) {
	return e.manager.Apply(ctx, cfg)
}

// Delete unschedules the triggers registered under the identity.
func (e *Engine) Delete(ctx context.Context, ident trigger.Identity) error {
	return e.manager.Delete(ctx, ident)
}

// InitTenant schedules every enabled configuration of a newly provisioned
// tenant.
func (e *Engine) InitTenant(ctx context.Context, source trigger.ConfigSource, tenant string) error {
	return e.manager.InitTenant(ctx, source, tenant)
}

// DeleteTenant removes every trigger group belonging to the tenant.
func (e *Engine) DeleteTenant(ctx context.Context, tenant string) error {
	return e.manager.DeleteTenant(ctx, tenant)
}

// Manager returns the trigger lifecycle manager.
func (e *Engine) Manager() *trigger.Manager { return e.manager }

// Scheduler returns the tick-loop scheduler.
func (e *Engine) Scheduler() *scheduler.Scheduler { return e.scheduler }

// Pool returns the executor pool.
func (e *Engine) Pool() *executor.Pool { return e.pool }

// Store returns the backing store.
func (e *Engine) Store() store.Store { return e.st }

// Publisher returns the outbound message bus.
func (e *Engine) Publisher() bus.Publisher { return e.publisher }
