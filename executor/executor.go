// Package executor turns a due trigger into one export run: it reloads the
// live configuration, records a system-sourced job through the bookkeeping
// collaborator, and publishes the start command to the bus. A Pool of
// worker goroutines runs firings concurrently with per-tenant rate limits.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	dataexport "github.com/folio-org/mod-data-export-spring-sub001"
	"github.com/folio-org/mod-data-export-spring-sub001/bus"
	"github.com/folio-org/mod-data-export-spring-sub001/export"
	"github.com/folio-org/mod-data-export-spring-sub001/id"
	"github.com/folio-org/mod-data-export-spring-sub001/middleware"
	"github.com/folio-org/mod-data-export-spring-sub001/trigger"
)

// Recorder is the bookkeeping collaborator that persists the export job
// record before the command goes out. The returned job carries the id the
// record was stored under; a job that comes back without an id produces no
// command.
type Recorder interface {
	UpsertJob(ctx context.Context, job *export.Job) (*export.Job, error)
}

// Deleter removes a scheduled trigger pair. The lifecycle manager satisfies
// it; the executor uses it to unschedule triggers whose configuration is
// gone.
type Deleter interface {
	Delete(ctx context.Context, ident trigger.Identity) error
}

// Executor runs a single firing through middleware and the fire pipeline.
type Executor struct {
	configs   trigger.ConfigSource
	recorder  Recorder
	deleter   Deleter
	builders  *export.Resolver[export.CommandBuilder]
	publisher bus.Publisher
	codec     export.Codec
	mw        middleware.Middleware
	logger    *slog.Logger
}

// NewExecutor creates an Executor with the given dependencies.
func NewExecutor(
	configs trigger.ConfigSource,
	recorder Recorder,
	deleter Deleter,
	builders *export.Resolver[export.CommandBuilder],
	publisher bus.Publisher,
	codec export.Codec,
	logger *slog.Logger,
	mws ...middleware.Middleware,
) *Executor {
	if codec == nil {
		codec = export.GetCodec("")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		configs:   configs,
		recorder:  recorder,
		deleter:   deleter,
		builders:  builders,
		publisher: publisher,
		codec:     codec,
		mw:        middleware.Chain(mws...),
		logger:    logger,
	}
}

// Execute runs one firing through the middleware chain and fire pipeline.
//
// A trigger without a tenant or configuration id cannot be executed at
// all. A trigger whose
// configuration no longer exists unschedules itself through the same
// delete path callers use, so the store never accumulates orphaned
// triggers pointing at deleted configurations.
func (e *Executor) Execute(ctx context.Context, t *trigger.Trigger, firingID id.FiringID) error {
	if t.Tenant == "" {
		return fmt.Errorf("%w: trigger %s has no tenant", dataexport.ErrMissingParameter, t.Key)
	}
	if t.ConfigID == "" {
		return fmt.Errorf("%w: trigger %s has no export configuration id", dataexport.ErrMissingParameter, t.Key)
	}

	terminal := func(ctx context.Context) error {
		return e.fire(ctx, t, firingID)
	}
	return e.mw(ctx, t, terminal)
}

func (e *Executor) fire(ctx context.Context, t *trigger.Trigger, firingID id.FiringID) error {
	cfg, err := e.configs.GetConfigByID(ctx, t.Tenant, t.ConfigID)
	if err != nil {
		if errors.Is(err, dataexport.ErrConfigNotFound) {
			return e.unschedule(ctx, t, err)
		}
		return fmt.Errorf("%w: load configuration %s: %w", dataexport.ErrScheduling, t.ConfigID, err)
	}

	job := &export.Job{
		Tenant:       t.Tenant,
		Type:         cfg.Type,
		ConfigID:     cfg.ID,
		Params:       cfg.Params,
		SystemSource: true,
	}

	recorded, err := e.recorder.UpsertJob(ctx, job)
	if err != nil {
		return fmt.Errorf("%w: record job for %s: %w", dataexport.ErrScheduling, t.Key, err)
	}
	if recorded == nil || recorded.ID == "" {
		// The bookkeeping collaborator declined to create the record; no
		// command goes out for this firing.
		e.logger.Info("job record not created, skipping command",
			slog.String("trigger", t.Key.String()),
			slog.String("firing_id", firingID.String()),
		)
		return nil
	}

	builder := e.builders.Resolve(recorded.Type)
	cmd, err := builder.Build(recorded)
	if err != nil {
		return fmt.Errorf("%w: build command for %s: %w", dataexport.ErrScheduling, t.Key, err)
	}

	body, err := e.codec.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("%w: encode command for %s: %w", dataexport.ErrScheduling, t.Key, err)
	}

	err = e.publisher.Publish(ctx, bus.Message{
		Topic: bus.TopicJobCommands,
		Key:   t.Tenant,
		Codec: e.codec.Name(),
		Body:  body,
	})
	if err != nil {
		return fmt.Errorf("%w: publish command for %s: %w", dataexport.ErrScheduling, t.Key, err)
	}

	e.logger.Info("export command published",
		slog.String("trigger", t.Key.String()),
		slog.String("job_id", recorded.ID),
		slog.String("firing_id", firingID.String()),
	)
	return nil
}

// unschedule removes the trigger pair for a configuration that no longer
// exists.
func (e *Executor) unschedule(ctx context.Context, t *trigger.Trigger, cause error) error {
	e.logger.Warn("configuration gone, unscheduling trigger",
		slog.String("trigger", t.Key.String()),
		slog.String("config_id", t.ConfigID),
	)
	if delErr := e.deleter.Delete(ctx, t.Key.Identity); delErr != nil {
		return fmt.Errorf("%w: unschedule %s: %w", dataexport.ErrScheduling, t.Key.Identity, delErr)
	}
	return fmt.Errorf("%w: configuration %s not found, trigger unscheduled: %w",
		dataexport.ErrScheduling, t.ConfigID, cause)
}
