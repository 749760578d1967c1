package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	dataexport "github.com/folio-org/mod-data-export-spring-sub001"
	"github.com/folio-org/mod-data-export-spring-sub001/export"
	"github.com/folio-org/mod-data-export-spring-sub001/schedule"
)

// ConfigSource is the outbound configuration-read collaborator: the
// (external) configuration service the engine reloads live configurations
// from.
type ConfigSource interface {
	// GetConfigByID returns the configuration with the given id, or an
	// error wrapping ErrConfigNotFound.
	GetConfigByID(ctx context.Context, tenant, configID string) (*export.Config, error)

	// GetConfigCollection returns up to limit configurations matching the
	// query (empty query means all; zero limit means no limit).
	GetConfigCollection(ctx context.Context, tenant, query string, limit int) ([]*export.Config, error)
}

// resyncConcurrency bounds how many configurations a bulk resync applies
// in parallel.
const resyncConcurrency = 4

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithValidators sets the validator resolver consulted before triggers are
// derived from a configuration.
func WithValidators(v *export.Resolver[export.Validator]) ManagerOption {
	return func(m *Manager) { m.validators = v }
}

// WithMappers sets the mapper resolver applied to configurations before
// trigger derivation.
func WithMappers(mp *export.Resolver[export.Mapper]) ManagerOption {
	return func(m *Manager) { m.mappers = mp }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// WithClock overrides the time source. For tests.
func WithClock(clock func() time.Time) ManagerOption {
	return func(m *Manager) { m.clock = clock }
}

// Manager is the trigger lifecycle manager: it evaluates the
// Unregistered/Scheduled/Disabled state machine once per configuration
// write, once per configuration at tenant provisioning, and — through the
// same Delete path — whenever a fire-time reload finds the configuration
// gone.
type Manager struct {
	store      Store
	validators *export.Resolver[export.Validator]
	mappers    *export.Resolver[export.Mapper]
	logger     *slog.Logger
	clock      func() time.Time
}

// NewManager creates a Manager backed by the given store.
func NewManager(store Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:      store,
		validators: export.NewValidators(),
		mappers:    export.NewMappers(),
		logger:     slog.Default(),
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Apply evaluates the lifecycle state machine for one configuration write.
//
// Validation failures surface as ErrInvalidConfiguration before any store
// mutation. Store failures wrap ErrScheduling with the resolved identity
// and are never swallowed. Applying the same configuration twice in a row
// yields the same store state.
func (m *Manager) Apply(ctx context.Context, cfg *export.Config) (*ScheduledJob, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if errs := m.validators.Resolve(cfg.Type).Validate(cfg.Params); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", dataexport.ErrInvalidConfiguration, errors.Join(errs...))
	}

	mapped, err := m.mappers.Resolve(cfg.Type).Map(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: map %s configuration: %w", dataexport.ErrInvalidConfiguration, cfg.Type, err)
	}

	ident, err := ResolveIdentity(mapped)
	if err != nil {
		return nil, err
	}

	params := mapped.Schedule()
	enabled := params.Enabled()

	exists, err := m.store.TriggerExists(ctx, ident)
	if err != nil {
		return nil, fmt.Errorf("%w: lookup %s: %w", dataexport.ErrScheduling, ident, err)
	}

	switch {
	case exists && !enabled:
		// Scheduled → Disabled: remove the trigger/job pair.
		n, delErr := m.store.DeleteTriggers(ctx, ident)
		if delErr != nil {
			return nil, fmt.Errorf("%w: delete %s: %w", dataexport.ErrScheduling, ident, delErr)
		}
		m.logger.Info("schedule disabled, triggers deleted",
			slog.String("identity", ident.String()),
			slog.Int("deleted", n),
		)
		return &ScheduledJob{Identity: ident, Disabled: true}, nil

	case exists && enabled:
		// Scheduled → Scheduled: replace the firing rules in place under
		// the same identity; the job record is not recreated.
		triggers, buildErr := m.buildTriggers(mapped, ident, params)
		if buildErr != nil {
			return nil, buildErr
		}
		if repErr := m.store.ReplaceTriggers(ctx, ident, triggers); repErr != nil {
			return nil, fmt.Errorf("%w: reschedule %s: %w", dataexport.ErrScheduling, ident, repErr)
		}
		m.logger.Info("schedule updated",
			slog.String("identity", ident.String()),
			slog.Int("triggers", len(triggers)),
		)
		return &ScheduledJob{Identity: ident, Triggers: triggers}, nil

	case !exists && !enabled:
		// Unregistered stays Unregistered.
		return &ScheduledJob{Identity: ident, Disabled: true}, nil

	default:
		// Unregistered → Scheduled: fresh job record plus fresh triggers.
		triggers, buildErr := m.buildTriggers(mapped, ident, params)
		if buildErr != nil {
			return nil, buildErr
		}
		regErr := m.store.RegisterTriggers(ctx, triggers)
		if errors.Is(regErr, dataexport.ErrDuplicateTrigger) {
			// Lost a race with a concurrent apply of the same identity;
			// converge by replacing.
			regErr = m.store.ReplaceTriggers(ctx, ident, triggers)
		}
		if regErr != nil {
			return nil, fmt.Errorf("%w: schedule %s: %w", dataexport.ErrScheduling, ident, regErr)
		}
		m.logger.Info("schedule registered",
			slog.String("identity", ident.String()),
			slog.Int("triggers", len(triggers)),
		)
		return &ScheduledJob{Identity: ident, Triggers: triggers}, nil
	}
}

// Delete performs the delete transition for an identity directly. The
// fire-time executor uses this same path to self-unschedule when the
// configuration behind a firing no longer exists, so the delete semantics
// are identical regardless of trigger source.
func (m *Manager) Delete(ctx context.Context, ident Identity) error {
	n, err := m.store.DeleteTriggers(ctx, ident)
	if err != nil {
		return fmt.Errorf("%w: delete %s: %w", dataexport.ErrScheduling, ident, err)
	}
	m.logger.Info("triggers deleted",
		slog.String("identity", ident.String()),
		slog.Int("deleted", n),
	)
	return nil
}

// InitTenant re-applies every configuration of a tenant, used once at
// tenant provisioning or upgrade. Failures for individual configurations
// are logged and do not abort the batch.
func (m *Manager) InitTenant(ctx context.Context, source ConfigSource, tenant string) error {
	configs, err := source.GetConfigCollection(ctx, tenant, "", 0)
	if err != nil {
		return fmt.Errorf("%w: load configurations for tenant %q: %w", dataexport.ErrScheduling, tenant, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resyncConcurrency)
	for _, cfg := range configs {
		g.Go(func() error {
			if _, applyErr := m.Apply(gctx, cfg); applyErr != nil {
				m.logger.Warn("resync: configuration skipped",
					slog.String("tenant", tenant),
					slog.String("config_id", cfg.ID),
					slog.String("error", applyErr.Error()),
				)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	m.logger.Info("tenant schedules resynced",
		slog.String("tenant", tenant),
		slog.Int("configurations", len(configs)),
	)
	return nil
}

// DeleteTenant removes every trigger in every known group of a tenant.
func (m *Manager) DeleteTenant(ctx context.Context, tenant string) error {
	var total int
	for _, family := range export.Families() {
		group := tenant + "_" + family
		n, err := m.store.DeleteGroup(ctx, group)
		if err != nil {
			return fmt.Errorf("%w: delete group %q: %w", dataexport.ErrScheduling, group, err)
		}
		total += n
	}
	m.logger.Info("tenant triggers deleted",
		slog.String("tenant", tenant),
		slog.Int("deleted", total),
	)
	return nil
}

// buildTriggers computes the concrete trigger set for an enabled schedule:
// one trigger per weekday for weekly schedules, a single trigger otherwise.
func (m *Manager) buildTriggers(cfg *export.Config, ident Identity, params schedule.Parameters) ([]*Trigger, error) {
	now := m.clock().UTC()
	runs, err := schedule.InitialRuns(params, now)
	if err != nil {
		return nil, err
	}

	triggers := make([]*Trigger, 0, len(runs))
	for _, run := range runs {
		at := run.At
		triggers = append(triggers, &Trigger{
			Entity:    dataexport.NewEntity(),
			Key:       Key{Identity: ident, Weekday: run.Weekday},
			Tenant:    cfg.Tenant,
			Type:      cfg.Type,
			ConfigID:  cfg.ID,
			Schedule:  params,
			NextRunAt: &at,
			Enabled:   true,
		})
	}
	return triggers, nil
}
