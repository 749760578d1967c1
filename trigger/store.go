package trigger

import (
	"context"
	"time"

	"github.com/folio-org/mod-data-export-spring-sub001/id"
)

// Store defines the persistence contract for triggers against the backing
// scheduler store. Both backing strategies — the in-process single-node
// store and the persistent clustered store — implement it; the lifecycle
// manager and scheduler never branch on which one is active.
//
// All mutation goes through this transactional surface, never through
// direct row edits. Firings of the same key are serialized by the fire
// lock; firings of different keys may run concurrently.
type Store interface {
	// RegisterTriggers persists a set of new triggers. Returns
	// ErrDuplicateTrigger if any key already exists.
	RegisterTriggers(ctx context.Context, triggers []*Trigger) error

	// TriggerExists reports whether any trigger is registered under the
	// given identity.
	TriggerExists(ctx context.Context, ident Identity) (bool, error)

	// GetTriggers returns all triggers registered under the identity.
	GetTriggers(ctx context.Context, ident Identity) ([]*Trigger, error)

	// ReplaceTriggers atomically replaces the firing rules registered
	// under the identity with the given set. The identity itself — the
	// job record in scheduler terms — is kept, not recreated.
	ReplaceTriggers(ctx context.Context, ident Identity, triggers []*Trigger) error

	// DeleteTriggers removes every trigger under the identity, returning
	// how many were removed. Deleting a missing identity is not an error.
	DeleteTriggers(ctx context.Context, ident Identity) (int, error)

	// DeleteGroup removes every trigger in a group, returning how many
	// were removed. Used at tenant teardown.
	DeleteGroup(ctx context.Context, group string) (int, error)

	// ListDueTriggers returns enabled triggers whose NextRunAt is at or
	// before now, up to limit (zero means no limit).
	ListDueTriggers(ctx context.Context, now time.Time, limit int) ([]*Trigger, error)

	// AcquireFireLock attempts to acquire the distributed fire lock for a
	// concrete trigger. Returns true if the lock was acquired; it expires
	// after ttl. The lock is what prevents double-firing of the same
	// trigger across scheduler nodes.
	AcquireFireLock(ctx context.Context, key Key, workerID id.WorkerID, ttl time.Duration) (bool, error)

	// ReleaseFireLock releases the fire lock for a concrete trigger.
	ReleaseFireLock(ctx context.Context, key Key, workerID id.WorkerID) error

	// UpdateTriggerLastRun records when a concrete trigger last fired.
	UpdateTriggerLastRun(ctx context.Context, key Key, at time.Time) error

	// UpdateTrigger persists changes to an existing trigger
	// (NextRunAt, Enabled, etc.).
	UpdateTrigger(ctx context.Context, t *Trigger) error
}
