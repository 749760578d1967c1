// Package store defines the aggregate persistence interface. Each subsystem
// (trigger, cluster) defines its own store interface; the composite Store
// composes them. Backends: Postgres, Redis, and Memory.
package store

import (
	"context"

	"github.com/folio-org/mod-data-export-spring-sub001/cluster"
	"github.com/folio-org/mod-data-export-spring-sub001/trigger"
)

// Store is the aggregate persistence interface. A single backend
// (postgres, redis, memory) implements all subsystem stores.
type Store interface {
	trigger.Store
	cluster.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
