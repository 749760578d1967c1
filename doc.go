// Package dataexport provides the recurring export-job scheduling engine for
// a multi-tenant library platform. It turns declarative export schedules
// (frequency, period, time-of-day, weekdays, timezone) into concrete,
// timezone-correct firings that each publish one job command to the
// downstream export pipeline.
//
// The engine is a library, not a service. Embed it, configure a backing
// store, and feed it export configurations:
//
//	st := memory.New()
//	eng, err := engine.Build(st, configs, recorder, publisher)
//	...
//	eng.Apply(ctx, cfg) // once per configuration write
//
// # Architecture
//
// Each subsystem defines its own store interface (trigger, cluster); a single
// backend (memory, postgres, redis) implements all of them behind the
// aggregate store.Store. The engine's lifecycle logic never branches on which
// backend is active: a single-node in-process deployment and a clustered
// persistent deployment run the same code.
//
// Trigger identities are (group, name) pairs namespaced per tenant and export
// family, so tenants sharing one store can never collide. Identities the
// engine mints itself (workers, firings) are TypeIDs — type-prefixed,
// K-sortable, URL-safe.
package dataexport
