package dataexport

import "time"

// Config holds configuration for the scheduling engine.
type Config struct {
	// Concurrency is the maximum number of firings executed concurrently.
	Concurrency int

	// TickInterval is how often the scheduler checks for due triggers.
	TickInterval time.Duration

	// LockTTL is the TTL for per-trigger fire locks.
	LockTTL time.Duration

	// LeaderTTL is the TTL for scheduler leader election.
	LeaderTTL time.Duration

	// MisfireThreshold is how far past its due time a trigger may be and
	// still fire. Triggers due longer ago than this are realigned to their
	// next natural occurrence without firing (do-nothing misfire policy).
	MisfireThreshold time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration

	// HeartbeatInterval is how often scheduler workers heartbeat the
	// cluster registry.
	HeartbeatInterval time.Duration

	// DeadWorkerThreshold is how long a worker may go without a heartbeat
	// before it is reaped from the cluster registry. A zero value disables
	// reaping.
	DeadWorkerThreshold time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency:         10,
		TickInterval:        1 * time.Second,
		LockTTL:             30 * time.Second,
		LeaderTTL:           15 * time.Second,
		MisfireThreshold:    5 * time.Minute,
		ShutdownTimeout:     30 * time.Second,
		HeartbeatInterval:   10 * time.Second,
		DeadWorkerThreshold: time.Minute,
	}
}
