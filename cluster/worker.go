package cluster

import (
	"time"

	"github.com/folio-org/mod-data-export-spring-sub001/id"
)

// WorkerState represents the lifecycle state of a scheduler worker.
type WorkerState string

const (
	// WorkerActive means the worker is healthy and executing firings.
	WorkerActive WorkerState = "active"
	// WorkerDraining means the worker is finishing in-flight firings
	// but not accepting new ones (graceful shutdown).
	WorkerDraining WorkerState = "draining"
	// WorkerDead means the worker has stopped responding.
	WorkerDead WorkerState = "dead"
)

// Worker represents one scheduler instance in a clustered deployment. Any
// worker may execute any due firing; only the leader runs the tick loop.
type Worker struct {
	ID          id.WorkerID `json:"id"`
	Hostname    string      `json:"hostname"`
	Concurrency int         `json:"concurrency"`
	State       WorkerState `json:"state"`
	IsLeader    bool        `json:"is_leader"`
	LeaderUntil *time.Time  `json:"leader_until,omitempty"`
	LastSeen    time.Time   `json:"last_seen"`
	CreatedAt   time.Time   `json:"created_at"`
}
