package dataexport

import "time"

// Entity carries the creation/update timestamps shared by all persisted
// engine entities. Embed it in structs stored through store.Store.
type Entity struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEntity returns an Entity with both timestamps set to the current UTC
// time, truncated to seconds (sub-second precision is not a contract
// anywhere in the engine).
func NewEntity() Entity {
	now := time.Now().UTC().Truncate(time.Second)
	return Entity{CreatedAt: now, UpdatedAt: now}
}

// Touch updates the UpdatedAt timestamp.
func (e *Entity) Touch() {
	e.UpdatedAt = time.Now().UTC().Truncate(time.Second)
}
