package trigger

import (
	"time"

	dataexport "github.com/folio-org/mod-data-export-spring-sub001"
	"github.com/folio-org/mod-data-export-spring-sub001/export"
	"github.com/folio-org/mod-data-export-spring-sub001/schedule"
)

// Key addresses one concrete trigger. Weekly schedules register one concrete
// trigger per weekday under the same identity, discriminated by Weekday;
// hourly and daily schedules leave Weekday empty.
type Key struct {
	Identity
	Weekday schedule.Weekday `json:"weekday,omitempty"`
}

// String renders the key as "group/name" or "group/name#WEEKDAY".
func (k Key) String() string {
	if k.Weekday == "" {
		return k.Identity.String()
	}
	return k.Identity.String() + "#" + string(k.Weekday)
}

// Trigger is one concrete recurring firing rule bound to a key. It carries
// only the static data the executor needs at fire time — tenant and config
// id, never the full configuration, which would be stale by then — plus a
// snapshot of the schedule for next-run computation.
type Trigger struct {
	dataexport.Entity

	Key      Key         `json:"key"`
	Tenant   string      `json:"tenant"`
	Type     export.Type `json:"type"`
	ConfigID string      `json:"config_id"`

	Schedule schedule.Parameters `json:"schedule"`

	LastRunAt   *time.Time `json:"last_run_at,omitempty"`
	NextRunAt   *time.Time `json:"next_run_at,omitempty"`
	LockedBy    string     `json:"locked_by,omitempty"`
	LockedUntil *time.Time `json:"locked_until,omitempty"`
	Enabled     bool       `json:"enabled"`
}

// ScheduledJob pairs the logical job description with the concrete triggers
// registered for it. Produced once at registration time and handed back to
// the caller; never retained by the engine.
type ScheduledJob struct {
	Identity Identity
	Disabled bool
	Triggers []*Trigger
}
