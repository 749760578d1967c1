package export

import (
	"fmt"

	"github.com/google/uuid"

	dataexport "github.com/folio-org/mod-data-export-spring-sub001"
	"github.com/folio-org/mod-data-export-spring-sub001/schedule"
)

// Config is the declarative unit the engine derives triggers from. It is
// created and updated by the platform's configuration CRUD service; the
// engine only reads it — once per configuration write to compute triggers,
// and again at fire time to build the job command.
type Config struct {
	// ID is the configuration id assigned by the configuration service,
	// a UUID string.
	ID string `json:"id"`

	// Tenant is the owning tenant.
	Tenant string `json:"tenant"`

	// Type selects the export kind and thereby the strategies used for
	// validation, command building, and mapping.
	Type Type `json:"type"`

	// Params is the type-specific parameter payload, opaque to the engine
	// except for the nested schedule some types embed.
	Params *SpecificParameters `json:"exportTypeSpecificParameters,omitempty"`

	// Flat schedule fields for single-schedule export types.
	ScheduleFrequency int                `json:"scheduleFrequency,omitempty"`
	SchedulePeriod    schedule.Period    `json:"schedulePeriod,omitempty"`
	ScheduleTime      string             `json:"scheduleTime,omitempty"`
	Timezone          string             `json:"timeZone,omitempty"`
	WeekDays          []schedule.Weekday `json:"weekDays,omitempty"`
}

// Validate checks the configuration's engine-relevant invariants: a parsable
// UUID id, a tenant, and a structurally valid schedule. Type-specific
// payload validation is the validator resolver's concern, not this method's.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: configuration is nil", dataexport.ErrInvalidConfiguration)
	}
	if c.ID != "" {
		if _, err := uuid.Parse(c.ID); err != nil {
			return fmt.Errorf("%w: id %q is not a UUID", dataexport.ErrInvalidConfiguration, c.ID)
		}
	}
	if c.Tenant == "" {
		return fmt.Errorf("%w: tenant is required", dataexport.ErrInvalidConfiguration)
	}
	return c.Schedule().Validate()
}

// Schedule returns the effective schedule parameters: the nested per-type
// schedule when the payload carries one, otherwise the flat fields.
func (c *Config) Schedule() schedule.Parameters {
	if nested := c.nestedSchedule(); nested != nil {
		return *nested
	}
	return schedule.Parameters{
		Period:    c.SchedulePeriod,
		Frequency: c.ScheduleFrequency,
		Time:      c.ScheduleTime,
		Timezone:  c.Timezone,
		Weekdays:  c.WeekDays,
	}
}

// ScheduleID returns the nested schedule's id when present, empty otherwise.
func (c *Config) ScheduleID() string {
	if nested := c.nestedSchedule(); nested != nil {
		return nested.ID
	}
	return ""
}

func (c *Config) nestedSchedule() *schedule.Parameters {
	if c.Params == nil || c.Params.VendorEdiOrdersExportConfig == nil {
		return nil
	}
	edi := c.Params.VendorEdiOrdersExportConfig.EdiSchedule
	if edi == nil {
		return nil
	}
	if !edi.Enabled {
		// The schedule identity survives so a disable still resolves to
		// the same trigger pair, but the parameters are inert.
		return &schedule.Parameters{ID: edi.Parameters.ID}
	}
	return &edi.Parameters
}
