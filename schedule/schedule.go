package schedule

import (
	"fmt"
	"time"

	dataexport "github.com/folio-org/mod-data-export-spring-sub001"
)

// Period is the unit of a recurring schedule.
type Period string

const (
	// PeriodNone disables the schedule: it must produce zero triggers.
	PeriodNone Period = "NONE"
	// PeriodHour fires every Frequency hours.
	PeriodHour Period = "HOUR"
	// PeriodDay fires every Frequency days at the anchor time.
	PeriodDay Period = "DAY"
	// PeriodWeek fires on each requested weekday, every Frequency weeks.
	PeriodWeek Period = "WEEK"
)

// Weekday is a schedule weekday in the configuration wire format.
type Weekday string

// Weekday constants in the configuration wire format.
const (
	Monday    Weekday = "MONDAY"
	Tuesday   Weekday = "TUESDAY"
	Wednesday Weekday = "WEDNESDAY"
	Thursday  Weekday = "THURSDAY"
	Friday    Weekday = "FRIDAY"
	Saturday  Weekday = "SATURDAY"
	Sunday    Weekday = "SUNDAY"
)

var weekdayValues = map[Weekday]time.Weekday{
	Monday:    time.Monday,
	Tuesday:   time.Tuesday,
	Wednesday: time.Wednesday,
	Thursday:  time.Thursday,
	Friday:    time.Friday,
	Saturday:  time.Saturday,
	Sunday:    time.Sunday,
}

// Time converts the wire weekday to its time.Weekday value.
func (w Weekday) Time() (time.Weekday, error) {
	d, ok := weekdayValues[w]
	if !ok {
		return 0, fmt.Errorf("%w: unknown weekday %q", dataexport.ErrInvalidConfiguration, string(w))
	}
	return d, nil
}

// Parameters is the declarative recurring schedule attached to an export
// configuration. A zero Parameters (or one with Period NONE) is disabled.
type Parameters struct {
	// ID correlates the schedule with its trigger identity. For nested
	// per-type schedules this is the schedule's own id; flat schedules
	// leave it empty and the export configuration id is used instead.
	ID string `json:"id,omitempty"`

	// Period is the interval unit. Empty or NONE disables the schedule.
	Period Period `json:"schedulePeriod,omitempty"`

	// Frequency is the interval count (every N hours/days/weeks).
	// Values below 1 are treated as 1.
	Frequency int `json:"scheduleFrequency,omitempty"`

	// Time is the local time-of-day anchor as ISO local time
	// ("20:59:00" or "20:59"). Optional; when absent the current UTC
	// clock time, truncated to seconds, is the anchor.
	Time string `json:"scheduleTime,omitempty"`

	// Timezone is the IANA zone the anchor is interpreted in.
	// Empty means UTC.
	Timezone string `json:"timeZone,omitempty"`

	// Weekdays is required and non-empty when Period is WEEK.
	Weekdays []Weekday `json:"weekDays,omitempty"`

	// Cron is an optional cron expression overriding the period math for
	// advanced schedules. Standard 5-field syntax plus descriptors like
	// "@every 30m".
	Cron string `json:"cronExpression,omitempty"`
}

// Enabled reports whether the schedule should produce triggers.
func (p Parameters) Enabled() bool {
	if p.Cron != "" {
		return true
	}
	return p.Period != "" && p.Period != PeriodNone
}

// Validate checks the schedule's structural invariants. Errors wrap
// dataexport.ErrInvalidConfiguration.
func (p Parameters) Validate() error {
	if !p.Enabled() {
		return nil
	}

	if p.Cron != "" {
		if _, err := ParseCron(p.Cron); err != nil {
			return fmt.Errorf("%w: cron expression %q: %v", dataexport.ErrInvalidConfiguration, p.Cron, err)
		}
		return nil
	}

	switch p.Period {
	case PeriodHour, PeriodDay, PeriodWeek:
	default:
		return fmt.Errorf("%w: unknown schedule period %q", dataexport.ErrInvalidConfiguration, string(p.Period))
	}

	// Zero means the field was omitted and defaults to 1; only an explicit
	// negative value is a configuration error.
	if p.Frequency < 0 {
		return fmt.Errorf("%w: schedule frequency must not be negative", dataexport.ErrInvalidConfiguration)
	}

	if p.Period == PeriodWeek && len(p.uniqueWeekdays()) == 0 {
		return fmt.Errorf("%w: weekly schedule requires at least one weekday", dataexport.ErrInvalidConfiguration)
	}

	for _, wd := range p.Weekdays {
		if _, err := wd.Time(); err != nil {
			return err
		}
	}

	if p.Time != "" {
		if _, err := parseAnchorTime(p.Time); err != nil {
			return err
		}
	}

	if _, err := p.Location(); err != nil {
		return err
	}

	return nil
}

// Location resolves the configured IANA timezone, defaulting to UTC.
func (p Parameters) Location() (*time.Location, error) {
	if p.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %v", dataexport.ErrInvalidConfiguration, p.Timezone, err)
	}
	return loc, nil
}

// frequency returns the interval count, treating anything below 1 as 1.
func (p Parameters) frequency() int {
	if p.Frequency < 1 {
		return 1
	}
	return p.Frequency
}

// uniqueWeekdays de-duplicates the weekday list, preserving first-seen order.
// Order of emitted triggers is not significant to correctness.
func (p Parameters) uniqueWeekdays() []Weekday {
	seen := make(map[Weekday]struct{}, len(p.Weekdays))
	out := make([]Weekday, 0, len(p.Weekdays))
	for _, wd := range p.Weekdays {
		if _, dup := seen[wd]; dup {
			continue
		}
		seen[wd] = struct{}{}
		out = append(out, wd)
	}
	return out
}

// anchorClock resolves the time-of-day anchor: the parsed Time field, or the
// current UTC clock truncated to seconds when no Time is configured.
func (p Parameters) anchorClock(now time.Time) (hour, minute, sec int, err error) {
	if p.Time == "" {
		utc := now.UTC().Truncate(time.Second)
		return utc.Hour(), utc.Minute(), utc.Second(), nil
	}
	t, err := parseAnchorTime(p.Time)
	if err != nil {
		return 0, 0, 0, err
	}
	return t.Hour(), t.Minute(), t.Second(), nil
}

// parseAnchorTime parses an ISO local time string ("15:04:05" or "15:04").
func parseAnchorTime(s string) (time.Time, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: schedule time %q is not an ISO local time", dataexport.ErrInvalidConfiguration, s)
}
