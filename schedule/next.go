package schedule

import (
	"time"

	cronlib "github.com/robfig/cron/v3"
)

// cronParser supports standard 5-field cron and descriptors like "@every 30m".
var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// ParseCron parses a cron expression override.
func ParseCron(expr string) (cronlib.Schedule, error) {
	return cronParser.Parse(expr)
}

// Run is one concrete recurring trigger computed from a schedule: the first
// firing time, and the weekday it recurs on for weekly schedules (empty
// otherwise).
type Run struct {
	Weekday Weekday
	At      time.Time
}

// NextRun computes the next execution time for one concrete trigger.
//
// day is the trigger's weekday for WEEK schedules and empty otherwise.
// last is the previous actual firing time, or nil if the trigger has never
// fired. The second return is false when the schedule is disabled and no
// further firing should happen.
//
// All results are truncated to seconds.
func NextRun(p Parameters, day Weekday, last *time.Time, now time.Time) (time.Time, bool, error) {
	if !p.Enabled() {
		return time.Time{}, false, nil
	}

	loc, err := p.Location()
	if err != nil {
		return time.Time{}, false, err
	}
	now = now.Truncate(time.Second)

	if p.Cron != "" {
		sched, err := ParseCron(p.Cron)
		if err != nil {
			return time.Time{}, false, err
		}
		base := now
		if last != nil {
			base = last.Truncate(time.Second)
		}
		return sched.Next(base.In(loc)).Truncate(time.Second), true, nil
	}

	switch p.Period {
	case PeriodHour:
		if last == nil {
			return now, true, nil
		}
		return last.Truncate(time.Second).Add(time.Duration(p.frequency()) * time.Hour), true, nil

	case PeriodDay:
		return nextDaily(p, last, now, loc)

	case PeriodWeek:
		return nextWeekly(p, day, last, now, loc)
	}

	return time.Time{}, false, nil
}

// InitialRuns computes the first firing of every concrete trigger a schedule
// produces: one Run per distinct weekday for WEEK, a single Run otherwise.
// A disabled schedule yields no runs.
func InitialRuns(p Parameters, now time.Time) ([]Run, error) {
	if !p.Enabled() {
		return nil, nil
	}

	if p.Cron == "" && p.Period == PeriodWeek {
		days := p.uniqueWeekdays()
		runs := make([]Run, 0, len(days))
		for _, day := range days {
			at, ok, err := NextRun(p, day, nil, now)
			if err != nil {
				return nil, err
			}
			if ok {
				runs = append(runs, Run{Weekday: day, At: at})
			}
		}
		return runs, nil
	}

	at, ok, err := NextRun(p, "", nil, now)
	if err != nil || !ok {
		return nil, err
	}
	return []Run{{At: at}}, nil
}

// Realign advances next past now by whole schedule steps without firing.
// It implements the do-nothing misfire policy: occurrences missed while the
// backing store was down are skipped, never replayed back-to-back.
func Realign(p Parameters, next, now time.Time) time.Time {
	if !next.Before(now) {
		return next
	}

	if p.Cron != "" {
		if sched, err := ParseCron(p.Cron); err == nil {
			return sched.Next(now).Truncate(time.Second)
		}
		return next
	}

	var step time.Duration
	switch p.Period {
	case PeriodHour:
		step = time.Duration(p.frequency()) * time.Hour
	case PeriodDay:
		step = time.Duration(p.frequency()) * 24 * time.Hour
	case PeriodWeek:
		step = time.Duration(p.frequency()) * 7 * 24 * time.Hour
	default:
		return next
	}

	// Jump in one arithmetic step, then settle on the exact boundary.
	behind := now.Sub(next)
	next = next.Add((behind/step + 1) * step)
	for next.Before(now) {
		next = next.Add(step)
	}
	return next
}

// nextDaily computes the next firing of a daily schedule. The anchor is the
// configured time-of-day in the configured zone; with no prior firing the
// result is today's anchor, or tomorrow's when today's has already passed
// (next-or-same). With a prior firing the result is the firing's date shifted
// by the frequency, anchor reapplied.
func nextDaily(p Parameters, last *time.Time, now time.Time, loc *time.Location) (time.Time, bool, error) {
	h, m, s, err := p.anchorClock(now)
	if err != nil {
		return time.Time{}, false, err
	}

	if last == nil {
		local := now.In(loc)
		cand := time.Date(local.Year(), local.Month(), local.Day(), h, m, s, 0, loc)
		if cand.Before(now) {
			cand = cand.AddDate(0, 0, 1)
		}
		return cand.Truncate(time.Second), true, nil
	}

	prev := last.In(loc)
	cand := time.Date(prev.Year(), prev.Month(), prev.Day(), h, m, s, 0, loc)
	cand = cand.AddDate(0, 0, p.frequency())
	return cand.Truncate(time.Second), true, nil
}

// nextWeekly computes the next firing of one weekday of a weekly schedule.
// With no prior firing the anchor date is the next date >= today in the
// configured zone falling on that weekday (next-or-same; a tie at exactly
// the anchor time anchors today). With a prior firing the result is the
// fired occurrence's date shifted by frequency weeks, anchor reapplied.
func nextWeekly(p Parameters, day Weekday, last *time.Time, now time.Time, loc *time.Location) (time.Time, bool, error) {
	target, err := day.Time()
	if err != nil {
		return time.Time{}, false, err
	}
	h, m, s, err := p.anchorClock(now)
	if err != nil {
		return time.Time{}, false, err
	}

	if last == nil {
		local := now.In(loc)
		cand := time.Date(local.Year(), local.Month(), local.Day(), h, m, s, 0, loc)
		cand = cand.AddDate(0, 0, daysUntil(local.Weekday(), target))
		if cand.Before(now) {
			// Today is the target weekday but the anchor already passed.
			cand = cand.AddDate(0, 0, 7)
		}
		return cand.Truncate(time.Second), true, nil
	}

	// The firing time may have slipped past local midnight; the recurrence
	// stays pinned to the trigger's weekday, so step from the most recent
	// occurrence of that day, not from the firing's own date.
	prev := last.In(loc)
	cand := time.Date(prev.Year(), prev.Month(), prev.Day(), h, m, s, 0, loc)
	cand = cand.AddDate(0, 0, -daysUntil(target, prev.Weekday()))
	cand = cand.AddDate(0, 0, 7*p.frequency())
	return cand.Truncate(time.Second), true, nil
}

// daysUntil returns the number of days from one weekday to the next
// occurrence of another, with "next-or-same" semantics (0 when equal).
func daysUntil(from, to time.Weekday) int {
	return (int(to) - int(from) + 7) % 7
}
