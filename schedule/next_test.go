package schedule_test

import (
	"errors"
	"testing"
	"time"

	dataexport "github.com/folio-org/mod-data-export-spring-sub001"
	"github.com/folio-org/mod-data-export-spring-sub001/schedule"
)

// wednesday is a fixed reference instant: Wednesday 2025-01-15 10:00 UTC.
var wednesday = time.Date(2025, time.January, 15, 10, 0, 0, 0, time.UTC)

func mustNextRun(t *testing.T, p schedule.Parameters, day schedule.Weekday, last *time.Time, now time.Time) time.Time {
	t.Helper()
	at, ok, err := schedule.NextRun(p, day, last, now)
	if err != nil {
		t.Fatalf("NextRun: %v", err)
	}
	if !ok {
		t.Fatal("NextRun: schedule unexpectedly disabled")
	}
	return at
}

func TestNextRunDisabled(t *testing.T) {
	for _, p := range []schedule.Parameters{
		{},
		{Period: schedule.PeriodNone},
		{Period: schedule.PeriodNone, Frequency: 2, Time: "12:00"},
	} {
		_, ok, err := schedule.NextRun(p, "", nil, wednesday)
		if err != nil {
			t.Fatalf("NextRun: %v", err)
		}
		if ok {
			t.Errorf("NextRun(%+v) ok = true, want false", p)
		}
	}
}

func TestNextRunHourly(t *testing.T) {
	p := schedule.Parameters{Period: schedule.PeriodHour, Frequency: 2}

	// First firing is immediate.
	at := mustNextRun(t, p, "", nil, wednesday)
	if !at.Equal(wednesday) {
		t.Errorf("first run = %v, want %v", at, wednesday)
	}

	// Subsequent firings step from the previous firing, not from now.
	last := wednesday
	at = mustNextRun(t, p, "", &last, wednesday.Add(3*time.Minute))
	want := wednesday.Add(2 * time.Hour)
	if !at.Equal(want) {
		t.Errorf("second run = %v, want %v", at, want)
	}
}

func TestNextRunDaily(t *testing.T) {
	p := schedule.Parameters{Period: schedule.PeriodDay, Frequency: 1, Time: "12:00"}

	// Anchor still ahead today.
	at := mustNextRun(t, p, "", nil, wednesday)
	want := time.Date(2025, time.January, 15, 12, 0, 0, 0, time.UTC)
	if !at.Equal(want) {
		t.Errorf("next run = %v, want today's anchor %v", at, want)
	}

	// Anchor already passed today.
	at = mustNextRun(t, p, "", nil, wednesday.Add(4*time.Hour))
	want = time.Date(2025, time.January, 16, 12, 0, 0, 0, time.UTC)
	if !at.Equal(want) {
		t.Errorf("next run = %v, want tomorrow's anchor %v", at, want)
	}

	// A tie at exactly the anchor time anchors today.
	tie := time.Date(2025, time.January, 15, 12, 0, 0, 0, time.UTC)
	at = mustNextRun(t, p, "", nil, tie)
	if !at.Equal(tie) {
		t.Errorf("next run at tie = %v, want %v", at, tie)
	}
}

func TestNextRunDailyFromLast(t *testing.T) {
	p := schedule.Parameters{Period: schedule.PeriodDay, Frequency: 3, Time: "12:00"}

	last := time.Date(2025, time.January, 10, 12, 0, 0, 0, time.UTC)
	at := mustNextRun(t, p, "", &last, wednesday)
	want := time.Date(2025, time.January, 13, 12, 0, 0, 0, time.UTC)
	if !at.Equal(want) {
		t.Errorf("next run = %v, want %v", at, want)
	}
}

func TestNextRunDailyTimezone(t *testing.T) {
	p := schedule.Parameters{
		Period:   schedule.PeriodDay,
		Time:     "12:00",
		Timezone: "America/New_York",
	}
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}

	// 15:00 UTC is 10:00 in New York — the 12:00 local anchor is ahead.
	now := time.Date(2025, time.January, 15, 15, 0, 0, 0, time.UTC)
	at := mustNextRun(t, p, "", nil, now)
	want := time.Date(2025, time.January, 15, 12, 0, 0, 0, loc)
	if !at.Equal(want) {
		t.Errorf("next run = %v, want %v", at, want)
	}
}

func TestNextRunWeekly(t *testing.T) {
	p := schedule.Parameters{
		Period:    schedule.PeriodWeek,
		Frequency: 1,
		Time:      "08:30",
		Weekdays:  []schedule.Weekday{schedule.Friday},
	}

	// Friday is two days after the reference Wednesday.
	at := mustNextRun(t, p, schedule.Friday, nil, wednesday)
	want := time.Date(2025, time.January, 17, 8, 30, 0, 0, time.UTC)
	if !at.Equal(want) {
		t.Errorf("next run = %v, want this Friday %v", at, want)
	}

	// Today is the target weekday but the anchor already passed: next week.
	at = mustNextRun(t, p, schedule.Wednesday, nil, wednesday)
	want = time.Date(2025, time.January, 22, 8, 30, 0, 0, time.UTC)
	if !at.Equal(want) {
		t.Errorf("next run = %v, want next Wednesday %v", at, want)
	}
}

func TestNextRunWeeklyTie(t *testing.T) {
	p := schedule.Parameters{
		Period:   schedule.PeriodWeek,
		Time:     "10:00",
		Weekdays: []schedule.Weekday{schedule.Wednesday},
	}

	// Exactly the anchor instant on the target weekday anchors today.
	at := mustNextRun(t, p, schedule.Wednesday, nil, wednesday)
	if !at.Equal(wednesday) {
		t.Errorf("next run at tie = %v, want %v", at, wednesday)
	}
}

func TestNextRunWeeklyFromLast(t *testing.T) {
	p := schedule.Parameters{
		Period:    schedule.PeriodWeek,
		Frequency: 2,
		Time:      "08:30",
		Weekdays:  []schedule.Weekday{schedule.Friday},
	}

	last := time.Date(2025, time.January, 10, 8, 30, 0, 0, time.UTC) // a Friday
	at := mustNextRun(t, p, schedule.Friday, &last, wednesday)
	want := time.Date(2025, time.January, 24, 8, 30, 0, 0, time.UTC)
	if !at.Equal(want) {
		t.Errorf("next run = %v, want %v", at, want)
	}
}

func TestNextRunWeeklyLateFiringKeepsWeekday(t *testing.T) {
	p := schedule.Parameters{
		Period:    schedule.PeriodWeek,
		Frequency: 1,
		Time:      "23:59",
		Weekdays:  []schedule.Weekday{schedule.Friday},
	}

	// Due Friday 2025-01-17 23:59, fired two minutes late — past midnight,
	// on Saturday. The recurrence must stay pinned to Friday.
	fired := time.Date(2025, time.January, 18, 0, 1, 0, 0, time.UTC)
	at := mustNextRun(t, p, schedule.Friday, &fired, fired)
	want := time.Date(2025, time.January, 24, 23, 59, 0, 0, time.UTC)
	if !at.Equal(want) {
		t.Errorf("next run = %v (%s), want %v (%s)", at, at.Weekday(), want, want.Weekday())
	}
}

func TestNextRunCronOverride(t *testing.T) {
	p := schedule.Parameters{Cron: "@every 30m"}

	at := mustNextRun(t, p, "", nil, wednesday)
	want := wednesday.Add(30 * time.Minute)
	if !at.Equal(want) {
		t.Errorf("next run = %v, want %v", at, want)
	}
}

func TestNextRunInvalidWeekday(t *testing.T) {
	p := schedule.Parameters{
		Period:   schedule.PeriodWeek,
		Weekdays: []schedule.Weekday{"FUNDAY"},
	}
	_, _, err := schedule.NextRun(p, "FUNDAY", nil, wednesday)
	if !errors.Is(err, dataexport.ErrInvalidConfiguration) {
		t.Errorf("err = %v, want ErrInvalidConfiguration", err)
	}
}

func TestInitialRunsWeekly(t *testing.T) {
	p := schedule.Parameters{
		Period:   schedule.PeriodWeek,
		Time:     "08:30",
		Weekdays: []schedule.Weekday{schedule.Monday, schedule.Friday, schedule.Monday},
	}

	runs, err := schedule.InitialRuns(p, wednesday)
	if err != nil {
		t.Fatalf("InitialRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("len(runs) = %d, want 2 (duplicates collapsed)", len(runs))
	}

	byDay := map[schedule.Weekday]time.Time{}
	for _, r := range runs {
		byDay[r.Weekday] = r.At
	}
	wantMonday := time.Date(2025, time.January, 20, 8, 30, 0, 0, time.UTC)
	wantFriday := time.Date(2025, time.January, 17, 8, 30, 0, 0, time.UTC)
	if !byDay[schedule.Monday].Equal(wantMonday) {
		t.Errorf("Monday run = %v, want %v", byDay[schedule.Monday], wantMonday)
	}
	if !byDay[schedule.Friday].Equal(wantFriday) {
		t.Errorf("Friday run = %v, want %v", byDay[schedule.Friday], wantFriday)
	}
}

func TestInitialRunsSingle(t *testing.T) {
	p := schedule.Parameters{Period: schedule.PeriodHour, Frequency: 1}

	runs, err := schedule.InitialRuns(p, wednesday)
	if err != nil {
		t.Fatalf("InitialRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("len(runs) = %d, want 1", len(runs))
	}
	if runs[0].Weekday != "" {
		t.Errorf("weekday = %q, want empty", runs[0].Weekday)
	}
	if !runs[0].At.Equal(wednesday) {
		t.Errorf("first run = %v, want %v", runs[0].At, wednesday)
	}
}

func TestInitialRunsDisabled(t *testing.T) {
	runs, err := schedule.InitialRuns(schedule.Parameters{Period: schedule.PeriodNone}, wednesday)
	if err != nil {
		t.Fatalf("InitialRuns: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("len(runs) = %d, want 0", len(runs))
	}
}

func TestRealignSkipsMissedOccurrences(t *testing.T) {
	p := schedule.Parameters{Period: schedule.PeriodHour, Frequency: 1}

	// Five and a half hours behind: missed occurrences are skipped, the
	// next boundary after now is kept.
	next := wednesday.Add(-5*time.Hour - 30*time.Minute)
	got := schedule.Realign(p, next, wednesday)
	want := wednesday.Add(30 * time.Minute)
	if !got.Equal(want) {
		t.Errorf("Realign = %v, want %v", got, want)
	}
}

func TestRealignFutureUnchanged(t *testing.T) {
	p := schedule.Parameters{Period: schedule.PeriodDay, Frequency: 1}

	next := wednesday.Add(time.Hour)
	got := schedule.Realign(p, next, wednesday)
	if !got.Equal(next) {
		t.Errorf("Realign = %v, want unchanged %v", got, next)
	}
}

func TestRealignWeekly(t *testing.T) {
	p := schedule.Parameters{Period: schedule.PeriodWeek, Frequency: 1, Weekdays: []schedule.Weekday{schedule.Friday}}

	// Three weeks and a day behind: realigns to the boundary after now.
	next := wednesday.AddDate(0, 0, -22)
	got := schedule.Realign(p, next, wednesday)
	want := next.AddDate(0, 0, 28)
	if !got.Equal(want) {
		t.Errorf("Realign = %v, want %v", got, want)
	}
	if got.Before(wednesday) {
		t.Errorf("Realign = %v is still in the past", got)
	}
}
