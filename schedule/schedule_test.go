package schedule_test

import (
	"errors"
	"testing"

	dataexport "github.com/folio-org/mod-data-export-spring-sub001"
	"github.com/folio-org/mod-data-export-spring-sub001/schedule"
)

func TestParametersEnabled(t *testing.T) {
	tests := []struct {
		name string
		p    schedule.Parameters
		want bool
	}{
		{"zero value", schedule.Parameters{}, false},
		{"period none", schedule.Parameters{Period: schedule.PeriodNone}, false},
		{"hourly", schedule.Parameters{Period: schedule.PeriodHour}, true},
		{"cron only", schedule.Parameters{Cron: "*/5 * * * *"}, true},
		{"cron with period none", schedule.Parameters{Period: schedule.PeriodNone, Cron: "@hourly"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.Enabled(); got != tt.want {
				t.Errorf("Enabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParametersValidate(t *testing.T) {
	valid := []schedule.Parameters{
		{},
		{Period: schedule.PeriodNone, Time: "nonsense"}, // disabled, not checked
		{Period: schedule.PeriodHour, Frequency: 6},
		{Period: schedule.PeriodHour}, // omitted frequency defaults to 1
		{Period: schedule.PeriodDay, Time: "23:59:59", Timezone: "Europe/Berlin"},
		{Period: schedule.PeriodWeek, Weekdays: []schedule.Weekday{schedule.Monday}},
		{Cron: "0 12 * * MON"},
	}
	for _, p := range valid {
		if err := p.Validate(); err != nil {
			t.Errorf("Validate(%+v) = %v, want nil", p, err)
		}
	}

	invalid := []schedule.Parameters{
		{Period: "FORTNIGHT"},
		{Period: schedule.PeriodHour, Frequency: -1},
		{Period: schedule.PeriodWeek},
		{Period: schedule.PeriodWeek, Weekdays: []schedule.Weekday{"FUNDAY"}},
		{Period: schedule.PeriodDay, Time: "25:61"},
		{Period: schedule.PeriodDay, Timezone: "Mars/Olympus_Mons"},
		{Cron: "not a cron"},
	}
	for _, p := range invalid {
		err := p.Validate()
		if !errors.Is(err, dataexport.ErrInvalidConfiguration) {
			t.Errorf("Validate(%+v) = %v, want ErrInvalidConfiguration", p, err)
		}
	}
}
