package trigger_test

import (
	"errors"
	"testing"

	dataexport "github.com/folio-org/mod-data-export-spring-sub001"
	"github.com/folio-org/mod-data-export-spring-sub001/export"
	"github.com/folio-org/mod-data-export-spring-sub001/schedule"
	"github.com/folio-org/mod-data-export-spring-sub001/trigger"
)

const (
	testConfigID   = "6d8d31a4-7cd2-4c9e-a9d3-8f7e6a3f0a11"
	testScheduleID = "0a1b2c3d-4e5f-4a6b-8c7d-9e0f1a2b3c4d"
)

func TestGroupFor(t *testing.T) {
	tests := []struct {
		tenant string
		typ    export.Type
		want   string
	}{
		{"diku", export.TypeBursarFeesFines, "diku_scheduledExport"},
		{"diku", export.TypeCirculationLog, "diku_scheduledExport"},
		{"diku", export.TypeEdifactOrders, "diku_edifactOrdersExport"},
		{"other", export.TypeClaims, "other_claimsExport"},
	}
	for _, tt := range tests {
		if got := trigger.GroupFor(tt.tenant, tt.typ); got != tt.want {
			t.Errorf("GroupFor(%q, %q) = %q, want %q", tt.tenant, tt.typ, got, tt.want)
		}
	}
}

func TestResolveIdentityFromConfigID(t *testing.T) {
	cfg := &export.Config{
		ID:     testConfigID,
		Tenant: "diku",
		Type:   export.TypeBursarFeesFines,
	}
	ident, err := trigger.ResolveIdentity(cfg)
	if err != nil {
		t.Fatalf("ResolveIdentity: %v", err)
	}
	if ident.Group != "diku_scheduledExport" {
		t.Errorf("group = %q, want diku_scheduledExport", ident.Group)
	}
	if ident.Name != testConfigID {
		t.Errorf("name = %q, want config id", ident.Name)
	}
}

func TestResolveIdentityPrefersNestedScheduleID(t *testing.T) {
	cfg := &export.Config{
		ID:     testConfigID,
		Tenant: "diku",
		Type:   export.TypeEdifactOrders,
		Params: &export.SpecificParameters{
			VendorEdiOrdersExportConfig: &export.VendorEdiOrdersExportConfig{
				EdiSchedule: &export.EdiSchedule{
					Enabled: true,
					Parameters: schedule.Parameters{
						ID:     testScheduleID,
						Period: schedule.PeriodHour,
					},
				},
			},
		},
	}
	ident, err := trigger.ResolveIdentity(cfg)
	if err != nil {
		t.Fatalf("ResolveIdentity: %v", err)
	}
	if ident.Name != testScheduleID {
		t.Errorf("name = %q, want nested schedule id %q", ident.Name, testScheduleID)
	}
	if ident.Group != "diku_edifactOrdersExport" {
		t.Errorf("group = %q, want diku_edifactOrdersExport", ident.Group)
	}
}

func TestResolveIdentityDeterministic(t *testing.T) {
	cfg := &export.Config{ID: testConfigID, Tenant: "diku", Type: export.TypeClaims}
	a, err := trigger.ResolveIdentity(cfg)
	if err != nil {
		t.Fatalf("ResolveIdentity: %v", err)
	}
	b, err := trigger.ResolveIdentity(cfg)
	if err != nil {
		t.Fatalf("ResolveIdentity: %v", err)
	}
	if a != b {
		t.Errorf("identities differ: %v vs %v", a, b)
	}
}

func TestResolveIdentityNoID(t *testing.T) {
	cfg := &export.Config{Tenant: "diku", Type: export.TypeBursarFeesFines}
	_, err := trigger.ResolveIdentity(cfg)
	if !errors.Is(err, dataexport.ErrInvalidConfiguration) {
		t.Errorf("err = %v, want ErrInvalidConfiguration", err)
	}
}

func TestKeyString(t *testing.T) {
	ident := trigger.Identity{Group: "diku_scheduledExport", Name: "abc"}
	k := trigger.Key{Identity: ident}
	if got := k.String(); got != "diku_scheduledExport/abc" {
		t.Errorf("Key.String() = %q", got)
	}
	k.Weekday = schedule.Friday
	if got := k.String(); got != "diku_scheduledExport/abc#FRIDAY" {
		t.Errorf("Key.String() = %q", got)
	}
}
