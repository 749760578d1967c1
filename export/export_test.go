package export_test

import (
	"errors"
	"strings"
	"testing"

	dataexport "github.com/folio-org/mod-data-export-spring-sub001"
	"github.com/folio-org/mod-data-export-spring-sub001/export"
	"github.com/folio-org/mod-data-export-spring-sub001/schedule"
)

func TestResolverFallback(t *testing.T) {
	r := export.NewResolver[string]("default")
	r.Register(export.TypeClaims, "claims")

	if got := r.Resolve(export.TypeClaims); got != "claims" {
		t.Fatalf("Resolve(CLAIMS) = %q, want %q", got, "claims")
	}
	if got := r.Resolve(export.TypeEHoldings); got != "default" {
		t.Fatalf("Resolve(E_HOLDINGS) = %q, want fallback", got)
	}
	if got := r.Resolve(export.Type("BOGUS")); got != "default" {
		t.Fatalf("Resolve(BOGUS) = %q, want fallback", got)
	}
}

func TestResolverRegisterReplaces(t *testing.T) {
	r := export.NewResolver[int](0)
	r.Register(export.TypeClaims, 1)
	r.Register(export.TypeClaims, 2)

	if got := r.Resolve(export.TypeClaims); got != 2 {
		t.Fatalf("Resolve(CLAIMS) = %d, want 2", got)
	}
	if got := len(r.Types()); got != 1 {
		t.Fatalf("Types() has %d entries, want 1", got)
	}
}

func TestTypeFamily(t *testing.T) {
	cases := []struct {
		typ  export.Type
		want string
	}{
		{export.TypeBursarFeesFines, "scheduledExport"},
		{export.TypeCirculationLog, "scheduledExport"},
		{export.TypeEHoldings, "scheduledExport"},
		{export.TypeAuthUserIDs, "scheduledExport"},
		{export.TypeEdifactOrders, "edifactOrdersExport"},
		{export.TypeClaims, "claimsExport"},
	}
	for _, tc := range cases {
		if got := tc.typ.Family(); got != tc.want {
			t.Errorf("%s.Family() = %q, want %q", tc.typ, got, tc.want)
		}
	}

	families := export.Families()
	if len(families) != 3 {
		t.Fatalf("Families() = %v, want 3 distinct families", families)
	}
}

func TestEdiValidatorMissingPayload(t *testing.T) {
	v := export.NewValidators().Resolve(export.TypeEdifactOrders)

	errs := v.Validate(&export.SpecificParameters{})
	if len(errs) != 1 {
		t.Fatalf("Validate returned %d errors, want 1 fail-fast error", len(errs))
	}
	if !errors.Is(errs[0], dataexport.ErrInvalidArgument) {
		t.Fatalf("Validate error = %v, want ErrInvalidArgument", errs[0])
	}
}

func TestEdiValidatorAccumulatesFindings(t *testing.T) {
	v := export.NewValidators().Resolve(export.TypeClaims)

	errs := v.Validate(&export.SpecificParameters{
		VendorEdiOrdersExportConfig: &export.VendorEdiOrdersExportConfig{
			TransmissionMethod: export.TransmissionFTP,
		},
	})
	// Missing vendor id plus FTP without a server address.
	if len(errs) != 2 {
		t.Fatalf("Validate returned %d errors, want 2: %v", len(errs), errs)
	}
	for _, err := range errs {
		if !errors.Is(err, dataexport.ErrInvalidArgument) {
			t.Errorf("finding %v does not wrap ErrInvalidArgument", err)
		}
	}
}

func TestEdiValidatorValid(t *testing.T) {
	v := export.NewValidators().Resolve(export.TypeEdifactOrders)

	errs := v.Validate(&export.SpecificParameters{
		VendorEdiOrdersExportConfig: &export.VendorEdiOrdersExportConfig{
			VendorID:           "c858e4f2-2b6b-4dfa-8ad5-ce8ba57d6a5f",
			TransmissionMethod: export.TransmissionFileDownload,
		},
	})
	if len(errs) != 0 {
		t.Fatalf("Validate returned unexpected errors: %v", errs)
	}
}

func TestBursarValidator(t *testing.T) {
	v := export.NewValidators().Resolve(export.TypeBursarFeesFines)

	if errs := v.Validate(nil); len(errs) != 1 {
		t.Fatalf("Validate(nil) returned %d errors, want 1", len(errs))
	}
	errs := v.Validate(&export.SpecificParameters{
		BursarFeeFines: &export.BursarFeeFines{DaysOutstanding: -1},
	})
	if len(errs) != 1 || !errors.Is(errs[0], dataexport.ErrInvalidArgument) {
		t.Fatalf("negative daysOutstanding: got %v, want one ErrInvalidArgument", errs)
	}
	errs = v.Validate(&export.SpecificParameters{
		BursarFeeFines: &export.BursarFeeFines{DaysOutstanding: 30},
	})
	if len(errs) != 0 {
		t.Fatalf("valid payload returned errors: %v", errs)
	}
}

func TestDefaultValidatorAcceptsAnything(t *testing.T) {
	v := export.NewValidators().Resolve(export.TypeCirculationLog)
	if errs := v.Validate(nil); len(errs) != 0 {
		t.Fatalf("default validator returned errors: %v", errs)
	}
}

func TestEdiMapperDefaults(t *testing.T) {
	m := export.NewMappers().Resolve(export.TypeEdifactOrders)

	in := &export.Config{
		ID:   "cfg-1",
		Type: export.TypeEdifactOrders,
		Params: &export.SpecificParameters{
			VendorEdiOrdersExportConfig: &export.VendorEdiOrdersExportConfig{
				VendorID:           "vendor-1",
				TransmissionMethod: export.TransmissionFTP,
				EdiSchedule: &export.EdiSchedule{
					Enabled: true,
				},
				EdiFtp: &export.EdiFtpProperties{Host: "ftp.example.org"},
			},
		},
	}

	out, err := m.Map(in)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}

	vendor := out.Params.VendorEdiOrdersExportConfig
	if vendor.EdiSchedule.Parameters.Timezone != "UTC" {
		t.Errorf("timezone = %q, want UTC default", vendor.EdiSchedule.Parameters.Timezone)
	}
	if vendor.EdiFtp.Port != 22 {
		t.Errorf("ftp port = %d, want 22 default", vendor.EdiFtp.Port)
	}

	// The input must be left untouched.
	orig := in.Params.VendorEdiOrdersExportConfig
	if orig.EdiSchedule.Parameters.Timezone != "" || orig.EdiFtp.Port != 0 {
		t.Errorf("Map mutated its input: %+v", orig)
	}
}

func TestEdiMapperKeepsExplicitValues(t *testing.T) {
	m := export.NewMappers().Resolve(export.TypeClaims)

	out, err := m.Map(&export.Config{
		Type: export.TypeClaims,
		Params: &export.SpecificParameters{
			VendorEdiOrdersExportConfig: &export.VendorEdiOrdersExportConfig{
				VendorID: "vendor-1",
				EdiSchedule: &export.EdiSchedule{
					Parameters: schedule.Parameters{Timezone: "Europe/Prague"},
				},
				EdiFtp: &export.EdiFtpProperties{Host: "ftp.example.org", Port: 2222},
			},
		},
	})
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	vendor := out.Params.VendorEdiOrdersExportConfig
	if vendor.EdiSchedule.Parameters.Timezone != "Europe/Prague" {
		t.Errorf("timezone = %q, want explicit value kept", vendor.EdiSchedule.Parameters.Timezone)
	}
	if vendor.EdiFtp.Port != 2222 {
		t.Errorf("ftp port = %d, want explicit value kept", vendor.EdiFtp.Port)
	}
}

func TestGenericCommandBuilder(t *testing.T) {
	b := export.NewCommandBuilders(nil).Resolve(export.TypeCirculationLog)

	cmd, err := b.Build(&export.Job{
		ID:       "job-1",
		Tenant:   "diku",
		Type:     export.TypeCirculationLog,
		ConfigID: "cfg-1",
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if cmd.Type != export.CommandTypeStart {
		t.Errorf("command type = %q, want %q", cmd.Type, export.CommandTypeStart)
	}
	if cmd.ID != "job-1" || cmd.Tenant != "diku" || cmd.ExportType != export.TypeCirculationLog {
		t.Errorf("command identity not carried over: %+v", cmd)
	}
	if _, ok := cmd.Parameters[export.ParamSpecificParameters]; ok {
		t.Errorf("nil params still serialized: %v", cmd.Parameters)
	}
}

func TestEdiCommandBuilderCarriesVendorID(t *testing.T) {
	b := export.NewCommandBuilders(export.GetCodec(export.CodecNameJSON)).Resolve(export.TypeEdifactOrders)

	cmd, err := b.Build(&export.Job{
		ID:     "job-1",
		Tenant: "diku",
		Type:   export.TypeEdifactOrders,
		Params: &export.SpecificParameters{
			VendorEdiOrdersExportConfig: &export.VendorEdiOrdersExportConfig{
				VendorID: "vendor-1",
			},
		},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := cmd.Parameters["vendorId"]; got != "vendor-1" {
		t.Errorf("vendorId = %q, want vendor-1", got)
	}
	payload, ok := cmd.Parameters[export.ParamSpecificParameters]
	if !ok || !strings.Contains(payload, "vendor-1") {
		t.Errorf("serialized payload missing or incomplete: %q", payload)
	}
}

func TestEHoldingsCommandBuilder(t *testing.T) {
	b := export.NewCommandBuilders(nil).Resolve(export.TypeEHoldings)

	cmd, err := b.Build(&export.Job{
		ID:     "job-1",
		Tenant: "diku",
		Type:   export.TypeEHoldings,
		Params: &export.SpecificParameters{
			EHoldings: &export.EHoldingsExportConfig{
				RecordID:   "rec-1",
				RecordType: "PACKAGE",
			},
		},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if cmd.IdentifierType != "ID" {
		t.Errorf("identifierType = %q, want ID", cmd.IdentifierType)
	}
	if cmd.EntityType != "PACKAGE" {
		t.Errorf("entityType = %q, want PACKAGE", cmd.EntityType)
	}
	if got := cmd.Parameters["recordId"]; got != "rec-1" {
		t.Errorf("recordId = %q, want rec-1", got)
	}
}

func TestCodecRoundTrip(t *testing.T) {
	for _, name := range []string{export.CodecNameJSON, export.CodecNameMsgpack} {
		codec := export.GetCodec(name)
		if codec.Name() != name {
			t.Fatalf("GetCodec(%q).Name() = %q", name, codec.Name())
		}

		in := &export.SpecificParameters{
			BursarFeeFines: &export.BursarFeeFines{
				DaysOutstanding: 30,
				PatronGroups:    []string{"staff", "faculty"},
			},
		}
		data, err := codec.Marshal(in)
		if err != nil {
			t.Fatalf("%s Marshal: %v", name, err)
		}
		var out export.SpecificParameters
		if err := codec.Unmarshal(data, &out); err != nil {
			t.Fatalf("%s Unmarshal: %v", name, err)
		}
		if out.BursarFeeFines == nil || out.BursarFeeFines.DaysOutstanding != 30 {
			t.Errorf("%s round trip lost payload: %+v", name, out.BursarFeeFines)
		}
	}
}

func TestGetCodecUnknownFallsBackToJSON(t *testing.T) {
	if got := export.GetCodec("protobuf").Name(); got != export.CodecNameJSON {
		t.Fatalf("GetCodec(protobuf).Name() = %q, want json fallback", got)
	}
}
