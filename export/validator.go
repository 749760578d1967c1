package export

import (
	"fmt"

	dataexport "github.com/folio-org/mod-data-export-spring-sub001"
)

// Validator checks an export type's specific parameters before a
// configuration is accepted or a trigger is derived from it. This is one of
// the three per-type resolver concerns.
//
// Implementations fail fast with a single ErrInvalidArgument-wrapped error
// for structurally required-but-missing sub-objects, and may otherwise
// accumulate field-level findings.
type Validator interface {
	Validate(params *SpecificParameters) []error
}

type noopValidator struct{}

func (noopValidator) Validate(*SpecificParameters) []error { return nil }

// NewValidators returns the validator resolver with the built-in strategies
// registered and a no-op validator as default.
func NewValidators() *Resolver[Validator] {
	r := NewResolver[Validator](noopValidator{})
	edi := &ediValidator{}
	r.Register(TypeEdifactOrders, edi)
	r.Register(TypeClaims, edi)
	r.Register(TypeBursarFeesFines, &bursarValidator{})
	return r
}

// ediValidator covers EDIFACT orders and claims exports.
type ediValidator struct{}

func (v *ediValidator) Validate(params *SpecificParameters) []error {
	if params == nil || params.VendorEdiOrdersExportConfig == nil {
		return []error{fmt.Errorf("%w: vendorEdiOrdersExportConfig is required", dataexport.ErrInvalidArgument)}
	}

	var errs []error
	cfg := params.VendorEdiOrdersExportConfig
	if cfg.TransmissionMethod == "" {
		errs = append(errs, fmt.Errorf("%w: transmission method is required", dataexport.ErrInvalidArgument))
	}
	if cfg.TransmissionMethod == TransmissionFTP && (cfg.EdiFtp == nil || cfg.EdiFtp.Host == "") {
		errs = append(errs, fmt.Errorf("%w: FTP transmission requires a server address", dataexport.ErrInvalidArgument))
	}
	if cfg.VendorID == "" {
		errs = append(errs, fmt.Errorf("%w: vendor id is required", dataexport.ErrInvalidArgument))
	}
	return errs
}

type bursarValidator struct{}

func (v *bursarValidator) Validate(params *SpecificParameters) []error {
	if params == nil || params.BursarFeeFines == nil {
		return []error{fmt.Errorf("%w: bursarFeeFines is required", dataexport.ErrInvalidArgument)}
	}
	if params.BursarFeeFines.DaysOutstanding < 0 {
		return []error{fmt.Errorf("%w: daysOutstanding must not be negative", dataexport.ErrInvalidArgument)}
	}
	return nil
}
