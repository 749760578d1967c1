package export

// Mapper re-materializes a stored configuration before the engine derives
// triggers from it, applying type-specific defaults the configuration
// service leaves implicit. This is one of the three per-type resolver
// concerns. Mappers return a copy; the input is never mutated.
type Mapper interface {
	Map(cfg *Config) (*Config, error)
}

type identityMapper struct{}

func (identityMapper) Map(cfg *Config) (*Config, error) {
	cp := *cfg
	return &cp, nil
}

// NewMappers returns the mapper resolver with the built-in strategies
// registered and an identity mapper as default.
func NewMappers() *Resolver[Mapper] {
	r := NewResolver[Mapper](identityMapper{})
	edi := &ediMapper{}
	r.Register(TypeEdifactOrders, edi)
	r.Register(TypeClaims, edi)
	return r
}

// ediMapper defaults the nested schedule's timezone and the FTP port for
// EDI-based exports.
type ediMapper struct{}

func (m *ediMapper) Map(cfg *Config) (*Config, error) {
	cp := *cfg
	if cp.Params == nil || cp.Params.VendorEdiOrdersExportConfig == nil {
		return &cp, nil
	}

	params := *cp.Params
	vendor := *params.VendorEdiOrdersExportConfig

	if vendor.EdiSchedule != nil {
		sched := *vendor.EdiSchedule
		if sched.Parameters.Timezone == "" {
			sched.Parameters.Timezone = "UTC"
		}
		vendor.EdiSchedule = &sched
	}
	if vendor.EdiFtp != nil && vendor.EdiFtp.Port == 0 {
		ftp := *vendor.EdiFtp
		ftp.Port = 22
		vendor.EdiFtp = &ftp
	}

	params.VendorEdiOrdersExportConfig = &vendor
	cp.Params = &params
	return &cp, nil
}
