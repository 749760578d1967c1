package export

// Type identifies one kind of export in the platform's closed set. The wire
// values match the configuration service's enum.
type Type string

// The known export types.
const (
	TypeBursarFeesFines Type = "BURSAR_FEES_FINES"
	TypeCirculationLog  Type = "CIRCULATION_LOG"
	TypeEdifactOrders   Type = "EDIFACT_ORDERS_EXPORT"
	TypeClaims          Type = "CLAIMS"
	TypeEHoldings       Type = "E_HOLDINGS"
	TypeAuthUserIDs     Type = "AUTH_USER_ID_POPULATION"
)

// Family returns the export family name used to namespace trigger groups.
// Types with per-vendor nested schedules get their own family so their
// triggers never collide with the flat-schedule families in a shared store.
func (t Type) Family() string {
	switch t {
	case TypeEdifactOrders:
		return "edifactOrdersExport"
	case TypeClaims:
		return "claimsExport"
	default:
		return "scheduledExport"
	}
}

// Families returns the distinct export family names across the closed set
// of export types. Tenant teardown iterates these to find every trigger
// group a tenant may own.
func Families() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, t := range []Type{
		TypeBursarFeesFines, TypeCirculationLog, TypeEdifactOrders,
		TypeClaims, TypeEHoldings, TypeAuthUserIDs,
	} {
		f := t.Family()
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// Known reports whether t is one of the closed set of export types.
func (t Type) Known() bool {
	switch t {
	case TypeBursarFeesFines, TypeCirculationLog, TypeEdifactOrders,
		TypeClaims, TypeEHoldings, TypeAuthUserIDs:
		return true
	}
	return false
}
