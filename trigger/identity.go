package trigger

import (
	"fmt"

	dataexport "github.com/folio-org/mod-data-export-spring-sub001"
	"github.com/folio-org/mod-data-export-spring-sub001/export"
)

// Identity addresses one trigger/job pair in the backing store.
//
// Group namespaces triggers per tenant and export family so tenants sharing
// one store can never collide; Name uniquely identifies one pair within the
// group. Re-registering the same Name updates rather than duplicates.
type Identity struct {
	Group string `json:"group"`
	Name  string `json:"name"`
}

// String renders the identity as "group/name" for logs and map keys.
func (i Identity) String() string { return i.Group + "/" + i.Name }

// IsZero reports whether the identity is empty.
func (i Identity) IsZero() bool { return i.Group == "" && i.Name == "" }

// GroupFor builds the trigger group for a tenant and export type.
func GroupFor(tenant string, t export.Type) string {
	return tenant + "_" + t.Family()
}

// ResolveIdentity derives the trigger identity for an export configuration.
// The name is the nested schedule id when the type embeds its own schedule,
// otherwise the configuration id. Pure and deterministic: the same
// configuration always yields the same identity, which idempotent
// re-registration depends on.
//
// Fails with ErrInvalidConfiguration when neither id is present — a trigger
// cannot be addressed without an identity.
func ResolveIdentity(cfg *export.Config) (Identity, error) {
	name := cfg.ScheduleID()
	if name == "" {
		name = cfg.ID
	}
	if name == "" {
		return Identity{}, fmt.Errorf("%w: configuration has neither a schedule id nor an id", dataexport.ErrInvalidConfiguration)
	}
	return Identity{Group: GroupFor(cfg.Tenant, cfg.Type), Name: name}, nil
}
