// Package trigger turns export configurations into addressable, cancellable
// recurring triggers in the backing scheduler store.
//
// # Identity
//
// A trigger/job pair is addressed by an [Identity]: the group namespaces per
// tenant and export family ("diku_scheduledExport"), the name is the nested
// schedule id when the export type embeds one, otherwise the configuration
// id. Weekly schedules register one concrete trigger per weekday under the
// same identity, discriminated by [Key].Weekday.
//
// # Lifecycle
//
// The [Manager] evaluates a three-state machine per configuration write:
//
//	Unregistered --apply(enabled)--> Scheduled
//	Scheduled    --apply(enabled)--> Scheduled   (rules replaced in place)
//	Scheduled    --apply(disabled)-> Disabled    (trigger/job pair deleted)
//	Unregistered --apply(disabled)-> Unregistered (no-op)
//
// Applying an unchanged configuration twice yields the same store state.
// Configuration-time validation failures block the write before any store
// mutation; store failures wrap ErrScheduling and are re-raised, never
// swallowed.
package trigger
