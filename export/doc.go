// Package export defines the closed set of export types, their declarative
// configurations, and the strategy-resolution framework the engine uses to
// stay open for new export types without touching existing ones.
//
// # Resolver framework
//
// Three independent concerns are resolved per export type — parameter
// validation, job-command construction, and configuration mapping — each
// through its own [Resolver]. A resolver is an explicit registration table
// with a single default strategy: resolving an unregistered type silently
// degrades to the default, never fails. Adding an export type means
// registering up to three strategies.
//
// # Commands
//
// A [Command] is the transient message published once per firing; the
// type-specific parameter payload is serialized by a [Codec] (JSON by
// default, MessagePack optionally) and attached under
// [ParamSpecificParameters].
package export
