// Package schema provides the schema-versioning and migration layer of
// the streaming protocol.
//
// A Registry maps payload names to declarative Descriptors (required
// fields, typed fields, nested shapes) used to validate envelope payloads
// at ingress. Validation is deliberately lenient about unknown fields;
// forward compatibility is handled by PreserveUnknownFields and the
// generic Open wrapper, which capture unrecognized keys in an extensions
// bag that survives decode/encode cycles.
//
// VersionedValue wraps a payload with its schema version; a Migrator
// upgrades values along chains of registered per-type transforms,
// carrying the extensions bag across every hop.
//
// Version compatibility follows the major-version rule: two versions are
// wire-compatible iff their majors match. A mismatch is reported as a
// SCHEMA_INCOMPATIBLE stream error and never silently coerced.
package schema
