package schema

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/mathonsunday/agentic-ui-lab-sub001/errors"
)

// VersionedValue wraps an arbitrary payload for schema evolution. The
// Extensions bag holds fields unknown to the current schema version,
// preserved verbatim so an older consumer does not lose a newer
// producer's data and a newer consumer can still read older payloads.
type VersionedValue struct {
	Version    string         `json:"version"`
	Timestamp  int64          `json:"timestamp"`
	Data       any            `json:"data"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// VersionType wraps a payload as a VersionedValue stamped with the given
// schema version.
func VersionType(data any, version string) VersionedValue {
	return VersionedValue{
		Version:   version,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// ExtractData degrades gracefully: a VersionedValue yields its Data, a
// raw unversioned value is returned unchanged, and nil passes through
// rather than raising.
func ExtractData(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case VersionedValue:
		return v.Data
	case *VersionedValue:
		if v == nil {
			return nil
		}
		return v.Data
	default:
		return value
	}
}

// PreserveUnknownFields partitions data into known fields plus an
// "extensions" bag holding everything else. The extensions key is omitted
// entirely when no unknown fields exist. This is the forward-compatibility
// mechanism: a producer may add fields a consumer's schema does not yet
// recognize, and that consumer must still round-trip them.
func PreserveUnknownFields(data map[string]any, known []string) map[string]any {
	if data == nil {
		return nil
	}

	knownSet := make(map[string]struct{}, len(known))
	for _, k := range known {
		knownSet[k] = struct{}{}
	}

	out := make(map[string]any, len(data))
	var extensions map[string]any
	for k, v := range data {
		if _, ok := knownSet[k]; ok {
			out[k] = v
		} else {
			if extensions == nil {
				extensions = make(map[string]any)
			}
			extensions[k] = v
		}
	}

	if extensions != nil {
		out["extensions"] = extensions
	}
	return out
}

// Compatible reports whether two schema versions are wire-compatible:
// equal major versions. A major mismatch is a hard incompatibility and is
// reported, never silently coerced; minor and patch differences are
// always compatible and resolved via migration.
func Compatible(a, b string) (bool, error) {
	va, err := semver.NewVersion(a)
	if err != nil {
		return false, errors.WrapInvalid(err, "schema", "Compatible", "parse version "+a)
	}
	vb, err := semver.NewVersion(b)
	if err != nil {
		return false, errors.WrapInvalid(err, "schema", "Compatible", "parse version "+b)
	}
	return va.Major() == vb.Major(), nil
}

// CheckCompatible returns a SCHEMA_INCOMPATIBLE stream error on a major
// version mismatch, distinguishing protocol-level mismatches from payload
// errors.
func CheckCompatible(produced, consumed string) error {
	ok, err := Compatible(produced, consumed)
	if err != nil {
		return err
	}
	if !ok {
		return errors.NewStreamError(errors.CodeSchemaIncompatible,
			"schema major version mismatch: produced "+produced+", consumer expects "+consumed)
	}
	return nil
}

// Open is a generic wrapper that decodes the known schema struct T while
// capturing unrecognized top-level keys in Extensions. Unknown keys
// survive a decode-then-encode cycle unchanged.
type Open[T any] struct {
	Known      T
	Extensions map[string]any
}

// UnmarshalJSON decodes known fields into Known and everything else into
// Extensions.
func (o *Open[T]) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &o.Known); err != nil {
		return errors.WrapInvalid(err, "Open", "UnmarshalJSON", "known fields")
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return errors.WrapInvalid(err, "Open", "UnmarshalJSON", "field scan")
	}

	knownKeys, err := fieldKeys(o.Known)
	if err != nil {
		return err
	}

	o.Extensions = nil
	for key, raw := range all {
		if _, ok := knownKeys[key]; ok {
			continue
		}
		if o.Extensions == nil {
			o.Extensions = make(map[string]any)
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return errors.WrapInvalid(err, "Open", "UnmarshalJSON", "extension field "+key)
		}
		o.Extensions[key] = v
	}
	return nil
}

// MarshalJSON merges Extensions back alongside the known fields.
func (o Open[T]) MarshalJSON() ([]byte, error) {
	knownJSON, err := json.Marshal(o.Known)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Open", "MarshalJSON", "known fields")
	}

	if len(o.Extensions) == 0 {
		return knownJSON, nil
	}

	var merged map[string]any
	if err := json.Unmarshal(knownJSON, &merged); err != nil {
		return nil, errors.WrapInvalid(err, "Open", "MarshalJSON", "field merge")
	}
	for k, v := range o.Extensions {
		if _, exists := merged[k]; !exists {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// fieldKeys returns the JSON keys the known type declares. Struct types
// are walked via reflection so an omitempty field counts as known even
// when the incoming value is zero; non-struct types fall back to a
// marshal scan of the value itself.
func fieldKeys(known any) (map[string]struct{}, error) {
	t := reflect.TypeOf(known)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return marshaledKeys(known)
	}

	keys := make(map[string]struct{})
	collectFieldKeys(t, keys)
	return keys, nil
}

// collectFieldKeys walks struct fields, honoring json tags and recursing
// into untagged anonymous embeds the way encoding/json promotes them.
func collectFieldKeys(t reflect.Type, keys map[string]struct{}) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}

		if f.Anonymous && tag == "" {
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				collectFieldKeys(ft, keys)
				continue
			}
		}
		if !f.IsExported() {
			continue
		}

		name, _, _ := strings.Cut(tag, ",")
		if name == "" {
			name = f.Name
		}
		keys[name] = struct{}{}
	}
}

// marshaledKeys derives keys from a marshal of the value, for map-like
// known types with no static field set.
func marshaledKeys(known any) (map[string]struct{}, error) {
	raw, err := json.Marshal(known)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Open", "fieldKeys", "marshal")
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, errors.WrapInvalid(err, "Open", "fieldKeys", "unmarshal")
	}
	keys := make(map[string]struct{}, len(m))
	for k := range m {
		keys[k] = struct{}{}
	}
	return keys, nil
}
