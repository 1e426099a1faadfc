package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterGet(t *testing.T) {
	r := NewRegistry()

	d := Descriptor{
		Required: []string{"content"},
		Fields:   map[string]Field{"content": {Type: FieldString}},
	}
	r.Register("text_content", d)

	got, ok := r.Get("text_content")
	assert.True(t, ok)
	assert.Equal(t, d.Required, got.Required)

	_, ok = r.Get("missing")
	assert.False(t, ok)

	assert.Contains(t, r.Names(), "text_content")
}

func TestRegistry_Validate(t *testing.T) {
	r := NewRegistry()
	r.Register("state_delta", Descriptor{
		Required: []string{"version", "operations"},
		Fields: map[string]Field{
			"version":    {Type: FieldNumber},
			"timestamp":  {Type: FieldNumber},
			"operations": {Type: FieldArray},
			"full_state": {Type: FieldObject},
		},
	})

	t.Run("valid", func(t *testing.T) {
		errs, err := r.Validate("state_delta", map[string]any{
			"version":    float64(1),
			"operations": []any{},
		})
		require.NoError(t, err)
		assert.Empty(t, errs)
	})

	t.Run("missing required", func(t *testing.T) {
		errs, err := r.Validate("state_delta", map[string]any{"version": float64(1)})
		require.NoError(t, err)
		require.Len(t, errs, 1)
		assert.Equal(t, "operations", errs[0].Field)
		assert.Equal(t, "required", errs[0].Code)
	})

	t.Run("wrong type", func(t *testing.T) {
		errs, err := r.Validate("state_delta", map[string]any{
			"version":    "one",
			"operations": []any{},
		})
		require.NoError(t, err)
		require.Len(t, errs, 1)
		assert.Equal(t, "type", errs[0].Code)
	})

	t.Run("unknown fields allowed", func(t *testing.T) {
		errs, err := r.Validate("state_delta", map[string]any{
			"version":    float64(1),
			"operations": []any{},
			"new_field":  "whatever",
		})
		require.NoError(t, err)
		assert.Empty(t, errs)
	})

	t.Run("unregistered schema", func(t *testing.T) {
		_, err := r.Validate("nope", map[string]any{})
		assert.Error(t, err)
	})
}

func TestRegistry_NestedValidation(t *testing.T) {
	r := NewRegistry()
	r.Register("wrapped", Descriptor{
		Required: []string{"inner"},
		Fields: map[string]Field{
			"inner": {Type: FieldObject, Nested: &Descriptor{
				Required: []string{"id"},
				Fields:   map[string]Field{"id": {Type: FieldString}},
			}},
		},
	})

	errs, err := r.Validate("wrapped", map[string]any{
		"inner": map[string]any{"other": 1},
	})
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "inner.id", errs[0].Field)
}

func TestVersionType(t *testing.T) {
	v := VersionType(map[string]any{"a": 1}, "1.2.0")
	assert.Equal(t, "1.2.0", v.Version)
	assert.NotZero(t, v.Timestamp)
	assert.Equal(t, map[string]any{"a": 1}, v.Data)
	assert.Nil(t, v.Extensions)
}

func TestExtractData(t *testing.T) {
	v := VersionType("payload", "1.0.0")

	assert.Equal(t, "payload", ExtractData(v))
	assert.Equal(t, "payload", ExtractData(&v))
	assert.Equal(t, "raw", ExtractData("raw"))
	assert.Equal(t, 42, ExtractData(42))
	assert.Nil(t, ExtractData(nil))
	assert.Nil(t, ExtractData((*VersionedValue)(nil)))
}

func TestPreserveUnknownFields(t *testing.T) {
	data := map[string]any{"a": 1, "b": 2, "c": 3}

	t.Run("unknown fields move to extensions", func(t *testing.T) {
		out := PreserveUnknownFields(data, []string{"a", "b"})
		assert.Equal(t, 1, out["a"])
		assert.Equal(t, 2, out["b"])
		ext, ok := out["extensions"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, map[string]any{"c": 3}, ext)
	})

	t.Run("no extensions key when all known", func(t *testing.T) {
		out := PreserveUnknownFields(data, []string{"a", "b", "c"})
		assert.NotContains(t, out, "extensions")
		assert.Len(t, out, 3)
	})

	t.Run("nil passes through", func(t *testing.T) {
		assert.Nil(t, PreserveUnknownFields(nil, []string{"a"}))
	})
}

func TestCompatible(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"1.0.0", "1.0.0", true},
		{"1.0.0", "1.9.3", true},
		{"1.2.3", "1.2.4", true},
		{"1.0.0", "2.0.0", false},
		{"0.9.0", "1.0.0", false},
	}

	for _, tt := range tests {
		got, err := Compatible(tt.a, tt.b)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s vs %s", tt.a, tt.b)
	}

	_, err := Compatible("not-a-version", "1.0.0")
	assert.Error(t, err)
}

func TestCheckCompatible(t *testing.T) {
	assert.NoError(t, CheckCompatible("1.4.0", "1.0.0"))

	err := CheckCompatible("2.0.0", "1.0.0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SCHEMA_INCOMPATIBLE")
}

func TestMigrator_NoOpAtTarget(t *testing.T) {
	m := NewMigrator()
	v := VersionType("data", "1.0.0")

	out, err := m.Migrate("thing", v, "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, v, out)
}

func TestMigrator_SingleHop(t *testing.T) {
	m := NewMigrator()
	m.Register("thing", "1.0.0", "1.1.0", func(data any) (any, error) {
		d := data.(map[string]any)
		d["renamed"] = d["old"]
		delete(d, "old")
		return d, nil
	})

	v := VersionType(map[string]any{"old": "x"}, "1.0.0")
	out, err := m.Migrate("thing", v, "1.1.0")
	require.NoError(t, err)

	assert.Equal(t, "1.1.0", out.Version)
	assert.Equal(t, "x", out.Data.(map[string]any)["renamed"])
}

func TestMigrator_ChainPreservesExtensions(t *testing.T) {
	m := NewMigrator()
	m.Register("thing", "1.0.0", "1.1.0", func(data any) (any, error) { return data, nil })
	m.Register("thing", "1.1.0", "1.2.0", func(data any) (any, error) { return data, nil })

	v := VersionedValue{
		Version:    "1.0.0",
		Timestamp:  123,
		Data:       "d",
		Extensions: map[string]any{"future_field": true},
	}

	out, err := m.Migrate("thing", v, "1.2.0")
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", out.Version)
	assert.Equal(t, int64(123), out.Timestamp)
	assert.Equal(t, map[string]any{"future_field": true}, out.Extensions)
}

func TestMigrator_NoPath(t *testing.T) {
	m := NewMigrator()
	m.Register("thing", "1.0.0", "1.1.0", func(data any) (any, error) { return data, nil })

	_, err := m.Migrate("thing", VersionType("d", "1.0.0"), "9.9.9")
	assert.Error(t, err)

	_, err = m.Migrate("unregistered", VersionType("d", "1.0.0"), "1.1.0")
	assert.Error(t, err)
}

type knownSchema struct {
	A int    `json:"a"`
	B string `json:"b"`
}

func TestOpen_RoundTripUnknownKeys(t *testing.T) {
	in := []byte(`{"a":1,"b":"two","c":3,"nested":{"x":true}}`)

	var o Open[knownSchema]
	require.NoError(t, json.Unmarshal(in, &o))

	assert.Equal(t, 1, o.Known.A)
	assert.Equal(t, "two", o.Known.B)
	require.NotNil(t, o.Extensions)
	assert.Equal(t, float64(3), o.Extensions["c"])
	assert.Equal(t, map[string]any{"x": true}, o.Extensions["nested"])

	out, err := json.Marshal(o)
	require.NoError(t, err)

	var inMap, outMap map[string]any
	require.NoError(t, json.Unmarshal(in, &inMap))
	require.NoError(t, json.Unmarshal(out, &outMap))
	assert.Equal(t, inMap, outMap)
}

func TestOpen_NoExtensions(t *testing.T) {
	in := []byte(`{"a":5,"b":"only-known"}`)

	var o Open[knownSchema]
	require.NoError(t, json.Unmarshal(in, &o))
	assert.Nil(t, o.Extensions)

	out, err := json.Marshal(o)
	require.NoError(t, err)
	assert.JSONEq(t, string(in), string(out))
}

type optionalSchema struct {
	Name  string `json:"name,omitempty"`
	Count int    `json:"count,omitempty"`
	Skip  string `json:"-"`
}

func TestOpen_ZeroOmitemptyFieldsStayKnown(t *testing.T) {
	// name is declared but zero; it must not land in Extensions
	in := []byte(`{"name":"","count":0,"future":"x"}`)

	var o Open[optionalSchema]
	require.NoError(t, json.Unmarshal(in, &o))

	assert.Equal(t, "", o.Known.Name)
	assert.Equal(t, 0, o.Known.Count)
	require.NotNil(t, o.Extensions)
	assert.Equal(t, map[string]any{"future": "x"}, o.Extensions)
}

type embeddedSchema struct {
	knownSchema
	Extra string `json:"extra"`
}

func TestOpen_PromotedEmbeddedFieldsKnown(t *testing.T) {
	in := []byte(`{"a":1,"b":"two","extra":"e","unknown":true}`)

	var o Open[embeddedSchema]
	require.NoError(t, json.Unmarshal(in, &o))

	assert.Equal(t, 1, o.Known.A)
	assert.Equal(t, "e", o.Known.Extra)
	assert.Equal(t, map[string]any{"unknown": true}, o.Extensions)
}
