package envelope

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	env, err := New(TextContent, 3, TextContentPayload{Content: "hi"})
	require.NoError(t, err)

	assert.NotEmpty(t, env.EventID)
	assert.Len(t, env.EventID, 36) // UUID format
	assert.Equal(t, DefaultSchemaVersion, env.SchemaVersion)
	assert.Equal(t, TextContent, env.Type)
	assert.Equal(t, 3, env.SequenceNumber)
	assert.InDelta(t, time.Now().UnixMilli(), env.Timestamp, 1000)
	assert.Empty(t, env.ParentEventID)
	assert.Nil(t, env.Context)
}

func TestNew_Options(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	env, err := New(TextContent, 1, TextContentPayload{Content: "x"},
		WithParent("parent-id"),
		WithStreamID(18),
		WithTimestamp(ts),
		WithSchemaVersion("2.1.0"),
	)
	require.NoError(t, err)

	assert.Equal(t, "parent-id", env.ParentEventID)
	assert.Equal(t, ts.UnixMilli(), env.Timestamp)
	assert.Equal(t, "2.1.0", env.SchemaVersion)

	id, ok := env.StreamID()
	assert.True(t, ok)
	assert.Equal(t, 18, id)
}

func TestEnvelope_Validate(t *testing.T) {
	valid, err := New(Ack, 0, AckPayload{EventID: "e1"})
	require.NoError(t, err)
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Envelope)
	}{
		{"missing event_id", func(e *Envelope) { e.EventID = "" }},
		{"missing schema_version", func(e *Envelope) { e.SchemaVersion = "" }},
		{"unknown type", func(e *Envelope) { e.Type = "NOT_A_TYPE" }},
		{"missing timestamp", func(e *Envelope) { e.Timestamp = 0 }},
		{"negative sequence", func(e *Envelope) { e.SequenceNumber = -1 }},
		{"missing data", func(e *Envelope) { e.Data = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := New(Ack, 0, AckPayload{EventID: "e1"})
			require.NoError(t, err)
			tt.mutate(env)
			assert.Error(t, env.Validate())
		})
	}
}

func TestEventType_IsValid(t *testing.T) {
	for _, typ := range Types() {
		assert.True(t, typ.IsValid(), typ)
	}
	assert.False(t, EventType("TEXT_MESSAGE").IsValid())
	assert.False(t, EventType("").IsValid())
	assert.Len(t, Types(), 12)
}

func TestEventType_IsTerminal(t *testing.T) {
	assert.True(t, ResponseComplete.IsTerminal())
	assert.True(t, Error.IsTerminal())
	assert.False(t, TextContent.IsTerminal())
	assert.False(t, StateDelta.IsTerminal())
}

func TestParse_RoundTrip(t *testing.T) {
	orig, err := New(StateDelta, 4, StateDeltaPayload{
		Version:   2,
		Timestamp: 1700000000000,
		Operations: []PatchOp{
			{Op: "replace", Path: "/rapport/confidence", Value: 55},
		},
	}, WithStreamID(7))
	require.NoError(t, err)

	wire, err := json.Marshal(orig)
	require.NoError(t, err)

	parsed, err := Parse(wire)
	require.NoError(t, err)

	assert.Equal(t, orig.EventID, parsed.EventID)
	assert.Equal(t, orig.SequenceNumber, parsed.SequenceNumber)
	assert.Equal(t, StateDelta, parsed.Type)

	// Stream tag survives the trip through JSON float64 decoding
	id, ok := parsed.StreamID()
	assert.True(t, ok)
	assert.Equal(t, 7, id)

	payload, err := DataAs[StateDeltaPayload](parsed)
	require.NoError(t, err)
	require.Len(t, payload.Operations, 1)
	assert.Equal(t, "replace", payload.Operations[0].Op)
	assert.Equal(t, "/rapport/confidence", payload.Operations[0].Path)
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte("not json"))
	assert.Error(t, err)

	// Valid JSON but invalid envelope
	_, err = Parse([]byte(`{"event_id":"x"}`))
	assert.Error(t, err)
}

func TestStreamID_Absent(t *testing.T) {
	env, err := New(TextContent, 0, TextContentPayload{Content: "x"})
	require.NoError(t, err)

	_, ok := env.StreamID()
	assert.False(t, ok)
}

func TestDataAs_WrongShape(t *testing.T) {
	env, err := New(TextContent, 0, TextContentPayload{Content: "x"})
	require.NoError(t, err)
	env.Data = json.RawMessage(`[1,2,3]`)

	_, err = DataAs[TextContentPayload](env)
	assert.Error(t, err)
}

func TestWire_JSONKeys(t *testing.T) {
	env, err := New(TextContent, 2, TextContentPayload{Content: "chunk"},
		WithParent("p1"))
	require.NoError(t, err)

	wire, err := json.Marshal(env)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(wire, &m))

	for _, key := range []string{"event_id", "schema_version", "type", "timestamp", "sequence_number", "parent_event_id", "data"} {
		assert.Contains(t, m, key)
	}
	// context is omitted when empty
	assert.NotContains(t, m, "context")
}
