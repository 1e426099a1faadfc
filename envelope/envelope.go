package envelope

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mathonsunday/agentic-ui-lab-sub001/errors"
)

// DefaultSchemaVersion is stamped on envelopes produced by this build.
const DefaultSchemaVersion = "1.0.0"

// ContextKeyStreamID is the context key under which an envelope carries
// the ordinal of the stream that produced it.
const ContextKeyStreamID = "stream_id"

// Envelope is the wire unit of the streaming protocol: typed, versioned,
// sequenced, optionally correlated to a parent event.
//
// Envelopes are immutable once emitted. For a fixed stream the sequence
// numbers are unique and contiguous from 0, and ParentEventID (when
// present) references an envelope emitted earlier in the same stream.
// Context is free-form metadata and is never required for correctness.
type Envelope struct {
	EventID        string         `json:"event_id"`
	SchemaVersion  string         `json:"schema_version"`
	Type           EventType      `json:"type"`
	Timestamp      int64          `json:"timestamp"`
	SequenceNumber int            `json:"sequence_number"`
	ParentEventID  string         `json:"parent_event_id,omitempty"`
	Context        map[string]any `json:"context,omitempty"`
	Data           json.RawMessage `json:"data"`
}

// Option is a functional option for configuring envelope construction.
type Option func(*Envelope)

// WithParent sets the parent event correlation.
func WithParent(parentID string) Option {
	return func(e *Envelope) {
		e.ParentEventID = parentID
	}
}

// WithContext attaches free-form metadata.
func WithContext(ctx map[string]any) Option {
	return func(e *Envelope) {
		e.Context = ctx
	}
}

// WithStreamID tags the envelope with the producing stream's ordinal.
func WithStreamID(ordinal int) Option {
	return func(e *Envelope) {
		if e.Context == nil {
			e.Context = make(map[string]any, 1)
		}
		e.Context[ContextKeyStreamID] = ordinal
	}
}

// WithTimestamp sets a specific creation instant instead of time.Now().
// Useful for testing and replay.
func WithTimestamp(ts time.Time) Option {
	return func(e *Envelope) {
		e.Timestamp = ts.UnixMilli()
	}
}

// WithSchemaVersion overrides the default schema version stamp.
func WithSchemaVersion(version string) Option {
	return func(e *Envelope) {
		e.SchemaVersion = version
	}
}

// New creates an envelope of the given type and sequence number. The data
// payload is marshalled immediately so the envelope is self-contained and
// immutable from this point on.
func New(typ EventType, seq int, data any, opts ...Option) (*Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Envelope", "New", "payload marshal")
	}

	e := &Envelope{
		EventID:        uuid.New().String(),
		SchemaVersion:  DefaultSchemaVersion,
		Type:           typ,
		Timestamp:      time.Now().UnixMilli(),
		SequenceNumber: seq,
		Data:           raw,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Validate checks the required envelope fields.
func (e *Envelope) Validate() error {
	if e.EventID == "" {
		return errors.WrapInvalid(errors.ErrInvalidEnvelope, "Envelope", "Validate", "missing event_id")
	}
	if e.SchemaVersion == "" {
		return errors.WrapInvalid(errors.ErrInvalidEnvelope, "Envelope", "Validate", "missing schema_version")
	}
	if !e.Type.IsValid() {
		return errors.WrapInvalid(errors.ErrUnknownEventType, "Envelope", "Validate",
			fmt.Sprintf("unknown type %q", e.Type))
	}
	if e.Timestamp <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidEnvelope, "Envelope", "Validate", "missing timestamp")
	}
	if e.SequenceNumber < 0 {
		return errors.WrapInvalid(errors.ErrInvalidEnvelope, "Envelope", "Validate",
			fmt.Sprintf("negative sequence_number %d", e.SequenceNumber))
	}
	if len(e.Data) == 0 {
		return errors.WrapInvalid(errors.ErrInvalidEnvelope, "Envelope", "Validate", "missing data")
	}
	return nil
}

// StreamID returns the producing stream's ordinal from the context tag.
// Returns -1 and false when the envelope carries no stream tag.
func (e *Envelope) StreamID() (int, bool) {
	if e.Context == nil {
		return -1, false
	}
	switch v := e.Context[ContextKeyStreamID].(type) {
	case int:
		return v, true
	case float64:
		// JSON numbers decode as float64
		return int(v), true
	default:
		return -1, false
	}
}

// Parse decodes a single JSON-serialized envelope and validates it.
func Parse(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, errors.WrapInvalid(err, "Envelope", "Parse", "unmarshal")
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}

// DataAs decodes the envelope payload into the typed payload T.
func DataAs[T any](e *Envelope) (T, error) {
	var out T
	if err := json.Unmarshal(e.Data, &out); err != nil {
		return out, errors.WrapInvalid(err, "Envelope", "DataAs", "payload decode")
	}
	return out, nil
}
