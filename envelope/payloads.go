package envelope

// Typed payloads for every event type consumed in this repository. The
// Data field of an envelope decodes into exactly one of these, selected
// by the envelope's Type discriminator (see DataAs).

// TextMessageStartPayload opens a message group.
type TextMessageStartPayload struct {
	MessageID string `json:"message_id"`
	Role      string `json:"role,omitempty"`
}

// TextContentPayload is one incremental content chunk.
type TextContentPayload struct {
	Content string `json:"content"`
}

// TextMessageEndPayload closes a message group.
type TextMessageEndPayload struct {
	MessageID string `json:"message_id"`
}

// PatchOp is a single RFC 6902 operation carried by a STATE_DELTA.
type PatchOp struct {
	Op    string `json:"op"` // add | remove | replace | move | copy | test
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
	From  string `json:"from,omitempty"`
}

// StateDeltaPayload is the STATE_DELTA wire shape.
type StateDeltaPayload struct {
	Version    int            `json:"version"`
	Timestamp  int64          `json:"timestamp"`
	Operations []PatchOp      `json:"operations"`
	FullState  map[string]any `json:"full_state,omitempty"`
}

// RapportUpdatePayload is an incremental confidence adjustment tagged
// with the ordinal of the stream it belongs to.
type RapportUpdatePayload struct {
	StreamID int `json:"stream_id"`
	Delta    int `json:"delta"`
}

// ToolCallStartPayload announces a tool invocation.
type ToolCallStartPayload struct {
	CallID string `json:"call_id"`
	Name   string `json:"name"`
	Input  any    `json:"input,omitempty"`
}

// ToolCallResultPayload carries a tool invocation result.
type ToolCallResultPayload struct {
	CallID string `json:"call_id"`
	Output any    `json:"output,omitempty"`
	IsErr  bool   `json:"is_error,omitempty"`
}

// ToolCallEndPayload closes a tool invocation group.
type ToolCallEndPayload struct {
	CallID string `json:"call_id"`
}

// ErrorPayload is the ERROR wire shape from the stream error taxonomy.
type ErrorPayload struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	Recoverable bool   `json:"recoverable"`
}

// AckPayload acknowledges a client-originated action.
type AckPayload struct {
	EventID string `json:"event_id"`
}

// AnalysisCompletePayload signals that response analysis finished.
type AnalysisCompletePayload struct {
	Confidence int `json:"confidence"`
}

// ResponseCompletePayload is the terminal success payload.
type ResponseCompletePayload struct {
	MessageID  string `json:"message_id,omitempty"`
	Confidence int    `json:"confidence"`
}
