package envelope

// EventType discriminates the payload carried by an envelope. The set is
// closed: consumers switch exhaustively over these values and treat
// anything else as invalid at ingress.
type EventType string

const (
	// TextMessageStart opens a logical text message group.
	TextMessageStart EventType = "TEXT_MESSAGE_START"
	// TextContent carries one incremental content chunk. Its
	// parent_event_id references the TEXT_MESSAGE_START that opened it.
	TextContent EventType = "TEXT_CONTENT"
	// TextMessageEnd closes a logical text message group.
	TextMessageEnd EventType = "TEXT_MESSAGE_END"
	// ResponseComplete is the terminal success event for a stream.
	ResponseComplete EventType = "RESPONSE_COMPLETE"
	// StateDelta carries JSON-Patch-shaped state operations.
	StateDelta EventType = "STATE_DELTA"
	// RapportUpdate carries an incremental confidence adjustment.
	RapportUpdate EventType = "RAPPORT_UPDATE"
	// ToolCallStart announces the start of a tool invocation.
	ToolCallStart EventType = "TOOL_CALL_START"
	// ToolCallResult carries a tool invocation result.
	ToolCallResult EventType = "TOOL_CALL_RESULT"
	// ToolCallEnd closes a tool invocation group.
	ToolCallEnd EventType = "TOOL_CALL_END"
	// Error is the terminal failure event for a stream.
	Error EventType = "ERROR"
	// Ack acknowledges receipt of a client-originated action.
	Ack EventType = "ACK"
	// AnalysisComplete signals that response analysis finished.
	AnalysisComplete EventType = "ANALYSIS_COMPLETE"
)

// allTypes is the authoritative membership set for IsValid.
var allTypes = map[EventType]struct{}{
	TextMessageStart: {},
	TextContent:      {},
	TextMessageEnd:   {},
	ResponseComplete: {},
	StateDelta:       {},
	RapportUpdate:    {},
	ToolCallStart:    {},
	ToolCallResult:   {},
	ToolCallEnd:      {},
	Error:            {},
	Ack:              {},
	AnalysisComplete: {},
}

// IsValid reports whether t is a member of the closed event type set.
func (t EventType) IsValid() bool {
	_, ok := allTypes[t]
	return ok
}

// String returns the wire representation of the event type.
func (t EventType) String() string {
	return string(t)
}

// IsTerminal reports whether t ends a stream. A well-formed stream closes
// with exactly one terminal envelope.
func (t EventType) IsTerminal() bool {
	return t == ResponseComplete || t == Error
}

// Types returns all members of the closed set in declaration order.
func Types() []EventType {
	return []EventType{
		TextMessageStart,
		TextContent,
		TextMessageEnd,
		ResponseComplete,
		StateDelta,
		RapportUpdate,
		ToolCallStart,
		ToolCallResult,
		ToolCallEnd,
		Error,
		Ack,
		AnalysisComplete,
	}
}
