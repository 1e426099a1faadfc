// Package envelope defines the wire unit of the streaming protocol and
// the reordering buffer that restores sequence order on the consumer side.
//
// An Envelope is typed (closed EventType set), versioned (schema_version),
// sequenced (contiguous from 0 per stream), and optionally correlated to a
// parent event via parent_event_id. Payload shapes are discriminated by the
// Type field; DataAs decodes the raw payload into the matching typed
// struct from payloads.go.
//
// The SequencingBuffer accepts envelopes in arbitrary arrival order and
// releases them in sequence-number order:
//
//	buf := envelope.NewSequencingBuffer()
//	for env := range incoming {
//	    for _, ready := range buf.Process(env) {
//	        handle(ready)
//	    }
//	}
//	for _, tail := range buf.Flush() {
//	    handle(tail)
//	}
package envelope
