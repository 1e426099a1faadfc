// Package streamcore provides the session streaming core: a versioned
// envelope protocol carried over server-sent events, with ordering,
// interrupt, and state synchronization guarantees on both sides of the
// wire.
//
// # Architecture
//
// The module is organized around one wire contract and two endpoints:
//
//	┌─────────────────────────────────────┐
//	│          service / producer         │  SSE endpoint per session,
//	│  (HTTP handlers, envelope pacing)   │  interrupt + state endpoints
//	└─────────────────────────────────────┘
//	           ↓ emits
//	┌─────────────────────────────────────┐
//	│            envelope                 │  Typed events, sequence
//	│  (types, payloads, sequencing)      │  numbers, reorder buffer
//	└─────────────────────────────────────┘
//	           ↓ consumed by
//	┌─────────────────────────────────────┐
//	│             client                  │  SSE decode, retry, dedup,
//	│  (connection manager, migration)    │  in-order delivery
//	└─────────────────────────────────────┘
//
// Every event crosses the wire as an envelope with a closed event type,
// a per-session sequence number contiguous from zero, and a semver
// schema version. The client reorders out-of-sequence envelopes, flushes
// stranded ones when the stream ends, deduplicates replayed state
// deltas, and migrates envelopes across schema versions before delivery.
//
// # Packages
//
// Wire contract:
//   - envelope: event types, envelope construction and parsing, payload
//     definitions, and the sequencing buffer
//   - schema: semver compatibility checks and version migration with
//     extension preservation
//
// Server side:
//   - service: HTTP endpoints (SSE stream, interrupt, state, health,
//     metrics)
//   - producer: turns one analysis document into a paced envelope stream
//   - session: per-session registry binding sequence counter, interrupt
//     controller, and state
//   - interrupt: stream ordinals, confidence scoring, interrupt
//     isolation, reveal gates
//   - events: NATS fan-out of every emitted envelope
//
// Client side:
//   - client: SSE connection manager with retry, reordering, dedup,
//     abort, and schema migration hooks
//   - statesync: optimistic state updates with canonical-JSON checksums
//     and conflict resolution
//
// Infrastructure:
//   - config: YAML configuration with environment overrides
//   - errors: error classification and wire error codes
//   - metric: Prometheus metrics
//   - pkg/retry, pkg/cache: small reusable utilities
//
// # Binary
//
// cmd/streamd serves the endpoints with a built-in echo source:
//
//	./bin/streamd --config configs/streamd.yaml
//	curl -N -X POST localhost:8080/v1/sessions/demo/stream \
//	    -d '{"user_input": "hello"}'
package streamcore
