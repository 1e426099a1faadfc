// Package errors provides standardized error handling patterns for the
// streaming session core.
//
// # Error Classification
//
// The package implements a three-class classification system: Transient
// (temporary, retryable), Invalid (bad input, non-retryable), and Fatal
// (unrecoverable, stop processing). Components use the classification to
// decide between retry, graceful degradation, and failure:
//
//	err := doTransportCall()
//	if errors.IsTransient(err) {
//	    // back off and retry
//	}
//
// Classification integrates with Go's standard error handling: errors.Is,
// errors.As, and wrapping chains all work as expected.
//
// # Wrapping
//
// Errors are wrapped with component context following the pattern
// "component.method: action failed: %w":
//
//	return errors.WrapInvalid(err, "Envelope", "Validate", "missing event_id")
//
// # Stream Errors
//
// Stream-scoped failures carry a wire-visible Code (MISSING_INPUT,
// INVALID_RESPONSE, JSON_PARSE_ERROR, STREAM_ERROR, ...) so they can be
// surfaced to consumers as ERROR envelopes. Use NewStreamError, WrapStream,
// and AsStreamError to construct and recover them. A StreamError terminates
// only the stream it belongs to.
package errors
