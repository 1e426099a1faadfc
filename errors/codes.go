package errors

import "errors"

// Code identifies a stream-level failure condition. Codes are carried in
// ERROR envelopes so consumers can react without parsing message text.
type Code string

const (
	// CodeMissingFields indicates a malformed request body. Fatal for the
	// stream, never retried.
	CodeMissingFields Code = "MISSING_FIELDS"
	// CodeMissingInput indicates the request carried no user input.
	CodeMissingInput Code = "MISSING_INPUT"
	// CodeServerConfig indicates a missing external dependency
	// configuration on the server.
	CodeServerConfig Code = "SERVER_CONFIG_ERROR"
	// CodeInvalidResponse indicates the text-generation source produced
	// output with no usable analysis object.
	CodeInvalidResponse Code = "INVALID_RESPONSE"
	// CodeJSONParse indicates the extracted analysis span was not valid JSON.
	CodeJSONParse Code = "JSON_PARSE_ERROR"
	// CodeStreamError covers any uncaught failure during stream processing.
	CodeStreamError Code = "STREAM_ERROR"
	// CodeSchemaIncompatible indicates a schema major-version mismatch.
	// This is a protocol-level condition, distinct from payload errors,
	// and non-fatal by default.
	CodeSchemaIncompatible Code = "SCHEMA_INCOMPATIBLE"
)

// StreamError is a stream-scoped failure with a wire-visible code.
// It terminates only the stream it belongs to; the session and any
// subsequent streams are unaffected.
type StreamError struct {
	Code        Code
	Message     string
	Recoverable bool
	Cause       error
}

// Error implements the error interface
func (se *StreamError) Error() string {
	if se.Message != "" {
		return string(se.Code) + ": " + se.Message
	}
	return string(se.Code)
}

// Unwrap returns the underlying cause, if any
func (se *StreamError) Unwrap() error {
	return se.Cause
}

// NewStreamError creates a StreamError with the given code and message.
func NewStreamError(code Code, message string) *StreamError {
	return &StreamError{Code: code, Message: message, Recoverable: code == CodeSchemaIncompatible}
}

// WrapStream wraps an underlying cause as a StreamError. The message is
// the cause's text, per the STREAM_ERROR contract.
func WrapStream(code Code, cause error) *StreamError {
	if cause == nil {
		return &StreamError{Code: code}
	}
	return &StreamError{Code: code, Message: cause.Error(), Cause: cause}
}

// AsStreamError extracts a StreamError from an error chain. When the chain
// carries no StreamError, the error is folded into a STREAM_ERROR whose
// message is the underlying cause.
func AsStreamError(err error) *StreamError {
	if err == nil {
		return nil
	}
	var se *StreamError
	if errors.As(err, &se) {
		return se
	}
	return WrapStream(CodeStreamError, err)
}
