package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClass_String(t *testing.T) {
	assert.Equal(t, "transient", ErrorTransient.String())
	assert.Equal(t, "invalid", ErrorInvalid.String())
	assert.Equal(t, "fatal", ErrorFatal.String())
	assert.Equal(t, "unknown", ErrorClass(99).String())
}

func TestWrap(t *testing.T) {
	base := stderrors.New("boom")
	err := Wrap(base, "Manager", "Stream", "transport open")

	require.Error(t, err)
	assert.Equal(t, "Manager.Stream: transport open failed: boom", err.Error())
	assert.True(t, stderrors.Is(err, base))

	assert.NoError(t, Wrap(nil, "Manager", "Stream", "anything"))
}

func TestWrapClassified(t *testing.T) {
	base := stderrors.New("boom")

	tests := []struct {
		name  string
		wrap  func(error, string, string, string) error
		class ErrorClass
	}{
		{"transient", WrapTransient, ErrorTransient},
		{"invalid", WrapInvalid, ErrorInvalid},
		{"fatal", WrapFatal, ErrorFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.wrap(base, "Comp", "Method", "action")
			require.Error(t, err)

			var ce *ClassifiedError
			require.True(t, stderrors.As(err, &ce))
			assert.Equal(t, tt.class, ce.Class)
			assert.Equal(t, "Comp", ce.Component)
			assert.True(t, stderrors.Is(err, base))

			assert.NoError(t, tt.wrap(nil, "Comp", "Method", "action"))
		})
	}
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.True(t, IsTransient(ErrConnectionLost))
	assert.True(t, IsTransient(ErrConnectionTimeout))
	assert.True(t, IsTransient(context.DeadlineExceeded))
	assert.True(t, IsTransient(stderrors.New("dial tcp: connection refused")))
	assert.False(t, IsTransient(ErrInvalidEnvelope))
	assert.False(t, IsTransient(WrapInvalid(stderrors.New("timeout-ish name"), "C", "M", "a")))
}

func TestIsInvalid(t *testing.T) {
	assert.True(t, IsInvalid(ErrParsingFailed))
	assert.True(t, IsInvalid(ErrSchemaIncompatible))
	assert.True(t, IsInvalid(fmt.Errorf("outer: %w", ErrInvalidEnvelope)))
	assert.False(t, IsInvalid(ErrConnectionLost))
	assert.False(t, IsInvalid(nil))
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(ErrMissingConfig))
	assert.True(t, IsFatal(ErrMaxRetriesExceeded))
	assert.False(t, IsFatal(ErrConnectionLost))
	assert.False(t, IsFatal(nil))
}

func TestIsAbort(t *testing.T) {
	assert.True(t, IsAbort(context.Canceled))
	assert.True(t, IsAbort(ErrStreamAborted))
	assert.True(t, IsAbort(fmt.Errorf("read loop: %w", ErrStreamAborted)))
	assert.False(t, IsAbort(ErrConnectionLost))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ErrorTransient, Classify(ErrConnectionLost))
	assert.Equal(t, ErrorInvalid, Classify(ErrParsingFailed))
	assert.Equal(t, ErrorFatal, Classify(ErrMissingConfig))
	// Unknown errors default to transient so callers may retry
	assert.Equal(t, ErrorTransient, Classify(stderrors.New("mystery")))
}

func TestShouldRetry(t *testing.T) {
	rc := DefaultRetryConfig()

	assert.True(t, rc.ShouldRetry(ErrConnectionLost, 0))
	assert.False(t, rc.ShouldRetry(ErrConnectionLost, rc.MaxRetries))
	assert.False(t, rc.ShouldRetry(nil, 0))
	assert.False(t, rc.ShouldRetry(ErrInvalidEnvelope, 0))
	// Cancellation is never retried even though context errors look transient
	assert.False(t, rc.ShouldRetry(context.Canceled, 0))
}

func TestBackoffDelay(t *testing.T) {
	rc := RetryConfig{
		MaxRetries:    5,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      1 * time.Second,
		BackoffFactor: 2.0,
	}

	assert.Equal(t, 100*time.Millisecond, rc.BackoffDelay(0))
	assert.Equal(t, 200*time.Millisecond, rc.BackoffDelay(1))
	assert.Equal(t, 400*time.Millisecond, rc.BackoffDelay(2))
	// Capped at MaxDelay
	assert.Equal(t, 1*time.Second, rc.BackoffDelay(10))
}

func TestStreamError(t *testing.T) {
	se := NewStreamError(CodeMissingInput, "userInput is required")
	assert.Equal(t, "MISSING_INPUT: userInput is required", se.Error())
	assert.False(t, se.Recoverable)

	// Schema incompatibility is recoverable by default
	assert.True(t, NewStreamError(CodeSchemaIncompatible, "v2 vs v1").Recoverable)
}

func TestWrapStream(t *testing.T) {
	cause := stderrors.New("unexpected EOF")
	se := WrapStream(CodeStreamError, cause)

	assert.Equal(t, CodeStreamError, se.Code)
	assert.Equal(t, "unexpected EOF", se.Message)
	assert.True(t, stderrors.Is(se, cause))
}

func TestAsStreamError(t *testing.T) {
	assert.Nil(t, AsStreamError(nil))

	se := NewStreamError(CodeJSONParse, "bad span")
	wrapped := fmt.Errorf("producer: %w", se)
	assert.Same(t, se, AsStreamError(wrapped))

	// Arbitrary errors fold into STREAM_ERROR with the cause as message
	folded := AsStreamError(stderrors.New("boom"))
	assert.Equal(t, CodeStreamError, folded.Code)
	assert.Equal(t, "boom", folded.Message)
}
