// Package retry provides exponential backoff retry logic.
//
// The core entry point is Do, which runs an operation until it succeeds,
// the attempt budget is exhausted, or the context is cancelled:
//
//	cfg := retry.Config{MaxAttempts: 5, InitialDelay: time.Second, Multiplier: 2.0}
//	err := retry.Do(ctx, cfg, func() error {
//	    return openTransport()
//	})
//
// Errors wrapped with NonRetryable fail immediately. Context cancellation
// aborts both in-flight waits and future attempts; a cancelled operation is
// never re-run. DoWithResult is the generic variant for operations that
// produce a value.
package retry
