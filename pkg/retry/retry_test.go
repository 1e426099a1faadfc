package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), DefaultConfig(), func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	cfg := Config{MaxAttempts: 5, InitialDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond, Multiplier: 2.0}

	calls := 0
	err := Do(context.Background(), cfg, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	cfg := Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond, Multiplier: 2.0}

	calls := 0
	base := errors.New("always fails")
	err := Do(context.Background(), cfg, func() error {
		calls++
		return base
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, errors.Is(err, base))
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestDo_NonRetryableFailsImmediately(t *testing.T) {
	cfg := Config{MaxAttempts: 5, InitialDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond, Multiplier: 2.0}

	calls := 0
	base := errors.New("bad request")
	err := Do(context.Background(), cfg, func() error {
		calls++
		return NonRetryable(base)
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, errors.Is(err, base))
	assert.True(t, IsNonRetryable(err))
}

func TestDo_ProgressResetsBudget(t *testing.T) {
	cfg := Config{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond, Multiplier: 2.0}

	// Four progress failures would exhaust a budget of two; each one
	// resets the schedule so the fifth call succeeds.
	calls := 0
	err := Do(context.Background(), cfg, func() error {
		calls++
		if calls < 5 {
			return Progress(errors.New("dropped mid-read"))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 5, calls)
}

func TestDo_ProgressResetsDelay(t *testing.T) {
	cfg := Config{MaxAttempts: 4, InitialDelay: time.Millisecond, MaxDelay: 100 * time.Millisecond, Multiplier: 2.0}

	var delays []time.Duration
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		delays = append(delays, delay)
	}

	calls := 0
	err := Do(context.Background(), cfg, func() error {
		calls++
		switch calls {
		case 1, 2:
			return errors.New("plain")
		case 3:
			return Progress(errors.New("made progress"))
		case 4:
			return errors.New("plain")
		default:
			return nil
		}
	})
	require.NoError(t, err)

	// 1ms, 2ms, then back to 1ms after the progress failure
	require.Len(t, delays, 4)
	assert.Equal(t, time.Millisecond, delays[0])
	assert.Equal(t, 2*time.Millisecond, delays[1])
	assert.Equal(t, time.Millisecond, delays[2])
	assert.Equal(t, 2*time.Millisecond, delays[3])
}

func TestProgress_NilPassthrough(t *testing.T) {
	assert.NoError(t, Progress(nil))

	base := errors.New("boom")
	wrapped := Progress(base)
	assert.True(t, errors.Is(wrapped, base))
}

func TestDo_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := Config{MaxAttempts: 10, InitialDelay: 50 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2.0}

	calls := 0
	err := Do(ctx, cfg, func() error {
		calls++
		cancel()
		return errors.New("transient")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestDo_CancelDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := Config{MaxAttempts: 3, InitialDelay: 5 * time.Second, MaxDelay: 10 * time.Second, Multiplier: 2.0}

	done := make(chan error, 1)
	started := make(chan struct{})
	go func() {
		done <- Do(ctx, cfg, func() error {
			select {
			case <-started:
			default:
				close(started)
			}
			return errors.New("transient")
		})
	}()

	<-started
	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(time.Second):
		t.Fatal("Do did not return promptly after cancellation")
	}
}

func TestDo_OnRetryObservesSchedule(t *testing.T) {
	cfg := Config{MaxAttempts: 4, InitialDelay: time.Millisecond, MaxDelay: 100 * time.Millisecond, Multiplier: 2.0}

	var delays []time.Duration
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		delays = append(delays, delay)
	}

	_ = Do(context.Background(), cfg, func() error { return errors.New("x") })

	// base * 2^(attempt-1): 1ms, 2ms, 4ms
	require.Len(t, delays, 3)
	assert.Equal(t, time.Millisecond, delays[0])
	assert.Equal(t, 2*time.Millisecond, delays[1])
	assert.Equal(t, 4*time.Millisecond, delays[2])
}

func TestDo_InvalidConfig(t *testing.T) {
	err := Do(context.Background(), Config{InitialDelay: -1}, func() error { return nil })
	assert.Error(t, err)

	err = Do(context.Background(), Config{InitialDelay: time.Second, MaxDelay: time.Millisecond}, func() error { return nil })
	assert.Error(t, err)
}

func TestDoWithResult(t *testing.T) {
	cfg := Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond, Multiplier: 2.0}

	calls := 0
	result, err := DoWithResult(context.Background(), cfg, func() (string, error) {
		calls++
		if calls < 2 {
			return "", errors.New("transient")
		}
		return "value", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "value", result)
	assert.Equal(t, 2, calls)
}

func TestDelay(t *testing.T) {
	cfg := Config{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2.0}

	assert.Equal(t, time.Duration(0), Delay(cfg, 1))
	assert.Equal(t, 100*time.Millisecond, Delay(cfg, 2))
	assert.Equal(t, 200*time.Millisecond, Delay(cfg, 3))
	assert.Equal(t, 400*time.Millisecond, Delay(cfg, 4))
	assert.Equal(t, time.Second, Delay(cfg, 10))
}
