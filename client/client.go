// Package client implements the consuming side of the streaming
// protocol: it opens a server-sent-event stream, reorders envelopes,
// deduplicates replayed state deltas, and retries transient transport
// failures with exponential backoff.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/mathonsunday/agentic-ui-lab-sub001/envelope"
	"github.com/mathonsunday/agentic-ui-lab-sub001/errors"
	"github.com/mathonsunday/agentic-ui-lab-sub001/metric"
	"github.com/mathonsunday/agentic-ui-lab-sub001/pkg/retry"
	"github.com/mathonsunday/agentic-ui-lab-sub001/schema"
)

// Handler receives envelopes in strict sequence order.
type Handler func(env *envelope.Envelope)

// MigrateFunc upgrades an envelope produced under an older schema version
// before it enters the sequencing pipeline.
type MigrateFunc func(env *envelope.Envelope) (*envelope.Envelope, error)

// Config controls connection behavior.
type Config struct {
	// Endpoint is the full URL of the stream endpoint.
	Endpoint string
	// HTTPClient is the transport. Defaults to a client with no overall
	// timeout; streams are long-lived and cancelled via context.
	HTTPClient *http.Client
	// Retry governs reconnection. Jitter is always disabled so the delay
	// schedule stays deterministic.
	Retry retry.Config
	// DedupStateDeltas enables per-path suppression of replayed
	// STATE_DELTA operations.
	DedupStateDeltas bool
	// Logger defaults to slog.Default.
	Logger *slog.Logger
	// Metrics, when set, counts dropped frames, suppressed delta
	// operations, and reconnection attempts.
	Metrics *metric.Metrics
}

// DefaultConfig returns the connection defaults.
func DefaultConfig(endpoint string) Config {
	return Config{
		Endpoint: endpoint,
		Retry: retry.Config{
			MaxAttempts:  4,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     8 * time.Second,
			Multiplier:   2.0,
		},
		DedupStateDeltas: true,
	}
}

// Option configures optional connection collaborators.
type Option func(*Connection)

// WithMigrator installs a schema migration hook applied to every
// envelope before sequencing.
func WithMigrator(fn MigrateFunc) Option {
	return func(c *Connection) {
		c.migrate = fn
	}
}

// Connection manages the lifecycle of one logical stream consumer. A
// connection runs at most one stream at a time; Stream blocks until the
// stream terminates, is aborted, or fails permanently.
type Connection struct {
	cfg     Config
	handler Handler
	migrate MigrateFunc
	logger  *slog.Logger

	mu        sync.Mutex
	cancel    context.CancelFunc
	streaming bool
	aborted   bool
	lastErr   error

	buffer *envelope.SequencingBuffer
	filter *deltaFilter
}

// NewConnection creates a connection delivering ordered envelopes to
// handler.
func NewConnection(cfg Config, handler Handler, opts ...Option) *Connection {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	// Deterministic backoff schedule
	cfg.Retry.AddJitter = false

	c := &Connection{
		cfg:     cfg,
		handler: handler,
		logger:  cfg.Logger,
		filter:  newDeltaFilter(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StreamRequest is the body POSTed to open a stream.
type StreamRequest struct {
	SessionID string `json:"session_id"`
	UserInput string `json:"user_input"`
}

// Stream opens the stream and blocks until it ends. Transient transport
// failures are retried on the configured backoff schedule; the
// sequencing buffer survives reconnects so replayed envelopes are
// dropped as duplicates. Returns nil on RESPONSE_COMPLETE, the decoded
// *errors.StreamError on a terminal ERROR envelope, and
// errors.ErrStreamAborted after Abort.
func (c *Connection) Stream(ctx context.Context, req StreamRequest) error {
	c.mu.Lock()
	if c.streaming {
		c.mu.Unlock()
		return errors.WrapInvalid(errors.ErrStreamActive, "Connection", "Stream", "open")
	}
	streamCtx, cancel := context.WithCancel(ctx)
	c.streaming = true
	c.aborted = false
	c.lastErr = nil
	c.cancel = cancel
	c.buffer = envelope.NewSequencingBuffer()
	c.mu.Unlock()

	defer func() {
		cancel()
		c.mu.Lock()
		c.streaming = false
		c.cancel = nil
		c.mu.Unlock()
		c.filter.Reset()
	}()

	body, err := json.Marshal(req)
	if err != nil {
		return errors.WrapInvalid(err, "Connection", "Stream", "request marshal")
	}

	retryCfg := c.cfg.Retry
	retryCfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		if c.cfg.Metrics != nil {
			c.cfg.Metrics.RecordRetry()
		}
		c.logger.Warn("stream reconnecting",
			"attempt", attempt, "delay", delay, "error", err)
	}

	var streamErr *errors.StreamError
	err = retry.Do(streamCtx, retryCfg, func() error {
		se, frames, err := c.consume(streamCtx, body)
		if err != nil {
			if frames > 0 {
				// The connection streamed frames before failing; the next
				// reconnect starts a fresh retry budget.
				return retry.Progress(err)
			}
			return err
		}
		streamErr = se
		return nil
	})

	if err != nil {
		if c.isAborted() {
			err = errors.ErrStreamAborted
		}
		c.setErr(err)
		return err
	}

	if streamErr != nil {
		c.setErr(streamErr)
		return streamErr
	}
	return nil
}

// consume runs one connect-and-read cycle. It returns the stream error
// from a terminal ERROR envelope (nil for success) or a transport error
// eligible for retry, along with the number of frames read before any
// failure so the caller can tell a dead connection from a dropped one.
func (c *Connection) consume(ctx context.Context, body []byte) (*errors.StreamError, int, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, 0, retry.NonRetryable(errors.WrapInvalid(err, "Connection", "consume", "build request"))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.cfg.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, 0, errors.WrapTransient(err, "Connection", "consume", "connect")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status %d", resp.StatusCode)
		if resp.StatusCode >= 500 {
			return nil, 0, errors.WrapTransient(err, "Connection", "consume", "connect")
		}
		return nil, 0, retry.NonRetryable(errors.WrapInvalid(err, "Connection", "consume", "connect"))
	}

	return c.readFrames(ctx, resp.Body)
}

// readFrames decodes SSE frames until a terminal envelope is delivered
// or the body ends. The sequencing buffer is flushed on every clean exit
// so a tail stranded behind a gap is still delivered.
func (c *Connection) readFrames(ctx context.Context, r io.Reader) (*errors.StreamError, int, error) {
	frames := newFrameScanner(r)
	read := 0

	for {
		frame, err := frames.Next()
		if err == io.EOF {
			return c.drainBuffer(), read, nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, read, ctx.Err()
			}
			return nil, read, errors.WrapTransient(err, "Connection", "readFrames", "read")
		}
		read++

		env, err := envelope.Parse(frame)
		if err != nil {
			if c.cfg.Metrics != nil {
				c.cfg.Metrics.RecordFrameDropped(metric.DropMalformed)
			}
			c.logger.Warn("malformed frame skipped", "error", err)
			continue
		}

		if c.migrate != nil {
			migrated, err := c.migrate(env)
			if err != nil {
				// The original envelope still carries the sequence number;
				// dropping it would strand everything behind it.
				c.logger.Warn("envelope migration failed, delivering original",
					"event_id", env.EventID, "schema_version", env.SchemaVersion, "error", err)
			} else {
				env = migrated
			}
		}

		if err := schema.CheckCompatible(env.SchemaVersion, envelope.DefaultSchemaVersion); err != nil {
			// Incompatible majors never kill the stream: the mismatch is
			// reported and the envelope passes through with its original
			// payload.
			c.logger.Warn("incompatible schema version",
				"event_id", env.EventID, "schema_version", env.SchemaVersion)
		}

		if c.cfg.Metrics != nil && env.SequenceNumber < c.buffer.NextExpected() {
			c.cfg.Metrics.RecordFrameDropped(metric.DropDuplicate)
		}

		released := c.buffer.Process(env)
		for i, out := range released {
			terminal, se := c.deliver(out)
			if !terminal {
				continue
			}
			// A reordered batch can release envelopes behind the terminal;
			// deliver them before flushing the stranded tail.
			for _, rest := range released[i+1:] {
				if _, restErr := c.deliver(rest); restErr != nil && se == nil {
					se = restErr
				}
			}
			if tail := c.drainBuffer(); se == nil {
				se = tail
			}
			return se, read, nil
		}
	}
}

// drainBuffer flushes and delivers any envelopes stranded behind a
// sequence gap. Returns the stream error if the tail held a terminal
// ERROR envelope.
func (c *Connection) drainBuffer() *errors.StreamError {
	tail := c.buffer.Flush()
	if len(tail) == 0 {
		return nil
	}

	c.logger.Warn("delivering stranded tail after sequence gap",
		"count", len(tail), "next_expected", c.buffer.NextExpected())

	var streamErr *errors.StreamError
	for _, env := range tail {
		if _, se := c.deliver(env); se != nil {
			streamErr = se
		}
	}
	return streamErr
}

// deliver hands one in-order envelope to the handler. STATE_DELTA
// payloads pass through the duplicate filter first; an envelope whose
// operations are all suppressed is dropped entirely.
func (c *Connection) deliver(env *envelope.Envelope) (terminal bool, streamErr *errors.StreamError) {
	if env.Type == envelope.StateDelta && c.cfg.DedupStateDeltas {
		filtered, ok := c.filterDelta(env)
		if !ok {
			return false, nil
		}
		env = filtered
	}

	c.handler(env)

	if !env.Type.IsTerminal() {
		return false, nil
	}
	if env.Type == envelope.Error {
		payload, err := envelope.DataAs[envelope.ErrorPayload](env)
		if err != nil {
			return true, errors.WrapStream(errors.CodeStreamError, err)
		}
		return true, &errors.StreamError{
			Code:        errors.Code(payload.Code),
			Message:     payload.Message,
			Recoverable: payload.Recoverable,
		}
	}
	return true, nil
}

// filterDelta applies the duplicate filter to a STATE_DELTA envelope.
// Returns false when every operation was suppressed.
func (c *Connection) filterDelta(env *envelope.Envelope) (*envelope.Envelope, bool) {
	payload, err := envelope.DataAs[envelope.StateDeltaPayload](env)
	if err != nil {
		c.logger.Warn("undecodable state delta passed through",
			"event_id", env.EventID, "error", err)
		return env, true
	}

	filtered, suppressed := c.filter.Filter(payload)
	if suppressed == 0 {
		return env, true
	}
	if c.cfg.Metrics != nil {
		c.cfg.Metrics.RecordDedupSuppressed(suppressed)
	}
	c.logger.Debug("duplicate state delta operations suppressed",
		"event_id", env.EventID, "suppressed", suppressed)

	if len(filtered.Operations) == 0 && filtered.FullState == nil {
		return nil, false
	}

	raw, err := json.Marshal(filtered)
	if err != nil {
		return env, true
	}
	clone := *env
	clone.Data = raw
	return &clone, true
}

// Abort tears the active stream down: the read loop is cancelled, the
// in-flight request is abandoned, and the duplicate filter is cleared.
// Safe to call at any time; a no-op when nothing is streaming.
func (c *Connection) Abort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.streaming {
		return
	}
	c.aborted = true
	if c.cancel != nil {
		c.cancel()
	}
	c.filter.Reset()
}

// IsStreaming reports whether a stream is active.
func (c *Connection) IsStreaming() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streaming
}

// Err returns the error that ended the last stream, if any.
func (c *Connection) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Connection) isAborted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aborted
}

func (c *Connection) setErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastErr = err
}
