// Package producer implements the server-side stream producer: it
// consumes an opaque chunk source, assigns monotonically increasing
// sequence numbers, and emits the envelope stream for a single
// request/response exchange.
package producer

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mathonsunday/agentic-ui-lab-sub001/envelope"
	"github.com/mathonsunday/agentic-ui-lab-sub001/errors"
	"github.com/mathonsunday/agentic-ui-lab-sub001/interrupt"
)

// ChunkSource is the external text-generation collaborator, consumed as
// an async sequence of text fragments. Next returns io.EOF when the
// source is exhausted.
type ChunkSource interface {
	Next(ctx context.Context) (string, error)
}

// Emitter receives envelopes as the producer emits them.
type Emitter interface {
	Emit(ctx context.Context, env *envelope.Envelope) error
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(ctx context.Context, env *envelope.Envelope) error

// Emit implements Emitter.
func (f EmitterFunc) Emit(ctx context.Context, env *envelope.Envelope) error {
	return f(ctx, env)
}

// MultiEmitter fans one envelope out to several emitters in order.
func MultiEmitter(emitters ...Emitter) Emitter {
	return EmitterFunc(func(ctx context.Context, env *envelope.Envelope) error {
		for _, e := range emitters {
			if err := e.Emit(ctx, env); err != nil {
				return err
			}
		}
		return nil
	})
}

// Request is one streaming exchange request.
type Request struct {
	SessionID string `json:"session_id"`
	UserInput string `json:"user_input"`
}

// analysis is the JSON object the chunk source is expected to produce.
// Unknown fields are tolerated; only these are consumed.
type analysis struct {
	Response        string     `json:"response"`
	ConfidenceDelta int        `json:"confidenceDelta"`
	ToolCalls       []toolCall `json:"toolCalls,omitempty"`
}

type toolCall struct {
	Name   string `json:"name"`
	Input  any    `json:"input,omitempty"`
	Output any    `json:"output,omitempty"`
}

// Config controls chunking, pacing, and the confidence baseline.
type Config struct {
	// StreamID is the session-assigned ordinal of this stream.
	StreamID int
	// Confidence is the score before this exchange, [0,100].
	Confidence int
	// ChunkSize is the number of runes per TEXT_CONTENT chunk.
	ChunkSize int
	// ChunkDelay paces successive TEXT_CONTENT emissions. Cancellable.
	ChunkDelay time.Duration
	// EmitAnalysis adds an ANALYSIS_COMPLETE envelope once the analysis
	// object has been parsed, before any text is streamed.
	EmitAnalysis bool
	// Gate, when set, is advanced as TEXT_CONTENT chunks go out. Once an
	// interrupt freezes it, content emission halts at the last revealed
	// boundary and Run returns an abort.
	Gate *interrupt.Gate
}

// Result summarizes a successfully completed exchange.
type Result struct {
	MessageID  string
	Confidence int
	ToolCalls  int
}

// DefaultConfig returns the pacing used by the interactive UI.
func DefaultConfig() Config {
	return Config{
		Confidence: 50,
		ChunkSize:  24,
		ChunkDelay: 30 * time.Millisecond,
	}
}

// Producer emits the envelope stream for one exchange. Sequence numbers
// come from the session's Counter so they are unique and contiguous from
// 0 across the producer's lifetime.
type Producer struct {
	seq     *Counter
	emitter Emitter
	cfg     Config
	logger  *slog.Logger
}

// New creates a producer writing to emitter with sequence numbers from seq.
func New(seq *Counter, emitter Emitter, cfg Config, logger *slog.Logger) *Producer {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultConfig().ChunkSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Producer{seq: seq, emitter: emitter, cfg: cfg, logger: logger}
}

// Run processes one exchange end to end. Domain failures are emitted as
// terminal ERROR envelopes and returned as *errors.StreamError; transport
// and cancellation failures are returned directly without an ERROR
// envelope (the envelope channel itself is failing).
func (p *Producer) Run(ctx context.Context, req Request, source ChunkSource) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			se := errors.WrapStream(errors.CodeStreamError, fmt.Errorf("panic: %v", r))
			p.logger.Error("stream processing panic", "session_id", req.SessionID, "panic", r)
			_ = p.emitError(ctx, se)
			result, err = nil, se
		}
	}()

	if req.UserInput == "" {
		se := errors.NewStreamError(errors.CodeMissingInput, "user_input is required")
		if emitErr := p.emitError(ctx, se); emitErr != nil {
			return nil, emitErr
		}
		return nil, se
	}

	full, err := p.drain(ctx, source)
	if err != nil {
		if errors.IsAbort(err) {
			return nil, err
		}
		se := errors.WrapStream(errors.CodeStreamError, err)
		if emitErr := p.emitError(ctx, se); emitErr != nil {
			return nil, emitErr
		}
		return nil, se
	}

	span, ok := ExtractJSONObject(full)
	if !ok {
		se := errors.NewStreamError(errors.CodeInvalidResponse,
			"no JSON object in generated output")
		if emitErr := p.emitError(ctx, se); emitErr != nil {
			return nil, emitErr
		}
		return nil, se
	}

	var a analysis
	if jsonErr := json.Unmarshal([]byte(span), &a); jsonErr != nil {
		se := errors.WrapStream(errors.CodeJSONParse, jsonErr)
		if emitErr := p.emitError(ctx, se); emitErr != nil {
			return nil, emitErr
		}
		return nil, se
	}

	confidence := interrupt.Clamp(p.cfg.Confidence + a.ConfidenceDelta)

	if p.cfg.EmitAnalysis {
		if _, err := p.emit(ctx, envelope.AnalysisComplete,
			envelope.AnalysisCompletePayload{Confidence: confidence}); err != nil {
			return nil, err
		}
	}

	messageID := uuid.New().String()
	startEnv, err := p.emit(ctx, envelope.TextMessageStart,
		envelope.TextMessageStartPayload{MessageID: messageID, Role: "assistant"})
	if err != nil {
		return nil, err
	}

	if err := p.streamContent(ctx, a.Response, startEnv.EventID); err != nil {
		return nil, err
	}

	if _, err := p.emit(ctx, envelope.TextMessageEnd,
		envelope.TextMessageEndPayload{MessageID: messageID},
		envelope.WithParent(startEnv.EventID)); err != nil {
		return nil, err
	}

	if err := p.emitToolCalls(ctx, a.ToolCalls); err != nil {
		return nil, err
	}

	if a.ConfidenceDelta != 0 {
		if _, err := p.emit(ctx, envelope.RapportUpdate, envelope.RapportUpdatePayload{
			StreamID: p.cfg.StreamID,
			Delta:    a.ConfidenceDelta,
		}); err != nil {
			return nil, err
		}
	}

	if _, err := p.emit(ctx, envelope.StateDelta, envelope.StateDeltaPayload{
		Version:   1,
		Timestamp: time.Now().UnixMilli(),
		Operations: []envelope.PatchOp{
			{Op: "replace", Path: "/rapport/confidence", Value: confidence},
		},
	}); err != nil {
		return nil, err
	}

	if _, err := p.emit(ctx, envelope.ResponseComplete, envelope.ResponseCompletePayload{
		MessageID:  messageID,
		Confidence: confidence,
	}); err != nil {
		return nil, err
	}

	return &Result{
		MessageID:  messageID,
		Confidence: confidence,
		ToolCalls:  len(a.ToolCalls),
	}, nil
}

// drain consumes the chunk source to exhaustion and returns the
// concatenated text.
func (p *Producer) drain(ctx context.Context, source ChunkSource) (string, error) {
	var full []byte
	for {
		fragment, err := source.Next(ctx)
		if err != nil {
			if stderrors.Is(err, io.EOF) {
				return string(full), nil
			}
			return "", err
		}
		full = append(full, fragment...)
	}
}

// streamContent emits the response text as paced TEXT_CONTENT chunks all
// correlated to the opening message-start event.
func (p *Producer) streamContent(ctx context.Context, text, parentID string) error {
	runes := []rune(text)
	for start := 0; start < len(runes); start += p.cfg.ChunkSize {
		end := start + p.cfg.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}

		if p.cfg.Gate != nil && p.cfg.Gate.Frozen() {
			return errors.WrapInvalid(errors.ErrStreamAborted,
				"Producer", "streamContent", "reveal gate frozen")
		}

		if _, err := p.emit(ctx, envelope.TextContent,
			envelope.TextContentPayload{Content: string(runes[start:end])},
			envelope.WithParent(parentID)); err != nil {
			return err
		}
		if p.cfg.Gate != nil {
			p.cfg.Gate.Advance(end - start)
		}

		if p.cfg.ChunkDelay > 0 && end < len(runes) {
			timer := time.NewTimer(p.cfg.ChunkDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	return nil
}

// emitToolCalls emits a START/RESULT/END triplet per tool call reported
// by the analysis.
func (p *Producer) emitToolCalls(ctx context.Context, calls []toolCall) error {
	for _, call := range calls {
		callID := uuid.New().String()
		startEnv, err := p.emit(ctx, envelope.ToolCallStart,
			envelope.ToolCallStartPayload{CallID: callID, Name: call.Name, Input: call.Input})
		if err != nil {
			return err
		}
		if _, err := p.emit(ctx, envelope.ToolCallResult,
			envelope.ToolCallResultPayload{CallID: callID, Output: call.Output},
			envelope.WithParent(startEnv.EventID)); err != nil {
			return err
		}
		if _, err := p.emit(ctx, envelope.ToolCallEnd,
			envelope.ToolCallEndPayload{CallID: callID},
			envelope.WithParent(startEnv.EventID)); err != nil {
			return err
		}
	}
	return nil
}

// emit builds and sends one envelope with the next sequence number.
func (p *Producer) emit(ctx context.Context, typ envelope.EventType, data any, opts ...envelope.Option) (*envelope.Envelope, error) {
	opts = append(opts, envelope.WithStreamID(p.cfg.StreamID))
	env, err := envelope.New(typ, p.seq.Next(), data, opts...)
	if err != nil {
		return nil, err
	}
	if err := p.emitter.Emit(ctx, env); err != nil {
		return nil, errors.Wrap(err, "Producer", "emit", "envelope delivery")
	}
	return env, nil
}

// emitError sends a terminal ERROR envelope for a stream failure.
func (p *Producer) emitError(ctx context.Context, se *errors.StreamError) error {
	_, err := p.emit(ctx, envelope.Error, envelope.ErrorPayload{
		Code:        string(se.Code),
		Message:     se.Message,
		Recoverable: se.Recoverable,
	})
	return err
}
