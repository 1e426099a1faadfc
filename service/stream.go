package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mathonsunday/agentic-ui-lab-sub001/envelope"
	"github.com/mathonsunday/agentic-ui-lab-sub001/errors"
	"github.com/mathonsunday/agentic-ui-lab-sub001/events"
	"github.com/mathonsunday/agentic-ui-lab-sub001/producer"
	"github.com/mathonsunday/agentic-ui-lab-sub001/session"
)

// streamRequest is the POST body for the stream endpoint.
type streamRequest struct {
	UserInput string `json:"user_input"`
}

// isValidSessionID rejects IDs that would break out of the session's
// NATS subject (wildcards and separators).
func isValidSessionID(id string) bool {
	if id == "" {
		return false
	}
	return !strings.ContainsAny(id, ">*. ")
}

// handleStream handles POST {prefix}/sessions/{id}/stream. The response
// is a server-sent-event stream of envelopes ending with exactly one
// terminal envelope.
func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := r.PathValue("id")

	if !isValidSessionID(sessionID) {
		s.logger.Warn("invalid session id", "session_id", sessionID)
		writeJSONError(w, http.StatusBadRequest, errors.CodeMissingFields, "invalid session id")
		return
	}

	var req streamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, errors.CodeMissingFields, "malformed request body")
		return
	}

	sess, err := s.sessions.GetOrCreate(sessionID)
	if err != nil {
		s.logger.Error("session create failed", "session_id", sessionID, "error", err)
		writeJSONError(w, http.StatusInternalServerError, errors.CodeStreamError, "session unavailable")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, errors.CodeStreamError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	flusher.Flush()

	core := s.metrics.Core()
	core.ActiveSessions.Set(float64(s.sessions.Len()))
	core.ActiveStreams.Inc()
	defer core.ActiveStreams.Dec()

	start := time.Now()
	defer func() { core.RecordStreamDuration(time.Since(start)) }()

	ordinal, streamCtx, _ := sess.StartStream(ctx)
	defer sess.EndStream(ordinal)
	emitter := s.gatedEmitter(sess,
		producer.MultiEmitter(s.sseEmitter(w, flusher), s.busEmitter(sessionID)))

	s.logger.Info("stream started",
		"session_id", sessionID, "stream_id", ordinal)

	source, err := s.buildSource(streamCtx, sessionID, req.UserInput)
	if err != nil {
		se := errors.AsStreamError(err)
		s.emitStreamError(ctx, emitter, sess, ordinal, se)
		core.RecordStreamError(string(se.Code))
		s.logger.Error("chunk source unavailable", "session_id", sessionID, "error", err)
		return
	}

	prodCfg := producer.Config{
		StreamID:     ordinal,
		Confidence:   sess.Confidence(),
		ChunkSize:    s.cfg.Stream.ChunkSize,
		ChunkDelay:   s.cfg.Stream.ChunkDelay.Std(),
		EmitAnalysis: s.cfg.Stream.EmitAnalysis,
		Gate:         sess.Interrupts().Gate(),
	}
	p := producer.New(sess.Sequence(), emitter, prodCfg, s.logger)

	result, err := p.Run(streamCtx, producer.Request{SessionID: sessionID, UserInput: req.UserInput}, source)
	if err != nil {
		if errors.IsAbort(err) {
			s.logger.Info("stream cancelled", "session_id", sessionID, "stream_id", ordinal)
			return
		}
		se := errors.AsStreamError(err)
		core.RecordStreamError(string(se.Code))
		s.logger.Error("stream failed",
			"session_id", sessionID, "stream_id", ordinal, "code", se.Code, "error", err)
		return
	}

	s.commitConfidence(sess, ordinal, prodCfg.Confidence, result.Confidence)

	s.logger.Info("stream completed",
		"session_id", sessionID,
		"stream_id", ordinal,
		"message_id", result.MessageID,
		"confidence", result.Confidence,
		"tool_calls", result.ToolCalls,
		"duration", time.Since(start))
}

// buildSource resolves the chunk source for an exchange. A missing
// factory is a server configuration failure, not a client error.
func (s *Service) buildSource(ctx context.Context, sessionID, userInput string) (producer.ChunkSource, error) {
	if s.sources == nil {
		return nil, errors.NewStreamError(errors.CodeServerConfig, "no chunk source configured")
	}
	source, err := s.sources(ctx, sessionID, userInput)
	if err != nil {
		return nil, &errors.StreamError{
			Code:    errors.CodeServerConfig,
			Message: err.Error(),
			Cause:   err,
		}
	}
	return source, nil
}

// commitConfidence applies the stream's confidence outcome to the
// session unless the stream was interrupted while in flight.
func (s *Service) commitConfidence(sess *session.Session, ordinal, before, after int) {
	score, applied := sess.Interrupts().ApplyRapport(ordinal, after-before)
	if !applied {
		s.logger.Info("confidence update blocked by interrupt",
			"session_id", sess.ID(), "stream_id", ordinal, "score", score)
		return
	}
	err := sess.ApplyDelta([]envelope.PatchOp{
		{Op: "replace", Path: "/rapport/confidence", Value: score},
	})
	if err != nil {
		s.logger.Warn("state sync failed", "session_id", sess.ID(), "error", err)
	}
}

// gatedEmitter refuses delivery for envelopes tagged with an interrupted
// stream ordinal. Returning an abort stops the producer instead of
// leaking stale frames to the consumer.
func (s *Service) gatedEmitter(sess *session.Session, next producer.Emitter) producer.Emitter {
	return producer.EmitterFunc(func(ctx context.Context, env *envelope.Envelope) error {
		if id, ok := env.StreamID(); ok && sess.Interrupts().Blocked(id) {
			return errors.WrapInvalid(errors.ErrStreamAborted,
				"Service", "gatedEmitter", "stream interrupted")
		}
		return next.Emit(ctx, env)
	})
}

// sseEmitter writes envelopes as SSE data frames and records emission
// metrics.
func (s *Service) sseEmitter(w http.ResponseWriter, flusher http.Flusher) producer.Emitter {
	return producer.EmitterFunc(func(_ context.Context, env *envelope.Envelope) error {
		data, err := json.Marshal(env)
		if err != nil {
			return errors.WrapInvalid(err, "Service", "sseEmitter", "envelope marshal")
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return errors.WrapTransient(err, "Service", "sseEmitter", "write frame")
		}
		flusher.Flush()
		s.metrics.Core().RecordEnvelopeEmitted(string(env.Type))
		return nil
	})
}

// busEmitter mirrors envelopes to the fan-out bus. Bus failures are
// logged, never surfaced to the stream.
func (s *Service) busEmitter(sessionID string) producer.Emitter {
	return producer.EmitterFunc(func(ctx context.Context, env *envelope.Envelope) error {
		if err := events.PublishEnvelope(ctx, s.publisher, sessionID, env); err != nil {
			s.logger.Warn("envelope fan-out failed",
				"subject", events.EnvelopeSubject(sessionID), "error", err)
		}
		return nil
	})
}

// emitStreamError sends a terminal ERROR envelope for failures detected
// before the producer runs.
func (s *Service) emitStreamError(ctx context.Context, emitter producer.Emitter, sess *session.Session, ordinal int, se *errors.StreamError) {
	env, err := envelope.New(envelope.Error, sess.Sequence().Next(), envelope.ErrorPayload{
		Code:        string(se.Code),
		Message:     se.Message,
		Recoverable: se.Recoverable,
	}, envelope.WithStreamID(ordinal))
	if err != nil {
		s.logger.Error("error envelope build failed", "error", err)
		return
	}
	if err := emitter.Emit(ctx, env); err != nil {
		s.logger.Warn("error envelope delivery failed", "error", err)
	}
}

// errorResponse is the JSON body for non-stream HTTP failures.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSONError(w http.ResponseWriter, status int, code errors.Code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Code: string(code), Message: message})
}
