package service

import (
	"encoding/json"
	"net/http"

	"github.com/mathonsunday/agentic-ui-lab-sub001/errors"
)

// interruptRequest is the POST body for the interrupt endpoint. A zero
// StreamID targets the session's current stream.
type interruptRequest struct {
	StreamID int `json:"stream_id"`
}

// interruptResponse reports the post-interrupt session state.
type interruptResponse struct {
	SessionID         string `json:"session_id"`
	InterruptedStream int    `json:"interrupted_stream"`
	Confidence        int    `json:"confidence"`
}

// handleInterrupt handles POST {prefix}/sessions/{id}/interrupt.
func (s *Service) handleInterrupt(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		writeJSONError(w, http.StatusNotFound, errors.CodeMissingFields, "unknown session")
		return
	}

	var req interruptRequest
	if r.Body != nil {
		// Body is optional; decode failures fall back to the current stream
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	current := sess.Interrupts().Current()
	target := req.StreamID
	if target <= 0 {
		target = current
	}
	if target <= 0 {
		writeJSONError(w, http.StatusConflict, errors.CodeStreamError, "no stream to interrupt")
		return
	}
	if target > current {
		writeJSONError(w, http.StatusConflict, errors.CodeStreamError, "unknown stream ordinal")
		return
	}

	// Recording first makes the gated emitter drop further frames even
	// before the producer observes the cancellation.
	if sess.Interrupts().Interrupt(target) {
		s.metrics.Core().RecordInterrupt()
		sess.CancelStream(target)
	}

	s.logger.Info("stream interrupted",
		"session_id", sessionID, "stream_id", target, "confidence", sess.Confidence())

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(interruptResponse{
		SessionID:         sessionID,
		InterruptedStream: target,
		Confidence:        sess.Confidence(),
	})
}

// handleState handles GET {prefix}/sessions/{id}/state, returning the
// session's versioned, checksummed state snapshot.
func (s *Service) handleState(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		writeJSONError(w, http.StatusNotFound, errors.CodeMissingFields, "unknown session")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(sess.State().State())
}

// healthResponse is the GET /healthz body.
type healthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(healthResponse{
		Status:   "ok",
		Sessions: s.sessions.Len(),
	})
}
