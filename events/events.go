// Package events fans envelopes and session lifecycle notifications out
// to NATS so other processes can observe streams without holding an SSE
// connection. Publishing is best-effort and never blocks stream
// delivery; when NATS is not configured the noop publisher is used.
package events

import (
	"context"

	"github.com/mathonsunday/agentic-ui-lab-sub001/envelope"
)

// Subject layout: sessions.{session_id}.{suffix}
const (
	// SuffixEnvelopes carries every envelope emitted on a session.
	SuffixEnvelopes = "envelopes"
	// SuffixLifecycle carries session created/removed notifications.
	SuffixLifecycle = "lifecycle"

	// WildcardAllEnvelopes subscribes to envelopes across all sessions.
	WildcardAllEnvelopes = "sessions.*.envelopes"
)

// EnvelopeSubject returns the subject for a session's envelope feed.
func EnvelopeSubject(sessionID string) string {
	return "sessions." + sessionID + "." + SuffixEnvelopes
}

// LifecycleSubject returns the subject for a session's lifecycle feed.
func LifecycleSubject(sessionID string) string {
	return "sessions." + sessionID + "." + SuffixLifecycle
}

// SessionLifecycle is published when a session is created or removed.
type SessionLifecycle struct {
	SessionID string `json:"session_id"`
	Phase     string `json:"phase"` // created | removed
}

// Publisher emits JSON-encoded events to a subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, event any) error
	Close() error
}

// PublishEnvelope publishes one envelope on its session's envelope feed.
func PublishEnvelope(ctx context.Context, p Publisher, sessionID string, env *envelope.Envelope) error {
	return p.Publish(ctx, EnvelopeSubject(sessionID), env)
}
