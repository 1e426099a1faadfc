// Package session ties the per-session collaborators together: the
// sequence counter, the interrupt controller, and the synchronized
// rapport state. Sessions are isolated; nothing in this package is
// shared across session IDs.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/mathonsunday/agentic-ui-lab-sub001/envelope"
	"github.com/mathonsunday/agentic-ui-lab-sub001/interrupt"
	"github.com/mathonsunday/agentic-ui-lab-sub001/producer"
	"github.com/mathonsunday/agentic-ui-lab-sub001/statesync"
)

// rapportState is the initial synchronized payload for a new session.
type rapportState struct {
	Rapport rapportFields `json:"rapport"`
}

type rapportFields struct {
	Confidence int `json:"confidence"`
}

// Session is the unit of isolation. Each session owns its own sequence
// counter, interrupt controller, and state synchronizer; concurrent
// sessions never observe each other's counters or confidence.
type Session struct {
	id      string
	created time.Time

	interrupts *interrupt.Controller
	state      *statesync.Synchronizer

	mu           sync.Mutex
	seq          *producer.Counter
	lastActive   time.Time
	streamID     int
	streamCancel context.CancelFunc
}

// New creates a session with the given baseline confidence.
func New(id string, baselineConfidence int) (*Session, error) {
	sync, err := statesync.NewSynchronizer(rapportState{
		Rapport: rapportFields{Confidence: interrupt.Clamp(baselineConfidence)},
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &Session{
		id:         id,
		created:    now,
		lastActive: now,
		seq:        producer.NewCounter(),
		interrupts: interrupt.NewController(baselineConfidence),
		state:      sync,
	}, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Sequence returns the sequence counter for the current stream.
func (s *Session) Sequence() *producer.Counter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Interrupts returns the session's interrupt controller.
func (s *Session) Interrupts() *interrupt.Controller { return s.interrupts }

// State returns the session's state synchronizer.
func (s *Session) State() *statesync.Synchronizer { return s.state }

// StartStream assigns the next stream ordinal and returns it with a
// context scoped to the stream's producer and a fresh sequencing buffer.
// Sequence numbers restart at zero for every stream, so the counter is
// replaced too. The returned context is cancelled by CancelStream, which
// is how an interrupt reaches the producer while it is still emitting.
func (s *Session) StartStream(ctx context.Context) (int, context.Context, *envelope.SequencingBuffer) {
	ordinal := s.interrupts.NextStream()
	streamCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.seq = producer.NewCounter()
	s.lastActive = time.Now()
	s.streamID = ordinal
	s.streamCancel = cancel
	s.mu.Unlock()

	return ordinal, streamCtx, envelope.NewSequencingBuffer()
}

// CancelStream cancels the in-flight producer for the given stream
// ordinal. Reports whether a matching stream was registered; ordinals
// of finished or unknown streams are ignored.
func (s *Session) CancelStream(ordinal int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.streamCancel == nil || s.streamID != ordinal {
		return false
	}
	s.streamCancel()
	return true
}

// EndStream releases the cancellation hook installed by StartStream once
// the stream's producer has returned.
func (s *Session) EndStream(ordinal int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.streamCancel == nil || s.streamID != ordinal {
		return
	}
	s.streamCancel()
	s.streamCancel = nil
}

// ApplyDelta applies STATE_DELTA operations to the synchronized state.
func (s *Session) ApplyDelta(ops []envelope.PatchOp) error {
	s.Touch()
	return s.state.OptimisticUpdate(ops)
}

// Confidence returns the current confidence score.
func (s *Session) Confidence() int {
	return s.interrupts.Confidence()
}

// Touch marks the session as recently active.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()
}

// LastActive returns the time of the most recent activity.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// CreatedAt returns the session creation time.
func (s *Session) CreatedAt() time.Time { return s.created }
