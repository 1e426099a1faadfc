package interrupt

import "sync"

// none marks the absence of an interrupted stream ordinal.
const none = -1

// Controller assigns stream ordinals and enforces interrupt isolation.
//
// All checks and mutations share one mutex: penalty application is atomic
// with respect to the interrupted-stream check, so a racing success
// callback from the cancelled stream can never erase the penalty.
//
// A Controller is scoped to a single session and must never be shared
// across sessions.
type Controller struct {
	mu          sync.Mutex
	nextOrdinal int
	current     int
	interrupted map[int]struct{}
	lastCancel  int
	confidence  int
	gate        *Gate
}

// NewController creates a controller with the given starting confidence,
// clamped into range. No stream is active until NextStream is called.
func NewController(initialConfidence int) *Controller {
	return &Controller{
		nextOrdinal: 1,
		current:     none,
		interrupted: make(map[int]struct{}),
		lastCancel:  none,
		confidence:  Clamp(initialConfidence),
	}
}

// NextStream assigns the next stream ordinal and makes it current.
// Previously interrupted ordinals stay recorded, so a late chunk from a
// cancelled stream is still filtered while the new stream's chunks flow
// freely. A fresh reveal gate is installed for the new stream.
func (c *Controller) NextStream() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	ordinal := c.nextOrdinal
	c.nextOrdinal++
	c.current = ordinal
	c.gate = NewGate()
	return ordinal
}

// Current returns the active stream ordinal, or -1 before the first
// stream starts.
func (c *Controller) Current() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Gate returns the reveal gate for the current stream, or nil before the
// first stream starts.
func (c *Controller) Gate() *Gate {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gate
}

// Interrupt cancels the stream with the given ordinal and reports
// whether the cancellation was recorded. Ordinals that were never
// assigned by NextStream are rejected, and repeated cancellation of an
// already-recorded ordinal is a no-op, so the fixed confidence penalty
// lands exactly once per stream. The ordinal is recorded so in-flight
// updates from it are discarded, and when the cancelled stream is the
// current one its reveal gate freezes at the last revealed boundary.
func (c *Controller) Interrupt(ordinal int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ordinal <= 0 || ordinal >= c.nextOrdinal {
		return false
	}
	if _, done := c.interrupted[ordinal]; done {
		return false
	}
	c.interrupted[ordinal] = struct{}{}
	c.lastCancel = ordinal
	c.confidence = Clamp(c.confidence - InterruptPenalty)

	if ordinal == c.current && c.gate != nil {
		c.gate.Freeze()
	}
	return true
}

// Blocked reports whether an update tagged with the given stream ordinal
// must be discarded. Every interrupted ordinal stays blocked; updates
// from any other ordinal, older or newer, pass.
func (c *Controller) Blocked(ordinal int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, blocked := c.interrupted[ordinal]
	return blocked
}

// ApplyRapport applies a confidence delta on behalf of the given stream
// ordinal. Updates from the interrupted ordinal are discarded; the check
// and the mutation happen under one lock. Returns the resulting score
// and whether the delta was applied.
func (c *Controller) ApplyRapport(ordinal, delta int) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, blocked := c.interrupted[ordinal]; blocked {
		return c.confidence, false
	}
	c.confidence = Clamp(c.confidence + delta)
	return c.confidence, true
}

// Confidence returns the current score.
func (c *Controller) Confidence() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.confidence
}

// InterruptedStream returns the most recently interrupted ordinal and
// whether any stream has been interrupted.
func (c *Controller) InterruptedStream() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastCancel == none {
		return 0, false
	}
	return c.lastCancel, true
}
