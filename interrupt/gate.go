package interrupt

import "sync"

// Gate tracks how much of a stream's content has been revealed to the
// user. Freezing the gate pins the boundary: buffered-but-unrevealed
// content can never become visible afterwards.
type Gate struct {
	mu       sync.Mutex
	revealed int
	frozen   bool
}

// NewGate creates an open gate with nothing revealed.
func NewGate() *Gate {
	return &Gate{}
}

// Advance moves the revealed boundary forward by n and returns the new
// boundary. Once frozen, Advance is ignored and the frozen boundary is
// returned unchanged. Negative advances are ignored.
func (g *Gate) Advance(n int) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.frozen || n <= 0 {
		return g.revealed
	}
	g.revealed += n
	return g.revealed
}

// Freeze pins the revealed boundary. Idempotent.
func (g *Gate) Freeze() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.frozen = true
}

// Frozen reports whether the gate is frozen.
func (g *Gate) Frozen() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.frozen
}

// Revealed returns the current revealed boundary.
func (g *Gate) Revealed() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.revealed
}
