package producer

import "sync"

// Counter is an explicit sequence counter scoped to one stream. Counters
// are passed to the producers that need them instead of living as
// process globals, so concurrent sessions never interfere.
type Counter struct {
	mu   sync.Mutex
	next int
}

// NewCounter creates a counter starting at 0.
func NewCounter() *Counter {
	return &Counter{}
}

// Next returns the current value and advances. The first call returns 0.
func (c *Counter) Next() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.next
	c.next++
	return n
}

// Peek returns the value the next call to Next would return.
func (c *Counter) Peek() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.next
}
