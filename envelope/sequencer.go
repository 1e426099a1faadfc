package envelope

import (
	"sort"
	"sync"
)

// SequencingBuffer reorders envelopes that arrive out of sequence and
// releases them in strict sequence-number order. Sequence number is the
// sole ordering key; timestamps are informational only and never order
// delivery.
//
// The buffer is scoped to a single stream and must never be shared across
// streams or sessions.
type SequencingBuffer struct {
	mu           sync.Mutex
	nextExpected int
	pending      map[int]*Envelope
}

// NewSequencingBuffer creates a buffer with its cursor at sequence 0.
func NewSequencingBuffer() *SequencingBuffer {
	return &SequencingBuffer{
		pending: make(map[int]*Envelope),
	}
}

// Process submits one envelope and returns, in order, every envelope
// (including the submitted one) that is now contiguous with the cursor.
//
//   - seq == nextExpected: accept, advance, and drain any pending
//     envelopes that became contiguous.
//   - seq > nextExpected: buffer it and return nothing.
//   - seq < nextExpected, or already pending: duplicate, dropped.
func (b *SequencingBuffer) Process(env *Envelope) []*Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()

	seq := env.SequenceNumber

	if seq < b.nextExpected {
		return nil
	}

	if seq > b.nextExpected {
		if _, dup := b.pending[seq]; !dup {
			b.pending[seq] = env
		}
		return nil
	}

	released := []*Envelope{env}
	b.nextExpected++

	for {
		next, ok := b.pending[b.nextExpected]
		if !ok {
			break
		}
		delete(b.pending, b.nextExpected)
		released = append(released, next)
		b.nextExpected++
	}

	return released
}

// Flush returns all remaining buffered envelopes sorted by sequence
// number and resets the pending set. Called at stream end so a tail that
// never became contiguous is not silently lost.
func (b *SequencingBuffer) Flush() []*Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.pending) == 0 {
		return nil
	}

	out := make([]*Envelope, 0, len(b.pending))
	for _, env := range b.pending {
		out = append(out, env)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SequenceNumber < out[j].SequenceNumber
	})

	b.pending = make(map[int]*Envelope)
	return out
}

// NextExpected returns the current cursor position.
func (b *SequencingBuffer) NextExpected() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nextExpected
}

// Pending returns the number of buffered out-of-order envelopes.
func (b *SequencingBuffer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
