package envelope

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkEnv(t *testing.T, seq int) *Envelope {
	t.Helper()
	env, err := New(TextContent, seq, TextContentPayload{Content: "c"})
	require.NoError(t, err)
	return env
}

func TestSequencingBuffer_InOrder(t *testing.T) {
	buf := NewSequencingBuffer()

	for seq := 0; seq < 5; seq++ {
		released := buf.Process(mkEnv(t, seq))
		require.Len(t, released, 1)
		assert.Equal(t, seq, released[0].SequenceNumber)
	}

	assert.Equal(t, 5, buf.NextExpected())
	assert.Equal(t, 0, buf.Pending())
}

func TestSequencingBuffer_GapHandling(t *testing.T) {
	buf := NewSequencingBuffer()

	released := buf.Process(mkEnv(t, 0))
	require.Len(t, released, 1)
	assert.Equal(t, 0, released[0].SequenceNumber)

	released = buf.Process(mkEnv(t, 5))
	assert.Empty(t, released)
	assert.Equal(t, 1, buf.Pending())

	// 1..4 arrive; 5 is released together with 4
	for seq := 1; seq <= 3; seq++ {
		released = buf.Process(mkEnv(t, seq))
		require.Len(t, released, 1)
	}
	released = buf.Process(mkEnv(t, 4))
	require.Len(t, released, 2)
	assert.Equal(t, 4, released[0].SequenceNumber)
	assert.Equal(t, 5, released[1].SequenceNumber)
	assert.Equal(t, 0, buf.Pending())
}

func TestSequencingBuffer_DropsDuplicates(t *testing.T) {
	buf := NewSequencingBuffer()

	require.Len(t, buf.Process(mkEnv(t, 0)), 1)
	require.Len(t, buf.Process(mkEnv(t, 1)), 1)

	// Below the cursor: dropped
	assert.Empty(t, buf.Process(mkEnv(t, 0)))
	assert.Empty(t, buf.Process(mkEnv(t, 1)))

	// Duplicate pending entry: kept once
	assert.Empty(t, buf.Process(mkEnv(t, 3)))
	assert.Empty(t, buf.Process(mkEnv(t, 3)))
	assert.Equal(t, 1, buf.Pending())

	released := buf.Process(mkEnv(t, 2))
	require.Len(t, released, 2)
	assert.Equal(t, 2, released[0].SequenceNumber)
	assert.Equal(t, 3, released[1].SequenceNumber)
}

func TestSequencingBuffer_ArbitraryPermutations(t *testing.T) {
	const n = 20
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 50; trial++ {
		buf := NewSequencingBuffer()

		perm := rng.Perm(n)
		var delivered []int
		for _, seq := range perm {
			for _, env := range buf.Process(mkEnv(t, seq)) {
				delivered = append(delivered, env.SequenceNumber)
			}
		}
		for _, env := range buf.Flush() {
			delivered = append(delivered, env.SequenceNumber)
		}

		// Exactly once each, in sorted order
		require.Len(t, delivered, n, "permutation %v", perm)
		for i, seq := range delivered {
			assert.Equal(t, i, seq, "permutation %v", perm)
		}
	}
}

func TestSequencingBuffer_FlushTail(t *testing.T) {
	buf := NewSequencingBuffer()

	require.Len(t, buf.Process(mkEnv(t, 0)), 1)
	assert.Empty(t, buf.Process(mkEnv(t, 4)))
	assert.Empty(t, buf.Process(mkEnv(t, 2)))

	flushed := buf.Flush()
	require.Len(t, flushed, 2)
	assert.Equal(t, 2, flushed[0].SequenceNumber)
	assert.Equal(t, 4, flushed[1].SequenceNumber)

	// Flush resets the pending set
	assert.Nil(t, buf.Flush())
	assert.Equal(t, 0, buf.Pending())
}

func TestSequencingBuffer_TimestampNeverOrders(t *testing.T) {
	buf := NewSequencingBuffer()

	// Later timestamp, lower sequence: sequence wins
	e1 := mkEnv(t, 1)
	e1.Timestamp = 999999999999
	e0 := mkEnv(t, 0)
	e0.Timestamp = 1

	assert.Empty(t, buf.Process(e1))
	released := buf.Process(e0)
	require.Len(t, released, 2)
	assert.Equal(t, 0, released[0].SequenceNumber)
	assert.Equal(t, 1, released[1].SequenceNumber)
}
