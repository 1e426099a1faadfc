package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleCache_BasicOperations(t *testing.T) {
	c := NewSimple[string]()

	_, ok := c.Get("missing")
	assert.False(t, ok)

	require.NoError(t, c.Set("a", "1"))
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	// Overwrite
	require.NoError(t, c.Set("a", "2"))
	v, _ = c.Get("a")
	assert.Equal(t, "2", v)

	assert.True(t, c.Delete("a"))
	assert.False(t, c.Delete("a"))
	_, ok = c.Get("a")
	assert.False(t, ok)
}

func TestSimpleCache_EmptyKey(t *testing.T) {
	c := NewSimple[int]()
	assert.ErrorIs(t, c.Set("", 1), ErrInvalidKey)
}

func TestSimpleCache_SizeKeysClear(t *testing.T) {
	c := NewSimple[int]()

	for i := 0; i < 5; i++ {
		require.NoError(t, c.Set(fmt.Sprintf("k%d", i), i))
	}

	assert.Equal(t, 5, c.Size())
	assert.Len(t, c.Keys(), 5)

	c.Clear()
	assert.Equal(t, 0, c.Size())
	assert.Empty(t, c.Keys())
}

func TestSimpleCache_Concurrency(t *testing.T) {
	c := NewSimple[int]()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				key := fmt.Sprintf("g%d-k%d", g, i)
				_ = c.Set(key, i)
				_, _ = c.Get(key)
			}
		}(g)
	}
	wg.Wait()

	assert.Equal(t, 800, c.Size())
}
