package conference

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameQueue_PushPop(t *testing.T) {
	q := newFrameQueue[int](2)
	assert.True(t, q.Push(1))
	assert.True(t, q.Push(2))
	assert.False(t, q.Push(3))
	assert.Equal(t, uint64(1), q.Dropped())
	assert.Equal(t, 2, q.Len())

	v, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, 1, v)
	v, ok = q.Pop()
	require.True(t, ok)
	assert.Equal(t, 2, v)
	_, ok = q.Pop()
	assert.False(t, ok)
}

func TestFrameQueue_Latest(t *testing.T) {
	q := newFrameQueue[int](4)
	_, _, ok := q.Latest()
	assert.False(t, ok)

	for i := 1; i <= 3; i++ {
		q.Push(i)
	}
	v, discarded, ok := q.Latest()
	require.True(t, ok)
	assert.Equal(t, 3, v)
	assert.Equal(t, 2, discarded)
	assert.Equal(t, 0, q.Len())
}

func TestFrameQueue_MinimumSize(t *testing.T) {
	q := newFrameQueue[string](0)
	assert.True(t, q.Push("a"))
	assert.False(t, q.Push("b"))
}

func TestFrameQueue_WaitSignalsPush(t *testing.T) {
	q := newFrameQueue[int](8)
	q.Push(1)
	q.Push(2)

	select {
	case <-q.Wait():
	default:
		t.Fatal("expected a pending signal after push")
	}
	// Signals coalesce.
	select {
	case <-q.Wait():
		t.Fatal("expected a single coalesced signal")
	default:
	}
}

func TestFrameQueue_ConcurrentProducers(t *testing.T) {
	q := newFrameQueue[int](64)
	var wg sync.WaitGroup
	for p := 0; p < 8; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 16; i++ {
				q.Push(i)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 64, q.Len())
	assert.Equal(t, uint64(64), q.Dropped())
}
