package conference

import (
	"sync"

	"go.uber.org/atomic"
)

// frameQueue is a bounded queue that never blocks the producer. A push to a
// full queue is dropped and counted.
type frameQueue[T any] struct {
	mu      sync.Mutex
	items   []T
	size    int
	notify  chan struct{}
	dropped atomic.Uint64
}

func newFrameQueue[T any](size int) *frameQueue[T] {
	if size < 1 {
		size = 1
	}
	return &frameQueue[T]{
		items:  make([]T, 0, size),
		size:   size,
		notify: make(chan struct{}, 1),
	}
}

// Push appends v, returning false when the queue is full.
func (q *frameQueue[T]) Push(v T) bool {
	q.mu.Lock()
	if len(q.items) >= q.size {
		q.mu.Unlock()
		q.dropped.Inc()
		return false
	}
	q.items = append(q.items, v)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return true
}

// Pop removes the oldest item.
func (q *frameQueue[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	v := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	return v, true
}

// Latest empties the queue and returns the newest item along with how many
// older items were discarded.
func (q *frameQueue[T]) Latest() (T, int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	n := len(q.items)
	if n == 0 {
		return zero, 0, false
	}
	v := q.items[n-1]
	q.items = make([]T, 0, q.size)
	return v, n - 1, true
}

// Wait returns a channel signalled after pushes.
func (q *frameQueue[T]) Wait() <-chan struct{} {
	return q.notify
}

// Len returns the number of queued items.
func (q *frameQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dropped returns how many pushes were rejected.
func (q *frameQueue[T]) Dropped() uint64 {
	return q.dropped.Load()
}
