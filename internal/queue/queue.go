// Package queue buffers records between the simulation tick and batched
// database writes.
package queue

import (
	"sync"
)

// Queue is a thread-safe FIFO. A positive limit bounds it; pushing past the
// limit discards the oldest records and counts them as dropped.
type Queue[T any] struct {
	mu      sync.Mutex
	items   []T
	limit   int
	dropped uint64
}

// New creates an unbounded queue.
func New[T any]() *Queue[T] {
	return NewBounded[T](0)
}

// NewBounded creates a queue holding at most limit records. limit <= 0 means unbounded.
func NewBounded[T any](limit int) *Queue[T] {
	return &Queue[T]{limit: limit}
}

// Push appends items, trimming the oldest when over the limit.
func (q *Queue[T]) Push(items ...T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, items...)
	q.trim()
}

// Pop removes and returns the oldest item. ok is false when the queue is empty.
func (q *Queue[T]) Pop() (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return item, false
	}
	item = q.items[0]
	q.items = q.items[1:]
	return item, true
}

// Drain removes and returns up to max of the oldest items; max <= 0 takes all.
func (q *Queue[T]) Drain(max int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	if max > 0 && max < n {
		n = max
	}
	if n == 0 {
		return nil
	}
	out := make([]T, n)
	copy(out, q.items[:n])
	q.items = q.items[n:]
	return out
}

// Requeue puts items back at the head, ahead of anything pushed since they
// were drained. Used after a failed write.
func (q *Queue[T]) Requeue(items []T) {
	if len(items) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	merged := make([]T, 0, len(items)+len(q.items))
	merged = append(merged, items...)
	q.items = append(merged, q.items...)
	q.trim()
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dropped returns how many items were discarded by the limit.
func (q *Queue[T]) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Clear removes all items.
func (q *Queue[T]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
}

func (q *Queue[T]) trim() {
	if q.limit <= 0 || len(q.items) <= q.limit {
		return
	}
	over := len(q.items) - q.limit
	q.dropped += uint64(over)
	q.items = q.items[over:]
}
