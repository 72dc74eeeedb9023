package flow

import (
	"sync"
	"sync/atomic"
)

// Queue is a FIFO of pending FlowFiles. It is safe for concurrent
// producers; the trigger loop is the single consumer.
type Queue struct {
	mu     sync.Mutex
	items  []*FlowFile
	max    int
	closed atomic.Bool
}

// NewQueue creates a queue. max bounds the number of pending work units;
// max <= 0 means unbounded.
func NewQueue(max int) *Queue {
	return &Queue{max: max}
}

// Enqueue appends a FlowFile to the tail.
// Returns ErrQueueClosed after Close, ErrQueueFull at capacity.
func (q *Queue) Enqueue(ff *FlowFile) error {
	if q.closed.Load() {
		return ErrQueueClosed
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.max > 0 && len(q.items) >= q.max {
		return ErrQueueFull
	}
	q.items = append(q.items, ff)
	return nil
}

// Dequeue removes and returns the head, or nil when the queue is empty.
func (q *Queue) Dequeue() *FlowFile {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil
	}
	ff := q.items[0]
	q.items = q.items[1:]
	return ff
}

// RequeueFront puts a FlowFile back at the head of the queue, ahead of all
// pending work. Used by session rollback so a failed invocation sees the
// same work unit on the next attempt. Requeue ignores the capacity bound
// and the closed flag: rolled-back work must never be dropped.
func (q *Queue) RequeueFront(ff *FlowFile) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append([]*FlowFile{ff}, q.items...)
}

// Len returns the number of pending work units.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drain removes and returns all pending work units.
func (q *Queue) Drain() []*FlowFile {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.items
	q.items = nil
	return items
}

// Close marks the queue as no longer accepting new work.
// Pending items remain dequeuable.
func (q *Queue) Close() {
	q.closed.Store(true)
}
