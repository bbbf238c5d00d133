package event

import (
	"errors"
	"sync"
)

// ErrQueueClosed is returned by Put after Close.
var ErrQueueClosed = errors.New("event queue closed")

// Sink accepts events. The portfolio, strategy and feeds only need this
// half of the queue.
type Sink interface {
	Put(Event) error
}

// Queue is an unbounded FIFO safe for concurrent producers and consumers.
// It never blocks: the dispatch loop enqueues into the same queue it
// drains, so a bounded channel could deadlock it.
type Queue struct {
	mu     sync.Mutex
	items  []Event
	head   int
	closed bool
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Put appends e.
func (q *Queue) Put(e Event) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	q.items = append(q.items, e)
	return nil
}

// TryGet pops the oldest event. ok is false when the queue is empty.
func (q *Queue) TryGet() (e Event, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.head == len(q.items) {
		return nil, false
	}
	e = q.items[q.head]
	q.items[q.head] = nil
	q.head++
	switch {
	case q.head == len(q.items):
		q.items = q.items[:0]
		q.head = 0
	case q.head > len(q.items)/2:
		// a producer that stays ahead never drains the queue, so slide
		// the pending events down instead of growing forever
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	return e, true
}

// Len is the number of pending events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

// Close stops the queue accepting events. Pending events can still be
// drained with TryGet.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}
