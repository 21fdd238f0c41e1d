// Package queue provides the unbounded FIFO shared between the transport
// goroutine and the UI tick loop.
//
// The tick loop must never block, so it uses TryPop. The transport goroutine
// waits for the next outbound command with Pop, which also returns when the
// done channel closes.
package queue

import "sync"

// Queue is an unbounded FIFO safe for concurrent use.
// The zero value is not usable; call New.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	notify chan struct{}
}

// New creates an empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{notify: make(chan struct{}, 1)}
}

// Push appends one item.
func (q *Queue[T]) Push(item T) {
	q.PushAll(item)
}

// PushAll appends items atomically: a concurrent reader sees either none
// or all of them, in order.
func (q *Queue[T]) PushAll(items ...T) {
	if len(items) == 0 {
		return
	}
	q.mu.Lock()
	q.items = append(q.items, items...)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// TryPop removes and returns the head without blocking.
func (q *Queue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	item := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	return item, true
}

// Peek returns the head without removing it.
func (q *Queue[T]) Peek() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		var zero T
		return zero, false
	}
	return q.items[0], true
}

// Pop blocks until an item is available or done is closed.
// The boolean is false only when done closed first.
func (q *Queue[T]) Pop(done <-chan struct{}) (T, bool) {
	for {
		if item, ok := q.TryPop(); ok {
			return item, true
		}
		select {
		case <-q.notify:
		case <-done:
			// An item pushed right before done closed still wins.
			return q.TryPop()
		}
	}
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Empty reports whether the queue has no items.
func (q *Queue[T]) Empty() bool {
	return q.Len() == 0
}

// Clear drops all queued items.
func (q *Queue[T]) Clear() {
	q.mu.Lock()
	q.items = nil
	q.mu.Unlock()
}
