// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package event provides the ordered, per-task channel between an agent execution and
// the consumers of its events.
package event

import (
	"context"
	"slices"
	"sync"

	"github.com/go-a2a/a2a-engine"
)

// Event is an alias of [a2a.Event] for brevity within the server packages.
type Event = a2a.Event

// EventQueue is an unbounded FIFO of events with a single logical producer.
//
// Enqueue never blocks. Dequeue blocks until an event is available, the queue is closed
// or the context is done. After Close the remaining events are still delivered, then
// every dequeue returns [ErrQueueClosed]. Tap creates child queues that receive a copy of
// every later event in the same order.
type EventQueue struct {
	mu       sync.Mutex
	buf      []Event
	closed   bool
	signal   chan struct{} // closed and replaced whenever buf or closed changes
	children []*EventQueue
}

// NewEventQueue returns an empty open queue.
func NewEventQueue() *EventQueue {
	return &EventQueue{
		signal: make(chan struct{}),
	}
}

// broadcast wakes every waiting dequeuer. The caller must hold q.mu.
func (q *EventQueue) broadcast() {
	close(q.signal)
	q.signal = make(chan struct{})
}

// EnqueueEvent appends ev to the queue and to every open child.
// It returns [ErrQueueClosed] if the queue is closed.
func (q *EventQueue) EnqueueEvent(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	q.buf = append(q.buf, ev)
	q.broadcast()

	// children are fed under the parent lock so they observe the parent's order
	q.children = slices.DeleteFunc(q.children, func(c *EventQueue) bool {
		return c.push(ev) != nil
	})
	return nil
}

func (q *EventQueue) push(ev Event) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	q.buf = append(q.buf, ev)
	q.broadcast()
	return nil
}

// DequeueEvent removes and returns the oldest event, blocking until one is available.
func (q *EventQueue) DequeueEvent(ctx context.Context) (Event, error) {
	for {
		q.mu.Lock()
		if len(q.buf) > 0 {
			ev := q.pop()
			q.mu.Unlock()
			return ev, nil
		}
		if q.closed {
			q.mu.Unlock()
			return nil, ErrQueueClosed
		}
		wait := q.signal
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-wait:
		}
	}
}

// TryDequeueEvent is the non-blocking form of [EventQueue.DequeueEvent]. It returns
// [ErrQueueEmpty] when no event is buffered and the queue is still open.
func (q *EventQueue) TryDequeueEvent() (Event, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.buf) > 0 {
		return q.pop(), nil
	}
	if q.closed {
		return nil, ErrQueueClosed
	}
	return nil, ErrQueueEmpty
}

// pop removes the head of buf. The caller must hold q.mu.
func (q *EventQueue) pop() Event {
	ev := q.buf[0]
	q.buf[0] = nil
	q.buf = q.buf[1:]
	if len(q.buf) == 0 {
		q.buf = nil
	}
	return ev
}

// Tap returns a child queue that receives every event enqueued after the call.
// Closing the child detaches it; closing the parent closes the child.
func (q *EventQueue) Tap() (*EventQueue, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, ErrQueueClosed
	}
	child := NewEventQueue()
	q.children = append(q.children, child)
	return child, nil
}

// Close marks the queue closed and closes its children. It is idempotent.
func (q *EventQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.broadcast()
	children := q.children
	q.children = nil
	q.mu.Unlock()

	for _, c := range children {
		c.Close()
	}
}

// IsClosed reports whether Close has been called.
func (q *EventQueue) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Len returns the number of buffered events.
func (q *EventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf)
}
