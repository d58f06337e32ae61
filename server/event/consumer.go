// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"context"
	"errors"
	"iter"
)

// All returns a sequence over the events of q in order. The sequence ends cleanly when
// the queue is closed and drained; a context error is yielded once and ends it. When the
// consumer stops early the queue is closed, which detaches a tapped queue from its parent.
func All(ctx context.Context, q *EventQueue) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		defer q.Close()
		for {
			ev, err := q.DequeueEvent(ctx)
			if errors.Is(err, ErrQueueClosed) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(ev, nil) {
				return
			}
		}
	}
}
