// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package event

import "errors"

var (
	// ErrQueueClosed is returned when enqueueing to a closed queue, and by dequeue once a
	// closed queue has been drained.
	ErrQueueClosed = errors.New("event queue is closed")

	// ErrQueueEmpty is returned by a non-blocking dequeue on an empty, open queue.
	ErrQueueEmpty = errors.New("event queue is empty")

	// ErrTaskQueueExists is returned when registering a second queue for a task.
	ErrTaskQueueExists = errors.New("event queue already exists for task")

	// ErrNoTaskQueue is returned when no queue is registered for a task.
	ErrNoTaskQueue = errors.New("no event queue for task")
)
