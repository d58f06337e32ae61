// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package task provides the authoritative task state: the store implementations, the
// executor-side updater and the retention janitor.
package task

import (
	"context"
	"time"

	"github.com/go-a2a/a2a-engine"
)

// MutateFunc changes a task inside [TaskStore.Update]. Returning an error aborts the
// update and leaves the stored task unchanged.
type MutateFunc func(task *a2a.Task) error

// TaskStore is the authoritative store of tasks.
//
// Every method returns copies; callers never share memory with the store. Updates of a
// single task id are serialized, updates of different ids may proceed in parallel.
type TaskStore interface {
	// Create stores a new task. It fails with a2a.DuplicateTaskError if the id exists.
	Create(ctx context.Context, task *a2a.Task) (*a2a.Task, error)

	// Get returns the task with the given id or a2a.TaskNotFoundError.
	Get(ctx context.Context, taskID string) (*a2a.Task, error)

	// Update applies fn to the current task atomically and returns the result.
	Update(ctx context.Context, taskID string, fn MutateFunc) (*a2a.Task, error)

	// ListByContext returns the tasks of a context in creation order.
	ListByContext(ctx context.Context, contextID string) ([]*a2a.Task, error)

	// Prune deletes terminal tasks last updated before the given time and reports how
	// many were removed.
	Prune(ctx context.Context, before time.Time) (int, error)

	// Close releases the resources of the store.
	Close(ctx context.Context) error
}

// mutate runs fn on a copy of task and stamps nothing on failure.
func mutate(task *a2a.Task, fn MutateFunc) (*a2a.Task, error) {
	next := task.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	if next.ID != task.ID || next.ContextID != task.ContextID {
		return nil, a2a.NewInvalidParamsError("task %s: id and context id are immutable", task.ID)
	}
	if len(next.History) < len(task.History) {
		return nil, a2a.NewInvalidParamsError("task %s: history is append-only", task.ID)
	}
	return next, nil
}

func validateNew(task *a2a.Task) error {
	if task == nil {
		return a2a.NewInvalidParamsError("task is required")
	}
	if task.ID == "" || task.ContextID == "" {
		return a2a.NewInvalidParamsError("task id and context id are required")
	}
	if !task.Status.State.Valid() {
		return a2a.NewInvalidParamsError("task %s: unknown state %q", task.ID, task.Status.State)
	}
	return nil
}
