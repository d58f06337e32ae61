// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/go-a2a/a2a-engine"
)

// InMemoryTaskStore is an in-memory implementation of [TaskStore].
// Task data is lost when the process stops.
type InMemoryTaskStore struct {
	mu    sync.RWMutex
	tasks map[string]*memEntry
	seq   uint64
	now   func() time.Time
}

// memEntry guards one task. Its mutex makes every update of the task single-writer.
type memEntry struct {
	mu        sync.Mutex
	task      *a2a.Task
	seq       uint64
	updatedAt time.Time
	removed   bool
}

var _ TaskStore = (*InMemoryTaskStore)(nil)

// NewInMemoryTaskStore creates a new InMemoryTaskStore.
func NewInMemoryTaskStore() *InMemoryTaskStore {
	return &InMemoryTaskStore{
		tasks: make(map[string]*memEntry),
		now:   time.Now,
	}
}

// Create implements [TaskStore].
func (s *InMemoryTaskStore) Create(ctx context.Context, task *a2a.Task) (*a2a.Task, error) {
	if err := validateNew(task); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[task.ID]; ok {
		return nil, a2a.NewDuplicateTaskError(task.ID)
	}
	s.seq++
	s.tasks[task.ID] = &memEntry{
		task:      task.Clone(),
		seq:       s.seq,
		updatedAt: s.now(),
	}
	return task.Clone(), nil
}

func (s *InMemoryTaskStore) entry(taskID string) (*memEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.tasks[taskID]
	return e, ok
}

// Get implements [TaskStore].
func (s *InMemoryTaskStore) Get(ctx context.Context, taskID string) (*a2a.Task, error) {
	e, ok := s.entry(taskID)
	if !ok {
		return nil, a2a.NewTaskNotFoundError(taskID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return nil, a2a.NewTaskNotFoundError(taskID)
	}
	return e.task.Clone(), nil
}

// Update implements [TaskStore].
func (s *InMemoryTaskStore) Update(ctx context.Context, taskID string, fn MutateFunc) (*a2a.Task, error) {
	e, ok := s.entry(taskID)
	if !ok {
		return nil, a2a.NewTaskNotFoundError(taskID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return nil, a2a.NewTaskNotFoundError(taskID)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	next, err := mutate(e.task, fn)
	if err != nil {
		return nil, err
	}
	e.task = next
	e.updatedAt = s.now()
	return next.Clone(), nil
}

// ListByContext implements [TaskStore].
func (s *InMemoryTaskStore) ListByContext(ctx context.Context, contextID string) ([]*a2a.Task, error) {
	s.mu.RLock()
	var entries []*memEntry
	for _, e := range s.tasks {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	slices.SortFunc(entries, func(a, b *memEntry) int { return cmp.Compare(a.seq, b.seq) })

	var out []*a2a.Task
	for _, e := range entries {
		e.mu.Lock()
		if !e.removed && e.task.ContextID == contextID {
			out = append(out, e.task.Clone())
		}
		e.mu.Unlock()
	}
	return out, nil
}

// Prune implements [TaskStore].
func (s *InMemoryTaskStore) Prune(ctx context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, e := range s.tasks {
		e.mu.Lock()
		if e.task.Status.State.Terminal() && e.updatedAt.Before(before) {
			e.removed = true
			delete(s.tasks, id)
			n++
		}
		e.mu.Unlock()
	}
	return n, nil
}

// Close implements [TaskStore].
func (s *InMemoryTaskStore) Close(context.Context) error {
	return nil
}
