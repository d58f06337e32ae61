// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"fmt"
	"sync"
)

// QueueManager tracks the live event queue of each task with an active execution.
type QueueManager interface {
	// Add registers queue for taskID. It fails with ErrTaskQueueExists if one is registered.
	Add(taskID string, queue *EventQueue) error
	// Get returns the queue registered for taskID.
	Get(taskID string) (*EventQueue, bool)
	// Tap returns a child of the queue registered for taskID.
	Tap(taskID string) (*EventQueue, error)
	// Close closes and unregisters the queue for taskID.
	Close(taskID string) error
	// Len returns the number of registered queues.
	Len() int
}

// InMemoryQueueManager is a [QueueManager] backed by a map.
type InMemoryQueueManager struct {
	mu     sync.RWMutex
	queues map[string]*EventQueue
}

var _ QueueManager = (*InMemoryQueueManager)(nil)

// NewInMemoryQueueManager returns an empty manager.
func NewInMemoryQueueManager() *InMemoryQueueManager {
	return &InMemoryQueueManager{
		queues: make(map[string]*EventQueue),
	}
}

// Add implements [QueueManager].
func (m *InMemoryQueueManager) Add(taskID string, queue *EventQueue) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.queues[taskID]; ok {
		return fmt.Errorf("%w: %s", ErrTaskQueueExists, taskID)
	}
	m.queues[taskID] = queue
	return nil
}

// Get implements [QueueManager].
func (m *InMemoryQueueManager) Get(taskID string) (*EventQueue, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	q, ok := m.queues[taskID]
	return q, ok
}

// Tap implements [QueueManager].
func (m *InMemoryQueueManager) Tap(taskID string) (*EventQueue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	q, ok := m.queues[taskID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoTaskQueue, taskID)
	}
	return q.Tap()
}

// Close implements [QueueManager].
func (m *InMemoryQueueManager) Close(taskID string) error {
	m.mu.Lock()
	q, ok := m.queues[taskID]
	delete(m.queues, taskID)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNoTaskQueue, taskID)
	}
	q.Close()
	return nil
}

// Len implements [QueueManager].
func (m *InMemoryQueueManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.queues)
}
