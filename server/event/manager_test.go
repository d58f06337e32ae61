// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestInMemoryQueueManager(t *testing.T) {
	t.Parallel()

	m := NewInMemoryQueueManager()
	q := NewEventQueue()

	if err := m.Add("t-1", q); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := m.Add("t-1", NewEventQueue()); !errors.Is(err, ErrTaskQueueExists) {
		t.Fatalf("second Add() error = %v, want ErrTaskQueueExists", err)
	}
	if got, ok := m.Get("t-1"); !ok || got != q {
		t.Fatalf("Get() = %p, %v; want %p, true", got, ok, q)
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}

	child, err := m.Tap("t-1")
	if err != nil {
		t.Fatalf("Tap() error = %v", err)
	}
	if err := q.EnqueueEvent(context.Background(), textEvent(1)); err != nil {
		t.Fatal(err)
	}
	if child.Len() != 1 {
		t.Errorf("tap Len() = %d, want 1", child.Len())
	}

	if err := m.Close("t-1"); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !q.IsClosed() || !child.IsClosed() {
		t.Error("Close() did not close the queue and its tap")
	}
	if _, ok := m.Get("t-1"); ok {
		t.Error("queue still registered after Close()")
	}

	if err := m.Close("t-1"); !errors.Is(err, ErrNoTaskQueue) {
		t.Errorf("Close() unknown error = %v, want ErrNoTaskQueue", err)
	}
	if _, err := m.Tap("t-1"); !errors.Is(err, ErrNoTaskQueue) {
		t.Errorf("Tap() unknown error = %v, want ErrNoTaskQueue", err)
	}
}

func TestInMemoryQueueManager_AddIsExclusive(t *testing.T) {
	t.Parallel()

	m := NewInMemoryQueueManager()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := m.Add("t-1", NewEventQueue()); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := wins.Load(); got != 1 {
		t.Errorf("%d concurrent Add calls succeeded, want 1", got)
	}
}
