// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"sync"

	"github.com/go-a2a/a2a-engine"
)

// EventWriter is the producer side of an event queue.
type EventWriter interface {
	EnqueueEvent(ctx context.Context, ev a2a.Event) error
}

// TaskUpdater publishes status and artifact events for one task on behalf of an agent.
// Once a final status is published further updates are refused.
type TaskUpdater struct {
	taskID    string
	contextID string
	queue     EventWriter

	mu    sync.Mutex
	state a2a.TaskState
	final bool
}

// NewTaskUpdater returns an updater that writes to queue.
func NewTaskUpdater(queue EventWriter, taskID, contextID string) *TaskUpdater {
	return &TaskUpdater{
		taskID:    taskID,
		contextID: contextID,
		queue:     queue,
	}
}

// TaskID returns the task this updater writes for.
func (u *TaskUpdater) TaskID() string { return u.taskID }

// ContextID returns the context of the task.
func (u *TaskUpdater) ContextID() string { return u.contextID }

// IsFinal reports whether a final status was published.
func (u *TaskUpdater) IsFinal() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.final
}

// NewAgentMessage returns an agent text message bound to the task.
func (u *TaskUpdater) NewAgentMessage(text string) *a2a.Message {
	return a2a.NewAgentTextMessage(u.taskID, u.contextID, text)
}

// UpdateStatus publishes a status change with an optional message.
func (u *TaskUpdater) UpdateStatus(ctx context.Context, state a2a.TaskState, msg *a2a.Message) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.final {
		return NewTaskUpdaterError("update status", u.taskID,
			a2a.NewInvalidStateTransitionError(u.taskID, u.state, state))
	}

	ev := a2a.NewStatusUpdateEvent(u.taskID, u.contextID, state, msg)
	if err := u.queue.EnqueueEvent(ctx, ev); err != nil {
		return NewTaskUpdaterError("update status", u.taskID, err)
	}
	u.state = state
	u.final = ev.Final
	return nil
}

// AddArtifact publishes an artifact. With appendParts the parts extend the artifact of
// the same id.
func (u *TaskUpdater) AddArtifact(ctx context.Context, artifact *a2a.Artifact, appendParts, lastChunk bool) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.final {
		return NewTaskUpdaterError("add artifact", u.taskID,
			a2a.NewInvalidStateTransitionError(u.taskID, u.state, ""))
	}
	if err := artifact.Validate(); err != nil {
		return NewTaskUpdaterError("add artifact", u.taskID, err)
	}

	ev := a2a.NewArtifactUpdateEvent(u.taskID, u.contextID, artifact, appendParts, lastChunk)
	if err := u.queue.EnqueueEvent(ctx, ev); err != nil {
		return NewTaskUpdaterError("add artifact", u.taskID, err)
	}
	return nil
}

func (u *TaskUpdater) textMessage(text string) *a2a.Message {
	if text == "" {
		return nil
	}
	return u.NewAgentMessage(text)
}

// StartWork publishes a working status.
func (u *TaskUpdater) StartWork(ctx context.Context, text string) error {
	return u.UpdateStatus(ctx, a2a.TaskStateWorking, u.textMessage(text))
}

// RequiresInput suspends the task until the client answers.
func (u *TaskUpdater) RequiresInput(ctx context.Context, text string) error {
	return u.UpdateStatus(ctx, a2a.TaskStateInputRequired, u.textMessage(text))
}

// Complete publishes the completed status.
func (u *TaskUpdater) Complete(ctx context.Context, text string) error {
	return u.UpdateStatus(ctx, a2a.TaskStateCompleted, u.textMessage(text))
}

// Failed publishes the failed status.
func (u *TaskUpdater) Failed(ctx context.Context, text string) error {
	return u.UpdateStatus(ctx, a2a.TaskStateFailed, u.textMessage(text))
}

// Cancel publishes the canceled status.
func (u *TaskUpdater) Cancel(ctx context.Context, text string) error {
	return u.UpdateStatus(ctx, a2a.TaskStateCanceled, u.textMessage(text))
}
