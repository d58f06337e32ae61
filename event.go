// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"fmt"
	"time"

	"github.com/go-json-experiment/json"
)

// EventKind is the "kind" discriminator of every object an execution can emit.
type EventKind string

const (
	KindMessage        EventKind = "message"
	KindTask           EventKind = "task"
	KindStatusUpdate   EventKind = "status-update"
	KindArtifactUpdate EventKind = "artifact-update"
)

// Event is one element of the ordered stream an agent execution produces for a task.
type Event interface {
	GetEventKind() EventKind
	GetTaskID() string
}

// TaskStatusUpdateEvent reports a status change of a task.
type TaskStatusUpdateEvent struct {
	Kind      EventKind      `json:"kind"`
	TaskID    string         `json:"taskId"`
	ContextID string         `json:"contextId"`
	Status    TaskStatus     `json:"status"`
	Final     bool           `json:"final"`
	Metadata  map[string]any `json:"metadata,omitzero"`
}

var _ Event = (*TaskStatusUpdateEvent)(nil)

// NewStatusUpdateEvent returns a status event. Final is derived from the state: terminal
// states and input-required end the current turn.
func NewStatusUpdateEvent(taskID, contextID string, state TaskState, msg *Message) *TaskStatusUpdateEvent {
	return &TaskStatusUpdateEvent{
		Kind:      KindStatusUpdate,
		TaskID:    taskID,
		ContextID: contextID,
		Status: TaskStatus{
			State:     state,
			Message:   msg,
			Timestamp: time.Now().UTC(),
		},
		Final: EndsTurn(state),
	}
}

// GetEventKind implements [Event].
func (e *TaskStatusUpdateEvent) GetEventKind() EventKind { return KindStatusUpdate }

// GetTaskID implements [Event].
func (e *TaskStatusUpdateEvent) GetTaskID() string { return e.TaskID }

// TaskArtifactUpdateEvent carries a new or extended artifact of a task.
type TaskArtifactUpdateEvent struct {
	Kind      EventKind      `json:"kind"`
	TaskID    string         `json:"taskId"`
	ContextID string         `json:"contextId"`
	Artifact  *Artifact      `json:"artifact"`
	Append    bool           `json:"append,omitzero"`
	LastChunk bool           `json:"lastChunk,omitzero"`
	Metadata  map[string]any `json:"metadata,omitzero"`
}

var _ Event = (*TaskArtifactUpdateEvent)(nil)

// NewArtifactUpdateEvent returns an artifact event.
func NewArtifactUpdateEvent(taskID, contextID string, artifact *Artifact, appendParts, lastChunk bool) *TaskArtifactUpdateEvent {
	return &TaskArtifactUpdateEvent{
		Kind:      KindArtifactUpdate,
		TaskID:    taskID,
		ContextID: contextID,
		Artifact:  artifact,
		Append:    appendParts,
		LastChunk: lastChunk,
	}
}

// GetEventKind implements [Event].
func (e *TaskArtifactUpdateEvent) GetEventKind() EventKind { return KindArtifactUpdate }

// GetTaskID implements [Event].
func (e *TaskArtifactUpdateEvent) GetTaskID() string { return e.TaskID }

// EndsTurn reports whether a task in state s waits for no further events in the
// current execution.
func EndsTurn(s TaskState) bool {
	return s.Terminal() || s == TaskStateInputRequired
}

// IsFinalEvent reports whether ev closes the event stream of an execution.
func IsFinalEvent(ev Event) bool {
	switch e := ev.(type) {
	case *TaskStatusUpdateEvent:
		return e.Final || EndsTurn(e.Status.State)
	case *Task:
		return EndsTurn(e.Status.State)
	default:
		return false
	}
}

// UnmarshalEvent decodes a JSON event, choosing the concrete type from its "kind".
func UnmarshalEvent(data []byte) (Event, error) {
	var probe struct {
		Kind EventKind `json:"kind"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode event kind: %w", err)
	}

	var ev Event
	switch probe.Kind {
	case KindMessage:
		ev = new(Message)
	case KindTask:
		ev = new(Task)
	case KindStatusUpdate:
		ev = new(TaskStatusUpdateEvent)
	case KindArtifactUpdate:
		ev = new(TaskArtifactUpdateEvent)
	default:
		return nil, fmt.Errorf("unknown event kind %q", probe.Kind)
	}
	if err := json.Unmarshal(data, ev); err != nil {
		return nil, fmt.Errorf("decode %s event: %w", probe.Kind, err)
	}
	return ev, nil
}
