// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"maps"
	"slices"
	"time"
)

// TaskState is the lifecycle state of a [Task].
type TaskState string

const (
	// TaskStateSubmitted is the initial state of a newly created task.
	TaskStateSubmitted TaskState = "submitted"
	// TaskStateWorking means an execution is producing events for the task.
	TaskStateWorking TaskState = "working"
	// TaskStateInputRequired means the agent suspended the task until the client sends
	// another message with the same task id.
	TaskStateInputRequired TaskState = "input-required"
	// TaskStateCompleted is terminal.
	TaskStateCompleted TaskState = "completed"
	// TaskStateFailed is terminal.
	TaskStateFailed TaskState = "failed"
	// TaskStateCanceled is terminal.
	TaskStateCanceled TaskState = "canceled"
)

// Terminal reports whether no further transitions are allowed out of s.
func (s TaskState) Terminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateFailed, TaskStateCanceled:
		return true
	default:
		return false
	}
}

// Valid reports whether s is a known state.
func (s TaskState) Valid() bool {
	_, ok := transitions[s]
	return ok || s.Terminal()
}

var transitions = map[TaskState][]TaskState{
	TaskStateSubmitted: {
		TaskStateWorking, TaskStateInputRequired,
		TaskStateCompleted, TaskStateFailed, TaskStateCanceled,
	},
	TaskStateWorking: {
		TaskStateWorking, TaskStateInputRequired,
		TaskStateCompleted, TaskStateFailed, TaskStateCanceled,
	},
	TaskStateInputRequired: {
		TaskStateWorking, TaskStateFailed, TaskStateCanceled,
	},
}

// CanTransition reports whether a task in state from may move to state to.
func CanTransition(from, to TaskState) bool {
	return slices.Contains(transitions[from], to)
}

// ValidateTransition returns an [InvalidStateTransitionError] when the task cannot
// move from its current state to the given one.
func (t *Task) ValidateTransition(to TaskState) error {
	if !CanTransition(t.Status.State, to) {
		return NewInvalidStateTransitionError(t.ID, t.Status.State, to)
	}
	return nil
}

// TaskStatus is the current state of a task plus the message that accompanied it.
type TaskStatus struct {
	State     TaskState `json:"state"`
	Message   *Message  `json:"message,omitzero"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// Clone returns a deep copy of the status.
func (s TaskStatus) Clone() TaskStatus {
	s.Message = s.Message.Clone()
	return s
}

// Task is the unit of stateful work tracked across turns.
//
// ID and ContextID never change once assigned and History only ever grows.
type Task struct {
	Kind      EventKind      `json:"kind"`
	ID        string         `json:"id"`
	ContextID string         `json:"contextId"`
	Status    TaskStatus     `json:"status"`
	History   []*Message     `json:"history,omitzero"`
	Artifacts []*Artifact    `json:"artifacts,omitzero"`
	Metadata  map[string]any `json:"metadata,omitzero"`
}

var _ Event = (*Task)(nil)

// NewTask returns a submitted task whose history starts with msg. Empty ids are generated.
// The message is stamped with the task and context ids.
func NewTask(taskID, contextID string, msg *Message) *Task {
	if taskID == "" {
		taskID = NewID()
	}
	if contextID == "" {
		contextID = NewID()
	}
	t := &Task{
		Kind:      KindTask,
		ID:        taskID,
		ContextID: contextID,
		Status: TaskStatus{
			State:     TaskStateSubmitted,
			Timestamp: time.Now().UTC(),
		},
	}
	if msg != nil {
		m := msg.Clone()
		m.TaskID = taskID
		m.ContextID = contextID
		t.History = []*Message{m}
	}
	return t
}

// GetEventKind implements [Event].
func (t *Task) GetEventKind() EventKind { return KindTask }

// GetTaskID implements [Event].
func (t *Task) GetTaskID() string { return t.ID }

// SetStatus validates the transition, stamps the timestamp and records the status
// message, if any, in the history.
func (t *Task) SetStatus(status TaskStatus) error {
	if err := t.ValidateTransition(status.State); err != nil {
		return err
	}
	if status.Timestamp.IsZero() {
		status.Timestamp = time.Now().UTC()
	}
	if status.Message != nil {
		t.AppendHistory(status.Message)
	}
	t.Status = status.Clone()
	return nil
}

// AppendHistory appends msg unless a message with the same id is already recorded.
func (t *Task) AppendHistory(msg *Message) {
	if msg == nil {
		return
	}
	if msg.MessageID != "" && slices.ContainsFunc(t.History, func(m *Message) bool {
		return m.MessageID == msg.MessageID
	}) {
		return
	}
	m := msg.Clone()
	m.TaskID = t.ID
	m.ContextID = t.ContextID
	t.History = append(t.History, m)
}

// LatestHistory returns a copy of t whose history is limited to the last n messages.
// A non-positive n keeps the full history.
func (t *Task) LatestHistory(n int) *Task {
	c := t.Clone()
	if n > 0 && len(c.History) > n {
		c.History = c.History[len(c.History)-n:]
	}
	return c
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	c.Status = t.Status.Clone()
	if t.History != nil {
		c.History = make([]*Message, len(t.History))
		for i, m := range t.History {
			c.History[i] = m.Clone()
		}
	}
	if t.Artifacts != nil {
		c.Artifacts = make([]*Artifact, len(t.Artifacts))
		for i, a := range t.Artifacts {
			c.Artifacts[i] = a.Clone()
		}
	}
	c.Metadata = maps.Clone(t.Metadata)
	return &c
}
