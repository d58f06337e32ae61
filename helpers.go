// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"fmt"
	"time"
)

// Apply folds an execution event into t. Status changes go through the state machine,
// messages are appended to the history and artifacts are merged. An event addressed to
// another task is rejected.
func (t *Task) Apply(ev Event) error {
	if id := ev.GetTaskID(); id != "" && id != t.ID {
		return NewInvalidParamsError("event for task %s applied to task %s", id, t.ID)
	}

	switch e := ev.(type) {
	case *TaskStatusUpdateEvent:
		return t.SetStatus(e.Status)

	case *TaskArtifactUpdateEvent:
		if t.Status.State.Terminal() {
			return NewInvalidStateTransitionError(t.ID, t.Status.State, "")
		}
		return t.ApplyArtifactUpdate(e)

	case *Message:
		if t.Status.State.Terminal() {
			return NewInvalidStateTransitionError(t.ID, t.Status.State, "")
		}
		t.AppendHistory(e)
		return nil

	case *Task:
		if e.Status.State != t.Status.State {
			if err := t.ValidateTransition(e.Status.State); err != nil {
				return err
			}
		}
		for _, m := range e.History {
			t.AppendHistory(m)
		}
		for _, a := range e.Artifacts {
			if err := t.ApplyArtifactUpdate(&TaskArtifactUpdateEvent{Artifact: a}); err != nil {
				return err
			}
		}
		status := e.Status.Clone()
		t.AppendHistory(status.Message)
		if status.Timestamp.IsZero() {
			status.Timestamp = time.Now().UTC()
		}
		t.Status = status
		return nil

	default:
		return fmt.Errorf("unsupported event type %T", ev)
	}
}
