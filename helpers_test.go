// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTaskApply(t *testing.T) {
	t.Parallel()

	task := NewTask("t-1", "c-1", NewUserTextMessage("convert 10 USD to EUR"))

	events := []Event{
		NewStatusUpdateEvent("t-1", "c-1", TaskStateWorking, NewAgentTextMessage("t-1", "c-1", "Looking up the exchange rates...")),
		NewArtifactUpdateEvent("t-1", "c-1", &Artifact{ArtifactID: "a-1", Parts: []Part{NewTextPart("10 USD")}}, false, false),
		NewArtifactUpdateEvent("t-1", "c-1", &Artifact{ArtifactID: "a-1", Parts: []Part{NewTextPart(" = 9.2 EUR")}}, true, true),
		NewAgentTextMessage("t-1", "c-1", "done"),
		NewStatusUpdateEvent("t-1", "c-1", TaskStateCompleted, nil),
	}
	prev := len(task.History)
	for i, ev := range events {
		if err := task.Apply(ev); err != nil {
			t.Fatalf("Apply(event %d) error = %v", i, err)
		}
		if len(task.History) < prev {
			t.Fatalf("history shrank after event %d", i)
		}
		prev = len(task.History)
	}

	if task.Status.State != TaskStateCompleted {
		t.Errorf("state = %s, want completed", task.Status.State)
	}
	if len(task.Artifacts) != 1 {
		t.Fatalf("artifacts = %d, want 1", len(task.Artifacts))
	}
	if got, want := PartsText(task.Artifacts[0].Parts), "10 USD\n = 9.2 EUR"; got != want {
		t.Errorf("artifact text = %q, want %q", got, want)
	}
	var texts []string
	for _, m := range task.History {
		texts = append(texts, m.Text())
	}
	want := []string{"convert 10 USD to EUR", "Looking up the exchange rates...", "done"}
	if diff := cmp.Diff(want, texts); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}

	if err := task.Apply(NewAgentTextMessage("t-1", "c-1", "late")); !errors.Is(err, ErrInvalidStateTransition) {
		t.Errorf("Apply after terminal error = %v, want ErrInvalidStateTransition", err)
	}
}

func TestTaskApplyRejectsForeignEvent(t *testing.T) {
	t.Parallel()

	task := NewTask("t-1", "c-1", nil)
	err := task.Apply(NewStatusUpdateEvent("t-2", "c-1", TaskStateWorking, nil))
	if !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("Apply() error = %v, want ErrInvalidParams", err)
	}
	if task.Status.State != TaskStateSubmitted {
		t.Errorf("state changed to %s", task.Status.State)
	}
}

func TestTaskApplySnapshot(t *testing.T) {
	t.Parallel()

	task := NewTask("t-1", "c-1", NewUserTextMessage("hi"))
	snap := task.Clone()
	snap.Status = TaskStatus{State: TaskStateInputRequired, Message: NewAgentTextMessage("t-1", "c-1", "which currency?")}
	snap.History = nil

	if err := task.Apply(snap); err != nil {
		t.Fatalf("Apply(snapshot) error = %v", err)
	}
	if task.Status.State != TaskStateInputRequired {
		t.Errorf("state = %s, want input-required", task.Status.State)
	}
	if len(task.History) != 2 {
		t.Errorf("history length = %d, want 2 (snapshot must not shrink history)", len(task.History))
	}
}
