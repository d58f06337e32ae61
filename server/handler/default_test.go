// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/go-a2a/a2a-engine"
	"github.com/go-a2a/a2a-engine/server/agent_execution"
	"github.com/go-a2a/a2a-engine/server/push"
	"github.com/go-a2a/a2a-engine/server/task"
)

type fakeExecutor struct {
	execute func(ctx context.Context, rc *agent_execution.RequestContext, q agent_execution.EventQueue) error
	cancel  func(ctx context.Context, rc *agent_execution.RequestContext, q agent_execution.EventQueue) error
}

func (f *fakeExecutor) Execute(ctx context.Context, rc *agent_execution.RequestContext, q agent_execution.EventQueue) error {
	return f.execute(ctx, rc, q)
}

func (f *fakeExecutor) Cancel(ctx context.Context, rc *agent_execution.RequestContext, q agent_execution.EventQueue) error {
	if f.cancel == nil {
		return a2a.NewUnsupportedOperationError("cancel")
	}
	return f.cancel(ctx, rc, q)
}

// statuses publishes the given states in order.
func statuses(states ...a2a.TaskState) func(context.Context, *agent_execution.RequestContext, agent_execution.EventQueue) error {
	return func(ctx context.Context, rc *agent_execution.RequestContext, q agent_execution.EventQueue) error {
		u := task.NewTaskUpdater(q, rc.TaskID, rc.ContextID)
		for _, s := range states {
			if err := u.UpdateStatus(ctx, s, u.NewAgentMessage(string(s))); err != nil {
				return err
			}
		}
		return nil
	}
}

type recordingNotifier struct {
	mu     sync.Mutex
	states []a2a.TaskState
}

func (n *recordingNotifier) Notify(_ context.Context, t *a2a.Task) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.states = append(n.states, t.Status.State)
}

func (n *recordingNotifier) got() []a2a.TaskState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]a2a.TaskState(nil), n.states...)
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func newHandler(t *testing.T, exec agent_execution.AgentExecutor, opts ...Option) (*DefaultRequestHandler, task.TaskStore) {
	t.Helper()
	store := task.NewInMemoryTaskStore()
	h := NewDefaultRequestHandler(exec, store, append([]Option{WithLogger(quiet)}, opts...)...)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.Close(ctx); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return h, store
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func send(text string) *a2a.MessageSendParams {
	return &a2a.MessageSendParams{Message: a2a.NewUserTextMessage(text)}
}

func followUp(prev *a2a.Task, text string) *a2a.MessageSendParams {
	msg := a2a.NewUserTextMessage(text)
	msg.TaskID = prev.ID
	msg.ContextID = prev.ContextID
	return &a2a.MessageSendParams{Message: msg}
}

func nonBlocking(p *a2a.MessageSendParams) *a2a.MessageSendParams {
	blocking := false
	p.Configuration = &a2a.MessageSendConfiguration{Blocking: &blocking}
	return p
}

func historyIDs(t *a2a.Task) []string {
	ids := make([]string, len(t.History))
	for i, m := range t.History {
		ids[i] = m.MessageID
	}
	return ids
}

func TestOnMessageSendSingleTurn(t *testing.T) {
	t.Parallel()

	ctx := testContext(t)
	notifier := &recordingNotifier{}
	exec := &fakeExecutor{execute: func(ctx context.Context, rc *agent_execution.RequestContext, q agent_execution.EventQueue) error {
		u := task.NewTaskUpdater(q, rc.TaskID, rc.ContextID)
		if err := u.StartWork(ctx, "working on it"); err != nil {
			return err
		}
		return u.AddArtifact(ctx, a2a.NewTextArtifact("result", "42"), false, true)
	}}
	h, _ := newHandler(t, exec, WithPushNotifier(notifier))

	got, err := h.OnMessageSend(ctx, send("what is the answer?"))
	if err != nil {
		t.Fatalf("OnMessageSend() error = %v", err)
	}
	if got.ID == "" || got.ContextID == "" {
		t.Fatalf("OnMessageSend() returned ids %q/%q", got.ID, got.ContextID)
	}
	if got.Status.State != a2a.TaskStateCompleted {
		t.Errorf("state = %s, want completed", got.Status.State)
	}
	if len(got.Artifacts) != 1 || a2a.PartsText(got.Artifacts[0].Parts) != "42" {
		t.Errorf("artifacts = %+v", got.Artifacts)
	}
	if len(got.History) != 2 || got.History[0].Text() != "what is the answer?" {
		t.Errorf("history = %+v", got.History)
	}

	want := []a2a.TaskState{a2a.TaskStateSubmitted, a2a.TaskStateWorking, a2a.TaskStateCompleted}
	if diff := cmp.Diff(want, notifier.got()); diff != "" {
		t.Errorf("notified states mismatch (-want +got):\n%s", diff)
	}

	fetched, err := h.OnGetTask(ctx, &a2a.TaskQueryParams{ID: got.ID, HistoryLength: 1})
	if err != nil {
		t.Fatalf("OnGetTask() error = %v", err)
	}
	if len(fetched.History) != 1 || fetched.History[0].Text() != "working on it" {
		t.Errorf("OnGetTask(historyLength=1) history = %+v", fetched.History)
	}
}

func TestOnMessageSendMultiTurn(t *testing.T) {
	t.Parallel()

	ctx := testContext(t)
	var turns []*agent_execution.RequestContext
	var mu sync.Mutex
	exec := &fakeExecutor{execute: func(ctx context.Context, rc *agent_execution.RequestContext, q agent_execution.EventQueue) error {
		mu.Lock()
		turns = append(turns, rc)
		n := len(turns)
		mu.Unlock()
		if n == 1 {
			return statuses(a2a.TaskStateWorking, a2a.TaskStateInputRequired)(ctx, rc, q)
		}
		return statuses(a2a.TaskStateWorking, a2a.TaskStateCompleted)(ctx, rc, q)
	}}
	h, _ := newHandler(t, exec)

	first, err := h.OnMessageSend(ctx, send("convert 100 USD"))
	if err != nil {
		t.Fatal(err)
	}
	if first.Status.State != a2a.TaskStateInputRequired {
		t.Fatalf("first turn state = %s, want input-required", first.Status.State)
	}

	second, err := h.OnMessageSend(ctx, followUp(first, "to EUR"))
	if err != nil {
		t.Fatalf("follow-up OnMessageSend() error = %v", err)
	}
	if second.ID != first.ID || second.ContextID != first.ContextID {
		t.Errorf("follow-up ids = %s/%s, want %s/%s", second.ID, second.ContextID, first.ID, first.ContextID)
	}
	if second.Status.State != a2a.TaskStateCompleted {
		t.Errorf("follow-up state = %s, want completed", second.Status.State)
	}

	// history only grows and keeps its prefix
	if diff := cmp.Diff(historyIDs(first), historyIDs(second)[:len(first.History)]); diff != "" {
		t.Errorf("history prefix changed (-first +second):\n%s", diff)
	}
	if len(second.History) <= len(first.History) {
		t.Errorf("history did not grow: %d -> %d", len(first.History), len(second.History))
	}

	mu.Lock()
	defer mu.Unlock()
	if got := turns[1].Task.History; len(got) < 2 || got[len(got)-1].Text() != "to EUR" {
		t.Errorf("second turn request context history = %+v", got)
	}
	if got := turns[1].UserInput(); got != "to EUR" {
		t.Errorf("second turn UserInput() = %q", got)
	}
}

func TestOnMessageSendRelatedTasks(t *testing.T) {
	t.Parallel()

	ctx := testContext(t)
	related := make(chan []*a2a.Task, 2)
	exec := &fakeExecutor{execute: func(ctx context.Context, rc *agent_execution.RequestContext, q agent_execution.EventQueue) error {
		related <- rc.RelatedTasks
		return nil
	}}
	h, _ := newHandler(t, exec)

	first, err := h.OnMessageSend(ctx, send("hello"))
	if err != nil {
		t.Fatal(err)
	}
	<-related

	msg := a2a.NewUserTextMessage("again")
	msg.ContextID = first.ContextID
	second, err := h.OnMessageSend(ctx, &a2a.MessageSendParams{Message: msg})
	if err != nil {
		t.Fatal(err)
	}
	if second.ID == first.ID || second.ContextID != first.ContextID {
		t.Errorf("second task %s/%s, first %s/%s", second.ID, second.ContextID, first.ID, first.ContextID)
	}
	got := <-related
	if len(got) != 1 || got[0].ID != first.ID {
		t.Errorf("RelatedTasks = %+v, want [%s]", got, first.ID)
	}
}

func TestOnMessageSendErrors(t *testing.T) {
	t.Parallel()

	ctx := testContext(t)
	h, _ := newHandler(t, &fakeExecutor{execute: func(ctx context.Context, rc *agent_execution.RequestContext, q agent_execution.EventQueue) error {
		if rc.UserInput() == "pause" {
			return statuses(a2a.TaskStateInputRequired)(ctx, rc, q)
		}
		return statuses(a2a.TaskStateCompleted)(ctx, rc, q)
	}})

	done, err := h.OnMessageSend(ctx, send("hi"))
	if err != nil {
		t.Fatal(err)
	}
	paused, err := h.OnMessageSend(ctx, send("pause"))
	if err != nil {
		t.Fatal(err)
	}

	unknown := a2a.NewUserTextMessage("hi")
	unknown.TaskID = "no-such-task"

	mismatch := followUp(paused, "hi")
	mismatch.Message.ContextID = "other-context"

	tests := map[string]struct {
		params *a2a.MessageSendParams
		want   error
	}{
		"error: nil params":         {params: nil, want: a2a.ErrInvalidParams},
		"error: empty message":      {params: &a2a.MessageSendParams{Message: &a2a.Message{Role: a2a.RoleUser}}, want: a2a.ErrInvalidParams},
		"error: unknown task":       {params: &a2a.MessageSendParams{Message: unknown}, want: a2a.ErrTaskNotFound},
		"error: terminal task":      {params: followUp(done, "again"), want: a2a.ErrInvalidStateTransition},
		"error: context mismatch":   {params: mismatch, want: a2a.ErrInvalidParams},
		"error: push not supported": {params: withPush(send("hi")), want: a2a.ErrPushNotificationNotSupported},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := h.OnMessageSend(ctx, tt.params)
			if !errors.Is(err, tt.want) {
				t.Errorf("OnMessageSend() error = %v, want %v", err, tt.want)
			}
		})
	}

	got, err := h.OnGetTask(ctx, &a2a.TaskQueryParams{ID: done.ID})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(historyIDs(done), historyIDs(got)); diff != "" {
		t.Errorf("rejected send changed the task (-want +got):\n%s", diff)
	}
}

func withPush(p *a2a.MessageSendParams) *a2a.MessageSendParams {
	p.Configuration = &a2a.MessageSendConfiguration{
		PushNotificationConfig: &a2a.PushNotificationConfig{URL: "https://example.com/hook"},
	}
	return p
}

func TestOnMessageSendExecutionError(t *testing.T) {
	t.Parallel()

	ctx := testContext(t)
	h, _ := newHandler(t, &fakeExecutor{execute: func(ctx context.Context, rc *agent_execution.RequestContext, q agent_execution.EventQueue) error {
		if err := statuses(a2a.TaskStateWorking)(ctx, rc, q); err != nil {
			return err
		}
		return errors.New("rate service unavailable")
	}})

	got, err := h.OnMessageSend(ctx, send("convert"))
	if err != nil {
		t.Fatalf("OnMessageSend() error = %v, want the failure recorded on the task", err)
	}
	if got.Status.State != a2a.TaskStateFailed {
		t.Fatalf("state = %s, want failed", got.Status.State)
	}
	if got.Status.Message == nil || got.Status.Message.Text() != "rate service unavailable" {
		t.Errorf("status message = %+v", got.Status.Message)
	}
}

func TestOnMessageSendPanicMarksFailed(t *testing.T) {
	t.Parallel()

	ctx := testContext(t)
	h, _ := newHandler(t, &fakeExecutor{execute: func(context.Context, *agent_execution.RequestContext, agent_execution.EventQueue) error {
		panic("boom")
	}})

	got, err := h.OnMessageSend(ctx, send("hi"))
	if err != nil {
		t.Fatal(err)
	}
	if got.Status.State != a2a.TaskStateFailed {
		t.Errorf("state = %s, want failed", got.Status.State)
	}
}

func TestOnMessageSendDropsIllegalEvents(t *testing.T) {
	t.Parallel()

	ctx := testContext(t)
	h, _ := newHandler(t, &fakeExecutor{execute: func(ctx context.Context, rc *agent_execution.RequestContext, q agent_execution.EventQueue) error {
		events := []a2a.Event{
			a2a.NewStatusUpdateEvent(rc.TaskID, rc.ContextID, a2a.TaskStateCompleted, nil),
			a2a.NewStatusUpdateEvent(rc.TaskID, rc.ContextID, a2a.TaskStateWorking, nil),
			a2a.NewArtifactUpdateEvent(rc.TaskID, rc.ContextID, a2a.NewTextArtifact("late", "x"), false, true),
		}
		for _, ev := range events {
			if err := q.EnqueueEvent(ctx, ev); err != nil {
				return err
			}
		}
		return nil
	}})

	got, err := h.OnMessageSend(ctx, send("hi"))
	if err != nil {
		t.Fatal(err)
	}
	if got.Status.State != a2a.TaskStateCompleted {
		t.Errorf("state = %s, want completed", got.Status.State)
	}
	if len(got.Artifacts) != 0 {
		t.Errorf("artifact after terminal state was applied: %+v", got.Artifacts)
	}
}

func TestOnMessageSendBusy(t *testing.T) {
	t.Parallel()

	ctx := testContext(t)
	release := make(chan struct{})
	h, _ := newHandler(t, &fakeExecutor{execute: func(ctx context.Context, rc *agent_execution.RequestContext, q agent_execution.EventQueue) error {
		if err := statuses(a2a.TaskStateWorking)(ctx, rc, q); err != nil {
			return err
		}
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}})

	started, err := h.OnMessageSend(ctx, nonBlocking(send("slow")))
	if err != nil {
		t.Fatal(err)
	}
	if started.Status.State.Terminal() {
		t.Fatalf("non-blocking send returned terminal state %s", started.Status.State)
	}

	_, err = h.OnMessageSend(ctx, followUp(started, "again"))
	if !errors.Is(err, a2a.ErrTaskBusy) {
		t.Errorf("second send error = %v, want ErrTaskBusy", err)
	}
	close(release)

	final := waitForState(t, h, started.ID, a2a.TaskStateCompleted)
	if final.Status.State != a2a.TaskStateCompleted {
		t.Errorf("state = %s, want completed", final.Status.State)
	}
}

func waitForState(t *testing.T, h *DefaultRequestHandler, taskID string, want a2a.TaskState) *a2a.Task {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		got, err := h.OnGetTask(context.Background(), &a2a.TaskQueryParams{ID: taskID})
		if err != nil {
			t.Fatal(err)
		}
		if got.Status.State == want || time.Now().After(deadline) {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func collect(t *testing.T, seq func(func(a2a.Event, error) bool)) []a2a.Event {
	t.Helper()
	var events []a2a.Event
	for ev, err := range seq {
		if err != nil {
			t.Fatalf("stream error = %v", err)
		}
		events = append(events, ev)
	}
	return events
}

func kinds(events []a2a.Event) []a2a.EventKind {
	out := make([]a2a.EventKind, len(events))
	for i, ev := range events {
		out[i] = ev.GetEventKind()
	}
	return out
}

func TestOnMessageSendStream(t *testing.T) {
	t.Parallel()

	ctx := testContext(t)
	h, _ := newHandler(t, &fakeExecutor{execute: func(ctx context.Context, rc *agent_execution.RequestContext, q agent_execution.EventQueue) error {
		u := task.NewTaskUpdater(q, rc.TaskID, rc.ContextID)
		if err := u.StartWork(ctx, "looking up"); err != nil {
			return err
		}
		if err := u.AddArtifact(ctx, a2a.NewTextArtifact("conversion_result", "1 USD = 0.9 EUR"), false, true); err != nil {
			return err
		}
		return u.Complete(ctx, "")
	}})

	events := collect(t, h.OnMessageSendStream(ctx, send("convert 1 USD to EUR")))

	want := []a2a.EventKind{a2a.KindTask, a2a.KindStatusUpdate, a2a.KindArtifactUpdate, a2a.KindStatusUpdate}
	if diff := cmp.Diff(want, kinds(events)); diff != "" {
		t.Fatalf("event kinds mismatch (-want +got):\n%s", diff)
	}
	last := events[len(events)-1].(*a2a.TaskStatusUpdateEvent)
	if !last.Final || last.Status.State != a2a.TaskStateCompleted {
		t.Errorf("last event = %+v, want final completed", last)
	}
	taskID := events[0].GetTaskID()
	for _, ev := range events {
		if ev.GetTaskID() != taskID {
			t.Errorf("event %T for task %s, want %s", ev, ev.GetTaskID(), taskID)
		}
	}
}

func TestOnMessageSendStreamSynthesizesFinalEvent(t *testing.T) {
	t.Parallel()

	ctx := testContext(t)
	h, _ := newHandler(t, &fakeExecutor{execute: statuses(a2a.TaskStateWorking)})

	events := collect(t, h.OnMessageSendStream(ctx, send("hi")))
	last, ok := events[len(events)-1].(*a2a.TaskStatusUpdateEvent)
	if !ok || !last.Final || last.Status.State != a2a.TaskStateCompleted {
		t.Fatalf("last event = %#v, want final completed status", events[len(events)-1])
	}
}

func TestOnMessageSendStreamSetupError(t *testing.T) {
	t.Parallel()

	h, _ := newHandler(t, &fakeExecutor{execute: statuses(a2a.TaskStateCompleted)})
	msg := a2a.NewUserTextMessage("hi")
	msg.TaskID = "missing"

	var errs []error
	for ev, err := range h.OnMessageSendStream(testContext(t), &a2a.MessageSendParams{Message: msg}) {
		if ev != nil {
			t.Errorf("unexpected event %T", ev)
		}
		errs = append(errs, err)
	}
	if len(errs) != 1 || !errors.Is(errs[0], a2a.ErrTaskNotFound) {
		t.Errorf("errors = %v, want one ErrTaskNotFound", errs)
	}
}

func TestOnMessageSendStreamEarlyStop(t *testing.T) {
	t.Parallel()

	ctx := testContext(t)
	h, _ := newHandler(t, &fakeExecutor{execute: statuses(a2a.TaskStateWorking, a2a.TaskStateWorking, a2a.TaskStateCompleted)})

	var taskID string
	for ev, err := range h.OnMessageSendStream(ctx, send("hi")) {
		if err != nil {
			t.Fatal(err)
		}
		taskID = ev.GetTaskID()
		break
	}

	// the execution still runs to completion without a consumer
	if got := waitForState(t, h, taskID, a2a.TaskStateCompleted); got.Status.State != a2a.TaskStateCompleted {
		t.Errorf("state = %s, want completed", got.Status.State)
	}
}

func TestOnCancelTask(t *testing.T) {
	t.Parallel()

	t.Run("error: unsupported leaves the task unchanged", func(t *testing.T) {
		t.Parallel()

		ctx := testContext(t)
		h, _ := newHandler(t, &fakeExecutor{execute: statuses(a2a.TaskStateInputRequired)})
		idle, err := h.OnMessageSend(ctx, send("hi"))
		if err != nil {
			t.Fatal(err)
		}

		for range 2 {
			_, err := h.OnCancelTask(ctx, &a2a.TaskIDParams{ID: idle.ID})
			if !errors.Is(err, a2a.ErrUnsupportedOperation) {
				t.Errorf("OnCancelTask() error = %v, want ErrUnsupportedOperation", err)
			}
		}
		got, err := h.OnGetTask(ctx, &a2a.TaskQueryParams{ID: idle.ID})
		if err != nil {
			t.Fatal(err)
		}
		if got.Status.State != a2a.TaskStateInputRequired {
			t.Errorf("state = %s, want input-required", got.Status.State)
		}
	})

	t.Run("success: running task", func(t *testing.T) {
		t.Parallel()

		ctx := testContext(t)
		h, _ := newHandler(t, &fakeExecutor{
			execute: func(ctx context.Context, rc *agent_execution.RequestContext, q agent_execution.EventQueue) error {
				if err := statuses(a2a.TaskStateWorking)(ctx, rc, q); err != nil {
					return err
				}
				<-ctx.Done()
				return ctx.Err()
			},
			cancel: func(context.Context, *agent_execution.RequestContext, agent_execution.EventQueue) error {
				return nil
			},
		})
		running, err := h.OnMessageSend(ctx, nonBlocking(send("long job")))
		if err != nil {
			t.Fatal(err)
		}

		got, err := h.OnCancelTask(ctx, &a2a.TaskIDParams{ID: running.ID})
		if err != nil {
			t.Fatalf("OnCancelTask() error = %v", err)
		}
		if got.Status.State != a2a.TaskStateCanceled {
			t.Errorf("state = %s, want canceled", got.Status.State)
		}
	})

	t.Run("success: idle task", func(t *testing.T) {
		t.Parallel()

		ctx := testContext(t)
		h, _ := newHandler(t, &fakeExecutor{
			execute: statuses(a2a.TaskStateInputRequired),
			cancel: func(ctx context.Context, rc *agent_execution.RequestContext, q agent_execution.EventQueue) error {
				return task.NewTaskUpdater(q, rc.TaskID, rc.ContextID).Cancel(ctx, "stopped")
			},
		})
		idle, err := h.OnMessageSend(ctx, send("hi"))
		if err != nil {
			t.Fatal(err)
		}

		got, err := h.OnCancelTask(ctx, &a2a.TaskIDParams{ID: idle.ID})
		if err != nil {
			t.Fatalf("OnCancelTask() error = %v", err)
		}
		if got.Status.State != a2a.TaskStateCanceled {
			t.Errorf("state = %s, want canceled", got.Status.State)
		}

		_, err = h.OnCancelTask(ctx, &a2a.TaskIDParams{ID: idle.ID})
		if !errors.Is(err, a2a.ErrInvalidStateTransition) {
			t.Errorf("cancel of canceled task error = %v, want ErrInvalidStateTransition", err)
		}
	})

	t.Run("error: unknown task", func(t *testing.T) {
		t.Parallel()

		h, _ := newHandler(t, &fakeExecutor{execute: statuses()})
		_, err := h.OnCancelTask(testContext(t), &a2a.TaskIDParams{ID: "missing"})
		if !errors.Is(err, a2a.ErrTaskNotFound) {
			t.Errorf("OnCancelTask() error = %v, want ErrTaskNotFound", err)
		}
	})
}

func TestOnResubscribeToTask(t *testing.T) {
	t.Parallel()

	ctx := testContext(t)
	release := make(chan struct{})
	h, _ := newHandler(t, &fakeExecutor{execute: func(ctx context.Context, rc *agent_execution.RequestContext, q agent_execution.EventQueue) error {
		u := task.NewTaskUpdater(q, rc.TaskID, rc.ContextID)
		if err := u.StartWork(ctx, ""); err != nil {
			return err
		}
		<-release
		if err := u.AddArtifact(ctx, a2a.NewTextArtifact("out", "done"), false, true); err != nil {
			return err
		}
		return u.Complete(ctx, "")
	}})

	started, err := h.OnMessageSend(ctx, nonBlocking(send("hi")))
	if err != nil {
		t.Fatal(err)
	}

	var events []a2a.Event
	for ev, err := range h.OnResubscribeToTask(ctx, &a2a.TaskIDParams{ID: started.ID}) {
		if err != nil {
			t.Fatal(err)
		}
		if len(events) == 0 {
			close(release)
		}
		events = append(events, ev)
	}

	if len(events) < 3 {
		t.Fatalf("got %d events, want snapshot, artifact and final status", len(events))
	}
	if events[0].GetEventKind() != a2a.KindTask {
		t.Errorf("first event kind = %s, want task", events[0].GetEventKind())
	}
	tail := kinds(events[len(events)-2:])
	if diff := cmp.Diff([]a2a.EventKind{a2a.KindArtifactUpdate, a2a.KindStatusUpdate}, tail); diff != "" {
		t.Errorf("tail mismatch (-want +got):\n%s", diff)
	}
	if !a2a.IsFinalEvent(events[len(events)-1]) {
		t.Error("stream did not end with a final event")
	}

	// an idle task yields only its snapshot
	after := collect(t, h.OnResubscribeToTask(ctx, &a2a.TaskIDParams{ID: started.ID}))
	if len(after) != 1 || after[0].(*a2a.Task).Status.State != a2a.TaskStateCompleted {
		t.Errorf("resubscribe after completion = %+v", after)
	}
}

func TestOnResubscribeToTaskSeesEachArtifactOnce(t *testing.T) {
	t.Parallel()

	const parts = 50
	ctx := testContext(t)
	release := make(chan struct{})
	h, _ := newHandler(t, &fakeExecutor{execute: func(ctx context.Context, rc *agent_execution.RequestContext, q agent_execution.EventQueue) error {
		u := task.NewTaskUpdater(q, rc.TaskID, rc.ContextID)
		if err := u.StartWork(ctx, ""); err != nil {
			return err
		}
		<-release
		for i := range parts {
			if err := u.AddArtifact(ctx, a2a.NewTextArtifact(fmt.Sprintf("part-%d", i), "x"), false, true); err != nil {
				return err
			}
		}
		return u.Complete(ctx, "")
	}})

	started, err := h.OnMessageSend(ctx, nonBlocking(send("hi")))
	if err != nil {
		t.Fatal(err)
	}
	close(release)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 5 {
				seen := make(map[string]int)
				for ev, err := range h.OnResubscribeToTask(ctx, &a2a.TaskIDParams{ID: started.ID}) {
					if err != nil {
						t.Errorf("stream error = %v", err)
						return
					}
					switch ev := ev.(type) {
					case *a2a.Task:
						for _, a := range ev.Artifacts {
							seen[a.Name]++
						}
					case *a2a.TaskArtifactUpdateEvent:
						seen[ev.Artifact.Name]++
					}
				}
				if len(seen) != parts {
					t.Errorf("saw %d artifacts, want %d", len(seen), parts)
				}
				for name, n := range seen {
					if n != 1 {
						t.Errorf("artifact %s seen %d times, want 1", name, n)
					}
				}
			}
		}()
	}
	wg.Wait()
}

func TestPushNotificationConfig(t *testing.T) {
	t.Parallel()

	ctx := testContext(t)
	h, _ := newHandler(t, &fakeExecutor{execute: statuses(a2a.TaskStateInputRequired)},
		WithPushConfigStore(push.NewInMemoryConfigStore()))

	created, err := h.OnMessageSend(ctx, withPush(send("hi")))
	if err != nil {
		t.Fatal(err)
	}
	got, err := h.OnGetTaskPushNotificationConfig(ctx, &a2a.TaskIDParams{ID: created.ID})
	if err != nil {
		t.Fatalf("OnGetTaskPushNotificationConfig() error = %v", err)
	}
	if got.PushNotificationConfig.URL != "https://example.com/hook" || got.PushNotificationConfig.ID == "" {
		t.Errorf("config = %+v", got.PushNotificationConfig)
	}

	set, err := h.OnSetTaskPushNotificationConfig(ctx, &a2a.TaskPushNotificationConfig{
		TaskID:                 created.ID,
		PushNotificationConfig: a2a.PushNotificationConfig{URL: "https://example.com/other", Token: "tok"},
	})
	if err != nil {
		t.Fatalf("OnSetTaskPushNotificationConfig() error = %v", err)
	}
	got, err = h.OnGetTaskPushNotificationConfig(ctx, &a2a.TaskIDParams{ID: created.ID})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(set, got); diff != "" {
		t.Errorf("latest config mismatch (-want +got):\n%s", diff)
	}

	_, err = h.OnSetTaskPushNotificationConfig(ctx, &a2a.TaskPushNotificationConfig{
		TaskID:                 "missing",
		PushNotificationConfig: a2a.PushNotificationConfig{URL: "https://example.com/x"},
	})
	if !errors.Is(err, a2a.ErrTaskNotFound) {
		t.Errorf("set for unknown task error = %v, want ErrTaskNotFound", err)
	}
}

func TestPushNotificationConfigUnsupported(t *testing.T) {
	t.Parallel()

	h, _ := newHandler(t, &fakeExecutor{execute: statuses()})
	_, err := h.OnGetTaskPushNotificationConfig(testContext(t), &a2a.TaskIDParams{ID: "x"})
	if !errors.Is(err, a2a.ErrPushNotificationNotSupported) {
		t.Errorf("error = %v, want ErrPushNotificationNotSupported", err)
	}
}

func TestCloseRejectsNewSends(t *testing.T) {
	t.Parallel()

	store := task.NewInMemoryTaskStore()
	h := NewDefaultRequestHandler(&fakeExecutor{execute: statuses()}, store, WithLogger(quiet))
	if err := h.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := h.OnMessageSend(context.Background(), send("hi")); !errors.Is(err, ErrHandlerClosed) {
		t.Errorf("OnMessageSend() after Close error = %v, want ErrHandlerClosed", err)
	}
}
