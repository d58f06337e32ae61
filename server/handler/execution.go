// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package handler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/go-a2a/a2a-engine"
	"github.com/go-a2a/a2a-engine/internal/metrics"
	"github.com/go-a2a/a2a-engine/server/agent_execution"
	"github.com/go-a2a/a2a-engine/server/event"
)

// execution is the single active run of the agent on a task.
type execution struct {
	taskID    string
	contextID string

	// queue receives the executor's events, broadcast the applied ones.
	queue     *event.EventQueue
	broadcast *event.EventQueue

	reqCtx   *agent_execution.RequestContext
	snapshot *a2a.Task
	run      func(ctx context.Context, queue agent_execution.EventQueue) error

	// ctx outlives the request that started the execution; runCtx is canceled on cancel.
	ctx    context.Context
	runCtx context.Context
	cancel context.CancelFunc

	err      error // set by the runner before queue is closed
	canceled atomic.Bool

	// publishMu is held from storing an event until it is broadcast, so a tap taken
	// under it together with a store snapshot sees every event exactly once.
	publishMu sync.Mutex

	readyOnce   sync.Once
	ready       chan struct{} // closed once reqCtx and run are set
	releaseOnce sync.Once
	done        chan struct{}
}

func (e *execution) markReady() {
	e.readyOnce.Do(func() { close(e.ready) })
}

func (e *execution) wait(ctx context.Context) error {
	select {
	case <-e.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// claim reserves the execution slot of t and registers its broadcast queue.
func (h *DefaultRequestHandler) claim(ctx context.Context, t *a2a.Task) (*execution, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHandlerClosed
	}
	if _, ok := h.running[t.ID]; ok {
		return nil, a2a.NewTaskBusyError(t.ID)
	}
	broadcast := event.NewEventQueue()
	if err := h.queues.Add(t.ID, broadcast); err != nil {
		if errors.Is(err, event.ErrTaskQueueExists) {
			return nil, a2a.NewTaskBusyError(t.ID)
		}
		return nil, err
	}

	base := context.WithoutCancel(ctx)
	runCtx, cancel := context.WithCancel(base)
	exec := &execution{
		taskID:    t.ID,
		contextID: t.ContextID,
		queue:     event.NewEventQueue(),
		broadcast: broadcast,
		ctx:       base,
		runCtx:    runCtx,
		cancel:    cancel,
		ready:     make(chan struct{}),
		done:      make(chan struct{}),
	}
	h.running[t.ID] = exec
	metrics.ActiveExecutions.Inc()
	return exec, nil
}

// release frees the slot of exec, closes its queues and wakes its waiters.
func (h *DefaultRequestHandler) release(exec *execution) {
	exec.releaseOnce.Do(func() {
		h.mu.Lock()
		if h.running[exec.taskID] == exec {
			delete(h.running, exec.taskID)
		}
		_ = h.queues.Close(exec.taskID)
		h.mu.Unlock()

		exec.cancel()
		exec.queue.Close()
		exec.markReady()
		metrics.ActiveExecutions.Dec()
		close(exec.done)
	})
}

// begin resolves the task addressed by params, claims its execution slot and records the
// incoming message. The returned execution is registered but not started.
func (h *DefaultRequestHandler) begin(ctx context.Context, params *a2a.MessageSendParams) (*execution, error) {
	if params == nil || params.Message == nil {
		return nil, a2a.NewInvalidParamsError("message is required")
	}
	msg := params.Message
	if err := msg.Validate(); err != nil {
		return nil, a2a.NewInvalidParamsError("%v", err)
	}
	var pushCfg *a2a.PushNotificationConfig
	if params.Configuration != nil && params.Configuration.PushNotificationConfig != nil {
		if h.pushConfigs == nil {
			return nil, a2a.ErrPushNotificationNotSupported
		}
		pushCfg = params.Configuration.PushNotificationConfig
		if err := pushCfg.Validate(); err != nil {
			return nil, err
		}
	}

	var (
		exec *execution
		t    *a2a.Task
		err  error
	)
	if msg.TaskID != "" {
		exec, t, err = h.resume(ctx, msg)
	} else {
		exec, t, err = h.create(ctx, msg)
	}
	if err != nil {
		return nil, err
	}

	if pushCfg != nil {
		if _, err := h.pushConfigs.Set(ctx, t.ID, *pushCfg); err != nil {
			h.logger.WarnContext(ctx, "register push notification config", "task_id", t.ID, "error", err)
		}
	}
	metrics.TaskTransitions.WithLabelValues(string(t.Status.State)).Inc()
	h.notify(ctx, t)

	exec.snapshot = t
	reqCtx, err := h.builder.Build(ctx, params, t)
	if err != nil {
		// the task exists now; let the aggregator record the failure
		buildErr := fmt.Errorf("build request context: %w", err)
		exec.reqCtx = &agent_execution.RequestContext{TaskID: t.ID, ContextID: t.ContextID, Message: msg, Task: t}
		exec.run = func(context.Context, agent_execution.EventQueue) error { return buildErr }
		return exec, nil
	}
	exec.reqCtx = reqCtx
	exec.run = func(ctx context.Context, queue agent_execution.EventQueue) error {
		return h.executor.Execute(ctx, reqCtx, queue)
	}
	return exec, nil
}

// create stores a new task for msg in msg's context or a fresh one.
func (h *DefaultRequestHandler) create(ctx context.Context, msg *a2a.Message) (*execution, *a2a.Task, error) {
	t := a2a.NewTask("", msg.ContextID, msg)
	exec, err := h.claim(ctx, t)
	if err != nil {
		return nil, nil, err
	}
	created, err := h.store.Create(ctx, t)
	if err != nil {
		h.release(exec)
		return nil, nil, err
	}
	h.logger.InfoContext(ctx, "task created", "task_id", created.ID, "context_id", created.ContextID)
	return exec, created, nil
}

// resume continues an existing non-terminal task with msg and moves it to working.
func (h *DefaultRequestHandler) resume(ctx context.Context, msg *a2a.Message) (*execution, *a2a.Task, error) {
	cur, err := h.store.Get(ctx, msg.TaskID)
	if err != nil {
		return nil, nil, err
	}
	if cur.Status.State.Terminal() {
		return nil, nil, a2a.NewInvalidStateTransitionError(cur.ID, cur.Status.State, "")
	}
	if msg.ContextID != "" && msg.ContextID != cur.ContextID {
		return nil, nil, a2a.NewInvalidParamsError("message context %s does not match context %s of task %s",
			msg.ContextID, cur.ContextID, cur.ID)
	}

	exec, err := h.claim(ctx, cur)
	if err != nil {
		return nil, nil, err
	}
	t, err := h.store.Update(ctx, cur.ID, func(t *a2a.Task) error {
		if t.Status.State.Terminal() {
			return a2a.NewInvalidStateTransitionError(t.ID, t.Status.State, "")
		}
		t.AppendHistory(msg)
		if t.Status.State == a2a.TaskStateWorking {
			return nil
		}
		return t.SetStatus(a2a.TaskStatus{State: a2a.TaskStateWorking})
	})
	if err != nil {
		h.release(exec)
		return nil, nil, err
	}
	h.logger.InfoContext(ctx, "task resumed", "task_id", t.ID, "context_id", t.ContextID)
	return exec, t, nil
}

// start runs the executor and the aggregator of exec.
func (h *DefaultRequestHandler) start(exec *execution) {
	exec.markReady()
	go func() {
		defer exec.queue.Close()
		defer func() {
			if r := recover(); r != nil {
				exec.err = fmt.Errorf("agent panicked: %v", r)
			}
		}()
		exec.err = exec.run(exec.runCtx, exec.queue)
	}()
	go h.aggregate(exec)
}

// aggregate applies the events of exec until its queue is drained, then finalizes it.
func (h *DefaultRequestHandler) aggregate(exec *execution) {
	var last a2a.Event
	for ev, err := range event.All(exec.ctx, exec.queue) {
		if err != nil {
			h.logger.ErrorContext(exec.ctx, "read execution queue", "task_id", exec.taskID, "error", err)
			break
		}
		if h.apply(exec, ev) {
			last = ev
		}
	}
	h.finalize(exec, last)
}

// apply folds ev into the stored task and republishes it. Events the task rejects are
// dropped.
func (h *DefaultRequestHandler) apply(exec *execution, ev a2a.Event) bool {
	ctx := exec.ctx
	exec.publishMu.Lock()
	defer exec.publishMu.Unlock()

	updated, err := h.store.Update(ctx, exec.taskID, func(t *a2a.Task) error {
		return t.Apply(ev)
	})
	if err != nil {
		metrics.RejectedEvents.WithLabelValues(string(ev.GetEventKind())).Inc()
		h.logger.WarnContext(ctx, "dropping event", "task_id", exec.taskID, "kind", ev.GetEventKind(), "error", err)
		return false
	}

	switch ev.(type) {
	case *a2a.TaskStatusUpdateEvent, *a2a.Task:
		metrics.TaskTransitions.WithLabelValues(string(updated.Status.State)).Inc()
		h.logger.DebugContext(ctx, "task status changed", "task_id", exec.taskID, "state", updated.Status.State)
		h.notify(ctx, updated)
	}

	if err := exec.broadcast.EnqueueEvent(ctx, ev); err != nil {
		h.logger.WarnContext(ctx, "broadcast event", "task_id", exec.taskID, "error", err)
	}
	return true
}

// closingStatus returns the status a task takes when its execution ends, if any.
func closingStatus(t *a2a.Task, canceled bool, execErr error) (a2a.TaskStatus, bool) {
	switch {
	case t.Status.State.Terminal():
		return a2a.TaskStatus{}, false
	case canceled:
		return a2a.TaskStatus{State: a2a.TaskStateCanceled}, true
	case execErr != nil:
		return a2a.TaskStatus{
			State:   a2a.TaskStateFailed,
			Message: a2a.NewAgentTextMessage(t.ID, t.ContextID, execErr.Error()),
		}, true
	case t.Status.State == a2a.TaskStateInputRequired:
		return a2a.TaskStatus{}, false
	default:
		return a2a.TaskStatus{State: a2a.TaskStateCompleted}, true
	}
}

// finalize settles the task once its execution has ended, publishes the final status
// event when the stream did not end with one and releases the slot.
func (h *DefaultRequestHandler) finalize(exec *execution, last a2a.Event) {
	defer h.release(exec)

	ctx := exec.ctx
	canceled := exec.canceled.Load()
	if exec.err != nil && !canceled {
		h.logger.ErrorContext(ctx, "agent execution failed", "task_id", exec.taskID,
			"error", a2a.NewExecutionError(exec.taskID, exec.err))
	}

	exec.publishMu.Lock()
	defer exec.publishMu.Unlock()

	var changed bool
	final, err := h.store.Update(ctx, exec.taskID, func(t *a2a.Task) error {
		status, ok := closingStatus(t, canceled, exec.err)
		changed = ok
		if !ok {
			return nil
		}
		return t.SetStatus(status)
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "finalize task", "task_id", exec.taskID, "error", err)
		if final, err = h.store.Get(ctx, exec.taskID); err != nil {
			return
		}
		changed = false
	}

	if changed {
		metrics.TaskTransitions.WithLabelValues(string(final.Status.State)).Inc()
		h.notify(ctx, final)
	}
	if changed || last == nil || !a2a.IsFinalEvent(last) {
		ev := &a2a.TaskStatusUpdateEvent{
			Kind:      a2a.KindStatusUpdate,
			TaskID:    final.ID,
			ContextID: final.ContextID,
			Status:    final.Status,
			Final:     true,
		}
		if err := exec.broadcast.EnqueueEvent(ctx, ev); err != nil {
			h.logger.WarnContext(ctx, "broadcast final event", "task_id", exec.taskID, "error", err)
		}
	}
	h.logger.InfoContext(ctx, "execution finished", "task_id", exec.taskID, "state", final.Status.State)
}

func (h *DefaultRequestHandler) notify(ctx context.Context, t *a2a.Task) {
	if h.notifier != nil {
		h.notifier.Notify(ctx, t)
	}
}
