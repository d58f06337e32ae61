// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package handler

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-a2a/a2a-engine"
	"github.com/go-a2a/a2a-engine/internal/metrics"
	"github.com/go-a2a/a2a-engine/server/agent_execution"
	"github.com/go-a2a/a2a-engine/server/event"
	"github.com/go-a2a/a2a-engine/server/push"
	"github.com/go-a2a/a2a-engine/server/task"
)

const tracerName = "github.com/go-a2a/a2a-engine/server/handler"

// DefaultRequestHandler is the [RequestHandler] that drives an [agent_execution.AgentExecutor]
// against a [task.TaskStore].
//
// Each task has at most one active execution. The executor writes to a private queue; a
// single aggregator goroutine per execution applies every event to the store, drops the
// ones the state machine rejects, notifies push subscribers of state changes and
// republishes the applied events on a broadcast queue that streaming callers tap. The
// aggregator also finalizes the task, so an execution reaches its terminal state even
// when every caller has gone away.
type DefaultRequestHandler struct {
	executor    agent_execution.AgentExecutor
	store       task.TaskStore
	queues      event.QueueManager
	builder     agent_execution.RequestContextBuilder
	notifier    push.Notifier
	pushConfigs push.ConfigStore
	logger      *slog.Logger
	tracer      trace.Tracer

	mu      sync.Mutex
	running map[string]*execution
	closed  bool
}

var _ RequestHandler = (*DefaultRequestHandler)(nil)

// NewDefaultRequestHandler returns a handler running executor against store.
func NewDefaultRequestHandler(executor agent_execution.AgentExecutor, store task.TaskStore, opts ...Option) *DefaultRequestHandler {
	if executor == nil {
		panic("handler: agent executor is required")
	}
	if store == nil {
		panic("handler: task store is required")
	}

	h := &DefaultRequestHandler{
		executor: executor,
		store:    store,
		queues:   event.NewInMemoryQueueManager(),
		logger:   slog.Default(),
		tracer:   otel.GetTracerProvider().Tracer(tracerName),
		running:  make(map[string]*execution),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.builder == nil {
		h.builder = agent_execution.NewSimpleRequestContextBuilder(store)
	}
	return h
}

func endSpan(span trace.Span, method string, start time.Time, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	metrics.ObserveRequest(method, start, err)
}

func taskAttrs(t *a2a.Task) trace.SpanStartEventOption {
	return trace.WithAttributes(
		attribute.String("a2a.task_id", t.ID),
		attribute.String("a2a.context_id", t.ContextID),
	)
}

// OnMessageSend implements [RequestHandler].
func (h *DefaultRequestHandler) OnMessageSend(ctx context.Context, params *a2a.MessageSendParams) (result *a2a.Task, err error) {
	start := time.Now()
	ctx, span := h.tracer.Start(ctx, "a2a.handler.OnMessageSend")
	defer func() { endSpan(span, a2a.MethodMessageSend, start, err) }()

	exec, err := h.begin(ctx, params)
	if err != nil {
		return nil, err
	}
	span.AddEvent("execution started", taskAttrs(exec.snapshot))
	h.start(exec)

	if !params.IsBlocking() {
		return exec.snapshot.LatestHistory(params.HistoryLength()), nil
	}
	select {
	case <-exec.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	t, err := h.store.Get(ctx, exec.taskID)
	if err != nil {
		return nil, err
	}
	return t.LatestHistory(params.HistoryLength()), nil
}

// OnMessageSendStream implements [RequestHandler].
func (h *DefaultRequestHandler) OnMessageSendStream(ctx context.Context, params *a2a.MessageSendParams) iter.Seq2[a2a.Event, error] {
	return func(yield func(a2a.Event, error) bool) {
		var err error
		start := time.Now()
		ctx, span := h.tracer.Start(ctx, "a2a.handler.OnMessageSendStream")
		defer func() { endSpan(span, a2a.MethodMessageStream, start, err) }()

		exec, err := h.begin(ctx, params)
		if err != nil {
			yield(nil, err)
			return
		}
		span.AddEvent("execution started", taskAttrs(exec.snapshot))

		// tap before starting so no event is missed
		tap, err := exec.broadcast.Tap()
		if err != nil {
			h.release(exec)
			yield(nil, err)
			return
		}
		h.start(exec)

		if !yield(exec.snapshot.LatestHistory(params.HistoryLength()), nil) {
			tap.Close()
			return
		}
		err = forward(ctx, tap, yield)
	}
}

// forward yields the events of tap until it is closed or the consumer stops.
func forward(ctx context.Context, tap *event.EventQueue, yield func(a2a.Event, error) bool) error {
	for ev, err := range event.All(ctx, tap) {
		if err != nil {
			yield(nil, err)
			return err
		}
		if !yield(ev, nil) {
			return nil
		}
	}
	return nil
}

// OnGetTask implements [RequestHandler].
func (h *DefaultRequestHandler) OnGetTask(ctx context.Context, params *a2a.TaskQueryParams) (result *a2a.Task, err error) {
	start := time.Now()
	ctx, span := h.tracer.Start(ctx, "a2a.handler.OnGetTask")
	defer func() { endSpan(span, a2a.MethodTasksGet, start, err) }()

	if params == nil || params.ID == "" {
		return nil, a2a.NewInvalidParamsError("task id is required")
	}
	span.SetAttributes(attribute.String("a2a.task_id", params.ID))

	t, err := h.store.Get(ctx, params.ID)
	if err != nil {
		return nil, err
	}
	return t.LatestHistory(params.HistoryLength), nil
}

// OnCancelTask implements [RequestHandler].
//
// A task in a terminal state cannot be canceled. For a running task the executor's Cancel
// is called with the running queue, then the execution context is canceled and the
// execution awaited. An idle task gets a fresh execution slot for the executor's Cancel.
// An unsupported cancel is returned as is and leaves the task unchanged.
func (h *DefaultRequestHandler) OnCancelTask(ctx context.Context, params *a2a.TaskIDParams) (result *a2a.Task, err error) {
	start := time.Now()
	ctx, span := h.tracer.Start(ctx, "a2a.handler.OnCancelTask")
	defer func() { endSpan(span, a2a.MethodTasksCancel, start, err) }()

	if params == nil || params.ID == "" {
		return nil, a2a.NewInvalidParamsError("task id is required")
	}
	span.SetAttributes(attribute.String("a2a.task_id", params.ID))

	t, err := h.store.Get(ctx, params.ID)
	if err != nil {
		return nil, err
	}
	if t.Status.State.Terminal() {
		return nil, a2a.NewInvalidStateTransitionError(t.ID, t.Status.State, a2a.TaskStateCanceled)
	}

	h.mu.Lock()
	exec, running := h.running[t.ID]
	h.mu.Unlock()

	if running {
		err = h.cancelRunning(ctx, exec)
	} else {
		err = h.cancelIdle(ctx, t)
	}
	if err != nil {
		h.logger.InfoContext(ctx, "cancel refused", "task_id", t.ID, "error", err)
		return nil, err
	}
	return h.store.Get(ctx, t.ID)
}

func (h *DefaultRequestHandler) cancelRunning(ctx context.Context, exec *execution) error {
	select {
	case <-exec.ready:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-exec.done:
		return nil
	default:
	}

	if err := h.executor.Cancel(ctx, exec.reqCtx, exec.queue); err != nil && !errors.Is(err, event.ErrQueueClosed) {
		return err
	}
	exec.canceled.Store(true)
	exec.cancel()
	return exec.wait(ctx)
}

func (h *DefaultRequestHandler) cancelIdle(ctx context.Context, t *a2a.Task) error {
	exec, err := h.claim(ctx, t)
	if err != nil {
		return err
	}
	reqCtx, err := h.builder.Build(ctx, nil, t)
	if err != nil {
		h.release(exec)
		return err
	}
	exec.reqCtx = reqCtx
	exec.markReady()

	if err := h.executor.Cancel(exec.runCtx, reqCtx, exec.queue); err != nil {
		h.release(exec)
		return err
	}
	exec.canceled.Store(true)
	exec.queue.Close()
	go h.aggregate(exec)
	return exec.wait(ctx)
}

// OnResubscribeToTask implements [RequestHandler].
func (h *DefaultRequestHandler) OnResubscribeToTask(ctx context.Context, params *a2a.TaskIDParams) iter.Seq2[a2a.Event, error] {
	return func(yield func(a2a.Event, error) bool) {
		var err error
		start := time.Now()
		ctx, span := h.tracer.Start(ctx, "a2a.handler.OnResubscribeToTask")
		defer func() { endSpan(span, a2a.MethodTasksResub, start, err) }()

		if params == nil || params.ID == "" {
			err = a2a.NewInvalidParamsError("task id is required")
			yield(nil, err)
			return
		}
		span.SetAttributes(attribute.String("a2a.task_id", params.ID))

		tap, t, err := h.follow(ctx, params.ID)
		if err != nil {
			yield(nil, err)
			return
		}
		if !yield(t, nil) || tap == nil {
			if tap != nil {
				tap.Close()
			}
			return
		}
		err = forward(ctx, tap, yield)
	}
}

// follow returns a tap on the live execution of taskID, if any, and a snapshot of the
// task consistent with it. The tap is nil when no execution is running.
func (h *DefaultRequestHandler) follow(ctx context.Context, taskID string) (*event.EventQueue, *a2a.Task, error) {
	h.mu.Lock()
	exec := h.running[taskID]
	h.mu.Unlock()
	if exec == nil {
		t, err := h.store.Get(ctx, taskID)
		return nil, t, err
	}

	exec.publishMu.Lock()
	defer exec.publishMu.Unlock()

	// a missing or closing queue means the execution is already finishing
	tap, err := h.queues.Tap(taskID)
	if err != nil {
		tap = nil
	}
	t, err := h.store.Get(ctx, taskID)
	if err != nil {
		if tap != nil {
			tap.Close()
		}
		return nil, nil, err
	}
	return tap, t, nil
}

// OnSetTaskPushNotificationConfig implements [RequestHandler].
func (h *DefaultRequestHandler) OnSetTaskPushNotificationConfig(ctx context.Context, params *a2a.TaskPushNotificationConfig) (result *a2a.TaskPushNotificationConfig, err error) {
	start := time.Now()
	ctx, span := h.tracer.Start(ctx, "a2a.handler.OnSetTaskPushNotificationConfig")
	defer func() { endSpan(span, a2a.MethodPushConfigSet, start, err) }()

	if h.pushConfigs == nil {
		return nil, a2a.ErrPushNotificationNotSupported
	}
	if params == nil || params.TaskID == "" {
		return nil, a2a.NewInvalidParamsError("task id is required")
	}
	if _, err := h.store.Get(ctx, params.TaskID); err != nil {
		return nil, err
	}

	cfg, err := h.pushConfigs.Set(ctx, params.TaskID, params.PushNotificationConfig)
	if err != nil {
		return nil, err
	}
	h.logger.InfoContext(ctx, "push notification config set", "task_id", params.TaskID, "config_id", cfg.ID)
	return &a2a.TaskPushNotificationConfig{TaskID: params.TaskID, PushNotificationConfig: cfg}, nil
}

// OnGetTaskPushNotificationConfig implements [RequestHandler].
func (h *DefaultRequestHandler) OnGetTaskPushNotificationConfig(ctx context.Context, params *a2a.TaskIDParams) (result *a2a.TaskPushNotificationConfig, err error) {
	start := time.Now()
	ctx, span := h.tracer.Start(ctx, "a2a.handler.OnGetTaskPushNotificationConfig")
	defer func() { endSpan(span, a2a.MethodPushConfigGet, start, err) }()

	if h.pushConfigs == nil {
		return nil, a2a.ErrPushNotificationNotSupported
	}
	if params == nil || params.ID == "" {
		return nil, a2a.NewInvalidParamsError("task id is required")
	}
	if _, err := h.store.Get(ctx, params.ID); err != nil {
		return nil, err
	}

	configs, err := h.pushConfigs.Get(ctx, params.ID)
	if err != nil {
		return nil, err
	}
	if len(configs) == 0 {
		return nil, a2a.NewInvalidParamsError("task %s has no push notification config", params.ID)
	}
	return &a2a.TaskPushNotificationConfig{TaskID: params.ID, PushNotificationConfig: configs[len(configs)-1]}, nil
}

// Close rejects new executions and waits for the running ones. When ctx ends first the
// remaining executions are canceled and the context error is returned.
func (h *DefaultRequestHandler) Close(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	execs := slices.Collect(maps.Values(h.running))
	h.mu.Unlock()

	for _, exec := range execs {
		if err := exec.wait(ctx); err != nil {
			for _, e := range execs {
				e.cancel()
			}
			return err
		}
	}
	return nil
}
