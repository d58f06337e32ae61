// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package agent_execution defines the contract between the request handler and the
// agent logic that drives a task.
package agent_execution

import (
	"context"

	"github.com/go-a2a/a2a-engine"
)

// EventQueue is the write side of the queue an execution publishes to.
type EventQueue interface {
	EnqueueEvent(ctx context.Context, ev a2a.Event) error
}

// AgentExecutor implements the agent side of a task.
//
// Execute publishes status updates, artifacts and messages for reqCtx.TaskID to queue and
// returns when the agent has finished its turn. An error return marks the task failed.
// Execute must honor ctx cancellation.
//
// Cancel asks the agent to stop working on reqCtx.TaskID. It may publish a canceled
// status itself; returning an [a2a.UnsupportedOperationError] leaves the task unchanged.
type AgentExecutor interface {
	Execute(ctx context.Context, reqCtx *RequestContext, queue EventQueue) error
	Cancel(ctx context.Context, reqCtx *RequestContext, queue EventQueue) error
}

// AgentExecutorFunc adapts a function to an [AgentExecutor] whose Cancel is unsupported.
type AgentExecutorFunc func(ctx context.Context, reqCtx *RequestContext, queue EventQueue) error

var _ AgentExecutor = AgentExecutorFunc(nil)

// Execute implements [AgentExecutor].
func (f AgentExecutorFunc) Execute(ctx context.Context, reqCtx *RequestContext, queue EventQueue) error {
	return f(ctx, reqCtx, queue)
}

// Cancel implements [AgentExecutor].
func (f AgentExecutorFunc) Cancel(context.Context, *RequestContext, EventQueue) error {
	return a2a.NewUnsupportedOperationError("cancel")
}
