// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package handler implements the task lifecycle behind the A2A methods: task
// resolution, agent execution, event aggregation, streaming and cancellation.
package handler

import (
	"context"
	"errors"
	"iter"

	"github.com/go-a2a/a2a-engine"
)

// ErrHandlerClosed is returned by operations started after Close.
var ErrHandlerClosed = errors.New("request handler is closed")

// RequestHandler serves the A2A methods independent of the transport.
type RequestHandler interface {
	// OnMessageSend resolves or creates the task of params.Message, runs the agent and
	// returns the task when its turn ends, or right away when the send is non-blocking.
	OnMessageSend(ctx context.Context, params *a2a.MessageSendParams) (*a2a.Task, error)

	// OnMessageSendStream is the streaming form of OnMessageSend. The sequence yields the
	// task snapshot followed by every event of the execution, ending with the final one.
	OnMessageSendStream(ctx context.Context, params *a2a.MessageSendParams) iter.Seq2[a2a.Event, error]

	// OnGetTask returns the stored task.
	OnGetTask(ctx context.Context, params *a2a.TaskQueryParams) (*a2a.Task, error)

	// OnCancelTask asks the agent to cancel the task and returns the resulting task.
	OnCancelTask(ctx context.Context, params *a2a.TaskIDParams) (*a2a.Task, error)

	// OnResubscribeToTask yields the task snapshot and then the remaining events of its
	// active execution, if any.
	OnResubscribeToTask(ctx context.Context, params *a2a.TaskIDParams) iter.Seq2[a2a.Event, error]

	// OnSetTaskPushNotificationConfig registers a webhook for the task.
	OnSetTaskPushNotificationConfig(ctx context.Context, params *a2a.TaskPushNotificationConfig) (*a2a.TaskPushNotificationConfig, error)

	// OnGetTaskPushNotificationConfig returns the latest webhook registered for the task.
	OnGetTaskPushNotificationConfig(ctx context.Context, params *a2a.TaskIDParams) (*a2a.TaskPushNotificationConfig, error)
}
