// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package handler

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/go-a2a/a2a-engine/server/agent_execution"
	"github.com/go-a2a/a2a-engine/server/event"
	"github.com/go-a2a/a2a-engine/server/push"
)

// Option configures a [DefaultRequestHandler].
type Option func(*DefaultRequestHandler)

// WithQueueManager sets the registry of live broadcast queues.
func WithQueueManager(qm event.QueueManager) Option {
	return func(h *DefaultRequestHandler) {
		h.queues = qm
	}
}

// WithPushNotifier sets the notifier told about every task state change.
func WithPushNotifier(n push.Notifier) Option {
	return func(h *DefaultRequestHandler) {
		h.notifier = n
	}
}

// WithPushConfigStore enables the push notification config methods.
func WithPushConfigStore(s push.ConfigStore) Option {
	return func(h *DefaultRequestHandler) {
		h.pushConfigs = s
	}
}

// WithContextBuilder replaces the builder of executor request contexts.
func WithContextBuilder(b agent_execution.RequestContextBuilder) Option {
	return func(h *DefaultRequestHandler) {
		h.builder = b
	}
}

// WithLogger sets the [*slog.Logger].
func WithLogger(logger *slog.Logger) Option {
	return func(h *DefaultRequestHandler) {
		h.logger = logger
	}
}

// WithTracer sets the [trace.Tracer].
func WithTracer(tracer trace.Tracer) Option {
	return func(h *DefaultRequestHandler) {
		h.tracer = tracer
	}
}
