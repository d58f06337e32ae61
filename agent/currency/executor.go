// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package currency implements an agent that converts amounts between currencies.
//
// A [Planner] reads the conversation and either asks for missing details or produces a
// [Query], which the [Executor] answers with rates from a [RateSource].
package currency

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-a2a/a2a-engine"
	"github.com/go-a2a/a2a-engine/server/agent_execution"
	"github.com/go-a2a/a2a-engine/server/task"
)

// ResultArtifactName names the artifact holding a conversion.
const ResultArtifactName = "conversion_result"

// Executor drives a currency conversion task.
type Executor struct {
	planner Planner
	rates   RateSource
	logger  *slog.Logger
}

var _ agent_execution.AgentExecutor = (*Executor)(nil)

// ExecutorOption configures an [Executor].
type ExecutorOption func(*Executor)

// WithLogger sets the logger of the executor.
func WithLogger(logger *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		e.logger = logger
	}
}

// NewExecutor returns an executor planning with planner and quoting from rates.
func NewExecutor(planner Planner, rates RateSource, opts ...ExecutorOption) *Executor {
	e := &Executor{
		planner: planner,
		rates:   rates,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute implements [agent_execution.AgentExecutor].
func (e *Executor) Execute(ctx context.Context, rc *agent_execution.RequestContext, queue agent_execution.EventQueue) error {
	u := task.NewTaskUpdater(queue, rc.TaskID, rc.ContextID)
	if err := u.StartWork(ctx, "Looking up the exchange rates..."); err != nil {
		return err
	}

	plan, err := e.planner.Plan(ctx, rc.Conversation())
	if err != nil {
		return fmt.Errorf("plan conversion: %w", err)
	}
	e.logger.DebugContext(ctx, "conversion planned", "task_id", rc.TaskID, "status", plan.Status)

	switch plan.Status {
	case StatusInputRequired:
		return u.RequiresInput(ctx, plan.Message)
	case StatusError:
		return u.Failed(ctx, plan.Message)
	}

	if err := u.StartWork(ctx, "Processing the exchange rates.."); err != nil {
		return err
	}
	q := plan.Query
	quote, err := e.rates.Rates(ctx, q.From, q.To, q.Date)
	if err != nil {
		return err
	}
	rate, ok := quote.Rates[q.To]
	if !ok {
		return fmt.Errorf("no %s rate for %s", q.To, q.From)
	}

	// quotes are for quote.Amount units of the base currency
	if quote.Amount > 0 {
		rate /= quote.Amount
	}
	converted := q.Amount * rate
	text := fmt.Sprintf("%s %s is %.2f %s (rate %g on %s).", formatAmount(q.Amount), q.From, converted, q.To, rate, quote.Date)

	artifact := a2a.NewTextArtifact(ResultArtifactName, text)
	artifact.Parts = append(artifact.Parts, a2a.NewDataPart(map[string]any{
		"amount": q.Amount,
		"from":   q.From,
		"to":     q.To,
		"rate":   rate,
		"result": converted,
		"date":   quote.Date,
	}))
	if err := u.AddArtifact(ctx, artifact, false, true); err != nil {
		return err
	}
	e.logger.InfoContext(ctx, "conversion completed", "task_id", rc.TaskID, "from", q.From, "to", q.To)
	return u.Complete(ctx, "")
}

// Cancel implements [agent_execution.AgentExecutor]. Conversions cannot be canceled.
func (e *Executor) Cancel(context.Context, *agent_execution.RequestContext, agent_execution.EventQueue) error {
	return a2a.NewUnsupportedOperationError("cancel")
}
