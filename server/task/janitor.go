// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Janitor periodically prunes terminal tasks older than a retention period.
type Janitor struct {
	store     TaskStore
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time

	cron *cron.Cron
}

// NewJanitor returns a janitor that prunes store on the given cron schedule, e.g.
// "@every 10m" or "0 * * * *".
func NewJanitor(store TaskStore, schedule string, retention time.Duration, logger *slog.Logger) (*Janitor, error) {
	if retention <= 0 {
		return nil, errors.New("retention must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}

	j := &Janitor{
		store:     store,
		retention: retention,
		logger:    logger,
		now:       time.Now,
		cron:      cron.New(),
	}
	if _, err := j.cron.AddFunc(schedule, func() { j.Sweep(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid janitor schedule %q: %w", schedule, err)
	}
	return j, nil
}

// Start runs the schedule in the background.
func (j *Janitor) Start() {
	j.cron.Start()
}

// Stop halts the schedule and waits for a running sweep, bounded by ctx.
func (j *Janitor) Stop(ctx context.Context) {
	done := j.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// Sweep prunes once and returns the number of removed tasks.
func (j *Janitor) Sweep(ctx context.Context) int {
	before := j.now().Add(-j.retention)
	n, err := j.store.Prune(ctx, before)
	if err != nil {
		j.logger.ErrorContext(ctx, "prune tasks", "before", before, "error", err)
		return n
	}
	if n > 0 {
		j.logger.InfoContext(ctx, "pruned tasks", "count", n, "before", before)
	}
	return n
}
