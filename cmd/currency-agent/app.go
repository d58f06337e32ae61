// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	openaioption "github.com/openai/openai-go/option"
	"github.com/redis/go-redis/v9"

	"github.com/go-a2a/a2a-engine"
	"github.com/go-a2a/a2a-engine/agent/currency"
	"github.com/go-a2a/a2a-engine/internal/config"
	"github.com/go-a2a/a2a-engine/internal/metrics"
	"github.com/go-a2a/a2a-engine/server/handler"
	"github.com/go-a2a/a2a-engine/server/push"
	"github.com/go-a2a/a2a-engine/server/task"
	"github.com/go-a2a/a2a-engine/transport"
)

// app is a fully wired agent server.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	card     *a2a.AgentCard
	store    task.TaskStore
	handler  *handler.DefaultRequestHandler
	notifier *push.HTTPNotifier
	janitor  *task.Janitor
	http     http.Handler
}

// newLogger returns the slog logger selected by cfg.
func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// newStore opens the task store selected by cfg.
func newStore(ctx context.Context, cfg config.StoreConfig) (task.TaskStore, error) {
	switch cfg.Driver {
	case config.StoreMemory:
		return task.NewInMemoryTaskStore(), nil
	case config.StoreSQLite, config.StorePostgres:
		db, err := task.OpenDatabase(cfg.Driver, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return task.NewDatabaseTaskStore(ctx, task.DatabaseTaskStoreConfig{DB: db, CreateTable: true})
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		return task.NewRedisTaskStore(task.RedisTaskStoreConfig{Client: client, KeyPrefix: cfg.KeyPrefix})
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// newPlanner returns the planner selected by cfg.
func newPlanner(cfg config.PlannerConfig) (currency.Planner, error) {
	switch cfg.Provider {
	case config.PlannerRules:
		return currency.RulePlanner{}, nil
	case config.PlannerOpenAI:
		var opts []openaioption.RequestOption
		if cfg.BaseURL != "" {
			opts = append(opts, openaioption.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")+"/"))
		}
		return currency.NewOpenAIPlanner(cfg.APIKey, cfg.Model, opts...), nil
	case config.PlannerAnthropic:
		var opts []anthropicoption.RequestOption
		if cfg.BaseURL != "" {
			opts = append(opts, anthropicoption.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")+"/"))
		}
		return currency.NewAnthropicPlanner(cfg.APIKey, cfg.Model, opts...), nil
	default:
		return nil, fmt.Errorf("unknown planner provider %q", cfg.Provider)
	}
}

// newApp wires the currency agent described by cfg.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	planner, err := newPlanner(cfg.Planner)
	if err != nil {
		return nil, err
	}
	store, err := newStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		card:   currency.Card(cfg.URL(), cfg.Push.Enabled),
		store:  store,
	}

	rates := currency.NewRatesClient(cfg.Rates.BaseURL, &http.Client{Timeout: cfg.Rates.Timeout})
	executor := currency.NewExecutor(planner, rates, currency.WithLogger(logger))

	hopts := []handler.Option{handler.WithLogger(logger)}
	topts := []transport.Option{transport.WithLogger(logger), transport.WithMaxBodyBytes(cfg.Server.MaxBodyBytes)}
	if cfg.Push.Enabled {
		signer, err := push.NewJWTSigner(cfg.Push.Issuer)
		if err != nil {
			store.Close(ctx)
			return nil, err
		}
		jwks, err := signer.JWKS()
		if err != nil {
			store.Close(ctx)
			return nil, err
		}
		configs := push.NewInMemoryConfigStore()
		a.notifier = push.NewHTTPNotifier(configs,
			push.WithSigner(signer),
			push.WithLogger(logger),
			push.WithRetry(cfg.Push.Retries, cfg.Push.Backoff),
			push.WithRateLimit(cfg.Push.RatePerSecond, 1),
			push.WithWorkers(cfg.Push.Workers, cfg.Push.QueueSize),
		)
		hopts = append(hopts, handler.WithPushConfigStore(configs), handler.WithPushNotifier(a.notifier))
		topts = append(topts, transport.WithJWKS(jwks))
	}

	if cfg.Store.Sweep != "" && cfg.Store.Retention > 0 {
		a.janitor, err = task.NewJanitor(store, cfg.Store.Sweep, cfg.Store.Retention, logger)
		if err != nil {
			store.Close(ctx)
			return nil, err
		}
	}

	a.handler = handler.NewDefaultRequestHandler(executor, store, hopts...)

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics.Handler())
	mux.Handle("/", transport.NewServerHandler(a.handler, a.card, topts...))
	a.http = mux
	return a, nil
}

// start launches the background jobs of the app.
func (a *app) start() {
	if a.janitor != nil {
		a.janitor.Start()
	}
}

// close drains running executions, then stops deliveries and the store.
func (a *app) close(ctx context.Context) error {
	var errs []error
	if err := a.handler.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close handler: %w", err))
	}
	if a.janitor != nil {
		a.janitor.Stop(ctx)
	}
	if a.notifier != nil {
		if err := a.notifier.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close notifier: %w", err))
		}
	}
	if err := a.store.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	return errors.Join(errs...)
}
