// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Command currency-agent serves the currency exchange agent over A2A and ships a demo
// client for it.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/spf13/cobra"

	"github.com/go-a2a/a2a-engine/agent/currency"
	"github.com/go-a2a/a2a-engine/internal/config"
	"github.com/go-a2a/a2a-engine/internal/telemetry"
)

const version = "1.0.1"

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:           "currency-agent",
		Short:         "A2A currency exchange agent",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", os.Getenv("A2A_CONFIG"), "path to the YAML configuration file")

	load := func() (*config.Config, error) { return config.Load(cfgPath) }
	cmd.AddCommand(serveCmd(load))
	cmd.AddCommand(cardCmd(load))
	cmd.AddCommand(demoCmd())
	return cmd
}

func serveCmd(load func() (*config.Config, error)) *cobra.Command {
	var (
		host string
		port int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&host, "host", "localhost", "listen host")
	cmd.Flags().IntVar(&port, "port", 9000, "listen port")
	return cmd
}

// serve runs the agent until ctx is done, then shuts down gracefully.
func serve(ctx context.Context, cfg *config.Config) error {
	logger := newLogger(cfg.Log)

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	}, logger)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	a.start()

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           a.http,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("currency agent listening", "addr", srv.Addr, "url", cfg.URL(), "store", cfg.Store.Driver, "planner", cfg.Planner.Provider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			_ = a.close(context.Background())
			return fmt.Errorf("listen on %s: %w", srv.Addr, err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// streams stay open until their executions finish, so drain the handler first
	errs := []error{a.close(shutdownCtx)}
	errs = append(errs, srv.Shutdown(shutdownCtx), shutdownTracing(shutdownCtx))
	return errors.Join(errs...)
}

func cardCmd(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "card",
		Short: "Print the agent card",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			card := currency.Card(cfg.URL(), cfg.Push.Enabled)
			return json.MarshalWrite(cmd.OutOrStdout(), card, jsontext.WithIndent("  "))
		},
	}
}
