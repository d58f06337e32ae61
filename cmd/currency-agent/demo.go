// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/spf13/cobra"

	"github.com/go-a2a/a2a-engine"
	"github.com/go-a2a/a2a-engine/client"
)

func demoCmd() *cobra.Command {
	var (
		url     string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the single turn, streaming and multi-turn scenarios against an agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return runDemo(ctx, cmd.OutOrStdout(), url)
		},
	}
	cmd.Flags().StringVar(&url, "url", "http://localhost:9000", "base URL of the agent")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall timeout")
	return cmd
}

// runDemo resolves the agent card at baseURL and runs the three scenarios.
func runDemo(ctx context.Context, w io.Writer, baseURL string) error {
	fmt.Fprintf(w, "connecting to agent at %s...\n", baseURL)
	card, err := client.NewCardResolver(baseURL, nil).GetAgentCard(ctx, "")
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "connected to %s %s\n\n", card.Name, card.Version)

	c := client.NewFromCard(card, client.WithTimeout(time.Minute))
	for _, scenario := range []func(context.Context, io.Writer, *client.Client) error{
		singleTurn,
		streaming,
		multiTurn,
	} {
		if err := scenario(ctx, w, c); err != nil {
			return err
		}
	}
	return nil
}

func printJSON(w io.Writer, title string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		fmt.Fprintf(w, "%s: %v\n", title, err)
		return
	}
	fmt.Fprintf(w, "%s\n%s\n\n", title, b)
}

func singleTurn(ctx context.Context, w io.Writer, c *client.Client) error {
	fmt.Fprintln(w, "--- single turn ---")
	t, err := c.SendMessage(ctx, &a2a.MessageSendParams{Message: a2a.NewUserTextMessage("How much is 1000 USD in INR?")})
	if err != nil {
		return fmt.Errorf("single turn: %w", err)
	}
	printJSON(w, "send response", t)

	got, err := c.GetTask(ctx, &a2a.TaskQueryParams{ID: t.ID})
	if err != nil {
		return fmt.Errorf("single turn: %w", err)
	}
	printJSON(w, "query task response", got)
	return nil
}

func streaming(ctx context.Context, w io.Writer, c *client.Client) error {
	fmt.Fprintln(w, "--- streaming ---")
	for ev, err := range c.SendMessageStream(ctx, &a2a.MessageSendParams{Message: a2a.NewUserTextMessage("How much is 1000 JPY in CAD?")}) {
		if err != nil {
			return fmt.Errorf("streaming: %w", err)
		}
		printJSON(w, "stream event "+string(ev.GetEventKind()), ev)
	}
	return nil
}

func multiTurn(ctx context.Context, w io.Writer, c *client.Client) error {
	fmt.Fprintln(w, "--- multi turn ---")
	first, err := c.SendMessage(ctx, &a2a.MessageSendParams{Message: a2a.NewUserTextMessage("How much is 1000 USD?")})
	if err != nil {
		return fmt.Errorf("multi turn: %w", err)
	}
	printJSON(w, "first turn response", first)

	if first.Status.State != a2a.TaskStateInputRequired {
		fmt.Fprintln(w, "first turn completed, no further input required")
		return nil
	}
	reply := a2a.NewUserTextMessage("in EUR")
	reply.TaskID = first.ID
	reply.ContextID = first.ContextID
	second, err := c.SendMessage(ctx, &a2a.MessageSendParams{Message: reply})
	if err != nil {
		return fmt.Errorf("multi turn: %w", err)
	}
	printJSON(w, "second turn response", second)
	return nil
}
