// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package client calls A2A agents over JSON-RPC 2.0 and Server-Sent Events.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/go-a2a/a2a-engine"
)

// Client is an A2A client bound to the JSON-RPC endpoint of one agent.
//
// Errors returned by the agent are [*a2a.JSONRPCError] values, which match the
// sentinel errors of package a2a with [errors.Is].
type Client struct {
	url          string
	httpClient   *http.Client
	interceptors []Interceptor
	timeout      time.Duration
	logger       *slog.Logger

	invoker Invoker
	nextID  atomic.Int64
}

// New returns a client for the agent whose JSON-RPC endpoint is url.
func New(url string, opts ...Option) *Client {
	c := &Client{
		url:        url,
		httpClient: http.DefaultClient,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.invoker = chainInterceptors(c.interceptors, func(_ context.Context, req *http.Request) (*http.Response, error) {
		return c.httpClient.Do(req)
	})
	return c
}

// NewFromCard returns a client for the agent described by card.
func NewFromCard(card *a2a.AgentCard, opts ...Option) *Client {
	return New(card.URL, opts...)
}

// URL returns the JSON-RPC endpoint of the agent.
func (c *Client) URL() string { return c.url }

func (c *Client) newRequest(ctx context.Context, method string, params any, accept string) (*http.Request, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal %s params: %w", method, err)
	}
	body, err := json.Marshal(&a2a.JSONRPCRequest{
		JSONRPC: a2a.JSONRPCVersion,
		ID:      jsontext.Value(strconv.FormatInt(c.nextID.Add(1), 10)),
		Method:  method,
		Params:  raw,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", accept)
	return req, nil
}

func (c *Client) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := c.invoker(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.DebugContext(ctx, "agent returned an http error", "url", c.url, "status", resp.StatusCode)
		return nil, fmt.Errorf("unexpected status %s: %s", resp.Status, bytes.TrimSpace(snippet))
	}
	return resp, nil
}

// call performs a unary JSON-RPC call and decodes its result into R.
func call[R any](ctx context.Context, c *Client, method string, params any) (*R, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := c.newRequest(ctx, method, params, "application/json")
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	var rpcResp a2a.JSONRPCResponse
	if err := json.UnmarshalRead(resp.Body, &rpcResp); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", method, err)
	}
	return decodeResult[R](method, &rpcResp)
}

func decodeResult[R any](method string, resp *a2a.JSONRPCResponse) (*R, error) {
	if resp.Error != nil {
		return nil, fmt.Errorf("%s: %w", method, resp.Error)
	}
	result := new(R)
	if err := json.Unmarshal(resp.Result, result); err != nil {
		return nil, fmt.Errorf("%s: decode result: %w", method, err)
	}
	return result, nil
}

// SendMessage sends a message and returns the task it produced or continued.
func (c *Client) SendMessage(ctx context.Context, params *a2a.MessageSendParams) (*a2a.Task, error) {
	return call[a2a.Task](ctx, c, a2a.MethodMessageSend, params)
}

// SendMessageStream sends a message and yields the task snapshot and every event of the
// execution as they arrive.
func (c *Client) SendMessageStream(ctx context.Context, params *a2a.MessageSendParams) iter.Seq2[a2a.Event, error] {
	return c.stream(ctx, a2a.MethodMessageStream, params)
}

// GetTask returns a task, with at most historyLength history messages when positive.
func (c *Client) GetTask(ctx context.Context, params *a2a.TaskQueryParams) (*a2a.Task, error) {
	return call[a2a.Task](ctx, c, a2a.MethodTasksGet, params)
}

// CancelTask asks the agent to cancel a task.
func (c *Client) CancelTask(ctx context.Context, params *a2a.TaskIDParams) (*a2a.Task, error) {
	return call[a2a.Task](ctx, c, a2a.MethodTasksCancel, params)
}

// ResubscribeTask yields the current task and the remaining events of its execution.
func (c *Client) ResubscribeTask(ctx context.Context, params *a2a.TaskIDParams) iter.Seq2[a2a.Event, error] {
	return c.stream(ctx, a2a.MethodTasksResub, params)
}

// SetTaskPushNotificationConfig registers a webhook for a task.
func (c *Client) SetTaskPushNotificationConfig(ctx context.Context, params *a2a.TaskPushNotificationConfig) (*a2a.TaskPushNotificationConfig, error) {
	return call[a2a.TaskPushNotificationConfig](ctx, c, a2a.MethodPushConfigSet, params)
}

// GetTaskPushNotificationConfig returns the latest webhook of a task.
func (c *Client) GetTaskPushNotificationConfig(ctx context.Context, params *a2a.TaskIDParams) (*a2a.TaskPushNotificationConfig, error) {
	return call[a2a.TaskPushNotificationConfig](ctx, c, a2a.MethodPushConfigGet, params)
}
