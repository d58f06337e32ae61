// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"fmt"
	"iter"
	"mime"

	"github.com/go-json-experiment/json"

	"github.com/go-a2a/a2a-engine"
	"github.com/go-a2a/a2a-engine/internal/sse"
)

// stream performs a streaming call. Each SSE event carries a JSON-RPC response whose
// result is a task, a status update or an artifact update. An error response ends the
// sequence.
func (c *Client) stream(ctx context.Context, method string, params any) iter.Seq2[a2a.Event, error] {
	return func(yield func(a2a.Event, error) bool) {
		req, err := c.newRequest(ctx, method, params, sse.ContentType)
		if err != nil {
			yield(nil, err)
			return
		}
		resp, err := c.do(ctx, req)
		if err != nil {
			yield(nil, fmt.Errorf("%s: %w", method, err))
			return
		}
		defer resp.Body.Close()

		// errors raised before the stream starts come back as a plain response
		if mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mt != sse.ContentType {
			var rpcResp a2a.JSONRPCResponse
			if err := json.UnmarshalRead(resp.Body, &rpcResp); err != nil {
				yield(nil, fmt.Errorf("%s: decode response: %w", method, err))
				return
			}
			if rpcResp.Error != nil {
				yield(nil, fmt.Errorf("%s: %w", method, rpcResp.Error))
				return
			}
			yield(nil, fmt.Errorf("%s: expected an event stream, got %q", method, mt))
			return
		}

		for ev, err := range sse.Events(resp.Body) {
			if err != nil {
				yield(nil, fmt.Errorf("%s: read stream: %w", method, err))
				return
			}
			var rpcResp a2a.JSONRPCResponse
			if err := json.Unmarshal([]byte(ev.Data), &rpcResp); err != nil {
				yield(nil, fmt.Errorf("%s: decode event: %w", method, err))
				return
			}
			if rpcResp.Error != nil {
				yield(nil, fmt.Errorf("%s: %w", method, rpcResp.Error))
				return
			}
			event, err := a2a.UnmarshalEvent(rpcResp.Result)
			if err != nil {
				yield(nil, fmt.Errorf("%s: %w", method, err))
				return
			}
			if !yield(event, nil) {
				return
			}
		}
	}
}
