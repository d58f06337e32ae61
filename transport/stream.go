// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"iter"
	"net/http"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/go-a2a/a2a-engine"
	"github.com/go-a2a/a2a-engine/internal/sse"
)

// stream writes every item of seq as an SSE event carrying a JSON-RPC response with the
// request id. An error is sent as the last event.
func (h *ServerHandler) stream(ctx context.Context, w http.ResponseWriter, id jsontext.Value, method string, seq iter.Seq2[a2a.Event, error]) {
	enc := sse.NewEncoder(w)

	send := func(resp *a2a.JSONRPCResponse) bool {
		data, err := json.Marshal(resp)
		if err != nil {
			h.logger.ErrorContext(ctx, "marshal stream response", "error", err)
			return false
		}
		if err := enc.Encode(sse.Event{Data: string(data)}); err != nil {
			h.logger.DebugContext(ctx, "stream client gone", "method", method, "error", err)
			return false
		}
		return true
	}

	for ev, err := range seq {
		if err != nil {
			if ctx.Err() == nil {
				send(&a2a.JSONRPCResponse{JSONRPC: a2a.JSONRPCVersion, ID: id, Error: a2a.JSONRPCErrorFor(method, err)})
			}
			return
		}
		raw, err := json.Marshal(ev)
		if err != nil {
			h.logger.ErrorContext(ctx, "marshal event", "kind", ev.GetEventKind(), "error", err)
			send(&a2a.JSONRPCResponse{JSONRPC: a2a.JSONRPCVersion, ID: id, Error: a2a.NewJSONRPCError(a2a.InternalErrorCode, "marshal event")})
			return
		}
		if !send(&a2a.JSONRPCResponse{JSONRPC: a2a.JSONRPCVersion, ID: id, Result: raw}) {
			return
		}
	}
}
