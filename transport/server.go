// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport serves a [handler.RequestHandler] over HTTP as JSON-RPC 2.0, with
// Server-Sent Events for the streaming methods, and publishes the agent card.
package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/lestrrat-go/jwx/v3/jwk"

	"github.com/go-a2a/a2a-engine"
	"github.com/go-a2a/a2a-engine/internal/metrics"
	"github.com/go-a2a/a2a-engine/internal/pool"
	"github.com/go-a2a/a2a-engine/server/handler"
)

// DefaultMaxBodyBytes bounds the size of a JSON-RPC request body.
const DefaultMaxBodyBytes = 10 << 20

// ServerHandler is the [http.Handler] of an A2A agent.
//
//	POST /                         JSON-RPC requests
//	GET  /.well-known/agent.json   the agent card
//	GET  /.well-known/jwks.json    the push notification signing keys, when configured
//	GET  /healthz                  liveness
type ServerHandler struct {
	rh           handler.RequestHandler
	card         *a2a.AgentCard
	jwks         jwk.Set
	logger       *slog.Logger
	maxBodyBytes int64

	root http.Handler
}

var _ http.Handler = (*ServerHandler)(nil)

// Option configures a [ServerHandler].
type Option func(*ServerHandler)

// WithLogger sets the [*slog.Logger].
func WithLogger(logger *slog.Logger) Option {
	return func(h *ServerHandler) {
		h.logger = logger
	}
}

// WithJWKS publishes set at [a2a.JWKSPath].
func WithJWKS(set jwk.Set) Option {
	return func(h *ServerHandler) {
		h.jwks = set
	}
}

// WithMaxBodyBytes bounds the request body size.
func WithMaxBodyBytes(n int64) Option {
	return func(h *ServerHandler) {
		h.maxBodyBytes = n
	}
}

// NewServerHandler returns a new [ServerHandler] serving rh and card.
func NewServerHandler(rh handler.RequestHandler, card *a2a.AgentCard, opts ...Option) *ServerHandler {
	h := &ServerHandler{
		rh:           rh,
		card:         card,
		logger:       slog.Default(),
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(h)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /{$}", h.handleRPC)
	mux.HandleFunc("GET "+a2a.AgentCardPath, h.handleAgentCard)
	if h.jwks != nil {
		mux.HandleFunc("GET "+a2a.JWKSPath, h.handleJWKS)
	}
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h.root = metrics.Middleware(mux)
	return h
}

// ServeHTTP implements [http.Handler].
func (h *ServerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.root.ServeHTTP(w, r)
}

func (h *ServerHandler) handleAgentCard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.card)
}

func (h *ServerHandler) handleJWKS(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.jwks)
}

func writeJSON(w http.ResponseWriter, v any) {
	buf := pool.Bytes.Get()
	defer pool.Bytes.Put(buf)

	if err := json.MarshalWrite(buf, v); err != nil {
		http.Error(w, "marshal response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(buf.Bytes())
}

func (h *ServerHandler) handleRPC(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(ctx, w, a2a.NullID, a2a.NewJSONRPCError(a2a.InvalidRequestErrorCode, "request body too large"))
			return
		}
		http.Error(w, "read body failed", http.StatusBadRequest)
		return
	}

	var req a2a.JSONRPCRequest
	if err := json.Unmarshal(data, &req); err != nil {
		h.writeError(ctx, w, a2a.NullID, a2a.NewJSONRPCError(a2a.JSONParseErrorCode, "invalid JSON payload"))
		return
	}
	id := req.ID
	if len(id) == 0 {
		id = a2a.NullID
	}
	if req.JSONRPC != a2a.JSONRPCVersion || req.Method == "" {
		h.writeError(ctx, w, id, a2a.NewJSONRPCError(a2a.InvalidRequestErrorCode, "request payload validation error"))
		return
	}

	h.logger.DebugContext(ctx, "rpc request", "method", req.Method, "id", string(id))
	h.dispatch(ctx, w, id, &req)
}

func (h *ServerHandler) dispatch(ctx context.Context, w http.ResponseWriter, id jsontext.Value, req *a2a.JSONRPCRequest) {
	var (
		result any
		err    error
	)
	switch req.Method {
	case a2a.MethodMessageSend:
		var params *a2a.MessageSendParams
		if params, err = decodeParams[a2a.MessageSendParams](req.Params); err == nil {
			result, err = h.rh.OnMessageSend(ctx, params)
		}

	case a2a.MethodMessageStream:
		params, err := decodeParams[a2a.MessageSendParams](req.Params)
		if err != nil {
			h.writeError(ctx, w, id, a2a.JSONRPCErrorFor(req.Method, err))
			return
		}
		h.stream(ctx, w, id, req.Method, h.rh.OnMessageSendStream(ctx, params))
		return

	case a2a.MethodTasksGet:
		var params *a2a.TaskQueryParams
		if params, err = decodeParams[a2a.TaskQueryParams](req.Params); err == nil {
			result, err = h.rh.OnGetTask(ctx, params)
		}

	case a2a.MethodTasksCancel:
		var params *a2a.TaskIDParams
		if params, err = decodeParams[a2a.TaskIDParams](req.Params); err == nil {
			result, err = h.rh.OnCancelTask(ctx, params)
		}

	case a2a.MethodTasksResub:
		params, err := decodeParams[a2a.TaskIDParams](req.Params)
		if err != nil {
			h.writeError(ctx, w, id, a2a.JSONRPCErrorFor(req.Method, err))
			return
		}
		h.stream(ctx, w, id, req.Method, h.rh.OnResubscribeToTask(ctx, params))
		return

	case a2a.MethodPushConfigSet:
		var params *a2a.TaskPushNotificationConfig
		if params, err = decodeParams[a2a.TaskPushNotificationConfig](req.Params); err == nil {
			result, err = h.rh.OnSetTaskPushNotificationConfig(ctx, params)
		}

	case a2a.MethodPushConfigGet:
		var params *a2a.TaskIDParams
		if params, err = decodeParams[a2a.TaskIDParams](req.Params); err == nil {
			result, err = h.rh.OnGetTaskPushNotificationConfig(ctx, params)
		}

	default:
		h.writeError(ctx, w, id, a2a.NewJSONRPCError(a2a.MethodNotFoundErrorCode, "method not found: "+req.Method))
		return
	}

	if err != nil {
		h.writeError(ctx, w, id, a2a.JSONRPCErrorFor(req.Method, err))
		return
	}
	h.writeResult(ctx, w, id, result)
}

func decodeParams[P any](raw jsontext.Value) (*P, error) {
	if len(raw) == 0 {
		return nil, a2a.NewInvalidParamsError("params are required")
	}
	p := new(P)
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, a2a.NewInvalidParamsError("%v", err)
	}
	return p, nil
}

func (h *ServerHandler) writeResult(ctx context.Context, w http.ResponseWriter, id jsontext.Value, result any) {
	raw, err := json.Marshal(result)
	if err != nil {
		h.logger.ErrorContext(ctx, "marshal result", "error", err)
		h.writeError(ctx, w, id, a2a.NewJSONRPCError(a2a.InternalErrorCode, "marshal result"))
		return
	}
	writeJSON(w, &a2a.JSONRPCResponse{JSONRPC: a2a.JSONRPCVersion, ID: id, Result: raw})
}

func (h *ServerHandler) writeError(ctx context.Context, w http.ResponseWriter, id jsontext.Value, rpcErr *a2a.JSONRPCError) {
	if rpcErr.Code == a2a.InternalErrorCode {
		h.logger.ErrorContext(ctx, "rpc internal error", "error", rpcErr.Message)
	}
	writeJSON(w, &a2a.JSONRPCResponse{JSONRPC: a2a.JSONRPCVersion, ID: id, Error: rpcErr})
}
