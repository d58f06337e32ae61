// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"log/slog"
	"net/http"
	"time"
)

// Option configures a [Client].
type Option func(*Client)

// WithHTTPClient sets the [*http.Client] used for every call.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout bounds each unary call. Streaming calls are bounded by their context only.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithBearerToken sends token in the Authorization header.
func WithBearerToken(token string) Option {
	return WithInterceptors(HeaderInterceptor(map[string]string{"Authorization": "Bearer " + token}))
}

// WithInterceptors appends interceptors to the call chain. They run in order.
func WithInterceptors(interceptors ...Interceptor) Option {
	return func(c *Client) {
		c.interceptors = append(c.interceptors, interceptors...)
	}
}

// WithLogger sets the [*slog.Logger].
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}
