// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package currency

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRatesClient(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/latest":
			assert.Equal(t, "USD", r.URL.Query().Get("from"))
			assert.Equal(t, "INR", r.URL.Query().Get("to"))
			_, _ = io.WriteString(w, `{"amount":1.0,"base":"USD","date":"2025-06-02","rates":{"INR":85.5}}`)
		case "/2024-01-15":
			_, _ = io.WriteString(w, `{"amount":1.0,"base":"EUR","date":"2024-01-15","rates":{"JPY":160.1}}`)
		case "/bad":
			_, _ = io.WriteString(w, `{"message":"not found"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewRatesClient(srv.URL+"/", srv.Client())

	got, err := c.Rates(t.Context(), "USD", "INR", "")
	require.NoError(t, err)
	assert.Equal(t, &Rates{Amount: 1, Base: "USD", Date: "2025-06-02", Rates: map[string]float64{"INR": 85.5}}, got)

	got, err = c.Rates(t.Context(), "EUR", "JPY", "2024-01-15")
	require.NoError(t, err)
	assert.InDelta(t, 160.1, got.Rates["JPY"], 1e-9)

	_, err = c.Rates(t.Context(), "EUR", "JPY", "bad")
	assert.ErrorContains(t, err, "missing rates")

	_, err = c.Rates(t.Context(), "EUR", "JPY", "1999-01-01")
	assert.ErrorContains(t, err, "404")
}
