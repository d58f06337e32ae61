// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package currency

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-json-experiment/json"
)

// DefaultRatesURL is the public Frankfurter API.
const DefaultRatesURL = "https://api.frankfurter.app"

// Rates is an exchange rate quote for one base currency.
type Rates struct {
	Amount float64            `json:"amount"`
	Base   string             `json:"base"`
	Date   string             `json:"date"`
	Rates  map[string]float64 `json:"rates"`
}

// RateSource looks up exchange rates.
type RateSource interface {
	Rates(ctx context.Context, from, to, date string) (*Rates, error)
}

// RatesClient queries a Frankfurter compatible API.
type RatesClient struct {
	baseURL string
	hc      *http.Client
}

var _ RateSource = (*RatesClient)(nil)

// NewRatesClient returns a client for the API at baseURL. A nil hc uses
// [http.DefaultClient].
func NewRatesClient(baseURL string, hc *http.Client) *RatesClient {
	if baseURL == "" {
		baseURL = DefaultRatesURL
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &RatesClient{baseURL: strings.TrimRight(baseURL, "/"), hc: hc}
}

// Rates returns the rate of to in units of from on date, or the latest rate when date is
// empty.
func (c *RatesClient) Rates(ctx context.Context, from, to, date string) (*Rates, error) {
	if date == "" {
		date = "latest"
	}
	q := url.Values{"from": {from}, "to": {to}}
	target := fmt.Sprintf("%s/%s?%s", c.baseURL, url.PathEscape(date), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rates request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rates request failed: %s", resp.Status)
	}

	var raw struct {
		Amount float64            `json:"amount"`
		Base   string             `json:"base"`
		Date   string             `json:"date"`
		Rates  map[string]float64 `json:"rates"`
	}
	if err := json.UnmarshalRead(resp.Body, &raw); err != nil {
		return nil, fmt.Errorf("invalid rates response: %w", err)
	}
	if raw.Rates == nil {
		return nil, errors.New("invalid rates response: missing rates")
	}
	r := Rates(raw)
	return &r, nil
}
