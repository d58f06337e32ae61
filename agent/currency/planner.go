// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package currency

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-json-experiment/json"

	"github.com/go-a2a/a2a-engine"
)

// Status is the outcome a planner decides for a turn.
type Status string

const (
	StatusInputRequired Status = "input_required"
	StatusCompleted     Status = "completed"
	StatusError         Status = "error"
)

// Query is a conversion request.
type Query struct {
	Amount float64 `json:"amount"`
	From   string  `json:"from"`
	To     string  `json:"to"`
	Date   string  `json:"date,omitzero"`
}

// Plan is what the agent does with a turn. Query is set when Status is
// [StatusCompleted].
type Plan struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
	Query   Query  `json:"query,omitzero"`
}

// Validate checks a completed plan carries a usable query.
func (p *Plan) Validate() error {
	switch p.Status {
	case StatusInputRequired, StatusError:
		if p.Message == "" {
			return fmt.Errorf("plan with status %s requires a message", p.Status)
		}
		return nil
	case StatusCompleted:
		if len(p.Query.From) != 3 || len(p.Query.To) != 3 {
			return fmt.Errorf("plan query requires currency codes, got %q and %q", p.Query.From, p.Query.To)
		}
		if p.Query.Amount <= 0 {
			return errors.New("plan query requires a positive amount")
		}
		return nil
	default:
		return fmt.Errorf("unknown plan status %q", p.Status)
	}
}

// Planner turns the conversation of a context into a [Plan].
type Planner interface {
	Plan(ctx context.Context, conversation []*a2a.Message) (*Plan, error)
}

// systemInstruction is the prompt of the model backed planners.
const systemInstruction = `You are an excellent specialized assistant for currency conversions.
Your sole purpose is to answer questions about currency exchange rates.
If the user asks about anything other than currency conversion or exchange rates, politely state that you cannot help with that topic and set status to "error".
Reply with a single JSON object and nothing else:
{"status": "input_required" | "completed" | "error", "message": string, "query": {"amount": number, "from": "ISO 4217 code", "to": "ISO 4217 code", "date": "YYYY-MM-DD or empty for latest"}}
Set status to "input_required" if the user needs to provide more information, and ask for it in message.
Set status to "completed" when amount and both currencies are known; the rates are looked up for you.
Set status to "error" if the request cannot be processed.`

// decodePlan parses a model reply, tolerating a surrounding code fence.
func decodePlan(reply string) (*Plan, error) {
	s := strings.TrimSpace(reply)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	var p Plan
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return nil, fmt.Errorf("decode plan %q: %w", reply, err)
	}
	p.Query.From = strings.ToUpper(p.Query.From)
	p.Query.To = strings.ToUpper(p.Query.To)
	if p.Query.Date == "latest" {
		p.Query.Date = ""
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}
