// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package currency

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/go-a2a/a2a-engine"
)

// currencies are the codes the Frankfurter API quotes.
var currencies = map[string]bool{
	"AUD": true, "BGN": true, "BRL": true, "CAD": true, "CHF": true, "CNY": true,
	"CZK": true, "DKK": true, "EUR": true, "GBP": true, "HKD": true, "HUF": true,
	"IDR": true, "ILS": true, "INR": true, "ISK": true, "JPY": true, "KRW": true,
	"MXN": true, "MYR": true, "NOK": true, "NZD": true, "PHP": true, "PLN": true,
	"RON": true, "SEK": true, "SGD": true, "THB": true, "TRY": true, "USD": true,
	"ZAR": true,
}

var (
	codeRe   = regexp.MustCompile(`\b[A-Za-z]{3}\b`)
	dateRe   = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	amountRe = regexp.MustCompile(`\d+(?:[.,]\d+)*`)
)

// RulePlanner extracts conversions with regular expressions. It reads the turns of the
// task the latest message belongs to, newest first, so a follow-up such as "in EUR"
// completes an earlier "How much is 1000 USD?".
type RulePlanner struct{}

var _ Planner = RulePlanner{}

// Plan implements [Planner].
func (RulePlanner) Plan(_ context.Context, conversation []*a2a.Message) (*Plan, error) {
	turns := currentTurns(conversation)

	var q Query
	for _, msg := range slices.Backward(turns) {
		text := msg.Text()
		if q.Date == "" {
			q.Date = dateRe.FindString(text)
		}
		text = dateRe.ReplaceAllString(text, " ")
		if q.Amount == 0 {
			q.Amount = parseAmount(amountRe.FindString(text))
		}
		codes := currencyCodes(text)
		for _, c := range slices.Backward(codes) {
			switch {
			case q.To == "":
				q.To = c
			case q.From == "" && c != q.To:
				q.From = c
			}
		}
		if q.From != "" {
			break
		}
	}
	if q.Amount == 0 {
		q.Amount = 1
	}

	switch {
	case q.To == "":
		return &Plan{
			Status:  StatusInputRequired,
			Message: "I can only help with currency conversions. Which amount and currencies should I convert?",
		}, nil
	case q.From == "":
		return &Plan{
			Status:  StatusInputRequired,
			Message: fmt.Sprintf("Which currency do you want to convert %s to?", q.To),
		}, nil
	}
	return &Plan{
		Status:  StatusCompleted,
		Message: fmt.Sprintf("Converting %s %s to %s.", formatAmount(q.Amount), q.From, q.To),
		Query:   q,
	}, nil
}

// currentTurns returns the user messages of the task the last message belongs to.
func currentTurns(conversation []*a2a.Message) []*a2a.Message {
	if len(conversation) == 0 {
		return nil
	}
	taskID := conversation[len(conversation)-1].TaskID
	var turns []*a2a.Message
	for _, m := range conversation {
		if m.Role == a2a.RoleUser && m.TaskID == taskID {
			turns = append(turns, m)
		}
	}
	return turns
}

func currencyCodes(text string) []string {
	var codes []string
	for _, w := range codeRe.FindAllString(text, -1) {
		// lower case words such as "try" are not codes
		if w != strings.ToUpper(w) {
			continue
		}
		if currencies[w] {
			codes = append(codes, w)
		}
	}
	return codes
}

func parseAmount(s string) float64 {
	if s == "" {
		return 0
	}
	// "1,000" and "1,000.50" use a thousands separator, "12,5" a decimal comma
	if strings.Contains(s, ".") || len(s) > 4 && s[len(s)-4] == ',' {
		s = strings.ReplaceAll(s, ",", "")
	} else {
		s = strings.ReplaceAll(s, ",", ".")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
