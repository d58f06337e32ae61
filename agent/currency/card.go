// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package currency

import "github.com/go-a2a/a2a-engine"

// SupportedContentTypes are the input and output modes of the agent.
var SupportedContentTypes = []string{"text", "text/plain"}

// Card returns the agent card of a currency agent served at url.
func Card(url string, pushNotifications bool) *a2a.AgentCard {
	return &a2a.AgentCard{
		Name:               "Currency exchange Agent",
		Description:        "Helps with exchange rates for currencies",
		URL:                url,
		Version:            "1.0.1",
		DefaultInputModes:  SupportedContentTypes,
		DefaultOutputModes: SupportedContentTypes,
		Capabilities: a2a.AgentCapabilities{
			Streaming:         true,
			PushNotifications: pushNotifications,
		},
		Skills: []a2a.AgentSkill{{
			ID:          "convert_currency",
			Name:        "Currency Exchange Rates tool",
			Description: "It helps with the exchange values between various currencies",
			Tags:        []string{"currency conversion", "currency exchanges"},
			Examples:    []string{"What is exchange rate between USD and INR?"},
		}},
	}
}
