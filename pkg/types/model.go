package types

import "strings"

// Model describes one selectable chat model.
type Model struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	ProviderID      string `json:"providerId"`
	MaxOutputTokens int    `json:"maxOutputTokens,omitempty"`
	SupportsTools   bool   `json:"supportsTools"`
	Reasoning       bool   `json:"reasoning"`
}

// IsReasoningModel reports whether a model id names a reasoning
// variant. Reasoning variants run with a thinking budget and with the
// tool registry disabled.
func IsReasoningModel(modelID string) bool {
	return strings.Contains(modelID, "reasoning") || strings.Contains(modelID, "thinking")
}
