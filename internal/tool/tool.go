// Package tool provides the fixed registry of model-callable
// capabilities and their side-effect classification.
package tool

import (
	"context"
	"encoding/json"
)

// Tool is one capability the model may invoke mid-response.
type Tool interface {
	// ID returns the tool identifier as exposed to the model.
	ID() string

	// Description returns the tool description.
	Description() string

	// Parameters returns the JSON Schema for tool input.
	Parameters() json.RawMessage

	// Mutating reports whether executing the tool has externally
	// visible side effects. Mutating tools require human approval
	// before they run.
	Mutating() bool

	// Execute runs the tool.
	Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error)
}

// Context carries per-invocation identity into a tool execution.
type Context struct {
	ChatID    string
	MessageID string
	CallID    string
	UserID    string
}

// Result is the output of a tool execution. A tool-level failure is
// reported through Error and surfaces as an error-state tool part,
// never as a request failure.
type Result struct {
	Output   string         `json:"output"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Drafter produces model-generated text for tools that need it
// (suggestion drafting). Wired from the provider layer to avoid a
// package cycle.
type Drafter interface {
	Draft(ctx context.Context, system, prompt string) (string, error)
}
