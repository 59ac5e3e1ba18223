package types

import (
	"encoding/json"
	"fmt"
)

// Part is one typed element of a message's ordered parts sequence.
type Part interface {
	PartType() string
	PartID() string
}

// Tool part states. Read-only tools move straight from requested to
// result; mutating tools pass through the approval states in between.
const (
	ToolStateRequested         = "call-requested"
	ToolStateAwaitingApproval  = "awaiting-approval"
	ToolStateApprovalResponded = "approval-responded"
	ToolStateResult            = "result-available"
)

// TextPart carries plain text content.
type TextPart struct {
	ID   string `json:"id,omitempty"`
	Type string `json:"type"` // always "text"
	Text string `json:"text"`
}

func (p *TextPart) PartType() string { return "text" }
func (p *TextPart) PartID() string   { return p.ID }

// ReasoningPart carries extended-thinking output from reasoning models.
type ReasoningPart struct {
	ID   string `json:"id,omitempty"`
	Type string `json:"type"` // always "reasoning"
	Text string `json:"text"`
}

func (p *ReasoningPart) PartType() string { return "reasoning" }
func (p *ReasoningPart) PartID() string   { return p.ID }

// FilePart references an uploaded attachment.
type FilePart struct {
	ID        string `json:"id,omitempty"`
	Type      string `json:"type"` // always "file"
	Filename  string `json:"filename,omitempty"`
	MediaType string `json:"mediaType,omitempty"`
	URL       string `json:"url"`
}

func (p *FilePart) PartType() string { return "file" }
func (p *FilePart) PartID() string   { return p.ID }

// ToolPart tracks one tool invocation through its lifecycle. State is
// one of the ToolState constants; Approved is set when a human has
// responded to an approval request, Output or Error once executed.
type ToolPart struct {
	ID         string         `json:"id,omitempty"`
	Type       string         `json:"type"` // always "tool"
	ToolCallID string         `json:"toolCallId"`
	ToolName   string         `json:"toolName"`
	Input      map[string]any `json:"input,omitempty"`
	State      string         `json:"state"`
	Approved   *bool          `json:"approved,omitempty"`
	Output     *string        `json:"output,omitempty"`
	Error      *string        `json:"error,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func (p *ToolPart) PartType() string { return "tool" }
func (p *ToolPart) PartID() string   { return p.ID }

// Executed reports whether the invocation reached its terminal state.
func (p *ToolPart) Executed() bool { return p.State == ToolStateResult }

// UnmarshalPart decodes a JSON part by its type tag.
func UnmarshalPart(data []byte) (Part, error) {
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, err
	}

	switch tag.Type {
	case "text":
		var p TextPart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return &p, nil
	case "reasoning":
		var p ReasoningPart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return &p, nil
	case "file":
		var p FilePart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return &p, nil
	case "tool":
		var p ToolPart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return &p, nil
	default:
		return nil, fmt.Errorf("unknown part type %q", tag.Type)
	}
}

// UnmarshalParts decodes an ordered JSON array of parts.
func UnmarshalParts(data []byte) ([]Part, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	parts := make([]Part, 0, len(raw))
	for _, r := range raw {
		p, err := UnmarshalPart(r)
		if err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	return parts, nil
}
