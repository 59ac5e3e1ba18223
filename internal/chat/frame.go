package chat

import "encoding/json"

// Frame types emitted over a response stream, in the order a client
// can expect them: deltas while the model talks, tool frames around
// tool calls, data-chat-title once the async title resolves, then a
// single finish frame. An error frame replaces finish on failure.
const (
	FrameTextDelta      = "text-delta"
	FrameReasoningDelta = "reasoning-delta"
	FrameToolInput      = "tool-input-available"
	FrameToolApproval   = "tool-approval-required"
	FrameToolOutput     = "tool-output-available"
	FrameToolError      = "tool-output-error"
	FrameChatTitle      = "data-chat-title"
	FrameError          = "error"
	FrameFinish         = "finish"
)

// Frame is one streamed event of a chat turn.
type Frame struct {
	Type string `json:"type"`

	// ID identifies the part a delta belongs to.
	ID    string `json:"id,omitempty"`
	Delta string `json:"delta,omitempty"`

	ToolCallID string         `json:"toolCallId,omitempty"`
	ToolName   string         `json:"toolName,omitempty"`
	Input      map[string]any `json:"input,omitempty"`
	Output     string         `json:"output,omitempty"`
	ErrorText  string         `json:"errorText,omitempty"`

	ChatID string `json:"chatId,omitempty"`
	Title  string `json:"title,omitempty"`

	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// Emitter receives frames as the turn produces them.
type Emitter func(Frame)

// Encode renders the frame as a JSON line payload.
func (f Frame) Encode() []byte {
	data, _ := json.Marshal(f)
	return data
}
