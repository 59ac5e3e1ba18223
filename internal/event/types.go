package event

import "github.com/arbor-chat/arbor/pkg/types"

// ChatCreatedData accompanies ChatCreated.
type ChatCreatedData struct {
	Chat *types.Chat `json:"chat"`
}

// ChatTitleUpdatedData accompanies ChatTitleUpdated, carrying the
// generated title once the asynchronous title task resolves.
type ChatTitleUpdatedData struct {
	ChatID string `json:"chatId"`
	Title  string `json:"title"`
}

// ChatDeletedData accompanies ChatDeleted.
type ChatDeletedData struct {
	Chat *types.Chat `json:"chat"`
}

// MessageCreatedData accompanies MessageCreated.
type MessageCreatedData struct {
	Message *types.Message `json:"message"`
}

// MessageUpdatedData accompanies MessageUpdated.
type MessageUpdatedData struct {
	Message *types.Message `json:"message"`
}

// PartUpdatedData accompanies PartUpdated. Delta holds the increment
// for streaming text and reasoning parts.
type PartUpdatedData struct {
	ChatID    string     `json:"chatId"`
	MessageID string     `json:"messageId"`
	Part      types.Part `json:"part"`
	Delta     string     `json:"delta,omitempty"`
}

// ApprovalRequiredData accompanies ApprovalRequired when a mutating
// tool call is waiting on a human decision.
type ApprovalRequiredData struct {
	ChatID     string         `json:"chatId"`
	MessageID  string         `json:"messageId"`
	ToolCallID string         `json:"toolCallId"`
	ToolName   string         `json:"toolName"`
	Input      map[string]any `json:"input,omitempty"`
}

// StreamFinishedData accompanies StreamFinished.
type StreamFinishedData struct {
	ChatID   string `json:"chatId"`
	StreamID string `json:"streamId,omitempty"`
}
