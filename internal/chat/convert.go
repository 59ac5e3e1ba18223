package chat

import (
	"encoding/json"

	"github.com/cloudwego/eino/schema"

	"github.com/arbor-chat/arbor/pkg/types"
)

// buildModelMessages converts persisted chat history into the wire
// shape the model expects: a system message, the conversation turns,
// and a tool-role message per executed tool call so the model sees
// every prior result.
func buildModelMessages(model *types.Model, history []*types.Message) []*schema.Message {
	out := []*schema.Message{{
		Role:    schema.System,
		Content: systemPrompt(model),
	}}

	for _, msg := range history {
		out = append(out, convertMessage(msg)...)
	}
	return out
}

// convertMessage expands one stored message. A user or system message
// becomes a single entry. An assistant message becomes the assistant
// entry (text plus tool calls) followed by one tool entry per tool
// part that has finished executing.
func convertMessage(msg *types.Message) []*schema.Message {
	role := schema.Assistant
	switch msg.Role {
	case types.RoleUser:
		role = schema.User
	case types.RoleSystem:
		role = schema.System
	}

	var content string
	var toolCalls []schema.ToolCall
	var toolResults []*schema.Message

	for _, part := range msg.Parts {
		switch pt := part.(type) {
		case *types.TextPart:
			content += pt.Text
		case *types.ToolPart:
			if msg.Role != types.RoleAssistant {
				continue
			}
			inputJSON, _ := json.Marshal(pt.Input)
			toolCalls = append(toolCalls, schema.ToolCall{
				ID: pt.ToolCallID,
				Function: schema.FunctionCall{
					Name:      pt.ToolName,
					Arguments: string(inputJSON),
				},
			})
			if result := toolResultMessage(pt); result != nil {
				toolResults = append(toolResults, result)
			}
		}
	}

	if content == "" && len(toolCalls) == 0 {
		return nil
	}

	out := []*schema.Message{{
		Role:      role,
		Content:   content,
		ToolCalls: toolCalls,
	}}
	return append(out, toolResults...)
}

func toolResultMessage(pt *types.ToolPart) *schema.Message {
	if !pt.Executed() {
		return nil
	}

	content := ""
	switch {
	case pt.Error != nil:
		content = "Error: " + *pt.Error
	case pt.Output != nil:
		content = *pt.Output
	}

	return &schema.Message{
		Role:       schema.Tool,
		ToolCallID: pt.ToolCallID,
		Content:    content,
	}
}
