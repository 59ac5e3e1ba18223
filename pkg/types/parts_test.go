package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalPartDispatch(t *testing.T) {
	tests := []struct {
		name string
		json string
		want string
	}{
		{"text", `{"type":"text","text":"hi"}`, "text"},
		{"reasoning", `{"type":"reasoning","text":"thinking"}`, "reasoning"},
		{"file", `{"type":"file","url":"https://x/y.png"}`, "file"},
		{"tool", `{"type":"tool","toolCallId":"c1","toolName":"getWeather","state":"call-requested"}`, "tool"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			part, err := UnmarshalPart([]byte(tt.json))
			require.NoError(t, err)
			assert.Equal(t, tt.want, part.PartType())
		})
	}
}

func TestUnmarshalPartUnknownType(t *testing.T) {
	_, err := UnmarshalPart([]byte(`{"type":"video"}`))
	assert.Error(t, err)
}

func TestUnmarshalPartsKeepsOrder(t *testing.T) {
	parts, err := UnmarshalParts([]byte(`[
		{"type":"reasoning","text":"let me think"},
		{"type":"text","text":"hello"},
		{"type":"tool","toolCallId":"c1","toolName":"getWeather","state":"result-available","output":"sunny"}
	]`))
	require.NoError(t, err)
	require.Len(t, parts, 3)

	assert.Equal(t, "reasoning", parts[0].PartType())
	assert.Equal(t, "text", parts[1].PartType())
	assert.Equal(t, "tool", parts[2].PartType())
}

func TestToolPartExecuted(t *testing.T) {
	tp := &ToolPart{State: ToolStateRequested}
	assert.False(t, tp.Executed())

	tp.State = ToolStateAwaitingApproval
	assert.False(t, tp.Executed())

	tp.State = ToolStateResult
	assert.True(t, tp.Executed())
}

func TestMessageUnmarshalJSON(t *testing.T) {
	raw := `{
		"id": "m1",
		"chatId": "c1",
		"role": "assistant",
		"parts": [
			{"type":"text","text":"The weather "},
			{"type":"text","text":"is sunny."},
			{"type":"tool","toolCallId":"call1","toolName":"getWeather","state":"result-available","output":"{}"}
		]
	}`

	var msg Message
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))

	assert.Equal(t, "m1", msg.ID)
	assert.Equal(t, RoleAssistant, msg.Role)
	assert.Equal(t, "The weather is sunny.", msg.Text())
	require.Len(t, msg.ToolParts(), 1)
	assert.Equal(t, "getWeather", msg.ToolParts()[0].ToolName)
	assert.NotNil(t, msg.Attachments)
}

func TestMessageClone(t *testing.T) {
	msg := &Message{
		ID:    "m1",
		Role:  RoleUser,
		Parts: []Part{&TextPart{Type: "text", Text: "hi"}},
	}

	clone := msg.Clone()
	clone.Parts = append(clone.Parts, &TextPart{Type: "text", Text: "extra"})

	assert.Len(t, msg.Parts, 1)
	assert.Len(t, clone.Parts, 2)
}

func TestIsReasoningModel(t *testing.T) {
	assert.True(t, IsReasoningModel("chat-model-reasoning"))
	assert.True(t, IsReasoningModel("deepseek-thinking-v2"))
	assert.False(t, IsReasoningModel("chat-model"))
	assert.False(t, IsReasoningModel("claude-sonnet-4-20250514"))
}
