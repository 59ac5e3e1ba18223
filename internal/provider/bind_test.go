package provider

import (
	"context"
	"fmt"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureModel records the options and tools bindAndStream hands to
// the underlying chat model.
type captureModel struct {
	maxTokens *int
	tools     []*schema.ToolInfo
}

func (m *captureModel) Generate(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	return nil, fmt.Errorf("not streamed")
}

func (m *captureModel) Stream(_ context.Context, _ []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	common := model.GetCommonOptions(&model.Options{}, opts...)
	m.maxTokens = common.MaxTokens
	return schema.StreamReaderFromArray([]*schema.Message{{Role: schema.Assistant, Content: "ok"}}), nil
}

func (m *captureModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	m.tools = tools
	return m, nil
}

func TestBindAndStreamMaxTokens(t *testing.T) {
	cm := &captureModel{}
	stream, err := bindAndStream(context.Background(), cm, &CompletionRequest{
		Messages:  []*schema.Message{{Role: schema.User, Content: "hi"}},
		MaxTokens: 8192,
	})
	require.NoError(t, err)
	stream.Close()

	require.NotNil(t, cm.maxTokens)
	assert.Equal(t, 8192, *cm.maxTokens)
}

func TestBindAndStreamRaisesCapAboveThinkingBudget(t *testing.T) {
	cm := &captureModel{}
	stream, err := bindAndStream(context.Background(), cm, &CompletionRequest{
		Messages:        []*schema.Message{{Role: schema.User, Content: "hi"}},
		MaxTokens:       8192,
		ReasoningBudget: 10_000,
	})
	require.NoError(t, err)
	stream.Close()

	require.NotNil(t, cm.maxTokens)
	assert.Equal(t, 18_192, *cm.maxTokens)
}

func TestBindAndStreamOmitsUnsetMaxTokens(t *testing.T) {
	cm := &captureModel{}
	stream, err := bindAndStream(context.Background(), cm, &CompletionRequest{
		Messages: []*schema.Message{{Role: schema.User, Content: "hi"}},
	})
	require.NoError(t, err)
	stream.Close()

	assert.Nil(t, cm.maxTokens)
}

func TestBindAndStreamBindsTools(t *testing.T) {
	cm := &captureModel{}
	infos := []*schema.ToolInfo{{Name: "getWeather"}}
	stream, err := bindAndStream(context.Background(), cm, &CompletionRequest{
		Messages: []*schema.Message{{Role: schema.User, Content: "hi"}},
		Tools:    infos,
	})
	require.NoError(t, err)
	stream.Close()

	require.Len(t, cm.tools, 1)
	assert.Equal(t, "getWeather", cm.tools[0].Name)
}
