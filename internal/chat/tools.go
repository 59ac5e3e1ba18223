package chat

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/arbor-chat/arbor/internal/approval"
	"github.com/arbor-chat/arbor/internal/chaterr"
	"github.com/arbor-chat/arbor/internal/event"
	"github.com/arbor-chat/arbor/internal/logging"
	"github.com/arbor-chat/arbor/internal/tool"
	"github.com/arbor-chat/arbor/pkg/types"
)

// deniedOutput is the tool result recorded when the user rejects a
// mutating call. The model sees it like any other tool error.
const deniedOutput = "The user denied this tool call."

// executeTool runs one requested tool call and folds the result into
// its part. Tool failures never fail the turn; they become error-state
// results the model can react to.
func (o *Orchestrator) executeTool(ctx context.Context, ts *turnState, tp *types.ToolPart) {
	t, ok := o.tools.Get(tp.ToolName)
	if !ok {
		o.failTool(ts, tp, fmt.Sprintf("tool not found: %s", tp.ToolName))
		return
	}

	inputJSON, err := json.Marshal(tp.Input)
	if err != nil {
		o.failTool(ts, tp, fmt.Sprintf("encode input: %v", err))
		return
	}

	result, err := t.Execute(ctx, inputJSON, &tool.Context{
		ChatID:    ts.chat.ID,
		MessageID: ts.assistant.ID,
		CallID:    tp.ToolCallID,
		UserID:    ts.session.UserID,
	})
	if err != nil {
		logging.Warn().Err(err).Str("tool", tp.ToolName).Msg("tool execution failed")
		o.failTool(ts, tp, err.Error())
		return
	}

	tp.State = types.ToolStateResult
	tp.Output = &result.Output
	if result.Metadata != nil {
		if tp.Metadata == nil {
			tp.Metadata = make(map[string]any)
		}
		for k, v := range result.Metadata {
			tp.Metadata[k] = v
		}
	}

	ts.emit(Frame{Type: FrameToolOutput, ToolCallID: tp.ToolCallID, Output: result.Output})
	o.publishToolPart(ts, tp)
}

func (o *Orchestrator) failTool(ts *turnState, tp *types.ToolPart, msg string) {
	tp.State = types.ToolStateResult
	tp.Error = &msg

	ts.emit(Frame{Type: FrameToolError, ToolCallID: tp.ToolCallID, ErrorText: msg})
	o.publishToolPart(ts, tp)
}

func (o *Orchestrator) publishToolPart(ts *turnState, tp *types.ToolPart) {
	event.Publish(event.Event{
		Type: event.PartUpdated,
		Data: event.PartUpdatedData{
			ChatID:    ts.chat.ID,
			MessageID: ts.assistant.ID,
			Part:      tp,
		},
	})
}

// executeDecidedTools resolves the approval-responded calls on the
// resumed assistant message: approved calls execute, denied calls get
// the denial result. The updated parts are persisted before the model
// is invoked again.
func (o *Orchestrator) executeDecidedTools(ctx context.Context, ts *turnState) *chaterr.Error {
	decided := approval.Responded(ts.assistant)
	if len(decided) == 0 && approval.HasPending([]types.Message{*ts.assistant}) {
		return chaterr.Newf(chaterr.KindBadRequest, chaterr.ScopeAPI,
			"resumed turn has approval requests without decisions")
	}

	for _, tp := range decided {
		approved, ok := approval.Decision(tp)
		if !ok {
			continue
		}
		if !approved {
			o.failTool(ts, tp, deniedOutput)
			continue
		}
		o.executeTool(ctx, ts, tp)
	}

	if len(decided) > 0 {
		if err := o.saveAssistant(ctx, ts); err != nil {
			return chaterr.Wrap(chaterr.KindOffline, chaterr.ScopeChat, err)
		}
	}
	return nil
}
