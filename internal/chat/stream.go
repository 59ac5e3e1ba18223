package chat

import (
	"context"
	"encoding/json"
	"io"

	"github.com/cloudwego/eino/schema"

	"github.com/arbor-chat/arbor/internal/event"
	"github.com/arbor-chat/arbor/internal/provider"
	"github.com/arbor-chat/arbor/pkg/types"
)

// streamState accumulates one completion's chunks into message parts.
type streamState struct {
	textPart      *types.TextPart
	reasoningPart *types.ReasoningPart

	toolParts  map[string]*types.ToolPart
	toolOrder  []string
	toolInputs map[string]string
	lastToolID string
}

// processStream consumes one completion stream, appending parts to the
// assistant message and emitting delta frames. Returns the tool calls
// the model requested, in arrival order.
func (o *Orchestrator) processStream(ctx context.Context, ts *turnState, stream *provider.CompletionStream) ([]*types.ToolPart, error) {
	ss := &streamState{
		toolParts:  make(map[string]*types.ToolPart),
		toolInputs: make(map[string]string),
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		msg, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		o.processChunk(ts, ss, msg)
	}

	return o.finalizeToolCalls(ts, ss), nil
}

// processChunk folds one delta chunk into the stream state.
func (o *Orchestrator) processChunk(ts *turnState, ss *streamState, msg *schema.Message) {
	if msg.Content != "" {
		if ss.textPart == nil {
			ss.textPart = &types.TextPart{ID: generateID(), Type: "text"}
			ts.assistant.Parts = append(ts.assistant.Parts, ss.textPart)
		}
		ss.textPart.Text += msg.Content

		ts.emit(Frame{Type: FrameTextDelta, ID: ss.textPart.ID, Delta: msg.Content})
		event.Publish(event.Event{
			Type: event.PartUpdated,
			Data: event.PartUpdatedData{
				ChatID:    ts.chat.ID,
				MessageID: ts.assistant.ID,
				Part:      ss.textPart,
				Delta:     msg.Content,
			},
		})
	}

	if msg.ReasoningContent != "" {
		if ss.reasoningPart == nil {
			ss.reasoningPart = &types.ReasoningPart{ID: generateID(), Type: "reasoning"}
			ts.assistant.Parts = append(ts.assistant.Parts, ss.reasoningPart)
		}
		ss.reasoningPart.Text += msg.ReasoningContent

		ts.emit(Frame{Type: FrameReasoningDelta, ID: ss.reasoningPart.ID, Delta: msg.ReasoningContent})
		event.Publish(event.Event{
			Type: event.PartUpdated,
			Data: event.PartUpdatedData{
				ChatID:    ts.chat.ID,
				MessageID: ts.assistant.ID,
				Part:      ss.reasoningPart,
				Delta:     msg.ReasoningContent,
			},
		})
	}

	for _, tc := range msg.ToolCalls {
		// Argument fragments may arrive without the call id repeated.
		id := tc.ID
		if id == "" {
			id = ss.lastToolID
		} else {
			ss.lastToolID = id
		}
		if id == "" {
			continue
		}

		tp, exists := ss.toolParts[id]
		if !exists {
			tp = &types.ToolPart{
				ID:         generateID(),
				Type:       "tool",
				ToolCallID: id,
				ToolName:   tc.Function.Name,
				State:      types.ToolStateRequested,
			}
			ss.toolParts[id] = tp
			ss.toolOrder = append(ss.toolOrder, id)
			ts.assistant.Parts = append(ts.assistant.Parts, tp)
		}
		if tp.ToolName == "" {
			tp.ToolName = tc.Function.Name
		}
		ss.toolInputs[id] += tc.Function.Arguments
	}
}

// finalizeToolCalls decodes the accumulated argument buffers and emits
// the tool-input frames once each call's input is complete.
func (o *Orchestrator) finalizeToolCalls(ts *turnState, ss *streamState) []*types.ToolPart {
	out := make([]*types.ToolPart, 0, len(ss.toolOrder))
	for _, id := range ss.toolOrder {
		tp := ss.toolParts[id]

		var input map[string]any
		if raw := ss.toolInputs[id]; raw != "" {
			if err := json.Unmarshal([]byte(raw), &input); err == nil {
				tp.Input = input
			}
		}

		ts.emit(Frame{
			Type:       FrameToolInput,
			ToolCallID: tp.ToolCallID,
			ToolName:   tp.ToolName,
			Input:      tp.Input,
		})
		out = append(out, tp)
	}
	return out
}
