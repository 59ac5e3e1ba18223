package chat

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/arbor-chat/arbor/internal/approval"
	"github.com/arbor-chat/arbor/internal/event"
	"github.com/arbor-chat/arbor/internal/logging"
	"github.com/arbor-chat/arbor/internal/provider"
	"github.com/arbor-chat/arbor/pkg/types"
)

const (
	// maxSteps bounds the tool loop: at most this many model
	// invocations per turn.
	maxSteps = 5

	// reasoningBudgetTokens is the thinking budget for reasoning model
	// variants.
	reasoningBudgetTokens = 10_000

	maxRetries           = 3
	retryInitialInterval = time.Second
	retryMaxInterval     = 30 * time.Second
	retryMaxElapsedTime  = 2 * time.Minute
)

func newRetryBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = retryInitialInterval
	b.MaxInterval = retryMaxInterval
	b.MaxElapsedTime = retryMaxElapsedTime
	b.RandomizationFactor = 0.5
	b.Multiplier = 2.0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, maxRetries), ctx)
}

// runLoop drives the model invocation loop for one turn. Each step
// streams a completion; read-only tool calls execute inline and the
// loop continues, a mutating tool call parks the turn in
// awaiting-approval and ends it.
func (o *Orchestrator) runLoop(ctx context.Context, ts *turnState) error {
	retry := newRetryBackoff(ctx)

	for step := 0; step < maxSteps; step++ {
		req, err := o.buildCompletionRequest(ctx, ts)
		if err != nil {
			return err
		}

		stream, err := ts.prov.CreateCompletion(ctx, req)
		if err != nil {
			if wait := retry.NextBackOff(); wait != backoff.Stop {
				logging.Warn().Err(err).Int("step", step).Msg("completion open failed, retrying")
				select {
				case <-time.After(wait):
				case <-ctx.Done():
					return ctx.Err()
				}
				step--
				continue
			}
			return err
		}

		pending, err := o.processStream(ctx, ts, stream)
		stream.Close()
		if err != nil {
			return err
		}
		retry.Reset()

		if len(pending) == 0 {
			return nil
		}

		needsApproval := o.gateToolCalls(ts, pending)

		for _, tp := range pending {
			if tp.State != types.ToolStateRequested {
				continue
			}
			o.executeTool(ctx, ts, tp)
		}

		if needsApproval {
			return nil
		}

		if err := o.saveAssistant(ctx, ts); err != nil {
			return err
		}
	}

	// Step budget exhausted with tool calls still flowing. End the
	// turn with whatever has streamed so far.
	logging.Info().Str("chat", ts.chat.ID).Msg("turn reached step limit")
	return nil
}

// gateToolCalls marks mutating calls as awaiting approval and emits
// the approval frames. Returns true when at least one call is parked.
func (o *Orchestrator) gateToolCalls(ts *turnState, pending []*types.ToolPart) bool {
	parked := false
	for _, tp := range pending {
		t, _ := o.tools.Get(tp.ToolName)
		if !approval.Required(t) {
			continue
		}

		tp.State = types.ToolStateAwaitingApproval
		parked = true

		ts.emit(Frame{
			Type:       FrameToolApproval,
			ToolCallID: tp.ToolCallID,
			ToolName:   tp.ToolName,
			Input:      tp.Input,
		})
		event.Publish(event.Event{
			Type: event.ApprovalRequired,
			Data: event.ApprovalRequiredData{
				ChatID:     ts.chat.ID,
				MessageID:  ts.assistant.ID,
				ToolCallID: tp.ToolCallID,
				ToolName:   tp.ToolName,
				Input:      tp.Input,
			},
		})
	}
	return parked
}

func (o *Orchestrator) buildCompletionRequest(ctx context.Context, ts *turnState) (*provider.CompletionRequest, error) {
	history, err := o.store.GetMessagesByChat(ctx, ts.chat.ID)
	if err != nil {
		return nil, err
	}

	// The assistant message under construction is persisted but its
	// in-memory parts are newer; splice it in.
	for i, msg := range history {
		if msg.ID == ts.assistant.ID {
			history[i] = ts.assistant
		}
	}

	req := &provider.CompletionRequest{
		Model:     ts.model.ID,
		Messages:  buildModelMessages(ts.model, history),
		MaxTokens: ts.model.MaxOutputTokens,
	}

	reasoning := ts.model.Reasoning || types.IsReasoningModel(ts.model.ID)
	if reasoning {
		req.ReasoningBudget = reasoningBudgetTokens
		return req, nil
	}

	if ts.model.SupportsTools {
		infos, err := o.tools.Infos()
		if err != nil {
			return nil, err
		}
		req.Tools = infos
	}
	return req, nil
}
