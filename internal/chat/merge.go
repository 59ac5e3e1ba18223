package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/arbor-chat/arbor/internal/event"
	"github.com/arbor-chat/arbor/pkg/types"
)

// mergeMessages reconciles a client-submitted history against the
// stored one: a message whose id is already known gets its parts
// replaced in place, an unknown id is inserted. Identity and
// timestamps of known messages never change, so replaying the same
// submission is a no-op.
func (o *Orchestrator) mergeMessages(ctx context.Context, chatID string, msgs []types.Message) error {
	for i := range msgs {
		msg := msgs[i].Clone()
		if msg.ID == "" {
			return fmt.Errorf("history message %d has no id", i)
		}
		msg.ChatID = chatID

		if o.store.MessageExists(ctx, chatID, msg.ID) {
			if err := o.store.UpdateMessageParts(ctx, chatID, msg.ID, msg.Parts); err != nil {
				return fmt.Errorf("update message %s: %w", msg.ID, err)
			}
			event.Publish(event.Event{Type: event.MessageUpdated, Data: event.MessageUpdatedData{Message: msg}})
			continue
		}

		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = time.Now().UTC()
		}
		if err := o.store.SaveMessages(ctx, []*types.Message{msg}); err != nil {
			return fmt.Errorf("insert message %s: %w", msg.ID, err)
		}
		event.Publish(event.Event{Type: event.MessageCreated, Data: event.MessageCreatedData{Message: msg}})
	}
	return nil
}
