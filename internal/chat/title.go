package chat

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/arbor-chat/arbor/internal/event"
	"github.com/arbor-chat/arbor/internal/logging"
	"github.com/arbor-chat/arbor/internal/provider"
	"github.com/arbor-chat/arbor/pkg/types"
)

const titleMaxLen = 80

// generateTitleAsync kicks off title generation for a new chat. The
// store update and title event land whenever generation resolves; the
// returned channel lets the turn wait briefly so the title frame can
// ride the same response stream.
func (o *Orchestrator) generateTitleAsync(chat *types.Chat, userMsg *types.Message) <-chan string {
	ch := make(chan string, 1)

	go func() {
		defer close(ch)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		title := o.generateTitle(ctx, userMsg)
		if title == "" || title == chat.Title {
			ch <- chat.Title
			return
		}

		if err := o.store.UpdateChatTitle(ctx, chat.ID, title); err != nil {
			logging.Warn().Err(err).Str("chat", chat.ID).Msg("title update failed")
			return
		}
		event.Publish(event.Event{
			Type: event.ChatTitleUpdated,
			Data: event.ChatTitleUpdatedData{ChatID: chat.ID, Title: title},
		})
		ch <- title
	}()

	return ch
}

// generateTitle asks the default model for a short title, falling back
// to a truncation of the user's opening message.
func (o *Orchestrator) generateTitle(ctx context.Context, userMsg *types.Message) string {
	text := ""
	if userMsg != nil {
		text = strings.TrimSpace(userMsg.Text())
	}

	prov, model, err := o.providers.ResolveRef(o.cfg.DefaultModel)
	if err != nil {
		return fallbackTitle(text)
	}

	stream, err := prov.CreateCompletion(ctx, &provider.CompletionRequest{
		Model: model.ID,
		Messages: []*schema.Message{
			{Role: schema.System, Content: titlePrompt},
			{Role: schema.User, Content: text},
		},
		MaxTokens: 64,
	})
	if err != nil {
		logging.Warn().Err(err).Msg("title generation failed")
		return fallbackTitle(text)
	}
	defer stream.Close()

	var title strings.Builder
	for {
		msg, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			logging.Warn().Err(err).Msg("title stream failed")
			return fallbackTitle(text)
		}
		title.WriteString(msg.Content)
	}

	return cleanTitle(title.String(), text)
}

func cleanTitle(raw, fallback string) string {
	title := strings.TrimSpace(raw)
	title = strings.Trim(title, `"'`)
	title = strings.ReplaceAll(title, "\n", " ")
	if title == "" {
		return fallbackTitle(fallback)
	}
	return truncate(title, titleMaxLen)
}

func fallbackTitle(text string) string {
	if text == "" {
		return ""
	}
	return truncate(text, titleMaxLen)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
