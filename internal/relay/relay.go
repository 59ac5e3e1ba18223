// Package relay pushes chat activity to the companion threads
// service. Deliveries are fire-and-forget: a companion outage must
// never fail or delay a chat turn.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/arbor-chat/arbor/internal/logging"
	"github.com/arbor-chat/arbor/pkg/types"
)

// Notifier mirrors chat turns into the companion service. None of the
// methods return errors; failures are logged and dropped.
type Notifier interface {
	// NavigatorInit announces a newly created chat.
	NavigatorInit(ctx context.Context, chat *types.Chat, userMessage, assistantMessage *types.Message)

	// NavigatorEntry appends a turn to an existing chat's navigator.
	NavigatorEntry(ctx context.Context, chatID string, userMessage, assistantMessage *types.Message)

	// ThreadAppend appends a turn to the chat's thread transcript.
	ThreadAppend(ctx context.Context, chatID string, userMessage, assistantMessage *types.Message)
}

// New returns an HTTP notifier for baseURL, or a no-op notifier when
// baseURL is empty.
func New(baseURL string) Notifier {
	if baseURL == "" {
		return Nop{}
	}
	return &httpNotifier{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

// Nop discards every notification. Used when no companion service is
// configured and throughout tests.
type Nop struct{}

func (Nop) NavigatorInit(context.Context, *types.Chat, *types.Message, *types.Message) {}
func (Nop) NavigatorEntry(context.Context, string, *types.Message, *types.Message)     {}
func (Nop) ThreadAppend(context.Context, string, *types.Message, *types.Message)       {}

type httpNotifier struct {
	baseURL string
	client  *http.Client
}

func (n *httpNotifier) NavigatorInit(ctx context.Context, chat *types.Chat, userMessage, assistantMessage *types.Message) {
	n.post(ctx, "/navigator", map[string]any{
		"chatId":             chat.ID,
		"chatTitle":          chat.Title,
		"userMessageId":      messageID(userMessage),
		"assistantMessageId": messageID(assistantMessage),
		"userMessage":        messageText(userMessage),
		"assistantMessage":   messageText(assistantMessage),
	})
}

func (n *httpNotifier) NavigatorEntry(ctx context.Context, chatID string, userMessage, assistantMessage *types.Message) {
	n.post(ctx, fmt.Sprintf("/navigator/id/%s/entries", chatID), map[string]any{
		"navigatorId":        chatID,
		"userMessageId":      messageID(userMessage),
		"assistantMessageId": messageID(assistantMessage),
		"userMessage":        messageText(userMessage),
		"assistantMessage":   messageText(assistantMessage),
	})
}

func (n *httpNotifier) ThreadAppend(ctx context.Context, chatID string, userMessage, assistantMessage *types.Message) {
	n.post(ctx, "/threads/append", map[string]any{
		"chatId":           chatID,
		"userMessage":      messageText(userMessage),
		"assistantMessage": messageText(assistantMessage),
	})
}

func (n *httpNotifier) post(ctx context.Context, path string, payload map[string]any) {
	body, err := json.Marshal(payload)
	if err != nil {
		logging.Warn().Err(err).Str("path", path).Msg("relay payload encode failed")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+path, bytes.NewReader(body))
	if err != nil {
		logging.Warn().Err(err).Str("path", path).Msg("relay request build failed")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		logging.Warn().Err(err).Str("path", path).Msg("relay delivery failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		logging.Warn().Int("status", resp.StatusCode).Str("path", path).Msg("relay delivery rejected")
	}
}

func messageID(m *types.Message) string {
	if m == nil {
		return ""
	}
	return m.ID
}

func messageText(m *types.Message) string {
	if m == nil {
		return ""
	}
	return m.Text()
}
