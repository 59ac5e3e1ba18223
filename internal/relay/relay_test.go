package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbor-chat/arbor/pkg/types"
)

func TestNewWithoutURLIsNop(t *testing.T) {
	n := New("")
	_, ok := n.(Nop)
	assert.True(t, ok)

	// Safe to call with nil everything.
	n.NavigatorInit(context.Background(), &types.Chat{}, nil, nil)
	n.ThreadAppend(context.Background(), "c1", nil, nil)
}

func userAndAssistant() (*types.Message, *types.Message) {
	user := &types.Message{
		ID:    "m-user",
		Role:  types.RoleUser,
		Parts: []types.Part{&types.TextPart{Type: "text", Text: "what's the weather"}},
	}
	assistant := &types.Message{
		ID:    "m-assistant",
		Role:  types.RoleAssistant,
		Parts: []types.Part{&types.TextPart{Type: "text", Text: "it's sunny"}},
	}
	return user, assistant
}

func TestNavigatorInitPayload(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
	}))
	defer srv.Close()

	user, assistant := userAndAssistant()
	New(srv.URL).NavigatorInit(context.Background(),
		&types.Chat{ID: "c1", Title: "Weather small talk"}, user, assistant)

	assert.Equal(t, "/navigator", gotPath)
	assert.Equal(t, "c1", gotBody["chatId"])
	assert.Equal(t, "Weather small talk", gotBody["chatTitle"])
	assert.Equal(t, "m-user", gotBody["userMessageId"])
	assert.Equal(t, "m-assistant", gotBody["assistantMessageId"])
	assert.Equal(t, "it's sunny", gotBody["assistantMessage"])
}

func TestNavigatorEntryPath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
	}))
	defer srv.Close()

	user, assistant := userAndAssistant()
	New(srv.URL).NavigatorEntry(context.Background(), "c1", user, assistant)

	assert.Equal(t, "/navigator/id/c1/entries", gotPath)
}

func TestThreadAppendPayload(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
	}))
	defer srv.Close()

	user, assistant := userAndAssistant()
	New(srv.URL).ThreadAppend(context.Background(), "c1", user, assistant)

	assert.Equal(t, "/threads/append", gotPath)
	assert.Equal(t, "what's the weather", gotBody["userMessage"])
	assert.Equal(t, "it's sunny", gotBody["assistantMessage"])
}

func TestDeliveryFailureIsSwallowed(t *testing.T) {
	// Nothing listens on this address; the notifier must not panic or
	// propagate anything.
	n := New("http://127.0.0.1:1")

	user, assistant := userAndAssistant()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	n.NavigatorInit(ctx, &types.Chat{ID: "c1"}, user, assistant)
	n.NavigatorEntry(ctx, "c1", user, assistant)
	n.ThreadAppend(ctx, "c1", user, assistant)
}

func TestRejectionIsSwallowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	user, assistant := userAndAssistant()
	New(srv.URL).ThreadAppend(context.Background(), "c1", user, assistant)
}
