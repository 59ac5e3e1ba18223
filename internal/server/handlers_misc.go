package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/arbor-chat/arbor/internal/auth"
	"github.com/arbor-chat/arbor/internal/chaterr"
	"github.com/arbor-chat/arbor/internal/store"
	"github.com/arbor-chat/arbor/pkg/types"
)

const guestTokenTTL = 30 * 24 * time.Hour

// guestLogin mints a guest session token.
func (s *Server) guestLogin(w http.ResponseWriter, r *http.Request) {
	userID := "guest-" + uuid.NewString()
	token, err := s.auth.IssueToken(userID, auth.UserTypeGuest, guestTokenTTL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"token":  token,
		"userId": userID,
	})
}

// getHistory lists the user's chats, newest first.
func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	chats, err := s.store.ListChatsByUser(r.Context(), sess.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	if chats == nil {
		chats = []*types.Chat{}
	}
	writeJSON(w, http.StatusOK, chats)
}

// getModels returns the combined model catalog.
func (s *Server) getModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.providers.AllModels())
}

// getVotes returns the votes of a chat the user owns.
func (s *Server) getVotes(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	chatID := r.URL.Query().Get("chatId")
	if chatID == "" {
		writeChatError(w, chaterr.Newf(chaterr.KindBadRequest, chaterr.ScopeAPI, "chatId is required"))
		return
	}

	chatRow, err := s.store.GetChat(r.Context(), chatID)
	if errors.Is(err, store.ErrNotFound) {
		writeChatError(w, chaterr.New(chaterr.KindNotFound, chaterr.ScopeChat))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	if chatRow.UserID != sess.UserID {
		writeChatError(w, chaterr.New(chaterr.KindForbidden, chaterr.ScopeVote))
		return
	}

	votes, err := s.store.GetVotesByChat(r.Context(), chatID)
	if err != nil {
		writeError(w, err)
		return
	}
	if votes == nil {
		votes = []*types.Vote{}
	}
	writeJSON(w, http.StatusOK, votes)
}

// patchVote upserts an up/down vote on a message.
func (s *Server) patchVote(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	var body struct {
		ChatID    string `json:"chatId"`
		MessageID string `json:"messageId"`
		Type      string `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeChatError(w, chaterr.Wrap(chaterr.KindBadRequest, chaterr.ScopeAPI, err))
		return
	}
	if body.ChatID == "" || body.MessageID == "" {
		writeChatError(w, chaterr.Newf(chaterr.KindBadRequest, chaterr.ScopeAPI, "chatId and messageId are required"))
		return
	}
	if body.Type != "up" && body.Type != "down" {
		writeChatError(w, chaterr.Newf(chaterr.KindBadRequest, chaterr.ScopeAPI, "type must be up or down"))
		return
	}

	chatRow, err := s.store.GetChat(r.Context(), body.ChatID)
	if errors.Is(err, store.ErrNotFound) {
		writeChatError(w, chaterr.New(chaterr.KindNotFound, chaterr.ScopeVote))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	if chatRow.UserID != sess.UserID {
		writeChatError(w, chaterr.New(chaterr.KindForbidden, chaterr.ScopeVote))
		return
	}
	if !s.store.MessageExists(r.Context(), body.ChatID, body.MessageID) {
		writeChatError(w, chaterr.New(chaterr.KindNotFound, chaterr.ScopeVote))
		return
	}

	vote := &types.Vote{
		ChatID:    body.ChatID,
		MessageID: body.MessageID,
		IsUpvoted: body.Type == "up",
	}
	if err := s.store.SetVote(r.Context(), vote); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vote)
}

// getDocument returns a document the user owns.
func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	id := r.URL.Query().Get("id")
	if id == "" {
		writeChatError(w, chaterr.Newf(chaterr.KindBadRequest, chaterr.ScopeAPI, "document id is required"))
		return
	}

	doc, err := s.store.GetDocument(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeChatError(w, chaterr.New(chaterr.KindNotFound, chaterr.ScopeDocument))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	if doc.UserID != sess.UserID {
		writeChatError(w, chaterr.New(chaterr.KindForbidden, chaterr.ScopeDocument))
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// getSuggestions returns the stored suggestions for a document the
// user owns.
func (s *Server) getSuggestions(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	documentID := r.URL.Query().Get("documentId")
	if documentID == "" {
		writeChatError(w, chaterr.Newf(chaterr.KindBadRequest, chaterr.ScopeAPI, "documentId is required"))
		return
	}

	doc, err := s.store.GetDocument(r.Context(), documentID)
	if errors.Is(err, store.ErrNotFound) {
		writeChatError(w, chaterr.New(chaterr.KindNotFound, chaterr.ScopeDocument))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	if doc.UserID != sess.UserID {
		writeChatError(w, chaterr.New(chaterr.KindForbidden, chaterr.ScopeDocument))
		return
	}

	sugs, err := s.store.GetSuggestionsByDocument(r.Context(), documentID)
	if err != nil {
		writeError(w, err)
		return
	}
	if sugs == nil {
		sugs = []*types.Suggestion{}
	}
	writeJSON(w, http.StatusOK, sugs)
}
