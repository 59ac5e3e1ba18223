package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/arbor-chat/arbor/internal/chat"
	"github.com/arbor-chat/arbor/internal/chaterr"
	"github.com/arbor-chat/arbor/internal/event"
	"github.com/arbor-chat/arbor/internal/store"
	"github.com/arbor-chat/arbor/pkg/types"
)

// postChat runs one chat turn, streaming frames back as data-only SSE.
// Headers are deferred until the first frame so pre-stream failures
// can still use a proper error status.
func (s *Server) postChat(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	var req chat.TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeChatError(w, chaterr.Wrap(chaterr.KindBadRequest, chaterr.ScopeAPI, err))
		return
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		writeChatError(w, chaterr.Wrap(chaterr.KindOffline, chaterr.ScopeChat, err))
		return
	}

	started := false
	emit := func(f chat.Frame) {
		if !started {
			sseHeaders(w)
			w.WriteHeader(http.StatusOK)
			started = true
		}
		_ = sse.writeData(f.Encode())
	}

	if err := s.orchestrator.Run(r.Context(), sess, &req, emit); err != nil && !started {
		writeError(w, err)
	}
}

// deleteChat removes a chat and its dependent records, returning the
// deleted row.
func (s *Server) deleteChat(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	id := r.URL.Query().Get("id")
	if id == "" {
		writeChatError(w, chaterr.Newf(chaterr.KindBadRequest, chaterr.ScopeAPI, "chat id is required"))
		return
	}

	chatRow, err := s.store.GetChat(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeChatError(w, chaterr.New(chaterr.KindNotFound, chaterr.ScopeChat))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	if chatRow.UserID != sess.UserID {
		writeChatError(w, chaterr.New(chaterr.KindForbidden, chaterr.ScopeChat))
		return
	}

	deleted, err := s.store.DeleteChat(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	event.Publish(event.Event{Type: event.ChatDeleted, Data: event.ChatDeletedData{Chat: deleted}})
	writeJSON(w, http.StatusOK, deleted)
}

// getMessages returns a chat's messages in order. Public chats are
// readable by any signed-in user.
func (s *Server) getMessages(w http.ResponseWriter, r *http.Request) {
	chatRow, ce := s.readableChat(r)
	if ce != nil {
		writeChatError(w, ce)
		return
	}

	messages, err := s.store.GetMessagesByChat(r.Context(), chatRow.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if messages == nil {
		messages = []*types.Message{}
	}
	writeJSON(w, http.StatusOK, messages)
}

// resumeStream replays the chat's most recent response stream.
func (s *Server) resumeStream(w http.ResponseWriter, r *http.Request) {
	chatRow, ce := s.readableChat(r)
	if ce != nil {
		writeChatError(w, ce)
		return
	}

	if !s.streams.Enabled() {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	streamID, err := s.store.LatestStreamID(r.Context(), chatRow.ID)
	if errors.Is(err, store.ErrNotFound) {
		writeChatError(w, chaterr.New(chaterr.KindNotFound, chaterr.ScopeStream))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	frames, cancel, err := s.streams.Subscribe(r.Context(), streamID)
	if err != nil {
		writeError(w, err)
		return
	}
	defer cancel()

	sseHeaders(w)
	sse, err := newSSEWriter(w)
	if err != nil {
		writeChatError(w, chaterr.Wrap(chaterr.KindOffline, chaterr.ScopeStream, err))
		return
	}
	w.WriteHeader(http.StatusOK)
	sse.flusher.Flush()

	heartbeat := time.NewTicker(sseHeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			sse.writeHeartbeat()
		case frame, ok := <-frames:
			if !ok {
				return
			}
			if err := sse.writeData(frame); err != nil {
				return
			}
			if terminalFrame(frame) {
				return
			}
		}
	}
}

// terminalFrame reports whether a replayed frame ends the stream.
func terminalFrame(frame []byte) bool {
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(frame, &tag); err != nil {
		return false
	}
	return tag.Type == chat.FrameFinish || tag.Type == chat.FrameError
}

// readableChat loads the chat named in the URL and checks read access:
// the owner always, anyone signed-in when the chat is public.
func (s *Server) readableChat(r *http.Request) (*types.Chat, *chaterr.Error) {
	sess := sessionFrom(r.Context())

	chatID := chi.URLParam(r, "chatID")
	if chatID == "" {
		return nil, chaterr.Newf(chaterr.KindBadRequest, chaterr.ScopeAPI, "chat id is required")
	}

	chatRow, err := s.store.GetChat(r.Context(), chatID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, chaterr.New(chaterr.KindNotFound, chaterr.ScopeChat)
	}
	if err != nil {
		return nil, chaterr.Classify(err)
	}

	if chatRow.UserID != sess.UserID && chatRow.Visibility != types.VisibilityPublic {
		return nil, chaterr.New(chaterr.KindForbidden, chaterr.ScopeChat)
	}
	return chatRow, nil
}
