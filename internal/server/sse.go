package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/arbor-chat/arbor/internal/chaterr"
	"github.com/arbor-chat/arbor/internal/event"
)

const sseHeartbeatInterval = 30 * time.Second

// sseWriter wraps http.ResponseWriter for server-sent events.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	rc      *http.ResponseController
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}
	return &sseWriter{w: w, flusher: flusher, rc: http.NewResponseController(w)}, nil
}

func sseHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// writeData writes a data-only SSE frame and flushes it.
func (s *sseWriter) writeData(payload []byte) error {
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	if err := s.rc.Flush(); err != nil {
		s.flusher.Flush()
	}
	return nil
}

// writeEvent writes a named SSE event and flushes it.
func (s *sseWriter) writeEvent(eventType string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", eventType, payload); err != nil {
		return err
	}
	if err := s.rc.Flush(); err != nil {
		s.flusher.Flush()
	}
	return nil
}

func (s *sseWriter) writeHeartbeat() {
	fmt.Fprintf(s.w, ": heartbeat\n\n")
	s.flusher.Flush()
}

// events streams the chat lifecycle event bus. An optional chatId
// query parameter narrows the stream to one chat.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	chatFilter := r.URL.Query().Get("chatId")

	sseHeaders(w)
	sse, err := newSSEWriter(w)
	if err != nil {
		writeChatError(w, chaterr.Wrap(chaterr.KindOffline, chaterr.ScopeStream, err))
		return
	}
	w.WriteHeader(http.StatusOK)
	sse.flusher.Flush()

	events := make(chan event.Event, 32)
	unsub := event.SubscribeAll(func(e event.Event) {
		select {
		case events <- e:
		default:
		}
	})
	defer unsub()

	heartbeat := time.NewTicker(sseHeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			sse.writeHeartbeat()
		case e := <-events:
			if chatFilter != "" && eventChatID(e) != chatFilter {
				continue
			}
			if err := sse.writeEvent(string(e.Type), e.Data); err != nil {
				return
			}
		}
	}
}

// eventChatID extracts the chat an event belongs to, when it has one.
func eventChatID(e event.Event) string {
	switch data := e.Data.(type) {
	case event.ChatCreatedData:
		if data.Chat != nil {
			return data.Chat.ID
		}
	case event.ChatTitleUpdatedData:
		return data.ChatID
	case event.ChatDeletedData:
		if data.Chat != nil {
			return data.Chat.ID
		}
	case event.MessageCreatedData:
		if data.Message != nil {
			return data.Message.ChatID
		}
	case event.MessageUpdatedData:
		if data.Message != nil {
			return data.Message.ChatID
		}
	case event.PartUpdatedData:
		return data.ChatID
	case event.ApprovalRequiredData:
		return data.ChatID
	case event.StreamFinishedData:
		return data.ChatID
	}
	return ""
}
