package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/arbor-chat/arbor/pkg/types"
)

// Store is the typed persistence gateway.
type Store struct {
	kv *kv
}

// New creates a store rooted at basePath.
func New(basePath string) *Store {
	return &Store{kv: newKV(basePath)}
}

// --- chats ---

// SaveChat persists a chat row.
func (s *Store) SaveChat(ctx context.Context, chat *types.Chat) error {
	return s.kv.put(ctx, []string{"chat", chat.ID}, chat)
}

// GetChat loads a chat by id. Returns ErrNotFound when absent.
func (s *Store) GetChat(ctx context.Context, id string) (*types.Chat, error) {
	var chat types.Chat
	if err := s.kv.get(ctx, []string{"chat", id}, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

// ChatExists reports whether a chat row exists.
func (s *Store) ChatExists(ctx context.Context, id string) bool {
	return s.kv.exists([]string{"chat", id})
}

// UpdateChatTitle replaces the chat title. Last write wins.
func (s *Store) UpdateChatTitle(ctx context.Context, id, title string) error {
	chat, err := s.GetChat(ctx, id)
	if err != nil {
		return err
	}
	chat.Title = title
	return s.SaveChat(ctx, chat)
}

// DeleteChat removes a chat and all its dependent records, returning
// the deleted chat row.
func (s *Store) DeleteChat(ctx context.Context, id string) (*types.Chat, error) {
	chat, err := s.GetChat(ctx, id)
	if err != nil {
		return nil, err
	}

	for _, sub := range []string{"message", "vote", "stream"} {
		if err := s.kv.deleteAll(ctx, []string{sub, id}); err != nil {
			return nil, fmt.Errorf("delete chat %s records: %w", sub, err)
		}
	}
	if err := s.kv.delete(ctx, []string{"chat", id}); err != nil {
		return nil, err
	}
	return chat, nil
}

// ListChatsByUser returns the user's chats, newest first.
func (s *Store) ListChatsByUser(ctx context.Context, userID string) ([]*types.Chat, error) {
	var chats []*types.Chat
	err := s.kv.scan(ctx, []string{"chat"}, func(key string, data json.RawMessage) error {
		var chat types.Chat
		if err := json.Unmarshal(data, &chat); err != nil {
			return err
		}
		if chat.UserID == userID {
			chats = append(chats, &chat)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(chats, func(i, j int) bool {
		return chats[i].CreatedAt.After(chats[j].CreatedAt)
	})
	return chats, nil
}

// --- messages ---

// SaveMessages inserts or overwrites message rows.
func (s *Store) SaveMessages(ctx context.Context, messages []*types.Message) error {
	for _, msg := range messages {
		if msg.Attachments == nil {
			msg.Attachments = []types.FilePart{}
		}
		if err := s.kv.put(ctx, []string{"message", msg.ChatID, msg.ID}, msg); err != nil {
			return fmt.Errorf("save message %s: %w", msg.ID, err)
		}
	}
	return nil
}

// GetMessage loads a single message.
func (s *Store) GetMessage(ctx context.Context, chatID, messageID string) (*types.Message, error) {
	var msg types.Message
	if err := s.kv.get(ctx, []string{"message", chatID, messageID}, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// MessageExists reports whether a message row exists.
func (s *Store) MessageExists(ctx context.Context, chatID, messageID string) bool {
	return s.kv.exists([]string{"message", chatID, messageID})
}

// GetMessagesByChat returns a chat's messages in creation order.
func (s *Store) GetMessagesByChat(ctx context.Context, chatID string) ([]*types.Message, error) {
	var messages []*types.Message
	err := s.kv.scan(ctx, []string{"message", chatID}, func(key string, data json.RawMessage) error {
		var msg types.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			return err
		}
		messages = append(messages, &msg)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(messages, func(i, j int) bool {
		if messages[i].CreatedAt.Equal(messages[j].CreatedAt) {
			return messages[i].ID < messages[j].ID
		}
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
	return messages, nil
}

// DeleteMessage removes a single message row.
func (s *Store) DeleteMessage(ctx context.Context, chatID, messageID string) error {
	return s.kv.delete(ctx, []string{"message", chatID, messageID})
}

// UpdateMessageParts overwrites the parts of an existing message,
// leaving identity and timestamps untouched. This is the tool-approval
// reconciliation write.
func (s *Store) UpdateMessageParts(ctx context.Context, chatID, messageID string, parts []types.Part) error {
	msg, err := s.GetMessage(ctx, chatID, messageID)
	if err != nil {
		return err
	}
	msg.Parts = parts
	return s.kv.put(ctx, []string{"message", chatID, messageID}, msg)
}

// CountRecentUserMessages counts user-role messages the user submitted
// since the cutoff, across all their chats. Feeds the rate-limit
// policy.
func (s *Store) CountRecentUserMessages(ctx context.Context, userID string, since time.Time) (int, error) {
	chats, err := s.ListChatsByUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, chat := range chats {
		messages, err := s.GetMessagesByChat(ctx, chat.ID)
		if err != nil {
			return 0, err
		}
		for _, msg := range messages {
			if msg.Role == types.RoleUser && msg.CreatedAt.After(since) {
				count++
			}
		}
	}
	return count, nil
}

// --- votes ---

// SetVote upserts the vote for a (chat, message) pair.
func (s *Store) SetVote(ctx context.Context, vote *types.Vote) error {
	return s.kv.put(ctx, []string{"vote", vote.ChatID, vote.MessageID}, vote)
}

// GetVotesByChat returns all votes for a chat.
func (s *Store) GetVotesByChat(ctx context.Context, chatID string) ([]*types.Vote, error) {
	var votes []*types.Vote
	err := s.kv.scan(ctx, []string{"vote", chatID}, func(key string, data json.RawMessage) error {
		var vote types.Vote
		if err := json.Unmarshal(data, &vote); err != nil {
			return err
		}
		votes = append(votes, &vote)
		return nil
	})
	return votes, err
}

// --- stream ids ---

// SaveStreamID registers a resumable stream id for a chat.
func (s *Store) SaveStreamID(ctx context.Context, streamID, chatID string) error {
	rec := &types.StreamID{
		StreamID:  streamID,
		ChatID:    chatID,
		CreatedAt: time.Now().UTC(),
	}
	return s.kv.put(ctx, []string{"stream", chatID, streamID}, rec)
}

// LatestStreamID returns the most recently registered stream id for a
// chat, or ErrNotFound.
func (s *Store) LatestStreamID(ctx context.Context, chatID string) (string, error) {
	var latest *types.StreamID
	err := s.kv.scan(ctx, []string{"stream", chatID}, func(key string, data json.RawMessage) error {
		var rec types.StreamID
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		if latest == nil || rec.CreatedAt.After(latest.CreatedAt) {
			latest = &rec
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if latest == nil {
		return "", ErrNotFound
	}
	return latest.StreamID, nil
}

// --- documents ---

// SaveDocument persists a document row.
func (s *Store) SaveDocument(ctx context.Context, doc *types.Document) error {
	return s.kv.put(ctx, []string{"document", doc.ID}, doc)
}

// GetDocument loads a document by id.
func (s *Store) GetDocument(ctx context.Context, id string) (*types.Document, error) {
	var doc types.Document
	if err := s.kv.get(ctx, []string{"document", id}, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// SaveSuggestion persists a suggestion row attached to a document.
func (s *Store) SaveSuggestion(ctx context.Context, sug *types.Suggestion) error {
	return s.kv.put(ctx, []string{"suggestion", sug.DocumentID, sug.ID}, sug)
}

// GetSuggestionsByDocument returns a document's suggestions.
func (s *Store) GetSuggestionsByDocument(ctx context.Context, documentID string) ([]*types.Suggestion, error) {
	var sugs []*types.Suggestion
	err := s.kv.scan(ctx, []string{"suggestion", documentID}, func(key string, data json.RawMessage) error {
		var sug types.Suggestion
		if err := json.Unmarshal(data, &sug); err != nil {
			return err
		}
		sugs = append(sugs, &sug)
		return nil
	})
	return sugs, err
}
