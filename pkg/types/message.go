package types

import (
	"encoding/json"
	"time"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is a single turn element in a chat. Parts is append-only
// while an assistant message streams and frozen once persisted; the
// only in-place mutation is the tool-approval reconciliation, which
// replaces the parts of an already-known message wholesale.
type Message struct {
	ID          string     `json:"id"`
	ChatID      string     `json:"chatId"`
	Role        string     `json:"role"`
	Parts       []Part     `json:"parts"`
	Attachments []FilePart `json:"attachments"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// UnmarshalJSON decodes the polymorphic parts sequence by type tag.
func (m *Message) UnmarshalJSON(data []byte) error {
	type alias Message
	aux := struct {
		*alias
		Parts json.RawMessage `json:"parts"`
	}{alias: (*alias)(m)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if len(aux.Parts) > 0 {
		parts, err := UnmarshalParts(aux.Parts)
		if err != nil {
			return err
		}
		m.Parts = parts
	}
	if m.Attachments == nil {
		m.Attachments = []FilePart{}
	}
	return nil
}

// Text concatenates the message's text parts in order.
func (m *Message) Text() string {
	var out string
	for _, p := range m.Parts {
		if tp, ok := p.(*TextPart); ok {
			out += tp.Text
		}
	}
	return out
}

// ToolParts returns the message's tool parts in order.
func (m *Message) ToolParts() []*ToolPart {
	var out []*ToolPart
	for _, p := range m.Parts {
		if tp, ok := p.(*ToolPart); ok {
			out = append(out, tp)
		}
	}
	return out
}

// Clone returns a copy of the message with a freshly allocated parts
// slice. The parts themselves are shared.
func (m *Message) Clone() *Message {
	out := *m
	out.Parts = append([]Part(nil), m.Parts...)
	out.Attachments = append([]FilePart(nil), m.Attachments...)
	return &out
}
