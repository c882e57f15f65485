package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrMissingMessageID = errors.New("message has no id")

type MessageList []Message

type Message struct {
	ID         string     `db:"id" json:"id"`
	ChatID     string     `db:"chat_id" json:"chat_id"`
	SenderID   string     `db:"sender_id" json:"sender_id"`
	SenderRole string     `db:"sender_role" json:"sender_role,omitempty"`
	Content    string     `db:"content" json:"content"`
	Read       bool       `db:"is_read" json:"is_read"`
	CreatedAt  *time.Time `db:"created_at" json:"created_at,omitempty"`
}

// wireMessage accepts every field spelling the chat backends have produced.
// Both the legacy "read" flag and the current "isRead"/"is_read" flags may be
// present on the same payload.
type wireMessage struct {
	ID             string     `json:"id"`
	ChatID         string     `json:"chat_id"`
	ChatIDCamel    string     `json:"chatId"`
	ConversationID string     `json:"conversation_id"`
	SenderID       string     `json:"sender_id"`
	SenderIDCamel  string     `json:"senderId"`
	SenderRole     string     `json:"sender_role"`
	SenderRoleCaml string     `json:"senderRole"`
	Content        string     `json:"content"`
	Read           *bool      `json:"read"`
	IsRead         *bool      `json:"isRead"`
	IsReadSnake    *bool      `json:"is_read"`
	CreatedAt      *time.Time `json:"created_at"`
	CreatedAtCamel *time.Time `json:"createdAt"`
}

func (w wireMessage) normalize() Message {
	return Message{
		ID:         w.ID,
		ChatID:     firstNonEmpty(w.ChatID, w.ChatIDCamel, w.ConversationID),
		SenderID:   firstNonEmpty(w.SenderID, w.SenderIDCamel),
		SenderRole: firstNonEmpty(w.SenderRole, w.SenderRoleCaml),
		Content:    w.Content,
		Read:       isSet(w.Read) || isSet(w.IsRead) || isSet(w.IsReadSnake),
		CreatedAt:  firstTime(w.CreatedAt, w.CreatedAtCamel),
	}
}

// DecodeMessage normalizes a single server payload into a Message.
func DecodeMessage(raw []byte) (Message, error) {
	var w wireMessage
	if err := json.Unmarshal(raw, &w); err != nil {
		return Message{}, fmt.Errorf("failed to decode message: %w", err)
	}
	if w.ID == "" {
		return Message{}, ErrMissingMessageID
	}
	return w.normalize(), nil
}

// DecodeMessageList normalizes a server message array. Entries without an id
// are dropped.
func DecodeMessageList(raw []byte) (MessageList, error) {
	var ws []wireMessage
	if err := json.Unmarshal(raw, &ws); err != nil {
		return nil, fmt.Errorf("failed to decode message list: %w", err)
	}

	messages := make(MessageList, 0, len(ws))
	for _, w := range ws {
		if w.ID == "" {
			continue
		}
		messages = append(messages, w.normalize())
	}
	return messages, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstTime(values ...*time.Time) *time.Time {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func isSet(b *bool) bool {
	return b != nil && *b
}
