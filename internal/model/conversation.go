package model

import "time"

const (
	RoleOwner  = "owner"
	RolePlayer = "player"
	RoleAdmin  = "admin"
)

// ConversationPreview is the listing summary of a chat. The chat view itself
// never reads it.
type ConversationPreview struct {
	ChatID               string     `db:"chat_id" json:"chat_id"`
	LastMessageContent   *string    `db:"last_message_content" json:"last_message_content,omitempty"`
	LastMessageTimestamp *time.Time `db:"last_message_timestamp" json:"last_message_timestamp,omitempty"`
}

type SendMessageRequest struct {
	Content string `json:"content"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type MarkReadResponse struct {
	Updated int64 `json:"updated"`
}
