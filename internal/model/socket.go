package model

import (
	"encoding/json"

	"github.com/golang-jwt/jwt/v5"
)

const (
	EventJoinChat       = "join_chat"
	EventLeaveChat      = "leave_chat"
	EventReceiveMessage = "receive_message"
	EventTyping         = "typing"
)

// SocketEnvelope is a single frame on the push socket in either direction.
type SocketEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type TypingEvent struct {
	ChatID string `json:"chatId"`
	UserID string `json:"userId"`
}

type AccessClaims struct {
	jwt.RegisteredClaims

	Role string `json:"role,omitempty"`
}
