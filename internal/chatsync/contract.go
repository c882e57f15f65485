//go:generate mockgen -destination=mock_contract_test.go -package=${GOPACKAGE} -source=contract.go
package chatsync

import (
	"context"

	"github.com/turfbook/chat-service/internal/client/socket"
	"github.com/turfbook/chat-service/internal/model"
)

type MessageAPI interface {
	FetchMessages(ctx context.Context, chatID string) (model.MessageList, error)
	SendMessage(ctx context.Context, chatID, content string) (*model.Message, error)
}

// PushChannel is a shared event connection. The session only attaches and
// detaches listeners; it never opens or closes the connection.
type PushChannel interface {
	On(event string, h socket.Handler) func()
	Emit(event string, payload any) error
}

type Logger interface {
	Info(msg string)
	Warn(msg string)
	Error(msg string)
}

type Metrics interface {
	ObserveFetch(kind, outcome string)
	ObservePush(outcome string)
	ObserveSend(outcome string)
}
