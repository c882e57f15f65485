//go:generate mockgen -destination=mock_contract_test.go -package=${GOPACKAGE} -source=contract.go
package rest

import (
	"context"
	"net/http"

	"github.com/turfbook/chat-service/internal/model"
)

type DBRepo interface {
	SaveMessage(ctx context.Context, message *model.Message) error
	GetChatMessages(ctx context.Context, chatID string, limit uint64) (model.MessageList, error)
	MarkRead(ctx context.Context, chatID, readerID string) (int64, error)
	GetUserConversations(ctx context.Context, userID string) ([]model.ConversationPreview, error)
}

type Publisher interface {
	Publish(ctx context.Context, chatID string, msg model.Message) error
}

type SocketHub interface {
	Serve(w http.ResponseWriter, r *http.Request, userID string) error
}

type Validator interface {
	ValidateSendMessage(req *model.SendMessageRequest, senderID string) error
	ValidateChatID(chatID string) error
}

type Metrics interface {
	MessageStored()
}
