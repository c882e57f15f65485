package validator

import (
	"fmt"
	"strings"

	"github.com/turfbook/chat-service/internal/model"
)

const maxContentLength = 1000

type Validator struct{}

func New() *Validator {
	return &Validator{}
}

func (v *Validator) ValidateSendMessage(req *model.SendMessageRequest, senderID string) error {
	if strings.TrimSpace(senderID) == "" {
		return fmt.Errorf("sender is required")
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		return fmt.Errorf("content cannot be empty")
	}

	if len([]rune(content)) > maxContentLength {
		return fmt.Errorf("content exceeds maximum length of %d characters", maxContentLength)
	}

	return nil
}

func (v *Validator) ValidateChatID(chatID string) error {
	if strings.TrimSpace(chatID) == "" {
		return fmt.Errorf("chat id is required")
	}

	if len(chatID) > 128 {
		return fmt.Errorf("chat id is too long")
	}

	return nil
}
