package chatsync

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoConversation = errors.New("no active conversation")
	ErrEmptyContent   = errors.New("message content is empty")
	ErrMissingSender  = errors.New("sender identity is missing")
)

// Send posts text to the active conversation and then refetches it, so the
// store only ever holds server-assigned messages. Validation errors are
// returned before any request is made. Nothing is retried.
func (s *Session) Send(ctx context.Context, text string) error {
	content := strings.TrimSpace(text)

	s.mu.Lock()
	chatID, gen := s.chatID, s.gen
	s.mu.Unlock()

	if err := s.validateSend(chatID, content); err != nil {
		s.fail(gen, err.Error())
		s.metrics.ObserveSend(OutcomeInvalid)
		return err
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	if _, err := s.api.SendMessage(reqCtx, chatID, content); err != nil {
		s.logger.Error(fmt.Sprintf("failed to send message to chat %s: %v", chatID, err))
		s.fail(gen, fmt.Sprintf("failed to send message: %v", err))
		s.metrics.ObserveSend(OutcomeError)
		return fmt.Errorf("failed to send message: %w", err)
	}
	s.metrics.ObserveSend(OutcomeOK)

	s.refresh(ctx, gen, chatID, FetchReconcile)

	return nil
}

func (s *Session) validateSend(chatID, content string) error {
	switch {
	case chatID == "":
		return ErrNoConversation
	case s.identity.UserID == "":
		return ErrMissingSender
	case content == "":
		return ErrEmptyContent
	}
	return nil
}
