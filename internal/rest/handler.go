package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	logger_lib "github.com/s21platform/logger-lib"

	"github.com/turfbook/chat-service/internal/config"
	"github.com/turfbook/chat-service/internal/model"
)

type Handler struct {
	repository DBRepo
	publisher  Publisher
	socketHub  SocketHub
	validator  Validator
	metrics    Metrics
}

func New(
	repo DBRepo,
	publisher Publisher,
	socketHub SocketHub,
	validator Validator,
	metrics Metrics,
) *Handler {
	return &Handler{
		repository: repo,
		publisher:  publisher,
		socketHub:  socketHub,
		validator:  validator,
		metrics:    metrics,
	}
}

func (h *Handler) GetConversations(w http.ResponseWriter, r *http.Request) {
	logger := logger_lib.FromContext(r.Context(), config.KeyLogger)
	logger.AddFuncName("GetConversations")

	requesterID, ok := r.Context().Value(config.KeyUUID).(string)
	if !ok {
		logger.Error("failed to get requester id")
		h.writeError(w, "failed to get requester id", http.StatusInternalServerError)
		return
	}

	previews, err := h.repository.GetUserConversations(r.Context(), requesterID)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to get conversations: %v", err))
		h.writeError(w, fmt.Sprintf("failed to get conversations: %v", err), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, previews, http.StatusOK)
}

func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request, chatID string) {
	logger := logger_lib.FromContext(r.Context(), config.KeyLogger)
	logger.AddFuncName("GetMessages")

	if err := h.validator.ValidateChatID(chatID); err != nil {
		logger.Error(fmt.Sprintf("chat id validation failed: %v", err))
		h.writeError(w, fmt.Sprintf("chat id validation failed: %v", err), http.StatusBadRequest)
		return
	}

	var limit uint64
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			logger.Error(fmt.Sprintf("failed to parse limit: %v", err))
			h.writeError(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	messages, err := h.repository.GetChatMessages(r.Context(), chatID, limit)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to fetch messages: %v", err))
		h.writeError(w, fmt.Sprintf("failed to fetch messages: %v", err), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, messages, http.StatusOK)
}

func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request, chatID string) {
	logger := logger_lib.FromContext(r.Context(), config.KeyLogger)
	logger.AddFuncName("SendMessage")

	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Error(fmt.Sprintf("failed to decode request: %v", err))
		h.writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	senderID, ok := r.Context().Value(config.KeyUUID).(string)
	if !ok {
		logger.Error("failed to get sender ID")
		h.writeError(w, "failed to get sender ID", http.StatusInternalServerError)
		return
	}
	senderRole, _ := r.Context().Value(config.KeyRole).(string)

	if err := h.validator.ValidateChatID(chatID); err != nil {
		logger.Error(fmt.Sprintf("chat id validation failed: %v", err))
		h.writeError(w, fmt.Sprintf("chat id validation failed: %v", err), http.StatusBadRequest)
		return
	}

	if err := h.validator.ValidateSendMessage(&req, senderID); err != nil {
		logger.Error(fmt.Sprintf("message validation failed: %v", err))
		h.writeError(w, fmt.Sprintf("message validation failed: %v", err), http.StatusBadRequest)
		return
	}

	createdAt := time.Now().UTC().Truncate(time.Microsecond)
	message := model.Message{
		ID:         uuid.New().String(),
		ChatID:     chatID,
		SenderID:   senderID,
		SenderRole: senderRole,
		Content:    strings.TrimSpace(req.Content),
		CreatedAt:  &createdAt,
	}

	if err := h.repository.SaveMessage(r.Context(), &message); err != nil {
		logger.Error(fmt.Sprintf("failed to save message: %v", err))
		h.writeError(w, fmt.Sprintf("failed to send message: %v", err), http.StatusInternalServerError)
		return
	}
	h.metrics.MessageStored()

	// clients that miss the push pick the message up on their next poll
	if err := h.publisher.Publish(r.Context(), chatID, message); err != nil {
		logger.Error(fmt.Sprintf("failed to publish message to chat: %v", err))
	}

	h.writeJSON(w, message, http.StatusCreated)
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request, chatID string) {
	logger := logger_lib.FromContext(r.Context(), config.KeyLogger)
	logger.AddFuncName("MarkRead")

	readerID, ok := r.Context().Value(config.KeyUUID).(string)
	if !ok {
		logger.Error("failed to get reader ID")
		h.writeError(w, "failed to get reader ID", http.StatusInternalServerError)
		return
	}

	if err := h.validator.ValidateChatID(chatID); err != nil {
		logger.Error(fmt.Sprintf("chat id validation failed: %v", err))
		h.writeError(w, fmt.Sprintf("chat id validation failed: %v", err), http.StatusBadRequest)
		return
	}

	updated, err := h.repository.MarkRead(r.Context(), chatID, readerID)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to mark messages read: %v", err))
		h.writeError(w, fmt.Sprintf("failed to mark messages read: %v", err), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, model.MarkReadResponse{Updated: updated}, http.StatusOK)
}

func (h *Handler) ServeSocket(w http.ResponseWriter, r *http.Request) {
	logger := logger_lib.FromContext(r.Context(), config.KeyLogger)
	logger.AddFuncName("ServeSocket")

	userID, ok := r.Context().Value(config.KeyUUID).(string)
	if !ok {
		logger.Error("failed to get user UUID")
		h.writeError(w, "failed to get user UUID", http.StatusInternalServerError)
		return
	}

	// the upgrader has already answered the request when this fails
	if err := h.socketHub.Serve(w, r, userID); err != nil {
		logger.Error(fmt.Sprintf("failed to serve socket: %v", err))
	}
}

// ----------------------------- helpers -----------------------------

func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, statusCode int) {
	h.writeJSON(w, model.ErrorResponse{Error: message}, statusCode)
}
