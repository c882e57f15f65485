package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/oapi-codegen/runtime"

	"github.com/turfbook/chat-service/internal/model"
)

const maxErrorBody = 4 << 10

// StatusError is returned for any non-2xx answer from the chat API.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status code: %d", e.Code)
	}
	return fmt.Sprintf("unexpected status code: %d: %s", e.Code, e.Message)
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func New(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

func (c *Client) FetchMessages(ctx context.Context, chatID string) (model.MessageList, error) {
	path, err := chatPath(chatID, "messages")
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	messages, err := model.DecodeMessageList(body)
	if err != nil {
		return nil, err
	}

	return messages, nil
}

func (c *Client) SendMessage(ctx context.Context, chatID, content string) (*model.Message, error) {
	path, err := chatPath(chatID, "message")
	if err != nil {
		return nil, err
	}

	jsonData, err := json.Marshal(model.SendMessageRequest{Content: content})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	msg, err := model.DecodeMessage(body)
	if err != nil {
		// the message is stored but the body is unusable; the result carries
		// no id and callers reconcile by refetching
		return &model.Message{ChatID: chatID, Content: content}, nil //nolint:nilerr // .
	}

	return &msg, nil
}

// FetchConversations lists the chats the caller has written in.
func (c *Client) FetchConversations(ctx context.Context) ([]model.ConversationPreview, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/chat", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var previews []model.ConversationPreview
	if err := json.Unmarshal(body, &previews); err != nil {
		return nil, fmt.Errorf("failed to decode conversations: %w", err)
	}

	return previews, nil
}

func (c *Client) MarkRead(ctx context.Context, chatID string) (int64, error) {
	path, err := chatPath(chatID, "read")
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		return 0, err
	}

	var resp model.MarkReadResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("failed to decode mark read response: %w", err)
	}

	return resp.Updated, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // .

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, statusError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return body, nil
}

func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var apiErr model.ErrorResponse
	if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Error != "" {
		return &StatusError{Code: resp.StatusCode, Message: apiErr.Error}
	}

	return &StatusError{Code: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
}

func chatPath(chatID, tail string) (string, error) {
	escaped, err := runtime.StyleParamWithLocation("simple", false, "chatId", runtime.ParamLocationPath, chatID)
	if err != nil {
		return "", fmt.Errorf("failed to build chat path: %w", err)
	}
	return "/chat/" + escaped + "/" + tail, nil
}
