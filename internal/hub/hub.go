package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/turfbook/chat-service/internal/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 256

	directionIn  = "in"
	directionOut = "out"
)

var ErrEmptyChat = errors.New("chat id is empty")

type client struct {
	conn   *websocket.Conn
	userID string
	send   chan []byte

	// guarded by Hub.mu
	rooms map[string]struct{}
}

// Hub fans events out to the sockets that joined a chat room.
type Hub struct {
	upgrader websocket.Upgrader
	logger   Logger
	metrics  Metrics

	mu    sync.RWMutex
	rooms map[string]map[*client]struct{}
}

func New(logger Logger, metrics Metrics) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger:  logger,
		metrics: metrics,
		rooms:   make(map[string]map[*client]struct{}),
	}
}

// Serve upgrades the request and blocks until the socket is gone.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	c := &client{
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, sendBufferSize),
		rooms:  make(map[string]struct{}),
	}

	h.metrics.SocketOpened()
	h.logger.Info(fmt.Sprintf("socket opened for user %s", userID))

	done := make(chan struct{})
	defer func() {
		h.leaveAll(c)
		close(done)
		_ = conn.Close()
		h.metrics.SocketClosed()
		h.logger.Info(fmt.Sprintf("socket closed for user %s", userID))
	}()

	go h.writePump(c, done)
	h.readPump(c)

	return nil
}

// Publish delivers a stored message to every socket in its chat room.
func (h *Hub) Publish(_ context.Context, chatID string, msg model.Message) error {
	if chatID == "" {
		return ErrEmptyChat
	}

	frame, err := encodeFrame(model.EventReceiveMessage, msg)
	if err != nil {
		return err
	}

	h.broadcast(chatID, frame, model.EventReceiveMessage, nil)
	return nil
}

// RoomSize reports how many sockets joined chatID.
func (h *Hub) RoomSize(chatID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.rooms[chatID])
}

func (h *Hub) readPump(c *client) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Warn(fmt.Sprintf("socket closed unexpectedly: %v", err))
			}
			return
		}

		var frame model.SocketEnvelope
		if err := json.Unmarshal(data, &frame); err != nil {
			h.logger.Warn(fmt.Sprintf("failed to decode frame from user %s: %v", c.userID, err))
			continue
		}
		h.metrics.Frame(directionIn, frame.Type)

		h.handleFrame(c, frame)
	}
}

func (h *Hub) handleFrame(c *client, frame model.SocketEnvelope) {
	switch frame.Type {
	case model.EventJoinChat, model.EventLeaveChat:
		var chatID string
		if err := json.Unmarshal(frame.Payload, &chatID); err != nil || chatID == "" {
			h.logger.Warn(fmt.Sprintf("invalid %s payload from user %s", frame.Type, c.userID))
			return
		}
		if frame.Type == model.EventJoinChat {
			h.join(c, chatID)
		} else {
			h.leave(c, chatID)
		}

	case model.EventTyping:
		var ev model.TypingEvent
		if err := json.Unmarshal(frame.Payload, &ev); err != nil || ev.ChatID == "" {
			h.logger.Warn(fmt.Sprintf("invalid typing payload from user %s", c.userID))
			return
		}
		if !h.inRoom(c, ev.ChatID) {
			return
		}

		// the sender is whoever owns the socket, not what the payload says
		out, err := encodeFrame(model.EventTyping, model.TypingEvent{ChatID: ev.ChatID, UserID: c.userID})
		if err != nil {
			h.logger.Error(err.Error())
			return
		}
		h.broadcast(ev.ChatID, out, model.EventTyping, c)

	default:
		h.logger.Warn(fmt.Sprintf("unknown event %q from user %s", frame.Type, c.userID))
	}
}

func (h *Hub) join(c *client, chatID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[chatID] == nil {
		h.rooms[chatID] = make(map[*client]struct{})
	}
	h.rooms[chatID][c] = struct{}{}
	c.rooms[chatID] = struct{}{}
}

func (h *Hub) leave(c *client, chatID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.leaveLocked(c, chatID)
}

func (h *Hub) leaveAll(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for chatID := range c.rooms {
		h.leaveLocked(c, chatID)
	}
}

func (h *Hub) leaveLocked(c *client, chatID string) {
	delete(c.rooms, chatID)
	if members, ok := h.rooms[chatID]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, chatID)
		}
	}
}

func (h *Hub) inRoom(c *client, chatID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, ok := c.rooms[chatID]
	return ok
}

// broadcast queues frame for every member of chatID except skip. A member
// whose queue is full misses the frame; polling catches it up.
func (h *Hub) broadcast(chatID string, frame []byte, event string, skip *client) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.rooms[chatID] {
		if c == skip {
			continue
		}
		select {
		case c.send <- frame:
			h.metrics.Frame(directionOut, event)
		default:
			h.logger.Warn(fmt.Sprintf("send queue full for user %s, dropping %s", c.userID, event))
		}
	}
}

func (h *Hub) writePump(c *client, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				h.logger.Error(fmt.Sprintf("failed to write frame to user %s: %v", c.userID, err))
				_ = c.conn.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = c.conn.Close()
				return
			}
		case <-done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}

func encodeFrame(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", event, err)
	}

	frame, err := json.Marshal(model.SocketEnvelope{Type: event, Payload: data})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s frame: %w", event, err)
	}
	return frame, nil
}
