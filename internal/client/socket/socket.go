package socket

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
	maxMessageSize = 64 << 10
	sendBufferSize = 256
)

var (
	ErrClosed    = errors.New("socket is closed")
	ErrQueueFull = errors.New("socket send queue is full")
)

type Logger interface {
	Info(msg string)
	Warn(msg string)
	Error(msg string)
}

// Handler receives the raw payload of one event frame.
type Handler func(payload json.RawMessage)

// Conn is a shared event socket. Consumers attach and detach listeners with On;
// the owner of the Conn decides when it is closed.
type Conn struct {
	ws     *websocket.Conn
	logger Logger
	send   chan []byte

	mu       sync.RWMutex
	handlers map[string]map[uint64]Handler
	nextID   uint64

	done      chan struct{}
	closeOnce sync.Once
}

func Dial(ctx context.Context, url, token string, logger Logger) (*Conn, error) {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to dial socket (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to dial socket: %w", err)
	}

	c := &Conn{
		ws:       ws,
		logger:   logger,
		send:     make(chan []byte, sendBufferSize),
		handlers: make(map[string]map[uint64]Handler),
		done:     make(chan struct{}),
	}

	go c.writePump()
	go c.readPump()

	return c, nil
}

// On registers h for event and returns a function that removes it. The
// returned function is idempotent.
func (c *Conn) On(event string, h Handler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID
	if c.handlers[event] == nil {
		c.handlers[event] = make(map[uint64]Handler)
	}
	c.handlers[event][id] = h

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		delete(c.handlers[event], id)
		if len(c.handlers[event]) == 0 {
			delete(c.handlers, event)
		}
	}
}

func (c *Conn) Emit(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	frame, err := json.Marshal(model.SocketEnvelope{Type: event, Payload: data})
	if err != nil {
		return fmt.Errorf("failed to marshal frame: %w", err)
	}

	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return ErrClosed
	default:
		return ErrQueueFull
	}
}

// Done is closed once the connection is gone, either by Close or because the
// peer dropped it.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		err = c.ws.Close()
	})
	return err
}

func (c *Conn) listeners(event string) []Handler {
	c.mu.RLock()
	defer c.mu.RUnlock()

	hs := make([]Handler, 0, len(c.handlers[event]))
	for _, h := range c.handlers[event] {
		hs = append(hs, h)
	}
	return hs
}

func (c *Conn) readPump() {
	defer c.Close() //nolint:errcheck // .

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn(fmt.Sprintf("socket closed unexpectedly: %v", err))
			}
			return
		}

		var frame model.SocketEnvelope
		if err := json.Unmarshal(data, &frame); err != nil {
			c.logger.Warn(fmt.Sprintf("failed to decode socket frame: %v", err))
			continue
		}

		for _, h := range c.listeners(frame.Type) {
			h(frame.Payload)
		}
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Error(fmt.Sprintf("failed to write socket frame: %v", err))
				_ = c.Close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}
