package chatsync

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/turfbook/chat-service/internal/model"
)

const (
	FetchInitial   = "initial"
	FetchPoll      = "poll"
	FetchReconcile = "reconcile"

	OutcomeOK        = "ok"
	OutcomeError     = "error"
	OutcomeDiscarded = "discarded"
	OutcomeDuplicate = "duplicate"
	OutcomeIgnored   = "ignored"
	OutcomeInvalid   = "invalid"
)

type State int

const (
	StateInactive State = iota
	StateLoading
	StateActive
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateActive:
		return "active"
	default:
		return "inactive"
	}
}

// Identity is the signed-in participant the session acts for.
type Identity struct {
	UserID string
	Role   string
}

type Snapshot struct {
	ChatID   string
	State    State
	Messages []model.Message
	Loading  bool
	Err      string
	Typing   bool
}

// Session keeps the messages of one active conversation in sync with the
// server through the push channel and a polling fallback. Both feed the same
// store; every delivery carries the generation it was started under and is
// dropped once the conversation has been switched or torn down.
type Session struct {
	api      MessageAPI
	push     PushChannel
	identity Identity

	pollInterval   time.Duration
	typingTimeout  time.Duration
	requestTimeout time.Duration
	logger         Logger
	metrics        Metrics
	typingLimiter  *rate.Limiter

	mu          sync.Mutex
	gen         uint64
	chatID      string
	state       State
	store       *Store
	loading     bool
	lastErr     string
	typing      bool
	typingSeq   uint64
	typingTimer *time.Timer
	cancel      context.CancelFunc
	offs        []func()
	closed      bool

	wg      sync.WaitGroup
	updates chan struct{}
}

// New builds an inactive session. push may be nil, in which case the session
// relies on polling alone.
func New(api MessageAPI, push PushChannel, identity Identity, opts ...Option) *Session {
	s := &Session{
		api:            api,
		push:           push,
		identity:       identity,
		pollInterval:   DefaultPollInterval,
		typingTimeout:  DefaultTypingTimeout,
		requestTimeout: DefaultRequestTimeout,
		logger:         nopLogger{},
		metrics:        nopMetrics{},
		updates:        make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.typingLimiter = rate.NewLimiter(rate.Every(s.typingTimeout/2), 1)

	return s
}

// Activate switches the session to chatID. An empty id deactivates it and
// activating the current id again does nothing.
func (s *Session) Activate(chatID string) {
	s.mu.Lock()
	if s.closed || chatID == s.chatID {
		s.mu.Unlock()
		return
	}

	s.teardownLocked()
	if chatID == "" {
		s.mu.Unlock()
		s.notify()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.gen++
	gen := s.gen
	s.chatID = chatID
	s.state = StateLoading
	s.store = NewStore()
	s.loading = true
	s.cancel = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.Info(fmt.Sprintf("activating chat %s", chatID))
	s.notify()

	go s.run(ctx, gen, chatID)
}

func (s *Session) Deactivate() {
	s.Activate("")
}

// Close tears the session down and waits for its background work to stop.
func (s *Session) Close() {
	s.mu.Lock()
	s.teardownLocked()
	s.closed = true
	s.mu.Unlock()

	s.wg.Wait()
}

// Updates signals that the snapshot changed. Signals are coalesced.
func (s *Session) Updates() <-chan struct{} {
	return s.updates
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ChatID:  s.chatID,
		State:   s.state,
		Loading: s.loading,
		Err:     s.lastErr,
		Typing:  s.typing,
	}
	if s.store != nil {
		snap.Messages = s.store.Messages()
	}
	return snap
}

// NotifyTyping tells the other participant that the user is typing. Calls are
// throttled to half the typing timeout.
func (s *Session) NotifyTyping() error {
	s.mu.Lock()
	chatID, active := s.chatID, s.state == StateActive
	s.mu.Unlock()

	if s.push == nil || !active || s.identity.UserID == "" {
		return nil
	}
	if !s.typingLimiter.Allow() {
		return nil
	}

	if err := s.push.Emit(model.EventTyping, model.TypingEvent{ChatID: chatID, UserID: s.identity.UserID}); err != nil {
		return fmt.Errorf("failed to emit typing: %w", err)
	}
	return nil
}

func (s *Session) run(ctx context.Context, gen uint64, chatID string) {
	defer s.wg.Done()

	s.refresh(ctx, gen, chatID, FetchInitial)
	if !s.attach(gen, chatID) {
		return
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refresh(ctx, gen, chatID, FetchPoll)
		}
	}
}

// refresh fetches the full conversation and replaces the store with it. Only
// the initial fetch touches the loading flag.
func (s *Session) refresh(ctx context.Context, gen uint64, chatID, kind string) {
	reqCtx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	messages, err := s.api.FetchMessages(reqCtx, chatID)

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		s.metrics.ObserveFetch(kind, OutcomeDiscarded)
		return
	}

	if kind == FetchInitial {
		s.loading = false
	}

	if err != nil {
		s.lastErr = fmt.Sprintf("failed to load messages: %v", err)
		s.mu.Unlock()

		s.logger.Error(fmt.Sprintf("failed to fetch messages for chat %s (%s): %v", chatID, kind, err))
		s.metrics.ObserveFetch(kind, OutcomeError)
		s.notify()
		return
	}

	s.ingestLocked(messages, true)
	s.lastErr = ""
	s.mu.Unlock()

	s.metrics.ObserveFetch(kind, OutcomeOK)
	s.notify()
}

// attach subscribes to the push channel and moves the session to active.
func (s *Session) attach(gen uint64, chatID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		return false
	}

	if s.push != nil {
		s.offs = append(s.offs,
			s.push.On(model.EventReceiveMessage, func(payload json.RawMessage) {
				s.onPushMessage(gen, chatID, payload)
			}),
			s.push.On(model.EventTyping, func(payload json.RawMessage) {
				s.onTyping(gen, chatID, payload)
			}),
		)

		if err := s.push.Emit(model.EventJoinChat, chatID); err != nil {
			s.logger.Warn(fmt.Sprintf("failed to join chat %s, falling back to polling: %v", chatID, err))
		}
	}

	s.state = StateActive
	s.notify()

	return true
}

func (s *Session) onPushMessage(gen uint64, chatID string, payload json.RawMessage) {
	msg, err := model.DecodeMessage(payload)
	if err != nil {
		s.logger.Warn(fmt.Sprintf("failed to decode pushed message: %v", err))
		s.metrics.ObservePush(OutcomeInvalid)
		return
	}

	// handlers can still fire for a chat whose listener is being detached
	if msg.ChatID != chatID {
		s.metrics.ObservePush(OutcomeIgnored)
		return
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		s.metrics.ObservePush(OutcomeDiscarded)
		return
	}
	changed := s.ingestLocked(model.MessageList{msg}, false)
	s.mu.Unlock()

	if !changed {
		s.metrics.ObservePush(OutcomeDuplicate)
		return
	}
	s.metrics.ObservePush(OutcomeOK)
	s.notify()
}

// ingestLocked is the only place the store is mutated. replace applies a full
// server snapshot, otherwise messages are appended unless already present.
func (s *Session) ingestLocked(messages model.MessageList, replace bool) bool {
	if replace {
		s.store.ReplaceAll(messages)
		return true
	}

	changed := false
	for _, msg := range messages {
		if s.store.AppendIfAbsent(msg) {
			changed = true
		}
	}
	return changed
}

func (s *Session) onTyping(gen uint64, chatID string, payload json.RawMessage) {
	var ev model.TypingEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		s.logger.Warn(fmt.Sprintf("failed to decode typing event: %v", err))
		return
	}
	if ev.ChatID != chatID || ev.UserID == "" || ev.UserID == s.identity.UserID {
		return
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}

	s.typing = true
	s.typingSeq++
	seq := s.typingSeq
	if s.typingTimer != nil {
		s.typingTimer.Stop()
	}
	s.typingTimer = time.AfterFunc(s.typingTimeout, func() {
		s.clearTyping(gen, seq)
	})
	s.mu.Unlock()

	s.notify()
}

func (s *Session) clearTyping(gen, seq uint64) {
	s.mu.Lock()
	if gen != s.gen || seq != s.typingSeq || !s.typing {
		s.mu.Unlock()
		return
	}
	s.typing = false
	s.typingTimer = nil
	s.mu.Unlock()

	s.notify()
}

func (s *Session) fail(gen uint64, msg string) {
	s.mu.Lock()
	if gen == s.gen {
		s.lastErr = msg
	}
	s.mu.Unlock()

	s.notify()
}

// teardownLocked detaches push listeners, stops polling and the typing timer,
// and retires the current generation so late results are dropped.
func (s *Session) teardownLocked() {
	s.gen++

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	for _, off := range s.offs {
		off()
	}
	s.offs = nil

	if s.typingTimer != nil {
		s.typingTimer.Stop()
		s.typingTimer = nil
	}

	if s.chatID != "" {
		s.logger.Info(fmt.Sprintf("deactivating chat %s", s.chatID))
	}

	s.chatID = ""
	s.state = StateInactive
	s.store = nil
	s.loading = false
	s.lastErr = ""
	s.typing = false
}

func (s *Session) notify() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}
