package notify

import (
	"encoding/json"
	"sync"

	"github.com/bassista/go_autosave/internal/autosave"
	"github.com/bassista/go_autosave/internal/logger"
)

const defaultBuffer = 32

// Message is one scheduler event delivered to a session's subscribers.
type Message struct {
	SessionID string `json:"sessionId"`
	autosave.Event
}

// Subscriber receives encoded messages for one session.
type Subscriber struct {
	SessionID string
	send      chan []byte
	once      sync.Once
}

// C returns the channel messages are delivered on. It is closed when the
// subscription ends.
func (s *Subscriber) C() <-chan []byte {
	return s.send
}

func (s *Subscriber) close() {
	s.once.Do(func() { close(s.send) })
}

// Hub fans scheduler events out to websocket subscribers, keyed by session id.
// Publish never blocks: a subscriber whose buffer is full is dropped.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscriber]struct{}
	buffer int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{
		subs:   make(map[string]map[*Subscriber]struct{}),
		buffer: buffer,
	}
}

func (h *Hub) Subscribe(sessionID string) *Subscriber {
	sub := &Subscriber{SessionID: sessionID, send: make(chan []byte, h.buffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[sessionID]
	if !ok {
		set = make(map[*Subscriber]struct{})
		h.subs[sessionID] = set
	}
	set[sub] = struct{}{}
	logger.WithSession("notify", sessionID).Debugf("subscriber added (%d total)", len(set))
	return sub
}

// Unsubscribe removes the subscriber and closes its channel. Safe to call twice.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	h.removeLocked(sub)
	h.mu.Unlock()
	sub.close()
}

func (h *Hub) removeLocked(sub *Subscriber) {
	set, ok := h.subs[sub.SessionID]
	if !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, sub.SessionID)
	}
}

// Publish delivers ev to every subscriber of the session.
func (h *Hub) Publish(sessionID string, ev autosave.Event) {
	data, err := json.Marshal(Message{SessionID: sessionID, Event: ev})
	if err != nil {
		logger.WithSession("notify", sessionID).Errorf("encode event: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[sessionID] {
		select {
		case sub.send <- data:
		default:
			logger.WithSession("notify", sessionID).Warn("dropping slow subscriber")
			h.removeLocked(sub)
			sub.close()
		}
	}
}

// CloseSession ends every subscription of the session.
func (h *Hub) CloseSession(sessionID string) {
	h.mu.Lock()
	set := h.subs[sessionID]
	delete(h.subs, sessionID)
	h.mu.Unlock()

	for sub := range set {
		sub.close()
	}
}

// Subscribers returns the number of active subscribers of the session.
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[sessionID])
}
