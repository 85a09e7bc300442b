// Copyright 2026 The SecureFlow Authors
// Licensed under the EUPL-1.2

// Package sse fans incident events out to connected dashboards.
package sse

import (
	"sync"

	"github.com/samber/lo"
)

// subscriberBuffer bounds the per-connection event queue. A dashboard
// that stops reading loses events instead of stalling the publisher.
const subscriberBuffer = 10

type subscriber struct {
	ch     chan string
	userID int64
}

// Hub tracks open event streams. Streams are keyed by session ID so
// multiple tabs of one browser share a key, and each user may hold
// several sessions (different browsers or devices).
type Hub struct {
	mu       sync.RWMutex
	bySess   map[string][]subscriber
	sessions map[int64][]string // user ID -> session IDs
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		bySess:   make(map[string][]subscriber),
		sessions: make(map[int64][]string),
	}
}

// Register opens a new event stream for the session and returns the
// channel events will arrive on.
func (h *Hub) Register(sessionID string, userID int64) chan string {
	ch := make(chan string, subscriberBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()

	h.bySess[sessionID] = append(h.bySess[sessionID], subscriber{ch: ch, userID: userID})
	if !lo.Contains(h.sessions[userID], sessionID) {
		h.sessions[userID] = append(h.sessions[userID], sessionID)
	}
	return ch
}

// Unregister closes the stream and drops the subscriber. The last
// stream of a session also releases the user's session mapping.
func (h *Hub) Unregister(sessionID string, userID int64, ch chan string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.bySess[sessionID] = lo.Filter(h.bySess[sessionID], func(s subscriber, _ int) bool {
		return s.ch != ch
	})
	if len(h.bySess[sessionID]) == 0 {
		delete(h.bySess, sessionID)
		h.sessions[userID] = lo.Filter(h.sessions[userID], func(id string, _ int) bool {
			return id != sessionID
		})
		if len(h.sessions[userID]) == 0 {
			delete(h.sessions, userID)
		}
	}

	close(ch)
}

// Broadcast delivers the message to every open stream.
func (h *Hub) Broadcast(message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, subs := range h.bySess {
		deliver(subs, message)
	}
}

// SendToUser delivers the message to every stream the user holds.
func (h *Hub) SendToUser(userID int64, message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sessionID := range h.sessions[userID] {
		deliver(h.bySess[sessionID], message)
	}
}

// deliver is a non-blocking send: full queues drop the message.
func deliver(subs []subscriber, message string) {
	for _, s := range subs {
		select {
		case s.ch <- message:
		default:
		}
	}
}

// ClientCount returns the number of open streams.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return lo.SumBy(lo.Values(h.bySess), func(subs []subscriber) int {
		return len(subs)
	})
}

// UserCount returns the number of distinct users with open streams.
func (h *Hub) UserCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.sessions)
}
