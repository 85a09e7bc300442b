// Copyright 2026 The SecureFlow Authors
// Licensed under the EUPL-1.2

// Package identity implements the post-login gate that decides whether a
// user must complete first-time security-question setup before reaching
// the dashboard.
package identity

import (
	"context"
	"log/slog"
	"sync"
)

// Checker answers "does this user have security answers on file?".
type Checker interface {
	HasAnswers(ctx context.Context, userID int64) (bool, error)
}

// Gate caches one setup check per login session. The cached value lives
// until Reset is called at logout, so the dashboard never re-queries on
// re-render.
type Gate struct { //nolint:govet // fieldalignment not critical
	checker    Checker
	failClosed bool

	mu    sync.Mutex
	cache map[int64]bool
}

// NewGate creates a gate over the given checker. With failClosed false
// (the default), a failing check lets the user through without setup; with
// failClosed true it forces the setup wizard instead.
func NewGate(checker Checker, failClosed bool) *Gate {
	return &Gate{
		checker:    checker,
		failClosed: failClosed,
		cache:      make(map[int64]bool),
	}
}

// NeedsSetup reports whether the user must complete security-question
// setup. The backend is queried at most once per session; check errors
// never escape and resolve according to the fail-open/fail-closed policy.
func (g *Gate) NeedsSetup(ctx context.Context, userID int64) bool {
	g.mu.Lock()
	if needs, ok := g.cache[userID]; ok {
		g.mu.Unlock()
		return needs
	}
	g.mu.Unlock()

	needs := false
	has, err := g.checker.HasAnswers(ctx, userID)
	switch {
	case err != nil:
		needs = g.failClosed
		slog.Warn("security_setup_check_failed",
			"user_id", userID,
			"fail_closed", g.failClosed,
			"error", err,
		)
	default:
		needs = !has
	}

	g.mu.Lock()
	g.cache[userID] = needs
	g.mu.Unlock()
	return needs
}

// Peek returns the cached decision without querying: known is false while
// the check is still undetermined for this session.
func (g *Gate) Peek(userID int64) (needs, known bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	needs, known = g.cache[userID]
	return needs, known
}

// MarkComplete records that the user finished the setup wizard.
func (g *Gate) MarkComplete(userID int64) {
	g.mu.Lock()
	g.cache[userID] = false
	g.mu.Unlock()
}

// Reset clears the cached decision, returning the user to undetermined.
// Called at logout.
func (g *Gate) Reset(userID int64) {
	g.mu.Lock()
	delete(g.cache, userID)
	g.mu.Unlock()
}
