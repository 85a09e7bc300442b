// Copyright 2026 The SecureFlow Authors
// Licensed under the EUPL-1.2

package identity_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/secureflow/secureflow/internal/services/identity"
)

type fakeChecker struct {
	has   bool
	err   error
	calls int
}

func (c *fakeChecker) HasAnswers(_ context.Context, _ int64) (bool, error) {
	c.calls++
	return c.has, c.err
}

func TestNeedsSetup_WithAnswers(t *testing.T) {
	gate := identity.NewGate(&fakeChecker{has: true}, false)

	assert.False(t, gate.NeedsSetup(context.Background(), 1))
}

func TestNeedsSetup_WithoutAnswers(t *testing.T) {
	gate := identity.NewGate(&fakeChecker{has: false}, false)

	assert.True(t, gate.NeedsSetup(context.Background(), 1))
}

func TestNeedsSetup_CheckerError_FailOpen(t *testing.T) {
	checker := &fakeChecker{err: errors.New("store unavailable")}
	gate := identity.NewGate(checker, false)

	// A failing check must not block the user and must not panic.
	assert.False(t, gate.NeedsSetup(context.Background(), 1))
}

func TestNeedsSetup_CheckerError_FailClosed(t *testing.T) {
	checker := &fakeChecker{err: errors.New("store unavailable")}
	gate := identity.NewGate(checker, true)

	assert.True(t, gate.NeedsSetup(context.Background(), 1))
}

func TestNeedsSetup_CachedPerUser(t *testing.T) {
	checker := &fakeChecker{has: true}
	gate := identity.NewGate(checker, false)

	gate.NeedsSetup(context.Background(), 1)
	gate.NeedsSetup(context.Background(), 1)
	gate.NeedsSetup(context.Background(), 1)

	assert.Equal(t, 1, checker.calls)

	// A different user triggers its own check.
	gate.NeedsSetup(context.Background(), 2)
	assert.Equal(t, 2, checker.calls)
}

func TestNeedsSetup_ErrorResultIsCached(t *testing.T) {
	checker := &fakeChecker{err: errors.New("store unavailable")}
	gate := identity.NewGate(checker, false)

	gate.NeedsSetup(context.Background(), 1)
	gate.NeedsSetup(context.Background(), 1)

	assert.Equal(t, 1, checker.calls)
}

func TestPeek(t *testing.T) {
	gate := identity.NewGate(&fakeChecker{has: false}, false)

	_, known := gate.Peek(1)
	assert.False(t, known)

	gate.NeedsSetup(context.Background(), 1)

	needs, known := gate.Peek(1)
	assert.True(t, known)
	assert.True(t, needs)
}

func TestMarkComplete(t *testing.T) {
	checker := &fakeChecker{has: false}
	gate := identity.NewGate(checker, false)

	assert.True(t, gate.NeedsSetup(context.Background(), 1))

	gate.MarkComplete(1)

	assert.False(t, gate.NeedsSetup(context.Background(), 1))
	assert.Equal(t, 1, checker.calls) // no re-query after completion
}

func TestReset_ForcesRecheck(t *testing.T) {
	checker := &fakeChecker{has: false}
	gate := identity.NewGate(checker, false)

	gate.NeedsSetup(context.Background(), 1)
	gate.Reset(1)

	checker.has = true
	assert.False(t, gate.NeedsSetup(context.Background(), 1))
	assert.Equal(t, 2, checker.calls)
}
