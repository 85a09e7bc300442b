// Copyright 2026 The SecureFlow Authors
// Licensed under the EUPL-1.2

package sse

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHub_RegisterAndUnregister(t *testing.T) {
	hub := NewHub()

	ch := hub.Register("stream1", 1)
	assert.NotNil(t, ch)
	assert.Equal(t, 1, hub.ClientCount())
	assert.Equal(t, 1, hub.UserCount())

	// Second tab for the same stream ID
	ch2 := hub.Register("stream1", 1)
	assert.Equal(t, 2, hub.ClientCount())
	assert.Equal(t, 1, hub.UserCount())

	hub.Unregister("stream1", 1, ch)
	assert.Equal(t, 1, hub.ClientCount())

	hub.Unregister("stream1", 1, ch2)
	assert.Equal(t, 0, hub.ClientCount())
	assert.Equal(t, 0, hub.UserCount())
}

func TestHub_MultipleStreamsPerUser(t *testing.T) {
	hub := NewHub()

	// User 1 connects from two different browsers
	ch1 := hub.Register("stream1", 1)
	ch2 := hub.Register("stream2", 1)

	assert.Equal(t, 2, hub.ClientCount())
	assert.Equal(t, 1, hub.UserCount())

	hub.Unregister("stream1", 1, ch1)
	hub.Unregister("stream2", 1, ch2)
}

func TestHub_SendToUser(t *testing.T) {
	hub := NewHub()

	ch1 := hub.Register("stream1", 1)
	ch2 := hub.Register("stream2", 1) // same user, different browser
	ch3 := hub.Register("stream3", 2) // different user

	hub.SendToUser(1, "hello")

	select {
	case msg := <-ch1:
		assert.Equal(t, "hello", msg)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("stream1 did not receive message")
	}

	select {
	case msg := <-ch2:
		assert.Equal(t, "hello", msg)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("stream2 did not receive message")
	}

	select {
	case <-ch3:
		t.Fatal("other user should not receive message")
	default:
	}

	hub.Unregister("stream1", 1, ch1)
	hub.Unregister("stream2", 1, ch2)
	hub.Unregister("stream3", 2, ch3)
}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub()

	ch1 := hub.Register("stream1", 1)
	ch2 := hub.Register("stream2", 2)

	hub.Broadcast("incident update")

	for _, ch := range []chan string{ch1, ch2} {
		select {
		case msg := <-ch:
			assert.Equal(t, "incident update", msg)
		case <-time.After(100 * time.Millisecond):
			t.Fatal("client did not receive broadcast")
		}
	}

	hub.Unregister("stream1", 1, ch1)
	hub.Unregister("stream2", 2, ch2)
}

func TestHub_BroadcastFullChannelDoesNotBlock(t *testing.T) {
	hub := NewHub()

	ch := hub.Register("stream1", 1)

	// Fill the buffered channel
	for range cap(ch) {
		hub.Broadcast("fill")
	}

	done := make(chan struct{})
	go func() {
		hub.Broadcast("overflow") // must not block
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on full channel")
	}

	hub.Unregister("stream1", 1, ch)
}

func TestHub_ConcurrentAccess(t *testing.T) {
	hub := NewHub()

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			streamID := string(rune('a' + n))
			ch := hub.Register(streamID, int64(n))
			hub.Broadcast("msg")
			hub.SendToUser(int64(n), "direct")
			hub.Unregister(streamID, int64(n), ch)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, hub.ClientCount())
	assert.Equal(t, 0, hub.UserCount())
}
