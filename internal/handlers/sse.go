// Copyright 2026 The SecureFlow Authors
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/secureflow/secureflow/internal/auth"
	"github.com/secureflow/secureflow/internal/sse"
)

// SSEHandlers streams incident events to connected dashboards.
type SSEHandlers struct {
	hub *sse.Hub
}

// NewSSE creates a new SSEHandlers instance.
func NewSSE(hub *sse.Hub) *SSEHandlers {
	return &SSEHandlers{hub: hub}
}

// Stream handles the SSE connection endpoint.
func (h *SSEHandlers) Stream(c echo.Context) error {
	ctx := c.Request().Context()

	user := auth.GetUser(ctx)
	if user == nil {
		return errorJSON(c, http.StatusUnauthorized, "authentication required")
	}

	w := c.Response()
	flusher, ok := w.Writer.(http.Flusher)
	if !ok {
		return errorJSON(c, http.StatusInternalServerError, "streaming not supported")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.WriteHeader(http.StatusOK)

	// Each connection gets its own stream ID; the hub still groups
	// streams by user so SendToUser reaches every open tab.
	streamID := uuid.NewString()
	ch := h.hub.Register(streamID, user.ID)
	defer h.hub.Unregister(streamID, user.ID, ch)

	if _, err := w.Write([]byte(sse.FormatEvent("connected", "ok"))); err != nil {
		return nil
	}
	flusher.Flush()

	// Heartbeat ticker to keep connection alive through proxies
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := w.Write([]byte(sse.Heartbeat)); err != nil {
				return nil // Client disconnected
			}
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if _, err := w.Write([]byte(msg)); err != nil {
				return nil
			}
			flusher.Flush()
		}
	}
}
