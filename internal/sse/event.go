// Copyright 2026 The SecureFlow Authors
// Licensed under the EUPL-1.2

package sse

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/secureflow/secureflow/internal/models"
)

// Incident event names sent to dashboards.
const (
	EventIncidentCreated = "incident_created"
	EventIncidentUpdated = "incident_updated"
	EventIncidentDeleted = "incident_deleted"
)

// Heartbeat is an SSE comment line that keeps connections alive through
// proxies without triggering client event handlers.
const Heartbeat = ": heartbeat\n\n"

// FormatEvent formats a message as an SSE event with optional event name.
// Multiline content is properly prefixed with "data:".
func FormatEvent(eventName, data string) string {
	var sb strings.Builder

	if eventName != "" {
		sb.WriteString(fmt.Sprintf("event: %s\n", eventName))
	}

	lines := strings.Split(data, "\n")
	for _, line := range lines {
		sb.WriteString(fmt.Sprintf("data: %s\n", line))
	}

	sb.WriteString("\n") // Empty line marks end of event
	return sb.String()
}

// FormatIncidentEvent formats an incident change as a JSON SSE event.
func FormatIncidentEvent(eventName string, inc *models.Incident) (string, error) {
	payload, err := json.Marshal(inc)
	if err != nil {
		return "", fmt.Errorf("failed to encode incident event: %w", err)
	}
	return FormatEvent(eventName, string(payload)), nil
}
