// Copyright 2026 The SecureFlow Authors
// Licensed under the EUPL-1.2

package models

import "time"

// Incident severity levels.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Incident lifecycle states.
const (
	StatusOpen     = "open"
	StatusTriaged  = "triaged"
	StatusResolved = "resolved"
)

// ValidSeverity reports whether s is a known severity level.
func ValidSeverity(s string) bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// ValidStatusTransition reports whether an incident may move from one
// status to another. Open incidents are triaged before resolution;
// resolved incidents may be reopened.
func ValidStatusTransition(from, to string) bool {
	switch from {
	case StatusOpen:
		return to == StatusTriaged
	case StatusTriaged:
		return to == StatusResolved
	case StatusResolved:
		return to == StatusOpen
	}
	return false
}

// Incident is a security incident tracked on the dashboard.
type Incident struct { //nolint:govet // fieldalignment: readability over optimization
	ID          int64      `db:"id" json:"id"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description"`
	Severity    string     `db:"severity" json:"severity"`
	Status      string     `db:"status" json:"status"`
	ReporterID  int64      `db:"reporter_id" json:"reporter_id"`
	AssigneeID  *int64     `db:"assignee_id" json:"assignee_id,omitempty"`
	Resolution  string     `db:"resolution" json:"resolution,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
	ResolvedAt  *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
}

// IncidentComment is a discussion entry attached to an incident.
type IncidentComment struct { //nolint:govet // fieldalignment: readability over optimization
	ID         int64     `db:"id" json:"id"`
	IncidentID int64     `db:"incident_id" json:"incident_id"`
	AuthorID   int64     `db:"author_id" json:"author_id"`
	Body       string    `db:"body" json:"body"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
