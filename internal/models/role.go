// Copyright 2026 The SecureFlow Authors
// Licensed under the EUPL-1.2

package models

import "time"

// Role names seeded by migration.
const (
	RoleAdmin     = "admin"
	RoleResponder = "responder"
	RoleAnalyst   = "analyst"
	RoleViewer    = "viewer"
)

// Role is a named set of responsibilities assignable to users.
type Role struct {
	ID          int64  `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description"`
}

// UserRole links a user to an assigned role.
type UserRole struct { //nolint:govet // fieldalignment: readability over optimization
	UserID     int64     `db:"user_id" json:"user_id"`
	RoleID     int64     `db:"role_id" json:"role_id"`
	AssignedAt time.Time `db:"assigned_at" json:"assigned_at"`
}
