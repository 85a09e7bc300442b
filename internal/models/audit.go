// Copyright 2026 The SecureFlow Authors
// Licensed under the EUPL-1.2

package models

import "time"

// Audit actions recorded by the service layer.
const (
	AuditLogin            = "auth.login"
	AuditLogout           = "auth.logout"
	AuditRegister         = "auth.register"
	AuditPasswordChanged  = "auth.password_changed"
	AuditPasswordRecovery = "auth.password_recovery"
	AuditSecuritySetup    = "auth.security_setup"
	AuditIncidentCreated  = "incident.created"
	AuditIncidentTriaged  = "incident.triaged"
	AuditIncidentResolved = "incident.resolved"
	AuditIncidentReopened = "incident.reopened"
	AuditIncidentDeleted  = "incident.deleted"
	AuditUserCreated      = "user.created"
	AuditUserDeleted      = "user.deleted"
	AuditRoleAssigned     = "role.assigned"
	AuditRoleRevoked      = "role.revoked"
)

// AuditLogEntry records who did what to which entity.
type AuditLogEntry struct { //nolint:govet // fieldalignment: readability over optimization
	ID         int64     `db:"id" json:"id"`
	ActorID    *int64    `db:"actor_id" json:"actor_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	TargetType string    `db:"target_type" json:"target_type"`
	TargetID   int64     `db:"target_id" json:"target_id"`
	Detail     string    `db:"detail" json:"detail,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
