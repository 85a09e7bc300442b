// Copyright 2026 The SecureFlow Authors
// Licensed under the EUPL-1.2

// Package audit records who did what. Recording is best-effort: failures
// are logged and never abort the operation being audited.
package audit

import (
	"context"
	"log/slog"

	"github.com/secureflow/secureflow/internal/models"
	"github.com/secureflow/secureflow/internal/repository"
)

// Service appends audit log entries.
type Service struct {
	repo *repository.Repository
}

// NewService creates a new audit service.
func NewService(repo *repository.Repository) *Service {
	return &Service{repo: repo}
}

// Record appends an entry for an action performed by actorID (0 for
// anonymous actions such as failed recovery attempts).
func (s *Service) Record(ctx context.Context, actorID int64, action, targetType string, targetID int64, detail string) {
	entry := &models.AuditLogEntry{
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Detail:     detail,
	}
	if actorID != 0 {
		entry.ActorID = &actorID
	}

	if err := s.repo.CreateAuditLogEntry(ctx, entry); err != nil {
		slog.Error("audit_record_failed", "action", action, "error", err)
		return
	}

	slog.Debug("audit_recorded", "action", action, "actor_id", actorID, "target_type", targetType, "target_id", targetID)
}

// List returns audit entries matching the filter, newest first.
func (s *Service) List(ctx context.Context, filter repository.AuditFilter) ([]models.AuditLogEntry, error) {
	return s.repo.ListAuditLog(ctx, filter)
}
