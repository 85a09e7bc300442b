// Copyright 2026 The SecureFlow Authors
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"strings"

	"github.com/secureflow/secureflow/internal/models"
)

// AuditFilter narrows ListAuditLog results. Zero values match everything.
type AuditFilter struct {
	Action  string
	ActorID int64
	Limit   int
}

// CreateAuditLogEntry appends an entry to the audit log.
func (r *Repository) CreateAuditLogEntry(ctx context.Context, entry *models.AuditLogEntry) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_log (actor_id, action, target_type, target_id, detail) VALUES (?, ?, ?, ?, ?)`,
		entry.ActorID, entry.Action, entry.TargetType, entry.TargetID, entry.Detail)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	entry.ID = id
	return nil
}

// ListAuditLog returns audit entries matching the filter, newest first.
func (r *Repository) ListAuditLog(ctx context.Context, filter AuditFilter) ([]models.AuditLogEntry, error) {
	query := `SELECT * FROM audit_log`
	var conds []string
	var args []any

	if filter.Action != "" {
		conds = append(conds, "action = ?")
		args = append(args, filter.Action)
	}
	if filter.ActorID != 0 {
		conds = append(conds, "actor_id = ?")
		args = append(args, filter.ActorID)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	var entries []models.AuditLogEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, err
	}
	return entries, nil
}
