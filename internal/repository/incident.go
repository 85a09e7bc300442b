// Copyright 2026 The SecureFlow Authors
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"strings"
	"time"

	"github.com/secureflow/secureflow/internal/models"
)

// IncidentFilter narrows ListIncidents results. Zero values match everything.
type IncidentFilter struct {
	Status     string
	Severity   string
	AssigneeID int64
	Search     string
}

// CreateIncident creates a new incident and fills in its generated ID.
func (r *Repository) CreateIncident(ctx context.Context, inc *models.Incident) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO incidents (title, description, severity, status, reporter_id) VALUES (?, ?, ?, ?, ?)`,
		inc.Title, inc.Description, inc.Severity, inc.Status, inc.ReporterID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	inc.ID = id
	return nil
}

// GetIncidentByID retrieves an incident by ID.
func (r *Repository) GetIncidentByID(ctx context.Context, id int64) (*models.Incident, error) {
	var inc models.Incident
	if err := r.db.GetContext(ctx, &inc, `SELECT * FROM incidents WHERE id = ?`, id); err != nil {
		return nil, wrapErr(err)
	}
	return &inc, nil
}

// ListIncidents returns incidents matching the filter, newest first.
func (r *Repository) ListIncidents(ctx context.Context, filter IncidentFilter) ([]models.Incident, error) {
	query := `SELECT * FROM incidents`
	var conds []string
	var args []any

	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Severity != "" {
		conds = append(conds, "severity = ?")
		args = append(args, filter.Severity)
	}
	if filter.AssigneeID != 0 {
		conds = append(conds, "assignee_id = ?")
		args = append(args, filter.AssigneeID)
	}
	if filter.Search != "" {
		conds = append(conds, "(title LIKE ? OR description LIKE ?)")
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	var incidents []models.Incident
	if err := r.db.SelectContext(ctx, &incidents, query, args...); err != nil {
		return nil, err
	}
	return incidents, nil
}

// TriageIncident moves an incident to triaged and assigns it.
func (r *Repository) TriageIncident(ctx context.Context, id, assigneeID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE incidents SET status = ?, assignee_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		models.StatusTriaged, assigneeID, id)
	return err
}

// ResolveIncident moves an incident to resolved with a resolution note.
func (r *Repository) ResolveIncident(ctx context.Context, id int64, resolution string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE incidents SET status = ?, resolution = ?, resolved_at = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		models.StatusResolved, resolution, time.Now().UTC(), id)
	return err
}

// ReopenIncident moves a resolved incident back to open.
func (r *Repository) ReopenIncident(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE incidents SET status = ?, resolution = '', resolved_at = NULL, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		models.StatusOpen, id)
	return err
}

// DeleteIncident deletes an incident and its comments.
func (r *Repository) DeleteIncident(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM incidents WHERE id = ?`, id)
	return err
}

// CreateComment adds a comment to an incident.
func (r *Repository) CreateComment(ctx context.Context, comment *models.IncidentComment) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO incident_comments (incident_id, author_id, body) VALUES (?, ?, ?)`,
		comment.IncidentID, comment.AuthorID, comment.Body)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	comment.ID = id
	return nil
}

// ListComments returns an incident's comments oldest first.
func (r *Repository) ListComments(ctx context.Context, incidentID int64) ([]models.IncidentComment, error) {
	var comments []models.IncidentComment
	err := r.db.SelectContext(ctx, &comments,
		`SELECT * FROM incident_comments WHERE incident_id = ? ORDER BY created_at, id`, incidentID)
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// GetCommentByID retrieves a single comment.
func (r *Repository) GetCommentByID(ctx context.Context, id int64) (*models.IncidentComment, error) {
	var comment models.IncidentComment
	if err := r.db.GetContext(ctx, &comment, `SELECT * FROM incident_comments WHERE id = ?`, id); err != nil {
		return nil, wrapErr(err)
	}
	return &comment, nil
}

// DeleteComment deletes a comment by ID.
func (r *Repository) DeleteComment(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM incident_comments WHERE id = ?`, id)
	return err
}
