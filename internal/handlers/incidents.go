// Copyright 2026 The SecureFlow Authors
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/secureflow/secureflow/internal/auth"
	"github.com/secureflow/secureflow/internal/models"
	"github.com/secureflow/secureflow/internal/repository"
	"github.com/secureflow/secureflow/internal/services/audit"
	"github.com/secureflow/secureflow/internal/sse"
)

// IncidentHandlers contains handlers for incidents and their comments.
type IncidentHandlers struct {
	repo  *repository.Repository
	audit *audit.Service
	hub   *sse.Hub
}

// NewIncidents creates a new IncidentHandlers instance.
func NewIncidents(repo *repository.Repository, auditSvc *audit.Service, hub *sse.Hub) *IncidentHandlers {
	return &IncidentHandlers{repo: repo, audit: auditSvc, hub: hub}
}

// broadcast pushes an incident change to all connected dashboards.
func (h *IncidentHandlers) broadcast(eventName string, inc *models.Incident) {
	event, err := sse.FormatIncidentEvent(eventName, inc)
	if err != nil {
		slog.Error("incident_event_failed", "incident_id", inc.ID, "error", err)
		return
	}
	h.hub.Broadcast(event)
}

func incidentID(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}

// CreateIncidentRequest is the request body for creating an incident.
type CreateIncidentRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

// Create opens a new incident reported by the authenticated user.
func (h *IncidentHandlers) Create(c echo.Context) error {
	user := auth.GetUser(c.Request().Context())

	var req CreateIncidentRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}
	if req.Title == "" {
		return errorJSON(c, http.StatusBadRequest, "title is required")
	}
	if req.Severity == "" {
		req.Severity = models.SeverityLow
	}
	if !models.ValidSeverity(req.Severity) {
		return errorJSON(c, http.StatusBadRequest, "unknown severity")
	}

	inc := &models.Incident{
		Title:       req.Title,
		Description: req.Description,
		Severity:    req.Severity,
		Status:      models.StatusOpen,
		ReporterID:  user.ID,
	}
	if err := h.repo.CreateIncident(c.Request().Context(), inc); err != nil {
		slog.Error("incident_create_failed", "error", err)
		return errorJSON(c, http.StatusInternalServerError, "failed to create incident")
	}

	created, err := h.repo.GetIncidentByID(c.Request().Context(), inc.ID)
	if err == nil {
		inc = created
	}

	h.audit.Record(c.Request().Context(), user.ID, models.AuditIncidentCreated, "incident", inc.ID, inc.Title)
	h.broadcast(sse.EventIncidentCreated, inc)

	return c.JSON(http.StatusCreated, inc)
}

// List returns incidents matching the query filters.
func (h *IncidentHandlers) List(c echo.Context) error {
	filter := repository.IncidentFilter{
		Status:   c.QueryParam("status"),
		Severity: c.QueryParam("severity"),
		Search:   c.QueryParam("q"),
	}
	if assignee := c.QueryParam("assignee_id"); assignee != "" {
		id, err := strconv.ParseInt(assignee, 10, 64)
		if err != nil {
			return errorJSON(c, http.StatusBadRequest, "invalid assignee_id")
		}
		filter.AssigneeID = id
	}

	incidents, err := h.repo.ListIncidents(c.Request().Context(), filter)
	if err != nil {
		slog.Error("incident_list_failed", "error", err)
		return errorJSON(c, http.StatusInternalServerError, "failed to list incidents")
	}

	return c.JSON(http.StatusOK, map[string]any{"incidents": incidents})
}

// Get returns a single incident with its comments.
func (h *IncidentHandlers) Get(c echo.Context) error {
	id, err := incidentID(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid incident id")
	}

	inc, err := h.repo.GetIncidentByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errorJSON(c, http.StatusNotFound, "incident not found")
		}
		return errorJSON(c, http.StatusInternalServerError, "failed to load incident")
	}

	comments, err := h.repo.ListComments(c.Request().Context(), id)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, "failed to load comments")
	}

	return c.JSON(http.StatusOK, map[string]any{"incident": inc, "comments": comments})
}

// TriageRequest is the request body for triaging an incident.
type TriageRequest struct {
	AssigneeID int64 `json:"assignee_id"`
}

// Triage moves an open incident to triaged and assigns it. Without an
// explicit assignee the triaging user takes the incident.
func (h *IncidentHandlers) Triage(c echo.Context) error {
	user := auth.GetUser(c.Request().Context())

	id, err := incidentID(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid incident id")
	}

	var req TriageRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}
	if req.AssigneeID == 0 {
		req.AssigneeID = user.ID
	}

	inc, err := h.transition(c, id, models.StatusTriaged, func() error {
		return h.repo.TriageIncident(c.Request().Context(), id, req.AssigneeID)
	})
	if err != nil {
		return err
	}

	h.audit.Record(c.Request().Context(), user.ID, models.AuditIncidentTriaged, "incident", id, "")
	return c.JSON(http.StatusOK, inc)
}

// ResolveRequest is the request body for resolving an incident.
type ResolveRequest struct {
	Resolution string `json:"resolution"`
}

// Resolve closes out a triaged incident with a resolution note.
func (h *IncidentHandlers) Resolve(c echo.Context) error {
	user := auth.GetUser(c.Request().Context())

	id, err := incidentID(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid incident id")
	}

	var req ResolveRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}
	if req.Resolution == "" {
		return errorJSON(c, http.StatusBadRequest, "resolution is required")
	}

	inc, err := h.transition(c, id, models.StatusResolved, func() error {
		return h.repo.ResolveIncident(c.Request().Context(), id, req.Resolution)
	})
	if err != nil {
		return err
	}

	h.audit.Record(c.Request().Context(), user.ID, models.AuditIncidentResolved, "incident", id, "")
	return c.JSON(http.StatusOK, inc)
}

// Reopen returns a resolved incident to the open state.
func (h *IncidentHandlers) Reopen(c echo.Context) error {
	user := auth.GetUser(c.Request().Context())

	id, err := incidentID(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid incident id")
	}

	inc, err := h.transition(c, id, models.StatusOpen, func() error {
		return h.repo.ReopenIncident(c.Request().Context(), id)
	})
	if err != nil {
		return err
	}

	h.audit.Record(c.Request().Context(), user.ID, models.AuditIncidentReopened, "incident", id, "")
	return c.JSON(http.StatusOK, inc)
}

// transition loads the incident, validates the status change, applies it
// and broadcasts the update. Returns the refreshed incident.
func (h *IncidentHandlers) transition(c echo.Context, id int64, to string, apply func() error) (*models.Incident, error) {
	inc, err := h.repo.GetIncidentByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errorJSON(c, http.StatusNotFound, "incident not found")
		}
		return nil, errorJSON(c, http.StatusInternalServerError, "failed to load incident")
	}

	if !models.ValidStatusTransition(inc.Status, to) {
		return nil, errorJSON(c, http.StatusConflict, "invalid status transition")
	}

	if err := apply(); err != nil {
		slog.Error("incident_transition_failed", "incident_id", id, "to", to, "error", err)
		return nil, errorJSON(c, http.StatusInternalServerError, "failed to update incident")
	}

	updated, err := h.repo.GetIncidentByID(c.Request().Context(), id)
	if err != nil {
		return nil, errorJSON(c, http.StatusInternalServerError, "failed to load incident")
	}

	h.broadcast(sse.EventIncidentUpdated, updated)
	return updated, nil
}

// Delete removes an incident. Admin only (enforced by routing).
func (h *IncidentHandlers) Delete(c echo.Context) error {
	user := auth.GetUser(c.Request().Context())

	id, err := incidentID(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid incident id")
	}

	inc, err := h.repo.GetIncidentByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errorJSON(c, http.StatusNotFound, "incident not found")
		}
		return errorJSON(c, http.StatusInternalServerError, "failed to load incident")
	}

	if err := h.repo.DeleteIncident(c.Request().Context(), id); err != nil {
		slog.Error("incident_delete_failed", "incident_id", id, "error", err)
		return errorJSON(c, http.StatusInternalServerError, "failed to delete incident")
	}

	h.audit.Record(c.Request().Context(), user.ID, models.AuditIncidentDeleted, "incident", id, inc.Title)
	h.broadcast(sse.EventIncidentDeleted, inc)

	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// CommentRequest is the request body for adding a comment.
type CommentRequest struct {
	Body string `json:"body"`
}

// AddComment attaches a comment to an incident.
func (h *IncidentHandlers) AddComment(c echo.Context) error {
	user := auth.GetUser(c.Request().Context())

	id, err := incidentID(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid incident id")
	}

	var req CommentRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}
	if req.Body == "" {
		return errorJSON(c, http.StatusBadRequest, "comment body is required")
	}

	if _, err := h.repo.GetIncidentByID(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errorJSON(c, http.StatusNotFound, "incident not found")
		}
		return errorJSON(c, http.StatusInternalServerError, "failed to load incident")
	}

	comment := &models.IncidentComment{
		IncidentID: id,
		AuthorID:   user.ID,
		Body:       req.Body,
	}
	if err := h.repo.CreateComment(c.Request().Context(), comment); err != nil {
		slog.Error("comment_create_failed", "incident_id", id, "error", err)
		return errorJSON(c, http.StatusInternalServerError, "failed to add comment")
	}

	return c.JSON(http.StatusCreated, comment)
}

// ListComments returns an incident's comments.
func (h *IncidentHandlers) ListComments(c echo.Context) error {
	id, err := incidentID(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid incident id")
	}

	comments, err := h.repo.ListComments(c.Request().Context(), id)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, "failed to load comments")
	}

	return c.JSON(http.StatusOK, map[string]any{"comments": comments})
}

// DeleteComment removes a comment. Authors may delete their own comments;
// admins may delete any.
func (h *IncidentHandlers) DeleteComment(c echo.Context) error {
	user := auth.GetUser(c.Request().Context())

	id, err := strconv.ParseInt(c.Param("commentID"), 10, 64)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid comment id")
	}

	comment, err := h.repo.GetCommentByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errorJSON(c, http.StatusNotFound, "comment not found")
		}
		return errorJSON(c, http.StatusInternalServerError, "failed to load comment")
	}

	if comment.AuthorID != user.ID && !user.IsAdmin {
		return errorJSON(c, http.StatusForbidden, "cannot delete another user's comment")
	}

	if err := h.repo.DeleteComment(c.Request().Context(), id); err != nil {
		return errorJSON(c, http.StatusInternalServerError, "failed to delete comment")
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
