// Copyright 2026 The SecureFlow Authors
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/secureflow/secureflow/internal/auth"
	"github.com/secureflow/secureflow/internal/models"
	"github.com/secureflow/secureflow/internal/services/audit"
	"github.com/secureflow/secureflow/internal/services/identity"
	"github.com/secureflow/secureflow/internal/services/security"
)

// SecurityHandlers serves the security-question catalog and the
// first-time setup wizard.
type SecurityHandlers struct {
	security *security.Service
	gate     *identity.Gate
	audit    *audit.Service
}

// NewSecurity creates a new SecurityHandlers instance.
func NewSecurity(sec *security.Service, gate *identity.Gate, auditSvc *audit.Service) *SecurityHandlers {
	return &SecurityHandlers{security: sec, gate: gate, audit: auditSvc}
}

// Questions returns the question catalog.
func (h *SecurityHandlers) Questions(c echo.Context) error {
	questions, err := h.security.Questions(c.Request().Context())
	if err != nil {
		slog.Error("question_catalog_failed", "error", err)
		return errorJSON(c, http.StatusInternalServerError, "failed to load questions")
	}
	return c.JSON(http.StatusOK, map[string]any{"questions": questions})
}

// Status reports whether the authenticated user has completed setup.
func (h *SecurityHandlers) Status(c echo.Context) error {
	user := auth.GetUser(c.Request().Context())
	if user == nil {
		return errorJSON(c, http.StatusUnauthorized, "not authenticated")
	}

	configured, err := h.security.HasAnswers(c.Request().Context(), user.ID)
	if err != nil {
		slog.Error("security_status_failed", "user_id", user.ID, "error", err)
		return errorJSON(c, http.StatusInternalServerError, "failed to load status")
	}

	return c.JSON(http.StatusOK, map[string]bool{"configured": configured})
}

// SetupRequest is the request body for the setup wizard.
type SetupRequest struct {
	Answers []security.AnswerInput `json:"answers"`
}

// Setup stores the user's security answers and clears the identity gate.
func (h *SecurityHandlers) Setup(c echo.Context) error {
	user := auth.GetUser(c.Request().Context())
	if user == nil {
		return errorJSON(c, http.StatusUnauthorized, "not authenticated")
	}

	var req SetupRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}

	err := h.security.SetupAnswers(c.Request().Context(), user.ID, req.Answers)
	if err != nil {
		switch {
		case errors.Is(err, security.ErrTooFewAnswers):
			return errorJSON(c, http.StatusBadRequest, "at least three answers are required")
		case errors.Is(err, security.ErrEmptyAnswer):
			return errorJSON(c, http.StatusBadRequest, "answers must not be empty")
		case errors.Is(err, security.ErrUnknownQuestion):
			return errorJSON(c, http.StatusBadRequest, "unknown or duplicate question")
		default:
			slog.Error("security_setup_failed", "user_id", user.ID, "error", err)
			return errorJSON(c, http.StatusInternalServerError, "failed to save answers")
		}
	}

	h.gate.MarkComplete(user.ID)
	h.audit.Record(c.Request().Context(), user.ID, models.AuditSecuritySetup, "user", user.ID, "")

	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
