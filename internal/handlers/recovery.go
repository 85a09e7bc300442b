// Copyright 2026 The SecureFlow Authors
// Licensed under the EUPL-1.2

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/secureflow/secureflow/internal/models"
	"github.com/secureflow/secureflow/internal/services/audit"
	"github.com/secureflow/secureflow/internal/services/email"
	"github.com/secureflow/secureflow/internal/services/recovery"
)

// RecoveryHandlers drives the password-recovery wizard over HTTP. Each
// wizard instance is addressed by an opaque flow ID returned when the
// flow starts; every response carries the current wizard state so the
// dashboard can render the right step.
type RecoveryHandlers struct {
	recovery *recovery.Service
	audit    *audit.Service
	email    *email.Service
}

// NewRecovery creates a new RecoveryHandlers instance.
func NewRecovery(rec *recovery.Service, auditSvc *audit.Service, emailSvc *email.Service) *RecoveryHandlers {
	return &RecoveryHandlers{recovery: rec, audit: auditSvc, email: emailSvc}
}

// StartRequest is the request body for starting recovery.
type StartRequest struct {
	Email string `json:"email"`
}

// Start creates a flow and resolves the email. The flow ID is returned
// even when resolution fails so the user can retry on the same flow.
func (h *RecoveryHandlers) Start(c echo.Context) error {
	var req StartRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}

	id, flow := h.recovery.Begin()
	if err := flow.Start(c.Request().Context(), req.Email); err != nil {
		slog.Info("recovery_start_rejected", "error", err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"flow_id": id,
		"state":   flow.State(),
	})
}

// State returns the current wizard state.
func (h *RecoveryHandlers) State(c echo.Context) error {
	flow, err := h.recovery.Get(c.Param("id"))
	if err != nil {
		return errorJSON(c, http.StatusNotFound, "recovery flow not found")
	}
	return c.JSON(http.StatusOK, map[string]any{"state": flow.State()})
}

// Retry re-runs the email step on an existing flow.
func (h *RecoveryHandlers) Retry(c echo.Context) error {
	flow, err := h.recovery.Get(c.Param("id"))
	if err != nil {
		return errorJSON(c, http.StatusNotFound, "recovery flow not found")
	}

	var req StartRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}

	if err := flow.Start(c.Request().Context(), req.Email); err != nil {
		if errors.Is(err, recovery.ErrInvalidStep) || errors.Is(err, recovery.ErrBusy) {
			return errorJSON(c, http.StatusConflict, err.Error())
		}
		slog.Info("recovery_start_rejected", "error", err)
	}

	return c.JSON(http.StatusOK, map[string]any{"state": flow.State()})
}

// AnswersRequest is the request body for the verification step. JSON
// object keys are strings, so question IDs arrive as decimal strings.
type AnswersRequest struct {
	Answers map[string]string `json:"answers"`
}

// Answers verifies the submitted security answers.
func (h *RecoveryHandlers) Answers(c echo.Context) error {
	flow, err := h.recovery.Get(c.Param("id"))
	if err != nil {
		return errorJSON(c, http.StatusNotFound, "recovery flow not found")
	}

	var req AnswersRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}

	answers := make(map[int64]string, len(req.Answers))
	for key, value := range req.Answers {
		questionID, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return errorJSON(c, http.StatusBadRequest, "invalid question id")
		}
		answers[questionID] = value
	}

	if err := flow.VerifyAnswers(c.Request().Context(), answers); err != nil {
		if errors.Is(err, recovery.ErrInvalidStep) || errors.Is(err, recovery.ErrBusy) {
			return errorJSON(c, http.StatusConflict, err.Error())
		}
		slog.Info("recovery_answers_rejected", "error", err)
	}

	return c.JSON(http.StatusOK, map[string]any{"state": flow.State()})
}

// PasswordRequest is the request body for the final step.
type PasswordRequest struct {
	Password string `json:"password"`
}

// Password sets the new password and completes the wizard.
func (h *RecoveryHandlers) Password(c echo.Context) error {
	flowID := c.Param("id")
	flow, err := h.recovery.Get(flowID)
	if err != nil {
		return errorJSON(c, http.StatusNotFound, "recovery flow not found")
	}

	var req PasswordRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}

	accountID := flow.AccountID()
	state := flow.State()
	if err := flow.ChangePassword(c.Request().Context(), req.Password); err != nil {
		if errors.Is(err, recovery.ErrInvalidStep) || errors.Is(err, recovery.ErrBusy) {
			return errorJSON(c, http.StatusConflict, err.Error())
		}
		slog.Info("recovery_password_rejected", "error", err)
		return c.JSON(http.StatusOK, map[string]any{"state": flow.State()})
	}

	h.audit.Record(c.Request().Context(), accountID, models.AuditPasswordRecovery, "user", accountID, "")

	toEmail := state.Email
	go func() {
		if err := h.email.SendPasswordChanged(context.Background(), toEmail); err != nil {
			slog.Warn("password_changed_email_failed", "error", err)
		}
	}()

	// Completed flows are single-use.
	final := flow.State()
	h.recovery.End(flowID)

	return c.JSON(http.StatusOK, map[string]any{"state": final})
}

// Reset clears the flow back to the email step.
func (h *RecoveryHandlers) Reset(c echo.Context) error {
	flow, err := h.recovery.Get(c.Param("id"))
	if err != nil {
		return errorJSON(c, http.StatusNotFound, "recovery flow not found")
	}

	flow.Reset()
	return c.JSON(http.StatusOK, map[string]any{"state": flow.State()})
}

// Abandon discards the flow entirely.
func (h *RecoveryHandlers) Abandon(c echo.Context) error {
	h.recovery.End(c.Param("id"))
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
