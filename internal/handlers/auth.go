// Copyright 2026 The SecureFlow Authors
// Licensed under the EUPL-1.2

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/secureflow/secureflow/internal/auth"
	"github.com/secureflow/secureflow/internal/models"
	authsvc "github.com/secureflow/secureflow/internal/services/auth"
	"github.com/secureflow/secureflow/internal/services/audit"
	"github.com/secureflow/secureflow/internal/services/email"
	"github.com/secureflow/secureflow/internal/services/identity"
	"github.com/secureflow/secureflow/internal/services/session"
)

// AuthHandlers contains handlers for authentication and account access.
type AuthHandlers struct {
	auth     *authsvc.Service
	sessions *session.Manager
	gate     *identity.Gate
	audit    *audit.Service
	email    *email.Service
}

// NewAuth creates a new AuthHandlers instance.
func NewAuth(authSvc *authsvc.Service, sessions *session.Manager, gate *identity.Gate, auditSvc *audit.Service, emailSvc *email.Service) *AuthHandlers {
	return &AuthHandlers{
		auth:     authSvc,
		sessions: sessions,
		gate:     gate,
		audit:    auditSvc,
		email:    emailSvc,
	}
}

// RegisterRequest is the request body for registration.
type RegisterRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

// Register creates a new account.
func (h *AuthHandlers) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}
	if req.Email == "" {
		return errorJSON(c, http.StatusBadRequest, "email is required")
	}

	user, err := h.auth.Register(c.Request().Context(), authsvc.RegisterParams{
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Password:    req.Password,
	})
	if err != nil {
		var pwErr *authsvc.PasswordValidationError
		switch {
		case errors.Is(err, authsvc.ErrUserExists):
			return errorJSON(c, http.StatusConflict, "an account with this email already exists")
		case errors.Is(err, authsvc.ErrInvalidEmail):
			return errorJSON(c, http.StatusBadRequest, "invalid email address")
		case errors.Is(err, authsvc.ErrRegistrationClosed):
			return errorJSON(c, http.StatusForbidden, "registration is closed")
		case errors.As(err, &pwErr):
			return c.JSON(http.StatusBadRequest, map[string]any{"error": pwErr.Error(), "details": pwErr.Messages()})
		default:
			slog.Error("register_failed", "error", err)
			return errorJSON(c, http.StatusInternalServerError, "failed to create account")
		}
	}

	h.audit.Record(c.Request().Context(), user.ID, models.AuditRegister, "user", user.ID, user.Email)

	// Detach from the request context so mail delivery survives the response.
	go func() {
		if err := h.email.SendWelcome(context.Background(), user.Email, user.DisplayName); err != nil {
			slog.Warn("welcome_email_failed", "user_id", user.ID, "error", err)
		}
	}()

	return c.JSON(http.StatusCreated, user)
}

// LoginRequest is the request body for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates and creates a session. The response carries the
// identity-gate decision so the dashboard knows whether to show the
// security-question setup wizard first.
func (h *AuthHandlers) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}

	user, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, authsvc.ErrInvalidCredentials) {
			return errorJSON(c, http.StatusUnauthorized, "invalid email or password")
		}
		slog.Error("login_failed", "error", err)
		return errorJSON(c, http.StatusInternalServerError, "login failed")
	}

	cookie, err := h.sessions.Create(session.SessionUser{
		ID:      user.ID,
		Email:   user.Email,
		IsAdmin: user.IsAdmin,
	})
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, "failed to create session")
	}
	c.SetCookie(cookie)

	needsSetup := h.gate.NeedsSetup(c.Request().Context(), user.ID)
	h.audit.Record(c.Request().Context(), user.ID, models.AuditLogin, "user", user.ID, "")

	return c.JSON(http.StatusOK, map[string]any{
		"user":                 user,
		"needs_security_setup": needsSetup,
	})
}

// Logout destroys the session and resets the identity gate.
func (h *AuthHandlers) Logout(c echo.Context) error {
	if user := auth.GetUser(c.Request().Context()); user != nil {
		h.gate.Reset(user.ID)
		h.audit.Record(c.Request().Context(), user.ID, models.AuditLogout, "user", user.ID, "")
	}
	c.SetCookie(h.sessions.Clear())
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Session returns the current user and the cached gate decision.
func (h *AuthHandlers) Session(c echo.Context) error {
	user := auth.GetUser(c.Request().Context())
	if user == nil {
		return errorJSON(c, http.StatusUnauthorized, "not authenticated")
	}

	needsSetup := h.gate.NeedsSetup(c.Request().Context(), user.ID)

	return c.JSON(http.StatusOK, map[string]any{
		"user":                 user,
		"needs_security_setup": needsSetup,
	})
}

// ChangePasswordRequest is the request body for a password change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword changes the password of the authenticated user.
func (h *AuthHandlers) ChangePassword(c echo.Context) error {
	user := auth.GetUser(c.Request().Context())
	if user == nil {
		return errorJSON(c, http.StatusUnauthorized, "not authenticated")
	}

	var req ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}

	err := h.auth.ChangePassword(c.Request().Context(), user.ID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		var pwErr *authsvc.PasswordValidationError
		switch {
		case errors.Is(err, authsvc.ErrInvalidCredentials):
			return errorJSON(c, http.StatusUnauthorized, "current password is incorrect")
		case errors.As(err, &pwErr):
			return c.JSON(http.StatusBadRequest, map[string]any{"error": pwErr.Error(), "details": pwErr.Messages()})
		default:
			slog.Error("change_password_failed", "user_id", user.ID, "error", err)
			return errorJSON(c, http.StatusInternalServerError, "failed to change password")
		}
	}

	h.audit.Record(c.Request().Context(), user.ID, models.AuditPasswordChanged, "user", user.ID, "")

	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
