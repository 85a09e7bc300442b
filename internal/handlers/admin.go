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
	authsvc "github.com/secureflow/secureflow/internal/services/auth"
	"github.com/secureflow/secureflow/internal/services/audit"
)

// AdminHandlers contains user, role and audit-log administration.
// All routes are mounted behind RequireAdmin.
type AdminHandlers struct {
	repo  *repository.Repository
	auth  *authsvc.Service
	audit *audit.Service
}

// NewAdmin creates a new AdminHandlers instance.
func NewAdmin(repo *repository.Repository, authSvc *authsvc.Service, auditSvc *audit.Service) *AdminHandlers {
	return &AdminHandlers{repo: repo, auth: authSvc, audit: auditSvc}
}

func userID(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}

// ListUsers returns all user accounts.
func (h *AdminHandlers) ListUsers(c echo.Context) error {
	users, err := h.repo.ListUsers(c.Request().Context())
	if err != nil {
		slog.Error("user_list_failed", "error", err)
		return errorJSON(c, http.StatusInternalServerError, "failed to list users")
	}
	return c.JSON(http.StatusOK, map[string]any{"users": users})
}

// CreateUserRequest is the request body for creating a user.
type CreateUserRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
	IsAdmin     bool   `json:"is_admin"`
}

// CreateUser creates an account on behalf of an administrator.
func (h *AdminHandlers) CreateUser(c echo.Context) error {
	actor := auth.GetUser(c.Request().Context())

	var req CreateUserRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}

	user, err := h.auth.Register(c.Request().Context(), authsvc.RegisterParams{
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Password:    req.Password,
		IsAdmin:     req.IsAdmin,
		Invited:     true,
	})
	if err != nil {
		var pwErr *authsvc.PasswordValidationError
		switch {
		case errors.Is(err, authsvc.ErrUserExists):
			return errorJSON(c, http.StatusConflict, "an account with this email already exists")
		case errors.Is(err, authsvc.ErrInvalidEmail):
			return errorJSON(c, http.StatusBadRequest, "invalid email address")
		case errors.As(err, &pwErr):
			return c.JSON(http.StatusBadRequest, map[string]any{"error": pwErr.Error(), "details": pwErr.Messages()})
		default:
			slog.Error("admin_user_create_failed", "error", err)
			return errorJSON(c, http.StatusInternalServerError, "failed to create user")
		}
	}

	h.audit.Record(c.Request().Context(), actor.ID, models.AuditUserCreated, "user", user.ID, user.Email)

	return c.JSON(http.StatusCreated, user)
}

// DeleteUser removes an account. The last admin and the acting admin's
// own account cannot be deleted.
func (h *AdminHandlers) DeleteUser(c echo.Context) error {
	actor := auth.GetUser(c.Request().Context())

	id, err := userID(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid user id")
	}
	if id == actor.ID {
		return errorJSON(c, http.StatusConflict, "cannot delete your own account")
	}

	user, err := h.repo.GetUserByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errorJSON(c, http.StatusNotFound, "user not found")
		}
		return errorJSON(c, http.StatusInternalServerError, "failed to load user")
	}

	if user.IsAdmin {
		count, err := h.repo.CountAdmins(c.Request().Context())
		if err != nil {
			return errorJSON(c, http.StatusInternalServerError, "failed to count admins")
		}
		if count <= 1 {
			return errorJSON(c, http.StatusConflict, "cannot delete the last admin")
		}
	}

	if err := h.repo.DeleteUser(c.Request().Context(), id); err != nil {
		slog.Error("admin_user_delete_failed", "user_id", id, "error", err)
		return errorJSON(c, http.StatusInternalServerError, "failed to delete user")
	}

	h.audit.Record(c.Request().Context(), actor.ID, models.AuditUserDeleted, "user", id, user.Email)

	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// ListRoles returns the role catalog.
func (h *AdminHandlers) ListRoles(c echo.Context) error {
	roles, err := h.repo.ListRoles(c.Request().Context())
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, "failed to list roles")
	}
	return c.JSON(http.StatusOK, map[string]any{"roles": roles})
}

// UserRoles returns the roles assigned to a user.
func (h *AdminHandlers) UserRoles(c echo.Context) error {
	id, err := userID(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid user id")
	}

	roles, err := h.repo.GetRolesForUser(c.Request().Context(), id)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, "failed to load roles")
	}
	return c.JSON(http.StatusOK, map[string]any{"roles": roles})
}

// AssignRoleRequest is the request body for assigning a role.
type AssignRoleRequest struct {
	Role string `json:"role"`
}

// AssignRole gives a user the named role.
func (h *AdminHandlers) AssignRole(c echo.Context) error {
	actor := auth.GetUser(c.Request().Context())

	id, err := userID(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid user id")
	}

	var req AssignRoleRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}

	role, err := h.repo.GetRoleByName(c.Request().Context(), req.Role)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errorJSON(c, http.StatusNotFound, "role not found")
		}
		return errorJSON(c, http.StatusInternalServerError, "failed to load role")
	}

	if _, err := h.repo.GetUserByID(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errorJSON(c, http.StatusNotFound, "user not found")
		}
		return errorJSON(c, http.StatusInternalServerError, "failed to load user")
	}

	if err := h.repo.AssignRole(c.Request().Context(), id, role.ID); err != nil {
		return errorJSON(c, http.StatusInternalServerError, "failed to assign role")
	}

	h.audit.Record(c.Request().Context(), actor.ID, models.AuditRoleAssigned, "user", id, role.Name)

	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// RevokeRole removes the named role from a user.
func (h *AdminHandlers) RevokeRole(c echo.Context) error {
	actor := auth.GetUser(c.Request().Context())

	id, err := userID(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid user id")
	}

	role, err := h.repo.GetRoleByName(c.Request().Context(), c.Param("role"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errorJSON(c, http.StatusNotFound, "role not found")
		}
		return errorJSON(c, http.StatusInternalServerError, "failed to load role")
	}

	if err := h.repo.RevokeRole(c.Request().Context(), id, role.ID); err != nil {
		return errorJSON(c, http.StatusInternalServerError, "failed to revoke role")
	}

	h.audit.Record(c.Request().Context(), actor.ID, models.AuditRoleRevoked, "user", id, role.Name)

	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// AuditLog returns audit entries matching the query filters.
func (h *AdminHandlers) AuditLog(c echo.Context) error {
	filter := repository.AuditFilter{
		Action: c.QueryParam("action"),
		Limit:  100,
	}
	if actor := c.QueryParam("actor_id"); actor != "" {
		id, err := strconv.ParseInt(actor, 10, 64)
		if err != nil {
			return errorJSON(c, http.StatusBadRequest, "invalid actor_id")
		}
		filter.ActorID = id
	}
	if limit := c.QueryParam("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 || n > 1000 {
			return errorJSON(c, http.StatusBadRequest, "invalid limit")
		}
		filter.Limit = n
	}

	entries, err := h.audit.List(c.Request().Context(), filter)
	if err != nil {
		slog.Error("audit_list_failed", "error", err)
		return errorJSON(c, http.StatusInternalServerError, "failed to list audit log")
	}

	return c.JSON(http.StatusOK, map[string]any{"entries": entries})
}
