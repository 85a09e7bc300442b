// Copyright 2026 The SecureFlow Authors
// Licensed under the EUPL-1.2

package handlers_test

import (
	"context"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secureflow/secureflow/internal/handlers"
	"github.com/secureflow/secureflow/internal/models"
	"github.com/secureflow/secureflow/internal/testutil"
)

func newAdminEnv(t *testing.T) (*env, *handlers.AdminHandlers, *models.User) {
	t.Helper()
	env := newEnv(t)
	h := handlers.NewAdmin(env.repo, env.auth, env.audit)

	admin := testutil.NewTestUser(t, env.repo, "admin@example.com")
	require.NoError(t, env.repo.SetUserAdmin(context.Background(), admin.ID, true))
	admin.IsAdmin = true
	return env, h, admin
}

func TestAdminListUsers(t *testing.T) {
	env, h, admin := newAdminEnv(t)
	testutil.NewTestUser(t, env.repo, "analyst@example.com")

	c, rec := env.request(t, admin, http.MethodGet, "/api/admin/users", nil)
	require.NoError(t, h.ListUsers(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Users []models.User `json:"users"`
	}
	decode(t, rec, &resp)
	assert.Len(t, resp.Users, 2)
}

func TestAdminCreateUser(t *testing.T) {
	env, h, admin := newAdminEnv(t)

	c, rec := env.request(t, admin, http.MethodPost, "/api/admin/users", handlers.CreateUserRequest{
		Email:       "responder@example.com",
		DisplayName: "Robin",
		Password:    "tr0ub4dor-and-3",
	})
	require.NoError(t, h.CreateUser(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var user models.User
	decode(t, rec, &user)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "responder@example.com", user.Email)
	assert.False(t, user.IsAdmin)
}

func TestAdminCreateUser_BypassesClosedRegistration(t *testing.T) {
	env, h, admin := newAdminEnv(t)
	env.authConfig.RegistrationOpen = false

	c, rec := env.request(t, admin, http.MethodPost, "/api/admin/users", handlers.CreateUserRequest{
		Email:    "invited@example.com",
		Password: "tr0ub4dor-and-3",
	})
	require.NoError(t, h.CreateUser(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestAdminCreateUser_Duplicate(t *testing.T) {
	env, h, admin := newAdminEnv(t)
	testutil.NewTestUser(t, env.repo, "taken@example.com")

	c, rec := env.request(t, admin, http.MethodPost, "/api/admin/users", handlers.CreateUserRequest{
		Email:    "taken@example.com",
		Password: "tr0ub4dor-and-3",
	})
	require.NoError(t, h.CreateUser(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAdminDeleteUser(t *testing.T) {
	env, h, admin := newAdminEnv(t)
	victim := testutil.NewTestUser(t, env.repo, "leaving@example.com")

	c, rec := env.request(t, admin, http.MethodDelete, "/api/admin/users/:id", nil)
	c.SetParamNames("id")
	c.SetParamValues(strconv.FormatInt(victim.ID, 10))
	require.NoError(t, h.DeleteUser(c))
	require.Equal(t, http.StatusOK, rec.Code)

	_, err := env.repo.GetUserByID(context.Background(), victim.ID)
	require.Error(t, err)
}

func TestAdminDeleteUser_Guards(t *testing.T) {
	env, h, admin := newAdminEnv(t)

	t.Run("SelfDelete", func(t *testing.T) {
		c, rec := env.request(t, admin, http.MethodDelete, "/api/admin/users/:id", nil)
		c.SetParamNames("id")
		c.SetParamValues(strconv.FormatInt(admin.ID, 10))
		require.NoError(t, h.DeleteUser(c))
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("LastAdmin", func(t *testing.T) {
		second := testutil.NewTestUser(t, env.repo, "second@example.com")
		require.NoError(t, env.repo.SetUserAdmin(context.Background(), second.ID, true))
		require.NoError(t, env.repo.SetUserAdmin(context.Background(), admin.ID, false))

		// second is now the only admin left.
		c, rec := env.request(t, admin, http.MethodDelete, "/api/admin/users/:id", nil)
		c.SetParamNames("id")
		c.SetParamValues(strconv.FormatInt(second.ID, 10))
		require.NoError(t, h.DeleteUser(c))
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("NotFound", func(t *testing.T) {
		c, rec := env.request(t, admin, http.MethodDelete, "/api/admin/users/:id", nil)
		c.SetParamNames("id")
		c.SetParamValues("9999")
		require.NoError(t, h.DeleteUser(c))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAdminRoles(t *testing.T) {
	env, h, admin := newAdminEnv(t)
	user := testutil.NewTestUser(t, env.repo, "analyst@example.com")
	id := strconv.FormatInt(user.ID, 10)

	c, rec := env.request(t, admin, http.MethodGet, "/api/admin/roles", nil)
	require.NoError(t, h.ListRoles(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var catalog struct {
		Roles []models.Role `json:"roles"`
	}
	decode(t, rec, &catalog)
	assert.Len(t, catalog.Roles, 4)

	c, rec = env.request(t, admin, http.MethodPost, "/api/admin/users/:id/roles", handlers.AssignRoleRequest{
		Role: models.RoleAnalyst,
	})
	c.SetParamNames("id")
	c.SetParamValues(id)
	require.NoError(t, h.AssignRole(c))
	require.Equal(t, http.StatusOK, rec.Code)

	c, rec = env.request(t, admin, http.MethodGet, "/api/admin/users/:id/roles", nil)
	c.SetParamNames("id")
	c.SetParamValues(id)
	require.NoError(t, h.UserRoles(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var assigned struct {
		Roles []models.Role `json:"roles"`
	}
	decode(t, rec, &assigned)
	require.Len(t, assigned.Roles, 1)
	assert.Equal(t, models.RoleAnalyst, assigned.Roles[0].Name)

	c, rec = env.request(t, admin, http.MethodDelete, "/api/admin/users/:id/roles/:role", nil)
	c.SetParamNames("id", "role")
	c.SetParamValues(id, models.RoleAnalyst)
	require.NoError(t, h.RevokeRole(c))
	require.Equal(t, http.StatusOK, rec.Code)

	roles, err := env.repo.GetRolesForUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, roles)
}

func TestAdminAssignRole_Errors(t *testing.T) {
	env, h, admin := newAdminEnv(t)
	user := testutil.NewTestUser(t, env.repo, "analyst@example.com")

	t.Run("UnknownRole", func(t *testing.T) {
		c, rec := env.request(t, admin, http.MethodPost, "/api/admin/users/:id/roles", handlers.AssignRoleRequest{
			Role: "superuser",
		})
		c.SetParamNames("id")
		c.SetParamValues(strconv.FormatInt(user.ID, 10))
		require.NoError(t, h.AssignRole(c))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("UnknownUser", func(t *testing.T) {
		c, rec := env.request(t, admin, http.MethodPost, "/api/admin/users/:id/roles", handlers.AssignRoleRequest{
			Role: models.RoleViewer,
		})
		c.SetParamNames("id")
		c.SetParamValues("9999")
		require.NoError(t, h.AssignRole(c))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAdminAuditLog(t *testing.T) {
	env, h, admin := newAdminEnv(t)

	env.audit.Record(context.Background(), admin.ID, models.AuditIncidentCreated, "incident", 1, "")
	env.audit.Record(context.Background(), admin.ID, models.AuditIncidentResolved, "incident", 1, "")

	c, rec := env.request(t, admin, http.MethodGet, "/api/admin/audit", nil)
	require.NoError(t, h.AuditLog(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Entries []models.AuditLogEntry `json:"entries"`
	}
	decode(t, rec, &resp)
	assert.Len(t, resp.Entries, 2)

	c, rec = env.request(t, admin, http.MethodGet, "/api/admin/audit?action="+models.AuditIncidentResolved, nil)
	require.NoError(t, h.AuditLog(c))
	decode(t, rec, &resp)
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, models.AuditIncidentResolved, resp.Entries[0].Action)

	c, rec = env.request(t, admin, http.MethodGet, "/api/admin/audit?limit=0", nil)
	require.NoError(t, h.AuditLog(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
