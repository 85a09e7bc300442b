// Copyright 2026 The SecureFlow Authors
// Licensed under the EUPL-1.2

package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/secureflow/secureflow/internal/auth"
	"github.com/secureflow/secureflow/internal/config"
	"github.com/secureflow/secureflow/internal/models"
	"github.com/secureflow/secureflow/internal/repository"
	"github.com/secureflow/secureflow/internal/services/audit"
	authsvc "github.com/secureflow/secureflow/internal/services/auth"
	"github.com/secureflow/secureflow/internal/services/identity"
	"github.com/secureflow/secureflow/internal/services/recovery"
	"github.com/secureflow/secureflow/internal/services/security"
	"github.com/secureflow/secureflow/internal/services/session"
	"github.com/secureflow/secureflow/internal/sse"
	"github.com/secureflow/secureflow/internal/testutil"
)

const testHashKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

// env wires a full handler stack over an in-memory database.
type env struct {
	e          *echo.Echo
	repo       *repository.Repository
	auth       *authsvc.Service
	authConfig *config.AuthConfig
	security   *security.Service
	recovery   *recovery.Service
	audit      *audit.Service
	gate       *identity.Gate
	sessions   *session.Manager
	hub        *sse.Hub
}

func newEnv(t *testing.T) *env {
	t.Helper()

	_, repo := testutil.NewTestDB(t)

	authConfig := &config.AuthConfig{
		MinPasswordLength: 6,
		RegistrationOpen:  true,
	}
	authSvc := authsvc.NewService(repo, authConfig)
	securitySvc := security.NewService(repo)
	auditSvc := audit.NewService(repo)
	gate := identity.NewGate(securitySvc, false)
	recoverySvc := recovery.NewService(recovery.NewStoreBackend(repo, securitySvc, authSvc), 6)

	sessions, err := session.NewManager(&config.SessionConfig{
		CookieName: "_secureflow_session",
		MaxAge:     3600,
		HashKey:    testHashKey,
	}, false)
	require.NoError(t, err)

	e := echo.New()
	return &env{
		e:          e,
		repo:       repo,
		auth:       authSvc,
		authConfig: authConfig,
		security:   securitySvc,
		recovery:   recoverySvc,
		audit:      auditSvc,
		gate:       gate,
		sessions:   sessions,
		hub:        sse.NewHub(),
	}
}

// request builds an echo context with a JSON body and, when user is
// non-nil, an authenticated request context.
func (env *env) request(t *testing.T, user *models.User, method, path string, body any) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	c, rec := testutil.NewEchoContext(env.e, method, path, &buf)
	if user != nil {
		ctx := auth.SetUser(c.Request().Context(), user)
		c.SetRequest(c.Request().WithContext(ctx))
	}
	return c, rec
}

// decode unmarshals a JSON response body into out.
func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}
