// Copyright 2026 The SecureFlow Authors
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/secureflow/secureflow/internal/database"
	"github.com/secureflow/secureflow/internal/models"
	"github.com/secureflow/secureflow/internal/repository"
)

// NewTestDB creates an in-memory SQLite database for tests.
// Returns both the database connection and the repository for convenience.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	repo := repository.New(db)
	return db, repo
}

// NewTestUser creates a test user with the password "sw0rdfish-pw".
func NewTestUser(t *testing.T, repo *repository.Repository, email string) *models.User {
	t.Helper()
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("sw0rdfish-pw"), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		Email:        email,
		DisplayName:  "Test User",
		PasswordHash: string(hash),
	}
	require.NoError(t, repo.CreateUser(ctx, user))
	return user
}

// NewTestIncident creates an open incident reported by the given user.
func NewTestIncident(t *testing.T, repo *repository.Repository, reporterID int64, title string) *models.Incident {
	t.Helper()
	ctx := context.Background()

	inc := &models.Incident{
		Title:       title,
		Description: "test incident",
		Severity:    models.SeverityMedium,
		Status:      models.StatusOpen,
		ReporterID:  reporterID,
	}
	require.NoError(t, repo.CreateIncident(ctx, inc))
	return inc
}

// NewEchoContext creates an Echo context for handler tests.
func NewEchoContext(e *echo.Echo, method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}
