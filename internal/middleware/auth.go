// Copyright 2026 The SecureFlow Authors
// Licensed under the EUPL-1.2

// Package middleware provides Echo middleware for session handling and
// access control.
package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/secureflow/secureflow/internal/auth"
	"github.com/secureflow/secureflow/internal/models"
	"github.com/secureflow/secureflow/internal/services/identity"
	"github.com/secureflow/secureflow/internal/services/session"
)

// UserLoader is an interface for loading full user data.
type UserLoader interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// LoadUser validates the session cookie and loads the user into the
// request context. Requests without a valid session pass through
// unauthenticated.
func LoadUser(sessions *session.Manager, loader UserLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sessionUser, err := sessions.Validate(c.Request())
			if err != nil {
				return next(c)
			}

			user, err := loader.GetUserByID(c.Request().Context(), sessionUser.ID)
			if err != nil {
				// Stale cookie for a deleted user; drop the session.
				c.SetCookie(sessions.Clear())
				return next(c)
			}

			ctx := auth.SetUser(c.Request().Context(), user)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// RequireAuth rejects unauthenticated requests.
func RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !auth.IsAuthenticated(c.Request().Context()) {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		}
		return next(c)
	}
}

// RequireAdmin rejects requests from non-admin users.
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user := auth.GetUser(c.Request().Context())
		if user == nil || !user.IsAdmin {
			return c.JSON(http.StatusForbidden, map[string]string{"error": "admin access required"})
		}
		return next(c)
	}
}

// RequireSetupComplete blocks dashboard access until the identity gate
// clears the user. The gate caches its decision per login session.
func RequireSetupComplete(gate *identity.Gate) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := auth.GetUser(c.Request().Context())
			if user != nil && gate.NeedsSetup(c.Request().Context(), user.ID) {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "security setup required"})
			}
			return next(c)
		}
	}
}
