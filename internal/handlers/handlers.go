// Copyright 2026 The SecureFlow Authors
// Licensed under the EUPL-1.2

// Package handlers contains the JSON HTTP handlers for the SecureFlow API.
package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/secureflow/secureflow/internal/repository"
)

// Handlers contains handlers without a domain of their own.
type Handlers struct {
	repo *repository.Repository
}

// New creates a new Handlers instance.
func New(repo *repository.Repository) *Handlers {
	return &Handlers{repo: repo}
}

// Health returns the health status.
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// errorJSON is the single error shape returned by all handlers.
func errorJSON(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]string{"error": message})
}
