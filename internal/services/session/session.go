// Copyright 2026 The SecureFlow Authors
// Licensed under the EUPL-1.2

// Package session implements signed cookie sessions on gorilla/securecookie.
package session

import (
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"

	"github.com/secureflow/secureflow/internal/config"
)

// SessionUser is the identity stored in a session cookie.
type SessionUser struct { //nolint:govet // fieldalignment not critical
	ID      int64  `json:"id"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
}

// Manager creates and validates session cookies.
type Manager struct { //nolint:govet // fieldalignment not critical
	codec      *securecookie.SecureCookie
	cookieName string
	maxAge     int
	secure     bool
}

// NewManager creates a session manager from the given config. The hash key
// must be a 32-byte hex string; if it is empty a random key is generated
// (sessions then do not survive restarts, acceptable for development).
// An optional block key of the same shape enables cookie encryption.
func NewManager(cfg *config.SessionConfig, secure bool) (*Manager, error) {
	hashKey, err := decodeKey(cfg.HashKey, "session hash key")
	if err != nil {
		return nil, err
	}
	if hashKey == nil {
		hashKey = securecookie.GenerateRandomKey(32)
	}

	blockKey, err := decodeKey(cfg.BlockKey, "session block key")
	if err != nil {
		return nil, err
	}

	codec := securecookie.New(hashKey, blockKey)
	codec.MaxAge(cfg.MaxAge)

	return &Manager{
		codec:      codec,
		cookieName: cfg.CookieName,
		maxAge:     cfg.MaxAge,
		secure:     secure,
	}, nil
}

func decodeKey(key, name string) ([]byte, error) {
	if key == "" {
		return nil, nil
	}
	decoded, err := hex.DecodeString(key)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", name, err)
	}
	if len(decoded) != 32 {
		return nil, fmt.Errorf("invalid %s: must be 32 bytes, got %d", name, len(decoded))
	}
	return decoded, nil
}

// Create returns a session cookie for the given user.
func (m *Manager) Create(user SessionUser) (*http.Cookie, error) {
	encoded, err := m.codec.Encode(m.cookieName, user)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session: %w", err)
	}

	return &http.Cookie{
		Name:     m.cookieName,
		Value:    encoded,
		Path:     "/",
		MaxAge:   m.maxAge,
		Expires:  time.Now().Add(time.Duration(m.maxAge) * time.Second),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// Validate decodes a session cookie and returns the stored user, or an
// error for missing, tampered or expired cookies.
func (m *Manager) Validate(r *http.Request) (*SessionUser, error) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil {
		return nil, err
	}

	var user SessionUser
	if err := m.codec.Decode(m.cookieName, cookie.Value, &user); err != nil {
		return nil, fmt.Errorf("invalid session cookie: %w", err)
	}
	return &user, nil
}

// Clear returns an expired cookie that removes the session.
func (m *Manager) Clear() *http.Cookie {
	return &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// CookieName returns the configured cookie name.
func (m *Manager) CookieName() string {
	return m.cookieName
}
