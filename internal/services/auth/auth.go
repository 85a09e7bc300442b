// Copyright 2026 The SecureFlow Authors
// Licensed under the EUPL-1.2

// Package auth implements password authentication and account management.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"

	"golang.org/x/crypto/bcrypt"

	"github.com/secureflow/secureflow/internal/config"
	"github.com/secureflow/secureflow/internal/models"
	"github.com/secureflow/secureflow/internal/repository"
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRegistrationClosed = errors.New("registration is closed")
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrLastAdmin          = errors.New("cannot remove the last admin")
)

// dummyHash is used for constant-time login to prevent timing attacks
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), bcrypt.DefaultCost)

type Service struct {
	repo              *repository.Repository
	config            *config.AuthConfig
	passwordValidator *PasswordValidator
}

func NewService(repo *repository.Repository, cfg *config.AuthConfig) *Service {
	return &Service{
		repo:              repo,
		config:            cfg,
		passwordValidator: NewPasswordValidator(cfg.MinPasswordLength),
	}
}

// PasswordValidator returns the password validator for use in handlers.
func (s *Service) PasswordValidator() *PasswordValidator {
	return s.passwordValidator
}

// RegisterParams holds the parameters for user registration.
type RegisterParams struct {
	Email       string
	DisplayName string
	Password    string
	IsAdmin     bool
	// Invited marks accounts created by an administrator, which are
	// allowed even when self-registration is closed.
	Invited bool
}

// Register creates a new user account.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*models.User, error) {
	if _, err := mail.ParseAddress(params.Email); err != nil {
		return nil, ErrInvalidEmail
	}

	if !s.config.RegistrationOpen && !params.Invited {
		return nil, ErrRegistrationClosed
	}

	validation := s.passwordValidator.Validate(params.Password, params.Email)
	if !validation.Valid {
		return nil, &PasswordValidationError{Errors: validation.Errors}
	}

	_, err := s.repo.GetUserByEmail(ctx, params.Email)
	if err == nil {
		return nil, ErrUserExists
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        params.Email,
		DisplayName:  params.DisplayName,
		PasswordHash: string(passwordHash),
		IsAdmin:      params.IsAdmin,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("register_success", "user_id", user.ID, "email", params.Email)

	return user, nil
}

// Login authenticates a user and returns the user if successful.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Constant-time: always perform bcrypt comparison to prevent timing attacks
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			slog.Warn("login_failed", "email", email, "reason", "user_not_found")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		slog.Warn("login_failed", "email", email, "reason", "invalid_password")
		return nil, ErrInvalidCredentials
	}

	slog.Info("login_success", "user_id", user.ID, "email", email)
	return user, nil
}

// ChangePassword changes a user's password when they know their current password.
func (s *Service) ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return ErrInvalidCredentials
	}

	return s.SetPassword(ctx, userID, newPassword)
}

// SetPassword validates and stores a new password without checking the old
// one. Callers must have verified the user's identity through another
// channel, such as the recovery flow.
func (s *Service) SetPassword(ctx context.Context, userID int64, newPassword string) error {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	validation := s.passwordValidator.Validate(newPassword, user.Email)
	if !validation.Valid {
		return &PasswordValidationError{Errors: validation.Errors}
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.repo.UpdateUserPassword(ctx, userID, string(passwordHash)); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	slog.Info("password_updated", "user_id", userID)
	return nil
}

// SetAdmin sets or removes admin status for a user. The last admin's flag
// cannot be removed.
func (s *Service) SetAdmin(ctx context.Context, userID int64, isAdmin bool) error {
	if !isAdmin {
		user, err := s.repo.GetUserByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to get user: %w", err)
		}
		if user.IsAdmin {
			count, err := s.repo.CountAdmins(ctx)
			if err != nil {
				return fmt.Errorf("failed to count admins: %w", err)
			}
			if count <= 1 {
				return ErrLastAdmin
			}
		}
	}
	return s.repo.SetUserAdmin(ctx, userID, isAdmin)
}

// EnsureAdmin ensures at least one admin exists, creating one if needed.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) error {
	count, err := s.repo.CountAdmins(ctx)
	if err != nil {
		return fmt.Errorf("failed to count admins: %w", err)
	}
	if count > 0 {
		return nil
	}

	_, err = s.Register(ctx, RegisterParams{
		Email:    email,
		Password: password,
		IsAdmin:  true,
		Invited:  true,
	})
	if errors.Is(err, ErrUserExists) {
		existing, getErr := s.repo.GetUserByEmail(ctx, email)
		if getErr != nil {
			return fmt.Errorf("failed to get user: %w", getErr)
		}
		return s.SetAdmin(ctx, existing.ID, true)
	}
	if err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}
	return nil
}
