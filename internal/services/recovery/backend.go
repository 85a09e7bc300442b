// Copyright 2026 The SecureFlow Authors
// Licensed under the EUPL-1.2

package recovery

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/secureflow/secureflow/internal/repository"
	"github.com/secureflow/secureflow/internal/services/auth"
	"github.com/secureflow/secureflow/internal/services/security"
)

// StoreBackend implements Backend over the local repository and services.
type StoreBackend struct {
	repo     *repository.Repository
	security *security.Service
	auth     *auth.Service
}

// NewStoreBackend creates the production recovery backend.
func NewStoreBackend(repo *repository.Repository, sec *security.Service, authSvc *auth.Service) *StoreBackend {
	return &StoreBackend{repo: repo, security: sec, auth: authSvc}
}

// ResolveAccount looks up the account for an email and the security
// questions it has configured, in configuration order.
func (b *StoreBackend) ResolveAccount(ctx context.Context, email string) (int64, []Question, error) {
	user, err := b.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, nil, ErrNoAccount
		}
		return 0, nil, fmt.Errorf("failed to resolve account: %w", err)
	}

	configured, err := b.security.QuestionsForUser(ctx, user.ID)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to load questions: %w", err)
	}
	if len(configured) == 0 {
		return 0, nil, ErrNoQuestions
	}

	questions := make([]Question, len(configured))
	for i, q := range configured {
		questions[i] = Question{ID: q.ID, Text: q.Text}
	}
	return user.ID, questions, nil
}

// VerifyAnswers delegates to the security service's hash verification.
func (b *StoreBackend) VerifyAnswers(ctx context.Context, accountID int64, answers map[int64]string) (bool, error) {
	return b.security.VerifyAnswers(ctx, accountID, answers)
}

// UpdateCredential sets the account's new password. Policy rejections
// are translated so the wizard can show the user why the password was
// refused.
func (b *StoreBackend) UpdateCredential(ctx context.Context, accountID int64, newPassword string) error {
	err := b.auth.SetPassword(ctx, accountID, newPassword)

	var pwErr *auth.PasswordValidationError
	if errors.As(err, &pwErr) {
		return &PolicyError{Reason: strings.Join(pwErr.Messages(), " ")}
	}
	return err
}
