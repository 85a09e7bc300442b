// Copyright 2026 The SecureFlow Authors
// Licensed under the EUPL-1.2

// Package security manages security questions and their Argon2id answer
// hashes. Answers are normalized (trimmed, lowercased) before hashing so
// verification is case-insensitive; plaintext answers are never stored and
// never compared outside of the hash verification below.
package security

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/secureflow/secureflow/internal/models"
	"github.com/secureflow/secureflow/internal/repository"
)

// MinAnswers is the number of answers required during first-time setup.
const MinAnswers = 3

// Argon2id parameters.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	saltLen      = 16
)

var (
	ErrTooFewAnswers   = errors.New("too few security answers")
	ErrEmptyAnswer     = errors.New("security answer must not be empty")
	ErrUnknownQuestion = errors.New("unknown security question")
	ErrMalformedHash   = errors.New("malformed answer hash")
)

// AnswerInput is a transient user-entered answer submitted during setup.
type AnswerInput struct {
	QuestionID int64  `json:"question_id"`
	Answer     string `json:"answer"`
}

// Service manages security question answers for users.
type Service struct {
	repo *repository.Repository
}

// NewService creates a new security service.
func NewService(repo *repository.Repository) *Service {
	return &Service{repo: repo}
}

// Questions returns the full question catalog.
func (s *Service) Questions(ctx context.Context) ([]models.SecurityQuestion, error) {
	return s.repo.ListSecurityQuestions(ctx)
}

// QuestionsForUser returns the questions a user has configured, in
// configuration order.
func (s *Service) QuestionsForUser(ctx context.Context, userID int64) ([]models.SecurityQuestion, error) {
	return s.repo.GetSecurityQuestionsForUser(ctx, userID)
}

// HasAnswers reports whether a user has completed security-question setup.
func (s *Service) HasAnswers(ctx context.Context, userID int64) (bool, error) {
	return s.repo.HasSecurityAnswers(ctx, userID)
}

// SetupAnswers replaces a user's security answers with the submitted set.
// Requires at least MinAnswers non-empty answers to catalog questions.
func (s *Service) SetupAnswers(ctx context.Context, userID int64, inputs []AnswerInput) error {
	if len(inputs) < MinAnswers {
		return ErrTooFewAnswers
	}

	catalog, err := s.repo.ListSecurityQuestions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load question catalog: %w", err)
	}
	known := make(map[int64]bool, len(catalog))
	for _, q := range catalog {
		known[q.ID] = true
	}

	answers := make([]models.SecurityAnswer, 0, len(inputs))
	seen := make(map[int64]bool, len(inputs))
	for _, in := range inputs {
		if Normalize(in.Answer) == "" {
			return ErrEmptyAnswer
		}
		if !known[in.QuestionID] || seen[in.QuestionID] {
			return ErrUnknownQuestion
		}
		seen[in.QuestionID] = true

		hash, err := HashAnswer(in.Answer)
		if err != nil {
			return fmt.Errorf("failed to hash answer: %w", err)
		}
		answers = append(answers, models.SecurityAnswer{
			UserID:     userID,
			QuestionID: in.QuestionID,
			AnswerHash: hash,
		})
	}

	return s.repo.ReplaceSecurityAnswers(ctx, userID, answers)
}

// VerifyAnswers checks a submitted answer set against the user's stored
// hashes. Every configured question must have a matching answer; the result
// is all-or-nothing and does not reveal which answer failed. Every stored
// hash is verified even after a mismatch so response time does not depend
// on which answer was wrong.
func (s *Service) VerifyAnswers(ctx context.Context, userID int64, submitted map[int64]string) (bool, error) {
	stored, err := s.repo.GetSecurityAnswers(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to load stored answers: %w", err)
	}
	if len(stored) == 0 {
		return false, nil
	}

	ok := true
	for _, ans := range stored {
		given, present := submitted[ans.QuestionID]
		if !present {
			ok = false
			given = ""
		}
		if !VerifyHash(given, ans.AnswerHash) {
			ok = false
		}
	}
	return ok, nil
}

// Normalize trims whitespace and lowercases an answer for comparison.
func Normalize(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}

// HashAnswer hashes a normalized answer with Argon2id and a random salt.
func HashAnswer(answer string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(Normalize(answer)), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// VerifyHash checks a plaintext answer against an encoded Argon2id hash.
func VerifyHash(answer, encoded string) bool {
	salt, key, memory, time, threads, err := decodeHash(encoded)
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(Normalize(answer)), salt, time, memory, threads, uint32(len(key))) //nolint:gosec // key length is bounded
	return subtle.ConstantTimeCompare(computed, key) == 1
}

func decodeHash(encoded string) (salt, key []byte, memory, time uint32, threads uint8, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, nil, 0, 0, 0, ErrMalformedHash
	}

	var version int
	if _, err = fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, nil, 0, 0, 0, ErrMalformedHash
	}
	if _, err = fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return nil, nil, 0, 0, 0, ErrMalformedHash
	}

	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, 0, 0, 0, ErrMalformedHash
	}
	key, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, 0, 0, 0, ErrMalformedHash
	}

	return salt, key, memory, time, threads, nil
}
