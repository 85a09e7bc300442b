// Copyright 2026 The SecureFlow Authors
// Licensed under the EUPL-1.2

package repository

import (
	"context"

	"github.com/secureflow/secureflow/internal/models"
)

// ListSecurityQuestions returns the full question catalog in catalog order.
func (r *Repository) ListSecurityQuestions(ctx context.Context) ([]models.SecurityQuestion, error) {
	var questions []models.SecurityQuestion
	if err := r.db.SelectContext(ctx, &questions, `SELECT * FROM security_questions ORDER BY id`); err != nil {
		return nil, err
	}
	return questions, nil
}

// GetSecurityQuestionsForUser returns the questions a user has configured
// answers for, in the order they were configured.
func (r *Repository) GetSecurityQuestionsForUser(ctx context.Context, userID int64) ([]models.SecurityQuestion, error) {
	var questions []models.SecurityQuestion
	err := r.db.SelectContext(ctx, &questions,
		`SELECT q.id, q.question_text, q.category
		 FROM security_questions q
		 JOIN security_answers a ON a.question_id = q.id
		 WHERE a.user_id = ?
		 ORDER BY a.id`, userID)
	if err != nil {
		return nil, err
	}
	return questions, nil
}

// GetSecurityAnswers returns the stored answer hashes for a user.
func (r *Repository) GetSecurityAnswers(ctx context.Context, userID int64) ([]models.SecurityAnswer, error) {
	var answers []models.SecurityAnswer
	err := r.db.SelectContext(ctx, &answers,
		`SELECT * FROM security_answers WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	return answers, nil
}

// ReplaceSecurityAnswers atomically replaces all of a user's answer hashes.
func (r *Repository) ReplaceSecurityAnswers(ctx context.Context, userID int64, answers []models.SecurityAnswer) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM security_answers WHERE user_id = ?`, userID); err != nil {
		return err
	}
	for _, a := range answers {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO security_answers (user_id, question_id, answer_hash) VALUES (?, ?, ?)`,
			userID, a.QuestionID, a.AnswerHash)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// HasSecurityAnswers checks whether a user has any security answers on file.
func (r *Repository) HasSecurityAnswers(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM security_answers WHERE user_id = ?)`, userID)
	return exists, err
}
