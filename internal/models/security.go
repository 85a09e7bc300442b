// Copyright 2026 The SecureFlow Authors
// Licensed under the EUPL-1.2

package models

import "time"

// Question categories group the catalog in the setup wizard.
const (
	QuestionCategoryPersonal  = "personal"
	QuestionCategoryWork      = "work"
	QuestionCategoryFavorites = "favorites"
)

// SecurityQuestion is an entry in the question catalog. Reference data,
// seeded by migration and never modified at runtime.
type SecurityQuestion struct {
	ID       int64  `db:"id" json:"id"`
	Text     string `db:"question_text" json:"question_text"`
	Category string `db:"category" json:"category"`
}

// SecurityAnswer stores the Argon2id hash of a user's normalized answer.
// The plaintext answer never touches the database.
type SecurityAnswer struct { //nolint:govet // fieldalignment: readability over optimization
	ID         int64     `db:"id" json:"id"`
	UserID     int64     `db:"user_id" json:"user_id"`
	QuestionID int64     `db:"question_id" json:"question_id"`
	AnswerHash string    `db:"answer_hash" json:"-"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
