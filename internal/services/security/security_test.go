// Copyright 2026 The SecureFlow Authors
// Licensed under the EUPL-1.2

package security_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secureflow/secureflow/internal/services/security"
	"github.com/secureflow/secureflow/internal/testutil"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"Rex", "rex"},
		{"  rex  ", "rex"},
		{"  ReX\t", "rex"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, security.Normalize(tt.in))
	}
}

func TestHashAndVerify(t *testing.T) {
	hash, err := security.HashAnswer("Rex")
	require.NoError(t, err)
	assert.Contains(t, hash, "$argon2id$")

	// Verification is case- and whitespace-insensitive.
	assert.True(t, security.VerifyHash("rex", hash))
	assert.True(t, security.VerifyHash("  REX ", hash))
	assert.False(t, security.VerifyHash("felix", hash))
}

func TestHashAnswer_UniqueSalt(t *testing.T) {
	hash1, err := security.HashAnswer("rex")
	require.NoError(t, err)
	hash2, err := security.HashAnswer("rex")
	require.NoError(t, err)

	assert.NotEqual(t, hash1, hash2)
	assert.True(t, security.VerifyHash("rex", hash1))
	assert.True(t, security.VerifyHash("rex", hash2))
}

func TestVerifyHash_MalformedHash(t *testing.T) {
	assert.False(t, security.VerifyHash("rex", "not-a-hash"))
	assert.False(t, security.VerifyHash("rex", "$argon2id$v=19$garbage"))
	assert.False(t, security.VerifyHash("rex", ""))
}

func questionIDs(t *testing.T, svc *security.Service) []int64 {
	t.Helper()
	catalog, err := svc.Questions(context.Background())
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(catalog), security.MinAnswers)
	ids := make([]int64, len(catalog))
	for i, q := range catalog {
		ids[i] = q.ID
	}
	return ids
}

func TestSetupAnswers_TooFew(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := security.NewService(repo)
	user := testutil.NewTestUser(t, repo, "casey@example.com")
	ids := questionIDs(t, svc)

	err := svc.SetupAnswers(context.Background(), user.ID, []security.AnswerInput{
		{QuestionID: ids[0], Answer: "rex"},
		{QuestionID: ids[1], Answer: "graz"},
	})

	require.ErrorIs(t, err, security.ErrTooFewAnswers)
}

func TestSetupAnswers_EmptyAnswer(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := security.NewService(repo)
	user := testutil.NewTestUser(t, repo, "casey@example.com")
	ids := questionIDs(t, svc)

	err := svc.SetupAnswers(context.Background(), user.ID, []security.AnswerInput{
		{QuestionID: ids[0], Answer: "rex"},
		{QuestionID: ids[1], Answer: "   "},
		{QuestionID: ids[2], Answer: "initech"},
	})

	require.ErrorIs(t, err, security.ErrEmptyAnswer)
}

func TestSetupAnswers_UnknownQuestion(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := security.NewService(repo)
	user := testutil.NewTestUser(t, repo, "casey@example.com")
	ids := questionIDs(t, svc)

	err := svc.SetupAnswers(context.Background(), user.ID, []security.AnswerInput{
		{QuestionID: ids[0], Answer: "rex"},
		{QuestionID: ids[1], Answer: "graz"},
		{QuestionID: 99999, Answer: "initech"},
	})

	require.ErrorIs(t, err, security.ErrUnknownQuestion)
}

func TestSetupAnswers_DuplicateQuestion(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := security.NewService(repo)
	user := testutil.NewTestUser(t, repo, "casey@example.com")
	ids := questionIDs(t, svc)

	err := svc.SetupAnswers(context.Background(), user.ID, []security.AnswerInput{
		{QuestionID: ids[0], Answer: "rex"},
		{QuestionID: ids[0], Answer: "felix"},
		{QuestionID: ids[1], Answer: "graz"},
	})

	require.ErrorIs(t, err, security.ErrUnknownQuestion)
}

func setupThreeAnswers(t *testing.T, svc *security.Service, userID int64, ids []int64) {
	t.Helper()
	require.NoError(t, svc.SetupAnswers(context.Background(), userID, []security.AnswerInput{
		{QuestionID: ids[0], Answer: "Rex"},
		{QuestionID: ids[1], Answer: "Graz"},
		{QuestionID: ids[2], Answer: "Initech"},
	}))
}

func TestSetupAnswers_And_HasAnswers(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := security.NewService(repo)
	user := testutil.NewTestUser(t, repo, "casey@example.com")
	ids := questionIDs(t, svc)

	has, err := svc.HasAnswers(context.Background(), user.ID)
	require.NoError(t, err)
	assert.False(t, has)

	setupThreeAnswers(t, svc, user.ID, ids)

	has, err = svc.HasAnswers(context.Background(), user.ID)
	require.NoError(t, err)
	assert.True(t, has)

	questions, err := svc.QuestionsForUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Len(t, questions, 3)
}

func TestSetupAnswers_ReplacesExisting(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := security.NewService(repo)
	user := testutil.NewTestUser(t, repo, "casey@example.com")
	ids := questionIDs(t, svc)

	setupThreeAnswers(t, svc, user.ID, ids)

	// Re-run setup with different questions and answers.
	require.NoError(t, svc.SetupAnswers(context.Background(), user.ID, []security.AnswerInput{
		{QuestionID: ids[1], Answer: "new-one"},
		{QuestionID: ids[2], Answer: "new-two"},
		{QuestionID: ids[3], Answer: "new-three"},
	}))

	questions, err := svc.QuestionsForUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Len(t, questions, 3)

	ok, err := svc.VerifyAnswers(context.Background(), user.ID, map[int64]string{
		ids[1]: "new-one", ids[2]: "new-two", ids[3]: "new-three",
	})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyAnswers_AllCorrect_CaseInsensitive(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := security.NewService(repo)
	user := testutil.NewTestUser(t, repo, "casey@example.com")
	ids := questionIDs(t, svc)
	setupThreeAnswers(t, svc, user.ID, ids)

	ok, err := svc.VerifyAnswers(context.Background(), user.ID, map[int64]string{
		ids[0]: "  rex ",
		ids[1]: "GRAZ",
		ids[2]: "Initech",
	})

	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyAnswers_OneWrong_AllOrNothing(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := security.NewService(repo)
	user := testutil.NewTestUser(t, repo, "casey@example.com")
	ids := questionIDs(t, svc)
	setupThreeAnswers(t, svc, user.ID, ids)

	ok, err := svc.VerifyAnswers(context.Background(), user.ID, map[int64]string{
		ids[0]: "rex",
		ids[1]: "vienna",
		ids[2]: "initech",
	})

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyAnswers_MissingAnswer(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := security.NewService(repo)
	user := testutil.NewTestUser(t, repo, "casey@example.com")
	ids := questionIDs(t, svc)
	setupThreeAnswers(t, svc, user.ID, ids)

	ok, err := svc.VerifyAnswers(context.Background(), user.ID, map[int64]string{
		ids[0]: "rex",
		ids[1]: "graz",
	})

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyAnswers_NoAnswersConfigured(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := security.NewService(repo)
	user := testutil.NewTestUser(t, repo, "casey@example.com")

	ok, err := svc.VerifyAnswers(context.Background(), user.ID, map[int64]string{1: "rex"})

	require.NoError(t, err)
	assert.False(t, ok)
}
