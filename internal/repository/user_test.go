// Copyright 2026 The SecureFlow Authors
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secureflow/secureflow/internal/models"
	"github.com/secureflow/secureflow/internal/repository"
	"github.com/secureflow/secureflow/internal/testutil"
)

func TestCreateUser(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := &models.User{
		Email:        "casey@example.com",
		DisplayName:  "Casey",
		PasswordHash: "hash",
	}
	require.NoError(t, repo.CreateUser(ctx, user))
	assert.NotZero(t, user.ID)

	got, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "casey@example.com", got.Email)
	assert.Equal(t, "Casey", got.DisplayName)
	assert.False(t, got.IsAdmin)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	testutil.NewTestUser(t, repo, "casey@example.com")

	err := repo.CreateUser(ctx, &models.User{
		Email:        "casey@example.com",
		PasswordHash: "hash",
	})
	require.Error(t, err)
}

func TestGetUserByEmail(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "casey@example.com")

	got, err := repo.GetUserByEmail(ctx, "casey@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestGetUser_NotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	_, err := repo.GetUserByID(ctx, 9999)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestListUsers(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	testutil.NewTestUser(t, repo, "first@example.com")
	testutil.NewTestUser(t, repo, "second@example.com")

	users, err := repo.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)

	// Newest first.
	assert.Equal(t, "second@example.com", users[0].Email)
	assert.Equal(t, "first@example.com", users[1].Email)
}

func TestDeleteUser(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "casey@example.com")
	require.NoError(t, repo.DeleteUser(ctx, user.ID))

	_, err := repo.GetUserByID(ctx, user.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCountAdmins(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	count, err := repo.CountAdmins(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	user := testutil.NewTestUser(t, repo, "admin@example.com")
	testutil.NewTestUser(t, repo, "analyst@example.com")
	require.NoError(t, repo.SetUserAdmin(ctx, user.ID, true))

	count, err = repo.CountAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestUpdateUserPassword(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "casey@example.com")
	require.NoError(t, repo.UpdateUserPassword(ctx, user.ID, "new-hash"))

	got, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)
}

func TestSetUserAdmin(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "casey@example.com")
	require.NoError(t, repo.SetUserAdmin(ctx, user.ID, true))

	got, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, got.IsAdmin)

	require.NoError(t, repo.SetUserAdmin(ctx, user.ID, false))
	got, err = repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, got.IsAdmin)
}
