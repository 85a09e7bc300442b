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

func TestCreateIncident(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "reporter@example.com")
	inc := testutil.NewTestIncident(t, repo, user.ID, "Suspicious login")
	assert.NotZero(t, inc.ID)

	got, err := repo.GetIncidentByID(ctx, inc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Suspicious login", got.Title)
	assert.Equal(t, models.StatusOpen, got.Status)
	assert.Equal(t, models.SeverityMedium, got.Severity)
	assert.Equal(t, user.ID, got.ReporterID)
	assert.Nil(t, got.AssigneeID)
	assert.Nil(t, got.ResolvedAt)
}

func TestGetIncident_NotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	_, err := repo.GetIncidentByID(ctx, 9999)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestListIncidents(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "reporter@example.com")
	testutil.NewTestIncident(t, repo, user.ID, "First incident")
	testutil.NewTestIncident(t, repo, user.ID, "Second incident")

	incidents, err := repo.ListIncidents(ctx, repository.IncidentFilter{})
	require.NoError(t, err)
	require.Len(t, incidents, 2)

	// Newest first.
	assert.Equal(t, "Second incident", incidents[0].Title)
	assert.Equal(t, "First incident", incidents[1].Title)
}

func TestListIncidents_Filters(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "reporter@example.com")
	assignee := testutil.NewTestUser(t, repo, "responder@example.com")

	open := testutil.NewTestIncident(t, repo, user.ID, "Phishing email reported")
	triaged := testutil.NewTestIncident(t, repo, user.ID, "Malware on workstation")
	require.NoError(t, repo.TriageIncident(ctx, triaged.ID, assignee.ID))

	critical := &models.Incident{
		Title:      "Data exfiltration detected",
		Severity:   models.SeverityCritical,
		Status:     models.StatusOpen,
		ReporterID: user.ID,
	}
	require.NoError(t, repo.CreateIncident(ctx, critical))

	t.Run("ByStatus", func(t *testing.T) {
		incidents, err := repo.ListIncidents(ctx, repository.IncidentFilter{Status: models.StatusTriaged})
		require.NoError(t, err)
		require.Len(t, incidents, 1)
		assert.Equal(t, triaged.ID, incidents[0].ID)
	})

	t.Run("BySeverity", func(t *testing.T) {
		incidents, err := repo.ListIncidents(ctx, repository.IncidentFilter{Severity: models.SeverityCritical})
		require.NoError(t, err)
		require.Len(t, incidents, 1)
		assert.Equal(t, critical.ID, incidents[0].ID)
	})

	t.Run("ByAssignee", func(t *testing.T) {
		incidents, err := repo.ListIncidents(ctx, repository.IncidentFilter{AssigneeID: assignee.ID})
		require.NoError(t, err)
		require.Len(t, incidents, 1)
		assert.Equal(t, triaged.ID, incidents[0].ID)
	})

	t.Run("BySearch", func(t *testing.T) {
		incidents, err := repo.ListIncidents(ctx, repository.IncidentFilter{Search: "phishing"})
		require.NoError(t, err)
		require.Len(t, incidents, 1)
		assert.Equal(t, open.ID, incidents[0].ID)
	})

	t.Run("Combined", func(t *testing.T) {
		incidents, err := repo.ListIncidents(ctx, repository.IncidentFilter{
			Status:   models.StatusOpen,
			Severity: models.SeverityMedium,
		})
		require.NoError(t, err)
		require.Len(t, incidents, 1)
		assert.Equal(t, open.ID, incidents[0].ID)
	})

	t.Run("NoMatch", func(t *testing.T) {
		incidents, err := repo.ListIncidents(ctx, repository.IncidentFilter{Search: "ransomware"})
		require.NoError(t, err)
		assert.Empty(t, incidents)
	})
}

func TestIncidentLifecycle(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "reporter@example.com")
	assignee := testutil.NewTestUser(t, repo, "responder@example.com")
	inc := testutil.NewTestIncident(t, repo, user.ID, "Suspicious login")

	require.NoError(t, repo.TriageIncident(ctx, inc.ID, assignee.ID))
	got, err := repo.GetIncidentByID(ctx, inc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusTriaged, got.Status)
	require.NotNil(t, got.AssigneeID)
	assert.Equal(t, assignee.ID, *got.AssigneeID)

	require.NoError(t, repo.ResolveIncident(ctx, inc.ID, "False alarm, VPN login from new device"))
	got, err = repo.GetIncidentByID(ctx, inc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, got.Status)
	assert.Equal(t, "False alarm, VPN login from new device", got.Resolution)
	assert.NotNil(t, got.ResolvedAt)

	require.NoError(t, repo.ReopenIncident(ctx, inc.ID))
	got, err = repo.GetIncidentByID(ctx, inc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOpen, got.Status)
	assert.Empty(t, got.Resolution)
	assert.Nil(t, got.ResolvedAt)
}

func TestDeleteIncident_CascadesComments(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "reporter@example.com")
	inc := testutil.NewTestIncident(t, repo, user.ID, "Suspicious login")

	comment := &models.IncidentComment{
		IncidentID: inc.ID,
		AuthorID:   user.ID,
		Body:       "Looking into this.",
	}
	require.NoError(t, repo.CreateComment(ctx, comment))

	require.NoError(t, repo.DeleteIncident(ctx, inc.ID))

	_, err := repo.GetIncidentByID(ctx, inc.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	comments, err := repo.ListComments(ctx, inc.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestComments(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "reporter@example.com")
	inc := testutil.NewTestIncident(t, repo, user.ID, "Suspicious login")

	first := &models.IncidentComment{IncidentID: inc.ID, AuthorID: user.ID, Body: "First note"}
	second := &models.IncidentComment{IncidentID: inc.ID, AuthorID: user.ID, Body: "Second note"}
	require.NoError(t, repo.CreateComment(ctx, first))
	require.NoError(t, repo.CreateComment(ctx, second))
	assert.NotZero(t, first.ID)

	comments, err := repo.ListComments(ctx, inc.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)

	// Oldest first.
	assert.Equal(t, "First note", comments[0].Body)
	assert.Equal(t, "Second note", comments[1].Body)

	got, err := repo.GetCommentByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "First note", got.Body)

	require.NoError(t, repo.DeleteComment(ctx, first.ID))
	_, err = repo.GetCommentByID(ctx, first.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
