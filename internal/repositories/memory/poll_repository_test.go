package memory

import (
	"context"
	"testing"
	"time"

	"poll-service/internal/models"
	"poll-service/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollRepositoryIsolatesCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewPollRepository()
	poll := &models.Poll{ID: "p1", Options: []models.Option{{ID: "a", Votes: 1}}}

	_, err := repo.Save(ctx, poll)
	require.NoError(t, err)

	poll.Options[0].Votes = 100

	loaded, err := repo.Load(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Options[0].Votes)

	loaded.Options[0].Votes = 50
	again, err := repo.Load(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, again.Options[0].Votes)
}

func TestPollRepositoryNotFound(t *testing.T) {
	repo := NewPollRepository()

	_, err := repo.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	_, err = repo.SoftDelete(context.Background(), "missing", time.Now())
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestPollRepositorySoftDeleteKeepsVotes(t *testing.T) {
	ctx := context.Background()
	repo := NewPollRepository()
	_, err := repo.Save(ctx, &models.Poll{ID: "p1", Options: []models.Option{{ID: "a", Votes: 2}}})
	require.NoError(t, err)

	at := time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC)
	deleted, err := repo.SoftDelete(ctx, "p1", at)

	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted)
	require.NotNil(t, deleted.DeletedAt)
	assert.Equal(t, at, *deleted.DeletedAt)
	assert.Equal(t, 2, deleted.Options[0].Votes)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsDeleted)
}
