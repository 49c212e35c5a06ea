package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestRepo(t *testing.T) *CommandRepository {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	return NewCommandRepository(db)
}

func TestRecentReturnsNewestFirst(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)

	for i, name := range []string{"start_watch", "clear_events", "stop_watch"} {
		require.NoError(t, repo.Create(ctx, &CommandRecord{
			ID:        uuid.NewString(),
			Command:   name,
			Success:   true,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	records, err := repo.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "stop_watch", records[0].Command)
	assert.Equal(t, "clear_events", records[1].Command)
}

func TestDeleteOlderThan(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Create(ctx, &CommandRecord{ID: uuid.NewString(), Command: "old", CreatedAt: now.Add(-48 * time.Hour)}))
	require.NoError(t, repo.Create(ctx, &CommandRecord{ID: uuid.NewString(), Command: "new", CreatedAt: now}))

	deleted, err := repo.DeleteOlderThan(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	records, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "new", records[0].Command)
}
