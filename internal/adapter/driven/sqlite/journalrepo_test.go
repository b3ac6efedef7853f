package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docflow/pipectl/internal/domain/port/driven"
)

func TestJournalRecordAndRecent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewJournalRepo(db)
	ctx := context.Background()

	err := repo.Record(ctx, driven.JournalEntry{
		Operation:  "create",
		PipelineID: "p-123",
		StatusCode: 201,
		Outcome:    "created",
	})
	require.NoError(t, err)

	entries, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.NotEmpty(t, e.ID, "id assigned by the adapter")
	assert.Equal(t, "create", e.Operation)
	assert.Equal(t, "p-123", e.PipelineID)
	assert.Equal(t, 201, e.StatusCode)
	assert.Equal(t, "created", e.Outcome)
	assert.False(t, e.CreatedAt.IsZero())
}

func TestJournalRecentNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	repo := NewJournalRepo(db)
	ctx := context.Background()

	base := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	for i, op := range []string{"token", "create", "trigger"} {
		err := repo.Record(ctx, driven.JournalEntry{
			Operation: op,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	entries, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "trigger", entries[0].Operation)
	assert.Equal(t, "token", entries[2].Operation)
}

func TestJournalRecentLimit(t *testing.T) {
	db := setupTestDB(t)
	repo := NewJournalRepo(db)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Record(ctx, driven.JournalEntry{Operation: "trigger"}))
	}

	entries, err := repo.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestJournalRecentEmpty(t *testing.T) {
	db := setupTestDB(t)
	repo := NewJournalRepo(db)

	entries, err := repo.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
