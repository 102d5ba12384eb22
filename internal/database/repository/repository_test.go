package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/policyqa/internal/database"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.OpenMigrated(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestQueryRepoInsertListGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewQueryRepo(openTestDB(t))

	base := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)
	reqID := "req-1"
	first := QueryRecord{
		ID:            "q1",
		QueryText:     "Is knee surgery covered?",
		Decision:      "Approved",
		Justification: "Covered under clause 4.2",
		PolicyClauses: []string{"Clause 4.2", "Clause 7.1"},
		RequestID:     &reqID,
		CreatedAt:     base,
	}
	second := QueryRecord{
		ID:            "q2",
		QueryText:     "46M knee surgery Pune 3 month policy",
		Decision:      "Rejected",
		Justification: "Knee surgery is subject to a 24-month waiting period.",
		ParsedInfo:    map[string]any{"age": "46", "location": "Pune"},
		CreatedAt:     base.Add(time.Minute),
	}
	require.NoError(t, repo.Insert(ctx, first))
	require.NoError(t, repo.Insert(ctx, second))

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	list, err := repo.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "q2", list[0].ID)
	require.Equal(t, []string{}, list[0].PolicyClauses)
	require.Equal(t, "Pune", list[0].ParsedInfo["location"])
	require.Nil(t, list[0].RequestID)
	require.Equal(t, "q1", list[1].ID)
	require.Equal(t, []string{"Clause 4.2", "Clause 7.1"}, list[1].PolicyClauses)
	require.NotNil(t, list[1].RequestID)
	require.Equal(t, "req-1", *list[1].RequestID)
	require.True(t, base.Equal(list[1].CreatedAt))

	limited, err := repo.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)

	got, err := repo.Get(ctx, "q1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "Approved", got.Decision)

	missing, err := repo.Get(ctx, "nope")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestUploadRepoInsertList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewUploadRepo(openTestDB(t))

	msg := "PDF processed and indexed successfully."
	require.NoError(t, repo.Insert(ctx, UploadRecord{
		ID: "u1", FileName: "policy.pdf", MediaType: "application/pdf", SizeBytes: 1024,
		Message: &msg, CreatedAt: time.Date(2026, 2, 3, 9, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, repo.Insert(ctx, UploadRecord{
		ID: "u2", FileName: "rider.pdf", MediaType: "application/pdf", SizeBytes: 2048,
		CreatedAt: time.Date(2026, 2, 3, 9, 5, 0, 0, time.UTC),
	}))

	list, err := repo.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "rider.pdf", list[0].FileName)
	require.Nil(t, list[0].Message)
	require.Equal(t, msg, *list[1].Message)
	require.Equal(t, int64(1024), list[1].SizeBytes)
}

func TestQueryRecordTitle(t *testing.T) {
	t.Parallel()

	q := QueryRecord{QueryText: "  Is knee surgery\n covered\tin Pune?\n"}
	require.Equal(t, "Is knee surgery covered in Pune?", q.Title())
}
