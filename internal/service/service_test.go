package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jask/policyqa/internal/backend"
	"github.com/jask/policyqa/internal/database"
	"github.com/jask/policyqa/internal/database/repository"
	"github.com/jask/policyqa/internal/document"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeBackend struct {
	answer    backend.Answer
	err       error
	queries   []string
	uploads   []string
	uploadErr error
	receipt   backend.UploadReceipt
	bodies    [][]byte
}

func (f *fakeBackend) ProcessQuery(_ context.Context, text string) (backend.Answer, error) {
	f.queries = append(f.queries, text)
	return f.answer, f.err
}

func (f *fakeBackend) UploadPDF(_ context.Context, name, _ string, r io.Reader) (backend.UploadReceipt, error) {
	f.uploads = append(f.uploads, name)
	body, _ := io.ReadAll(r)
	f.bodies = append(f.bodies, body)
	return f.receipt, f.uploadErr
}

func openHistory(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.OpenMigrated(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestQueryServiceAskRecordsHistory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openHistory(t)
	repo := repository.NewQueryRepo(db)
	fb := &fakeBackend{answer: backend.Answer{RequestID: "req-7", Result: backend.QueryResult{
		Decision:      "Approved",
		Justification: "Covered under clause 4.2",
		PolicyClauses: []string{"Clause 4.2", "Clause 7.1"},
	}}}
	svc := &QueryService{Backend: fb, Queries: repo, Logger: quietLogger}

	ans, err := svc.Ask(ctx, "Is knee surgery covered?")
	require.NoError(t, err)
	require.Equal(t, "Approved", ans.Result.Decision)
	require.Equal(t, []string{"Is knee surgery covered?"}, fb.queries)

	recs, err := repo.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "Is knee surgery covered?", recs[0].QueryText)
	require.Equal(t, []string{"Clause 4.2", "Clause 7.1"}, recs[0].PolicyClauses)
	require.Equal(t, "req-7", *recs[0].RequestID)
}

func TestQueryServiceAskFailureNotRecorded(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := repository.NewQueryRepo(openHistory(t))
	boom := errors.New("boom")
	svc := &QueryService{Backend: &fakeBackend{err: boom}, Queries: repo, Logger: quietLogger}

	_, err := svc.Ask(ctx, "Is knee surgery covered?")
	require.ErrorIs(t, err, boom)
	n, err := repo.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestQueryServiceHistoryFailureDoesNotMaskAnswer(t *testing.T) {
	t.Parallel()

	db := openHistory(t)
	repo := repository.NewQueryRepo(db)
	require.NoError(t, db.Close())

	svc := &QueryService{Backend: &fakeBackend{answer: backend.Answer{Result: backend.QueryResult{Decision: "Approved"}}}, Queries: repo, Logger: quietLogger}
	ans, err := svc.Ask(context.Background(), "anything")
	require.NoError(t, err)
	require.Equal(t, "Approved", ans.Result.Decision)
}

func TestQueryServiceWithoutHistory(t *testing.T) {
	t.Parallel()

	svc := &QueryService{Backend: &fakeBackend{answer: backend.Answer{Result: backend.QueryResult{Decision: "Approved"}}}}
	ans, err := svc.Ask(context.Background(), "anything")
	require.NoError(t, err)
	require.Equal(t, "Approved", ans.Result.Decision)
}

func TestUploadServiceSendsFileAndRecords(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4\n%%EOF\n"), 0o644))
	sel, err := document.Select(path)
	require.NoError(t, err)

	repo := repository.NewUploadRepo(openHistory(t))
	fb := &fakeBackend{receipt: backend.UploadReceipt{RequestID: "req-u", Status: 200, Message: "PDF processed and indexed successfully."}}
	svc := &UploadService{Backend: fb, Uploads: repo, Logger: quietLogger}

	receipt, err := svc.Upload(ctx, sel)
	require.NoError(t, err)
	require.Equal(t, 200, receipt.Status)
	require.Equal(t, []string{"policy.pdf"}, fb.uploads)
	require.Equal(t, "%PDF-1.4\n%%EOF\n", string(fb.bodies[0]))

	recs, err := repo.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "policy.pdf", recs[0].FileName)
	require.Equal(t, "application/pdf", recs[0].MediaType)
}

func TestUploadServiceNoSelection(t *testing.T) {
	t.Parallel()

	fb := &fakeBackend{}
	svc := &UploadService{Backend: fb}
	_, err := svc.Upload(context.Background(), document.Selection{})
	require.ErrorIs(t, err, backend.ErrNoFile)
	require.Empty(t, fb.uploads)
}

func TestUploadServiceBackendError(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "policy.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))
	sel, err := document.Select(path)
	require.NoError(t, err)

	repo := repository.NewUploadRepo(openHistory(t))
	apiErr := &backend.APIError{Op: "upload", Status: 500}
	svc := &UploadService{Backend: &fakeBackend{uploadErr: apiErr}, Uploads: repo, Logger: quietLogger}

	_, err = svc.Upload(context.Background(), sel)
	require.ErrorIs(t, err, apiErr)
	recs, err := repo.List(context.Background(), 0)
	require.NoError(t, err)
	require.Empty(t, recs)
}

func seedQueries(t *testing.T, repo *repository.QueryRepo, texts ...string) {
	t.Helper()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, text := range texts {
		require.NoError(t, repo.Insert(context.Background(), repository.QueryRecord{
			ID:            text,
			QueryText:     text,
			Decision:      "Approved",
			Justification: "ok",
			PolicyClauses: []string{"Clause " + text},
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}))
	}
}

func TestHistorySimilarRanksByDistance(t *testing.T) {
	t.Parallel()

	repo := repository.NewQueryRepo(openHistory(t))
	seedQueries(t, repo,
		"Is dental treatment covered?",
		"Is knee surgery covered?",
		"hip replacement in Mumbai",
	)
	svc := &HistoryService{Queries: repo}

	got, err := svc.Similar(context.Background(), "is KNEE surgery  covered", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "Is knee surgery covered?", got[0].Record.QueryText)
	require.Zero(t, got[0].Distance)
	require.Equal(t, "Is dental treatment covered?", got[1].Record.QueryText)
	require.Greater(t, got[1].Distance, 0.0)
}

func TestHistoryRecentOrder(t *testing.T) {
	t.Parallel()

	repo := repository.NewQueryRepo(openHistory(t))
	seedQueries(t, repo, "first", "second", "third")
	svc := &HistoryService{Queries: repo}

	got, err := svc.Recent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "third", got[0].QueryText)
	require.Equal(t, "second", got[1].QueryText)
}

func TestHistoryGetByID(t *testing.T) {
	t.Parallel()

	repo := repository.NewQueryRepo(openHistory(t))
	seedQueries(t, repo, "Is knee surgery covered?")
	svc := &HistoryService{Queries: repo}

	rec, err := svc.Get(context.Background(), " Is knee surgery covered? ")
	require.NoError(t, err)
	require.Equal(t, []string{"Clause Is knee surgery covered?"}, rec.PolicyClauses)

	_, err = svc.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrQueryNotFound)
}

func TestHistoryUploadsNewestFirst(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := repository.NewUploadRepo(openHistory(t))
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	for i, name := range []string{"old.pdf", "new.pdf"} {
		require.NoError(t, repo.Insert(ctx, repository.UploadRecord{
			ID:        name,
			FileName:  name,
			MediaType: "application/pdf",
			SizeBytes: int64(100 * (i + 1)),
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}
	svc := &HistoryService{UploadRepo: repo}

	got, err := svc.Uploads(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "new.pdf", got[0].FileName)
	require.Equal(t, int64(200), got[0].SizeBytes)

	_, err = (&HistoryService{}).Uploads(ctx, 1)
	require.ErrorIs(t, err, ErrHistoryDisabled)
}

func TestHistoryDisabled(t *testing.T) {
	t.Parallel()

	var svc *HistoryService
	_, err := svc.Recent(context.Background(), 10)
	require.ErrorIs(t, err, ErrHistoryDisabled)
	_, err = (&HistoryService{}).Similar(context.Background(), "x", 1)
	require.ErrorIs(t, err, ErrHistoryDisabled)
}

func TestQueryDistance(t *testing.T) {
	t.Parallel()

	require.Zero(t, queryDistance("", ""))
	require.Zero(t, queryDistance("knee surgery", "is knee surgery covered"))
	require.Equal(t, 1.0, queryDistance("abc", "xyz"))
	require.InDelta(t, 0.25, queryDistance("abcd", "abcx"), 1e-9)
}

func TestHistoryExportXLSX(t *testing.T) {
	t.Parallel()

	repo := repository.NewQueryRepo(openHistory(t))
	seedQueries(t, repo, "Is knee surgery covered?", "Is dental treatment covered?")
	svc := &HistoryService{Queries: repo}

	var buf bytes.Buffer
	n, err := svc.ExportXLSX(context.Background(), &buf)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	require.Equal(t, []string{"Queries"}, f.GetSheetList())
	rows, err := f.GetRows("Queries")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, "Query", rows[0][1])
	require.Equal(t, "Is dental treatment covered?", rows[1][1])
	require.Equal(t, "Approved", rows[2][2])
}

func TestMaintenanceReset(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openHistory(t)
	repo := repository.NewQueryRepo(db)
	seedQueries(t, repo, "one", "two")

	require.NoError(t, (&MaintenanceService{DB: db}).Reset(ctx))
	n, err := repo.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	err = (&MaintenanceService{}).Reset(ctx)
	require.ErrorIs(t, err, ErrHistoryDisabled)
}
