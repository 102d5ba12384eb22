package main

import (
	"bytes"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jask/policyqa/internal/stub"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	fixtures, err := stub.DefaultFixtures()
	require.NoError(t, err)
	srv := httptest.NewServer(stub.NewServer(fixtures, stub.Options{}, slog.New(slog.NewTextHandler(io.Discard, nil))).Echo())
	t.Cleanup(srv.Close)

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("POLICYQA_CONFIG", "")
	t.Setenv("POLICYQA_BACKEND_BASE_URL", srv.URL)
	t.Setenv("POLICYQA_HISTORY_PATH", filepath.Join(home, "history.db"))
	t.Setenv("POLICYQA_LOG_LEVEL", "error")
	return home
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestAskPrintsDecisionAndRecordsHistory(t *testing.T) {
	home := setupEnv(t)

	out, err := run(t, "", "ask", "Is", "knee", "surgery", "covered?")
	require.NoError(t, err)
	require.Equal(t, "Decision: Approved\nCovered under clause 4.2\n\nPolicy Clauses:\n  - Clause 4.2\n  - Clause 7.1\n", out)

	out, err = run(t, "dental checkup\n", "ask", "--json")
	require.NoError(t, err)
	require.Contains(t, out, `"decision": "Rejected"`)

	out, err = run(t, "", "history", "list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "dental checkup")
	require.Contains(t, lines[1], "Is knee surgery covered?")

	id := strings.Fields(lines[1])[0]
	out, err = run(t, "", "history", "show", id)
	require.NoError(t, err)
	require.Contains(t, out, "Query: Is knee surgery covered?\n")
	require.Contains(t, out, "Decision: Approved\n")
	require.Contains(t, out, "  - Clause 7.1\n")

	_, err = run(t, "", "history", "show", "no-such-id")
	require.ErrorContains(t, err, "query not found")

	out, err = run(t, "", "history", "list", "--similar", "knee surgery", "-n", "1")
	require.NoError(t, err)
	require.Contains(t, out, "Is knee surgery covered?")
	require.NotContains(t, out, "dental")

	xlsx := filepath.Join(home, "out.xlsx")
	out, err = run(t, "", "history", "export", xlsx)
	require.NoError(t, err)
	require.Contains(t, out, "exported 2 queries")
	f, err := excelize.OpenFile(xlsx)
	require.NoError(t, err)
	rows, err := f.GetRows("Queries")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.Len(t, rows, 3)

	_, err = run(t, "", "history", "clear")
	require.Error(t, err)
	_, err = run(t, "", "history", "clear", "--yes")
	require.NoError(t, err)
	out, err = run(t, "", "history", "list")
	require.NoError(t, err)
	require.Empty(t, strings.TrimSpace(out))
}

func TestAskEmptyQuery(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "\n", "ask")
	require.ErrorContains(t, err, "query text is empty")

	// whitespace is still a query and reaches the backend
	out, err := run(t, "   \n", "ask")
	require.NoError(t, err)
	require.Contains(t, out, "Decision: Needs Review")
}

func TestAskNoHistoryFlag(t *testing.T) {
	home := setupEnv(t)
	_, err := run(t, "", "--no-history", "ask", "knee surgery")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(home, "history.db"))
	require.True(t, os.IsNotExist(err))

	_, err = run(t, "", "--no-history", "history", "list")
	require.ErrorContains(t, err, "history is disabled")
}

func TestUploadCommand(t *testing.T) {
	home := setupEnv(t)
	path := filepath.Join(home, "policy.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4\n%%EOF\n"), 0o644))

	out, err := run(t, "", "upload", path)
	require.NoError(t, err)
	require.Equal(t, "PDF uploaded successfully!\n", out)

	txt := filepath.Join(home, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("hello"), 0o644))
	_, err = run(t, "", "upload", txt)
	require.ErrorContains(t, err, "upload failed: server returned 400: uploaded file is not a PDF")

	out, err = run(t, "", "history", "uploads")
	require.NoError(t, err)
	require.Contains(t, out, "policy.pdf")
	require.NotContains(t, out, "notes.txt")
}

func TestUnreachableBackend(t *testing.T) {
	setupEnv(t)
	t.Setenv("POLICYQA_BACKEND_BASE_URL", "http://127.0.0.1:1")
	_, err := run(t, "", "ask", "anything")
	require.ErrorContains(t, err, "query failed: backend unreachable")
}

func TestConfigInit(t *testing.T) {
	home := setupEnv(t)
	path := filepath.Join(home, "cfg", "config.toml")
	t.Setenv("POLICYQA_CONFIG", path)

	// an explicit path must exist for Load, so seed it first
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := run(t, "", "config", "init")
	require.ErrorContains(t, err, "already exists")

	out, err := run(t, "", "config", "init", "--force")
	require.NoError(t, err)
	require.Contains(t, out, "wrote "+path)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(raw), "base_url")
}
