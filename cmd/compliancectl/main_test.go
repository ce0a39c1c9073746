package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketingops/internal/domain/auth"
	"marketingops/internal/domain/compliance"
	"marketingops/internal/platform/archive"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("CONFIG_FILE", "")
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")

	out, err := execute(t, "token", "--user-id", "ops-bot", "--role", auth.RoleAnalyst)
	require.NoError(t, err)

	claims, err := auth.ParseToken("cli-secret", strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "ops-bot", claims.UserID)
	assert.Equal(t, auth.RoleAnalyst, claims.RoleName)
}

func TestTokenCommandRejectsUnknownRole(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")
	_, err := execute(t, "token", "--role", "root")
	require.Error(t, err)
}

func TestArchiveCountAndPrune(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.db")
	t.Setenv("ARCHIVE_DRIVER", "sqlite")
	t.Setenv("ARCHIVE_SQLITE_PATH", path)

	sink, err := archive.OpenSQLite(path, "test")
	require.NoError(t, err)
	require.NoError(t, sink.Archive(context.Background(), "content", map[string]any{"id": "c1"}))
	require.NoError(t, sink.Archive(context.Background(), "brand", map[string]any{"id": "b1"}))
	require.NoError(t, sink.Close())

	out, err := execute(t, "archive", "count")
	require.NoError(t, err)
	assert.Equal(t, "2", strings.TrimSpace(out))

	out, err = execute(t, "archive", "count", "--entity-type", "brand")
	require.NoError(t, err)
	assert.Equal(t, "1", strings.TrimSpace(out))

	_, err = execute(t, "archive", "prune")
	require.Error(t, err)

	out, err = execute(t, "archive", "prune", "--older-than", "1h")
	require.NoError(t, err)
	assert.Contains(t, out, "pruned 0")
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, &compliance.RetentionReport{
		Results: []compliance.PolicyResult{
			{EntityType: "content", Status: "success", RecordsProcessed: 3, RecordsArchived: 3},
			{EntityType: "brand", Status: "error", Error: "boom"},
		},
		TotalProcessed: 3,
		TotalArchived:  3,
	})
	assert.Contains(t, buf.String(), "content")
	assert.Contains(t, buf.String(), "boom")
	assert.Contains(t, buf.String(), "Total: 3 processed, 3 archived, 0 deleted")

	buf.Reset()
	printReport(&buf, &compliance.RetentionReport{})
	assert.Equal(t, "No retention policies matched.\n", buf.String())
}

func TestPrintPurgeSorted(t *testing.T) {
	var buf bytes.Buffer
	printPurge(&buf, map[string]int64{"user": 2, "content": 1})
	assert.Equal(t, "content: 1 purged\nuser: 2 purged\n", buf.String())
}

func TestSweepNeedsPostgres(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	_, err := execute(t, "sweep")
	require.Error(t, err)
}
