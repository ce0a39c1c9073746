package db

import (
	"os"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationVersionsSortedAndFiltered(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_indexes.sql":    {Data: []byte("SELECT 1")},
		"0001_compliance.sql": {Data: []byte("SELECT 1")},
		"README.md":           {Data: []byte("notes")},
		"archive/0003.sql":    {Data: []byte("SELECT 1")},
	}

	versions, err := migrationVersions(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_compliance", "0002_indexes"}, versions)
}

func TestMigrationVersionsRepoMigrations(t *testing.T) {
	versions, err := migrationVersions(os.DirFS("../../../migrations"))
	require.NoError(t, err)
	assert.Contains(t, versions, "0001_compliance")
}

// A hard delete in one swept table must not remove rows of another.
func TestSweptTablesHaveNoCascadingForeignKeys(t *testing.T) {
	schema, err := os.ReadFile("../../../migrations/0001_compliance.sql")
	require.NoError(t, err)
	assert.NotContains(t, string(schema), "ON DELETE CASCADE")
	assert.Contains(t, string(schema), "content_id UUID REFERENCES content(id) ON DELETE SET NULL")
}
