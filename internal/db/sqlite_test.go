package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMigrationsIsIdempotent(t *testing.T) {
	database, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "focus.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	applied, err := RunMigrations(database)
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_kv.sql"}, applied)

	applied, err = RunMigrations(database)
	require.NoError(t, err)
	assert.Empty(t, applied)

	var count int
	require.NoError(t, database.QueryRow(`SELECT COUNT(1) FROM kv`).Scan(&count))
	assert.Zero(t, count)
}
