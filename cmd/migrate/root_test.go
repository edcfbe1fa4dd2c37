package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateCommandAppliesSchema(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "data", "focus.db")
	cfgPath := filepath.Join(dir, "focusbubble.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("storage:\n  type: sqlite\n  path: "+dbPath+"\n"), 0o600))

	var logs bytes.Buffer
	rootCmd.SetErr(&logs)
	rootCmd.SetArgs([]string{"--config", cfgPath})
	t.Cleanup(func() {
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	_, err := os.Stat(dbPath)
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "0001_kv.sql")

	logs.Reset()
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, logs.String(), "Migrations applied")
	assert.NotContains(t, logs.String(), "0001_kv.sql")
}

func TestMigrateCommandSkipsOtherStorage(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "focusbubble.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("storage:\n  type: memory\n"), 0o600))

	var logs bytes.Buffer
	rootCmd.SetErr(&logs)
	rootCmd.SetArgs([]string{"-c", cfgPath})
	t.Cleanup(func() {
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, logs.String(), "has no migrations")
}
