package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"create capital pools", "create_capital_pools"},
		{"Create-Funding-Records", "create_funding_records"},
		{"CREATE_INVOICES", "create_invoices"},
		{"add__outbox__events", "add_outbox_events"},
		{"Add Index 123", "add_index_123"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	tmpDir := t.TempDir()

	mf, err := CreateMigration(tmpDir, "create capital pools", "Capital pool and share holder tables")
	require.NoError(t, err)
	require.NotNil(t, mf)

	// Version is a YYYYMMDDHHMMSS timestamp
	assert.Len(t, mf.Version, 14)
	assert.True(t, strings.HasSuffix(mf.UpPath, ".up.sql"))
	assert.True(t, strings.HasSuffix(mf.DownPath, ".down.sql"))

	upBase := strings.TrimSuffix(filepath.Base(mf.UpPath), ".up.sql")
	downBase := strings.TrimSuffix(filepath.Base(mf.DownPath), ".down.sql")
	assert.Equal(t, upBase, downBase)

	// Both files exist and carry the header comment
	upContent, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(upContent), "create capital pools")

	_, err = os.Stat(mf.DownPath)
	require.NoError(t, err)
}

func TestListMigrations(t *testing.T) {
	tmpDir := t.TempDir()

	// Empty directory yields an empty list
	migrations, err := ListMigrations(tmpDir)
	require.NoError(t, err)
	assert.Empty(t, migrations)

	// Missing directory is not an error
	migrations, err = ListMigrations(filepath.Join(tmpDir, "missing"))
	require.NoError(t, err)
	assert.Empty(t, migrations)

	for _, name := range []string{
		"20250101000001_create_capital_pools.up.sql",
		"20250101000001_create_capital_pools.down.sql",
		"20250101000002_create_invoices.up.sql",
		"20250101000002_create_invoices.down.sql",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, name), []byte("-- sql"), 0644))
	}

	migrations, err = ListMigrations(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"20250101000001_create_capital_pools",
		"20250101000002_create_invoices",
	}, migrations)
}
