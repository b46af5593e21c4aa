package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestPeriodCommands(t *testing.T) {
	// GIVEN: A fresh database file
	db := filepath.Join(t.TempDir(), "ledger.db")

	// WHEN: Two months are created and the first one closed
	out, err := run(t, "period", "create", "2024-11", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "created 2024-11")

	_, err = run(t, "period", "create", "2024-12", "--db", db)
	require.NoError(t, err)

	out, err = run(t, "period", "close", "2024-11", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "closed 2024-11")

	// THEN: The listing shows both with their status
	out, err = run(t, "period", "list", "--db", db)
	require.NoError(t, err)
	assert.Regexp(t, `2024-11\s+closed`, out)
	assert.Regexp(t, `2024-12\s+open`, out)
}

func TestPeriodCommands_Errors(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")

	_, err := run(t, "period", "create", "November", "--db", db)
	assert.ErrorContains(t, err, "use YYYY-MM")

	_, err = run(t, "period", "close", "2024-11", "--db", db)
	assert.ErrorContains(t, err, "accounting period not found")

	_, err = run(t, "period", "create", "2024-11", "--db", db)
	require.NoError(t, err)
	_, err = run(t, "period", "create", "2025-01", "--db", db)
	assert.ErrorContains(t, err, "must immediately follow")
}
