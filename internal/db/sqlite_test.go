package db

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		mode       string
		wantTxLock bool
	}{
		{"write", true},
		{"read", false},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			dsn := buildDSN("/tmp/spend.sqlite", tt.mode)

			assert.True(t, strings.HasPrefix(dsn, "/tmp/spend.sqlite?"))
			assert.Contains(t, dsn, "_journal_mode=WAL")
			assert.Contains(t, dsn, "_busy_timeout=5000")
			assert.Contains(t, dsn, "_synchronous=NORMAL")
			if tt.wantTxLock {
				assert.Contains(t, dsn, "_txlock=immediate")
			} else {
				assert.NotContains(t, dsn, "_txlock")
			}
		})
	}
}

func TestOpenSQLite_InvalidMode(t *testing.T) {
	_, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"), "invalid", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid SQLite mode")
}

func TestOpenSQLite_Pools(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	w, err := OpenSQLite(path, "write", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	assert.Equal(t, 1, w.Stats().MaxOpenConnections)

	var journalMode string
	require.NoError(t, w.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", strings.ToLower(journalMode))

	r, err := OpenSQLite(path, "read", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	assert.Equal(t, 4, r.Stats().MaxOpenConnections)
}

func TestOpenSQLite_InvalidPath(t *testing.T) {
	_, err := OpenSQLite("/nonexistent/dir/test.db", "write", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping sqlite")
}

func TestOpenLedger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "spend.sqlite")

	db, err := OpenLedger(path)
	require.NoError(t, err)

	v, err := SchemaVersion(db)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM spend_ledger").Scan(&n))
	assert.Zero(t, n)
	require.NoError(t, db.Close())

	// reopening an up to date ledger is a no-op
	db, err = OpenLedger(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestOpenLedger_EmptyPath(t *testing.T) {
	_, err := OpenLedger("")
	assert.Error(t, err)
}
