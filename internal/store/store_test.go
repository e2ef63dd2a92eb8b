package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesAndReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.db")

	s1, err := Open(path)
	require.NoError(t, err)
	writeTestRun(t, s1, "run-1")
	require.NoError(t, s1.Close())

	_, err = os.Stat(path)
	require.NoError(t, err, "database file created")

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	var runs int
	require.NoError(t, s2.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&runs))
	assert.Equal(t, 1, runs, "data survives reopen")
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "log.db"))
	assert.Error(t, err)
}

func TestClose_Twice(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"},
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.pragma, func(t *testing.T) {
			got, err := s.pragma(tt.pragma)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSchema_Columns(t *testing.T) {
	s := createMemoryStore(t)

	tests := []struct {
		table string
		want  []string
	}{
		{"runs", []string{"id", "scenario_name", "scenario_hash", "scenario", "step_ms", "until_ms", "engine_version", "ir_version"}},
		{"firings", []string{"run_id", "seq", "tick", "story_id", "policy", "digest"}},
		{"actuations", []string{"run_id", "seq", "idx", "vehicle", "effect", "value", "outcome", "error"}},
	}
	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			assert.Equal(t, tt.want, tableColumns(t, s.db, tt.table))
		})
	}
}

func TestConstraint_FiringNeedsRun(t *testing.T) {
	s := createTestStore(t)

	_, err := s.db.Exec(`
		INSERT INTO firings (run_id, seq, tick, story_id, policy, digest)
		VALUES ('missing-run', 1, 0, 'evw', 'single-shot', 'x')
	`)
	assert.Error(t, err, "foreign key violation")
}

func TestConstraint_ActuationNeedsFiring(t *testing.T) {
	s := createTestStore(t)
	writeTestRun(t, s, "run-1")

	_, err := s.db.Exec(`
		INSERT INTO actuations (run_id, seq, idx, vehicle, effect, value, outcome)
		VALUES ('run-1', 7, 0, 'car', 'signal', 'EVW', 'applied')
	`)
	assert.Error(t, err, "foreign key violation")
}

func TestMigrate_FreshDatabase(t *testing.T) {
	s := createMemoryStore(t)

	version, err := s.pragma("user_version")
	require.NoError(t, err)
	assert.Equal(t, "1", version)
	assert.Equal(t, 1, schemaVersion())
	assert.Contains(t, tableIndexes(t, s.db, "firings"), "idx_firings_story")
}

func TestMigrate_UpgradesOldDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")

	// A version 0 log: base tables only.
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(schemaSQL)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	version, err := s.pragma("user_version")
	require.NoError(t, err)
	assert.Equal(t, "1", version)
	assert.Contains(t, tableIndexes(t, s.db, "firings"), "idx_firings_story")
}

func TestMigrate_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.db")
	for range 3 {
		s, err := Open(path)
		require.NoError(t, err)
		version, err := s.pragma("user_version")
		require.NoError(t, err)
		assert.Equal(t, "1", version)
		require.NoError(t, s.Close())
	}
}

func tableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM pragma_table_info(?) ORDER BY cid", table)
	require.NoError(t, err)
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		cols = append(cols, name)
	}
	require.NoError(t, rows.Err())
	return cols
}

func tableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = ?", table)
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	return names
}
