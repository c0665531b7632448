package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := Open(t.TempDir(), DefaultOpenOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func TestOpen_CreatesSchema(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()

	st, err := Status(ctx, database.Conn())
	require.NoError(t, err)
	assert.Empty(t, st.Pending)
	assert.Equal(t, st.Latest, st.Current)

	for _, table := range []string{"objectives", "key_results", "check_ins", "comments", "users", "notifications", "kv_store"} {
		_, err = database.Conn().ExecContext(ctx, "SELECT 1 FROM "+table+" LIMIT 0")
		require.NoError(t, err, "%s table should exist", table)
	}
}

func TestMigrateUp_Idempotent(t *testing.T) {
	database := openTestDB(t)
	assert.NoError(t, migrateUp(context.Background(), database.Conn()))
}

func TestMigrateUp_RejectsNewerDatabase(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()

	_, err := database.Conn().ExecContext(ctx,
		"INSERT INTO schema_migrations (version, name, applied_at) VALUES (9999, 'future', 1)")
	require.NoError(t, err)

	err = migrateUp(ctx, database.Conn())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "9999")
}

func TestMigrateDown_KeepsEarlierTables(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()
	conn := database.Conn()

	_, err := conn.ExecContext(ctx, `
		INSERT INTO objectives (id, title, created_at, updated_at)
		VALUES ('obj-1', 'Grow', 1, 1)
	`)
	require.NoError(t, err)

	require.NoError(t, MigrateDown(ctx, conn, 1))

	_, err = conn.ExecContext(ctx, "SELECT 1 FROM kv_store LIMIT 0")
	require.Error(t, err, "kv_store should not exist after down migration")

	var count int
	require.NoError(t, conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM objectives").Scan(&count))
	assert.Equal(t, 1, count)

	st, err := Status(ctx, conn)
	require.NoError(t, err)
	require.Len(t, st.Pending, 1)
	assert.Equal(t, "kv_store", st.Pending[0].Name)
	assert.Equal(t, st.Latest-1, st.Current)

	latest, err := LatestVersion(ctx, conn)
	require.NoError(t, err)
	assert.Equal(t, st.Current, latest)

	// Reapplying restores the schema.
	require.NoError(t, migrateUp(ctx, conn))
	_, err = conn.ExecContext(ctx, "SELECT 1 FROM kv_store LIMIT 0")
	require.NoError(t, err)
}

func TestMigrateDown_Bounds(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()

	migrations, err := loadMigrations()
	require.NoError(t, err)

	assert.Error(t, MigrateDown(ctx, database.Conn(), 0))
	assert.Error(t, MigrateDown(ctx, database.Conn(), -1))
	assert.Error(t, MigrateDown(ctx, database.Conn(), len(migrations)+1))
}

func TestLoadMigrations(t *testing.T) {
	migrations, err := loadMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	for i, m := range migrations {
		if i > 0 {
			assert.Greater(t, m.Version, migrations[i-1].Version)
		}
		assert.NotEmpty(t, m.UpSQL, "migration %d up", m.Version)
		assert.NotEmpty(t, m.DownSQL, "migration %d down", m.Version)
		assert.NotEmpty(t, m.Name, "migration %d name", m.Version)
	}
}

func TestParseFilename(t *testing.T) {
	tests := []struct {
		filename      string
		wantVersion   int
		wantName      string
		wantDirection string
		wantErr       bool
	}{
		{"0001_init.up.sql", 1, "init", "up", false},
		{"0001_init.down.sql", 1, "init", "down", false},
		{"0002_kr_comments.up.sql", 2, "kr_comments", "up", false},
		{"0100_big_version.down.sql", 100, "big_version", "down", false},
		{"bad.sql", 0, "", "", true},
		{"0001_init.sql", 0, "", "", true},
		{"0000_zero.up.sql", 0, "", "", true},
		{"-1_negative.up.sql", 0, "", "", true},
		{"abc_notnumber.up.sql", 0, "", "", true},
		{"0001_.up.sql", 0, "", "", true},
		{"0001.up.sql", 0, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, direction, err := parseFilename(tt.filename)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantVersion, version)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantDirection, direction)
		})
	}
}
