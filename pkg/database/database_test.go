package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smouldering-durtles/wk-search/pkg/config"
)

func TestSQLiteDSNAppliesPragmas(t *testing.T) {
	dsn, err := sqliteDSN(config.DatabaseConfig{Path: "/tmp/wk.db", BusyTimeout: 2 * time.Second, WAL: true})
	require.NoError(t, err)
	assert.Contains(t, dsn, "_pragma=foreign_keys%281%29")
	assert.Contains(t, dsn, "busy_timeout%282000%29")
	assert.Contains(t, dsn, "journal_mode%28WAL%29")

	mem, err := sqliteDSN(config.DatabaseConfig{Path: ":memory:", WAL: true})
	require.NoError(t, err)
	assert.NotContains(t, mem, "journal_mode")

	_, err = sqliteDSN(config.DatabaseConfig{Path: "  "})
	assert.Error(t, err)
}

func TestNewSQLiteMigratesIdempotently(t *testing.T) {
	ctx := context.Background()
	cfg := config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "store.db"), WAL: true, BusyTimeout: time.Second}

	db, err := NewSQLite(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, Migrate(ctx, db))

	var version int
	require.NoError(t, db.GetContext(ctx, &version, `PRAGMA user_version`))
	assert.Equal(t, schemaVersion, version)

	var tables []string
	require.NoError(t, db.SelectContext(ctx, &tables, `SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name`))
	assert.Equal(t, []string{"properties", "subject_search_keys", "subjects"}, tables)
	require.NoError(t, db.Close())
}

func TestHandleOpensLazilyAndCloses(t *testing.T) {
	ctx := context.Background()
	h := NewHandle(config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "store.db")})

	first, err := h.DB(ctx)
	require.NoError(t, err)
	second, err := h.DB(ctx)
	require.NoError(t, err)
	assert.Same(t, first, second)

	require.NoError(t, h.Close())
	_, err = h.DB(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, h.Close())
}
