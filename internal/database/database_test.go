package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookshelf/internal/entities"
)

func setupTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := NewQuietDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNewDatabase_MigratesTables(t *testing.T) {
	db := setupTestDB(t)

	for _, table := range []string{"profiles", "shelves", "shelf_memberships", "user_books", "book_snapshots"} {
		assert.True(t, db.DB.Migrator().HasTable(table), "missing table %s", table)
	}
	assert.NoError(t, db.Ping())
}

func TestNewDatabase_EnablesForeignKeys(t *testing.T) {
	db := setupTestDB(t)

	var enabled int
	require.NoError(t, db.DB.Raw("PRAGMA foreign_keys").Scan(&enabled).Error)
	assert.Equal(t, 1, enabled)
}

func TestEnsureLocalProfile_Idempotent(t *testing.T) {
	db := setupTestDB(t)

	first, err := db.EnsureLocalProfile()
	require.NoError(t, err)
	assert.Equal(t, LocalProfileID, first.ID)

	second, err := db.EnsureLocalProfile()
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	db.DB.Model(&entities.Profile{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestWithForeignKeys(t *testing.T) {
	assert.Equal(t, "a.db?_foreign_keys=on", withForeignKeys("a.db"))
	assert.Equal(t, "a.db?mode=rwc&_foreign_keys=on", withForeignKeys("a.db?mode=rwc"))
	assert.Equal(t, "a.db?_foreign_keys=1", withForeignKeys("a.db?_foreign_keys=1"))
}
