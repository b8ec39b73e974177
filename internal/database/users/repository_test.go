package users

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, *entities.Profile) {
	t.Helper()
	db, err := database.NewQuietDatabase(filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	profile := &entities.Profile{Username: "testuser", Email: "test@example.com"}
	require.NoError(t, db.DB.Create(profile).Error)
	return NewRepository(db.DB), profile
}

func TestRepository_GetProfile(t *testing.T) {
	repo, created := setupTestDB(t)
	ctx := context.Background()

	profile, err := repo.GetProfile(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "testuser", profile.Username)
	assert.Equal(t, "testuser", profile.Name(), "falls back to username")

	_, err = repo.GetProfile(ctx, 999)
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestRepository_GetProfileByUsername(t *testing.T) {
	repo, created := setupTestDB(t)
	ctx := context.Background()

	profile, err := repo.GetProfileByUsername(ctx, "testuser")
	require.NoError(t, err)
	assert.Equal(t, created.ID, profile.ID)

	_, err = repo.GetProfileByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestRepository_UpdateProfile(t *testing.T) {
	repo, created := setupTestDB(t)
	ctx := context.Background()

	profile, err := repo.UpdateProfile(ctx, created.ID, "  Test User ", "https://example.com/a.png")
	require.NoError(t, err)
	assert.Equal(t, "Test User", profile.Name())
	assert.Equal(t, "https://example.com/a.png", profile.AvatarURL)

	_, err = repo.UpdateProfile(ctx, created.ID, strings.Repeat("x", 201), "")
	assert.ErrorIs(t, err, ErrDisplayNameTooLong)

	_, err = repo.UpdateProfile(ctx, 999, "Ghost", "")
	assert.ErrorIs(t, err, entities.ErrNotFound)
}
