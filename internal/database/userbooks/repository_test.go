package userbooks

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/entities"
)

const owner = uint(1)

func setupTestDB(t *testing.T) *Repository {
	t.Helper()
	db, err := database.NewQuietDatabase(filepath.Join(t.TempDir(), "userbooks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.DB.Create(&entities.Profile{Username: "reader"}).Error)
	require.NoError(t, db.DB.Create(&entities.Profile{Username: "other"}).Error)
	return NewRepository(db.DB)
}

func intPtr(v int) *int { return &v }

func TestRepository_Get_NoState(t *testing.T) {
	repo := setupTestDB(t)

	_, err := repo.Get(context.Background(), owner, "X1")
	assert.ErrorIs(t, err, entities.ErrNoState)
}

func TestRepository_SetReadStatus_CreatesThenUpdates(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	state, err := repo.SetReadStatus(ctx, owner, "X1", entities.ReadStatusReading)
	require.NoError(t, err)
	assert.Equal(t, entities.ReadStatusReading, state.ReadStatus)
	assert.Nil(t, state.Note)

	state, err = repo.SetReadStatus(ctx, owner, "X1", entities.ReadStatusRead)
	require.NoError(t, err)
	assert.Equal(t, entities.ReadStatusRead, state.ReadStatus)

	all, err := repo.List(ctx, owner, "")
	require.NoError(t, err)
	assert.Len(t, all, 1, "one row per owner and book")
}

func TestRepository_SetReadStatus_Invalid(t *testing.T) {
	repo := setupTestDB(t)

	_, err := repo.SetReadStatus(context.Background(), owner, "X1", entities.ReadStatus("FINISHED"))
	assert.ErrorIs(t, err, entities.ErrInvalidReadStatus)

	_, err = repo.Get(context.Background(), owner, "X1")
	assert.ErrorIs(t, err, entities.ErrNoState)
}

func TestRepository_SetNote_LazyCreateDefaultsUnread(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	state, err := repo.SetNote(ctx, owner, "X1", "loved the ending")
	require.NoError(t, err)
	assert.Equal(t, entities.ReadStatusUnread, state.ReadStatus)
	assert.Equal(t, "loved the ending", state.NoteText())
}

func TestRepository_SetNote_BlankClears(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	_, err := repo.SetNote(ctx, owner, "X1", "something")
	require.NoError(t, err)

	state, err := repo.SetNote(ctx, owner, "X1", "   ")
	require.NoError(t, err)
	assert.Nil(t, state.Note)
}

func TestRepository_FieldUpdatesDoNotClobber(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	_, err := repo.SetReadStatus(ctx, owner, "X1", entities.ReadStatusReading)
	require.NoError(t, err)
	_, err = repo.SetNote(ctx, owner, "X1", "halfway")
	require.NoError(t, err)
	_, err = repo.SetRating(ctx, owner, "X1", intPtr(4))
	require.NoError(t, err)

	state, err := repo.Get(ctx, owner, "X1")
	require.NoError(t, err)
	assert.Equal(t, entities.ReadStatusReading, state.ReadStatus)
	assert.Equal(t, "halfway", state.NoteText())
	require.NotNil(t, state.Rating)
	assert.Equal(t, 4, *state.Rating)
}

func TestRepository_SetRating(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	_, err := repo.SetRating(ctx, owner, "X1", intPtr(0))
	assert.ErrorIs(t, err, entities.ErrInvalidRating)
	_, err = repo.SetRating(ctx, owner, "X1", intPtr(6))
	assert.ErrorIs(t, err, entities.ErrInvalidRating)

	state, err := repo.SetRating(ctx, owner, "X1", intPtr(5))
	require.NoError(t, err)
	assert.Equal(t, 5, *state.Rating)

	state, err = repo.SetRating(ctx, owner, "X1", nil)
	require.NoError(t, err)
	assert.Nil(t, state.Rating)
}

func TestRepository_SetReadingDates(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	started := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	finished := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)

	_, err := repo.SetReadingDates(ctx, owner, "X1", &finished, &started)
	assert.ErrorIs(t, err, entities.ErrInvalidDates)

	state, err := repo.SetReadingDates(ctx, owner, "X1", &started, &finished)
	require.NoError(t, err)
	require.NotNil(t, state.StartedAt)
	require.NotNil(t, state.FinishedAt)
	assert.True(t, state.StartedAt.Equal(started))
	assert.True(t, state.FinishedAt.Equal(finished))

	state, err = repo.SetReadingDates(ctx, owner, "X1", &started, nil)
	require.NoError(t, err)
	assert.NotNil(t, state.StartedAt)
	assert.Nil(t, state.FinishedAt)
}

func TestRepository_EmptyBookID(t *testing.T) {
	repo := setupTestDB(t)

	_, err := repo.SetNote(context.Background(), owner, "  ", "note")
	assert.ErrorIs(t, err, entities.ErrEmptyBookID)
}

func TestRepository_List_FilterAndOwnerScope(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	_, err := repo.SetReadStatus(ctx, owner, "A", entities.ReadStatusRead)
	require.NoError(t, err)
	_, err = repo.SetReadStatus(ctx, owner, "B", entities.ReadStatusReading)
	require.NoError(t, err)
	_, err = repo.SetReadStatus(ctx, owner+1, "C", entities.ReadStatusRead)
	require.NoError(t, err)

	read, err := repo.List(ctx, owner, entities.ReadStatusRead)
	require.NoError(t, err)
	require.Len(t, read, 1)
	assert.Equal(t, "A", read[0].BookID)

	all, err := repo.List(ctx, owner, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = repo.List(ctx, owner, entities.ReadStatus("nope"))
	assert.ErrorIs(t, err, entities.ErrInvalidReadStatus)

	counts, err := repo.CountByStatus(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[entities.ReadStatusRead])
	assert.Equal(t, int64(1), counts[entities.ReadStatusReading])
	assert.Zero(t, counts[entities.ReadStatusWantToRead])
}
