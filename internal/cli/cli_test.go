package cli

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/entities"
)

func TestSearchCommand_ParseFlags(t *testing.T) {
	cmd := NewSearchCommand()
	require.NoError(t, cmd.ParseFlags([]string{"-limit", "5", "dune", "herbert"}))
	assert.Equal(t, "dune herbert", cmd.Query)
	assert.Equal(t, 5, cmd.Limit)

	assert.Error(t, NewSearchCommand().ParseFlags([]string{"-q", "  "}))
}

func TestSearchCommand_Run(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/volumes", r.URL.Path)
		assert.Equal(t, "dune", r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"totalItems": 1, "items": [{"id": "B1tFDwAAQBAJ", "volumeInfo": {
			"title": "Dune", "authors": ["Frank Herbert"], "publishedDate": "1965-08-01"}}]}`))
	}))
	defer srv.Close()

	var out bytes.Buffer
	cmd := NewSearchCommand()
	require.NoError(t, cmd.ParseFlags([]string{"-q", "dune", "-base-url", srv.URL}))
	cmd.Out = &out

	require.NoError(t, cmd.Run())
	assert.Contains(t, out.String(), "B1tFDwAAQBAJ")
	assert.Contains(t, out.String(), "Frank Herbert")
	assert.Contains(t, out.String(), "August 1, 1965")
}

func TestSearchCommand_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"totalItems": 0}`))
	}))
	defer srv.Close()

	var out bytes.Buffer
	cmd := NewSearchCommand()
	require.NoError(t, cmd.ParseFlags([]string{"-q", "zzz", "-base-url", srv.URL}))
	cmd.Out = &out

	require.NoError(t, cmd.Run())
	assert.Equal(t, "No results found.\n", out.String())
}

func TestCreateUserCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "bookshelf.db")

	var out bytes.Buffer
	cmd := NewCreateUserCommand()
	require.NoError(t, cmd.ParseFlags([]string{
		"-db", dbPath,
		"-username", "alice",
		"-email", "alice@example.com",
		"-password", "correct-horse-battery",
		"-role", "admin",
		"-bcrypt-cost", "4",
	}))
	cmd.Out = &out

	require.NoError(t, cmd.Run())
	assert.Contains(t, out.String(), `"alice"`)

	db, err := database.NewQuietDatabase(dbPath)
	require.NoError(t, err)
	defer db.Close()

	var profile entities.Profile
	require.NoError(t, db.DB.Where("username = ?", "alice").First(&profile).Error)
	assert.Equal(t, entities.UserRoleAdmin, profile.Role)
	assert.NotEqual(t, uint(1), profile.ID)
	assert.NotEmpty(t, profile.PasswordHash)

	// A second run with the same username fails.
	assert.Error(t, cmd.Run())
}

func TestCreateUserCommand_MissingFlags(t *testing.T) {
	t.Setenv("BOOKSHELF_PASSWORD", "")
	assert.Error(t, NewCreateUserCommand().ParseFlags([]string{"-username", "alice"}))
	assert.Error(t, NewCreateUserCommand().ParseFlags([]string{"-username", "alice", "-email", "a@example.com"}))
}

func TestCleanupSnapshotsCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "bookshelf.db")
	db, err := database.NewQuietDatabase(dbPath)
	require.NoError(t, err)
	require.NoError(t, db.DB.Create(&entities.BookSnapshot{CatalogID: "orphan", Title: "Gone"}).Error)
	require.NoError(t, db.Close())

	var out bytes.Buffer
	cmd := NewCleanupSnapshotsCommand()
	require.NoError(t, cmd.ParseFlags([]string{"-db", dbPath}))
	cmd.Out = &out

	require.NoError(t, cmd.Run())
	assert.Equal(t, "Deleted 1 orphan snapshot(s)\n", out.String())
}
