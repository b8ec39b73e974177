package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookshelf/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(config.Catalog{
		BaseURL:    server.URL,
		MaxResults: 5,
		Timeout:    2 * time.Second,
	})
}

func duneVolume() map[string]any {
	return map[string]any{
		"id": "X1",
		"volumeInfo": map[string]any{
			"title":         "Dune",
			"authors":       []string{"Frank Herbert"},
			"publishedDate": "1965-08-01",
			"description":   "<p>Spice.</p><p>Worms &amp; sand.</p>",
			"imageLinks": map[string]string{
				"thumbnail": "http://books.google.com/books/content?id=X1",
			},
		},
	}
}

func TestSearch_EmptyQueryMakesNoCall(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})

	for _, q := range []string{"", "   ", "\t\n"} {
		_, err := client.Search(context.Background(), q)
		assert.ErrorIs(t, err, ErrEmptyQuery)
	}
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestSearch_MapsVolumes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/volumes", r.URL.Path)
		assert.Equal(t, "dune", r.URL.Query().Get("q"))
		assert.Equal(t, "5", r.URL.Query().Get("maxResults"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"totalItems": 2,
			"items": []any{
				duneVolume(),
				map[string]any{"id": "X2", "volumeInfo": map[string]any{}},
			},
		})
	})

	entries, err := client.Search(context.Background(), "  dune ")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "X1", entries[0].ID)
	assert.Equal(t, "Dune", entries[0].Title)
	assert.Equal(t, []string{"Frank Herbert"}, entries[0].Authors)
	assert.Equal(t, "https://books.google.com/books/content?id=X1", entries[0].CoverURL)
	assert.Equal(t, "Spice.\n\nWorms & sand.", entries[0].Description)
	assert.Equal(t, "1965-08-01", entries[0].PublishedDate)

	assert.Equal(t, "X2", entries[1].ID)
	assert.Empty(t, entries[1].Title)
	assert.Empty(t, entries[1].Authors)
	assert.Empty(t, entries[1].CoverURL)
}

func TestSearch_NoItems(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"totalItems":0}`))
	})

	entries, err := client.Search(context.Background(), "zzzz")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSearch_ServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.Search(context.Background(), "dune")
	assert.ErrorIs(t, err, ErrSearchFailed)
}

func TestSearch_MalformedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	})

	_, err := client.Search(context.Background(), "dune")
	assert.ErrorIs(t, err, ErrSearchFailed)
}

func TestSearch_SharesInFlightRequest(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		<-release
		_ = json.NewEncoder(w).Encode(map[string]any{"items": []any{duneVolume()}})
	})

	const callers = 5
	var wg sync.WaitGroup
	results := make([]int, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			entries, err := client.Search(context.Background(), "dune")
			if assert.NoError(t, err) {
				results[i] = len(entries)
			}
		}(i)
	}

	// Give the goroutines time to join the same flight.
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, n := range results {
		assert.Equal(t, 1, n)
	}

	// A later search is a fresh call.
	_, err := client.Search(context.Background(), "dune")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGetByID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/volumes/X1":
			_ = json.NewEncoder(w).Encode(duneVolume())
		case "/volumes/broken":
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":404,"message":"The volume ID could not be found."}}`))
		}
	})
	ctx := context.Background()

	entry, err := client.GetByID(ctx, "X1")
	require.NoError(t, err)
	assert.Equal(t, "Dune", entry.Title)

	_, err = client.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = client.GetByID(ctx, "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = client.GetByID(ctx, "broken")
	assert.ErrorIs(t, err, ErrLookupFailed)
}

func TestGetByID_APIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		_ = json.NewEncoder(w).Encode(duneVolume())
	}))
	defer server.Close()

	client := NewClient(config.Catalog{BaseURL: server.URL, APIKey: "secret"})
	_, err := client.GetByID(context.Background(), "X1")
	require.NoError(t, err)
}

func TestClient_RateLimited(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_ = json.NewEncoder(w).Encode(duneVolume())
	}))
	defer server.Close()

	client := NewClient(config.Catalog{BaseURL: server.URL, RatePerSecond: 0.001, RateBurst: 1})

	_, err := client.GetByID(context.Background(), "X1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.GetByID(ctx, "X1")
	assert.ErrorIs(t, err, ErrLookupFailed)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
