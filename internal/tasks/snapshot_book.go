package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bookshelf/internal/catalog"
	"github.com/mrlokans/bookshelf/internal/entities"
)

// CatalogLookup fetches one catalog entry.
type CatalogLookup interface {
	GetByID(ctx context.Context, id string) (*entities.CatalogEntry, error)
}

// SnapshotWriter stores catalog snapshots.
type SnapshotWriter interface {
	Upsert(ctx context.Context, snapshot *entities.BookSnapshot) error
}

// SnapshotBookTask refreshes the stored metadata of one catalog book.
type SnapshotBookTask struct {
	BookID string `json:"book_id"`
}

func (t SnapshotBookTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "snapshot_book",
		MaxAttempts: 3,
		Backoff:     30 * time.Second,
		Timeout:     time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// SnapshotBookProcessor fetches the book and upserts its snapshot. Books the
// catalog no longer knows are skipped without retrying.
func SnapshotBookProcessor(lookup CatalogLookup, store SnapshotWriter) backlite.QueueProcessor[SnapshotBookTask] {
	return func(ctx context.Context, task SnapshotBookTask) error {
		if lookup == nil || store == nil {
			return fmt.Errorf("snapshot dependencies not configured")
		}

		entry, err := lookup.GetByID(ctx, task.BookID)
		if errors.Is(err, catalog.ErrNotFound) {
			log.Printf("[TASK] Book %s not in catalog, skipping snapshot", task.BookID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("lookup book %s: %w", task.BookID, err)
		}

		if err := store.Upsert(ctx, entities.NewBookSnapshot(*entry, time.Now())); err != nil {
			return fmt.Errorf("store snapshot %s: %w", task.BookID, err)
		}
		log.Printf("[TASK] Stored snapshot for %s (%s)", task.BookID, entry.Title)
		return nil
	}
}

func NewSnapshotBookQueue(lookup CatalogLookup, store SnapshotWriter) backlite.Queue {
	return backlite.NewQueue(SnapshotBookProcessor(lookup, store))
}
