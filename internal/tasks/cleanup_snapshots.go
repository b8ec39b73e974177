package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// OrphanSnapshotCleaner deletes snapshots nothing refers to.
type OrphanSnapshotCleaner interface {
	DeleteOrphans(ctx context.Context) (int64, error)
}

// CleanupSnapshotsTask removes snapshots of books that left every shelf and
// have no reading state.
type CleanupSnapshotsTask struct{}

func (t CleanupSnapshotsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "cleanup_snapshots",
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

func CleanupSnapshotsProcessor(cleaner OrphanSnapshotCleaner) backlite.QueueProcessor[CleanupSnapshotsTask] {
	return func(ctx context.Context, task CleanupSnapshotsTask) error {
		if cleaner == nil {
			return fmt.Errorf("snapshot cleaner not configured")
		}

		deleted, err := cleaner.DeleteOrphans(ctx)
		if err != nil {
			return fmt.Errorf("cleanup snapshots: %w", err)
		}

		log.Printf("[TASK] Cleaned up %d orphan snapshots", deleted)
		return nil
	}
}

func NewCleanupSnapshotsQueue(cleaner OrphanSnapshotCleaner) backlite.Queue {
	return backlite.NewQueue(CleanupSnapshotsProcessor(cleaner))
}
