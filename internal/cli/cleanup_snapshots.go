package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/database/snapshots"
)

// CleanupSnapshotsCommand deletes stored catalog snapshots no shelf or
// reading state refers to. The server does the same on a cron schedule.
type CleanupSnapshotsCommand struct {
	DatabasePath string

	Out io.Writer
}

func NewCleanupSnapshotsCommand() *CleanupSnapshotsCommand {
	return &CleanupSnapshotsCommand{Out: os.Stdout}
}

func (cmd *CleanupSnapshotsCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("cleanup-snapshots", flag.ContinueOnError)
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the database file")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s cleanup-snapshots [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Delete catalog snapshots of books that are on no shelf and have no reading state.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}
	return fs.Parse(args)
}

func (cmd *CleanupSnapshotsCommand) Run() error {
	db, err := database.NewQuietDatabase(cmd.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	deleted, err := snapshots.NewRepository(db.DB).DeleteOrphans(context.Background())
	if err != nil {
		return fmt.Errorf("failed to delete orphan snapshots: %w", err)
	}
	fmt.Fprintf(cmd.Out, "Deleted %d orphan snapshot(s)\n", deleted)
	return nil
}
