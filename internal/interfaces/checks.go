package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/bookshelf/internal/catalog"
	"github.com/mrlokans/bookshelf/internal/covers"
	"github.com/mrlokans/bookshelf/internal/database/shelves"
	"github.com/mrlokans/bookshelf/internal/database/snapshots"
	"github.com/mrlokans/bookshelf/internal/database/userbooks"
	"github.com/mrlokans/bookshelf/internal/database/users"
	"github.com/mrlokans/bookshelf/internal/http"
	"github.com/mrlokans/bookshelf/internal/library"
	"github.com/mrlokans/bookshelf/internal/scheduler"
	"github.com/mrlokans/bookshelf/internal/tasks"
)

// =============================================================================
// Data Access Layer
// =============================================================================

var _ library.ShelfStore = (*shelves.Repository)(nil)
var _ library.StateStore = (*userbooks.Repository)(nil)
var _ library.SnapshotStore = (*snapshots.Repository)(nil)

var _ http.ProfileStore = (*users.Repository)(nil)

// =============================================================================
// Synchronization Layer
// =============================================================================

var _ http.LibraryService = (*library.Service)(nil)
var _ http.OwnerCounter = (*library.Service)(nil)

// =============================================================================
// External Services
// =============================================================================

var _ http.CatalogClient = (*catalog.Client)(nil)
var _ tasks.CatalogLookup = (*catalog.Client)(nil)
var _ http.CoverFetcher = (*covers.Cache)(nil)

// =============================================================================
// Background Work
// =============================================================================

var _ library.SnapshotScheduler = (*tasks.Client)(nil)
var _ scheduler.CleanupEnqueuer = (*tasks.Client)(nil)
var _ tasks.SnapshotWriter = (*snapshots.Repository)(nil)
var _ tasks.OrphanSnapshotCleaner = (*snapshots.Repository)(nil)
