// Package interfaces documents the abstractions the layers talk through.
//
// # Interface Categories
//
// ## Persistence
//
//   - library.ShelfStore: shelves and memberships (internal/database/shelves)
//   - library.StateStore: per-book reading state (internal/database/userbooks)
//   - library.SnapshotStore: stored catalog metadata (internal/database/snapshots)
//   - http.ProfileStore: profile display data (internal/database/users)
//
// ## Synchronization
//
//   - http.ShelfService, http.ReadingService: what controllers call. Both are
//     served by library.Service, which caches reads per owner and invalidates
//     them from the events bus.
//
// ## External Services
//
//   - http.CatalogClient: search and lookup (internal/catalog)
//   - http.CoverFetcher: local cover files (internal/covers)
//
// ## Background Work
//
//   - library.SnapshotScheduler, scheduler.CleanupEnqueuer: enqueue work on
//     the backlite queue (internal/tasks)
//
// # Adding a New Persistence Backend
//
//  1. Implement library.ShelfStore and library.StateStore.
//
//  2. Add compile-time checks:
//
//     var _ library.ShelfStore = (*postgres.ShelfRepository)(nil)
//
//  3. Pass the stores to library.NewService in entrypoint.go. Nothing above
//     the library layer changes.
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// See checks.go.
package interfaces
