// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup, migrations, local profile seeding
//	├── shelves/         # Shelves and shelf membership
//	├── userbooks/       # Per-user reading state (status, note, rating, dates)
//	├── snapshots/       # Stored catalog metadata for shelved books
//	└── users/           # Profiles
//
// Every owner-scoped repository method takes the owner ID explicitly. The
// caller resolves it from the authenticated session; repositories never
// look it up themselves.
//
// # Using Sub-packages
//
//	db, err := database.NewDatabase("./bookshelf.db")
//
//	shelfRepo := shelves.NewRepository(db.DB)
//	stateRepo := userbooks.NewRepository(db.DB)
//
//	shelf, err := shelfRepo.CreateShelf(ctx, ownerID, "Sci-Fi")
//	_, err = shelfRepo.AddMember(ctx, ownerID, shelf.ID, "X1")
//	state, err := stateRepo.SetReadStatus(ctx, ownerID, "X1", entities.ReadStatusReading)
//
// # Errors
//
// Repositories translate gorm.ErrRecordNotFound into entities.ErrNotFound
// (or entities.ErrNoState for reading state) and return validation
// sentinels from package entities before touching the database.
package database
