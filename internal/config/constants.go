package config

// Default paths for databases
const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./bookshelf.db"

	// DefaultCatalogBaseURL is the Google Books API root
	DefaultCatalogBaseURL = "https://www.googleapis.com/books/v1"
)
