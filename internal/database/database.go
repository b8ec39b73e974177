package database

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/bookshelf/internal/entities"
)

// LocalProfileID owns all data when authentication is disabled.
const LocalProfileID = uint(1)

// Models lists every table managed by AutoMigrate, parents first.
var Models = []any{
	&entities.Profile{},
	&entities.Shelf{},
	&entities.ShelfMembership{},
	&entities.UserBook{},
	&entities.BookSnapshot{},
}

type Database struct {
	DB *gorm.DB
}

// NewDatabase opens (or creates) the SQLite store and migrates the schema.
func NewDatabase(dbPath string) (*Database, error) {
	return open(dbPath, logger.Default.LogMode(logger.Warn))
}

// NewQuietDatabase is NewDatabase with gorm logging silenced, for tests and CLI commands.
func NewQuietDatabase(dbPath string) (*Database, error) {
	return open(dbPath, logger.Default.LogMode(logger.Silent))
}

func open(dbPath string, gormLogger logger.Interface) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(withForeignKeys(dbPath)), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(Models...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Printf("Database initialized successfully at %s", dbPath)

	return &Database{DB: db}, nil
}

// withForeignKeys turns on SQLite foreign key enforcement so shelf deletes cascade.
func withForeignKeys(dbPath string) string {
	if strings.Contains(dbPath, "_foreign_keys") {
		return dbPath
	}
	separator := "?"
	if strings.Contains(dbPath, "?") {
		separator = "&"
	}
	return dbPath + separator + "_foreign_keys=on"
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks that the underlying connection is usable.
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// EnsureLocalProfile creates the single-user profile used when auth is disabled.
func (d *Database) EnsureLocalProfile() (*entities.Profile, error) {
	var profile entities.Profile
	err := d.DB.First(&profile, LocalProfileID).Error
	if err == nil {
		return &profile, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load local profile: %w", err)
	}

	profile = entities.Profile{
		ID:          LocalProfileID,
		Username:    "local",
		DisplayName: "Reader",
		Role:        entities.UserRoleAdmin,
	}
	if err := d.DB.Create(&profile).Error; err != nil {
		return nil, fmt.Errorf("failed to create local profile: %w", err)
	}
	log.Printf("Created local profile %d", profile.ID)
	return &profile, nil
}
