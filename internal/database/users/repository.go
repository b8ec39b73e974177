// Package users provides database operations for profiles.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	profile, err := repo.GetProfile(ctx, ownerID)
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/bookshelf/internal/entities"
)

// ErrDisplayNameTooLong is returned when a display name exceeds 200 characters.
var ErrDisplayNameTooLong = errors.New("display name must be at most 200 characters")

// Repository handles all profile database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetProfile retrieves a profile by ID.
func (r *Repository) GetProfile(ctx context.Context, id uint) (*entities.Profile, error) {
	var profile entities.Profile
	if err := r.db.WithContext(ctx).First(&profile, id).Error; err != nil {
		return nil, translate(err)
	}
	return &profile, nil
}

// GetProfileByUsername retrieves a profile by username.
func (r *Repository) GetProfileByUsername(ctx context.Context, username string) (*entities.Profile, error) {
	var profile entities.Profile
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&profile).Error
	if err != nil {
		return nil, translate(err)
	}
	return &profile, nil
}

// UpdateProfile changes the display name and avatar URL.
func (r *Repository) UpdateProfile(ctx context.Context, id uint, displayName, avatarURL string) (*entities.Profile, error) {
	displayName = strings.TrimSpace(displayName)
	if len([]rune(displayName)) > 200 {
		return nil, ErrDisplayNameTooLong
	}

	result := r.db.WithContext(ctx).Model(&entities.Profile{}).Where("id = ?", id).Updates(map[string]any{
		"display_name": displayName,
		"avatar_url":   strings.TrimSpace(avatarURL),
	})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update profile: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, entities.ErrNotFound
	}
	return r.GetProfile(ctx, id)
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entities.ErrNotFound
	}
	return fmt.Errorf("failed to load profile: %w", err)
}
