package entities

import (
	"time"
)

type UserRole string

const (
	UserRoleAdmin  UserRole = "admin"
	UserRoleReader UserRole = "reader"
)

// Profile is an account. Shelves and reading state reference it by ID.
type Profile struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Username         string     `gorm:"uniqueIndex;size:100" json:"username"`
	DisplayName      string     `gorm:"size:200" json:"display_name,omitempty"`
	AvatarURL        string     `gorm:"size:2048" json:"avatar_url,omitempty"`
	Email            string     `gorm:"index;size:255" json:"email,omitempty"`
	PasswordHash     string     `gorm:"size:255" json:"-"`
	Role             UserRole   `gorm:"size:20;default:'reader'" json:"role"`
	TokenHash        string     `gorm:"index;size:64" json:"-"`
	TokenCreatedAt   *time.Time `json:"-"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`
	FailedLoginCount int        `json:"-"`
	LockedUntil      *time.Time `json:"-"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}

// Name returns the display name, falling back to the username.
func (p *Profile) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Username
}
