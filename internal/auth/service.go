package auth

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/entities"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,64}$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUserExists       = errors.New("user already exists")
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrInvalidRole      = errors.New("invalid role")
	ErrUsernameRequired = errors.New("username is required")
	ErrEmailRequired    = errors.New("email is required")
	ErrPasswordRequired = errors.New("password is required")
	ErrAccountLocked    = errors.New("account is locked due to too many failed login attempts")
	ErrUsernameInvalid  = errors.New("username must be 3-64 characters, alphanumeric and underscore/hyphen only")
	ErrEmailInvalid     = errors.New("invalid email format")
)

// failedLoginLimit locks an account after this many consecutive failures.
const failedLoginLimit = 5

// Service manages accounts stored as profiles.
type Service struct {
	db     *gorm.DB
	config config.Auth
}

func NewService(db *gorm.DB, cfg config.Auth) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// CreateProfile creates an account that can log in with a password.
func (s *Service) CreateProfile(username, email, password string, role entities.UserRole) (*entities.Profile, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	switch {
	case username == "":
		return nil, ErrUsernameRequired
	case email == "":
		return nil, ErrEmailRequired
	case password == "":
		return nil, ErrPasswordRequired
	case !usernamePattern.MatchString(username):
		return nil, ErrUsernameInvalid
	case len(email) > 254 || !emailPattern.MatchString(email):
		return nil, ErrEmailInvalid
	}
	if role != entities.UserRoleAdmin && role != entities.UserRoleReader {
		return nil, ErrInvalidRole
	}

	var existing entities.Profile
	err := s.db.Where("username = ? OR (email <> '' AND email = ?)", username, email).First(&existing).Error
	if err == nil {
		return nil, ErrUserExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	passwordHash, err := HashPassword(password, s.config.BcryptCost)
	if err != nil {
		return nil, err
	}

	profile := &entities.Profile{
		Username:     username,
		DisplayName:  username,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
	}
	if err := s.db.Create(profile).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return profile, nil
}

// Authenticate checks credentials by username or email and applies the
// account lockout.
func (s *Service) Authenticate(login, password string) (*entities.Profile, error) {
	var profile entities.Profile
	err := s.db.Where("password_hash <> '' AND (username = ? OR email = ?)", login, login).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if profile.LockedUntil != nil && time.Now().Before(*profile.LockedUntil) {
		return nil, ErrAccountLocked
	}

	if err := CheckPassword(password, profile.PasswordHash); err != nil {
		s.recordFailedLogin(&profile)
		return nil, err
	}

	now := time.Now()
	s.db.Model(&profile).Updates(map[string]any{
		"last_login_at":      now,
		"failed_login_count": 0,
		"locked_until":       nil,
	})
	profile.LastLoginAt = &now
	return &profile, nil
}

func (s *Service) recordFailedLogin(profile *entities.Profile) {
	profile.FailedLoginCount++
	updates := map[string]any{"failed_login_count": profile.FailedLoginCount}

	if profile.FailedLoginCount >= failedLoginLimit {
		lockout := s.config.LockoutDuration
		if lockout == 0 {
			lockout = 30 * time.Minute
		}
		updates["locked_until"] = time.Now().Add(lockout)
	}
	s.db.Model(profile).Updates(updates)
}

func (s *Service) GetProfile(id uint) (*entities.Profile, error) {
	var profile entities.Profile
	if err := s.db.First(&profile, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &profile, nil
}

// ValidateToken resolves a plaintext API token to its profile.
func (s *Service) ValidateToken(token string) (*entities.Profile, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	var profile entities.Profile
	if err := s.db.Where("token_hash = ?", HashToken(token)).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	if s.config.TokenExpiry > 0 && profile.TokenCreatedAt != nil &&
		time.Since(*profile.TokenCreatedAt) > s.config.TokenExpiry {
		return nil, ErrTokenExpired
	}
	return &profile, nil
}

// GenerateToken replaces the profile's API token and returns the plaintext.
func (s *Service) GenerateToken(profileID uint) (string, error) {
	plaintext, hash, err := GenerateAPIToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	result := s.db.Model(&entities.Profile{}).Where("id = ?", profileID).Updates(map[string]any{
		"token_hash":       hash,
		"token_created_at": time.Now(),
	})
	if result.Error != nil {
		return "", fmt.Errorf("failed to save token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return "", ErrUserNotFound
	}
	return plaintext, nil
}

func (s *Service) RevokeToken(profileID uint) error {
	err := s.db.Model(&entities.Profile{}).Where("id = ?", profileID).Updates(map[string]any{
		"token_hash":       "",
		"token_created_at": nil,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (s *Service) ChangePassword(profileID uint, oldPassword, newPassword string) error {
	profile, err := s.GetProfile(profileID)
	if err != nil {
		return err
	}
	if err := CheckPassword(oldPassword, profile.PasswordHash); err != nil {
		return err
	}

	newHash, err := HashPassword(newPassword, s.config.BcryptCost)
	if err != nil {
		return err
	}
	return s.db.Model(profile).Update("password_hash", newHash).Error
}

// HasUsers reports whether any profile can log in. The local profile used
// when auth is disabled has no password and does not count.
func (s *Service) HasUsers() (bool, error) {
	var count int64
	if err := s.db.Model(&entities.Profile{}).Where("password_hash <> ''").Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Service) IsAuthEnabled() bool {
	return s.config.Mode == config.AuthModeLocal
}
