package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/karyana-pos/karyana-pos/internal/shared"
)

// User represents a staff account.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	IsSuperadmin bool       `json:"is_superadmin"`
	IsActive     bool       `json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// CreateUserInput carries a new account. Role defaults to "shopkeeper".
type CreateUserInput struct {
	Username     string
	Email        string
	Password     string
	Role         string
	IsSuperadmin bool
}

// UpdateUserInput carries a partial account update. Nil fields are left
// untouched. The superadmin flag is honoured only for superadmin actors.
type UpdateUserInput struct {
	Username     *string
	Email        *string
	Role         *string
	IsActive     *bool
	IsSuperadmin *bool
}

// PasswordReset is one reset token row. Tokens are single-use and expire.
type PasswordReset struct {
	ID        int64
	UserID    int64
	Token     string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

var (
	ErrUsernameRequired = errors.New("auth: username is required")
	ErrPasswordRequired = errors.New("auth: password is required")
	ErrTokenInvalid     = errors.New("auth: reset token invalid or already used")
	ErrTokenExpired     = errors.New("auth: reset token expired")

	// ErrSuperadminRequired rejects account operations that only a
	// superadmin actor may perform.
	ErrSuperadminRequired = fmt.Errorf("auth: superadmin required: %w", shared.ErrForbidden)
)
