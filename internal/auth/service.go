package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/karyana-pos/karyana-pos/internal/shared"
)

const resetTokenTTL = time.Hour

// Repository defines persistence operations for the auth module.
type Repository interface {
	CreateUser(ctx context.Context, user User) (int64, error)
	FindByID(ctx context.Context, userID int64) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]User, error)
	UpdateUser(ctx context.Context, userID int64, input UpdateUserInput) error
	SetActive(ctx context.Context, userID int64, active bool) error
	DeleteUser(ctx context.Context, userID int64) error
	TouchLastLogin(ctx context.Context, userID int64, at time.Time) error
	UpdatePasswordHash(ctx context.Context, userID int64, hash string) error

	CreatePasswordReset(ctx context.Context, reset PasswordReset) (int64, error)
	FindPasswordReset(ctx context.Context, token string) (*PasswordReset, error)
	ConsumePasswordReset(ctx context.Context, resetID, userID int64, newHash string) error
}

// SessionPort issues and resolves opaque API tokens.
type SessionPort interface {
	Create(ctx context.Context, userID int64) (string, error)
	Resolve(ctx context.Context, token string) (int64, error)
	Destroy(ctx context.Context, token string) error
}

// Service wraps authentication business rules.
type Service struct {
	repo     Repository
	sessions SessionPort
	audit    AuditPort
}

// AuditPort abstracts the best-effort audit sink.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// NewService constructs a new Service.
func NewService(repo Repository, sessions SessionPort, audit AuditPort) *Service {
	return &Service{repo: repo, sessions: sessions, audit: audit}
}

// Register creates an account with a bcrypt password hash. Duplicate
// usernames and emails surface as shared.ErrDuplicate.
func (s *Service) Register(ctx context.Context, input CreateUserInput) (int64, error) {
	input.Username = strings.TrimSpace(input.Username)
	if input.Username == "" {
		return 0, ErrUsernameRequired
	}
	if input.Password == "" {
		return 0, ErrPasswordRequired
	}
	if input.Role == "" {
		input.Role = "shopkeeper"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}
	id, err := s.repo.CreateUser(ctx, User{
		Username:     input.Username,
		Email:        strings.TrimSpace(input.Email),
		PasswordHash: string(hash),
		Role:         input.Role,
		IsSuperadmin: input.IsSuperadmin,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return 0, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			EntityType: "user",
			Action:     "create",
			Details:    fmt.Sprintf("user_id=%d, username=%s", id, input.Username),
			At:         time.Now().UTC(),
		})
	}
	return id, nil
}

// Authenticate validates username/password credentials and stamps the
// last login time. Inactive accounts fail the same way wrong passwords do.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	now := time.Now().UTC()
	if err := s.repo.TouchLastLogin(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("touch last login: %w", err)
	}
	user.LastLoginAt = &now
	return user, nil
}

// Login authenticates and issues an opaque bearer token.
func (s *Service) Login(ctx context.Context, username, password string) (string, *User, error) {
	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return "", nil, err
	}
	token, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("create session: %w", err)
	}
	return token, user, nil
}

// Logout invalidates a bearer token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Destroy(ctx, token)
}

// ResolveToken maps a bearer token back to a user id.
func (s *Service) ResolveToken(ctx context.Context, token string) (int64, error) {
	return s.sessions.Resolve(ctx, token)
}

// ChangePassword verifies the old password before writing the new hash.
func (s *Service) ChangePassword(ctx context.Context, username, oldPassword, newPassword string) error {
	if newPassword == "" {
		return ErrPasswordRequired
	}
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return shared.ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.repo.UpdatePasswordHash(ctx, user.ID, string(hash))
}

// RequestPasswordReset issues a reset token for an active account. The
// caller delivers the token out of band; unknown emails return ErrNotFound
// so the HTTP layer can decide how much to reveal.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if !user.IsActive {
		return "", shared.ErrNotFound
	}
	now := time.Now().UTC()
	token := uuid.NewString()
	if _, err := s.repo.CreatePasswordReset(ctx, PasswordReset{
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: now.Add(resetTokenTTL),
		CreatedAt: now,
	}); err != nil {
		return "", fmt.Errorf("create password reset: %w", err)
	}
	return token, nil
}

// VerifyResetToken checks a token without consuming it.
func (s *Service) VerifyResetToken(ctx context.Context, token string) (int64, error) {
	reset, err := s.lookupReset(ctx, token)
	if err != nil {
		return 0, err
	}
	return reset.UserID, nil
}

// ConsumeResetToken atomically marks the token used and replaces the
// password hash. A consumed token fails every later attempt.
func (s *Service) ConsumeResetToken(ctx context.Context, token, newPassword string) error {
	if newPassword == "" {
		return ErrPasswordRequired
	}
	reset, err := s.lookupReset(ctx, token)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	// The repository audits the consumption inside its own transaction, so
	// no best-effort Record call here.
	return s.repo.ConsumePasswordReset(ctx, reset.ID, reset.UserID, string(hash))
}

func (s *Service) lookupReset(ctx context.Context, token string) (*PasswordReset, error) {
	reset, err := s.repo.FindPasswordReset(ctx, token)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	if reset.Used {
		return nil, ErrTokenInvalid
	}
	if time.Now().UTC().After(reset.ExpiresAt) {
		return nil, ErrTokenExpired
	}
	return reset, nil
}
