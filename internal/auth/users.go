package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/karyana-pos/karyana-pos/internal/shared"
)

// EnsureAdmin seeds the superadmin account when it does not exist yet, so a
// fresh database is usable without out-of-band SQL. Idempotent: a second
// call with the same username is a no-op and never resets the password.
func (s *Service) EnsureAdmin(ctx context.Context, username, email, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return errors.New("auth: admin username and password are required")
	}
	_, err := s.repo.FindByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("lookup admin account: %w", err)
	}
	_, err = s.Register(ctx, CreateUserInput{
		Username:     username,
		Email:        email,
		Password:     password,
		Role:         "superadmin",
		IsSuperadmin: true,
	})
	return err
}

// CreateUserAs registers an account on behalf of an actor. Only superadmin
// actors may grant the superadmin flag.
func (s *Service) CreateUserAs(ctx context.Context, actorID int64, input CreateUserInput) (int64, error) {
	if input.IsSuperadmin {
		if err := s.requireSuperadmin(ctx, actorID); err != nil {
			return 0, err
		}
	}
	return s.Register(ctx, input)
}

// GetUser loads one account.
func (s *Service) GetUser(ctx context.Context, userID int64) (*User, error) {
	if userID <= 0 {
		return nil, shared.ErrNotFound
	}
	return s.repo.FindByID(ctx, userID)
}

// ListUsers returns accounts, newest first.
func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]User, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.repo.ListUsers(ctx, limit, offset)
}

// UpdateUser applies a partial account update. The superadmin flag is
// silently dropped when the actor is not a superadmin, matching the rest of
// the fields staying editable for shop staff.
func (s *Service) UpdateUser(ctx context.Context, actorID, userID int64, input UpdateUserInput) error {
	if userID <= 0 {
		return shared.ErrNotFound
	}
	if input.Username != nil {
		trimmed := strings.TrimSpace(*input.Username)
		if trimmed == "" {
			return ErrUsernameRequired
		}
		input.Username = &trimmed
	}
	if input.IsSuperadmin != nil {
		if err := s.requireSuperadmin(ctx, actorID); err != nil {
			input.IsSuperadmin = nil
		}
	}
	if err := s.repo.UpdateUser(ctx, userID, input); err != nil {
		return err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			EntityType: "user",
			Action:     "update",
			Details:    fmt.Sprintf("user_id=%d", userID),
			At:         time.Now().UTC(),
		})
	}
	return nil
}

// DeactivateUser soft-disables an account. Deactivating a superadmin
// requires a superadmin actor.
func (s *Service) DeactivateUser(ctx context.Context, actorID, userID int64) error {
	target, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if target.IsSuperadmin {
		if err := s.requireSuperadmin(ctx, actorID); err != nil {
			return err
		}
	}
	if err := s.repo.SetActive(ctx, userID, false); err != nil {
		return err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			EntityType: "user",
			Action:     "deactivate",
			Details:    fmt.Sprintf("user_id=%d", userID),
			At:         time.Now().UTC(),
		})
	}
	return nil
}

// DeleteUser removes an account for good. Deleting a superadmin requires a
// superadmin actor; everyone else should usually be deactivated instead.
func (s *Service) DeleteUser(ctx context.Context, actorID, userID int64) error {
	target, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if target.IsSuperadmin {
		if err := s.requireSuperadmin(ctx, actorID); err != nil {
			return err
		}
	}
	if err := s.repo.DeleteUser(ctx, userID); err != nil {
		return err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			EntityType: "user",
			Action:     "delete",
			Details:    fmt.Sprintf("user_id=%d, username=%s", userID, target.Username),
			At:         time.Now().UTC(),
		})
	}
	return nil
}

func (s *Service) requireSuperadmin(ctx context.Context, actorID int64) error {
	if actorID <= 0 {
		return ErrSuperadminRequired
	}
	actor, err := s.repo.FindByID(ctx, actorID)
	if err != nil {
		return ErrSuperadminRequired
	}
	if !actor.IsSuperadmin {
		return ErrSuperadminRequired
	}
	return nil
}
