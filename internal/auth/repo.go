package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/karyana-pos/karyana-pos/internal/platform/db"
	"github.com/karyana-pos/karyana-pos/internal/shared"
)

const userColumns = `id, username, COALESCE(email, ''), password_hash, role, is_superadmin, is_active, last_login_at, created_at`

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool  *pgxpool.Pool
	audit *shared.AuditLogger
}

// NewRepository constructs a PostgreSQL repository. The audit logger may be
// nil; when present, credential changes are audited inside the same
// transaction that applies them.
func NewRepository(pool *pgxpool.Pool, audit *shared.AuditLogger) *PGRepository {
	return &PGRepository{pool: pool, audit: audit}
}

// CreateUser inserts an account. Unique violations on username or email
// map to shared.ErrDuplicate.
func (r *PGRepository) CreateUser(ctx context.Context, user User) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO users
		(username, email, password_hash, role, is_superadmin, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		user.Username, nullText(user.Email), user.PasswordHash, user.Role,
		user.IsSuperadmin, user.IsActive, user.CreatedAt,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, shared.ErrDuplicate
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

// FindByID fetches a user by primary key.
func (r *PGRepository) FindByID(ctx context.Context, userID int64) (*User, error) {
	return r.findUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
}

// FindByUsername fetches a user by username.
func (r *PGRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	return r.findUser(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

// FindByEmail fetches a user by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *PGRepository) findUser(ctx context.Context, query string, arg any) (*User, error) {
	var u User
	err := r.pool.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash,
		&u.Role, &u.IsSuperadmin, &u.IsActive, &u.LastLoginAt, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

// ListUsers returns accounts ordered by creation time, newest first.
func (r *PGRepository) ListUsers(ctx context.Context, limit, offset int) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	users := []User{}
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash,
			&u.Role, &u.IsSuperadmin, &u.IsActive, &u.LastLoginAt, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateUser applies the non-nil fields of input. Unique violations on
// username or email map to shared.ErrDuplicate.
func (r *PGRepository) UpdateUser(ctx context.Context, userID int64, input UpdateUserInput) error {
	sets := []string{}
	args := []any{}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if input.Username != nil {
		add("username", *input.Username)
	}
	if input.Email != nil {
		add("email", nullText(*input.Email))
	}
	if input.Role != nil {
		add("role", *input.Role)
	}
	if input.IsActive != nil {
		add("is_active", *input.IsActive)
	}
	if input.IsSuperadmin != nil {
		add("is_superadmin", *input.IsSuperadmin)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, userID)
	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return shared.ErrDuplicate
		}
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetActive toggles the soft-disable flag.
func (r *PGRepository) SetActive(ctx context.Context, userID int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET is_active = $1 WHERE id = $2`, active, userID)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteUser removes the account row. Password resets for the user go with
// it via the FK cascade.
func (r *PGRepository) DeleteUser(ctx context.Context, userID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// TouchLastLogin stamps the last successful login.
func (r *PGRepository) TouchLastLogin(ctx context.Context, userID int64, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET last_login_at = $1 WHERE id = $2`, at, userID)
	return err
}

// UpdatePasswordHash replaces the stored credential.
func (r *PGRepository) UpdatePasswordHash(ctx context.Context, userID int64, hash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, hash, userID)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CreatePasswordReset inserts a reset token row.
func (r *PGRepository) CreatePasswordReset(ctx context.Context, reset PasswordReset) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO password_resets
		(user_id, token, expires_at, used, created_at)
		VALUES ($1, $2, $3, false, $4) RETURNING id`,
		reset.UserID, reset.Token, reset.ExpiresAt, reset.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create password reset: %w", err)
	}
	return id, nil
}

// FindPasswordReset loads a reset row by token.
func (r *PGRepository) FindPasswordReset(ctx context.Context, token string) (*PasswordReset, error) {
	var p PasswordReset
	err := r.pool.QueryRow(ctx, `SELECT id, user_id, token, expires_at, used, created_at
		FROM password_resets WHERE token = $1`, token,
	).Scan(&p.ID, &p.UserID, &p.Token, &p.ExpiresAt, &p.Used, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find password reset: %w", err)
	}
	return &p, nil
}

// ConsumePasswordReset marks the token used and writes the new hash in one
// transaction, so a crash between the two cannot leave a reusable token.
func (r *PGRepository) ConsumePasswordReset(ctx context.Context, resetID, userID int64, newHash string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE password_resets SET used = true WHERE id = $1 AND used = false`, resetID)
		if err != nil {
			return fmt.Errorf("mark reset used: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrTokenInvalid
		}
		if _, err := tx.Exec(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, newHash, userID); err != nil {
			return fmt.Errorf("update password: %w", err)
		}
		if r.audit != nil {
			// Joins the transaction: the audit row exists exactly when the
			// reset was actually consumed.
			if err := r.audit.RecordIn(ctx, tx, shared.AuditLog{
				EntityType: "user",
				Action:     "password_reset",
				Details:    fmt.Sprintf("user_id=%d", userID),
			}); err != nil {
				return fmt.Errorf("audit password reset: %w", err)
			}
		}
		return nil
	})
}

func nullText(value string) any {
	if value == "" {
		return nil
	}
	return value
}

var _ Repository = (*PGRepository)(nil)
