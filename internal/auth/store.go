package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/preppro/backend/internal/apperr"
	"github.com/preppro/backend/internal/database"
	"github.com/preppro/backend/internal/models"
)

const userColumns = `id, username, email, role, password, last_login, created_at, updated_at`

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	var u models.User
	var lastLogin sql.NullTime
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Role, &u.PasswordHash, &lastLogin, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return &u, nil
}

// CreateUser inserts a user. When username is empty one is generated from the
// email and regenerated on collision.
func (s *Store) CreateUser(ctx context.Context, email, username, passwordHash string, role models.Role) (*models.User, error) {
	generated := username == ""
	if generated {
		username = database.GenerateUsername(email)
	}

	var (
		user *models.User
		err  error
	)
	// Try up to 5 times in case of username collision
	for attempt := 0; attempt < 5; attempt++ {
		user, err = scanUser(s.db.QueryRowContext(ctx,
			`INSERT INTO users (username, email, role, password)
			 VALUES ($1, $2, $3, $4)
			 RETURNING `+userColumns,
			username, email, role, passwordHash,
		))
		if err == nil {
			return user, nil
		}
		if generated && database.IsUniqueViolation(err, "users_username_key") {
			username = database.GenerateUsername(email)
			continue
		}
		break
	}

	switch {
	case database.IsUniqueViolation(err, "users_email_key"):
		return nil, apperr.Conflict("A user with this email already exists")
	case database.IsUniqueViolation(err, "users_username_key"):
		return nil, apperr.Conflict("A user with this username already exists")
	}
	return nil, fmt.Errorf("insert user: %w", err)
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1 AND deleted_at IS NULL`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (s *Store) GetByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1 AND deleted_at IS NULL`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *Store) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET last_login = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("update last_login: %w", err)
	}
	return nil
}

func (s *Store) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET password = $2, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`,
		id, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("User not found")
	}
	return nil
}

// RevokeToken blacklists a refresh token by jti. Revoking twice is a no-op.
func (s *Store) RevokeToken(ctx context.Context, jti string, userID int64, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO revoked_tokens (jti, user_id, expires_at) VALUES ($1, $2, $3)
		 ON CONFLICT (jti) DO NOTHING`,
		jti, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (s *Store) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM revoked_tokens WHERE jti = $1)`, jti).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return exists, nil
}

// PurgeExpired drops blacklist rows whose tokens would be rejected anyway.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE expires_at < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("purge revoked tokens: %w", err)
	}
	return res.RowsAffected()
}
