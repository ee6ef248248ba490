package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/ecanov/bienestar-api/internal/apperror"
	"github.com/ecanov/bienestar-api/internal/model"
	"github.com/ecanov/bienestar-api/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, username, email, password_hash, google_id,
	google_access_token, google_refresh_token, avatar_url, created_at, updated_at`

// CreateUser inserts a new user, generating the ID and timestamps.
//
// The INSERT itself is the atomic existence check: if another request
// created a user with the same username, email, or google_id between the
// service's pre-check and this statement, the UNIQUE constraint fires
// and the caller gets apperror.ErrDuplicate instead of corrupt state.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, google_id,
			google_access_token, google_refresh_token, avatar_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		nullable(user.Username),
		user.Email,
		nullable(user.PasswordHash),
		nullable(user.GoogleID),
		nullable(user.GoogleAccessToken),
		nullable(user.GoogleRefreshToken),
		nullable(user.AvatarURL),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Duplicate("username or email already registered")
		}
		return fmt.Errorf("sqlite: inserting user (email=%s): %w", user.Email, err)
	}

	return nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.queryUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// GetUserByEmail retrieves a user by email, the join key for Google linking.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.queryUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

// GetUserByLogin resolves a login key: username first, then email.
//
// Google-only identities may never set a username, and local identities
// log in with either key, so every place that turns a user-supplied
// login or a token subject into a user goes through this one lookup
// order. Duplicating it with subtly different fallback logic is how
// login and token validation drift apart.
func (db *DB) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	user, err := db.queryUser(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, login)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}
	return db.queryUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, login)
}

// GetUserByUsernameOrEmail is the combined registration pre-check: a single
// query that finds any user holding either key.
func (db *DB) GetUserByUsernameOrEmail(ctx context.Context, username, email string) (*model.User, error) {
	return db.queryUser(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ? OR email = ?`,
		username, email)
}

// UpdateUser persists the mutable fields of an existing user.
func (db *DB) UpdateUser(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now().UTC()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET google_id = ?, google_access_token = ?,
			google_refresh_token = ?, avatar_url = ?, updated_at = ?
		 WHERE id = ?`,
		nullable(user.GoogleID),
		nullable(user.GoogleAccessToken),
		nullable(user.GoogleRefreshToken),
		nullable(user.AvatarURL),
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			// google_id already linked to a different user
			return apperror.Duplicate("google account already linked")
		}
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}
	if affected == 0 {
		return apperror.NotFound("user", user.ID)
	}

	return nil
}

// queryUser runs a single-row user query and scans it.
func (db *DB) queryUser(ctx context.Context, query string, args ...any) (*model.User, error) {
	var (
		u            model.User
		username     sql.NullString
		passwordHash sql.NullString
		googleID     sql.NullString
		accessToken  sql.NullString
		refreshToken sql.NullString
		avatarURL    sql.NullString
	)

	err := db.conn.QueryRowContext(ctx, query, args...).Scan(
		&u.ID,
		&username,
		&u.Email,
		&passwordHash,
		&googleID,
		&accessToken,
		&refreshToken,
		&avatarURL,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", "")
		}
		return nil, fmt.Errorf("sqlite: querying user: %w", err)
	}

	u.Username = fromNull(username)
	u.PasswordHash = fromNull(passwordHash)
	u.GoogleID = fromNull(googleID)
	u.GoogleAccessToken = fromNull(accessToken)
	u.GoogleRefreshToken = fromNull(refreshToken)
	u.AvatarURL = fromNull(avatarURL)

	return &u, nil
}
