// Package auth handles user accounts and the session tokens that gate the
// moderation routes. Passwords are stored as bcrypt hashes; sessions live in
// the database so every instance sees the same state.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ivall/sifo/catalog"
)

// Roles. Admins see the moderation queue; everyone else only browses.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// AuthError reports a failed login or an insufficient role. The HTTP layer
// maps missing credentials to 401 and wrong role to 403.
type AuthError struct {
	Msg       string
	Forbidden bool
}

func (e *AuthError) Error() string { return e.Msg }

// IsAuth reports whether err is an AuthError.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// User is a registered account.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Session is a live login. Token is an opaque uuid handed to the client.
type Session struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"user_id"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Register creates an account with the default user role. The password must
// be entered twice; mismatches reject the registration.
func Register(ctx context.Context, db *sql.DB, username, password, confirm string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, &catalog.ValidationError{Msg: "username is required"}
	}
	if len(password) < 8 {
		return nil, &catalog.ValidationError{Msg: "password must be at least 8 characters"}
	}
	if password != confirm {
		return nil, &catalog.ValidationError{Msg: "passwords do not match"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{Username: username, Role: RoleUser}
	err = db.QueryRowContext(ctx, `
		INSERT INTO users (username, password_hash, role)
		VALUES ($1,$2,$3)
		ON CONFLICT (username) DO NOTHING
		RETURNING id`,
		username, string(hash), RoleUser).Scan(&u.ID)
	if err == sql.ErrNoRows {
		return nil, &catalog.ValidationError{Msg: "username already taken"}
	}
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// Authenticate checks credentials and opens a session valid for ttl.
// The same message covers unknown users and wrong passwords.
func Authenticate(ctx context.Context, db *sql.DB, username, password string, ttl time.Duration) (*Session, error) {
	var (
		userID int64
		hash   string
		role   string
	)
	err := db.QueryRowContext(ctx, `
		SELECT id, password_hash, role FROM users WHERE username=$1`, username).
		Scan(&userID, &hash, &role)
	if err == sql.ErrNoRows {
		return nil, &AuthError{Msg: "invalid username or password"}
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, &AuthError{Msg: "invalid username or password"}
	}

	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	s := &Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		Role:      role,
		ExpiresAt: time.Now().Add(ttl),
	}
	if _, err := db.ExecContext(ctx, `
		INSERT INTO sessions (token, user_id, role, expires_at)
		VALUES ($1,$2,$3,$4)`,
		s.Token, s.UserID, s.Role, s.ExpiresAt); err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return s, nil
}

// LookupSession resolves a token to its live session. Expired tokens read as
// missing even before the sweeper removes them.
func LookupSession(ctx context.Context, db *sql.DB, token string) (*Session, error) {
	if token == "" {
		return nil, &AuthError{Msg: "authentication required"}
	}
	var s Session
	err := db.QueryRowContext(ctx, `
		SELECT token, user_id, role, expires_at FROM sessions
		WHERE token=$1 AND expires_at > NOW()`, token).
		Scan(&s.Token, &s.UserID, &s.Role, &s.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, &AuthError{Msg: "session expired or unknown"}
	}
	if err != nil {
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	return &s, nil
}

// Logout deletes a session. Unknown tokens are not an error.
func Logout(ctx context.Context, db *sql.DB, token string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE token=$1`, token)
	return err
}

// PromoteAdmin grants the admin role to an existing user.
func PromoteAdmin(ctx context.Context, db *sql.DB, username string) error {
	res, err := db.ExecContext(ctx, `UPDATE users SET role=$2 WHERE username=$1`, username, RoleAdmin)
	if err != nil {
		return fmt.Errorf("promote user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &catalog.ValidationError{Msg: "unknown username"}
	}
	return nil
}
