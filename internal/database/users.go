package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User is one account record.
type User struct {
	ID         int64     `json:"id"`
	Username   string    `json:"username"`
	QuotaLimit int64     `json:"quotaLimit"`
	CreatedAt  time.Time `json:"createdAt"`

	PasswordHash string `json:"-"`
}

// ErrInvalidCredentials is returned when a password check fails.
var ErrInvalidCredentials = errors.New("invalid credentials")

// CreateUser inserts a new user with the given password and quota limit in
// bytes (negative = unlimited, normalized to -1).
func (d *Database) CreateUser(username, password string, quotaLimit int64) error {
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}
	if quotaLimit < 0 {
		quotaLimit = -1
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	_, err = d.db.Exec(
		"INSERT INTO users (username, password_hash, quota_limit) VALUES (?, ?, ?)",
		username, string(hash), quotaLimit,
	)
	if err != nil {
		return fmt.Errorf("failed to create user %s: %w", username, err)
	}
	return nil
}

// GetUser returns the user record for username.
func (d *Database) GetUser(username string) (*User, error) {
	var u User
	var createdAt int64
	err := d.db.QueryRow(
		"SELECT id, username, password_hash, quota_limit, created_at FROM users WHERE username = ?",
		username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.QuotaLimit, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query user %s: %w", username, err)
	}
	u.CreatedAt = time.Unix(createdAt, 0)
	return &u, nil
}

// ValidatePassword checks a username/password pair and returns the user on
// success.
func (d *Database) ValidatePassword(username, password string) (*User, error) {
	u, err := d.GetUser(username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// UpdatePassword replaces the stored password hash for username.
func (d *Database) UpdatePassword(username, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("password cannot be empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	res, err := d.db.Exec("UPDATE users SET password_hash = ? WHERE username = ?", string(hash), username)
	if err != nil {
		return fmt.Errorf("failed to update password for %s: %w", username, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetUserQuota stores the quota limit for username (negative = unlimited,
// normalized to -1).
func (d *Database) SetUserQuota(username string, quotaLimit int64) error {
	if quotaLimit < 0 {
		quotaLimit = -1
	}

	res, err := d.db.Exec("UPDATE users SET quota_limit = ? WHERE username = ?", quotaLimit, username)
	if err != nil {
		return fmt.Errorf("failed to set quota for %s: %w", username, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUsers returns all user records ordered by username.
func (d *Database) ListUsers() ([]User, error) {
	rows, err := d.db.Query("SELECT id, username, password_hash, quota_limit, created_at FROM users ORDER BY username")
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		var createdAt int64
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.QuotaLimit, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		u.CreatedAt = time.Unix(createdAt, 0)
		users = append(users, u)
	}
	return users, rows.Err()
}
