// Package auth manages registered users and issues their identity tokens.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"dynatable/internal/domain"
)

// User is one row of the _users registry. The password field holds a
// bcrypt hash, never plaintext.
type User struct {
	ID       string    `json:"id"`
	Email    string    `json:"email"`
	Password string    `json:"-"`
	Created  time.Time `json:"created"`
	Updated  time.Time `json:"updated"`
}

// UserRepo provides CRUD over _users.
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo creates a UserRepo over the given write pool.
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create inserts a new user with a fresh id and current timestamps.
func (r *UserRepo) Create(ctx context.Context, email, passwordHash string) (*User, error) {
	u := &User{
		ID:       uuid.NewString(),
		Email:    email,
		Password: passwordHash,
		Created:  time.Now().UTC(),
		Updated:  time.Now().UTC(),
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO _users (id, email, password, created, updated) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Password, u.Created.Format(time.RFC3339Nano), u.Updated.Format(time.RFC3339Nano))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, domain.ErrConflict("user %q already exists", email)
		}
		return nil, err
	}
	return u, nil
}

// GetByEmail returns the user with the given email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.get(ctx, `SELECT id, email, password, created, updated FROM _users WHERE email = ?`, email)
}

// GetByID returns the user with the given id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*User, error) {
	return r.get(ctx, `SELECT id, email, password, created, updated FROM _users WHERE id = ?`, id)
}

func (r *UserRepo) get(ctx context.Context, query string, arg interface{}) (*User, error) {
	var (
		u                User
		created, updated string
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Email, &u.Password, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("user not found")
	}
	if err != nil {
		return nil, err
	}
	u.Created, _ = time.Parse(time.RFC3339Nano, created)
	u.Updated, _ = time.Parse(time.RFC3339Nano, updated)
	return &u, nil
}
