package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rtzll/tutorly/internal"
)

// UserRepository persists users in Postgres.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository constructs a postgres-backed user repository.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, username, email, token_hash, created_at`

func scanUser(row *sql.Row) (internal.User, error) {
	var u internal.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.TokenHash, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return internal.User{}, internal.ErrNotFound
		}
		return internal.User{}, err
	}
	return u, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (internal.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil && !errors.Is(err, internal.ErrNotFound) {
		return internal.User{}, fmt.Errorf("find user: %w", err)
	}
	return u, err
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (internal.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(username) = LOWER($1)`, username))
	if err != nil && !errors.Is(err, internal.ErrNotFound) {
		return internal.User{}, fmt.Errorf("find user by username: %w", err)
	}
	return u, err
}

func (r *UserRepository) FindByTokenHash(ctx context.Context, tokenHash string) (internal.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE token_hash = $1`, tokenHash))
	if err != nil && !errors.Is(err, internal.ErrNotFound) {
		return internal.User{}, fmt.Errorf("find user by token: %w", err)
	}
	return u, err
}

func (r *UserRepository) Save(ctx context.Context, user internal.User) (internal.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	const upsert = `
        INSERT INTO users (id, username, email, token_hash, created_at)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (id) DO UPDATE
           SET username = EXCLUDED.username,
               email = EXCLUDED.email,
               token_hash = EXCLUDED.token_hash
        RETURNING created_at
    `
	if err := r.db.QueryRowContext(ctx, upsert,
		user.ID,
		user.Username,
		user.Email,
		user.TokenHash,
		user.CreatedAt,
	).Scan(&user.CreatedAt); err != nil {
		return internal.User{}, fmt.Errorf("save user: %w", err)
	}
	return user, nil
}

var _ internal.UserRepository = (*UserRepository)(nil)
