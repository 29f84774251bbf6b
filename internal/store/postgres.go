package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/endritk/taskboard/internal/models"
)

var (
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameTaken is returned when an insert hits the unique username index.
	ErrUsernameTaken = errors.New("username already taken")
)

// PostgresStore handles user CRUD against PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the users table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			username      VARCHAR(50)  UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			first_name    VARCHAR(100) NOT NULL DEFAULT '',
			last_name     VARCHAR(100) NOT NULL DEFAULT '',
			avatar_url    VARCHAR(255) NOT NULL DEFAULT '',
			created_at    TIMESTAMPTZ  DEFAULT NOW()
		)
	`)
	return err
}

// CreateUser inserts a new user and returns the stored row.
func (s *PostgresStore) CreateUser(ctx context.Context, username, passwordHash, firstName, lastName string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (username, password_hash, first_name, last_name)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, username, first_name, last_name, avatar_url, created_at`,
		username, passwordHash, firstName, lastName,
	).Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.AvatarURL, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &u, nil
}

// GetUserByUsername returns the user including the password hash, for login.
func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, first_name, last_name, avatar_url, created_at
		 FROM users WHERE username = $1`, username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FirstName, &u.LastName, &u.AvatarURL, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByID returns the user's profile projection (no password hash).
func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, first_name, last_name, avatar_url, created_at
		 FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.AvatarURL, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateProfile overwrites only the supplied fields and returns the updated
// projection. Nil pointers leave the stored value untouched.
func (s *PostgresStore) UpdateProfile(ctx context.Context, id string, firstName, lastName, passwordHash *string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`UPDATE users
		 SET first_name    = COALESCE($2, first_name),
		     last_name     = COALESCE($3, last_name),
		     password_hash = COALESCE($4, password_hash)
		 WHERE id = $1
		 RETURNING id, username, first_name, last_name, avatar_url, created_at`,
		id, firstName, lastName, passwordHash,
	).Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.AvatarURL, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return &u, nil
}

// SetAvatar stores the avatar URL and returns the updated projection.
func (s *PostgresStore) SetAvatar(ctx context.Context, id, avatarURL string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`UPDATE users SET avatar_url = $2 WHERE id = $1
		 RETURNING id, username, first_name, last_name, avatar_url, created_at`,
		id, avatarURL,
	).Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.AvatarURL, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("set avatar: %w", err)
	}
	return &u, nil
}
