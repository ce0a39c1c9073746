package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

type AuthUser struct {
	ID       string
	RoleName string
	Password string
}

// FindActiveUserByEmail returns nil when no active user has the email.
func (s *Store) FindActiveUserByEmail(ctx context.Context, email string) (*AuthUser, error) {
	var out AuthUser
	var hash *string
	err := s.DB.QueryRow(ctx, `
    SELECT id, role, password_hash
    FROM users
    WHERE email = $1 AND is_active = true AND deleted_at IS NULL
  `, email).Scan(&out.ID, &out.RoleName, &hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if hash != nil {
		out.Password = *hash
	}
	return &out, nil
}

func (s *Store) UpdateLastLogin(ctx context.Context, userID string) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET last_login = now() WHERE id = $1", userID)
	return err
}
