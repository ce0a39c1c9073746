package db

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"marketingops/internal/domain/auth"
	"marketingops/internal/domain/compliance"
	"marketingops/internal/platform/config"
)

func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if err := ensureClassifications(ctx, pool); err != nil {
		return err
	}
	return ensureAdminUser(ctx, pool, cfg.SeedAdminEmail, cfg.SeedAdminPassword)
}

func ensureClassifications(ctx context.Context, pool *pgxpool.Pool) error {
	for _, c := range compliance.DefaultClassifications {
		_, err := pool.Exec(ctx, `
			INSERT INTO data_classifications (name, description, access_requirements, encryption_required, retention_requirements)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (name) DO NOTHING
		`, c.Name, c.Description, c.AccessRequirements, c.EncryptionRequired, c.RetentionRequirements)
		if err != nil {
			return err
		}
	}
	return nil
}

func ensureAdminUser(ctx context.Context, pool *pgxpool.Pool, email, password string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return nil
	}
	email = strings.ToLower(strings.TrimSpace(email))

	var id string
	err := pool.QueryRow(ctx, "SELECT id FROM users WHERE email = $1", email).Scan(&id)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO users (email, username, full_name, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
	`, email, email, "Administrator", hash, auth.RoleAdmin)
	return err
}
