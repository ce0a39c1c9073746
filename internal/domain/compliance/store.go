package compliance

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"marketingops/internal/platform/querier"
)

const pgUniqueViolation = "23505"

// Store is the Postgres implementation of StoreAPI.
type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return querier.RunInTx(ctx, s.DB, fn)
}

func (s *Store) q(ctx context.Context) querier.Querier {
	return querier.From(ctx, s.DB)
}

func notFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrDuplicate
	}
	return err
}

func marshalJSON(value any) ([]byte, error) {
	if value == nil {
		return nil, nil
	}
	return json.Marshal(value)
}

func unmarshalJSON[T any](raw []byte, out *T) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}
