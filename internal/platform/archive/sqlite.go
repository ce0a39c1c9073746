package archive

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteSink keeps archived records in a local SQLite database.
type SQLiteSink struct {
	db     *sql.DB
	prefix string
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS archived_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	object_key TEXT NOT NULL UNIQUE,
	entity_type TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	archived_at INTEGER NOT NULL,
	payload BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_archived_records_entity ON archived_records(entity_type, entity_id);
`

func OpenSQLite(dbPath, prefix string) (*SQLiteSink, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create archive dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open archive db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init archive schema: %w", err)
	}
	return &SQLiteSink{db: db, prefix: prefix}, nil
}

func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

func (s *SQLiteSink) Archive(ctx context.Context, entityType string, record map[string]any) error {
	env, err := newEnvelope(entityType, record)
	if err != nil {
		return err
	}
	payload, err := Encode(env)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO archived_records (object_key, entity_type, entity_id, archived_at, payload)
		VALUES (?, ?, ?, ?, ?)
	`, ObjectKey(s.prefix, env), entityType, env.EntityID, env.ArchivedAt.UnixNano(), payload)
	if err != nil {
		return fmt.Errorf("archive %s/%s: %w", entityType, env.EntityID, err)
	}
	return nil
}

// List returns the archived copies of one entity, oldest first.
func (s *SQLiteSink) List(ctx context.Context, entityType, entityID string) ([]Envelope, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM archived_records
		WHERE entity_type = ? AND entity_id = ?
		ORDER BY archived_at, id
	`, entityType, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Envelope
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		env, err := Decode(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, env)
	}
	return out, rows.Err()
}

// Count returns the number of archived records of entityType, or of every
// type when entityType is empty.
func (s *SQLiteSink) Count(ctx context.Context, entityType string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM archived_records WHERE ? = '' OR entity_type = ?", entityType, entityType).Scan(&n)
	return n, err
}

// PurgeBefore removes archived copies older than the cutoff.
func (s *SQLiteSink) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM archived_records WHERE archived_at < ?", cutoff.UnixNano())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
