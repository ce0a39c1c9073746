package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"marketingops/internal/transport/http/api"
)

var ErrIdempotencyConflict = errors.New("idempotency key conflicts with existing request")

type StoredResponse struct {
	Status int
	Body   []byte
}

type IdempotencyStore interface {
	Check(ctx context.Context, userID, endpoint, key, requestHash string) (*StoredResponse, error)
	Save(ctx context.Context, userID, endpoint, key, requestHash string, resp StoredResponse) error
}

func RequestHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

type responseCapture struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (c *responseCapture) WriteHeader(code int) {
	c.status = code
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(p []byte) (int, error) {
	c.body.Write(p)
	return c.ResponseWriter.Write(p)
}

// Idempotent replays the stored response when a request repeats its
// Idempotency-Key with the same body. Reusing a key with a different body is
// a conflict. Only 2xx responses are stored.
func Idempotent(endpoint string, store IdempotencyStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
			if key == "" || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			userID := ""
			if user, ok := GetUser(r.Context()); ok {
				userID = user.UserID
			}

			raw, err := io.ReadAll(r.Body)
			if err != nil {
				api.Fail(w, http.StatusBadRequest, "invalid_body", "could not read request body", GetRequestID(r.Context()))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(raw))
			requestHash := RequestHash(raw)

			stored, err := store.Check(r.Context(), userID, endpoint, key, requestHash)
			if errors.Is(err, ErrIdempotencyConflict) {
				api.Fail(w, http.StatusConflict, "idempotency_conflict", err.Error(), GetRequestID(r.Context()))
				return
			}
			if err != nil {
				slog.Warn("idempotency check failed", "err", err)
			}
			if stored != nil {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Idempotent-Replay", "true")
				w.WriteHeader(stored.Status)
				_, _ = w.Write(stored.Body)
				return
			}

			capture := &responseCapture{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(capture, r)
			if capture.status < 200 || capture.status >= 300 {
				return
			}
			if err := store.Save(r.Context(), userID, endpoint, key, requestHash, StoredResponse{Status: capture.status, Body: capture.body.Bytes()}); err != nil {
				slog.Warn("idempotency save failed", "err", err)
			}
		})
	}
}

type PgIdempotencyStore struct {
	db *pgxpool.Pool
}

func NewIdempotencyStore(db *pgxpool.Pool) *PgIdempotencyStore {
	return &PgIdempotencyStore{db: db}
}

func (s *PgIdempotencyStore) Check(ctx context.Context, userID, endpoint, key, requestHash string) (*StoredResponse, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var storedHash string
	var resp StoredResponse
	err := s.db.QueryRow(ctx, `
    SELECT request_hash, status_code, response_body
    FROM idempotency_keys
    WHERE user_id = $1 AND key = $2 AND endpoint = $3
  `, userID, key, endpoint).Scan(&storedHash, &resp.Status, &resp.Body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if storedHash != requestHash {
		return nil, ErrIdempotencyConflict
	}
	return &resp, nil
}

func (s *PgIdempotencyStore) Save(ctx context.Context, userID, endpoint, key, requestHash string, resp StoredResponse) error {
	if s == nil || s.db == nil {
		return nil
	}
	tag, err := s.db.Exec(ctx, `
    INSERT INTO idempotency_keys (user_id, key, endpoint, request_hash, status_code, response_body)
    VALUES ($1, $2, $3, $4, $5, $6)
    ON CONFLICT (user_id, key, endpoint)
    DO UPDATE SET response_body = EXCLUDED.response_body, status_code = EXCLUDED.status_code
    WHERE idempotency_keys.request_hash = EXCLUDED.request_hash
  `, userID, key, endpoint, requestHash, resp.Status, resp.Body)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrIdempotencyConflict
	}
	return nil
}

type idempotencyKey struct {
	userID, endpoint, key string
}

type idempotencyEntry struct {
	hash string
	resp StoredResponse
}

type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	entries map[idempotencyKey]idempotencyEntry
}

func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{entries: map[idempotencyKey]idempotencyEntry{}}
}

func (s *MemoryIdempotencyStore) Check(ctx context.Context, userID, endpoint, key, requestHash string) (*StoredResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[idempotencyKey{userID, endpoint, key}]
	if !ok {
		return nil, nil
	}
	if entry.hash != requestHash {
		return nil, ErrIdempotencyConflict
	}
	resp := entry.resp
	resp.Body = append([]byte(nil), entry.resp.Body...)
	return &resp, nil
}

func (s *MemoryIdempotencyStore) Save(ctx context.Context, userID, endpoint, key, requestHash string, resp StoredResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := idempotencyKey{userID, endpoint, key}
	if existing, ok := s.entries[k]; ok && existing.hash != requestHash {
		return ErrIdempotencyConflict
	}
	resp.Body = append([]byte(nil), resp.Body...)
	s.entries[k] = idempotencyEntry{hash: requestHash, resp: resp}
	return nil
}
