package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketingops/internal/platform/config"
)

func memoryConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.StoreDriver = config.StoreDriverMemory
	cfg.JWTSecret = "test-secret"
	cfg.SeedAdminEmail = "admin@example.com"
	cfg.SeedAdminPassword = "correct horse"
	cfg.RetentionInterval = 0
	cfg.ArchiveSQLitePath = filepath.Join(t.TempDir(), "archive.db")
	return cfg
}

type client struct {
	t      *testing.T
	router http.Handler
	token  string
}

func (c *client) call(method, path string, body any) (*httptest.ResponseRecorder, json.RawMessage) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)

	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env.Data
}

func TestMemoryServerJourney(t *testing.T) {
	app, err := New(context.Background(), memoryConfig(t))
	require.NoError(t, err)
	t.Cleanup(app.Close)

	c := &client{t: t, router: app.Router}

	rec, _ := c.call(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = c.call(http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = c.call(http.MethodGet, "/api/v1/compliance/retention/policies", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = c.call(http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "admin@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, data := c.call(http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "Admin@Example.com", "password": "correct horse"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var login struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, json.Unmarshal(data, &login))
	require.NotEmpty(t, login.AccessToken)
	c.token = login.AccessToken

	rec, data = c.call(http.MethodGet, "/api/v1/auth/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(data), `"role":"admin"`)

	rec, data = c.call(http.MethodGet, "/api/v1/compliance/classifications", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var classes []map[string]any
	require.NoError(t, json.Unmarshal(data, &classes))
	assert.Len(t, classes, 4)

	rec, _ = c.call(http.MethodPost, "/api/v1/compliance/retention/policies", map[string]any{
		"entityType":          "content",
		"retentionPeriodDays": 30,
		"archiveStrategy":     "archive",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, data = c.call(http.MethodPost, "/api/v1/compliance/retention/run", map[string]string{"entityType": "content"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var report struct {
		Results []map[string]any `json:"results"`
	}
	require.NoError(t, json.Unmarshal(data, &report))
	require.Len(t, report.Results, 1)
	assert.Equal(t, "success", report.Results[0]["status"])

	rec, _ = c.call(http.MethodPost, "/api/v1/compliance/retention/purge", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = c.call(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "marketingops_retentionSweepsTotal 1")
	assert.Contains(t, rec.Body.String(), "marketingops_requestsTotal")
}

func TestNewRejectsBadEncryptionKey(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.DataEncryptionKey = "too-short"
	_, err := New(context.Background(), cfg)
	require.Error(t, err)
}

func TestPostgresServerStarts(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	cfg := memoryConfig(t)
	cfg.StoreDriver = config.StoreDriverPostgres
	cfg.DatabaseURL = dsn
	cfg.MigrationsDir = filepath.Join("..", "..", "..", "migrations")

	app, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(app.Close)

	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
