package compliance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// freezeClock pins timeNow for the duration of the test.
func freezeClock(t *testing.T, at time.Time) {
	t.Helper()
	previous := timeNow
	timeNow = func() time.Time { return at }
	t.Cleanup(func() { timeNow = previous })
}

type archivedRecord struct {
	entityType string
	record     map[string]any
}

type recordingSink struct {
	mu     sync.Mutex
	calls  []archivedRecord
	failOn string
}

func (s *recordingSink) Archive(ctx context.Context, entityType string, record map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn != "" && record["id"] == s.failOn {
		return errors.New("archive unavailable")
	}
	s.calls = append(s.calls, archivedRecord{entityType: entityType, record: record})
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []AuditEntry
	err     error
}

func (a *recordingAudit) Append(ctx context.Context, entry AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	return a.err
}

func daysAgo(days int) *time.Time {
	at := testNow.Add(-time.Duration(days) * day)
	return &at
}

func strPtr(value string) *string {
	return &value
}
