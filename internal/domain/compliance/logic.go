package compliance

import (
	"crypto/rand"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

var timeNow = time.Now

const day = 24 * time.Hour

// RetentionCutoff returns the instant before which soft-deleted rows expire.
func RetentionCutoff(now time.Time, retentionDays int) time.Time {
	return now.Add(-time.Duration(retentionDays) * day)
}

// LatestConsent picks the record that defines current consent: the greatest
// RecordedAt, ties broken by the higher insertion sequence.
func LatestConsent(records []ConsentRecord) *ConsentRecord {
	var latest *ConsentRecord
	for i := range records {
		rec := &records[i]
		if latest == nil || consentAfter(*rec, *latest) {
			latest = rec
		}
	}
	if latest == nil {
		return nil
	}
	out := *latest
	return &out
}

func consentAfter(a, b ConsentRecord) bool {
	if a.RecordedAt.Equal(b.RecordedAt) {
		return a.Seq > b.Seq
	}
	return a.RecordedAt.After(b.RecordedAt)
}

// SortConsentsNewestFirst orders records by the same rule LatestConsent uses.
func SortConsentsNewestFirst(records []ConsentRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return consentAfter(records[i], records[j])
	})
}

func historyEntry(rec ConsentRecord) ConsentHistoryEntry {
	categories := rec.DataCategories
	if categories == nil {
		categories = []string{}
	}
	return ConsentHistoryEntry{
		ConsentType:    rec.ConsentType,
		Status:         rec.Status,
		RecordedAt:     rec.RecordedAt,
		ExpiresAt:      rec.ExpiresAt,
		ConsentVersion: rec.ConsentVersion,
		DataCategories: categories,
	}
}

func hasCategory(categories []string, category string) bool {
	for _, c := range categories {
		if c == category {
			return true
		}
	}
	return false
}

func randomHex() (string, error) {
	buff := make([]byte, 16)
	if _, err := rand.Read(buff); err != nil {
		return "", err
	}
	return hex.EncodeToString(buff), nil
}

// AnonymizedIdentity builds replacement email and username values from two
// independent random tokens.
func AnonymizedIdentity(token func() (string, error)) (string, string, error) {
	emailToken, err := token()
	if err != nil {
		return "", "", err
	}
	usernameToken, err := token()
	if err != nil {
		return "", "", err
	}
	return "anonymized_" + emailToken + "@" + AnonymizedEmailDomain, "anonymized_" + usernameToken, nil
}

func canTransition[S comparable](table map[S][]S, from, to S) bool {
	for _, allowed := range table[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func trimmed(value string) string {
	return strings.TrimSpace(value)
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}
