package compliance

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const consentColumns = `id, seq, user_id, consent_type, status, ip_address, user_agent, consent_version, data_categories, recorded_at, expires_at`

// consentOrder picks the latest decision first; seq breaks recorded_at ties.
const consentOrder = `ORDER BY recorded_at DESC, seq DESC`

func scanConsent(row pgx.Row) (*ConsentRecord, error) {
	var c ConsentRecord
	if err := row.Scan(&c.ID, &c.Seq, &c.UserID, &c.ConsentType, &c.Status, &c.IPAddress, &c.UserAgent, &c.ConsentVersion, &c.DataCategories, &c.RecordedAt, &c.ExpiresAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) InsertConsent(ctx context.Context, record *ConsentRecord) error {
	categories := record.DataCategories
	if categories == nil {
		categories = []string{}
	}
	return s.q(ctx).QueryRow(ctx, `
    INSERT INTO consent_records (user_id, consent_type, status, ip_address, user_agent, consent_version, data_categories, recorded_at, expires_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    RETURNING id, seq
  `, record.UserID, record.ConsentType, record.Status, record.IPAddress, record.UserAgent, record.ConsentVersion, categories, record.RecordedAt, record.ExpiresAt).Scan(&record.ID, &record.Seq)
}

func (s *Store) latestConsent(ctx context.Context, where string, args ...any) (*ConsentRecord, error) {
	record, err := scanConsent(s.q(ctx).QueryRow(ctx, `SELECT `+consentColumns+` FROM consent_records WHERE `+where+` `+consentOrder+` LIMIT 1`, args...))
	if notFound(err) {
		return nil, nil
	}
	return record, err
}

func (s *Store) LatestConsent(ctx context.Context, userID, consentType string) (*ConsentRecord, error) {
	return s.latestConsent(ctx, `user_id = $1 AND consent_type = $2`, userID, consentType)
}

func (s *Store) LatestConsentForCategory(ctx context.Context, userID, category string) (*ConsentRecord, error) {
	return s.latestConsent(ctx, `user_id = $1 AND $2 = ANY(data_categories)`, userID, category)
}

func (s *Store) ListUserConsents(ctx context.Context, userID string) ([]ConsentRecord, error) {
	rows, err := s.q(ctx).Query(ctx, `SELECT `+consentColumns+` FROM consent_records WHERE user_id = $1 `+consentOrder, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []ConsentRecord{}
	for rows.Next() {
		record, err := scanConsent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *record)
	}
	return out, rows.Err()
}

func (s *Store) DistinctConsentTypes(ctx context.Context) ([]string, error) {
	return s.queryStrings(ctx, `SELECT DISTINCT consent_type FROM consent_records ORDER BY consent_type`)
}

func (s *Store) GrantedConsentTypes(ctx context.Context, userID string) ([]string, error) {
	return s.queryStrings(ctx, `
    SELECT DISTINCT consent_type
    FROM consent_records
    WHERE user_id = $1 AND status = true
    ORDER BY consent_type
  `, userID)
}

func (s *Store) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.q(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}
		out = append(out, value)
	}
	return out, rows.Err()
}
