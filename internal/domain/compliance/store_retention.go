package compliance

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const policyColumns = `id, entity_type, retention_period_days, archive_strategy, legal_basis, applies_to_deleted, created_at, updated_at`

func scanPolicy(row pgx.Row) (*RetentionPolicy, error) {
	var p RetentionPolicy
	if err := row.Scan(&p.ID, &p.EntityType, &p.RetentionPeriodDays, &p.ArchiveStrategy, &p.LegalBasis, &p.AppliesToDeleted, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) CreatePolicy(ctx context.Context, policy *RetentionPolicy) error {
	err := s.q(ctx).QueryRow(ctx, `
    INSERT INTO retention_policies (entity_type, retention_period_days, archive_strategy, legal_basis, applies_to_deleted, created_at, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    RETURNING id
  `, policy.EntityType, policy.RetentionPeriodDays, policy.ArchiveStrategy, policy.LegalBasis, policy.AppliesToDeleted, policy.CreatedAt, policy.UpdatedAt).Scan(&policy.ID)
	return mapWriteErr(err)
}

func (s *Store) GetPolicy(ctx context.Context, entityType string) (*RetentionPolicy, error) {
	policy, err := scanPolicy(s.q(ctx).QueryRow(ctx, `SELECT `+policyColumns+` FROM retention_policies WHERE entity_type = $1`, entityType))
	if notFound(err) {
		return nil, nil
	}
	return policy, err
}

func (s *Store) ListPolicies(ctx context.Context) ([]RetentionPolicy, error) {
	rows, err := s.q(ctx).Query(ctx, `SELECT `+policyColumns+` FROM retention_policies ORDER BY entity_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []RetentionPolicy{}
	for rows.Next() {
		policy, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *policy)
	}
	return out, rows.Err()
}

func (s *Store) UpdatePolicy(ctx context.Context, policy *RetentionPolicy) error {
	_, err := s.q(ctx).Exec(ctx, `
    UPDATE retention_policies
    SET retention_period_days = $1, archive_strategy = $2, legal_basis = $3, applies_to_deleted = $4, updated_at = $5
    WHERE entity_type = $6
  `, policy.RetentionPeriodDays, policy.ArchiveStrategy, policy.LegalBasis, policy.AppliesToDeleted, policy.UpdatedAt, policy.EntityType)
	return err
}

func (s *Store) DeletePolicy(ctx context.Context, entityType string) (bool, error) {
	tag, err := s.q(ctx).Exec(ctx, `DELETE FROM retention_policies WHERE entity_type = $1`, entityType)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

const exemptionColumns = `id, entity_type, entity_id, reason, expires_at, created_by, created_at`

func scanExemption(row pgx.Row) (*RetentionExemption, error) {
	var e RetentionExemption
	if err := row.Scan(&e.ID, &e.EntityType, &e.EntityID, &e.Reason, &e.ExpiresAt, &e.CreatedBy, &e.CreatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) UpsertExemption(ctx context.Context, exemption *RetentionExemption) error {
	return s.q(ctx).QueryRow(ctx, `
    INSERT INTO retention_exemptions (entity_type, entity_id, reason, expires_at, created_by, created_at)
    VALUES ($1,$2,$3,$4,$5,$6)
    ON CONFLICT (entity_type, entity_id)
    DO UPDATE SET reason = EXCLUDED.reason, expires_at = EXCLUDED.expires_at, created_by = EXCLUDED.created_by, created_at = EXCLUDED.created_at
    RETURNING id
  `, exemption.EntityType, exemption.EntityID, exemption.Reason, exemption.ExpiresAt, exemption.CreatedBy, exemption.CreatedAt).Scan(&exemption.ID)
}

func (s *Store) GetExemption(ctx context.Context, entityType, entityID string) (*RetentionExemption, error) {
	exemption, err := scanExemption(s.q(ctx).QueryRow(ctx, `
    SELECT `+exemptionColumns+`
    FROM retention_exemptions
    WHERE entity_type = $1 AND entity_id = $2
  `, entityType, entityID))
	if notFound(err) {
		return nil, nil
	}
	return exemption, err
}

func (s *Store) ListExemptions(ctx context.Context, entityType string) ([]RetentionExemption, error) {
	rows, err := s.q(ctx).Query(ctx, `
    SELECT `+exemptionColumns+`
    FROM retention_exemptions
    WHERE ($1 = '' OR entity_type = $1)
    ORDER BY entity_type, entity_id
  `, entityType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []RetentionExemption{}
	for rows.Next() {
		exemption, err := scanExemption(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *exemption)
	}
	return out, rows.Err()
}

func (s *Store) DeleteExemption(ctx context.Context, entityType, entityID string) (bool, error) {
	tag, err := s.q(ctx).Exec(ctx, `DELETE FROM retention_exemptions WHERE entity_type = $1 AND entity_id = $2`, entityType, entityID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) AppendExecutionLog(ctx context.Context, entry *RetentionExecutionLog) error {
	return s.q(ctx).QueryRow(ctx, `
    INSERT INTO retention_execution_logs (entity_type, records_processed, records_archived, records_deleted, execution_time_sec, status, error_message, executed_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    RETURNING id
  `, entry.EntityType, entry.RecordsProcessed, entry.RecordsArchived, entry.RecordsDeleted, entry.ExecutionTimeSec, entry.Status, entry.ErrorMessage, entry.ExecutedAt).Scan(&entry.ID)
}

func (s *Store) ListExecutionLogs(ctx context.Context, entityType string, limit int) ([]RetentionExecutionLog, error) {
	rows, err := s.q(ctx).Query(ctx, `
    SELECT id, entity_type, records_processed, records_archived, records_deleted, execution_time_sec, status, error_message, executed_at
    FROM retention_execution_logs
    WHERE ($1 = '' OR entity_type = $1)
    ORDER BY seq DESC
    LIMIT $2
  `, entityType, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []RetentionExecutionLog{}
	for rows.Next() {
		var e RetentionExecutionLog
		if err := rows.Scan(&e.ID, &e.EntityType, &e.RecordsProcessed, &e.RecordsArchived, &e.RecordsDeleted, &e.ExecutionTimeSec, &e.Status, &e.ErrorMessage, &e.ExecutedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
