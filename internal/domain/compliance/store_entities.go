package compliance

import (
	"context"
	"encoding/json"
	"time"
)

type entityMapping struct {
	table       string
	softDelete  bool
	schedulable bool
}

// entityTables is the closed set of tables a retention policy can sweep.
var entityTables = map[string]entityMapping{
	EntityUser:          {table: "users", softDelete: true, schedulable: true},
	EntityBrand:         {table: "brands", softDelete: true},
	EntityProject:       {table: "projects", softDelete: true},
	EntityContent:       {table: "content", softDelete: true, schedulable: true},
	EntityContentDraft:  {table: "content_drafts", softDelete: true},
	EntityAdCampaign:    {table: "ad_campaigns", softDelete: true},
	EntityCompetitor:    {table: "competitors", softDelete: true},
	EntitySocialAccount: {table: "social_accounts", softDelete: true},
	EntityAuditLog:      {table: "audit_logs"},
}

func (s *Store) EntityTable(entityType string) (EntityTable, bool) {
	mapping, ok := entityTables[entityType]
	if !ok {
		return nil, false
	}
	base := pgPlainTable{entityType: entityType, table: mapping.table}
	switch {
	case mapping.schedulable:
		return pgSchedulingTable{pgSoftTable{pgPlainTable: base, store: s, scheduled: true}}, true
	case mapping.softDelete:
		return pgSoftTable{pgPlainTable: base, store: s}, true
	}
	return base, true
}

type pgPlainTable struct {
	entityType string
	table      string
}

func (t pgPlainTable) EntityType() string { return t.entityType }

type pgSoftTable struct {
	pgPlainTable
	store     *Store
	scheduled bool
}

func (t pgSoftTable) ListDeletedBefore(ctx context.Context, cutoff time.Time) ([]EntityRecord, error) {
	query := `SELECT id::text, deleted_at, to_jsonb(t) - $2::text[] FROM ` + t.table + ` t WHERE deleted_at IS NOT NULL AND deleted_at < $1`
	if t.scheduled {
		query += ` AND scheduled_deletion_date IS NULL`
	}
	query += ` ORDER BY id FOR UPDATE`

	rows, err := t.store.q(ctx).Query(ctx, query, cutoff, credentialColumns)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []EntityRecord
	for rows.Next() {
		var rec EntityRecord
		var rowJSON []byte
		if err := rows.Scan(&rec.ID, &rec.DeletedAt, &rowJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(rowJSON, &rec.Columns); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (t pgSoftTable) DeleteRecord(ctx context.Context, id string) error {
	_, err := t.store.q(ctx).Exec(ctx, `DELETE FROM `+t.table+` WHERE id = $1`, id)
	return err
}

type pgSchedulingTable struct {
	pgSoftTable
}

func (t pgSchedulingTable) ScheduleDeletion(ctx context.Context, id string, at time.Time) error {
	_, err := t.store.q(ctx).Exec(ctx, `UPDATE `+t.table+` SET scheduled_deletion_date = $1 WHERE id = $2`, at, id)
	return err
}

func (t pgSchedulingTable) PurgeScheduledBefore(ctx context.Context, at time.Time) (int64, error) {
	tag, err := t.store.q(ctx).Exec(ctx, `
  DELETE FROM `+t.table+` t
  WHERE t.scheduled_deletion_date IS NOT NULL
    AND t.scheduled_deletion_date < $1
    AND NOT EXISTS (
      SELECT 1 FROM retention_exemptions e
      WHERE e.entity_type = $2
        AND e.entity_id = t.id::text
        AND (e.expires_at IS NULL OR e.expires_at > $1)
    )`, at, t.entityType)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
