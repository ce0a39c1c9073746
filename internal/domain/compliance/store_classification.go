package compliance

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const classificationColumns = `id, name, description, access_requirements, encryption_required, retention_requirements, created_at`

func scanClassification(row pgx.Row) (*DataClassification, error) {
	var c DataClassification
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.AccessRequirements, &c.EncryptionRequired, &c.RetentionRequirements, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) CreateClassification(ctx context.Context, classification *DataClassification) error {
	err := s.q(ctx).QueryRow(ctx, `
    INSERT INTO data_classifications (name, description, access_requirements, encryption_required, retention_requirements, created_at)
    VALUES ($1,$2,$3,$4,$5,$6)
    RETURNING id
  `, classification.Name, classification.Description, classification.AccessRequirements, classification.EncryptionRequired, classification.RetentionRequirements, classification.CreatedAt).Scan(&classification.ID)
	return mapWriteErr(err)
}

func (s *Store) GetClassification(ctx context.Context, id string) (*DataClassification, error) {
	classification, err := scanClassification(s.q(ctx).QueryRow(ctx, `SELECT `+classificationColumns+` FROM data_classifications WHERE id::text = $1`, id))
	if notFound(err) {
		return nil, nil
	}
	return classification, err
}

func (s *Store) ListClassifications(ctx context.Context) ([]DataClassification, error) {
	rows, err := s.q(ctx).Query(ctx, `SELECT `+classificationColumns+` FROM data_classifications ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []DataClassification{}
	for rows.Next() {
		classification, err := scanClassification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *classification)
	}
	return out, rows.Err()
}

const fieldColumns = `id, table_name, field_name, classification_id, is_pii, is_encrypted, mask_display, updated_at`

func scanField(row pgx.Row) (*FieldClassification, error) {
	var f FieldClassification
	if err := row.Scan(&f.ID, &f.TableName, &f.FieldName, &f.ClassificationID, &f.IsPII, &f.IsEncrypted, &f.MaskDisplay, &f.UpdatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *Store) UpsertFieldClassification(ctx context.Context, field *FieldClassification) error {
	return s.q(ctx).QueryRow(ctx, `
    INSERT INTO field_classifications (table_name, field_name, classification_id, is_pii, is_encrypted, mask_display, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    ON CONFLICT (table_name, field_name)
    DO UPDATE SET classification_id = EXCLUDED.classification_id,
                  is_pii = EXCLUDED.is_pii,
                  is_encrypted = EXCLUDED.is_encrypted,
                  mask_display = EXCLUDED.mask_display,
                  updated_at = EXCLUDED.updated_at
    RETURNING id
  `, field.TableName, field.FieldName, field.ClassificationID, field.IsPII, field.IsEncrypted, field.MaskDisplay, field.UpdatedAt).Scan(&field.ID)
}

func (s *Store) GetFieldClassification(ctx context.Context, tableName, fieldName string) (*FieldClassification, error) {
	field, err := scanField(s.q(ctx).QueryRow(ctx, `SELECT `+fieldColumns+` FROM field_classifications WHERE table_name = $1 AND field_name = $2`, tableName, fieldName))
	if notFound(err) {
		return nil, nil
	}
	return field, err
}

func (s *Store) ListFieldClassifications(ctx context.Context, filter FieldFilter) ([]FieldClassification, error) {
	rows, err := s.q(ctx).Query(ctx, `
    SELECT `+fieldColumns+`
    FROM field_classifications
    WHERE ($1 = '' OR table_name = $1)
      AND (NOT $2 OR is_pii = true)
    ORDER BY table_name, field_name
  `, filter.TableName, filter.PIIOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []FieldClassification{}
	for rows.Next() {
		field, err := scanField(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *field)
	}
	return out, rows.Err()
}
