package compliance

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const assessmentColumns = `id, title, feature_description, data_collected, data_use, data_sharing, risks_identified, mitigations, status, created_by, reviewer_id, created_at, updated_at, completed_at`

func scanAssessment(row pgx.Row) (*PrivacyImpactAssessment, error) {
	var p PrivacyImpactAssessment
	var collected, risks, mitigations []byte
	if err := row.Scan(&p.ID, &p.Title, &p.FeatureDescription, &collected, &p.DataUse, &p.DataSharing, &risks, &mitigations, &p.Status, &p.CreatedBy, &p.ReviewerID, &p.CreatedAt, &p.UpdatedAt, &p.CompletedAt); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(collected, &p.DataCollected); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(risks, &p.RisksIdentified); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(mitigations, &p.Mitigations); err != nil {
		return nil, err
	}
	return &p, nil
}

func assessmentJSON(pia *PrivacyImpactAssessment) ([]byte, []byte, []byte, error) {
	collected, err := marshalJSON(nonNilItems(pia.DataCollected))
	if err != nil {
		return nil, nil, nil, err
	}
	risks, err := marshalJSON(nonNilStrings(pia.RisksIdentified))
	if err != nil {
		return nil, nil, nil, err
	}
	mitigations, err := marshalJSON(nonNilStrings(pia.Mitigations))
	if err != nil {
		return nil, nil, nil, err
	}
	return collected, risks, mitigations, nil
}

func (s *Store) CreateAssessment(ctx context.Context, pia *PrivacyImpactAssessment) error {
	collected, risks, mitigations, err := assessmentJSON(pia)
	if err != nil {
		return err
	}
	return s.q(ctx).QueryRow(ctx, `
    INSERT INTO privacy_impact_assessments (title, feature_description, data_collected, data_use, data_sharing, risks_identified, mitigations, status, created_by, created_at, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
    RETURNING id
  `, pia.Title, pia.FeatureDescription, collected, pia.DataUse, pia.DataSharing, risks, mitigations, pia.Status, pia.CreatedBy, pia.CreatedAt, pia.UpdatedAt).Scan(&pia.ID)
}

func (s *Store) GetAssessment(ctx context.Context, id string) (*PrivacyImpactAssessment, error) {
	pia, err := scanAssessment(s.q(ctx).QueryRow(ctx, `SELECT `+assessmentColumns+` FROM privacy_impact_assessments WHERE id::text = $1`, id))
	if notFound(err) {
		return nil, nil
	}
	return pia, err
}

func (s *Store) UpdateAssessment(ctx context.Context, pia *PrivacyImpactAssessment) error {
	collected, risks, mitigations, err := assessmentJSON(pia)
	if err != nil {
		return err
	}
	_, err = s.q(ctx).Exec(ctx, `
    UPDATE privacy_impact_assessments
    SET title = $1,
        feature_description = $2,
        data_collected = $3,
        data_use = $4,
        data_sharing = $5,
        risks_identified = $6,
        mitigations = $7,
        status = $8,
        reviewer_id = $9,
        completed_at = $10,
        updated_at = $11
    WHERE id = $12
  `, pia.Title, pia.FeatureDescription, collected, pia.DataUse, pia.DataSharing, risks, mitigations, pia.Status, pia.ReviewerID, pia.CompletedAt, pia.UpdatedAt, pia.ID)
	return err
}

func (s *Store) ListAssessments(ctx context.Context, filter AssessmentFilter) ([]PrivacyImpactAssessment, error) {
	rows, err := s.q(ctx).Query(ctx, `
    SELECT `+assessmentColumns+`
    FROM privacy_impact_assessments
    WHERE ($1 = '' OR status = $1)
      AND ($2 = '' OR created_by::text = $2)
    ORDER BY created_at DESC
  `, string(filter.Status), filter.CreatorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []PrivacyImpactAssessment{}
	for rows.Next() {
		pia, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *pia)
	}
	return out, rows.Err()
}
