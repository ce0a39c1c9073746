package compliance

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const documentColumns = `id, document_type, version, content, effective_date, is_current, created_by, created_at`

func scanDocument(row pgx.Row) (*ComplianceDocument, error) {
	var d ComplianceDocument
	if err := row.Scan(&d.ID, &d.DocumentType, &d.Version, &d.Content, &d.EffectiveDate, &d.IsCurrent, &d.CreatedBy, &d.CreatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Store) CreateDocument(ctx context.Context, doc *ComplianceDocument) error {
	err := s.q(ctx).QueryRow(ctx, `
    INSERT INTO compliance_documents (document_type, version, content, effective_date, is_current, created_by, created_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    RETURNING id
  `, doc.DocumentType, doc.Version, doc.Content, doc.EffectiveDate, doc.IsCurrent, doc.CreatedBy, doc.CreatedAt).Scan(&doc.ID)
	return mapWriteErr(err)
}

func (s *Store) findDocument(ctx context.Context, where string, args ...any) (*ComplianceDocument, error) {
	doc, err := scanDocument(s.q(ctx).QueryRow(ctx, `SELECT `+documentColumns+` FROM compliance_documents WHERE `+where+` LIMIT 1`, args...))
	if notFound(err) {
		return nil, nil
	}
	return doc, err
}

func (s *Store) GetDocument(ctx context.Context, id string) (*ComplianceDocument, error) {
	return s.findDocument(ctx, `id::text = $1`, id)
}

func (s *Store) CurrentDocument(ctx context.Context, documentType string) (*ComplianceDocument, error) {
	return s.findDocument(ctx, `document_type = $1 AND is_current = true`, documentType)
}

func (s *Store) DocumentVersion(ctx context.Context, documentType, version string) (*ComplianceDocument, error) {
	return s.findDocument(ctx, `document_type = $1 AND version = $2`, documentType, version)
}

func (s *Store) ListDocumentVersions(ctx context.Context, documentType string) ([]ComplianceDocument, error) {
	rows, err := s.q(ctx).Query(ctx, `
    SELECT `+documentColumns+`
    FROM compliance_documents
    WHERE document_type = $1
    ORDER BY effective_date DESC, created_at DESC
  `, documentType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []ComplianceDocument{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *doc)
	}
	return out, rows.Err()
}

func (s *Store) ClearCurrentDocuments(ctx context.Context, documentType string) error {
	_, err := s.q(ctx).Exec(ctx, `UPDATE compliance_documents SET is_current = false WHERE document_type = $1 AND is_current = true`, documentType)
	return err
}

func (s *Store) MarkDocumentCurrent(ctx context.Context, id string) error {
	_, err := s.q(ctx).Exec(ctx, `UPDATE compliance_documents SET is_current = true WHERE id = $1`, id)
	return err
}
