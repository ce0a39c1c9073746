package compliance

import "context"

type DocumentStoreAPI interface {
	Transactor
	DocumentStore
}

// DocumentManager keeps versioned legal documents with at most one current
// version per document type.
type DocumentManager struct {
	store DocumentStoreAPI
}

func NewDocumentManager(store DocumentStoreAPI) *DocumentManager {
	return &DocumentManager{store: store}
}

func (m *DocumentManager) CreateDocument(ctx context.Context, input DocumentInput) (*ComplianceDocument, error) {
	if trimmed(input.DocumentType) == "" {
		return nil, invalid("documentType", "is required", nil)
	}
	if trimmed(input.Version) == "" {
		return nil, invalid("version", "is required", nil)
	}
	if input.EffectiveDate.IsZero() {
		return nil, invalid("effectiveDate", "is required", nil)
	}
	doc := &ComplianceDocument{
		DocumentType:  trimmed(input.DocumentType),
		Version:       trimmed(input.Version),
		Content:       input.Content,
		EffectiveDate: input.EffectiveDate.UTC(),
		IsCurrent:     input.IsCurrent,
		CreatedBy:     input.CreatedBy,
		CreatedAt:     timeNow().UTC(),
	}
	err := m.store.WithinTx(ctx, func(ctx context.Context) error {
		if doc.IsCurrent {
			if err := m.store.ClearCurrentDocuments(ctx, doc.DocumentType); err != nil {
				return err
			}
		}
		return m.store.CreateDocument(ctx, doc)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (m *DocumentManager) GetDocument(ctx context.Context, id string) (*ComplianceDocument, error) {
	return m.store.GetDocument(ctx, id)
}

func (m *DocumentManager) GetCurrentDocument(ctx context.Context, documentType string) (*ComplianceDocument, error) {
	return m.store.CurrentDocument(ctx, documentType)
}

func (m *DocumentManager) GetDocumentVersion(ctx context.Context, documentType, version string) (*ComplianceDocument, error) {
	return m.store.DocumentVersion(ctx, documentType, version)
}

// GetDocumentVersions lists every version of a type, latest effective date first.
func (m *DocumentManager) GetDocumentVersions(ctx context.Context, documentType string) ([]ComplianceDocument, error) {
	return m.store.ListDocumentVersions(ctx, documentType)
}

// SetCurrentDocument makes id the only current version of its type. It
// returns nil when the document does not exist.
func (m *DocumentManager) SetCurrentDocument(ctx context.Context, id string) (*ComplianceDocument, error) {
	var doc *ComplianceDocument
	err := m.store.WithinTx(ctx, func(ctx context.Context) error {
		found, err := m.store.GetDocument(ctx, id)
		if err != nil || found == nil {
			return err
		}
		if err := m.store.ClearCurrentDocuments(ctx, found.DocumentType); err != nil {
			return err
		}
		if err := m.store.MarkDocumentCurrent(ctx, found.ID); err != nil {
			return err
		}
		found.IsCurrent = true
		doc = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}
