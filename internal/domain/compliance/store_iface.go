package compliance

import (
	"context"
	"time"
)

// Transactor runs fn inside one store transaction. Nested calls reuse the
// outer transaction carried in ctx.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type RetentionStore interface {
	CreatePolicy(ctx context.Context, policy *RetentionPolicy) error
	GetPolicy(ctx context.Context, entityType string) (*RetentionPolicy, error)
	ListPolicies(ctx context.Context) ([]RetentionPolicy, error)
	UpdatePolicy(ctx context.Context, policy *RetentionPolicy) error
	DeletePolicy(ctx context.Context, entityType string) (bool, error)
	UpsertExemption(ctx context.Context, exemption *RetentionExemption) error
	GetExemption(ctx context.Context, entityType, entityID string) (*RetentionExemption, error)
	ListExemptions(ctx context.Context, entityType string) ([]RetentionExemption, error)
	DeleteExemption(ctx context.Context, entityType, entityID string) (bool, error)
	AppendExecutionLog(ctx context.Context, entry *RetentionExecutionLog) error
	ListExecutionLogs(ctx context.Context, entityType string, limit int) ([]RetentionExecutionLog, error)
	EntityTable(entityType string) (EntityTable, bool)
}

type ConsentStore interface {
	InsertConsent(ctx context.Context, record *ConsentRecord) error
	LatestConsent(ctx context.Context, userID, consentType string) (*ConsentRecord, error)
	LatestConsentForCategory(ctx context.Context, userID, category string) (*ConsentRecord, error)
	ListUserConsents(ctx context.Context, userID string) ([]ConsentRecord, error)
	DistinctConsentTypes(ctx context.Context) ([]string, error)
	GrantedConsentTypes(ctx context.Context, userID string) ([]string, error)
}

type RequestStore interface {
	CreateRequest(ctx context.Context, req *DataSubjectRequest) error
	GetRequest(ctx context.Context, id string) (*DataSubjectRequest, error)
	UpdateRequest(ctx context.Context, req *DataSubjectRequest) error
	ListRequests(ctx context.Context, filter RequestFilter) ([]DataSubjectRequest, error)
}

type UserStore interface {
	GetUser(ctx context.Context, id string) (*User, error)
	AnonymizeUser(ctx context.Context, id string, anon UserAnonymization) (bool, error)
}

type DocumentStore interface {
	CreateDocument(ctx context.Context, doc *ComplianceDocument) error
	GetDocument(ctx context.Context, id string) (*ComplianceDocument, error)
	CurrentDocument(ctx context.Context, documentType string) (*ComplianceDocument, error)
	DocumentVersion(ctx context.Context, documentType, version string) (*ComplianceDocument, error)
	ListDocumentVersions(ctx context.Context, documentType string) ([]ComplianceDocument, error)
	ClearCurrentDocuments(ctx context.Context, documentType string) error
	MarkDocumentCurrent(ctx context.Context, id string) error
}

type ClassificationStore interface {
	CreateClassification(ctx context.Context, classification *DataClassification) error
	GetClassification(ctx context.Context, id string) (*DataClassification, error)
	ListClassifications(ctx context.Context) ([]DataClassification, error)
	UpsertFieldClassification(ctx context.Context, field *FieldClassification) error
	GetFieldClassification(ctx context.Context, tableName, fieldName string) (*FieldClassification, error)
	ListFieldClassifications(ctx context.Context, filter FieldFilter) ([]FieldClassification, error)
}

type AssessmentStore interface {
	CreateAssessment(ctx context.Context, pia *PrivacyImpactAssessment) error
	GetAssessment(ctx context.Context, id string) (*PrivacyImpactAssessment, error)
	UpdateAssessment(ctx context.Context, pia *PrivacyImpactAssessment) error
	ListAssessments(ctx context.Context, filter AssessmentFilter) ([]PrivacyImpactAssessment, error)
}

// StoreAPI is the full persistence surface of the compliance subsystem.
type StoreAPI interface {
	Transactor
	RetentionStore
	ConsentStore
	RequestStore
	UserStore
	DocumentStore
	ClassificationStore
	AssessmentStore
}

// ArchiveSink receives serialized records before the retention sweep
// removes them from the live store.
type ArchiveSink interface {
	Archive(ctx context.Context, entityType string, record map[string]any) error
}

type AuditSink interface {
	Append(ctx context.Context, entry AuditEntry) error
}

// EntityRecord is a row of a retention-managed table.
type EntityRecord struct {
	ID        string
	DeletedAt *time.Time
	Columns   map[string]any
}

// EntityTable is a retention-managed table. Capabilities are opt-in through
// SoftDeleteTable and DeletionScheduler.
type EntityTable interface {
	EntityType() string
}

type SoftDeleteTable interface {
	EntityTable
	// ListDeletedBefore returns soft-deleted rows with deleted_at < cutoff that
	// are not already scheduled for deletion.
	ListDeletedBefore(ctx context.Context, cutoff time.Time) ([]EntityRecord, error)
	DeleteRecord(ctx context.Context, id string) error
}

type DeletionScheduler interface {
	ScheduleDeletion(ctx context.Context, id string, at time.Time) error
	PurgeScheduledBefore(ctx context.Context, at time.Time) (int64, error)
}
