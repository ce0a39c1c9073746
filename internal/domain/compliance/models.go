package compliance

import "time"

type RetentionPolicy struct {
	ID                  string          `json:"id"`
	EntityType          string          `json:"entityType"`
	RetentionPeriodDays int             `json:"retentionPeriodDays"`
	ArchiveStrategy     ArchiveStrategy `json:"archiveStrategy"`
	LegalBasis          *string         `json:"legalBasis,omitempty"`
	AppliesToDeleted    bool            `json:"appliesToDeleted"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
}

type PolicyInput struct {
	EntityType          string          `json:"entityType"`
	RetentionPeriodDays int             `json:"retentionPeriodDays"`
	ArchiveStrategy     ArchiveStrategy `json:"archiveStrategy"`
	LegalBasis          *string         `json:"legalBasis,omitempty"`
	AppliesToDeleted    *bool           `json:"appliesToDeleted,omitempty"`
}

// PolicyUpdate carries only the fields a caller wants changed.
type PolicyUpdate struct {
	RetentionPeriodDays *int             `json:"retentionPeriodDays,omitempty"`
	ArchiveStrategy     *ArchiveStrategy `json:"archiveStrategy,omitempty"`
	LegalBasis          *string          `json:"legalBasis,omitempty"`
	AppliesToDeleted    *bool            `json:"appliesToDeleted,omitempty"`
}

type RetentionExemption struct {
	ID         string     `json:"id"`
	EntityType string     `json:"entityType"`
	EntityID   string     `json:"entityId"`
	Reason     string     `json:"reason"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
	CreatedBy  string     `json:"createdBy"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// ActiveAt reports whether the exemption still shields its entity at now.
func (e RetentionExemption) ActiveAt(now time.Time) bool {
	return e.ExpiresAt == nil || e.ExpiresAt.After(now)
}

type RetentionExecutionLog struct {
	ID               string    `json:"id"`
	EntityType       string    `json:"entityType"`
	RecordsProcessed int       `json:"recordsProcessed"`
	RecordsArchived  int       `json:"recordsArchived"`
	RecordsDeleted   int       `json:"recordsDeleted"`
	ExecutionTimeSec float64   `json:"executionTimeSec"`
	Status           string    `json:"status"`
	ErrorMessage     *string   `json:"errorMessage,omitempty"`
	ExecutedAt       time.Time `json:"executedAt"`
}

type PolicyResult struct {
	EntityType       string  `json:"entityType"`
	Status           string  `json:"status"`
	RecordsProcessed int     `json:"recordsProcessed"`
	RecordsArchived  int     `json:"recordsArchived"`
	RecordsDeleted   int     `json:"recordsDeleted"`
	ExecutionTimeSec float64 `json:"executionTimeSec"`
	Error            string  `json:"error,omitempty"`
	LogID            string  `json:"logId,omitempty"`
}

type RetentionReport struct {
	Results          []PolicyResult `json:"results"`
	TotalProcessed   int            `json:"totalProcessed"`
	TotalArchived    int            `json:"totalArchived"`
	TotalDeleted     int            `json:"totalDeleted"`
	ExecutionTimeSec float64        `json:"executionTimeSec"`
}

type ConsentRecord struct {
	ID             string     `json:"id"`
	Seq            int64      `json:"-"`
	UserID         string     `json:"userId"`
	ConsentType    string     `json:"consentType"`
	Status         bool       `json:"status"`
	IPAddress      string     `json:"ipAddress"`
	UserAgent      string     `json:"userAgent"`
	ConsentVersion string     `json:"consentVersion"`
	DataCategories []string   `json:"dataCategories,omitempty"`
	RecordedAt     time.Time  `json:"recordedAt"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
}

// EffectiveAt reports the consent decision carried by the record at now.
func (c ConsentRecord) EffectiveAt(now time.Time) bool {
	if c.ExpiresAt != nil && c.ExpiresAt.Before(now) {
		return false
	}
	return c.Status
}

type ConsentInput struct {
	UserID         string     `json:"userId"`
	ConsentType    string     `json:"consentType"`
	Status         bool       `json:"status"`
	IPAddress      string     `json:"ipAddress"`
	UserAgent      string     `json:"userAgent"`
	ConsentVersion string     `json:"consentVersion"`
	DataCategories []string   `json:"dataCategories,omitempty"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
	RecordedAt     time.Time  `json:"recordedAt,omitempty"`
}

type ConsentHistoryEntry struct {
	ConsentType    string     `json:"consentType"`
	Status         bool       `json:"status"`
	RecordedAt     time.Time  `json:"recordedAt"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
	ConsentVersion string     `json:"consentVersion"`
	DataCategories []string   `json:"dataCategories"`
}

type DataSubjectRequest struct {
	ID                 string         `json:"id"`
	UserID             *string        `json:"userId,omitempty"`
	RequestType        RequestType    `json:"requestType"`
	Status             RequestStatus  `json:"status"`
	RequestDetails     map[string]any `json:"requestDetails,omitempty"`
	RequesterEmail     string         `json:"requesterEmail"`
	VerificationMethod *string        `json:"verificationMethod,omitempty"`
	VerificationStatus *string        `json:"verificationStatus,omitempty"`
	CompletionNotes    *string        `json:"completionNotes,omitempty"`
	AdminUserID        *string        `json:"adminUserId,omitempty"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
	CompletedAt        *time.Time     `json:"completedAt,omitempty"`
}

func (r DataSubjectRequest) Terminal() bool {
	return r.Status == RequestCompleted || r.Status == RequestRejected
}

type RequestInput struct {
	RequestType        RequestType    `json:"requestType"`
	RequesterEmail     string         `json:"requesterEmail"`
	RequestDetails     map[string]any `json:"requestDetails,omitempty"`
	UserID             *string        `json:"userId,omitempty"`
	VerificationMethod *string        `json:"verificationMethod,omitempty"`
}

type RequestFilter struct {
	UserID      string
	Status      RequestStatus
	RequestType RequestType
}

type User struct {
	ID                    string     `json:"id"`
	Email                 string     `json:"email"`
	Username              string     `json:"username"`
	FullName              string     `json:"fullName"`
	PasswordHash          string     `json:"-"`
	IsActive              bool       `json:"isActive"`
	CreatedAt             time.Time  `json:"createdAt"`
	DeletedAt             *time.Time `json:"deletedAt,omitempty"`
	ScheduledDeletionDate *time.Time `json:"scheduledDeletionDate,omitempty"`
}

type UserAnonymization struct {
	Email     string
	Username  string
	FullName  string
	DeletedAt time.Time
}

type PersonalInfo struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	FullName  string    `json:"fullName"`
	CreatedAt time.Time `json:"createdAt"`
}

type AccessBundle struct {
	RequestID      string                `json:"requestId"`
	UserID         string                `json:"userId"`
	GeneratedAt    time.Time             `json:"generatedAt"`
	PersonalInfo   PersonalInfo          `json:"personalInfo"`
	ConsentHistory []ConsentHistoryEntry `json:"consentHistory"`
}

type ComplianceDocument struct {
	ID            string    `json:"id"`
	DocumentType  string    `json:"documentType"`
	Version       string    `json:"version"`
	Content       string    `json:"content"`
	EffectiveDate time.Time `json:"effectiveDate"`
	IsCurrent     bool      `json:"isCurrent"`
	CreatedBy     string    `json:"createdBy"`
	CreatedAt     time.Time `json:"createdAt"`
}

type DocumentInput struct {
	DocumentType  string    `json:"documentType"`
	Version       string    `json:"version"`
	Content       string    `json:"content"`
	EffectiveDate time.Time `json:"effectiveDate"`
	CreatedBy     string    `json:"createdBy"`
	IsCurrent     bool      `json:"isCurrent"`
}

type DataClassification struct {
	ID                    string    `json:"id"`
	Name                  string    `json:"name"`
	Description           string    `json:"description,omitempty"`
	AccessRequirements    string    `json:"accessRequirements,omitempty"`
	EncryptionRequired    bool      `json:"encryptionRequired"`
	RetentionRequirements string    `json:"retentionRequirements,omitempty"`
	CreatedAt             time.Time `json:"createdAt"`
}

type ClassificationInput struct {
	Name                  string `json:"name"`
	Description           string `json:"description,omitempty"`
	AccessRequirements    string `json:"accessRequirements,omitempty"`
	EncryptionRequired    bool   `json:"encryptionRequired"`
	RetentionRequirements string `json:"retentionRequirements,omitempty"`
}

type FieldClassification struct {
	ID               string    `json:"id"`
	TableName        string    `json:"tableName"`
	FieldName        string    `json:"fieldName"`
	ClassificationID string    `json:"classificationId"`
	IsPII            bool      `json:"isPii"`
	IsEncrypted      bool      `json:"isEncrypted"`
	MaskDisplay      bool      `json:"maskDisplay"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

type FieldInput struct {
	TableName        string `json:"tableName"`
	FieldName        string `json:"fieldName"`
	ClassificationID string `json:"classificationId"`
	IsPII            bool   `json:"isPii"`
	IsEncrypted      bool   `json:"isEncrypted"`
	MaskDisplay      bool   `json:"maskDisplay"`
}

type FieldFilter struct {
	TableName string
	PIIOnly   bool
}

type DataItem struct {
	Category string `json:"category"`
	Purpose  string `json:"purpose"`
}

type PrivacyImpactAssessment struct {
	ID                 string           `json:"id"`
	Title              string           `json:"title"`
	FeatureDescription string           `json:"featureDescription"`
	DataCollected      []DataItem       `json:"dataCollected"`
	DataUse            string           `json:"dataUse"`
	DataSharing        string           `json:"dataSharing"`
	RisksIdentified    []string         `json:"risksIdentified"`
	Mitigations        []string         `json:"mitigations"`
	Status             AssessmentStatus `json:"status"`
	CreatedBy          string           `json:"createdBy"`
	ReviewerID         *string          `json:"reviewerId,omitempty"`
	CreatedAt          time.Time        `json:"createdAt"`
	UpdatedAt          time.Time        `json:"updatedAt"`
	CompletedAt        *time.Time       `json:"completedAt,omitempty"`
}

type AssessmentInput struct {
	Title              string     `json:"title"`
	FeatureDescription string     `json:"featureDescription"`
	DataCollected      []DataItem `json:"dataCollected"`
	DataUse            string     `json:"dataUse"`
	DataSharing        string     `json:"dataSharing"`
	RisksIdentified    []string   `json:"risksIdentified"`
	Mitigations        []string   `json:"mitigations"`
	CreatedBy          string     `json:"createdBy"`
}

// AssessmentPatch lists the only fields the generic update path may change.
// Status and reviewer go through UpdateAssessmentStatus.
type AssessmentPatch struct {
	Title              *string     `json:"title,omitempty"`
	FeatureDescription *string     `json:"featureDescription,omitempty"`
	DataCollected      *[]DataItem `json:"dataCollected,omitempty"`
	DataUse            *string     `json:"dataUse,omitempty"`
	DataSharing        *string     `json:"dataSharing,omitempty"`
	RisksIdentified    *[]string   `json:"risksIdentified,omitempty"`
	Mitigations        *[]string   `json:"mitigations,omitempty"`
}

type AssessmentFilter struct {
	Status    AssessmentStatus
	CreatorID string
}

type AuditEntry struct {
	UserID        string `json:"userId"`
	Action        string `json:"action"`
	ResourceType  string `json:"resourceType"`
	ResourceID    string `json:"resourceId"`
	PreviousState any    `json:"previousState,omitempty"`
	NewState      any    `json:"newState,omitempty"`
	IPAddress     string `json:"ipAddress,omitempty"`
	UserAgent     string `json:"userAgent,omitempty"`
}
