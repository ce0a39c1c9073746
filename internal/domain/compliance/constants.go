package compliance

type ArchiveStrategy string

const (
	ArchiveStrategyArchive ArchiveStrategy = "archive"
	ArchiveStrategyDelete  ArchiveStrategy = "delete"
)

const (
	ExecutionStatusSuccess = "success"
	ExecutionStatusError   = "error"
)

// Entity types a retention policy can target.
const (
	EntityUser          = "user"
	EntityBrand         = "brand"
	EntityProject       = "project"
	EntityContent       = "content"
	EntityContentDraft  = "content_draft"
	EntityAdCampaign    = "ad_campaign"
	EntityCompetitor    = "competitor"
	EntitySocialAccount = "social_account"
	EntityAuditLog      = "audit_log"
)

var KnownEntityTypes = []string{
	EntityUser,
	EntityBrand,
	EntityProject,
	EntityContent,
	EntityContentDraft,
	EntityAdCampaign,
	EntityCompetitor,
	EntitySocialAccount,
	EntityAuditLog,
}

type RequestType string

const (
	RequestAccess      RequestType = "access"
	RequestDeletion    RequestType = "deletion"
	RequestCorrection  RequestType = "correction"
	RequestPortability RequestType = "portability"
)

type RequestStatus string

const (
	RequestPending    RequestStatus = "pending"
	RequestInProgress RequestStatus = "in_progress"
	RequestCompleted  RequestStatus = "completed"
	RequestRejected   RequestStatus = "rejected"
)

type AssessmentStatus string

const (
	AssessmentDraft    AssessmentStatus = "draft"
	AssessmentReview   AssessmentStatus = "review"
	AssessmentApproved AssessmentStatus = "approved"
	AssessmentRejected AssessmentStatus = "rejected"
)

const (
	DocumentPrivacyPolicy  = "privacy_policy"
	DocumentTermsOfService = "terms_of_service"
	DocumentCookiePolicy   = "cookie_policy"
)

// Actor identity used for consent rows written by the system itself.
const (
	SystemActor       = "system"
	RevocationVersion = "revocation"
)

const (
	AnonymizedFullName    = "Anonymized User"
	AnonymizedEmailDomain = "deleted.example.com"
)

const (
	AuditActionConsentGranted = "consent.granted"
	AuditActionConsentRevoked = "consent.revoked"
	AuditResourceConsent      = "consent_record"
)

var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestPending:    {RequestInProgress, RequestRejected},
	RequestInProgress: {RequestCompleted, RequestRejected},
}

var assessmentTransitions = map[AssessmentStatus][]AssessmentStatus{
	AssessmentDraft:  {AssessmentReview},
	AssessmentReview: {AssessmentApproved, AssessmentRejected, AssessmentDraft},
}
