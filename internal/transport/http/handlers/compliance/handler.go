package compliancehandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"marketingops/internal/domain/audit"
	"marketingops/internal/domain/auth"
	"marketingops/internal/domain/compliance"
	"marketingops/internal/transport/http/api"
	"marketingops/internal/transport/http/middleware"
	"marketingops/internal/transport/http/shared"
)

// Sweeper runs retention jobs on behalf of the HTTP adapter so that manual
// runs are recorded like scheduled ones.
type Sweeper interface {
	SweepNow(ctx context.Context, entityType string) (*compliance.RetentionReport, error)
	PurgeNow(ctx context.Context) (map[string]int64, error)
}

type Services struct {
	Retention       *compliance.RetentionService
	Consent         *compliance.ConsentManager
	Requests        *compliance.RequestManager
	Documents       *compliance.DocumentManager
	Classifications *compliance.ClassificationService
	Assessments     *compliance.AssessmentService
	Protector       *compliance.FieldProtector
	Audit           audit.Log
	Jobs            Sweeper
}

type Handler struct {
	Services
	Perms       middleware.PermissionStore
	Idempotency middleware.IdempotencyStore
}

func NewHandler(services Services, perms middleware.PermissionStore, idempotency middleware.IdempotencyStore) *Handler {
	return &Handler{Services: services, Perms: perms, Idempotency: idempotency}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(h.Perms, auth.PermComplianceRead)
	manage := middleware.RequirePermission(h.Perms, auth.PermComplianceManage)
	retention := middleware.RequirePermission(h.Perms, auth.PermComplianceRetention)
	requests := middleware.RequirePermission(h.Perms, auth.PermComplianceRequests)

	r.Route("/compliance", func(r chi.Router) {
		r.Route("/retention", func(r chi.Router) {
			r.With(read).Get("/policies", h.handleListPolicies)
			r.With(retention).Post("/policies", h.handleCreatePolicy)
			r.With(read).Get("/policies/{entityType}", h.handleGetPolicy)
			r.With(retention).Patch("/policies/{entityType}", h.handleUpdatePolicy)
			r.With(retention).Delete("/policies/{entityType}", h.handleDeletePolicy)
			r.With(read).Get("/exemptions", h.handleListExemptions)
			r.With(retention).Post("/exemptions", h.handleCreateExemption)
			r.With(read).Get("/exemptions/{entityType}/{entityID}", h.handleCheckExemption)
			r.With(retention).Delete("/exemptions/{entityType}/{entityID}", h.handleDeleteExemption)
			r.With(read).Get("/logs", h.handleListExecutionLogs)
			r.With(retention).Post("/run", h.handleRunRetention)
			r.With(retention).Post("/purge", h.handlePurge)
		})

		r.Route("/consent", func(r chi.Router) {
			r.With(read).Get("/types", h.handleConsentTypes)
			r.With(manage).Post("/", h.handleRecordConsent)
			r.With(read).Get("/{userID}", h.handleCheckConsent)
			r.With(read).Post("/{userID}/categories", h.handleCheckCategories)
			r.With(read).Get("/{userID}/history", h.handleConsentHistory)
			r.With(manage).Post("/{userID}/revoke-all", h.handleRevokeAll)
		})

		r.Route("/requests", func(r chi.Router) {
			r.With(requests, middleware.Idempotent("compliance.requests.create", h.Idempotency)).Post("/", h.handleCreateRequest)
			r.With(requests).Get("/", h.handleListRequests)
			r.With(requests).Get("/{requestID}", h.handleGetRequest)
			r.With(requests).Patch("/{requestID}/status", h.handleUpdateRequestStatus)
			r.With(requests).Post("/{requestID}/execute", h.handleExecuteRequest)
		})

		r.Route("/documents", func(r chi.Router) {
			r.With(manage).Post("/", h.handleCreateDocument)
			r.With(read).Get("/by-id/{documentID}", h.handleGetDocument)
			r.With(manage).Post("/by-id/{documentID}/set-current", h.handleSetCurrentDocument)
			r.With(read).Get("/{documentType}/current", h.handleCurrentDocument)
			r.With(read).Get("/{documentType}/versions", h.handleDocumentVersions)
			r.With(read).Get("/{documentType}/versions/{version}", h.handleDocumentVersion)
		})

		r.Route("/classifications", func(r chi.Router) {
			r.With(read).Get("/", h.handleListClassifications)
			r.With(manage).Post("/", h.handleCreateClassification)
			r.With(read).Get("/{classificationID}", h.handleGetClassification)
		})

		r.Route("/fields", func(r chi.Router) {
			r.With(read).Get("/", h.handleListFields)
			r.With(manage).Put("/", h.handleClassifyField)
			r.With(read).Get("/pii", h.handlePIIFields)
			r.With(read).Get("/{tableName}/{fieldName}", h.handleGetField)
			r.With(manage).Post("/protect", h.handleProtectRecord)
			r.With(read).Post("/mask", h.handleMaskRecord)
		})

		r.Route("/assessments", func(r chi.Router) {
			r.With(read).Get("/", h.handleListAssessments)
			r.With(manage).Post("/", h.handleCreateAssessment)
			r.With(read).Get("/{assessmentID}", h.handleGetAssessment)
			r.With(manage).Patch("/{assessmentID}", h.handleUpdateAssessment)
			r.With(manage).Post("/{assessmentID}/status", h.handleUpdateAssessmentStatus)
			r.With(read).Get("/{assessmentID}/report", h.handleAssessmentReport)
		})

		r.With(read).Get("/audit", h.handleListAudit)
	})
}

func requestID(r *http.Request) string {
	return middleware.GetRequestID(r.Context())
}

func currentUser(r *http.Request) auth.UserContext {
	user, _ := middleware.GetUser(r.Context())
	return user
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := shared.DecodeJSON(r, dst); err != nil {
		if errors.Is(err, shared.ErrBodyTooLarge) {
			api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", err.Error(), requestID(r))
			return false
		}
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID(r))
		return false
	}
	return true
}

func notFound(w http.ResponseWriter, r *http.Request, what string) {
	api.Fail(w, http.StatusNotFound, "not_found", what+" not found", requestID(r))
}

// writeError maps service errors onto the response envelope. Unexpected
// errors are logged and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error, code string) {
	var verr *compliance.ValidationError
	switch {
	case errors.Is(err, compliance.ErrPolicyExists), errors.Is(err, compliance.ErrDuplicate):
		api.Fail(w, http.StatusConflict, "conflict", err.Error(), requestID(r))
	case errors.Is(err, compliance.ErrInvalidTransition):
		api.Fail(w, http.StatusConflict, "invalid_transition", err.Error(), requestID(r))
	case errors.As(err, &verr):
		shared.FailValidation(w, requestID(r), []shared.ValidationIssue{{Field: verr.Field, Reason: verr.Reason}})
	case errors.Is(err, compliance.ErrValidation):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID(r))
	default:
		slog.Warn(code, "err", err, "path", r.URL.Path, "requestId", requestID(r))
		api.Fail(w, http.StatusInternalServerError, code, "internal error", requestID(r))
	}
}
