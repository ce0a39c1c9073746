package compliancehandler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"marketingops/internal/domain/compliance"
	"marketingops/internal/transport/http/api"
	"marketingops/internal/transport/http/shared"
)

var archiveStrategies = []string{string(compliance.ArchiveStrategyArchive), string(compliance.ArchiveStrategyDelete)}

func (h *Handler) handleListPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := h.Retention.ListPolicies(r.Context())
	if err != nil {
		writeError(w, r, err, "retention_list_failed")
		return
	}
	api.Success(w, policies, requestID(r))
}

func (h *Handler) handleCreatePolicy(w http.ResponseWriter, r *http.Request) {
	var payload compliance.PolicyInput
	if !decode(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	v.Required("entityType", payload.EntityType, "is required")
	v.Positive("retentionPeriodDays", payload.RetentionPeriodDays)
	v.Enum("archiveStrategy", string(payload.ArchiveStrategy), archiveStrategies, "must be archive or delete")
	if v.Reject(w, requestID(r)) {
		return
	}
	policy, err := h.Retention.CreatePolicy(r.Context(), payload)
	if err != nil {
		writeError(w, r, err, "retention_create_failed")
		return
	}
	api.Created(w, policy, requestID(r))
}

func (h *Handler) handleGetPolicy(w http.ResponseWriter, r *http.Request) {
	policy, err := h.Retention.GetPolicy(r.Context(), chi.URLParam(r, "entityType"))
	if err != nil {
		writeError(w, r, err, "retention_get_failed")
		return
	}
	if policy == nil {
		notFound(w, r, "retention policy")
		return
	}
	api.Success(w, policy, requestID(r))
}

func (h *Handler) handleUpdatePolicy(w http.ResponseWriter, r *http.Request) {
	var payload compliance.PolicyUpdate
	if !decode(w, r, &payload) {
		return
	}
	policy, err := h.Retention.UpdatePolicy(r.Context(), chi.URLParam(r, "entityType"), payload)
	if err != nil {
		writeError(w, r, err, "retention_update_failed")
		return
	}
	if policy == nil {
		notFound(w, r, "retention policy")
		return
	}
	api.Success(w, policy, requestID(r))
}

func (h *Handler) handleDeletePolicy(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.Retention.DeletePolicy(r.Context(), chi.URLParam(r, "entityType"))
	if err != nil {
		writeError(w, r, err, "retention_delete_failed")
		return
	}
	if !deleted {
		notFound(w, r, "retention policy")
		return
	}
	api.Success(w, map[string]bool{"deleted": true}, requestID(r))
}

func (h *Handler) handleListExemptions(w http.ResponseWriter, r *http.Request) {
	exemptions, err := h.Retention.ListExemptions(r.Context(), r.URL.Query().Get("entityType"))
	if err != nil {
		writeError(w, r, err, "exemption_list_failed")
		return
	}
	api.Success(w, exemptions, requestID(r))
}

func (h *Handler) handleCreateExemption(w http.ResponseWriter, r *http.Request) {
	var payload compliance.ExemptionInput
	if !decode(w, r, &payload) {
		return
	}
	if strings.TrimSpace(payload.CreatedBy) == "" {
		payload.CreatedBy = currentUser(r).UserID
	}
	exemption, err := h.Retention.CreateExemption(r.Context(), payload)
	if err != nil {
		writeError(w, r, err, "exemption_create_failed")
		return
	}
	api.Created(w, exemption, requestID(r))
}

func (h *Handler) handleCheckExemption(w http.ResponseWriter, r *http.Request) {
	exemption, err := h.Retention.CheckExemption(r.Context(), chi.URLParam(r, "entityType"), chi.URLParam(r, "entityID"))
	if err != nil {
		writeError(w, r, err, "exemption_check_failed")
		return
	}
	if exemption == nil {
		notFound(w, r, "active exemption")
		return
	}
	api.Success(w, exemption, requestID(r))
}

func (h *Handler) handleDeleteExemption(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.Retention.DeleteExemption(r.Context(), chi.URLParam(r, "entityType"), chi.URLParam(r, "entityID"))
	if err != nil {
		writeError(w, r, err, "exemption_delete_failed")
		return
	}
	if !deleted {
		notFound(w, r, "exemption")
		return
	}
	api.Success(w, map[string]bool{"deleted": true}, requestID(r))
}

func (h *Handler) handleListExecutionLogs(w http.ResponseWriter, r *http.Request) {
	v := shared.NewValidator()
	page := v.Pagination(r.URL.Query(), 100, 1000)
	if v.Reject(w, requestID(r)) {
		return
	}
	logs, err := h.Retention.ListExecutionLogs(r.Context(), r.URL.Query().Get("entityType"), page.Limit)
	if err != nil {
		writeError(w, r, err, "retention_logs_failed")
		return
	}
	api.Success(w, logs, requestID(r))
}

type runRetentionRequest struct {
	EntityType string `json:"entityType"`
}

func (h *Handler) handleRunRetention(w http.ResponseWriter, r *http.Request) {
	var payload runRetentionRequest
	if r.ContentLength != 0 {
		if !decode(w, r, &payload) {
			return
		}
	}
	entityType := strings.TrimSpace(payload.EntityType)
	var (
		report *compliance.RetentionReport
		err    error
	)
	if h.Jobs != nil {
		report, err = h.Jobs.SweepNow(r.Context(), entityType)
	} else {
		report, err = h.Retention.ApplyRetentionPolicies(r.Context(), entityType)
	}
	if err != nil {
		writeError(w, r, err, "retention_run_failed")
		return
	}
	api.Success(w, report, requestID(r))
}

func (h *Handler) handlePurge(w http.ResponseWriter, r *http.Request) {
	var (
		purged map[string]int64
		err    error
	)
	if h.Jobs != nil {
		purged, err = h.Jobs.PurgeNow(r.Context())
	} else {
		purged, err = h.Retention.PurgeScheduledDeletions(r.Context())
	}
	if err != nil {
		writeError(w, r, err, "retention_purge_failed")
		return
	}
	api.Success(w, map[string]any{"purged": purged}, requestID(r))
}
