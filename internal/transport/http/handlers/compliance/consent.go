package compliancehandler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"marketingops/internal/domain/compliance"
	"marketingops/internal/transport/http/api"
	"marketingops/internal/transport/http/shared"
)

func (h *Handler) handleConsentTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.Consent.GetConsentTypes(r.Context())
	if err != nil {
		writeError(w, r, err, "consent_types_failed")
		return
	}
	api.Success(w, types, requestID(r))
}

func (h *Handler) handleRecordConsent(w http.ResponseWriter, r *http.Request) {
	var payload compliance.ConsentInput
	if !decode(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	v.Required("userId", payload.UserID, "is required")
	v.Required("consentType", payload.ConsentType, "is required")
	v.Required("consentVersion", payload.ConsentVersion, "is required")
	if v.Reject(w, requestID(r)) {
		return
	}
	if strings.TrimSpace(payload.IPAddress) == "" {
		payload.IPAddress = shared.ClientIP(r)
	}
	if strings.TrimSpace(payload.UserAgent) == "" {
		payload.UserAgent = r.UserAgent()
	}
	// Clients cannot backdate a consent decision.
	payload.RecordedAt = time.Time{}
	record, err := h.Consent.RecordConsent(r.Context(), payload)
	if err != nil {
		writeError(w, r, err, "consent_record_failed")
		return
	}
	api.Created(w, record, requestID(r))
}

func (h *Handler) handleCheckConsent(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	consentType := strings.TrimSpace(r.URL.Query().Get("type"))
	if consentType == "" {
		shared.FailValidation(w, requestID(r), []shared.ValidationIssue{{Field: "type", Reason: "is required"}})
		return
	}
	granted, err := h.Consent.CheckUserConsent(r.Context(), userID, consentType)
	if err != nil {
		writeError(w, r, err, "consent_check_failed")
		return
	}
	api.Success(w, map[string]any{
		"userId":      userID,
		"consentType": consentType,
		"granted":     granted,
	}, requestID(r))
}

type categoriesRequest struct {
	Categories []string `json:"categories"`
}

func (h *Handler) handleCheckCategories(w http.ResponseWriter, r *http.Request) {
	var payload categoriesRequest
	if !decode(w, r, &payload) {
		return
	}
	result, err := h.Consent.CheckConsentForCategories(r.Context(), chi.URLParam(r, "userID"), payload.Categories)
	if err != nil {
		writeError(w, r, err, "consent_categories_failed")
		return
	}
	api.Success(w, result, requestID(r))
}

func (h *Handler) handleConsentHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.Consent.GetUserConsentHistory(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, r, err, "consent_history_failed")
		return
	}
	api.Success(w, history, requestID(r))
}

func (h *Handler) handleRevokeAll(w http.ResponseWriter, r *http.Request) {
	revoked, err := h.Consent.RevokeAllUserConsent(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, r, err, "consent_revoke_failed")
		return
	}
	api.Success(w, map[string]int{"revoked": revoked}, requestID(r))
}
