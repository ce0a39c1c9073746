package compliancehandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"marketingops/internal/domain/compliance"
	"marketingops/internal/transport/http/api"
	"marketingops/internal/transport/http/shared"
)

var (
	requestTypes    = []string{string(compliance.RequestAccess), string(compliance.RequestDeletion), string(compliance.RequestCorrection), string(compliance.RequestPortability)}
	requestStatuses = []string{string(compliance.RequestPending), string(compliance.RequestInProgress), string(compliance.RequestCompleted), string(compliance.RequestRejected)}
)

func (h *Handler) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	var payload compliance.RequestInput
	if !decode(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	v.Required("requestType", string(payload.RequestType), "is required")
	v.Enum("requestType", string(payload.RequestType), requestTypes, "must be access, deletion, correction or portability")
	v.Required("requesterEmail", payload.RequesterEmail, "is required")
	v.Email("requesterEmail", payload.RequesterEmail)
	if v.Reject(w, requestID(r)) {
		return
	}
	req, err := h.Requests.CreateRequest(r.Context(), payload)
	if err != nil {
		writeError(w, r, err, "request_create_failed")
		return
	}
	api.Created(w, req, requestID(r))
}

func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	v := shared.NewValidator()
	v.Enum("status", query.Get("status"), requestStatuses, "is not a known status")
	v.Enum("requestType", query.Get("requestType"), requestTypes, "is not a known request type")
	if v.Reject(w, requestID(r)) {
		return
	}
	requests, err := h.Requests.ListRequests(r.Context(), compliance.RequestFilter{
		UserID:      query.Get("userId"),
		Status:      compliance.RequestStatus(query.Get("status")),
		RequestType: compliance.RequestType(query.Get("requestType")),
	})
	if err != nil {
		writeError(w, r, err, "request_list_failed")
		return
	}
	api.Success(w, requests, requestID(r))
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.Requests.GetRequest(r.Context(), chi.URLParam(r, "requestID"))
	if err != nil {
		writeError(w, r, err, "request_get_failed")
		return
	}
	if req == nil {
		notFound(w, r, "request")
		return
	}
	api.Success(w, req, requestID(r))
}

type requestStatusPayload struct {
	Status compliance.RequestStatus `json:"status"`
	Notes  *string                  `json:"notes,omitempty"`
}

func (h *Handler) handleUpdateRequestStatus(w http.ResponseWriter, r *http.Request) {
	var payload requestStatusPayload
	if !decode(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	v.Required("status", string(payload.Status), "is required")
	v.Enum("status", string(payload.Status), requestStatuses, "is not a known status")
	if v.Reject(w, requestID(r)) {
		return
	}
	req, err := h.Requests.UpdateRequestStatus(r.Context(), chi.URLParam(r, "requestID"), payload.Status, currentUser(r).UserID, payload.Notes)
	if err != nil {
		writeError(w, r, err, "request_status_failed")
		return
	}
	if req == nil {
		notFound(w, r, "request")
		return
	}
	api.Success(w, req, requestID(r))
}

// handleExecuteRequest fulfils access and deletion requests. Correction and
// portability requests are handled by an operator outside the service.
func (h *Handler) handleExecuteRequest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "requestID")
	req, err := h.Requests.GetRequest(r.Context(), id)
	if err != nil {
		writeError(w, r, err, "request_execute_failed")
		return
	}
	if req == nil {
		notFound(w, r, "request")
		return
	}

	switch req.RequestType {
	case compliance.RequestAccess:
		bundle, err := h.Requests.ExecuteAccessRequest(r.Context(), id)
		if err != nil {
			writeError(w, r, err, "request_execute_failed")
			return
		}
		if bundle == nil {
			notFound(w, r, "user")
			return
		}
		api.Success(w, bundle, requestID(r))
	case compliance.RequestDeletion:
		deleted, err := h.Requests.ExecuteDeletionRequest(r.Context(), id)
		if err != nil {
			writeError(w, r, err, "request_execute_failed")
			return
		}
		if !deleted {
			notFound(w, r, "user")
			return
		}
		api.Success(w, map[string]any{"requestId": id, "anonymized": true}, requestID(r))
	default:
		api.Fail(w, http.StatusUnprocessableEntity, "unsupported_request_type", string(req.RequestType)+" requests cannot be executed automatically", requestID(r))
	}
}
