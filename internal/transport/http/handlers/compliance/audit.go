package compliancehandler

import (
	"net/http"

	"marketingops/internal/domain/audit"
	"marketingops/internal/transport/http/api"
	"marketingops/internal/transport/http/shared"
)

func (h *Handler) handleListAudit(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := audit.Filter{
		Action:       query.Get("action"),
		ResourceType: query.Get("resourceType"),
		ResourceID:   query.Get("resourceId"),
		UserID:       query.Get("userId"),
	}
	v := shared.NewValidator()
	page := v.Pagination(query, 50, 500)
	if v.Reject(w, requestID(r)) {
		return
	}
	total, err := h.Audit.Count(r.Context(), filter)
	if err != nil {
		writeError(w, r, err, "audit_list_failed")
		return
	}
	events, err := h.Audit.List(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		writeError(w, r, err, "audit_list_failed")
		return
	}
	api.Page(w, events, total, page.Limit, page.Offset, requestID(r))
}
