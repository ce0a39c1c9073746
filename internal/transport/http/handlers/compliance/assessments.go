package compliancehandler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"marketingops/internal/domain/compliance"
	"marketingops/internal/transport/http/api"
	"marketingops/internal/transport/http/shared"
)

var assessmentStatuses = []string{
	string(compliance.AssessmentDraft),
	string(compliance.AssessmentReview),
	string(compliance.AssessmentApproved),
	string(compliance.AssessmentRejected),
}

func (h *Handler) handleListAssessments(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	v := shared.NewValidator()
	v.Enum("status", status, assessmentStatuses, "is not a known status")
	if v.Reject(w, requestID(r)) {
		return
	}
	items, err := h.Assessments.GetAssessments(r.Context(), compliance.AssessmentFilter{
		Status:    compliance.AssessmentStatus(status),
		CreatorID: r.URL.Query().Get("createdBy"),
	})
	if err != nil {
		writeError(w, r, err, "assessment_list_failed")
		return
	}
	api.Success(w, items, requestID(r))
}

func (h *Handler) handleCreateAssessment(w http.ResponseWriter, r *http.Request) {
	var payload compliance.AssessmentInput
	if !decode(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	v.Required("title", payload.Title, "is required")
	if v.Reject(w, requestID(r)) {
		return
	}
	payload.CreatedBy = currentUser(r).UserID
	pia, err := h.Assessments.CreateAssessment(r.Context(), payload)
	if err != nil {
		writeError(w, r, err, "assessment_create_failed")
		return
	}
	api.Created(w, pia, requestID(r))
}

func (h *Handler) handleGetAssessment(w http.ResponseWriter, r *http.Request) {
	pia, err := h.Assessments.GetAssessment(r.Context(), chi.URLParam(r, "assessmentID"))
	h.writeAssessment(w, r, pia, err)
}

func (h *Handler) handleUpdateAssessment(w http.ResponseWriter, r *http.Request) {
	var patch compliance.AssessmentPatch
	if !decode(w, r, &patch) {
		return
	}
	pia, err := h.Assessments.UpdateAssessment(r.Context(), chi.URLParam(r, "assessmentID"), patch)
	h.writeAssessment(w, r, pia, err)
}

type assessmentStatusPayload struct {
	Status compliance.AssessmentStatus `json:"status"`
}

func (h *Handler) handleUpdateAssessmentStatus(w http.ResponseWriter, r *http.Request) {
	var payload assessmentStatusPayload
	if !decode(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	v.Required("status", string(payload.Status), "is required")
	v.Enum("status", string(payload.Status), assessmentStatuses, "is not a known status")
	if v.Reject(w, requestID(r)) {
		return
	}
	reviewer := ""
	if payload.Status != compliance.AssessmentReview && payload.Status != compliance.AssessmentDraft {
		reviewer = currentUser(r).UserID
	}
	pia, err := h.Assessments.UpdateAssessmentStatus(r.Context(), chi.URLParam(r, "assessmentID"), payload.Status, reviewer)
	h.writeAssessment(w, r, pia, err)
}

func (h *Handler) handleAssessmentReport(w http.ResponseWriter, r *http.Request) {
	pdf, err := h.Assessments.RenderReport(r.Context(), chi.URLParam(r, "assessmentID"))
	if err != nil {
		writeError(w, r, err, "assessment_report_failed")
		return
	}
	if pdf == nil {
		notFound(w, r, "assessment")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="assessment-`+chi.URLParam(r, "assessmentID")+`.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (h *Handler) writeAssessment(w http.ResponseWriter, r *http.Request, pia *compliance.PrivacyImpactAssessment, err error) {
	if err != nil {
		writeError(w, r, err, "assessment_failed")
		return
	}
	if pia == nil {
		notFound(w, r, "assessment")
		return
	}
	api.Success(w, pia, requestID(r))
}
