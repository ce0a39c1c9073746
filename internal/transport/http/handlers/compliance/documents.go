package compliancehandler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"marketingops/internal/domain/compliance"
	"marketingops/internal/transport/http/api"
	"marketingops/internal/transport/http/shared"
)

type createDocumentRequest struct {
	DocumentType  string `json:"documentType"`
	Version       string `json:"version"`
	Content       string `json:"content"`
	EffectiveDate string `json:"effectiveDate"`
	IsCurrent     bool   `json:"isCurrent"`
}

func (h *Handler) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	var payload createDocumentRequest
	if !decode(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	v.Required("documentType", payload.DocumentType, "is required")
	v.Required("version", payload.Version, "is required")
	v.Required("content", payload.Content, "is required")
	effective, _ := v.Date("effectiveDate", payload.EffectiveDate)
	if v.Reject(w, requestID(r)) {
		return
	}
	doc, err := h.Documents.CreateDocument(r.Context(), compliance.DocumentInput{
		DocumentType:  strings.TrimSpace(payload.DocumentType),
		Version:       strings.TrimSpace(payload.Version),
		Content:       payload.Content,
		EffectiveDate: effective,
		CreatedBy:     currentUser(r).UserID,
		IsCurrent:     payload.IsCurrent,
	})
	if err != nil {
		writeError(w, r, err, "document_create_failed")
		return
	}
	api.Created(w, doc, requestID(r))
}

func (h *Handler) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Documents.GetDocument(r.Context(), chi.URLParam(r, "documentID"))
	h.writeDocument(w, r, doc, err)
}

func (h *Handler) handleSetCurrentDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Documents.SetCurrentDocument(r.Context(), chi.URLParam(r, "documentID"))
	h.writeDocument(w, r, doc, err)
}

func (h *Handler) handleCurrentDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Documents.GetCurrentDocument(r.Context(), chi.URLParam(r, "documentType"))
	h.writeDocument(w, r, doc, err)
}

func (h *Handler) handleDocumentVersion(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Documents.GetDocumentVersion(r.Context(), chi.URLParam(r, "documentType"), chi.URLParam(r, "version"))
	h.writeDocument(w, r, doc, err)
}

func (h *Handler) handleDocumentVersions(w http.ResponseWriter, r *http.Request) {
	docs, err := h.Documents.GetDocumentVersions(r.Context(), chi.URLParam(r, "documentType"))
	if err != nil {
		writeError(w, r, err, "document_versions_failed")
		return
	}
	api.Success(w, docs, requestID(r))
}

func (h *Handler) writeDocument(w http.ResponseWriter, r *http.Request, doc *compliance.ComplianceDocument, err error) {
	if err != nil {
		writeError(w, r, err, "document_failed")
		return
	}
	if doc == nil {
		notFound(w, r, "document")
		return
	}
	api.Success(w, doc, requestID(r))
}
