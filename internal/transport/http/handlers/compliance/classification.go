package compliancehandler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"marketingops/internal/domain/compliance"
	"marketingops/internal/transport/http/api"
	"marketingops/internal/transport/http/shared"
)

func (h *Handler) handleListClassifications(w http.ResponseWriter, r *http.Request) {
	items, err := h.Classifications.ListClassifications(r.Context())
	if err != nil {
		writeError(w, r, err, "classification_list_failed")
		return
	}
	api.Success(w, items, requestID(r))
}

func (h *Handler) handleCreateClassification(w http.ResponseWriter, r *http.Request) {
	var payload compliance.ClassificationInput
	if !decode(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	v.Required("name", payload.Name, "is required")
	if v.Reject(w, requestID(r)) {
		return
	}
	item, err := h.Classifications.CreateClassification(r.Context(), payload)
	if err != nil {
		writeError(w, r, err, "classification_create_failed")
		return
	}
	api.Created(w, item, requestID(r))
}

func (h *Handler) handleGetClassification(w http.ResponseWriter, r *http.Request) {
	item, err := h.Classifications.GetClassification(r.Context(), chi.URLParam(r, "classificationID"))
	if err != nil {
		writeError(w, r, err, "classification_get_failed")
		return
	}
	if item == nil {
		notFound(w, r, "classification")
		return
	}
	api.Success(w, item, requestID(r))
}

func (h *Handler) handleListFields(w http.ResponseWriter, r *http.Request) {
	piiOnly, _ := strconv.ParseBool(r.URL.Query().Get("piiOnly"))
	fields, err := h.Classifications.ListFieldClassifications(r.Context(), compliance.FieldFilter{
		TableName: strings.TrimSpace(r.URL.Query().Get("table")),
		PIIOnly:   piiOnly,
	})
	if err != nil {
		writeError(w, r, err, "field_list_failed")
		return
	}
	api.Success(w, fields, requestID(r))
}

func (h *Handler) handleClassifyField(w http.ResponseWriter, r *http.Request) {
	var payload compliance.FieldInput
	if !decode(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	v.Required("tableName", payload.TableName, "is required")
	v.Required("fieldName", payload.FieldName, "is required")
	v.Required("classificationId", payload.ClassificationID, "is required")
	if v.Reject(w, requestID(r)) {
		return
	}
	field, err := h.Classifications.ClassifyField(r.Context(), payload)
	if err != nil {
		writeError(w, r, err, "field_classify_failed")
		return
	}
	api.Success(w, field, requestID(r))
}

func (h *Handler) handlePIIFields(w http.ResponseWriter, r *http.Request) {
	fields, err := h.Classifications.GetPIIFields(r.Context())
	if err != nil {
		writeError(w, r, err, "field_pii_failed")
		return
	}
	api.Success(w, fields, requestID(r))
}

func (h *Handler) handleGetField(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	table, name := chi.URLParam(r, "tableName"), chi.URLParam(r, "fieldName")
	field, err := h.Classifications.GetFieldClassification(ctx, table, name)
	if err != nil {
		writeError(w, r, err, "field_get_failed")
		return
	}
	if field == nil {
		notFound(w, r, "field classification")
		return
	}
	encrypt, err := h.Classifications.ShouldEncryptField(ctx, table, name)
	if err != nil {
		writeError(w, r, err, "field_get_failed")
		return
	}
	mask, err := h.Classifications.ShouldMaskField(ctx, table, name)
	if err != nil {
		writeError(w, r, err, "field_get_failed")
		return
	}
	api.Success(w, map[string]any{
		"field":         field,
		"shouldEncrypt": encrypt,
		"shouldMask":    mask,
	}, requestID(r))
}

type recordPayload struct {
	TableName string         `json:"tableName"`
	Record    map[string]any `json:"record"`
}

func (p recordPayload) reject(w http.ResponseWriter, r *http.Request) bool {
	v := shared.NewValidator()
	v.Required("tableName", p.TableName, "is required")
	if p.Record == nil {
		v.Add("record", "is required")
	}
	return v.Reject(w, requestID(r))
}

func (h *Handler) handleProtectRecord(w http.ResponseWriter, r *http.Request) {
	var payload recordPayload
	if !decode(w, r, &payload) || payload.reject(w, r) {
		return
	}
	out, err := h.Protector.ProtectRecord(r.Context(), payload.TableName, payload.Record)
	if err != nil {
		writeError(w, r, err, "field_protect_failed")
		return
	}
	api.Success(w, out, requestID(r))
}

func (h *Handler) handleMaskRecord(w http.ResponseWriter, r *http.Request) {
	var payload recordPayload
	if !decode(w, r, &payload) || payload.reject(w, r) {
		return
	}
	out, err := h.Protector.MaskRecord(r.Context(), payload.TableName, payload.Record)
	if err != nil {
		writeError(w, r, err, "field_mask_failed")
		return
	}
	api.Success(w, out, requestID(r))
}
