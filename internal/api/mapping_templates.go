package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"mdm-platform/feedhub/internal/common"
	"mdm-platform/feedhub/internal/models/dtos"
)

// CreateMappingTemplate handles POST /api/v1/mapping-templates. Flat
// {source: target} mappings are stored in the array form.
func (h *Handlers) CreateMappingTemplate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		var req dtos.MappingTemplateRequest
		if err := decodeJSON(w, r, &req); err != nil {
			common.RespondError(w, initTime, err, "Invalid request body", http.StatusBadRequest)
			return
		}

		tpl, err := h.deps.Services.Templates.Create(r.Context(), req)
		if err != nil {
			handleServiceError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Mapping template created", tpl, http.StatusCreated)
	}
}

// ListMappingTemplates handles GET /api/v1/mapping-templates?sourceKind=&activeOnly=
func (h *Handlers) ListMappingTemplates() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		templates, err := h.deps.Services.Templates.List(r.Context(), r.URL.Query().Get("sourceKind"), queryBool(r, "activeOnly"))
		if err != nil {
			handleServiceError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Mapping templates fetched", templates)
	}
}

func (h *Handlers) GetMappingTemplate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		tpl, err := h.deps.Services.Templates.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Mapping template fetched", tpl)
	}
}

func (h *Handlers) UpdateMappingTemplate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		var req dtos.MappingTemplateRequest
		if err := decodeJSON(w, r, &req); err != nil {
			common.RespondError(w, initTime, err, "Invalid request body", http.StatusBadRequest)
			return
		}

		tpl, err := h.deps.Services.Templates.Update(r.Context(), chi.URLParam(r, "id"), req)
		if err != nil {
			handleServiceError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Mapping template updated", tpl)
	}
}

func (h *Handlers) DeleteMappingTemplate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		if err := h.deps.Services.Templates.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			handleServiceError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Mapping template deleted", nil)
	}
}
