package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"mdm-platform/feedhub/internal/common"
	"mdm-platform/feedhub/internal/models/dtos"
)

// CreateDataSource handles POST /api/v1/data-sources
func (h *Handlers) CreateDataSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		var req dtos.DataSourceRequest
		if err := decodeJSON(w, r, &req); err != nil {
			common.RespondError(w, initTime, err, "Invalid request body", http.StatusBadRequest)
			return
		}

		ds, err := h.deps.Services.DataSources.Create(r.Context(), req)
		if err != nil {
			handleServiceError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Data source created", ds, http.StatusCreated)
	}
}

func (h *Handlers) ListDataSources() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		sources, err := h.deps.Services.DataSources.List(r.Context(), listOptions(r))
		if err != nil {
			handleServiceError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Data sources fetched", sources)
	}
}

func (h *Handlers) GetDataSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		ds, err := h.deps.Services.DataSources.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Data source fetched", ds)
	}
}

func (h *Handlers) UpdateDataSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		var req dtos.DataSourceRequest
		if err := decodeJSON(w, r, &req); err != nil {
			common.RespondError(w, initTime, err, "Invalid request body", http.StatusBadRequest)
			return
		}

		ds, err := h.deps.Services.DataSources.Update(r.Context(), chi.URLParam(r, "id"), req)
		if err != nil {
			handleServiceError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Data source updated", ds)
	}
}

func (h *Handlers) DeleteDataSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		if err := h.deps.Services.DataSources.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			handleServiceError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Data source deleted", nil)
	}
}
