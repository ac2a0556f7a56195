package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"mdm-platform/feedhub/internal/common"
	"mdm-platform/feedhub/internal/ingestion"
)

const defaultRecentEvents = 20

// RunIngestion handles POST /api/v1/ingestion/run. The run is synchronous;
// a failed run still answers with its import summary in data.
func (h *Handlers) RunIngestion() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		var req ingestion.Request
		if err := decodeJSON(w, r, &req); err != nil {
			common.RespondError(w, initTime, err, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.DataSourceID == "" {
			common.RespondError(w, initTime, nil, "dataSourceId is required", http.StatusBadRequest)
			return
		}
		req.TriggeredBy = ingestion.TriggerAPI

		result := h.deps.Services.Imports.Run(r.Context(), req)
		if !result.Success() {
			common.RespondErrorData(w, initTime, nil, result.Message, result, statusForCode(result.Code))
			return
		}
		common.RespondSuccess(w, initTime, result.Message, result)
	}
}

// ListImports handles GET /api/v1/imports?dataSourceId=&supplierId=&status=
func (h *Handlers) ListImports() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		q := r.URL.Query()
		imports, err := h.deps.Services.Imports.List(r.Context(), q.Get("dataSourceId"), q.Get("supplierId"), q.Get("status"), listOptions(r))
		if err != nil {
			handleServiceError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Imports fetched", imports)
	}
}

func (h *Handlers) GetImport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		imp, err := h.deps.Services.Imports.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Import fetched", imp)
	}
}

// RecentImportEvents handles GET /api/v1/imports/events?limit=. Answers 404
// when no event stream is configured.
func (h *Handlers) RecentImportEvents() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		if h.deps.Events == nil {
			common.RespondError(w, initTime, nil, "Import event stream is not configured", http.StatusNotFound)
			return
		}

		n := int64(defaultRecentEvents)
		if v, err := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64); err == nil && v > 0 {
			n = v
		}

		events, err := h.deps.Events.Recent(r.Context(), n)
		if err != nil {
			common.RespondError(w, initTime, err, "Failed to read import events", http.StatusBadGateway)
			return
		}
		common.RespondSuccess(w, initTime, "Import events fetched", events)
	}
}
