package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"mdm-platform/feedhub/internal/common"
	"mdm-platform/feedhub/internal/models/dtos"
)

// TestConnectionAdhoc handles POST /api/v1/connections/test
func (h *Handlers) TestConnectionAdhoc() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		var req dtos.AdhocConnectionRequest
		if err := decodeJSON(w, r, &req); err != nil {
			common.RespondError(w, initTime, err, "Invalid request body", http.StatusBadRequest)
			return
		}

		result := h.deps.Services.Connections.TestAdhoc(r.Context(), req)
		common.RespondSuccess(w, initTime, result.Message, result)
	}
}

// SampleConnectionAdhoc handles POST /api/v1/connections/sample
func (h *Handlers) SampleConnectionAdhoc() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		var req dtos.AdhocConnectionRequest
		if err := decodeJSON(w, r, &req); err != nil {
			common.RespondError(w, initTime, err, "Invalid request body", http.StatusBadRequest)
			return
		}

		result := h.deps.Services.Connections.SampleAdhoc(r.Context(), req)
		common.RespondSuccess(w, initTime, result.Message, result)
	}
}

// ListConnectionPaths handles POST /api/v1/connections/paths
func (h *Handlers) ListConnectionPaths() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		var req dtos.AdhocConnectionRequest
		if err := decodeJSON(w, r, &req); err != nil {
			common.RespondError(w, initTime, err, "Invalid request body", http.StatusBadRequest)
			return
		}

		paths, err := h.deps.Services.Connections.PathsAdhoc(r.Context(), req)
		if err != nil {
			handleServiceError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Paths listed", dtos.PathsResponse{Paths: paths})
	}
}

// CreateConnection handles POST /api/v1/connections
func (h *Handlers) CreateConnection() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		var req dtos.ConnectionRequest
		if err := decodeJSON(w, r, &req); err != nil {
			common.RespondError(w, initTime, err, "Invalid request body", http.StatusBadRequest)
			return
		}

		view, err := h.deps.Services.Connections.Create(r.Context(), req)
		if err != nil {
			handleServiceError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Connection created", view, http.StatusCreated)
	}
}

func (h *Handlers) ListConnections() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		views, err := h.deps.Services.Connections.List(r.Context(), queryBool(r, "activeOnly"), listOptions(r))
		if err != nil {
			handleServiceError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Connections fetched", views)
	}
}

func (h *Handlers) GetConnection() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		view, err := h.deps.Services.Connections.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Connection fetched", view)
	}
}

// UpdateConnection handles PUT /api/v1/connections/{id}. Masked secret
// values in the body keep the stored secret.
func (h *Handlers) UpdateConnection() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		var req dtos.ConnectionRequest
		if err := decodeJSON(w, r, &req); err != nil {
			common.RespondError(w, initTime, err, "Invalid request body", http.StatusBadRequest)
			return
		}

		view, err := h.deps.Services.Connections.Update(r.Context(), chi.URLParam(r, "id"), req)
		if err != nil {
			handleServiceError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Connection updated", view)
	}
}

func (h *Handlers) DeleteConnection() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		if err := h.deps.Services.Connections.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			handleServiceError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Connection deleted", nil)
	}
}

// TestConnection handles POST /api/v1/connections/{id}/test and records the outcome
func (h *Handlers) TestConnection() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		result, err := h.deps.Services.Connections.Test(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, result.Message, result)
	}
}

// TestPull handles POST /api/v1/connections/{id}/test-pull: sample, schema
// check and mapping suggestion in one call
func (h *Handlers) TestPull() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		var req dtos.TestPullRequest
		if r.ContentLength != 0 {
			if err := decodeJSON(w, r, &req); err != nil {
				common.RespondError(w, initTime, err, "Invalid request body", http.StatusBadRequest)
				return
			}
		}

		resp, err := h.deps.Services.TestPulls.Run(r.Context(), chi.URLParam(r, "id"), req)
		if err != nil {
			handleServiceError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, resp.Sample.Message, resp)
	}
}

func (h *Handlers) ListTestPulls() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		logs, err := h.deps.Services.TestPulls.Logs(r.Context(), chi.URLParam(r, "id"), listOptions(r))
		if err != nil {
			handleServiceError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Test pulls fetched", logs)
	}
}
