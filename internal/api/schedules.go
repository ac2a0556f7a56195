package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"mdm-platform/feedhub/internal/common"
	"mdm-platform/feedhub/internal/models/dtos"
	"mdm-platform/feedhub/internal/scheduler"
)

// CreateSchedule handles POST /api/v1/schedules and adds the job to the
// running table
func (h *Handlers) CreateSchedule() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		var req dtos.ScheduleRequest
		if err := decodeJSON(w, r, &req); err != nil {
			common.RespondError(w, initTime, err, "Invalid request body", http.StatusBadRequest)
			return
		}

		row, err := h.deps.Services.Schedules.Create(r.Context(), req)
		if err != nil {
			handleServiceError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Schedule created", row, http.StatusCreated)
	}
}

func (h *Handlers) ListSchedules() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		rows, err := h.deps.Services.Schedules.List(r.Context(), queryBool(r, "activeOnly"))
		if err != nil {
			handleServiceError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Schedules fetched", rows)
	}
}

func (h *Handlers) GetSchedule() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		row, err := h.deps.Services.Schedules.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Schedule fetched", row)
	}
}

func (h *Handlers) UpdateSchedule() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		var req dtos.ScheduleRequest
		if err := decodeJSON(w, r, &req); err != nil {
			common.RespondError(w, initTime, err, "Invalid request body", http.StatusBadRequest)
			return
		}

		row, err := h.deps.Services.Schedules.Update(r.Context(), chi.URLParam(r, "id"), req)
		if err != nil {
			handleServiceError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Schedule updated", row)
	}
}

func (h *Handlers) DeleteSchedule() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		if err := h.deps.Services.Schedules.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			handleServiceError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Schedule deleted", nil)
	}
}

// TriggerSchedule handles POST /api/v1/schedules/{id}/trigger. The id is the
// job id, which for persisted schedules is the schedule id.
func (h *Handlers) TriggerSchedule() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		outcome, err := h.deps.Services.Schedules.Trigger(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, initTime, err)
			return
		}
		if outcome.Status != scheduler.StatusSuccess {
			common.RespondErrorData(w, initTime, nil, outcome.Message, outcome, http.StatusBadGateway)
			return
		}
		common.RespondSuccess(w, initTime, "Job completed", outcome)
	}
}

// ListJobs handles GET /api/v1/schedules/jobs
func (h *Handlers) ListJobs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		common.RespondSuccess(w, initTime, "Jobs fetched", h.deps.Services.Schedules.Jobs())
	}
}
