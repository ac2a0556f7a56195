package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"mdm-platform/feedhub/internal/common"
	"mdm-platform/feedhub/internal/db"
	"mdm-platform/feedhub/internal/models/dtos"
)

// HealthCheckHandler handles GET /healthCheck
func HealthCheckHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		services := make(map[string]dtos.ServiceStatus)

		// Check postgres
		pgStatus := "ok"
		pgDetails := "Postgres Connected"
		if err := db.Ping(ctx, deps.DB); err != nil {
			pgStatus = "down"
			pgDetails = err.Error()
		}
		services["postgres"] = dtos.ServiceStatus{
			Status:  pgStatus,
			Details: pgDetails,
		}

		if deps.Redis != nil {
			redisStatus := "ok"
			redisDetails := "Redis Connected"
			if err := common.Ping(ctx, deps.Redis); err != nil {
				redisStatus = "down"
				redisDetails = err.Error()
			}
			services["redis"] = dtos.ServiceStatus{
				Status:  redisStatus,
				Details: redisDetails,
			}
		}

		overallStatus := "ok"
		for _, svc := range services {
			if svc.Status != "ok" {
				overallStatus = "down"
				break
			}
		}

		now := time.Now()
		resp := dtos.HealthCheckResponse{
			Services:  services,
			Status:    overallStatus,
			Uptime:    now.Sub(deps.UpSince).Round(time.Second).String(),
			Timestamp: now.UTC(),
		}

		w.Header().Set("Content-Type", "application/json")
		if overallStatus != "ok" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}
