package scheduler

import (
	"context"
	"errors"
	"fmt"

	"mdm-platform/feedhub/internal/ingestion"
)

// Runner is the part of the ingestion engine a scheduled job needs
type Runner interface {
	RunIngestion(ctx context.Context, req ingestion.Request) *ingestion.ImportResult
}

// IngestionHandler runs the data source bound to a schedule
type IngestionHandler struct {
	Runner Runner
}

func (h IngestionHandler) Run(ctx context.Context, job Job) (string, error) {
	if job.DataSourceID == "" {
		return "", errors.New("job has no data source")
	}
	result := h.Runner.RunIngestion(ctx, ingestion.Request{
		DataSourceID:      job.DataSourceID,
		MappingTemplateID: job.MappingTemplateID,
		Path:              job.Path,
		TriggeredBy:       ingestion.TriggerSchedule,
	})
	if result == nil {
		return "", errors.New("ingestion returned no result")
	}
	if !result.Success() {
		return "", fmt.Errorf("import %s failed: %s", result.ImportID, result.Message)
	}
	return fmt.Sprintf("import %s: %d processed, %d errors", result.ImportID, result.ProcessedCount, result.ErrorCount), nil
}

// HealthChecker tests every active connection
type HealthChecker interface {
	CheckAll(ctx context.Context) (ok, failed int, err error)
}

// ConnectionHealthHandler runs the periodic connection probe
type ConnectionHealthHandler struct {
	Checker HealthChecker
}

func (h ConnectionHealthHandler) Run(ctx context.Context, job Job) (string, error) {
	ok, failed, err := h.Checker.CheckAll(ctx)
	if err != nil {
		return "", err
	}
	msg := fmt.Sprintf("%d connections healthy, %d failing", ok, failed)
	if failed > 0 {
		return "", errors.New(msg)
	}
	return msg, nil
}
