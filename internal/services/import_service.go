package services

import (
	"context"

	"mdm-platform/feedhub/internal/constants"
	"mdm-platform/feedhub/internal/db/repositories"
	"mdm-platform/feedhub/internal/ingestion"
	gormModels "mdm-platform/feedhub/internal/models/gorm"
)

// ImportService starts manual imports and reads their history
type ImportService struct {
	repo   *repositories.ImportRepo
	engine *ingestion.Engine
}

func NewImportService(repo *repositories.ImportRepo, engine *ingestion.Engine) *ImportService {
	return &ImportService{repo: repo, engine: engine}
}

// Run executes an import synchronously and returns its result. Failures of
// the run are in the result, not the error.
func (s *ImportService) Run(ctx context.Context, req ingestion.Request) *ingestion.ImportResult {
	if req.TriggeredBy == "" {
		req.TriggeredBy = ingestion.TriggerAPI
	}
	return s.engine.RunIngestion(ctx, req)
}

func (s *ImportService) Get(ctx context.Context, id string) (*gormModels.Import, error) {
	imp, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storage("failed to fetch import", err)
	}
	if imp == nil {
		return nil, notFound("import", id)
	}
	return imp, nil
}

func (s *ImportService) List(ctx context.Context, dataSourceID, supplierID, status string, opts repositories.ListOptions) ([]gormModels.Import, error) {
	imports, err := s.repo.List(ctx, repositories.ImportFilter{
		DataSourceID: dataSourceID,
		SupplierID:   supplierID,
		Status:       constants.ImportStatus(status),
	}, opts)
	if err != nil {
		return nil, storage("failed to list imports", err)
	}
	return imports, nil
}
