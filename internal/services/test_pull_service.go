package services

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"mdm-platform/feedhub/internal/db/repositories"
	"mdm-platform/feedhub/internal/logging"
	"mdm-platform/feedhub/internal/mapping"
	"mdm-platform/feedhub/internal/models/dtos"
	gormModels "mdm-platform/feedhub/internal/models/gorm"
)

// TestPullService previews a saved connection, checks the sample against the
// product schema, proposes the best stored template and logs the attempt
type TestPullService struct {
	connections *ConnectionService
	templates   *MappingTemplateService
	logs        *repositories.ScheduleRepo
	log         *zap.SugaredLogger
}

func NewTestPullService(connections *ConnectionService, templates *MappingTemplateService, logs *repositories.ScheduleRepo) *TestPullService {
	return &TestPullService{
		connections: connections,
		templates:   templates,
		logs:        logs,
		log:         logging.Component("test_pull"),
	}
}

func (s *TestPullService) Run(ctx context.Context, connectionID string, req dtos.TestPullRequest) (*dtos.TestPullResponse, error) {
	conn, sample, err := s.connections.Sample(ctx, connectionID, req)
	if err != nil {
		return nil, err
	}

	resp := &dtos.TestPullResponse{Sample: sample}
	entry := &gormModels.TestPullLog{
		ConnectionID: conn.ID,
		Success:      sample.Success,
		Message:      sample.Message,
		RecordCount:  len(sample.Records),
		Headers:      gormModels.StringList(sample.Headers),
	}

	if sample.Success && len(sample.Records) > 0 {
		resp.SchemaValidation = mapping.ValidateSchema(sample.Records, mapping.DefaultProductSchema)

		candidates, err := s.templates.Candidates(ctx, conn.Kind)
		if err != nil {
			s.log.Warnw("Skipping mapping suggestion", "connection_id", conn.ID, "error", err)
		} else {
			resp.MappingSuggestion, resp.MappingConfidence = mapping.SuggestMapping(sample.Records, candidates)
		}

		entry.SchemaValidation = encodeRaw(resp.SchemaValidation)
		if resp.MappingSuggestion != nil {
			entry.MappingSuggestion = encodeRaw(resp.MappingSuggestion)
		}
		entry.MappingConfidence = resp.MappingConfidence
	}

	if err := s.logs.CreateTestPullLog(ctx, entry); err != nil {
		// the preview is still useful without its log row
		s.log.Errorw("Failed to store test pull log", "connection_id", conn.ID, "error", err)
	} else {
		resp.LogID = entry.ID
	}
	return resp, nil
}

func (s *TestPullService) Logs(ctx context.Context, connectionID string, opts repositories.ListOptions) ([]gormModels.TestPullLog, error) {
	logs, err := s.logs.ListTestPullLogs(ctx, connectionID, opts)
	if err != nil {
		return nil, storage("failed to list test pull logs", err)
	}
	return logs, nil
}

func encodeRaw(v any) gormModels.RawJSON {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return gormModels.RawJSON(b)
}
