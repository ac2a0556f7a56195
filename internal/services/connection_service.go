package services

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"mdm-platform/feedhub/internal/connectors"
	"mdm-platform/feedhub/internal/constants"
	"mdm-platform/feedhub/internal/credentials"
	"mdm-platform/feedhub/internal/db/repositories"
	"mdm-platform/feedhub/internal/ingestion"
	"mdm-platform/feedhub/internal/logging"
	"mdm-platform/feedhub/internal/metrics"
	"mdm-platform/feedhub/internal/models/dtos"
	gormModels "mdm-platform/feedhub/internal/models/gorm"
)

// ConnectionService manages saved connections and runs connection tests,
// previews and path listings, both for saved and unsaved credentials
type ConnectionService struct {
	repo         *repositories.ConnectionRepo
	vault        *credentials.Store
	sampler      *ingestion.Sampler
	metrics      *metrics.MetricsRegistry
	probeTimeout time.Duration
	log          *zap.SugaredLogger
}

func NewConnectionService(repo *repositories.ConnectionRepo, vault *credentials.Store, sampler *ingestion.Sampler, m *metrics.MetricsRegistry, probeTimeout time.Duration) *ConnectionService {
	if probeTimeout <= 0 {
		probeTimeout = 15 * time.Second
	}
	return &ConnectionService{
		repo:         repo,
		vault:        vault,
		sampler:      sampler,
		metrics:      m,
		probeTimeout: probeTimeout,
		log:          logging.Component("connections"),
	}
}

func (s *ConnectionService) Create(ctx context.Context, req dtos.ConnectionRequest) (*dtos.ConnectionView, error) {
	kind, err := s.validate(req.Name, req.Kind, req.Credentials)
	if err != nil {
		return nil, err
	}
	if err := s.checkSupplier(ctx, req.SupplierID); err != nil {
		return nil, err
	}

	sealed, err := s.vault.Seal(req.Credentials)
	if err != nil {
		return nil, &ServiceError{Code: constants.ErrCodeInternal, Message: "failed to encrypt credentials", Err: err}
	}

	conn := &gormModels.Connection{
		Name:        strings.TrimSpace(req.Name),
		Kind:        string(kind),
		Credentials: sealed,
		SupplierID:  req.SupplierID,
		IsActive:    req.IsActive == nil || *req.IsActive,
	}
	if err := s.repo.Create(ctx, conn); err != nil {
		return nil, storage("failed to create connection", err)
	}

	s.log.Infow("Connection created", "connection_id", conn.ID, "kind", conn.Kind)
	return s.view(conn), nil
}

func (s *ConnectionService) Get(ctx context.Context, id string) (*dtos.ConnectionView, error) {
	conn, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(conn), nil
}

func (s *ConnectionService) List(ctx context.Context, activeOnly bool, opts repositories.ListOptions) ([]dtos.ConnectionView, error) {
	conns, err := s.repo.List(ctx, activeOnly, opts)
	if err != nil {
		return nil, storage("failed to list connections", err)
	}
	out := make([]dtos.ConnectionView, 0, len(conns))
	for i := range conns {
		out = append(out, *s.view(&conns[i]))
	}
	return out, nil
}

// Update replaces the connection's settings. Credential values equal to the
// mask token keep their stored value, so a sanitized view can be sent back
// unchanged.
func (s *ConnectionService) Update(ctx context.Context, id string, req dtos.ConnectionRequest) (*dtos.ConnectionView, error) {
	conn, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Kind == "" {
		req.Kind = conn.Kind
	}
	if req.Name == "" {
		req.Name = conn.Name
	}

	current, err := s.vault.Unseal(conn.Credentials)
	if err != nil {
		return nil, &ServiceError{Code: constants.ErrCodeCredentialsUnreadable, Message: "stored credentials could not be decrypted", Err: err}
	}
	merged := mergeCredentials(current, req.Credentials)

	kind, err := s.validate(req.Name, req.Kind, merged)
	if err != nil {
		return nil, err
	}
	if err := s.checkSupplier(ctx, req.SupplierID); err != nil {
		return nil, err
	}

	sealed, err := s.vault.Seal(merged)
	if err != nil {
		return nil, &ServiceError{Code: constants.ErrCodeInternal, Message: "failed to encrypt credentials", Err: err}
	}

	conn.Name = strings.TrimSpace(req.Name)
	conn.Kind = string(kind)
	conn.Credentials = sealed
	conn.SupplierID = req.SupplierID
	if req.IsActive != nil {
		conn.IsActive = *req.IsActive
	}
	if err := s.repo.Update(ctx, conn); err != nil {
		return nil, storage("failed to update connection", err)
	}
	return s.view(conn), nil
}

func (s *ConnectionService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return storage("failed to delete connection "+id, err)
	}
	return nil
}

// Test probes a saved connection and records the outcome on its row
func (s *ConnectionService) Test(ctx context.Context, id string) (*connectors.TestResult, error) {
	conn, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	raw, err := s.vault.Unseal(conn.Credentials)
	var result *connectors.TestResult
	if err != nil {
		result = &connectors.TestResult{Success: false, Message: "stored credentials could not be decrypted", Code: constants.ErrCodeCredentialsUnreadable}
	} else {
		result = s.sampler.TestConnection(ctx, conn.Kind, raw, s.probeTimeout)
	}
	s.observe(conn.Kind, result)

	if err := s.repo.RecordTestResult(ctx, conn.ID, result.Success, result.Message, time.Now()); err != nil {
		s.log.Warnw("Failed to record test result", "connection_id", conn.ID, "error", err)
	}
	return result, nil
}

// TestAdhoc probes credentials that are not stored
func (s *ConnectionService) TestAdhoc(ctx context.Context, req dtos.AdhocConnectionRequest) *connectors.TestResult {
	timeout := s.probeTimeout
	if req.TimeoutSeconds > 0 {
		timeout = time.Duration(req.TimeoutSeconds) * time.Second
	}
	result := s.sampler.TestConnection(ctx, req.Kind, req.Credentials, timeout)
	s.observe(req.Kind, result)
	return result
}

func (s *ConnectionService) SampleAdhoc(ctx context.Context, req dtos.AdhocConnectionRequest) *ingestion.SampleResult {
	return s.sampler.PullSample(ctx, req.Kind, req.Credentials, req.Path, ingestion.SampleOptions{
		Limit:     req.Limit,
		HasHeader: req.HasHeader,
		Delimiter: req.Delimiter,
		Encoding:  req.Encoding,
		Sheet:     req.Sheet,
	})
}

func (s *ConnectionService) PathsAdhoc(ctx context.Context, req dtos.AdhocConnectionRequest) ([]string, error) {
	return s.sampler.ListPaths(ctx, req.Kind, req.Credentials)
}

// Sample pulls a preview through a saved connection
func (s *ConnectionService) Sample(ctx context.Context, id string, req dtos.TestPullRequest) (*gormModels.Connection, *ingestion.SampleResult, error) {
	conn, err := s.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	raw, err := s.vault.Unseal(conn.Credentials)
	if err != nil {
		return conn, &ingestion.SampleResult{Success: false, Message: "stored credentials could not be decrypted", Code: constants.ErrCodeCredentialsUnreadable}, nil
	}
	return conn, s.sampler.PullSample(ctx, conn.Kind, raw, req.Path, ingestion.SampleOptions{
		Limit:     req.Limit,
		HasHeader: req.HasHeader,
		Delimiter: req.Delimiter,
		Encoding:  req.Encoding,
		Sheet:     req.Sheet,
	}), nil
}

// CheckAll tests every active connection in turn
func (s *ConnectionService) CheckAll(ctx context.Context) (ok, failed int, err error) {
	conns, err := s.repo.List(ctx, true, repositories.ListOptions{Limit: 500})
	if err != nil {
		return 0, 0, storage("failed to list connections", err)
	}
	for _, conn := range conns {
		if ctx.Err() != nil {
			return ok, failed, ctx.Err()
		}
		result, err := s.Test(ctx, conn.ID)
		if err != nil || !result.Success {
			failed++
			continue
		}
		ok++
	}
	return ok, failed, nil
}

func (s *ConnectionService) load(ctx context.Context, id string) (*gormModels.Connection, error) {
	conn, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storage("failed to fetch connection", err)
	}
	if conn == nil {
		return nil, notFound("connection", id)
	}
	return conn, nil
}

func (s *ConnectionService) validate(name, kind string, raw map[string]any) (credentials.Kind, error) {
	if strings.TrimSpace(name) == "" {
		return "", invalid("name is required", nil)
	}
	k, err := credentials.ParseKind(kind)
	if err != nil {
		return "", invalid(err.Error(), nil)
	}
	if _, err := credentials.Resolve(k, raw); err != nil {
		return "", &ServiceError{Code: constants.ErrCodeCredentialsInvalid, Message: "invalid credentials", Err: err}
	}
	return k, nil
}

func (s *ConnectionService) checkSupplier(ctx context.Context, id *string) error {
	if id == nil || *id == "" {
		return nil
	}
	sup, err := s.repo.GetSupplier(ctx, *id)
	if err != nil {
		return storage("failed to fetch supplier", err)
	}
	if sup == nil {
		return notFound("supplier", *id)
	}
	return nil
}

// view decodes the stored credentials for display only; an unreadable blob
// shows as empty
func (s *ConnectionService) view(conn *gormModels.Connection) *dtos.ConnectionView {
	raw, err := s.vault.Unseal(conn.Credentials)
	if err != nil {
		raw = map[string]any{}
	}
	return &dtos.ConnectionView{
		ID:              conn.ID,
		Name:            conn.Name,
		Kind:            conn.Kind,
		SupplierID:      conn.SupplierID,
		IsActive:        conn.IsActive,
		Credentials:     credentials.Sanitize(raw),
		LastTested:      conn.LastTested,
		LastTestSuccess: conn.LastTestSuccess,
		LastTestMessage: conn.LastTestMessage,
		CreatedAt:       conn.CreatedAt,
		UpdatedAt:       conn.UpdatedAt,
	}
}

func (s *ConnectionService) observe(kind string, result *connectors.TestResult) {
	if s.metrics == nil {
		return
	}
	outcome := "success"
	if !result.Success {
		outcome = "failure"
	}
	s.metrics.ConnectionTestsTotal.WithLabelValues(kind, outcome).Inc()
}

// mergeCredentials overlays update onto current, keeping current values where
// update sends the mask token
func mergeCredentials(current, update map[string]any) map[string]any {
	if update == nil {
		return current
	}
	out := make(map[string]any, len(update))
	for k, v := range update {
		if str, ok := v.(string); ok && str == constants.MaskToken {
			if old, exists := current[k]; exists {
				out[k] = old
			}
			continue
		}
		out[k] = v
	}
	return out
}
