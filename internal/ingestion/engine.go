// Package ingestion runs one supplier feed through fetch, parse, mapping,
// validation and catalog upsert, tracking the run on an Import row.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"mdm-platform/feedhub/internal/config"
	"mdm-platform/feedhub/internal/connectors"
	"mdm-platform/feedhub/internal/constants"
	"mdm-platform/feedhub/internal/credentials"
	"mdm-platform/feedhub/internal/logging"
	"mdm-platform/feedhub/internal/mapping"
	"mdm-platform/feedhub/internal/metrics"
	gormModels "mdm-platform/feedhub/internal/models/gorm"
	"mdm-platform/feedhub/internal/parser"
)

// Trigger sources recorded on each import
const (
	TriggerAPI      = "api"
	TriggerSchedule = "schedule"
	TriggerCLI      = "cli"
	TriggerUpload   = "upload"
)

// RunOptions override the data source's processing flags for one run
type RunOptions struct {
	DeleteAfterProcessing *bool `json:"deleteAfterProcessing,omitempty"`
	SkipExistingProducts  *bool `json:"skipExistingProducts,omitempty"`
}

// Request starts an ingestion run. MappingTemplateID and Path fall back to
// the data source's defaults when empty.
type Request struct {
	DataSourceID      string     `json:"dataSourceId"`
	MappingTemplateID string     `json:"mappingTemplateId,omitempty"`
	Path              string     `json:"path,omitempty"`
	Options           RunOptions `json:"options"`
	TriggeredBy       string     `json:"triggeredBy,omitempty"`
}

// ImportResult summarizes a finished run. ImportID is empty only when the
// data source could not be found.
type ImportResult struct {
	ImportID       string                   `json:"importId,omitempty"`
	Status         constants.ImportStatus   `json:"status"`
	Code           string                   `json:"code,omitempty"`
	Message        string                   `json:"message,omitempty"`
	Filename       string                   `json:"filename,omitempty"`
	RecordCount    int                      `json:"recordCount"`
	ProcessedCount int                      `json:"processedCount"`
	ErrorCount     int                      `json:"errorCount"`
	CreatedCount   int                      `json:"createdCount"`
	UpdatedCount   int                      `json:"updatedCount"`
	SkippedCount   int                      `json:"skippedCount"`
	Errors         []gormModels.ImportError `json:"errors,omitempty"`
	Warnings       []gormModels.ImportError `json:"warnings,omitempty"`
}

func (r *ImportResult) Success() bool {
	return r.Status == constants.ImportSuccess
}

// Deps are the collaborators of an Engine. Inventory, Archive, Events and
// Metrics are optional.
type Deps struct {
	Configs   ConfigStore
	Imports   ImportStore
	Catalog   CatalogStore
	Inventory InventorySink
	Archive   Archiver
	Events    EventPublisher
	Vault     *credentials.Store
	Connect   connectors.Factory
	Metrics   *metrics.MetricsRegistry
}

// Engine executes ingestion runs. Runs are independent; an Engine may serve
// concurrent requests.
type Engine struct {
	configs   ConfigStore
	imports   ImportStore
	catalog   CatalogStore
	inventory InventorySink
	archive   Archiver
	events    EventPublisher
	vault     *credentials.Store
	connect   connectors.Factory
	metrics   *metrics.MetricsRegistry
	cfg       config.IngestionConfig
	now       func() time.Time
}

func NewEngine(deps Deps, cfg config.IngestionConfig) *Engine {
	if deps.Connect == nil {
		deps.Connect = connectors.New
	}
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = 50
	}
	if cfg.MaxReportedErrors <= 0 {
		cfg.MaxReportedErrors = 200
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 30 * time.Second
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 5 * time.Minute
	}

	return &Engine{
		configs:   deps.Configs,
		imports:   deps.Imports,
		catalog:   deps.Catalog,
		inventory: deps.Inventory,
		archive:   deps.Archive,
		events:    deps.Events,
		vault:     deps.Vault,
		connect:   deps.Connect,
		metrics:   deps.Metrics,
		cfg:       cfg,
		now:       time.Now,
	}
}

// run is the mutable state of one RunIngestion call
type run struct {
	req          Request
	ds           *gormModels.DataSource
	conn         *gormModels.Connection
	tpl          *mapping.Template
	creds        credentials.Credentials
	supplierID   string
	deleteAfter  bool
	skipExisting bool
	remotePath   string
	imp          *gormModels.Import
	stored       bool
	log          *zap.SugaredLogger
}

func (r *run) addError(max int, e gormModels.ImportError) {
	if len(r.imp.ImportErrors) < max {
		r.imp.ImportErrors = append(r.imp.ImportErrors, e)
	}
}

func (r *run) addWarning(max int, e gormModels.ImportError) {
	if len(r.imp.Warnings) < max {
		r.imp.Warnings = append(r.imp.Warnings, e)
	}
}

// RunIngestion executes one run to a terminal status. It never panics and
// never returns a nil result; failures are reported on the result and on the
// Import row.
func (e *Engine) RunIngestion(ctx context.Context, req Request) (result *ImportResult) {
	started := e.now()
	if req.TriggeredBy == "" {
		req.TriggeredBy = TriggerAPI
	}
	r := &run{req: req, log: logging.Component("ingestion").With("data_source_id", req.DataSourceID)}

	defer func() {
		if p := recover(); p != nil {
			r.log.Errorw("Ingestion run panicked", "panic", fmt.Sprint(p))
			result = e.fail(ctx, r, &RunError{Code: constants.ErrCodeInternal, Message: fmt.Sprintf("unexpected failure: %v", p)})
		}
		e.observe(ctx, r, result, started)
	}()

	if err := e.resolve(ctx, r); err != nil {
		return e.fail(ctx, r, err)
	}

	r.log = logging.WithImport("", r.ds.ID, r.supplierID)
	if err := e.begin(ctx, r); err != nil {
		return e.fail(ctx, r, err)
	}
	r.log = logging.WithImport(r.imp.ID, r.ds.ID, r.supplierID)
	r.log.Infow("Ingestion started", "triggered_by", req.TriggeredBy, "path", req.Path)

	spool, err := e.fetch(ctx, r)
	if err != nil {
		return e.fail(ctx, r, err)
	}
	defer spool.remove()

	table, err := e.parse(r, spool)
	if err != nil {
		return e.fail(ctx, r, err)
	}

	// record writes and finalization ignore caller cancellation
	rowCtx := context.WithoutCancel(ctx)
	r.imp.RecordCount = table.Len()
	e.upsertAll(rowCtx, r, table.Rows)

	return e.complete(rowCtx, r)
}

// resolve loads and checks every piece of configuration before any I/O
func (e *Engine) resolve(ctx context.Context, r *run) error {
	ds, err := e.configs.GetDataSource(ctx, r.req.DataSourceID)
	if err != nil {
		return storageError("failed to load data source", err)
	}
	if ds == nil {
		return configError(constants.ErrCodeConfigNotFound, "data source not found: "+r.req.DataSourceID)
	}
	r.ds = ds

	r.imp = &gormModels.Import{
		Source:       ds.Kind,
		DataSourceID: &ds.ID,
		Status:       constants.ImportPending,
		TriggeredBy:  r.req.TriggeredBy,
		Filename:     r.req.Path,
	}

	if !ds.Active {
		return configError(constants.ErrCodeConfigNotActive, "data source is not active")
	}
	if ds.ConnectionID == nil || *ds.ConnectionID == "" {
		return configError(constants.ErrCodeConfigMalformed, "data source has no connection")
	}

	conn, err := e.configs.GetConnection(ctx, *ds.ConnectionID)
	if err != nil {
		return storageError("failed to load connection", err)
	}
	if conn == nil {
		return configError(constants.ErrCodeConfigNotFound, "connection not found: "+*ds.ConnectionID)
	}
	if !conn.IsActive {
		return configError(constants.ErrCodeConfigNotActive, "connection is not active")
	}
	r.conn = conn

	switch {
	case ds.SupplierID != nil && *ds.SupplierID != "":
		r.supplierID = *ds.SupplierID
	case conn.SupplierID != nil && *conn.SupplierID != "":
		r.supplierID = *conn.SupplierID
	default:
		return configError(constants.ErrCodeSupplierRequired, "")
	}
	r.imp.SupplierID = &r.supplierID

	tplID := r.req.MappingTemplateID
	if tplID == "" && ds.MappingTemplateID != nil {
		tplID = *ds.MappingTemplateID
	}
	if tplID == "" {
		return configError(constants.ErrCodeTemplateNotFound, "no mapping template given and the data source has no default")
	}
	r.imp.MappingTemplateID = &tplID

	stored, err := e.configs.GetTemplate(ctx, tplID)
	if err != nil {
		return storageError("failed to load mapping template", err)
	}
	if stored == nil {
		return configError(constants.ErrCodeTemplateNotFound, "mapping template not found: "+tplID)
	}
	if !stored.Active {
		return configError(constants.ErrCodeConfigNotActive, "mapping template is not active")
	}
	tpl, err := CompileTemplate(stored)
	if err != nil {
		return &RunError{Code: constants.ErrCodeTemplateInvalid, Message: "mapping template is invalid", Err: err}
	}
	r.tpl = tpl

	creds, err := e.openCredentials(conn, ds)
	if err != nil {
		return err
	}
	r.creds = creds

	r.deleteAfter = ds.Config.DeleteAfterProcessing
	if r.req.Options.DeleteAfterProcessing != nil {
		r.deleteAfter = *r.req.Options.DeleteAfterProcessing
	}
	r.skipExisting = ds.Config.SkipExistingProducts
	if r.req.Options.SkipExistingProducts != nil {
		r.skipExisting = *r.req.Options.SkipExistingProducts
	}
	return nil
}

// openCredentials decrypts the connection's credentials and lets the data
// source override the non-secret location fields
func (e *Engine) openCredentials(conn *gormModels.Connection, ds *gormModels.DataSource) (credentials.Credentials, error) {
	raw, err := e.vault.Unseal(conn.Credentials)
	if err != nil {
		return nil, &RunError{Code: constants.ErrCodeCredentialsUnreadable, Message: constants.GetErrorMessage(constants.ErrCodeCredentialsUnreadable), Err: err}
	}

	kind, err := credentials.ParseKind(conn.Kind)
	if err != nil {
		return nil, &RunError{Code: constants.ErrCodeConfigMalformed, Message: "connection kind is invalid", Err: err}
	}

	if kind == credentials.KindAPI {
		if ds.Config.BaseURL != "" {
			raw["baseUrl"] = ds.Config.BaseURL
		}
		if ds.Config.Endpoint != "" {
			raw["endpoint"] = ds.Config.Endpoint
		}
		if ds.Config.RecordsPath != "" {
			raw["recordsPath"] = ds.Config.RecordsPath
		}
	}

	creds, err := credentials.Resolve(kind, raw)
	if err != nil {
		return nil, &RunError{Code: constants.ErrCodeCredentialsInvalid, Message: "connection credentials are invalid", Err: err}
	}
	return creds, nil
}

// CompileTemplate turns a stored template into an executable one
func CompileTemplate(stored *gormModels.MappingTemplate) (*mapping.Template, error) {
	mappings, err := mapping.NormalizeFieldMappings(stored.FieldMappings)
	if err != nil {
		return nil, err
	}
	rules, err := mapping.ParseRules(stored.ValidationRules)
	if err != nil {
		return nil, err
	}
	return mapping.NewTemplate(stored.ID, stored.Name, mappings, rules, stored.KeepUnmapped)
}

// begin persists the Import as pending and moves it to processing
func (e *Engine) begin(ctx context.Context, r *run) error {
	if err := e.imports.Create(ctx, r.imp); err != nil {
		return storageError("failed to create import", err)
	}
	r.stored = true

	now := e.now()
	r.imp.Status = constants.ImportProcessing
	r.imp.StartedAt = &now
	if err := e.imports.Update(ctx, r.imp); err != nil {
		return storageError("failed to start import", err)
	}
	return nil
}

func (e *Engine) parse(r *run, s *spooled) (*parser.Table, error) {
	opts := parser.DefaultOptions()
	cfg := r.ds.Config
	if cfg.HasHeader != nil {
		opts.HasHeader = *cfg.HasHeader
	}
	if cfg.Delimiter != "" {
		opts.Delimiter = cfg.Delimiter
	}
	if cfg.Encoding != "" {
		opts.Encoding = cfg.Encoding
	}
	opts.Sheet = cfg.SheetName
	if r.creds.Kind() != credentials.KindAPI {
		// api payloads are already normalized to a record array
		opts.RecordsPath = cfg.RecordsPath
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, &RunError{Code: constants.ErrCodeParseError, Message: "failed to reopen fetched file", Err: err}
	}
	defer f.Close()

	table, err := parser.Parse(f, s.format, opts)
	if err != nil {
		code := constants.ErrCodeParseError
		if errors.Is(err, parser.ErrUnsupportedFormat) || errors.Is(err, parser.ErrLegacyExcel) {
			code = constants.ErrCodeUnsupportedFormat
		}
		return nil, &RunError{Code: code, Message: "failed to parse " + s.name, Err: err}
	}
	return table, nil
}

// saveProgress persists counters mid-run. Failures are logged, not fatal.
func (e *Engine) saveProgress(ctx context.Context, r *run) {
	if err := e.imports.Update(context.WithoutCancel(ctx), r.imp); err != nil {
		r.log.Warnw("Failed to save import progress", "error", err.Error(), "processed", r.imp.ProcessedCount)
	}
}

// complete finalizes a run that reached the end of its records
func (e *Engine) complete(ctx context.Context, r *run) *ImportResult {
	status := constants.ImportError
	if r.imp.ProcessedCount > 0 || r.imp.RecordCount == 0 {
		status = constants.ImportSuccess
	}

	if status == constants.ImportSuccess && r.deleteAfter && r.remotePath != "" {
		if err := e.deleteRemote(ctx, r); err != nil {
			r.log.Warnw("Failed to delete processed remote file", "path", r.remotePath, "error", err.Error())
			r.addWarning(e.cfg.MaxReportedErrors, gormModels.ImportError{
				Code:    constants.ErrCodeRemoteDelete,
				Message: fmt.Sprintf("failed to delete %s: %v", r.remotePath, err),
			})
		}
	}

	res := e.finalize(ctx, r, status)
	if status == constants.ImportError {
		res.Code = constants.ErrCodeRecordInvalid
		res.Message = "no record could be processed"
	}
	return res
}

// fail finalizes the run with one top-level error
func (e *Engine) fail(ctx context.Context, r *run, err error) *ImportResult {
	code := CodeOf(err)
	if code == "" {
		code = constants.ErrCodeInternal
	}
	r.log.Warnw("Ingestion failed", "code", code, "error", err.Error())

	if r.imp == nil {
		// the data source itself is unknown; there is nothing to attach a row to
		return &ImportResult{
			Status:     constants.ImportError,
			Code:       code,
			Message:    err.Error(),
			ErrorCount: 1,
			Errors:     []gormModels.ImportError{{Code: code, Message: err.Error()}},
		}
	}

	r.imp.ErrorCount++
	r.addError(e.cfg.MaxReportedErrors, gormModels.ImportError{Code: code, Message: err.Error()})

	res := e.finalize(ctx, r, constants.ImportError)
	res.Code = code
	res.Message = err.Error()
	return res
}

// finalize writes the terminal status, even when ctx is already done. An
// Import whose creation failed is reported on the result only.
func (e *Engine) finalize(ctx context.Context, r *run, status constants.ImportStatus) *ImportResult {
	ctx = context.WithoutCancel(ctx)
	now := e.now()
	r.imp.Status = status
	r.imp.CompletedAt = &now

	var writeErr error
	if r.stored {
		writeErr = e.imports.Update(ctx, r.imp)
	} else {
		writeErr = e.imports.Create(ctx, r.imp)
		r.stored = writeErr == nil
	}
	if writeErr != nil {
		r.log.Errorw("Failed to finalize import", "status", status, "error", writeErr.Error())
	}

	return &ImportResult{
		ImportID:       r.imp.ID,
		Status:         status,
		Filename:       r.imp.Filename,
		RecordCount:    r.imp.RecordCount,
		ProcessedCount: r.imp.ProcessedCount,
		ErrorCount:     r.imp.ErrorCount,
		CreatedCount:   r.imp.CreatedCount,
		UpdatedCount:   r.imp.UpdatedCount,
		SkippedCount:   r.imp.SkippedCount,
		Errors:         r.imp.ImportErrors,
		Warnings:       r.imp.Warnings,
	}
}

// observe records metrics and publishes the completion event
func (e *Engine) observe(ctx context.Context, r *run, res *ImportResult, started time.Time) {
	if res == nil {
		return
	}

	kind := "unknown"
	if r.ds != nil {
		kind = r.ds.Kind
	}
	if e.metrics != nil {
		e.metrics.IngestionRunsTotal.WithLabelValues(string(res.Status), r.req.TriggeredBy).Inc()
		e.metrics.IngestionRunDuration.WithLabelValues(kind).Observe(time.Since(started).Seconds())
	}

	r.log.Infow("Ingestion finished",
		"status", res.Status,
		"records", res.RecordCount,
		"processed", res.ProcessedCount,
		"errors", res.ErrorCount,
		"duration", time.Since(started).String(),
	)

	if e.events == nil || res.ImportID == "" {
		return
	}
	event := ImportEvent{
		ImportID:       res.ImportID,
		DataSourceID:   r.req.DataSourceID,
		SupplierID:     r.supplierID,
		Status:         res.Status,
		RecordCount:    res.RecordCount,
		ProcessedCount: res.ProcessedCount,
		ErrorCount:     res.ErrorCount,
		TriggeredBy:    r.req.TriggeredBy,
		CompletedAt:    e.now(),
	}
	if err := e.events.PublishImportCompleted(context.WithoutCancel(ctx), event); err != nil {
		r.log.Warnw("Failed to publish import event", "error", err.Error())
	}
}
