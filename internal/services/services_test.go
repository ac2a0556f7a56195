package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"mdm-platform/feedhub/internal/common"
	"mdm-platform/feedhub/internal/config"
	"mdm-platform/feedhub/internal/connectors"
	"mdm-platform/feedhub/internal/constants"
	"mdm-platform/feedhub/internal/credentials"
	"mdm-platform/feedhub/internal/db/repositories"
	"mdm-platform/feedhub/internal/ingestion"
	"mdm-platform/feedhub/internal/logging"
	"mdm-platform/feedhub/internal/metrics"
	"mdm-platform/feedhub/internal/models/dtos"
	gormModels "mdm-platform/feedhub/internal/models/gorm"
	"mdm-platform/feedhub/internal/scheduler"
)

// fakeRemote serves files from a map; a non-nil connectErr fails every
// connection attempt
type fakeRemote struct {
	files      map[string]string
	connectErr error
}

func (f *fakeRemote) Kind() credentials.Kind { return credentials.KindSFTP }

func (f *fakeRemote) Connect(ctx context.Context) error { return f.connectErr }

func (f *fakeRemote) Probe(ctx context.Context) (map[string]any, error) {
	return map[string]any{"files": len(f.files)}, nil
}

func (f *fakeRemote) List(ctx context.Context, dir string) ([]connectors.Entry, error) {
	var out []connectors.Entry
	for p, body := range f.files {
		if path.Dir(p) == strings.TrimRight(dir, "/") {
			out = append(out, connectors.Entry{Name: path.Base(p), Path: p, IsFile: true, Size: int64(len(body))})
		}
	}
	if len(out) == 0 {
		return nil, connectors.ErrNotFound
	}
	return out, nil
}

func (f *fakeRemote) Stat(ctx context.Context, p string) (*connectors.Entry, error) {
	if body, ok := f.files[p]; ok {
		return &connectors.Entry{Name: path.Base(p), Path: p, IsFile: true, Size: int64(len(body))}, nil
	}
	for name := range f.files {
		if strings.HasPrefix(name, strings.TrimRight(p, "/")+"/") {
			return &connectors.Entry{Name: path.Base(p), Path: p}, nil
		}
	}
	return nil, connectors.ErrNotFound
}

func (f *fakeRemote) Fetch(ctx context.Context, p string) (*connectors.Payload, error) {
	body, ok := f.files[p]
	if !ok {
		return nil, connectors.ErrNotFound
	}
	return &connectors.Payload{
		Name:   path.Base(p),
		Format: connectors.FormatOf(p),
		Size:   int64(len(body)),
		Body:   io.NopCloser(strings.NewReader(body)),
	}, nil
}

func (f *fakeRemote) Delete(ctx context.Context, p string) error { return connectors.ErrUnsupported }

func (f *fakeRemote) Close() error { return nil }

type testEnv struct {
	db          *gorm.DB
	remote      *fakeRemote
	vault       *credentials.Store
	conns       *repositories.ConnectionRepo
	sources     *repositories.DataSourceRepo
	schedules   *repositories.ScheduleRepo
	configs     *CachedConfigStore
	connections *ConnectionService
	dataSources *DataSourceService
	templates   *MappingTemplateService
	scheduleSvc *ScheduleService
	testPulls   *TestPullService
	sched       *scheduler.Scheduler
	now         time.Time
}

var sftpCreds = map[string]any{"host": "feeds.example.com", "username": "acme", "password": "s3cret"}

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(gormModels.AllModels()...); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logging.UseLogger(zap.NewNop())

	vault, err := credentials.NewStore("test-secret")
	if err != nil {
		t.Fatalf("Failed to create credential store: %v", err)
	}

	env := &testEnv{
		db:     setupTestDB(t),
		remote: &fakeRemote{files: map[string]string{"/feeds/products.csv": "Item,Title,Price\nA1,Widget,9.99\nA2,Gadget,4.50\n"}},
		vault:  vault,
		now:    time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC),
	}
	env.conns = repositories.NewConnectionRepo(env.db)
	env.sources = repositories.NewDataSourceRepo(env.db)
	env.schedules = repositories.NewScheduleRepo(env.db)

	m := metrics.NewMetricsRegistryWith(prometheus.NewRegistry())
	cache := common.NewCacheService(time.Minute, time.Minute)
	t.Cleanup(func() { cache.Close() })

	sampler := ingestion.NewSampler(func(creds credentials.Credentials, opts connectors.Options) (connectors.Connector, error) {
		return env.remote, nil
	}, config.IngestionConfig{})

	env.configs = NewCachedConfigStore(env.sources, env.conns, cache, m)
	env.connections = NewConnectionService(env.conns, vault, sampler, m, time.Second)
	env.dataSources = NewDataSourceService(env.sources, env.conns, env.configs)
	env.templates = NewMappingTemplateService(env.sources, env.configs)
	env.sched = scheduler.New(env.schedules, scheduler.Options{
		Metrics: m,
		Now:     func() time.Time { return env.now },
	})
	env.scheduleSvc = NewScheduleService(env.schedules, env.sources, env.sched)
	env.testPulls = NewTestPullService(env.connections, env.templates, env.schedules)
	return env
}

func (env *testEnv) createConnection(t *testing.T) *dtos.ConnectionView {
	t.Helper()
	view, err := env.connections.Create(context.Background(), dtos.ConnectionRequest{
		Name:        "acme-sftp",
		Kind:        "sftp",
		Credentials: copyMap(sftpCreds),
	})
	if err != nil {
		t.Fatalf("Failed to create connection: %v", err)
	}
	return view
}

func (env *testEnv) createDataSource(t *testing.T, connID string) *gormModels.DataSource {
	t.Helper()
	ds, err := env.dataSources.Create(context.Background(), dtos.DataSourceRequest{
		Name:         "acme products",
		ConnectionID: &connID,
		Config:       gormModels.DataSourceConfig{RemoteDirectory: "/feeds"},
	})
	if err != nil {
		t.Fatalf("Failed to create data source: %v", err)
	}
	return ds
}

func copyMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func TestConnectionService_CreateSanitizes(t *testing.T) {
	env := newTestEnv(t)
	view := env.createConnection(t)

	if view.Credentials["password"] != constants.MaskToken {
		t.Errorf("Expected masked password, got %v", view.Credentials["password"])
	}
	if view.Credentials["host"] != "feeds.example.com" {
		t.Errorf("Expected host to be visible, got %v", view.Credentials["host"])
	}
	if !view.IsActive {
		t.Error("Expected new connection to be active")
	}

	stored, err := env.conns.GetByID(context.Background(), view.ID)
	if err != nil || stored == nil {
		t.Fatalf("Failed to load stored connection: %v", err)
	}
	if strings.Contains(stored.Credentials, "s3cret") {
		t.Error("Expected stored credentials to be encrypted")
	}
}

func TestConnectionService_CreateRejectsIncompleteCredentials(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.connections.Create(context.Background(), dtos.ConnectionRequest{
		Name:        "broken",
		Kind:        "sftp",
		Credentials: map[string]any{"host": "feeds.example.com"},
	})
	if CodeOf(err) != constants.ErrCodeCredentialsInvalid {
		t.Errorf("Expected %s, got %v", constants.ErrCodeCredentialsInvalid, err)
	}

	_, err = env.connections.Create(context.Background(), dtos.ConnectionRequest{Name: "x", Kind: "gopher"})
	if CodeOf(err) != constants.ErrCodeConfigMalformed {
		t.Errorf("Expected %s, got %v", constants.ErrCodeConfigMalformed, err)
	}
}

func TestConnectionService_UpdateKeepsMaskedSecrets(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	view := env.createConnection(t)

	// send the sanitized view back with a changed host
	creds := copyMap(view.Credentials)
	creds["host"] = "sftp.acme.test"
	if _, err := env.connections.Update(ctx, view.ID, dtos.ConnectionRequest{Credentials: creds}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	stored, _ := env.conns.GetByID(ctx, view.ID)
	raw, err := env.vault.Unseal(stored.Credentials)
	if err != nil {
		t.Fatalf("Failed to unseal: %v", err)
	}
	if raw["password"] != "s3cret" {
		t.Errorf("Expected password to survive the update, got %v", raw["password"])
	}
	if raw["host"] != "sftp.acme.test" {
		t.Errorf("Expected host sftp.acme.test, got %v", raw["host"])
	}
}

func TestConnectionService_TestRecordsOutcome(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	view := env.createConnection(t)

	result, err := env.connections.Test(ctx, view.ID)
	if err != nil {
		t.Fatalf("Test failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("Expected success, got %s", result.Message)
	}

	env.remote.connectErr = errors.New("connection refused")
	result, err = env.connections.Test(ctx, view.ID)
	if err != nil {
		t.Fatalf("Test failed: %v", err)
	}
	if result.Success {
		t.Error("Expected failure when the remote refuses connections")
	}

	stored, _ := env.conns.GetByID(ctx, view.ID)
	if stored.LastTested == nil || stored.LastTestSuccess == nil || *stored.LastTestSuccess {
		t.Errorf("Expected a recorded failed test, got %+v", stored)
	}

	ok, failed, err := env.connections.CheckAll(ctx)
	if err != nil {
		t.Fatalf("CheckAll failed: %v", err)
	}
	if ok != 0 || failed != 1 {
		t.Errorf("Expected 0 ok and 1 failed, got %d and %d", ok, failed)
	}
}

func TestConnectionService_UnknownID(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.connections.Test(context.Background(), "missing")
	if CodeOf(err) != constants.ErrCodeNotFound {
		t.Errorf("Expected %s, got %v", constants.ErrCodeNotFound, err)
	}
}

func TestDataSourceService_DefaultsKindFromConnection(t *testing.T) {
	env := newTestEnv(t)
	conn := env.createConnection(t)
	ds := env.createDataSource(t, conn.ID)

	if ds.Kind != "sftp" {
		t.Errorf("Expected kind sftp, got %s", ds.Kind)
	}
	if !ds.Active {
		t.Error("Expected new data source to be active")
	}

	missing := "missing"
	_, err := env.dataSources.Create(context.Background(), dtos.DataSourceRequest{Name: "orphan", ConnectionID: &missing})
	if CodeOf(err) != constants.ErrCodeNotFound {
		t.Errorf("Expected %s, got %v", constants.ErrCodeNotFound, err)
	}

	_, err = env.dataSources.Create(context.Background(), dtos.DataSourceRequest{
		Name:   "bad encoding",
		Kind:   "api",
		Config: gormModels.DataSourceConfig{Encoding: "klingon"},
	})
	if CodeOf(err) != constants.ErrCodeConfigMalformed {
		t.Errorf("Expected %s, got %v", constants.ErrCodeConfigMalformed, err)
	}
}

func TestDataSourceService_UpdateInvalidatesCache(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	conn := env.createConnection(t)
	ds := env.createDataSource(t, conn.ID)

	cached, err := env.configs.GetDataSource(ctx, ds.ID)
	if err != nil || cached == nil {
		t.Fatalf("Failed to load data source: %v", err)
	}

	if _, err := env.dataSources.Update(ctx, ds.ID, dtos.DataSourceRequest{
		Name:         "renamed",
		ConnectionID: &conn.ID,
		Config:       ds.Config,
	}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	fresh, err := env.configs.GetDataSource(ctx, ds.ID)
	if err != nil {
		t.Fatalf("Failed to reload data source: %v", err)
	}
	if fresh.Name != "renamed" {
		t.Errorf("Expected renamed, got %s", fresh.Name)
	}
}

func TestMappingTemplateService_MigratesFlatMappings(t *testing.T) {
	env := newTestEnv(t)

	tpl, err := env.templates.Create(context.Background(), dtos.MappingTemplateRequest{
		Name:            "legacy",
		SourceKind:      "SFTP",
		FieldMappings:   json.RawMessage(`{"Title":"name","Item":"sku"}`),
		ValidationRules: json.RawMessage(`[{"field":"sku","type":"required"}]`),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	want := `[{"sourceField":"Item","targetField":"sku"},{"sourceField":"Title","targetField":"name"}]`
	if string(tpl.FieldMappings) != want {
		t.Errorf("Expected %s, got %s", want, tpl.FieldMappings)
	}
	if tpl.SourceKind != "sftp" {
		t.Errorf("Expected lowercase source kind, got %s", tpl.SourceKind)
	}

	_, err = env.templates.Create(context.Background(), dtos.MappingTemplateRequest{
		Name:          "broken",
		FieldMappings: json.RawMessage(`"sku"`),
	})
	if CodeOf(err) != constants.ErrCodeTemplateInvalid {
		t.Errorf("Expected %s, got %v", constants.ErrCodeTemplateInvalid, err)
	}
}

func TestScheduleService_CreateLoadsJob(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	conn := env.createConnection(t)
	ds := env.createDataSource(t, conn.ID)

	row, err := env.scheduleSvc.Create(ctx, dtos.ScheduleRequest{
		DataSourceID: ds.ID,
		Frequency:    "Daily",
		Hour:         9,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	want := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	if row.NextRun == nil || !row.NextRun.Equal(want) {
		t.Errorf("Expected next run %v, got %v", want, row.NextRun)
	}

	job, ok := env.sched.Get(row.ID)
	if !ok {
		t.Fatal("Expected the schedule to be in the job table")
	}
	if job.DataSourceID != ds.ID {
		t.Errorf("Expected data source %s, got %s", ds.ID, job.DataSourceID)
	}

	inactive := false
	if _, err := env.scheduleSvc.Update(ctx, row.ID, dtos.ScheduleRequest{
		DataSourceID: ds.ID,
		Frequency:    "daily",
		Hour:         9,
		Active:       &inactive,
	}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if _, ok := env.sched.Get(row.ID); ok {
		t.Error("Expected an inactive schedule to leave the job table")
	}

	if err := env.scheduleSvc.Delete(ctx, row.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := env.scheduleSvc.Get(ctx, row.ID); CodeOf(err) != constants.ErrCodeNotFound {
		t.Errorf("Expected %s after delete, got %v", constants.ErrCodeNotFound, err)
	}
}

func TestScheduleService_RejectsInvalidRule(t *testing.T) {
	env := newTestEnv(t)
	conn := env.createConnection(t)
	ds := env.createDataSource(t, conn.ID)

	_, err := env.scheduleSvc.Create(context.Background(), dtos.ScheduleRequest{
		DataSourceID: ds.ID,
		Frequency:    "daily",
		Hour:         25,
	})
	if CodeOf(err) != constants.ErrCodeScheduleInvalid {
		t.Errorf("Expected %s, got %v", constants.ErrCodeScheduleInvalid, err)
	}

	rows, _ := env.scheduleSvc.List(context.Background(), false)
	if len(rows) != 0 {
		t.Errorf("Expected nothing persisted, got %d rows", len(rows))
	}
}

func TestScheduleService_TriggerUnknownJob(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.scheduleSvc.Trigger(context.Background(), "missing")
	if CodeOf(err) != constants.ErrCodeNotFound {
		t.Errorf("Expected %s, got %v", constants.ErrCodeNotFound, err)
	}
}

func TestTestPullService_SuggestsAndLogs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	conn := env.createConnection(t)

	if _, err := env.templates.Create(ctx, dtos.MappingTemplateRequest{
		Name:          "acme",
		SourceKind:    "sftp",
		FieldMappings: json.RawMessage(`[{"sourceField":"Item","targetField":"sku"},{"sourceField":"Title","targetField":"name"}]`),
	}); err != nil {
		t.Fatalf("Failed to create template: %v", err)
	}

	resp, err := env.testPulls.Run(ctx, conn.ID, dtos.TestPullRequest{Path: "/feeds/products.csv"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !resp.Sample.Success {
		t.Fatalf("Expected a successful sample, got %s", resp.Sample.Message)
	}
	if len(resp.Sample.Records) != 2 {
		t.Errorf("Expected 2 records, got %d", len(resp.Sample.Records))
	}
	if resp.MappingSuggestion == nil || resp.MappingSuggestion.TemplateName != "acme" {
		t.Errorf("Expected the acme template to be suggested, got %+v", resp.MappingSuggestion)
	}
	if resp.MappingConfidence <= 0 {
		t.Errorf("Expected a positive confidence, got %f", resp.MappingConfidence)
	}
	if resp.LogID == "" {
		t.Error("Expected the pull to be logged")
	}

	logs, err := env.testPulls.Logs(ctx, conn.ID, repositories.ListOptions{})
	if err != nil {
		t.Fatalf("Logs failed: %v", err)
	}
	if len(logs) != 1 || logs[0].RecordCount != 2 {
		t.Errorf("Expected one log with 2 records, got %+v", logs)
	}
}

func TestTestPullService_FailedSampleIsLogged(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	conn := env.createConnection(t)

	resp, err := env.testPulls.Run(ctx, conn.ID, dtos.TestPullRequest{Path: "/nowhere/feed.csv"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if resp.Sample.Success {
		t.Error("Expected the sample to fail for a missing path")
	}
	if resp.MappingSuggestion != nil {
		t.Error("Expected no suggestion without records")
	}

	logs, _ := env.testPulls.Logs(ctx, conn.ID, repositories.ListOptions{})
	if len(logs) != 1 || logs[0].Success {
		t.Errorf("Expected one failed log, got %+v", logs)
	}
}

func TestSupplierService_CreateValidates(t *testing.T) {
	env := newTestEnv(t)
	svc := NewSupplierService(env.conns)
	ctx := context.Background()

	sup, err := svc.Create(ctx, "  Acme Wholesale ", "feeds@acme.example", "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if sup.Name != "Acme Wholesale" || sup.Status != constants.SupplierPending {
		t.Errorf("Expected trimmed name and pending status, got %q %q", sup.Name, sup.Status)
	}

	if _, err := svc.Create(ctx, "Beta", "", "ACTIVE"); err != nil {
		t.Errorf("Expected status case to be ignored, got %v", err)
	}

	for _, tc := range []struct{ name, email, status string }{
		{"", "", ""},
		{"Gamma", "not-an-email", ""},
		{"Gamma", "", "archived"},
	} {
		if _, err := svc.Create(ctx, tc.name, tc.email, tc.status); CodeOf(err) != constants.ErrCodeConfigMalformed {
			t.Errorf("Expected CONFIG_MALFORMED for %+v, got %v", tc, err)
		}
	}

	list, err := svc.List(ctx, repositories.ListOptions{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 || list[0].Name != "Acme Wholesale" {
		t.Errorf("Expected 2 suppliers ordered by name, got %+v", list)
	}

	if _, err := svc.Get(ctx, "missing"); CodeOf(err) != constants.ErrCodeNotFound {
		t.Errorf("Expected NOT_FOUND, got %v", err)
	}
}

func TestSupplierService_UpdateAndDelete(t *testing.T) {
	env := newTestEnv(t)
	svc := NewSupplierService(env.conns)
	ctx := context.Background()

	sup, err := svc.Create(ctx, "Acme Wholesale", "feeds@acme.example", "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	updated, err := svc.Update(ctx, sup.ID, dtos.SupplierRequest{Status: "active"})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Status != constants.SupplierActive || updated.Name != "Acme Wholesale" {
		t.Errorf("Expected only the status to change, got %+v", updated)
	}
	if _, err := svc.Update(ctx, sup.ID, dtos.SupplierRequest{ContactEmail: "nope"}); CodeOf(err) != constants.ErrCodeConfigMalformed {
		t.Errorf("Expected CONFIG_MALFORMED for a bad email, got %v", err)
	}
	if _, err := svc.Update(ctx, "missing", dtos.SupplierRequest{Name: "x"}); CodeOf(err) != constants.ErrCodeNotFound {
		t.Errorf("Expected NOT_FOUND, got %v", err)
	}

	if _, err := env.connections.Create(ctx, dtos.ConnectionRequest{
		Name:        "acme-sftp",
		Kind:        "sftp",
		SupplierID:  &sup.ID,
		Credentials: copyMap(sftpCreds),
	}); err != nil {
		t.Fatalf("Failed to create connection: %v", err)
	}
	if err := svc.Delete(ctx, sup.ID); CodeOf(err) != constants.ErrCodeInUse {
		t.Errorf("Expected RESOURCE_IN_USE while a connection references the supplier, got %v", err)
	}

	unused, err := svc.Create(ctx, "Beta", "", "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := svc.Delete(ctx, unused.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := svc.Get(ctx, unused.ID); CodeOf(err) != constants.ErrCodeNotFound {
		t.Errorf("Expected NOT_FOUND after delete, got %v", err)
	}
}

type recordingRunner struct {
	reqs []ingestion.Request
}

func (r *recordingRunner) RunIngestion(ctx context.Context, req ingestion.Request) *ingestion.ImportResult {
	r.reqs = append(r.reqs, req)
	return &ingestion.ImportResult{ImportID: "imp-1", Status: constants.ImportSuccess}
}

// uploadSource creates a supplier with an upload connection over dir and a
// data source reading from it
func (env *testEnv) uploadSource(t *testing.T, dir string) (string, *gormModels.DataSource) {
	t.Helper()
	ctx := context.Background()
	sup, err := NewSupplierService(env.conns).Create(ctx, "Acme Wholesale", "", "")
	if err != nil {
		t.Fatalf("Failed to create supplier: %v", err)
	}
	view, err := env.connections.Create(ctx, dtos.ConnectionRequest{
		Name:        "acme-uploads",
		Kind:        "upload",
		SupplierID:  &sup.ID,
		Credentials: map[string]any{"directory": dir},
	})
	if err != nil {
		t.Fatalf("Failed to create upload connection: %v", err)
	}
	return sup.ID, env.createDataSource(t, view.ID)
}

func TestUploadService_StoresAndRuns(t *testing.T) {
	env := newTestEnv(t)
	dir := filepath.Join(t.TempDir(), "acme")
	supplierID, ds := env.uploadSource(t, dir)
	runner := &recordingRunner{}
	svc := NewUploadService(env.conns, env.configs, env.vault, runner, 1024)

	resp, err := svc.Upload(context.Background(), UploadRequest{
		SupplierID:   supplierID,
		DataSourceID: ds.ID,
		Filename:     `C:\exports\..\products.csv`,
		Body:         strings.NewReader("Item,Title\nA1,Widget\n"),
		Run:          true,
	})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if resp.File != "products.csv" || resp.Size != 21 {
		t.Errorf("Expected products.csv of 21 bytes, got %s of %d", resp.File, resp.Size)
	}

	stored, err := os.ReadFile(filepath.Join(dir, "products.csv"))
	if err != nil {
		t.Fatalf("Expected the file in the upload directory: %v", err)
	}
	if string(stored) != "Item,Title\nA1,Widget\n" {
		t.Errorf("Unexpected stored content %q", stored)
	}

	if len(runner.reqs) != 1 {
		t.Fatalf("Expected one run, got %d", len(runner.reqs))
	}
	if got := runner.reqs[0]; got.Path != "/products.csv" || got.TriggeredBy != ingestion.TriggerUpload || got.DataSourceID != ds.ID {
		t.Errorf("Unexpected run request %+v", got)
	}
	if resp.Import == nil || resp.Import.ImportID != "imp-1" {
		t.Errorf("Expected the run result in the response, got %+v", resp.Import)
	}
}

func TestUploadService_Rejects(t *testing.T) {
	env := newTestEnv(t)
	dir := t.TempDir()
	supplierID, ds := env.uploadSource(t, dir)
	svc := NewUploadService(env.conns, env.configs, env.vault, &recordingRunner{}, 8)
	ctx := context.Background()

	_, err := svc.Upload(ctx, UploadRequest{SupplierID: supplierID, DataSourceID: ds.ID, Filename: "big.csv", Body: strings.NewReader("a,b\n1,2\n3,4\n")})
	if CodeOf(err) != constants.ErrCodeUploadTooLarge {
		t.Errorf("Expected UPLOAD_TOO_LARGE, got %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("Expected no file left behind, got %d entries", len(entries))
	}

	_, err = svc.Upload(ctx, UploadRequest{SupplierID: supplierID, DataSourceID: ds.ID, Filename: "notes.txt", Body: strings.NewReader("x")})
	if CodeOf(err) != constants.ErrCodeUnsupportedFormat {
		t.Errorf("Expected UNSUPPORTED_FORMAT, got %v", err)
	}

	sftpSource := env.createDataSource(t, env.createConnection(t).ID)
	_, err = svc.Upload(ctx, UploadRequest{SupplierID: supplierID, DataSourceID: sftpSource.ID, Filename: "a.csv", Body: strings.NewReader("x")})
	if CodeOf(err) != constants.ErrCodeConfigMalformed {
		t.Errorf("Expected CONFIG_MALFORMED for a non-upload data source, got %v", err)
	}

	other, err := NewSupplierService(env.conns).Create(ctx, "Beta", "", "")
	if err != nil {
		t.Fatalf("Failed to create supplier: %v", err)
	}
	_, err = svc.Upload(ctx, UploadRequest{SupplierID: other.ID, DataSourceID: ds.ID, Filename: "a.csv", Body: strings.NewReader("x")})
	if CodeOf(err) != constants.ErrCodeConfigMalformed {
		t.Errorf("Expected CONFIG_MALFORMED for another supplier's data source, got %v", err)
	}

	_, err = svc.Upload(ctx, UploadRequest{SupplierID: "missing", DataSourceID: ds.ID, Filename: "a.csv", Body: strings.NewReader("x")})
	if CodeOf(err) != constants.ErrCodeNotFound {
		t.Errorf("Expected NOT_FOUND for an unknown supplier, got %v", err)
	}
}
