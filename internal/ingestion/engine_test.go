package ingestion

import (
	"bytes"
	"context"
	"io"
	"os"
	"path"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"mdm-platform/feedhub/internal/config"
	"mdm-platform/feedhub/internal/connectors"
	"mdm-platform/feedhub/internal/constants"
	"mdm-platform/feedhub/internal/credentials"
	"mdm-platform/feedhub/internal/db/repositories"
	"mdm-platform/feedhub/internal/logging"
	"mdm-platform/feedhub/internal/mapping"
	"mdm-platform/feedhub/internal/metrics"
	gormModels "mdm-platform/feedhub/internal/models/gorm"
)

// memConnector serves files from a map and records deletions
type memConnector struct {
	files     map[string]string
	deleted   []string
	connected bool
	closes    int
	truncated bool
}

func (m *memConnector) Kind() credentials.Kind { return credentials.KindSFTP }

func (m *memConnector) Connect(ctx context.Context) error {
	m.connected = true
	return nil
}

func (m *memConnector) Probe(ctx context.Context) (map[string]any, error) {
	return map[string]any{"files": len(m.files)}, nil
}

func (m *memConnector) List(ctx context.Context, dir string) ([]connectors.Entry, error) {
	var out []connectors.Entry
	for p, body := range m.files {
		if path.Dir(p) == dir {
			out = append(out, connectors.Entry{Name: path.Base(p), Path: p, IsFile: true, Size: int64(len(body))})
		}
	}
	if len(out) == 0 {
		return nil, connectors.ErrNotFound
	}
	return out, nil
}

func (m *memConnector) Stat(ctx context.Context, p string) (*connectors.Entry, error) {
	if body, ok := m.files[p]; ok {
		return &connectors.Entry{Name: path.Base(p), Path: p, IsFile: true, Size: int64(len(body))}, nil
	}
	for f := range m.files {
		if strings.HasPrefix(f, strings.TrimRight(p, "/")+"/") {
			return &connectors.Entry{Name: path.Base(p), Path: p}, nil
		}
	}
	return nil, connectors.ErrNotFound
}

func (m *memConnector) Fetch(ctx context.Context, p string) (*connectors.Payload, error) {
	body, ok := m.files[p]
	if !ok {
		return nil, connectors.ErrNotFound
	}
	return &connectors.Payload{
		Name:      path.Base(p),
		Format:    connectors.FormatOf(p),
		Size:      int64(len(body)),
		Body:      io.NopCloser(strings.NewReader(body)),
		Truncated: m.truncated,
	}, nil
}

func (m *memConnector) Delete(ctx context.Context, p string) error {
	m.deleted = append(m.deleted, p)
	delete(m.files, p)
	return nil
}

func (m *memConnector) Close() error {
	m.connected = false
	m.closes++
	return nil
}

// repoConfigs adapts the repositories to ConfigStore
type repoConfigs struct {
	conns   *repositories.ConnectionRepo
	sources *repositories.DataSourceRepo
}

func (c repoConfigs) GetDataSource(ctx context.Context, id string) (*gormModels.DataSource, error) {
	return c.sources.GetByID(ctx, id)
}

func (c repoConfigs) GetConnection(ctx context.Context, id string) (*gormModels.Connection, error) {
	return c.conns.GetByID(ctx, id)
}

func (c repoConfigs) GetTemplate(ctx context.Context, id string) (*gormModels.MappingTemplate, error) {
	return c.sources.GetTemplate(ctx, id)
}

// recordingPublisher keeps published events in memory
type recordingPublisher struct {
	events []ImportEvent
}

func (p *recordingPublisher) PublishImportCompleted(ctx context.Context, event ImportEvent) error {
	p.events = append(p.events, event)
	return nil
}

type recordingArchiver struct {
	keys   []string
	bodies []string
}

func (a *recordingArchiver) Archive(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return err
	}
	a.keys = append(a.keys, key)
	a.bodies = append(a.bodies, buf.String())
	return nil
}

type fixture struct {
	db       *gorm.DB
	engine   *Engine
	remote   *memConnector
	imports  *repositories.ImportRepo
	catalog  *repositories.CatalogRepo
	sources  *repositories.DataSourceRepo
	ds       *gormModels.DataSource
	events   *recordingPublisher
	archive  *recordingArchiver
	tempDir  string
	supplier string
}

const productsCSV = "Item,Title,Price,Qty\nA1,Widget,9.99,5\nA2,Gadget,abc,3\n,NoSku,1.00,1\n"

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

func newFixture(t *testing.T, files map[string]string, withSupplier bool) *fixture {
	t.Helper()
	logging.UseLogger(zap.NewNop())

	ctx := context.Background()
	db := setupTestDB(t)
	conns := repositories.NewConnectionRepo(db)
	sources := repositories.NewDataSourceRepo(db)

	vault, err := credentials.NewStore("test-secret")
	if err != nil {
		t.Fatalf("Failed to create credential store: %v", err)
	}
	sealed, err := vault.Seal(map[string]any{"host": "feeds.example.com", "username": "acme", "password": "s3cret"})
	if err != nil {
		t.Fatalf("Failed to seal credentials: %v", err)
	}

	f := &fixture{db: db, sources: sources, tempDir: t.TempDir()}

	var supplierID *string
	if withSupplier {
		sup := &gormModels.Supplier{Name: "Acme"}
		if err := conns.CreateSupplier(ctx, sup); err != nil {
			t.Fatalf("Failed to create supplier: %v", err)
		}
		supplierID = &sup.ID
		f.supplier = sup.ID
	}

	conn := &gormModels.Connection{Name: "acme-sftp", Kind: "sftp", Credentials: sealed, IsActive: true, SupplierID: supplierID}
	if err := conns.Create(ctx, conn); err != nil {
		t.Fatalf("Failed to create connection: %v", err)
	}

	tpl := &gormModels.MappingTemplate{
		Name:            "acme",
		SourceKind:      "sftp",
		FieldMappings:   gormModels.RawJSON(`[{"sourceField":"Item","targetField":"sku"},{"sourceField":"Title","targetField":"name"},{"sourceField":"Price","targetField":"price"},{"sourceField":"Qty","targetField":"inventory"}]`),
		ValidationRules: gormModels.RawJSON(`[{"field":"price","type":"type","value":"float"}]`),
		Active:          true,
	}
	if err := sources.CreateTemplate(ctx, tpl); err != nil {
		t.Fatalf("Failed to create template: %v", err)
	}

	f.ds = &gormModels.DataSource{
		Name:              "acme products",
		Kind:              "sftp",
		ConnectionID:      &conn.ID,
		MappingTemplateID: &tpl.ID,
		Config:            gormModels.DataSourceConfig{RemoteDirectory: "/feeds"},
		Active:            true,
	}
	if err := sources.Create(ctx, f.ds); err != nil {
		t.Fatalf("Failed to create data source: %v", err)
	}

	f.remote = &memConnector{files: files}
	f.imports = repositories.NewImportRepo(db)
	f.catalog = repositories.NewCatalogRepo(db)
	f.events = &recordingPublisher{}
	f.archive = &recordingArchiver{}

	f.engine = NewEngine(Deps{
		Configs:   repoConfigs{conns: conns, sources: sources},
		Imports:   f.imports,
		Catalog:   f.catalog,
		Inventory: f.catalog,
		Archive:   f.archive,
		Events:    f.events,
		Vault:     vault,
		Connect: func(creds credentials.Credentials, opts connectors.Options) (connectors.Connector, error) {
			return f.remote, nil
		},
		Metrics: metrics.NewMetricsRegistryWith(prometheus.NewRegistry()),
	}, config.IngestionConfig{TempDir: f.tempDir, ProgressEvery: 1})

	return f
}

func (f *fixture) run(t *testing.T, req Request) *ImportResult {
	t.Helper()
	if req.DataSourceID == "" {
		req.DataSourceID = f.ds.ID
	}
	res := f.engine.RunIngestion(context.Background(), req)
	if res == nil {
		t.Fatal("Expected a result, got nil")
	}
	return res
}

func TestRunIngestion_CSVEndToEnd(t *testing.T) {
	f := newFixture(t, map[string]string{"/feeds/products.csv": productsCSV}, true)
	ctx := context.Background()

	res := f.run(t, Request{})

	if res.Status != constants.ImportSuccess {
		t.Fatalf("Expected status success, got %s (%s)", res.Status, res.Message)
	}
	if res.RecordCount != 3 {
		t.Errorf("Expected 3 records, got %d", res.RecordCount)
	}
	if res.ProcessedCount != 1 || res.CreatedCount != 1 {
		t.Errorf("Expected 1 processed and created, got %d/%d", res.ProcessedCount, res.CreatedCount)
	}
	if res.ErrorCount != 2 {
		t.Errorf("Expected 2 errors, got %d", res.ErrorCount)
	}

	codes := map[string]int{}
	for _, e := range res.Errors {
		codes[e.Code]++
		if e.RecordIndex == nil {
			t.Errorf("Expected record index on %s", e.Code)
		}
	}
	if codes[constants.ErrCodeRecordInvalid] != 1 || codes[constants.ErrCodeSKUMissing] != 1 {
		t.Errorf("Expected one RECORD_INVALID and one SKU_MISSING, got %v", codes)
	}

	product, err := f.catalog.GetProductBySKU(ctx, "A1")
	if err != nil || product == nil {
		t.Fatalf("Expected product A1, got %v", err)
	}
	if product.Name != "Widget" {
		t.Errorf("Expected name Widget, got %s", product.Name)
	}
	if product.Price == nil || *product.Price != 9.99 {
		t.Errorf("Expected price 9.99, got %v", product.Price)
	}

	links, err := f.catalog.ListProductSuppliers(ctx, product.ID)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(links) != 1 || !links[0].IsPrimary || links[0].SupplierID != f.supplier {
		t.Errorf("Expected one primary supplier link, got %+v", links)
	}

	var stock gormModels.SupplierInventory
	if err := f.db.Where("product_id = ?", product.ID).First(&stock).Error; err != nil {
		t.Fatalf("Expected inventory row, got %v", err)
	}
	if stock.StockQuantity != 5 {
		t.Errorf("Expected stock 5, got %d", stock.StockQuantity)
	}

	stored, err := f.imports.GetByID(ctx, res.ImportID)
	if err != nil || stored == nil {
		t.Fatalf("Expected stored import, got %v", err)
	}
	if stored.Status != constants.ImportSuccess || stored.CompletedAt == nil || stored.StartedAt == nil {
		t.Errorf("Expected finalized import with timestamps, got %+v", stored)
	}
	if stored.Filename != "products.csv" {
		t.Errorf("Expected filename products.csv, got %s", stored.Filename)
	}

	if len(f.events.events) != 1 || f.events.events[0].ImportID != res.ImportID {
		t.Errorf("Expected one import event, got %d", len(f.events.events))
	}
	if len(f.archive.bodies) != 1 || f.archive.bodies[0] != productsCSV {
		t.Errorf("Expected the raw feed to be archived once")
	}
	if f.remote.connected {
		t.Error("Expected connector to be closed")
	}

	left, _ := os.ReadDir(f.tempDir)
	if len(left) != 0 {
		t.Errorf("Expected temp dir to be empty, got %d files", len(left))
	}
}

func TestRunIngestion_IsIdempotent(t *testing.T) {
	f := newFixture(t, map[string]string{"/feeds/products.csv": productsCSV}, true)
	ctx := context.Background()

	first := f.run(t, Request{})
	second := f.run(t, Request{})

	if first.CreatedCount != 1 {
		t.Errorf("Expected first run to create 1, got %d", first.CreatedCount)
	}
	if second.CreatedCount != 0 || second.UpdatedCount != 1 {
		t.Errorf("Expected second run to update 1, got created=%d updated=%d", second.CreatedCount, second.UpdatedCount)
	}

	count, err := f.catalog.CountProducts(ctx)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 product, got %d", count)
	}

	product, _ := f.catalog.GetProductBySKU(ctx, "A1")
	links, _ := f.catalog.ListProductSuppliers(ctx, product.ID)
	if len(links) != 1 {
		t.Errorf("Expected 1 supplier link, got %d", len(links))
	}
}

func TestRunIngestion_AllInvalidIsError(t *testing.T) {
	feed := "Item,Title,Price,Qty\nX1,Bad,nope,1\nX2,Worse,never,2\n"
	f := newFixture(t, map[string]string{"/feeds/products.csv": feed}, true)

	res := f.run(t, Request{})

	if res.Status != constants.ImportError {
		t.Errorf("Expected status error, got %s", res.Status)
	}
	if res.ProcessedCount != 0 || res.ErrorCount != 2 {
		t.Errorf("Expected 0 processed and 2 errors, got %d/%d", res.ProcessedCount, res.ErrorCount)
	}

	count, _ := f.catalog.CountProducts(context.Background())
	if count != 0 {
		t.Errorf("Expected no products, got %d", count)
	}
}

func TestRunIngestion_HeaderOnlyIsSuccess(t *testing.T) {
	f := newFixture(t, map[string]string{"/feeds/products.csv": "Item,Title,Price,Qty\n"}, true)

	res := f.run(t, Request{})

	if res.Status != constants.ImportSuccess {
		t.Errorf("Expected status success, got %s (%s)", res.Status, res.Message)
	}
	if res.RecordCount != 0 {
		t.Errorf("Expected 0 records, got %d", res.RecordCount)
	}
}

func TestRunIngestion_UnknownDataSourceWritesNoImport(t *testing.T) {
	f := newFixture(t, map[string]string{}, true)

	res := f.run(t, Request{DataSourceID: "does-not-exist"})

	if res.Code != constants.ErrCodeConfigNotFound {
		t.Errorf("Expected CONFIG_NOT_FOUND, got %s", res.Code)
	}
	if res.ImportID != "" {
		t.Errorf("Expected no import id, got %s", res.ImportID)
	}

	imports, _ := f.imports.List(context.Background(), repositories.ImportFilter{}, repositories.ListOptions{})
	if len(imports) != 0 {
		t.Errorf("Expected no import rows, got %d", len(imports))
	}
}

func TestRunIngestion_SupplierRequired(t *testing.T) {
	f := newFixture(t, map[string]string{"/feeds/products.csv": productsCSV}, false)

	res := f.run(t, Request{})

	if res.Code != constants.ErrCodeSupplierRequired {
		t.Errorf("Expected SUPPLIER_REQUIRED, got %s", res.Code)
	}
	stored, err := f.imports.GetByID(context.Background(), res.ImportID)
	if err != nil || stored == nil {
		t.Fatalf("Expected an error import row, got %v", err)
	}
	if stored.Status != constants.ImportError {
		t.Errorf("Expected status error, got %s", stored.Status)
	}
	if f.remote.closes != 0 {
		t.Error("Expected no transport I/O for a configuration error")
	}
}

func TestRunIngestion_InactiveTemplate(t *testing.T) {
	f := newFixture(t, map[string]string{"/feeds/products.csv": productsCSV}, true)
	ctx := context.Background()

	tpl, _ := f.sources.GetTemplate(ctx, *f.ds.MappingTemplateID)
	tpl.Active = false
	if err := f.sources.UpdateTemplate(ctx, tpl); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	res := f.run(t, Request{})
	if res.Code != constants.ErrCodeConfigNotActive {
		t.Errorf("Expected CONFIG_NOT_ACTIVE, got %s", res.Code)
	}
}

func TestRunIngestion_FetchFailure(t *testing.T) {
	f := newFixture(t, map[string]string{"/feeds/products.csv": productsCSV}, true)

	res := f.run(t, Request{Path: "/nowhere"})

	if res.Status != constants.ImportError {
		t.Errorf("Expected status error, got %s", res.Status)
	}
	if res.Code != constants.ErrCodePathNotFound {
		t.Errorf("Expected PATH_NOT_FOUND, got %s", res.Code)
	}
	if len(res.Errors) != 1 || res.Errors[0].RecordIndex != nil {
		t.Errorf("Expected one top-level error, got %+v", res.Errors)
	}
}

func TestRunIngestion_DeleteAfterProcessingAndSkipExisting(t *testing.T) {
	f := newFixture(t, map[string]string{
		"/feeds/products.csv": productsCSV,
		"/feeds/again.csv":    "Item,Title,Price,Qty\nA1,Renamed,1.50,9\n",
	}, true)
	ctx := context.Background()

	yes := true
	first := f.run(t, Request{Path: "/feeds/products.csv", Options: RunOptions{DeleteAfterProcessing: &yes}})
	if !first.Success() {
		t.Fatalf("Expected success, got %s (%s)", first.Status, first.Message)
	}
	if len(f.remote.deleted) != 1 || f.remote.deleted[0] != "/feeds/products.csv" {
		t.Errorf("Expected products.csv to be deleted, got %v", f.remote.deleted)
	}

	second := f.run(t, Request{Path: "/feeds/again.csv", Options: RunOptions{SkipExistingProducts: &yes}})
	if second.SkippedCount != 1 || second.ProcessedCount != 1 {
		t.Errorf("Expected 1 skipped record counted as processed, got skipped=%d processed=%d", second.SkippedCount, second.ProcessedCount)
	}
	product, _ := f.catalog.GetProductBySKU(ctx, "A1")
	if product.Name != "Widget" {
		t.Errorf("Expected skipped product to keep name Widget, got %s", product.Name)
	}
	if len(f.remote.deleted) != 1 {
		t.Errorf("Expected no further deletion, got %v", f.remote.deleted)
	}
}

func TestRunIngestion_UpdateKeepsAbsentFields(t *testing.T) {
	f := newFixture(t, map[string]string{
		"/feeds/products.csv": productsCSV,
		"/feeds/names.csv":    "Item,Title\nA1,Widget Pro\n",
	}, true)
	ctx := context.Background()

	f.run(t, Request{Path: "/feeds/products.csv"})
	res := f.run(t, Request{Path: "/feeds/names.csv"})
	if res.UpdatedCount != 1 {
		t.Fatalf("Expected 1 update, got %d (%s)", res.UpdatedCount, res.Message)
	}

	product, _ := f.catalog.GetProductBySKU(ctx, "A1")
	if product.Name != "Widget Pro" {
		t.Errorf("Expected name Widget Pro, got %s", product.Name)
	}
	if product.Price == nil || *product.Price != 9.99 {
		t.Errorf("Expected price 9.99 to be kept, got %v", product.Price)
	}
}

const threeProductsCSV = "Item,Title,Price,Qty\nB1,One,1.00,1\nB2,Two,2.00,2\nB3,Three,3.00,3\n"

// cancellingCatalog cancels the caller's context on its first lookup
type cancellingCatalog struct {
	CatalogStore
	cancel context.CancelFunc
}

func (c *cancellingCatalog) GetProductBySKU(ctx context.Context, sku string) (*gormModels.Product, error) {
	c.cancel()
	return c.CatalogStore.GetProductBySKU(ctx, sku)
}

// panickingCatalog blows up on one SKU
type panickingCatalog struct {
	CatalogStore
	sku string
}

func (c *panickingCatalog) GetProductBySKU(ctx context.Context, sku string) (*gormModels.Product, error) {
	if sku == c.sku {
		panic("catalog exploded")
	}
	return c.CatalogStore.GetProductBySKU(ctx, sku)
}

type importSnapshot struct {
	status    constants.ImportStatus
	processed int
}

// recordingImports keeps a snapshot of every update
type recordingImports struct {
	ImportStore
	updates []importSnapshot
}

func (s *recordingImports) Update(ctx context.Context, imp *gormModels.Import) error {
	s.updates = append(s.updates, importSnapshot{status: imp.Status, processed: imp.ProcessedCount})
	return s.ImportStore.Update(ctx, imp)
}

func TestRunIngestion_CallerCancelStillFinalizes(t *testing.T) {
	f := newFixture(t, map[string]string{"/feeds/products.csv": threeProductsCSV}, true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.engine.catalog = &cancellingCatalog{CatalogStore: f.catalog, cancel: cancel}

	res := f.engine.RunIngestion(ctx, Request{DataSourceID: f.ds.ID})

	if res.Status != constants.ImportSuccess {
		t.Errorf("Expected status success, got %s (%s)", res.Status, res.Message)
	}
	if res.ProcessedCount != 3 {
		t.Errorf("Expected 3 processed, got %d", res.ProcessedCount)
	}

	stored, err := f.imports.GetByID(context.Background(), res.ImportID)
	if err != nil || stored == nil {
		t.Fatalf("Expected stored import, got %v", err)
	}
	if stored.Status != constants.ImportSuccess {
		t.Errorf("Expected stored status success, got %s", stored.Status)
	}
	if stored.CompletedAt == nil {
		t.Error("Expected completedAt to be set")
	}
}

func TestRunIngestion_PanicInOneRecordIsIsolated(t *testing.T) {
	f := newFixture(t, map[string]string{"/feeds/products.csv": threeProductsCSV}, true)
	f.engine.catalog = &panickingCatalog{CatalogStore: f.catalog, sku: "B2"}

	res := f.run(t, Request{})

	if res.Status != constants.ImportSuccess {
		t.Fatalf("Expected status success, got %s (%s)", res.Status, res.Message)
	}
	if res.ProcessedCount != 2 || res.ErrorCount != 1 {
		t.Errorf("Expected 2 processed and 1 error, got %d/%d", res.ProcessedCount, res.ErrorCount)
	}
	if len(res.Errors) != 1 || res.Errors[0].Code != constants.ErrCodeRecordPanic {
		t.Fatalf("Expected one RECORD_PANIC error, got %+v", res.Errors)
	}
	if res.Errors[0].RecordIndex == nil || *res.Errors[0].RecordIndex != 1 {
		t.Errorf("Expected the error on record 1, got %v", res.Errors[0].RecordIndex)
	}

	for _, sku := range []string{"B1", "B3"} {
		p, err := f.catalog.GetProductBySKU(context.Background(), sku)
		if err != nil || p == nil {
			t.Errorf("Expected product %s to be written, got %v", sku, err)
		}
	}
}

func TestRunIngestion_ProgressIsSavedMidRun(t *testing.T) {
	f := newFixture(t, map[string]string{"/feeds/products.csv": threeProductsCSV}, true)
	rec := &recordingImports{ImportStore: f.imports}
	f.engine.imports = rec

	res := f.run(t, Request{})
	if res.Status != constants.ImportSuccess {
		t.Fatalf("Expected status success, got %s (%s)", res.Status, res.Message)
	}

	var mid []int
	last := -1
	for _, u := range rec.updates {
		if u.processed < last {
			t.Errorf("Expected non-decreasing processed counts, got %d after %d", u.processed, last)
		}
		last = u.processed
		if u.status == constants.ImportProcessing && u.processed > 0 {
			mid = append(mid, u.processed)
		}
	}
	if len(mid) != 3 || mid[0] != 1 || mid[1] != 2 || mid[2] != 3 {
		t.Errorf("Expected progress saves at 1, 2 and 3, got %v", mid)
	}

	final := rec.updates[len(rec.updates)-1]
	if final.status != constants.ImportSuccess || final.processed != 3 {
		t.Errorf("Expected final update success with 3 processed, got %+v", final)
	}
}

func TestRunIngestion_TruncatedFeedAddsWarning(t *testing.T) {
	f := newFixture(t, map[string]string{"/feeds/products.csv": threeProductsCSV}, true)
	f.remote.truncated = true

	res := f.run(t, Request{})

	if res.Status != constants.ImportSuccess {
		t.Fatalf("Expected status success, got %s (%s)", res.Status, res.Message)
	}
	found := false
	for _, w := range res.Warnings {
		if w.Code == constants.ErrCodeFeedTruncated {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected a FEED_TRUNCATED warning, got %+v", res.Warnings)
	}
}

func TestIntField_RejectsOutOfRange(t *testing.T) {
	cases := map[string]struct {
		value any
		want  int
		ok    bool
	}{
		"whole":    {value: "12", want: 12, ok: true},
		"rounded":  {value: 2.6, want: 3, ok: true},
		"huge":     {value: 1e30, ok: false},
		"negative": {value: "-1e20", ok: false},
		"text":     {value: "many", ok: false},
	}
	for name, tc := range cases {
		rec := &mapping.Record{Fields: map[string]any{"inventory": tc.value}}
		got, ok := intField(rec, "inventory")
		if ok != tc.ok || got != tc.want {
			t.Errorf("%s: Expected (%d, %v), got (%d, %v)", name, tc.want, tc.ok, got, ok)
		}
	}
}
