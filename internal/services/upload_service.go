package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"mdm-platform/feedhub/internal/constants"
	"mdm-platform/feedhub/internal/credentials"
	"mdm-platform/feedhub/internal/db/repositories"
	"mdm-platform/feedhub/internal/ingestion"
	"mdm-platform/feedhub/internal/logging"
	"mdm-platform/feedhub/internal/models/dtos"
	"mdm-platform/feedhub/internal/parser"
)

const defaultMaxUploadBytes = 50 << 20

// IngestionRunner executes one ingestion run
type IngestionRunner interface {
	RunIngestion(ctx context.Context, req ingestion.Request) *ingestion.ImportResult
}

// UploadRequest is one file pushed by a supplier. Body is read once.
type UploadRequest struct {
	SupplierID        string
	DataSourceID      string
	MappingTemplateID string
	Filename          string
	Body              io.Reader
	Run               bool
}

// UploadService stores supplier files in the directory of an upload
// connection, where the engine reads them like any other remote source
type UploadService struct {
	suppliers *repositories.ConnectionRepo
	configs   *CachedConfigStore
	vault     *credentials.Store
	runner    IngestionRunner
	maxBytes  int64
}

func NewUploadService(suppliers *repositories.ConnectionRepo, configs *CachedConfigStore, vault *credentials.Store, runner IngestionRunner, maxBytes int64) *UploadService {
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}
	return &UploadService{
		suppliers: suppliers,
		configs:   configs,
		vault:     vault,
		runner:    runner,
		maxBytes:  maxBytes,
	}
}

// MaxBytes is the largest accepted upload
func (s *UploadService) MaxBytes() int64 {
	return s.maxBytes
}

// Upload writes the file and, when requested, ingests it right away. The
// data source must read from an upload connection of the same supplier.
func (s *UploadService) Upload(ctx context.Context, req UploadRequest) (*dtos.UploadResponse, error) {
	sup, err := s.suppliers.GetSupplier(ctx, req.SupplierID)
	if err != nil {
		return nil, storage("failed to fetch supplier", err)
	}
	if sup == nil {
		return nil, notFound("supplier", req.SupplierID)
	}

	name, err := uploadName(req.Filename)
	if err != nil {
		return nil, err
	}

	dir, err := s.uploadDir(ctx, req)
	if err != nil {
		return nil, err
	}

	size, err := s.store(dir, name, req.Body)
	if err != nil {
		return nil, err
	}
	logging.Info("Stored supplier upload", "supplier_id", req.SupplierID, "data_source_id", req.DataSourceID, "file", name, "size", size)

	resp := &dtos.UploadResponse{
		SupplierID:   req.SupplierID,
		DataSourceID: req.DataSourceID,
		File:         name,
		Size:         size,
	}
	if req.Run {
		resp.Import = s.runner.RunIngestion(ctx, ingestion.Request{
			DataSourceID:      req.DataSourceID,
			MappingTemplateID: req.MappingTemplateID,
			Path:              "/" + name,
			TriggeredBy:       ingestion.TriggerUpload,
		})
	}
	return resp, nil
}

// uploadDir checks the data source and returns its connection's directory
func (s *UploadService) uploadDir(ctx context.Context, req UploadRequest) (string, error) {
	if req.DataSourceID == "" {
		return "", invalid("dataSourceId is required", nil)
	}
	ds, err := s.configs.GetDataSource(ctx, req.DataSourceID)
	if err != nil {
		return "", storage("failed to fetch data source", err)
	}
	if ds == nil {
		return "", &ServiceError{Code: constants.ErrCodeConfigNotFound, Message: "data source not found: " + req.DataSourceID}
	}
	if ds.ConnectionID == nil || *ds.ConnectionID == "" {
		return "", invalid("data source has no connection", nil)
	}

	conn, err := s.configs.GetConnection(ctx, *ds.ConnectionID)
	if err != nil {
		return "", storage("failed to fetch connection", err)
	}
	if conn == nil {
		return "", &ServiceError{Code: constants.ErrCodeConfigNotFound, Message: "connection not found: " + *ds.ConnectionID}
	}
	if credentials.Kind(conn.Kind) != credentials.KindUpload {
		return "", invalid("data source does not read from an upload connection", nil)
	}

	owner := ""
	switch {
	case ds.SupplierID != nil && *ds.SupplierID != "":
		owner = *ds.SupplierID
	case conn.SupplierID != nil && *conn.SupplierID != "":
		owner = *conn.SupplierID
	}
	if owner != req.SupplierID {
		return "", invalid("data source does not belong to supplier "+req.SupplierID, nil)
	}

	raw, err := s.vault.Unseal(conn.Credentials)
	if err != nil {
		return "", &ServiceError{Code: constants.ErrCodeCredentialsUnreadable, Message: constants.GetErrorMessage(constants.ErrCodeCredentialsUnreadable), Err: err}
	}
	creds, err := credentials.Resolve(credentials.KindUpload, raw)
	if err != nil {
		return "", rejected(constants.ErrCodeCredentialsInvalid, err)
	}
	return creds.(*credentials.UploadCredentials).Directory, nil
}

// store writes body to dir/name through a temp file so readers never see a
// partial upload
func (s *UploadService) store(dir, name string, body io.Reader) (int64, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return 0, storage("failed to create upload directory", err)
	}
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return 0, storage("failed to create upload file", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, io.LimitReader(body, s.maxBytes+1))
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, storage("failed to write upload", err)
	}
	if n > s.maxBytes {
		return 0, &ServiceError{
			Code:    constants.ErrCodeUploadTooLarge,
			Message: fmt.Sprintf("%s exceeds the %d byte upload limit", name, s.maxBytes),
		}
	}

	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		return 0, storage("failed to store upload", err)
	}
	return n, nil
}

// uploadName reduces a client file name to a safe base name with a
// supported extension
func uploadName(filename string) (string, error) {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), `\`, "/"))
	if name == "" || name == "." || name == "/" || strings.HasPrefix(name, ".") {
		return "", invalid("a file name is required", nil)
	}
	if parser.FormatOf(name) == "" {
		return "", rejected(constants.ErrCodeUnsupportedFormat, errors.New("unsupported file type: "+name))
	}
	return name, nil
}
