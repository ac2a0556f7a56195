package services

import (
	"context"
	"strings"

	"mdm-platform/feedhub/internal/credentials"
	"mdm-platform/feedhub/internal/db/repositories"
	"mdm-platform/feedhub/internal/models/dtos"
	gormModels "mdm-platform/feedhub/internal/models/gorm"
	"mdm-platform/feedhub/internal/parser"
)

type DataSourceService struct {
	repo        *repositories.DataSourceRepo
	connections *repositories.ConnectionRepo
	configs     *CachedConfigStore
}

func NewDataSourceService(repo *repositories.DataSourceRepo, connections *repositories.ConnectionRepo, configs *CachedConfigStore) *DataSourceService {
	return &DataSourceService{repo: repo, connections: connections, configs: configs}
}

func (s *DataSourceService) Create(ctx context.Context, req dtos.DataSourceRequest) (*gormModels.DataSource, error) {
	ds := &gormModels.DataSource{Active: true}
	if err := s.apply(ctx, ds, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, ds); err != nil {
		return nil, storage("failed to create data source", err)
	}
	return ds, nil
}

func (s *DataSourceService) Get(ctx context.Context, id string) (*gormModels.DataSource, error) {
	ds, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storage("failed to fetch data source", err)
	}
	if ds == nil {
		return nil, notFound("data source", id)
	}
	return ds, nil
}

func (s *DataSourceService) List(ctx context.Context, opts repositories.ListOptions) ([]gormModels.DataSource, error) {
	list, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, storage("failed to list data sources", err)
	}
	return list, nil
}

func (s *DataSourceService) Update(ctx context.Context, id string, req dtos.DataSourceRequest) (*gormModels.DataSource, error) {
	ds, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, ds, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, ds); err != nil {
		return nil, storage("failed to update data source", err)
	}
	s.configs.InvalidateDataSource(id)
	return ds, nil
}

func (s *DataSourceService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return storage("failed to delete data source "+id, err)
	}
	s.configs.InvalidateDataSource(id)
	return nil
}

// apply validates req against the referenced rows and copies it onto ds.
// The kind defaults to the connection's kind.
func (s *DataSourceService) apply(ctx context.Context, ds *gormModels.DataSource, req dtos.DataSourceRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return invalid("name is required", nil)
	}

	kind := req.Kind
	if req.ConnectionID != nil && *req.ConnectionID != "" {
		conn, err := s.connections.GetByID(ctx, *req.ConnectionID)
		if err != nil {
			return storage("failed to fetch connection", err)
		}
		if conn == nil {
			return notFound("connection", *req.ConnectionID)
		}
		if kind == "" {
			kind = conn.Kind
		}
	} else {
		req.ConnectionID = nil
	}
	if kind == "" {
		return invalid("kind is required when no connection is linked", nil)
	}
	parsed, err := credentials.ParseKind(kind)
	if err != nil {
		return invalid(err.Error(), nil)
	}

	if req.MappingTemplateID != nil && *req.MappingTemplateID != "" {
		tpl, err := s.repo.GetTemplate(ctx, *req.MappingTemplateID)
		if err != nil {
			return storage("failed to fetch mapping template", err)
		}
		if tpl == nil {
			return notFound("mapping template", *req.MappingTemplateID)
		}
	} else {
		req.MappingTemplateID = nil
	}

	if req.SupplierID != nil && *req.SupplierID != "" {
		sup, err := s.connections.GetSupplier(ctx, *req.SupplierID)
		if err != nil {
			return storage("failed to fetch supplier", err)
		}
		if sup == nil {
			return notFound("supplier", *req.SupplierID)
		}
	} else {
		req.SupplierID = nil
	}

	if req.Config.Encoding != "" && !parser.KnownEncoding(req.Config.Encoding) {
		return invalid("unknown encoding "+req.Config.Encoding, nil)
	}
	if len([]rune(req.Config.Delimiter)) > 1 {
		return invalid("delimiter must be a single character", nil)
	}

	ds.Name = strings.TrimSpace(req.Name)
	ds.Kind = string(parsed)
	ds.ConnectionID = req.ConnectionID
	ds.MappingTemplateID = req.MappingTemplateID
	ds.SupplierID = req.SupplierID
	ds.Config = req.Config
	if req.Active != nil {
		ds.Active = *req.Active
	}
	return nil
}
