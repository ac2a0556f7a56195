package services

import (
	"context"
	"encoding/json"
	"strings"

	"mdm-platform/feedhub/internal/constants"
	"mdm-platform/feedhub/internal/credentials"
	"mdm-platform/feedhub/internal/db/repositories"
	"mdm-platform/feedhub/internal/mapping"
	"mdm-platform/feedhub/internal/models/dtos"
	gormModels "mdm-platform/feedhub/internal/models/gorm"
)

// MappingTemplateService stores templates with their field mappings in the
// canonical array form. Legacy flat objects are migrated on write.
type MappingTemplateService struct {
	repo    *repositories.DataSourceRepo
	configs *CachedConfigStore
}

func NewMappingTemplateService(repo *repositories.DataSourceRepo, configs *CachedConfigStore) *MappingTemplateService {
	return &MappingTemplateService{repo: repo, configs: configs}
}

func (s *MappingTemplateService) Create(ctx context.Context, req dtos.MappingTemplateRequest) (*gormModels.MappingTemplate, error) {
	tpl := &gormModels.MappingTemplate{Active: true}
	if err := applyTemplate(tpl, req); err != nil {
		return nil, err
	}
	if err := s.repo.CreateTemplate(ctx, tpl); err != nil {
		return nil, storage("failed to create mapping template", err)
	}
	return tpl, nil
}

func (s *MappingTemplateService) Get(ctx context.Context, id string) (*gormModels.MappingTemplate, error) {
	tpl, err := s.repo.GetTemplate(ctx, id)
	if err != nil {
		return nil, storage("failed to fetch mapping template", err)
	}
	if tpl == nil {
		return nil, notFound("mapping template", id)
	}
	return tpl, nil
}

func (s *MappingTemplateService) List(ctx context.Context, sourceKind string, activeOnly bool) ([]gormModels.MappingTemplate, error) {
	list, err := s.repo.ListTemplates(ctx, sourceKind, activeOnly)
	if err != nil {
		return nil, storage("failed to list mapping templates", err)
	}
	return list, nil
}

func (s *MappingTemplateService) Update(ctx context.Context, id string, req dtos.MappingTemplateRequest) (*gormModels.MappingTemplate, error) {
	tpl, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyTemplate(tpl, req); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateTemplate(ctx, tpl); err != nil {
		return nil, storage("failed to update mapping template", err)
	}
	s.configs.InvalidateTemplate(id)
	return tpl, nil
}

func (s *MappingTemplateService) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteTemplate(ctx, id); err != nil {
		return storage("failed to delete mapping template "+id, err)
	}
	s.configs.InvalidateTemplate(id)
	return nil
}

// Candidates returns the active templates usable for a source kind as
// suggestion candidates. Templates without a kind match every source.
func (s *MappingTemplateService) Candidates(ctx context.Context, kind string) ([]mapping.Candidate, error) {
	list, err := s.repo.ListTemplates(ctx, "", true)
	if err != nil {
		return nil, storage("failed to list mapping templates", err)
	}
	out := make([]mapping.Candidate, 0, len(list))
	for _, tpl := range list {
		if tpl.SourceKind != "" && kind != "" && !strings.EqualFold(tpl.SourceKind, kind) {
			continue
		}
		mappings, err := mapping.NormalizeFieldMappings(tpl.FieldMappings)
		if err != nil {
			continue
		}
		out = append(out, mapping.Candidate{ID: tpl.ID, Name: tpl.Name, Mappings: mappings})
	}
	return out, nil
}

func applyTemplate(tpl *gormModels.MappingTemplate, req dtos.MappingTemplateRequest) error {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return invalid("name is required", nil)
	}
	if req.SourceKind != "" {
		if _, err := credentials.ParseKind(req.SourceKind); err != nil {
			return invalid(err.Error(), nil)
		}
	}

	mappings, err := mapping.NormalizeFieldMappings(req.FieldMappings)
	if err != nil {
		return rejected(constants.ErrCodeTemplateInvalid, err)
	}
	rules, err := mapping.ParseRules(req.ValidationRules)
	if err != nil {
		return rejected(constants.ErrCodeTemplateInvalid, err)
	}
	if _, err := mapping.NewTemplate(tpl.ID, name, mappings, rules, req.KeepUnmapped); err != nil {
		return rejected(constants.ErrCodeTemplateInvalid, err)
	}

	canonical, err := json.Marshal(mappings)
	if err != nil {
		return invalid("failed to encode field mappings", err)
	}
	ruleDoc := []byte("[]")
	if len(rules) > 0 {
		if ruleDoc, err = json.Marshal(rules); err != nil {
			return invalid("failed to encode validation rules", err)
		}
	}

	tpl.Name = name
	tpl.SourceKind = strings.ToLower(req.SourceKind)
	tpl.FieldMappings = gormModels.RawJSON(canonical)
	tpl.ValidationRules = gormModels.RawJSON(ruleDoc)
	tpl.KeepUnmapped = req.KeepUnmapped
	if req.Active != nil {
		tpl.Active = *req.Active
	}
	return nil
}
