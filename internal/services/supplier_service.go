package services

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"mdm-platform/feedhub/internal/constants"
	"mdm-platform/feedhub/internal/db/repositories"
	"mdm-platform/feedhub/internal/models/dtos"
	gormModels "mdm-platform/feedhub/internal/models/gorm"
)

// SupplierService registers the suppliers that connections and data sources
// attribute their records to
type SupplierService struct {
	repo *repositories.ConnectionRepo
}

func NewSupplierService(repo *repositories.ConnectionRepo) *SupplierService {
	return &SupplierService{repo: repo}
}

func (s *SupplierService) Create(ctx context.Context, name, contactEmail, status string) (*gormModels.Supplier, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("name is required", nil)
	}
	if contactEmail != "" {
		if _, err := mail.ParseAddress(contactEmail); err != nil {
			return nil, invalid("contactEmail is not a valid address", err)
		}
	}

	st, err := parseSupplierStatus(status)
	if err != nil {
		return nil, err
	}
	sup := &gormModels.Supplier{Name: name, ContactEmail: contactEmail, Status: st}

	if err := s.repo.CreateSupplier(ctx, sup); err != nil {
		return nil, storage("failed to create supplier", err)
	}
	return sup, nil
}

func (s *SupplierService) Get(ctx context.Context, id string) (*gormModels.Supplier, error) {
	sup, err := s.repo.GetSupplier(ctx, id)
	if err != nil {
		return nil, storage("failed to fetch supplier", err)
	}
	if sup == nil {
		return nil, notFound("supplier", id)
	}
	return sup, nil
}

func (s *SupplierService) List(ctx context.Context, opts repositories.ListOptions) ([]gormModels.Supplier, error) {
	list, err := s.repo.ListSuppliers(ctx, opts)
	if err != nil {
		return nil, storage("failed to list suppliers", err)
	}
	return list, nil
}

// Update changes the fields that are set in req; empty fields keep their
// stored value
func (s *SupplierService) Update(ctx context.Context, id string, req dtos.SupplierRequest) (*gormModels.Supplier, error) {
	sup, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		sup.Name = name
	}
	if req.ContactEmail != "" {
		if _, err := mail.ParseAddress(req.ContactEmail); err != nil {
			return nil, invalid("contactEmail is not a valid address", err)
		}
		sup.ContactEmail = req.ContactEmail
	}
	if req.Status != "" {
		st, err := parseSupplierStatus(req.Status)
		if err != nil {
			return nil, err
		}
		sup.Status = st
	}

	if err := s.repo.UpdateSupplier(ctx, sup); err != nil {
		return nil, storage("failed to update supplier", err)
	}
	return sup, nil
}

// Delete removes a supplier nothing refers to any more
func (s *SupplierService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	refs, err := s.repo.CountSupplierReferences(ctx, id)
	if err != nil {
		return storage("failed to check supplier references", err)
	}
	if refs > 0 {
		return &ServiceError{
			Code:    constants.ErrCodeInUse,
			Message: fmt.Sprintf("supplier %s is still referenced by %d connections, data sources or products", id, refs),
		}
	}

	if err := s.repo.DeleteSupplier(ctx, id); err != nil {
		return storage("failed to delete supplier", err)
	}
	return nil
}

func parseSupplierStatus(status string) (constants.SupplierStatus, error) {
	switch st := constants.SupplierStatus(strings.ToLower(strings.TrimSpace(status))); st {
	case "":
		return "", nil
	case constants.SupplierPending, constants.SupplierActive, constants.SupplierInactive, constants.SupplierProbation:
		return st, nil
	default:
		return "", invalid("unknown supplier status "+status, nil)
	}
}
