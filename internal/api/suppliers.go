package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"mdm-platform/feedhub/internal/common"
	"mdm-platform/feedhub/internal/constants"
	"mdm-platform/feedhub/internal/models/dtos"
	"mdm-platform/feedhub/internal/services"
)

const (
	multipartMemory   = 8 << 20
	multipartOverhead = 1 << 20
)

func (h *Handlers) CreateSupplier() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		var req dtos.SupplierRequest
		if err := decodeJSON(w, r, &req); err != nil {
			common.RespondError(w, initTime, err, "Invalid request body", http.StatusBadRequest)
			return
		}

		supplier, err := h.deps.Services.Suppliers.Create(r.Context(), req.Name, req.ContactEmail, req.Status)
		if err != nil {
			handleServiceError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Supplier created", supplier, http.StatusCreated)
	}
}

func (h *Handlers) ListSuppliers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		suppliers, err := h.deps.Services.Suppliers.List(r.Context(), listOptions(r))
		if err != nil {
			handleServiceError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Suppliers fetched", suppliers)
	}
}

func (h *Handlers) GetSupplier() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		supplier, err := h.deps.Services.Suppliers.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Supplier fetched", supplier)
	}
}

func (h *Handlers) UpdateSupplier() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		var req dtos.SupplierRequest
		if err := decodeJSON(w, r, &req); err != nil {
			common.RespondError(w, initTime, err, "Invalid request body", http.StatusBadRequest)
			return
		}

		supplier, err := h.deps.Services.Suppliers.Update(r.Context(), chi.URLParam(r, "id"), req)
		if err != nil {
			handleServiceError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Supplier updated", supplier)
	}
}

// DeleteSupplier refuses with 409 while anything still references the
// supplier
func (h *Handlers) DeleteSupplier() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		if err := h.deps.Services.Suppliers.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			handleServiceError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Supplier deleted", nil)
	}
}

// UploadSupplierFile handles POST /api/v1/suppliers/{id}/upload. The form
// carries the file under "file" and the target under "dataSourceId";
// "run=true" ingests it right away.
func (h *Handlers) UploadSupplierFile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		uploads := h.deps.Services.Uploads

		r.Body = http.MaxBytesReader(w, r.Body, uploads.MaxBytes()+multipartOverhead)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				common.RespondErrorData(w, initTime, nil, constants.GetErrorMessage(constants.ErrCodeUploadTooLarge),
					map[string]string{"code": constants.ErrCodeUploadTooLarge}, http.StatusRequestEntityTooLarge)
				return
			}
			common.RespondError(w, initTime, err, "Invalid multipart form", http.StatusBadRequest)
			return
		}
		defer r.MultipartForm.RemoveAll()

		file, header, err := r.FormFile("file")
		if err != nil {
			common.RespondError(w, initTime, err, "A file field is required", http.StatusBadRequest)
			return
		}
		defer file.Close()

		run, _ := strconv.ParseBool(r.FormValue("run"))
		resp, err := uploads.Upload(r.Context(), services.UploadRequest{
			SupplierID:        chi.URLParam(r, "id"),
			DataSourceID:      r.FormValue("dataSourceId"),
			MappingTemplateID: r.FormValue("mappingTemplateId"),
			Filename:          header.Filename,
			Body:              file,
			Run:               run,
		})
		if err != nil {
			handleServiceError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "File uploaded", resp, http.StatusCreated)
	}
}
