package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"mdm-platform/feedhub/internal/common"
	"mdm-platform/feedhub/internal/constants"
	"mdm-platform/feedhub/internal/db/repositories"
	"mdm-platform/feedhub/internal/ingestion"
	"mdm-platform/feedhub/internal/services"
)

// maxBodyBytes caps request bodies; credentials and templates are small
const maxBodyBytes = 1 << 20

type Handlers struct {
	deps *Dependencies
}

// NewHandlers creates a new handlers instance with injected dependencies
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		deps: deps,
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dest any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// listOptions reads ?limit= and ?offset=; bad values fall back to defaults
func listOptions(r *http.Request) repositories.ListOptions {
	var opts repositories.ListOptions
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		opts.Limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		opts.Offset = v
	}
	return opts
}

func queryBool(r *http.Request, key string) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get(key))
	return b
}

// statusForCode maps an error code to its HTTP status
func statusForCode(code string) int {
	switch code {
	case constants.ErrCodeNotFound, constants.ErrCodeConfigNotFound, constants.ErrCodeTemplateNotFound:
		return http.StatusNotFound
	case constants.ErrCodeConfigMalformed, constants.ErrCodeTemplateInvalid, constants.ErrCodeScheduleInvalid,
		constants.ErrCodeCredentialsInvalid, constants.ErrCodeSupplierRequired, constants.ErrCodeConfigNotActive:
		return http.StatusBadRequest
	case constants.ErrCodeAuthenticationFailed, constants.ErrCodeTransportError, constants.ErrCodePathNotFound,
		constants.ErrCodeNoSupportedFile, constants.ErrCodeUnsupported:
		return http.StatusBadGateway
	case constants.ErrCodeInUse:
		return http.StatusConflict
	case constants.ErrCodeUploadTooLarge:
		return http.StatusRequestEntityTooLarge
	case constants.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case constants.ErrCodeParseError, constants.ErrCodeUnsupportedFormat, constants.ErrCodeRecordInvalid,
		constants.ErrCodeSKUMissing, constants.ErrCodeSampleTooLarge:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// handleServiceError maps service and engine errors to responses. Storage
// details stay in the log; the client gets the code and its message.
func handleServiceError(w http.ResponseWriter, initTime time.Time, err error) {
	var svcErr *services.ServiceError
	if errors.As(err, &svcErr) {
		message := svcErr.Message
		if svcErr.Code == constants.ErrCodeStorageError || svcErr.Code == constants.ErrCodeInternal {
			message = constants.GetErrorMessage(svcErr.Code)
		}
		common.RespondErrorData(w, initTime, nil, message, map[string]string{"code": svcErr.Code}, statusForCode(svcErr.Code))
		return
	}

	var runErr *ingestion.RunError
	if errors.As(err, &runErr) {
		common.RespondErrorData(w, initTime, nil, runErr.Message, map[string]string{"code": runErr.Code}, statusForCode(runErr.Code))
		return
	}

	// Default to internal server error for unknown errors
	common.RespondError(w, initTime, nil, constants.GetErrorMessage(constants.ErrCodeInternal), http.StatusInternalServerError)
}
