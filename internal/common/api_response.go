package common

import (
	"encoding/json"
	"net/http"
	"time"

	"mdm-platform/feedhub/internal/constants"
	"mdm-platform/feedhub/internal/logging"
	"mdm-platform/feedhub/internal/models/dtos"
)

// RespondSuccess sends a standardized JSON success response.
func RespondSuccess(w http.ResponseWriter, initTime time.Time, message string, data any, statusCode ...int) {
	code := http.StatusOK
	if len(statusCode) > 0 {
		code = statusCode[0]
	}

	response := dtos.APIResponse{
		Status:       string(constants.APIStatusOk),
		Message:      message,
		ResponseTime: GetResponseTime(initTime),
		Data:         data,
	}

	writeJSON(w, code, response)
}

// RespondError sends a standardized JSON error response. The error text
// wins over message when both are present.
func RespondError(w http.ResponseWriter, initTime time.Time, err error, message string, statusCode ...int) {
	RespondErrorData(w, initTime, err, message, nil, statusCode...)
}

// RespondErrorData is RespondError with a structured body, such as a failed
// test result or the error list of an import
func RespondErrorData(w http.ResponseWriter, initTime time.Time, err error, message string, data any, statusCode ...int) {
	code := http.StatusInternalServerError
	if len(statusCode) > 0 {
		code = statusCode[0]
	}

	msg := message
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}

	response := dtos.APIResponse{
		Status:       string(constants.APIStatusError),
		Message:      msg,
		ResponseTime: GetResponseTime(initTime),
		Data:         data,
	}

	writeJSON(w, code, response)
}

// writeJSON marshals data and writes it to the HTTP response.
func writeJSON(w http.ResponseWriter, code int, body dtos.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Error("JSON encode failed", "error", err)
	}
}
