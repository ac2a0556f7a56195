package ingestion

import (
	"errors"
	"fmt"

	"mdm-platform/feedhub/internal/connectors"
	"mdm-platform/feedhub/internal/constants"
)

// RunError is a failure that ends an ingestion run
type RunError struct {
	Code    string
	Message string
	Err     error
}

func (e *RunError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *RunError) Unwrap() error {
	return e.Err
}

func configError(code, message string) *RunError {
	if message == "" {
		message = constants.GetErrorMessage(code)
	}
	return &RunError{Code: code, Message: message}
}

func storageError(message string, err error) *RunError {
	return &RunError{Code: constants.ErrCodeStorageError, Message: message, Err: err}
}

// transportError keeps the connector's own classification
func transportError(message string, err error) *RunError {
	return &RunError{Code: connectors.CodeOf(err), Message: message, Err: err}
}

// CodeOf returns the code carried by err, or INTERNAL_ERROR
func CodeOf(err error) string {
	var re *RunError
	if errors.As(err, &re) {
		return re.Code
	}
	return constants.ErrCodeInternal
}
