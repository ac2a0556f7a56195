// Package services holds the use cases behind the REST API and the CLI:
// connection management, configuration CRUD, schedules and test pulls.
package services

import (
	"errors"
	"fmt"

	"mdm-platform/feedhub/internal/constants"
	"mdm-platform/feedhub/internal/db/repositories"
)

// ServiceError carries a stable code for the API layer
type ServiceError struct {
	Code    string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func notFound(what, id string) error {
	return &ServiceError{Code: constants.ErrCodeNotFound, Message: fmt.Sprintf("%s %s not found", what, id)}
}

func invalid(msg string, err error) error {
	return &ServiceError{Code: constants.ErrCodeConfigMalformed, Message: msg, Err: err}
}

// rejected reports err under code with err's own text as the message
func rejected(code string, err error) error {
	return &ServiceError{Code: code, Message: err.Error(), Err: err}
}

// storage wraps a repository failure; a repository ErrNotFound becomes a
// not found error
func storage(msg string, err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return &ServiceError{Code: constants.ErrCodeNotFound, Message: msg, Err: err}
	}
	return &ServiceError{Code: constants.ErrCodeStorageError, Message: msg, Err: err}
}

// CodeOf returns the code of a ServiceError in err's chain, or STORAGE_ERROR
func CodeOf(err error) string {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Code
	}
	return constants.ErrCodeStorageError
}
