package connectors

import (
	"context"
	"errors"
	"fmt"

	"mdm-platform/feedhub/internal/constants"
)

var (
	ErrUnsupported  = errors.New("operation not supported by this transport")
	ErrNotConnected = errors.New("connector is not connected")
	ErrNotFound     = errors.New("remote path not found")
)

// ConnectorError carries a classification code alongside the transport error
type ConnectorError struct {
	Code    string
	Message string
	Err     error
}

func (e *ConnectorError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ConnectorError) Unwrap() error {
	return e.Err
}

func newError(code, message string, err error) *ConnectorError {
	return &ConnectorError{Code: code, Message: message, Err: err}
}

// CodeOf classifies any error returned by a connector
func CodeOf(err error) string {
	var ce *ConnectorError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ce):
		return ce.Code
	case errors.Is(err, context.DeadlineExceeded):
		return constants.ErrCodeTimeout
	case errors.Is(err, ErrUnsupported):
		return constants.ErrCodeUnsupported
	case errors.Is(err, ErrNotFound):
		return constants.ErrCodePathNotFound
	default:
		return constants.ErrCodeTransportError
	}
}
