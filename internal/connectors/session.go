package connectors

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"mdm-platform/feedhub/internal/constants"
	"mdm-platform/feedhub/internal/logging"
)

// TestResult is the outcome of a connection test. It never carries a raw panic.
type TestResult struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Code    string         `json:"code,omitempty"`
}

// closer guarantees Close is called on the underlying connector exactly once,
// whichever of the worker goroutine and the timeout path gets there first
type closer struct {
	conn Connector
	once sync.Once
}

func (c *closer) close() {
	c.once.Do(func() {
		if err := c.conn.Close(); err != nil {
			logging.Debug("Connector close returned error", "kind", c.conn.Kind(), "error", err.Error())
		}
	})
}

// TestConnection connects, probes and disconnects, bounded by timeout. On
// expiry the transport is force-closed and the result message is "timeout".
func TestConnection(ctx context.Context, conn Connector, timeout time.Duration) *TestResult {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cl := &closer{conn: conn}
	done := make(chan *TestResult, 1)

	go func() {
		defer cl.close()
		defer func() {
			if r := recover(); r != nil {
				done <- &TestResult{
					Success: false,
					Message: fmt.Sprintf("connector failed unexpectedly: %v", r),
					Code:    constants.ErrCodeTransportError,
				}
			}
		}()

		if err := conn.Connect(ctx); err != nil {
			done <- failure("connection failed", err)
			return
		}
		details, err := conn.Probe(ctx)
		if err != nil {
			done <- failure("probe failed", err)
			return
		}
		done <- &TestResult{Success: true, Message: "Connection successful", Details: details}
	}()

	select {
	case res := <-done:
		if !res.Success && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return timeoutResult()
		}
		return res
	case <-ctx.Done():
		cl.close()
		return timeoutResult()
	}
}

func timeoutResult() *TestResult {
	return &TestResult{Success: false, Message: "timeout", Code: constants.ErrCodeTimeout}
}

func failure(prefix string, err error) *TestResult {
	return &TestResult{
		Success: false,
		Message: fmt.Sprintf("%s: %v", prefix, err),
		Code:    CodeOf(err),
	}
}

// WithSession connects, runs fn and closes the connector on every exit path.
// The connect step alone is bounded by connectTimeout.
func WithSession(ctx context.Context, conn Connector, connectTimeout time.Duration, fn func(ctx context.Context, conn Connector) error) (err error) {
	cl := &closer{conn: conn}
	defer cl.close()

	defer func() {
		if r := recover(); r != nil {
			err = newError(constants.ErrCodeTransportError, "connector failed unexpectedly", fmt.Errorf("%v", r))
		}
	}()

	if err := connectWithTimeout(ctx, conn, cl, connectTimeout); err != nil {
		return err
	}
	return fn(ctx, conn)
}

func connectWithTimeout(ctx context.Context, conn Connector, cl *closer, timeout time.Duration) error {
	if timeout <= 0 {
		return conn.Connect(ctx)
	}

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- conn.Connect(cctx)
	}()

	select {
	case err := <-done:
		if err != nil {
			return newError(CodeOf(err), "connection failed", err)
		}
		return nil
	case <-cctx.Done():
		cl.close()
		return newError(constants.ErrCodeTimeout, "timeout", cctx.Err())
	}
}

// ReadCapped reads at most max bytes from r. truncated reports whether more
// data remained beyond the cap.
func ReadCapped(r io.Reader, max int64) (data []byte, truncated bool, err error) {
	if max <= 0 {
		data, err = io.ReadAll(r)
		return data, false, err
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, max+1))
	if err != nil {
		return nil, false, err
	}
	if n > max {
		return buf.Bytes()[:max], true, nil
	}
	return buf.Bytes(), false, nil
}
