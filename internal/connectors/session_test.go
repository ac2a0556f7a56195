package connectors

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"mdm-platform/feedhub/internal/credentials"
)

// mockConnector records calls and lets each test script the transport
type mockConnector struct {
	connectFunc func(ctx context.Context) error
	probeFunc   func(ctx context.Context) (map[string]any, error)
	listFunc    func(ctx context.Context, path string) ([]Entry, error)
	statFunc    func(ctx context.Context, path string) (*Entry, error)
	fetchFunc   func(ctx context.Context, path string) (*Payload, error)
	deleteFunc  func(ctx context.Context, path string) error

	kind       credentials.Kind
	closeCalls atomic.Int32
	closed     chan struct{}
}

func newMockConnector() *mockConnector {
	return &mockConnector{kind: credentials.KindSFTP, closed: make(chan struct{})}
}

func (m *mockConnector) Kind() credentials.Kind { return m.kind }

func (m *mockConnector) Connect(ctx context.Context) error {
	if m.connectFunc != nil {
		return m.connectFunc(ctx)
	}
	return nil
}

func (m *mockConnector) Probe(ctx context.Context) (map[string]any, error) {
	if m.probeFunc != nil {
		return m.probeFunc(ctx)
	}
	return map[string]any{"ok": true}, nil
}

func (m *mockConnector) List(ctx context.Context, path string) ([]Entry, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, path)
	}
	return nil, nil
}

func (m *mockConnector) Stat(ctx context.Context, path string) (*Entry, error) {
	if m.statFunc != nil {
		return m.statFunc(ctx, path)
	}
	return nil, ErrNotFound
}

func (m *mockConnector) Fetch(ctx context.Context, path string) (*Payload, error) {
	if m.fetchFunc != nil {
		return m.fetchFunc(ctx, path)
	}
	return nil, ErrNotFound
}

func (m *mockConnector) Delete(ctx context.Context, path string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, path)
	}
	return nil
}

func (m *mockConnector) Close() error {
	if m.closeCalls.Add(1) == 1 {
		close(m.closed)
	}
	return nil
}

func TestTestConnection_Success(t *testing.T) {
	conn := newMockConnector()

	res := TestConnection(context.Background(), conn, time.Second)

	if !res.Success {
		t.Fatalf("Expected success, got %+v", res)
	}
	if conn.closeCalls.Load() != 1 {
		t.Errorf("Expected 1 close call, got %d", conn.closeCalls.Load())
	}
}

func TestTestConnection_ErrorStillCloses(t *testing.T) {
	conn := newMockConnector()
	conn.probeFunc = func(ctx context.Context) (map[string]any, error) {
		return nil, errors.New("permission denied")
	}

	res := TestConnection(context.Background(), conn, time.Second)

	if res.Success {
		t.Fatal("Expected failure")
	}
	if !strings.Contains(res.Message, "permission denied") {
		t.Errorf("Expected message to carry the cause, got %q", res.Message)
	}
	if conn.closeCalls.Load() != 1 {
		t.Errorf("Expected 1 close call, got %d", conn.closeCalls.Load())
	}
}

func TestTestConnection_TimeoutForceClosesOnce(t *testing.T) {
	conn := newMockConnector()
	// the transport never reports ready or error; it only unblocks once closed
	conn.connectFunc = func(ctx context.Context) error {
		<-conn.closed
		return errors.New("use of closed connection")
	}

	res := TestConnection(context.Background(), conn, 50*time.Millisecond)

	if res.Success {
		t.Fatal("Expected failure on timeout")
	}
	if res.Message != "timeout" {
		t.Errorf("Expected message timeout, got %q", res.Message)
	}

	// give the worker goroutine time to unwind and attempt its own close
	time.Sleep(50 * time.Millisecond)
	if got := conn.closeCalls.Load(); got != 1 {
		t.Errorf("Expected close call count 1, got %d", got)
	}
}

func TestTestConnection_PanicIsRecovered(t *testing.T) {
	conn := newMockConnector()
	conn.probeFunc = func(ctx context.Context) (map[string]any, error) {
		panic("nil map write")
	}

	res := TestConnection(context.Background(), conn, time.Second)

	if res.Success {
		t.Fatal("Expected failure")
	}
	if conn.closeCalls.Load() != 1 {
		t.Errorf("Expected 1 close call, got %d", conn.closeCalls.Load())
	}
}

func TestWithSession_ClosesOnEveryPath(t *testing.T) {
	ok := newMockConnector()
	if err := WithSession(context.Background(), ok, time.Second, func(ctx context.Context, c Connector) error { return nil }); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	failing := newMockConnector()
	err := WithSession(context.Background(), failing, time.Second, func(ctx context.Context, c Connector) error {
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("Expected error")
	}

	hanging := newMockConnector()
	hanging.connectFunc = func(ctx context.Context) error {
		<-hanging.closed
		return errors.New("closed")
	}
	err = WithSession(context.Background(), hanging, 30*time.Millisecond, func(ctx context.Context, c Connector) error {
		t.Error("fn must not run when connect times out")
		return nil
	})
	if CodeOf(err) != "TIMEOUT" {
		t.Errorf("Expected TIMEOUT, got %v", err)
	}

	time.Sleep(30 * time.Millisecond)
	for name, m := range map[string]*mockConnector{"ok": ok, "failing": failing, "hanging": hanging} {
		if got := m.closeCalls.Load(); got != 1 {
			t.Errorf("%s: expected 1 close call, got %d", name, got)
		}
	}
}

func TestReadCapped(t *testing.T) {
	data, truncated, err := ReadCapped(strings.NewReader("abcdef"), 4)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if string(data) != "abcd" || !truncated {
		t.Errorf("Expected abcd truncated, got %q %v", data, truncated)
	}

	data, truncated, _ = ReadCapped(strings.NewReader("abcd"), 4)
	if string(data) != "abcd" || truncated {
		t.Errorf("Expected abcd untruncated, got %q %v", data, truncated)
	}

	data, truncated, _ = ReadCapped(io.LimitReader(strings.NewReader("xyz"), 3), 0)
	if string(data) != "xyz" || truncated {
		t.Errorf("Expected uncapped read, got %q %v", data, truncated)
	}
}
