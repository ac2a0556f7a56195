// Package connectors adapts the SFTP, FTP, HTTP and SQL client libraries, and
// the local upload directory, to a single connect/probe/list/fetch/delete
// surface.
package connectors

import (
	"context"
	"fmt"
	"io"
	"time"

	"mdm-platform/feedhub/internal/credentials"
	"mdm-platform/feedhub/internal/parser"
)

// Entry is one item in a remote listing
type Entry struct {
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	IsFile     bool      `json:"isFile"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// Payload is an open remote file. Callers must close Body. Truncated is set
// when a configured page cap stopped the read before the source ran out.
type Payload struct {
	Name      string
	Format    string
	Size      int64
	Body      io.ReadCloser
	Truncated bool
}

// Connector is implemented once per transport. Implementations are not safe for
// concurrent use; each ingestion run or test opens its own.
type Connector interface {
	Kind() credentials.Kind
	Connect(ctx context.Context) error
	// Probe performs one cheap read-only request against a connected transport
	Probe(ctx context.Context) (map[string]any, error)
	List(ctx context.Context, path string) ([]Entry, error)
	Stat(ctx context.Context, path string) (*Entry, error)
	Fetch(ctx context.Context, path string) (*Payload, error)
	// Delete returns ErrUnsupported on transports without a file concept
	Delete(ctx context.Context, path string) error
	Close() error
}

// Options holds transport settings shared by all connectors. MaxRecords is
// a hint for record-oriented transports (api, database) to stop reading after
// that many records; zero reads everything.
type Options struct {
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	MaxRecords     int
}

func DefaultOptions() Options {
	return Options{
		ConnectTimeout: 30 * time.Second,
		RequestTimeout: 30 * time.Second,
	}
}

// Factory builds an unconnected Connector for typed credentials
type Factory func(creds credentials.Credentials, opts Options) (Connector, error)

// New is the default Factory
func New(creds credentials.Credentials, opts Options) (Connector, error) {
	switch c := creds.(type) {
	case *credentials.SFTPCredentials:
		return NewSFTPConnector(c, opts), nil
	case *credentials.FTPCredentials:
		return NewFTPConnector(c, opts), nil
	case *credentials.APICredentials:
		return NewAPIConnector(c, opts), nil
	case *credentials.DatabaseCredentials:
		return NewDatabaseConnector(c, opts), nil
	case *credentials.UploadCredentials:
		return NewLocalConnector(c), nil
	default:
		return nil, fmt.Errorf("no connector for credentials of type %T", creds)
	}
}

// FormatOf maps a file name to its feed format, or "" when unsupported
func FormatOf(name string) string {
	return parser.FormatOf(name)
}

// IsSupported reports whether name has a csv, xlsx, xls or json extension
func IsSupported(name string) bool {
	return FormatOf(name) != ""
}
