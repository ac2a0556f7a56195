package ingestion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"mdm-platform/feedhub/internal/config"
	"mdm-platform/feedhub/internal/connectors"
	"mdm-platform/feedhub/internal/constants"
	"mdm-platform/feedhub/internal/credentials"
	"mdm-platform/feedhub/internal/parser"
)

const DefaultSampleLimit = 100

// SampleResult is a preview of a remote feed
type SampleResult struct {
	Success   bool             `json:"success"`
	Message   string           `json:"message"`
	Code      string           `json:"code,omitempty"`
	File      string           `json:"file,omitempty"`
	Headers   []string         `json:"headers,omitempty"`
	Records   []map[string]any `json:"records,omitempty"`
	Truncated bool             `json:"truncated,omitempty"`
}

// SampleOptions are the parse settings of a preview. Limit defaults to 100.
type SampleOptions struct {
	Limit     int
	HasHeader *bool
	Delimiter string
	Encoding  string
	Sheet     string
}

// Sampler pulls size-capped previews for connections that are not saved yet
type Sampler struct {
	connect  connectors.Factory
	opts     connectors.Options
	maxBytes int64
	timeout  time.Duration
}

func NewSampler(connect connectors.Factory, cfg config.IngestionConfig) *Sampler {
	if connect == nil {
		connect = connectors.New
	}
	maxBytes := cfg.SampleMaxBytes
	if maxBytes <= 0 {
		maxBytes = 5 << 20
	}
	opts := connectors.DefaultOptions()
	if cfg.ConnectTimeout > 0 {
		opts.ConnectTimeout = cfg.ConnectTimeout
	}
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Sampler{connect: connect, opts: opts, maxBytes: maxBytes, timeout: timeout}
}

// PullSample resolves the target, reads at most the configured number of
// bytes and parses the first rows. Record-oriented transports stop after
// the row limit. A csv cut by the cap is trimmed to its last
// complete line; other formats cannot be previewed partially.
func (s *Sampler) PullSample(ctx context.Context, kind string, raw map[string]any, target string, opts SampleOptions) *SampleResult {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultSampleLimit
	}

	creds, err := resolveCredentials(kind, raw)
	if err != nil {
		return sampleFailure(err)
	}
	copts := s.opts
	copts.MaxRecords = limit
	conn, err := s.connect(creds, copts)
	if err != nil {
		return sampleFailure(&RunError{Code: constants.ErrCodeConfigMalformed, Message: "failed to build connector", Err: err})
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		data      []byte
		truncated bool
		file      string
		format    string
	)
	err = connectors.WithSession(ctx, conn, s.opts.ConnectTimeout, func(ctx context.Context, c connectors.Connector) error {
		resolved, err := connectors.ResolveTarget(ctx, c, creds, connectors.TargetOptions{Explicit: target})
		if err != nil {
			return err
		}
		payload, err := c.Fetch(ctx, resolved)
		if err != nil {
			return err
		}
		defer payload.Body.Close()

		file, format = payload.Name, payload.Format
		data, truncated, err = connectors.ReadCapped(payload.Body, s.maxBytes)
		return err
	})
	if err != nil {
		return sampleFailure(transportError("failed to fetch sample", err))
	}

	if format == "" {
		format = parser.FormatOf(file)
	}
	if truncated {
		if format != parser.FormatCSV {
			return sampleFailure(&RunError{
				Code:    constants.ErrCodeSampleTooLarge,
				Message: fmt.Sprintf("%s exceeds the %d byte sample limit", file, s.maxBytes),
			})
		}
		data = parser.TrimPartialLine(data)
	}

	popts := parser.DefaultOptions()
	popts.Limit = limit
	if opts.HasHeader != nil {
		popts.HasHeader = *opts.HasHeader
	}
	if opts.Delimiter != "" {
		popts.Delimiter = opts.Delimiter
	}
	if opts.Encoding != "" {
		popts.Encoding = opts.Encoding
	}
	popts.Sheet = opts.Sheet

	table, err := parser.Parse(bytes.NewReader(data), format, popts)
	if err != nil {
		code := constants.ErrCodeParseError
		if errors.Is(err, parser.ErrUnsupportedFormat) || errors.Is(err, parser.ErrLegacyExcel) {
			code = constants.ErrCodeUnsupportedFormat
		}
		return sampleFailure(&RunError{Code: code, Message: "failed to parse " + file, Err: err})
	}

	return &SampleResult{
		Success:   true,
		Message:   fmt.Sprintf("Pulled %d records from %s", table.Len(), file),
		File:      file,
		Headers:   table.Headers,
		Records:   table.Rows,
		Truncated: truncated,
	}
}

// ListPaths walks the remote tree of an unsaved connection
func (s *Sampler) ListPaths(ctx context.Context, kind string, raw map[string]any) ([]string, error) {
	creds, err := resolveCredentials(kind, raw)
	if err != nil {
		return nil, err
	}
	conn, err := s.connect(creds, s.opts)
	if err != nil {
		return nil, &RunError{Code: constants.ErrCodeConfigMalformed, Message: "failed to build connector", Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var paths []string
	err = connectors.WithSession(ctx, conn, s.opts.ConnectTimeout, func(ctx context.Context, c connectors.Connector) error {
		var err error
		paths, err = connectors.ListRemotePaths(ctx, c, creds, 2)
		return err
	})
	if err != nil {
		return nil, transportError("failed to list remote paths", err)
	}
	return paths, nil
}

// TestConnection probes an unsaved connection
func (s *Sampler) TestConnection(ctx context.Context, kind string, raw map[string]any, timeout time.Duration) *connectors.TestResult {
	creds, err := resolveCredentials(kind, raw)
	if err != nil {
		return &connectors.TestResult{Success: false, Message: err.Error(), Code: CodeOf(err)}
	}
	conn, err := s.connect(creds, s.opts)
	if err != nil {
		return &connectors.TestResult{Success: false, Message: err.Error(), Code: constants.ErrCodeConfigMalformed}
	}
	return connectors.TestConnection(ctx, conn, timeout)
}

func resolveCredentials(kind string, raw map[string]any) (credentials.Credentials, error) {
	k, err := credentials.ParseKind(kind)
	if err != nil {
		return nil, &RunError{Code: constants.ErrCodeConfigMalformed, Message: err.Error()}
	}
	creds, err := credentials.Resolve(k, raw)
	if err != nil {
		return nil, &RunError{Code: constants.ErrCodeCredentialsInvalid, Message: "invalid credentials", Err: err}
	}
	return creds, nil
}

func sampleFailure(err error) *SampleResult {
	return &SampleResult{Success: false, Message: err.Error(), Code: CodeOf(err)}
}
