package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"mdm-platform/feedhub/internal/connectors"
	"mdm-platform/feedhub/internal/constants"
	gormModels "mdm-platform/feedhub/internal/models/gorm"
	"mdm-platform/feedhub/internal/parser"
)

// spooled is a fetched feed copied to local disk
type spooled struct {
	path      string
	name      string
	format    string
	size      int64
	truncated bool
}

func (s *spooled) remove() {
	if s == nil || s.path == "" {
		return
	}
	_ = os.Remove(s.path)
}

func (e *Engine) options() connectors.Options {
	return connectors.Options{ConnectTimeout: e.cfg.ConnectTimeout, RequestTimeout: e.cfg.FetchTimeout}
}

// fetch resolves the remote target and streams it into a temp file. The
// temp file is removed here on failure; on success the caller owns it.
func (e *Engine) fetch(ctx context.Context, r *run) (*spooled, error) {
	conn, err := e.connect(r.creds, e.options())
	if err != nil {
		return nil, &RunError{Code: constants.ErrCodeConfigMalformed, Message: "failed to build connector", Err: err}
	}

	fctx, cancel := context.WithTimeout(ctx, e.cfg.FetchTimeout)
	defer cancel()

	var out *spooled
	err = connectors.WithSession(fctx, conn, e.cfg.ConnectTimeout, func(ctx context.Context, c connectors.Connector) error {
		target, err := connectors.ResolveTarget(ctx, c, r.creds, connectors.TargetOptions{
			Explicit:    r.req.Path,
			DefaultDir:  r.ds.Config.RemoteDirectory,
			FilePattern: r.ds.Config.FilePattern,
		})
		if err != nil {
			return err
		}

		payload, err := c.Fetch(ctx, target)
		if err != nil {
			return err
		}
		defer payload.Body.Close()

		s, err := e.spool(payload)
		if err != nil {
			return err
		}
		s.truncated = payload.Truncated
		out = s
		r.remotePath = target
		return nil
	})
	if err != nil {
		out.remove()
		var re *RunError
		if errors.As(err, &re) {
			return nil, re
		}
		return nil, transportError("failed to fetch feed", err)
	}

	r.imp.Filename = out.name
	if out.truncated {
		r.log.Warnw("Remote feed hit the configured page limit", "path", r.remotePath)
		r.addWarning(e.cfg.MaxReportedErrors, gormModels.ImportError{
			Code:    constants.ErrCodeFeedTruncated,
			Message: constants.GetErrorMessage(constants.ErrCodeFeedTruncated),
		})
	}
	if e.archive != nil {
		e.archiveRaw(ctx, r, out)
	}
	return out, nil
}

func (e *Engine) spool(p *connectors.Payload) (*spooled, error) {
	format := p.Format
	if format == "" {
		format = parser.FormatOf(p.Name)
	}
	if format == "" {
		return nil, &RunError{Code: constants.ErrCodeUnsupportedFormat, Message: "unsupported file type: " + p.Name}
	}

	f, err := os.CreateTemp(e.cfg.TempDir, "feedhub-*."+format)
	if err != nil {
		return nil, &RunError{Code: constants.ErrCodeStorageError, Message: "failed to create temp file", Err: err}
	}
	s := &spooled{path: f.Name(), name: path.Base(p.Name), format: format}

	n, err := io.Copy(f, p.Body)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		s.remove()
		return nil, &RunError{Code: constants.ErrCodeTransportError, Message: "failed to download " + p.Name, Err: err}
	}
	s.size = n
	return s, nil
}

// archiveRaw uploads the spooled feed. Failures only add a warning.
func (e *Engine) archiveRaw(ctx context.Context, r *run, s *spooled) {
	f, err := os.Open(s.path)
	if err != nil {
		r.log.Warnw("Failed to open spooled feed for archiving", "error", err.Error())
		return
	}
	defer f.Close()

	key := fmt.Sprintf("%s/%s/%s", r.supplierID, r.imp.ID, s.name)
	if err := e.archive.Archive(ctx, key, f, s.size, contentType(s.format)); err != nil {
		r.log.Warnw("Failed to archive raw feed", "key", key, "error", err.Error())
		r.addWarning(e.cfg.MaxReportedErrors, gormModels.ImportError{
			Code:    constants.ErrCodeArchive,
			Message: err.Error(),
		})
	}
}

func contentType(format string) string {
	switch strings.ToLower(format) {
	case parser.FormatCSV:
		return "text/csv"
	case parser.FormatJSON:
		return "application/json"
	case parser.FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case parser.FormatXLS:
		return "application/vnd.ms-excel"
	default:
		return "application/octet-stream"
	}
}

// deleteRemote removes the processed file in a fresh session
func (e *Engine) deleteRemote(ctx context.Context, r *run) error {
	conn, err := e.connect(r.creds, e.options())
	if err != nil {
		return err
	}
	return connectors.WithSession(ctx, conn, e.cfg.ConnectTimeout, func(ctx context.Context, c connectors.Connector) error {
		return c.Delete(ctx, r.remotePath)
	})
}
