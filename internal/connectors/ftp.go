package connectors

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/textproto"
	"path"
	"strconv"
	"strings"
	"sync"

	"github.com/jlaffaye/ftp"

	"mdm-platform/feedhub/internal/constants"
	"mdm-platform/feedhub/internal/credentials"
)

// FTPConnector speaks plain FTP or explicit FTPS
type FTPConnector struct {
	creds *credentials.FTPCredentials
	opts  Options

	mu     sync.Mutex
	closed bool
	conn   *ftp.ServerConn
}

func NewFTPConnector(creds *credentials.FTPCredentials, opts Options) *FTPConnector {
	return &FTPConnector{creds: creds, opts: opts}
}

func (c *FTPConnector) Kind() credentials.Kind { return credentials.KindFTP }

func (c *FTPConnector) Connect(ctx context.Context) error {
	addr := net.JoinHostPort(c.creds.Host, strconv.Itoa(c.creds.Port))

	dialOpts := []ftp.DialOption{ftp.DialWithContext(ctx)}
	if c.opts.ConnectTimeout > 0 {
		dialOpts = append(dialOpts, ftp.DialWithTimeout(c.opts.ConnectTimeout))
	}
	if c.creds.TLS {
		dialOpts = append(dialOpts, ftp.DialWithExplicitTLS(&tls.Config{ServerName: c.creds.Host}))
	}

	conn, err := ftp.Dial(addr, dialOpts...)
	if err != nil {
		return newError(constants.ErrCodeTransportError, "failed to reach "+addr, err)
	}
	if err := conn.Login(c.creds.Username, c.creds.Password); err != nil {
		_ = conn.Quit()
		return newError(constants.ErrCodeAuthenticationFailed, "ftp login failed", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		_ = conn.Quit()
		return newError(constants.ErrCodeTimeout, "connection closed during connect", context.Canceled)
	}
	c.conn = conn
	return nil
}

func (c *FTPConnector) Probe(ctx context.Context) (map[string]any, error) {
	if c.conn == nil {
		return nil, ErrNotConnected
	}

	dir := c.creds.RemotePath
	if dir == "" {
		cwd, err := c.conn.CurrentDir()
		if err != nil {
			return nil, newError(constants.ErrCodeTransportError, "failed to read working directory", err)
		}
		dir = cwd
	}
	entries, err := c.conn.List(dir)
	if err != nil {
		return nil, newError(constants.ErrCodePathNotFound, "failed to list "+dir, err)
	}
	return map[string]any{"path": dir, "entries": len(entries)}, nil
}

func (c *FTPConnector) List(ctx context.Context, dir string) ([]Entry, error) {
	if c.conn == nil {
		return nil, ErrNotConnected
	}

	raw, err := c.conn.List(dir)
	if err != nil {
		return nil, wrapFTPError("failed to list "+dir, err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, e := range raw {
		if e.Name == "." || e.Name == ".." {
			continue
		}
		entries = append(entries, Entry{
			Name:       e.Name,
			Path:       path.Join(dir, e.Name),
			IsFile:     e.Type == ftp.EntryTypeFile,
			Size:       int64(e.Size),
			ModifiedAt: e.Time,
		})
	}
	return entries, nil
}

// Stat lists the parent directory since MLST support varies between servers
func (c *FTPConnector) Stat(ctx context.Context, p string) (*Entry, error) {
	if c.conn == nil {
		return nil, ErrNotConnected
	}

	clean := path.Clean("/" + strings.TrimPrefix(p, "/"))
	if clean == "/" {
		return &Entry{Name: "/", Path: p, IsFile: false}, nil
	}

	parent, name := path.Split(strings.TrimSuffix(p, "/"))
	if parent == "" {
		parent = "."
	}
	entries, err := c.List(ctx, parent)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].Name == name {
			entries[i].Path = p
			return &entries[i], nil
		}
	}
	return nil, newError(constants.ErrCodePathNotFound, "remote path not found: "+p, ErrNotFound)
}

func (c *FTPConnector) Fetch(ctx context.Context, p string) (*Payload, error) {
	if c.conn == nil {
		return nil, ErrNotConnected
	}

	var size int64
	if n, err := c.conn.FileSize(p); err == nil {
		size = n
	}
	resp, err := c.conn.Retr(p)
	if err != nil {
		return nil, wrapFTPError("failed to retrieve "+p, err)
	}
	return &Payload{Name: path.Base(p), Format: FormatOf(p), Size: size, Body: resp}, nil
}

func (c *FTPConnector) Delete(ctx context.Context, p string) error {
	if c.conn == nil {
		return ErrNotConnected
	}
	if err := c.conn.Delete(p); err != nil {
		return wrapFTPError("failed to delete "+p, err)
	}
	return nil
}

func (c *FTPConnector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true

	if c.conn == nil {
		return nil
	}
	err := c.conn.Quit()
	c.conn = nil
	return err
}

func wrapFTPError(message string, err error) error {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) && protoErr.Code == ftp.StatusFileUnavailable {
		return newError(constants.ErrCodePathNotFound, message, ErrNotFound)
	}
	return newError(constants.ErrCodeTransportError, message, err)
}
