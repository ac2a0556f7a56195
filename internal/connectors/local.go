package connectors

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"mdm-platform/feedhub/internal/constants"
	"mdm-platform/feedhub/internal/credentials"
)

// LocalConnector serves uploaded feeds from a directory on this host. Paths
// are slash-separated and rooted at the directory; "/" is the directory
// itself.
type LocalConnector struct {
	creds     *credentials.UploadCredentials
	root      string
	connected bool
}

func NewLocalConnector(creds *credentials.UploadCredentials) *LocalConnector {
	return &LocalConnector{creds: creds, root: filepath.Clean(creds.Directory)}
}

func (c *LocalConnector) Kind() credentials.Kind { return credentials.KindUpload }

func (c *LocalConnector) Connect(ctx context.Context) error {
	info, err := os.Stat(c.root)
	if err != nil {
		return wrapFSError("upload directory is not readable", err)
	}
	if !info.IsDir() {
		return newError(constants.ErrCodeConfigMalformed, "upload path is not a directory: "+c.root, nil)
	}
	c.connected = true
	return nil
}

// resolve maps a virtual path onto the directory, refusing anything that
// climbs out of it
func (c *LocalConnector) resolve(p string) (string, error) {
	clean := path.Clean("/" + strings.TrimPrefix(p, "/"))
	full := filepath.Join(c.root, filepath.FromSlash(clean))
	rel, err := filepath.Rel(c.root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", newError(constants.ErrCodePathNotFound, "path escapes the upload directory: "+p, ErrNotFound)
	}
	return full, nil
}

func (c *LocalConnector) Probe(ctx context.Context) (map[string]any, error) {
	if !c.connected {
		return nil, ErrNotConnected
	}
	entries, err := os.ReadDir(c.root)
	if err != nil {
		return nil, wrapFSError("failed to list upload directory", err)
	}
	return map[string]any{"directory": c.root, "entries": len(entries)}, nil
}

func (c *LocalConnector) List(ctx context.Context, dir string) ([]Entry, error) {
	if !c.connected {
		return nil, ErrNotConnected
	}
	full, err := c.resolve(dir)
	if err != nil {
		return nil, err
	}

	dirEntries, err := os.ReadDir(full)
	if err != nil {
		return nil, wrapFSError("failed to list "+dir, err)
	}
	base := path.Clean("/" + strings.TrimPrefix(dir, "/"))
	entries := make([]Entry, 0, len(dirEntries))
	for _, d := range dirEntries {
		info, err := d.Info()
		if err != nil {
			continue
		}
		entries = append(entries, entryFromInfo(path.Join(base, d.Name()), info))
	}
	return entries, nil
}

func (c *LocalConnector) Stat(ctx context.Context, p string) (*Entry, error) {
	if !c.connected {
		return nil, ErrNotConnected
	}
	full, err := c.resolve(p)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return nil, wrapFSError("failed to stat "+p, err)
	}
	e := entryFromInfo(p, info)
	return &e, nil
}

func (c *LocalConnector) Fetch(ctx context.Context, p string) (*Payload, error) {
	if !c.connected {
		return nil, ErrNotConnected
	}
	full, err := c.resolve(p)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, wrapFSError("failed to open "+p, err)
	}

	var size int64
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}
	return &Payload{Name: path.Base(p), Format: FormatOf(p), Size: size, Body: f}, nil
}

func (c *LocalConnector) Delete(ctx context.Context, p string) error {
	if !c.connected {
		return ErrNotConnected
	}
	full, err := c.resolve(p)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		return wrapFSError("failed to delete "+p, err)
	}
	return nil
}

func (c *LocalConnector) Close() error {
	c.connected = false
	return nil
}
