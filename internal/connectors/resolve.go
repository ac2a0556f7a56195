package connectors

import (
	"context"
	"path"
	"sort"
	"strings"

	"mdm-platform/feedhub/internal/constants"
	"mdm-platform/feedhub/internal/credentials"
)

// TargetOptions carries the non-credential inputs to target resolution
type TargetOptions struct {
	// Explicit is a path supplied by the caller for this one operation
	Explicit string
	// DefaultDir is the data source's configured directory or endpoint
	DefaultDir string
	// FilePattern is an optional glob applied to file names in a directory
	FilePattern string
}

// ResolveTarget picks the remote file to read. Priority: explicit path, path in
// the credentials, data source default directory, first candidate path that
// exists, then the root. Directories are listed and narrowed to a supported
// file, preferring a case-insensitive match on the requested file name.
func ResolveTarget(ctx context.Context, conn Connector, creds credentials.Credentials, opts TargetOptions) (string, error) {
	target := firstNonEmpty(opts.Explicit, creds.Path(), opts.DefaultDir)

	if target == "" {
		for _, candidate := range creds.Candidates() {
			if candidate == "" {
				continue
			}
			if _, err := conn.Stat(ctx, candidate); err == nil {
				target = candidate
				break
			}
		}
	}

	if target == "" {
		switch conn.Kind() {
		case credentials.KindAPI, credentials.KindDatabase:
			// the connector's own endpoint or query applies
			return "", nil
		default:
			target = "/"
		}
	}

	entry, err := conn.Stat(ctx, target)
	if err == nil && entry.IsFile {
		return target, nil
	}
	if err == nil {
		return selectFromDir(ctx, conn, target, "", opts.FilePattern)
	}

	// the path does not exist; if it names a file, look for it in the parent
	base := path.Base(target)
	if looksLikeFilename(base) {
		return selectFromDir(ctx, conn, path.Dir(target), base, opts.FilePattern)
	}
	return "", newError(constants.ErrCodePathNotFound, "remote path not found: "+target, err)
}

func selectFromDir(ctx context.Context, conn Connector, dir, wantName, pattern string) (string, error) {
	entries, err := conn.List(ctx, dir)
	if err != nil {
		return "", newError(CodeOf(err), "failed to list "+dir, err)
	}

	picked := SelectFile(entries, wantName, pattern)
	if picked == nil {
		return "", newError(constants.ErrCodeNoSupportedFile, "no supported file in "+dir, nil)
	}
	if picked.Path != "" {
		return picked.Path, nil
	}
	return path.Join(dir, picked.Name), nil
}

// SelectFile filters entries to supported files matching pattern, sorted by name.
// A case-insensitive exact match on wantName wins; otherwise the first file does.
func SelectFile(entries []Entry, wantName, pattern string) *Entry {
	files := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if !e.IsFile || !IsSupported(e.Name) {
			continue
		}
		if pattern != "" {
			if ok, _ := path.Match(pattern, e.Name); !ok {
				continue
			}
		}
		files = append(files, e)
	}
	if len(files) == 0 {
		return nil
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	if wantName != "" {
		for i := range files {
			if strings.EqualFold(files[i].Name, wantName) {
				return &files[i]
			}
		}
	}
	return &files[0]
}

const maxListedPaths = 500

// ListRemotePaths walks the remote tree from the credentials path (or root) and
// returns directories and supported files, depth-bounded to at most two levels.
func ListRemotePaths(ctx context.Context, conn Connector, creds credentials.Credentials, maxDepth int) ([]string, error) {
	if maxDepth <= 0 || maxDepth > 2 {
		maxDepth = 2
	}

	root := creds.Path()
	if root == "" {
		root = "/"
	}

	var out []string
	var walk func(dir string, depth int) error
	walk = func(dir string, depth int) error {
		if depth > maxDepth || len(out) >= maxListedPaths {
			return nil
		}
		entries, err := conn.List(ctx, dir)
		if err != nil {
			if depth == 1 {
				return err
			}
			return nil
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

		for _, e := range entries {
			if len(out) >= maxListedPaths {
				return nil
			}
			if e.Name == "." || e.Name == ".." {
				continue
			}
			full := e.Path
			if full == "" {
				full = path.Join(dir, e.Name)
			}
			if e.IsFile {
				if IsSupported(e.Name) {
					out = append(out, full)
				}
				continue
			}
			out = append(out, full+"/")
			if err := walk(full, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(root, 1); err != nil {
		return nil, newError(CodeOf(err), "failed to list remote paths", err)
	}
	return out, nil
}

func looksLikeFilename(segment string) bool {
	ext := path.Ext(segment)
	return ext != "" && ext != segment
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
