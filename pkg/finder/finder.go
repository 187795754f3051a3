// Package finder locates Qlik script files for the command line tools.
package finder

import (
	"context"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

// DefaultExtensions are the script extensions searched when none are given.
var DefaultExtensions = []string{".qvs", ".qlik"}

// ScriptFinder is responsible for finding script files
type ScriptFinder interface {
	// FindScripts returns every file under dir whose extension is one of extensions
	FindScripts(ctx context.Context, dir string, extensions []string) ([]string, error)
	// Glob expands doublestar patterns such as "scripts/**/*.qvs"
	Glob(ctx context.Context, patterns ...string) ([]string, error)
}

// FileInfo represents a found script and its content
type FileInfo struct {
	Path    string
	Content []byte
}

// DefaultFinder searches an afero filesystem.
type DefaultFinder struct {
	fs afero.Fs
}

// NewDefaultFinder creates a new DefaultFinder over fs
func NewDefaultFinder(fs afero.Fs) *DefaultFinder {
	return &DefaultFinder{fs: fs}
}

// FindScripts implements ScriptFinder
func (f *DefaultFinder) FindScripts(ctx context.Context, dir string, extensions []string) ([]string, error) {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}

	info, err := f.fs.Stat(dir)
	if err != nil {
		return nil, errors.Errorf("reading directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("%s is not a directory", dir)
	}

	patterns := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		patterns = append(patterns, path.Join(strings.TrimSuffix(dir, "/"), "**", "*"+ext))
	}

	return f.Glob(ctx, patterns...)
}

// Glob implements ScriptFinder. Results are sorted and free of duplicates;
// directories are skipped.
func (f *DefaultFinder) Glob(ctx context.Context, patterns ...string) ([]string, error) {
	seen := map[string]struct{}{}
	var out []string

	for _, pattern := range patterns {
		if err := ctx.Err(); err != nil {
			return nil, errors.Errorf("glob interrupted: %w", err)
		}
		if !doublestar.ValidatePattern(pattern) {
			return nil, errors.Errorf("invalid glob pattern %q", pattern)
		}

		// io/fs paths are unrooted, so absolute patterns are served from a
		// filesystem rooted at their static prefix
		base, rest := ".", pattern
		fsys := afero.NewIOFS(f.fs)
		if path.IsAbs(pattern) {
			base, rest = doublestar.SplitPattern(pattern)
			fsys = afero.NewIOFS(afero.NewBasePathFs(f.fs, base))
		}

		matches, err := doublestar.Glob(fsys, rest, doublestar.WithFilesOnly())
		if err != nil {
			return nil, errors.Errorf("expanding %q: %w", pattern, err)
		}

		zerolog.Ctx(ctx).Debug().Str("pattern", pattern).Int("matches", len(matches)).Msg("glob expanded")

		for _, m := range matches {
			full := path.Join(base, m)
			if _, ok := seen[full]; ok {
				continue
			}
			seen[full] = struct{}{}
			out = append(out, full)
		}
	}

	sort.Strings(out)
	return out, nil
}

// ReadScripts loads the content of every path.
func (f *DefaultFinder) ReadScripts(paths []string) ([]FileInfo, error) {
	out := make([]FileInfo, 0, len(paths))
	for _, p := range paths {
		data, err := afero.ReadFile(f.fs, p)
		if err != nil {
			return nil, errors.Errorf("reading script %s: %w", p, err)
		}
		out = append(out, FileInfo{Path: p, Content: data})
	}
	return out, nil
}
