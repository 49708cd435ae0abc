package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DirSource implements Source for a directory on the local file system.
type DirSource struct {
	path string
}

// NewDir creates a source for the directory at path.
// The path is expanded (see ExpandPath) and made absolute; it must exist.
//
// Example:
//
//	src, err := source.NewDir("~/app/messages")
func NewDir(path string) (*DirSource, error) {
	expanded, err := ExpandPath(path)
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(expanded)
	if err != nil {
		return nil, fmt.Errorf("resolving %q: %w", path, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, abs)
		}
		return nil, fmt.Errorf("stat %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, abs)
	}

	return &DirSource{path: abs}, nil
}

// Name returns the absolute directory path.
func (d *DirSource) Name() string {
	return d.path
}

// Path returns the absolute directory path.
func (d *DirSource) Path() string {
	return d.path
}

// List returns the regular files directly inside the directory.
// Hidden files are skipped.
func (d *DirSource) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(d.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, d.path)
		}
		return nil, fmt.Errorf("reading %s: %w", d.path, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if !entry.Type().IsRegular() && entry.Type()&fs.ModeSymlink == 0 {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

// Open opens a file directly inside the directory.
func (d *DirSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(d.path, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, filepath.Join(d.path, name))
		}
		return nil, err
	}
	return f, nil
}

// Close is a no-op for directory sources.
func (d *DirSource) Close() error {
	return nil
}

// ExpandPath expands environment variables ($VAR, ${VAR}) and a leading "~"
// in path. A variable that is not set makes the path invalid.
func ExpandPath(path string) (string, error) {
	var unset []string
	expanded := os.Expand(path, func(name string) string {
		value, ok := os.LookupEnv(name)
		if !ok {
			unset = append(unset, name)
		}
		return value
	})
	if len(unset) > 0 {
		return "", fmt.Errorf("%w: %q uses unset variable %s", ErrInvalidConfig, path, strings.Join(unset, ", "))
	}
	path = expanded

	if path == "~" || strings.HasPrefix(path, "~/") || strings.HasPrefix(path, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expanding %q: %w", path, err)
		}
		path = filepath.Join(home, path[1:])
	}

	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidConfig)
	}
	return path, nil
}
