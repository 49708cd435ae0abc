package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"
)

// FSSource implements Source for a directory inside an fs.FS.
// It is the usual way to ship default message bundles inside the binary.
type FSSource struct {
	name string
	fsys fs.FS
	dir  string
}

// NewFS creates a source for dir inside fsys. The name is used in logs.
//
// Example:
//
//	//go:embed messages/*.json
//	var messagesFS embed.FS
//
//	src, err := source.NewFS("embedded", messagesFS, "messages")
func NewFS(name string, fsys fs.FS, dir string) (*FSSource, error) {
	if fsys == nil {
		return nil, fmt.Errorf("%w: nil fs.FS", ErrInvalidConfig)
	}

	dir = strings.Trim(path.Clean("/"+dir), "/")
	if dir == "" {
		dir = "."
	}

	info, err := fs.Stat(fsys, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s:%s", ErrNotFound, name, dir)
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s:%s", ErrNotDirectory, name, dir)
	}

	if name == "" {
		name = "fs:" + dir
	}
	return &FSSource{name: name, fsys: fsys, dir: dir}, nil
}

// Name returns the configured source name.
func (f *FSSource) Name() string {
	return f.name
}

// List returns the files directly inside the directory.
func (f *FSSource) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := fs.ReadDir(f.fsys, f.dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", f.name, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

// Open opens a file directly inside the directory.
func (f *FSSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := f.fsys.Open(path.Join(f.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s:%s", ErrNotFound, f.name, name)
		}
		return nil, err
	}
	return file, nil
}

// Close is a no-op for fs.FS sources.
func (f *FSSource) Close() error {
	return nil
}
