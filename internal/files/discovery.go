// Package files locates input files under the data root.
package files

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Discovery errors.
var (
	ErrEmptyPattern = errors.New("pattern is empty")
	ErrNotDirectory = errors.New("search root is not a directory")
)

// FileInfo represents information about a discovered file.
type FileInfo struct {
	ModTime time.Time
	Path    string
	Name    string
	Size    int64
}

// Discovery provides file discovery operations.
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance rooted at basePath.
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// FindRecursive walks the base path, root included, and returns every regular
// file whose base name matches the glob pattern. Results follow the lexical
// walk order. Subdirectories that cannot be read are skipped.
func (d *Discovery) FindRecursive(pattern string) ([]FileInfo, error) {
	if pattern == "" {
		return nil, ErrEmptyPattern
	}

	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
	}

	root, err := os.Stat(d.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", d.basePath, err)
	}

	if !root.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, d.basePath)
	}

	var found []FileInfo

	walkErr := filepath.WalkDir(d.basePath, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if path == d.basePath {
				return err
			}

			if entry != nil && entry.IsDir() {
				return fs.SkipDir
			}

			return nil
		}

		if !entry.Type().IsRegular() {
			return nil
		}

		if ok, _ := filepath.Match(pattern, entry.Name()); !ok {
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			return nil
		}

		found = append(found, FileInfo{
			Path:    path,
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})

		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", d.basePath, walkErr)
	}

	return found, nil
}

// EnsureDir creates dir and any missing parents.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	return nil
}

// HasExt reports whether path ends in ext, ignoring case.
func HasExt(path, ext string) bool {
	return strings.EqualFold(filepath.Ext(path), ext)
}
