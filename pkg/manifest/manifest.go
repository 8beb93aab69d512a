// Package manifest records checksums of the files written by a run and
// verifies them later.
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Version is the manifest format version.
const Version = "1"

// Manifest verification errors.
var (
	ErrHashMismatch = errors.New("hash mismatch")
	ErrSizeMismatch = errors.New("size mismatch")
	ErrNoEntry      = errors.New("file is not listed in the manifest")
)

// Entry describes one written file.
type Entry struct {
	Path    string `yaml:"path"`
	RunID   string `yaml:"run_id,omitempty"`
	Family  string `yaml:"family"`
	Kind    string `yaml:"kind"`
	SHA256  string `yaml:"sha256"`
	Size    int64  `yaml:"size"`
	Rows    int    `yaml:"rows"`
	Columns int    `yaml:"columns"`
}

// Manifest contains the checksums of one run.
type Manifest struct {
	Generated time.Time `yaml:"generated"`
	Version   string    `yaml:"version"`
	RunID     string    `yaml:"run_id"`
	Files     []Entry   `yaml:"files"`
}

// Problem is a file that failed verification.
type Problem struct {
	Err  error
	Path string
}

// New creates an empty manifest for a run.
func New(runID string, generated time.Time) *Manifest {
	return &Manifest{
		Version:   Version,
		RunID:     runID,
		Generated: generated.UTC(),
	}
}

// CalculateHash computes the SHA-256 of a file and returns it hex encoded
// with the file size.
func CalculateHash(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()

	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("failed to hash %s: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// Add hashes the file at path and appends it.
func (m *Manifest) Add(path, family, kind string, rows, columns int) error {
	sum, size, err := CalculateHash(path)
	if err != nil {
		return err
	}

	m.Files = append(m.Files, Entry{
		Path:    path,
		RunID:   m.RunID,
		Family:  family,
		Kind:    kind,
		SHA256:  sum,
		Size:    size,
		Rows:    rows,
		Columns: columns,
	})

	return nil
}

// Save writes the manifest as YAML. Entry paths are stored relative to the
// manifest's directory when possible.
func (m *Manifest) Save(path string) error {
	dir := filepath.Dir(path)

	out := *m
	out.Files = make([]Entry, len(m.Files))

	for i, e := range m.Files {
		if rel, err := filepath.Rel(dir, e.Path); err == nil && filepath.IsAbs(e.Path) {
			e.Path = filepath.ToSlash(rel)
		}

		out.Files[i] = e
	}

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	return nil
}

// Load reads a manifest and resolves its relative entry paths against the
// manifest's directory.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	dir := filepath.Dir(path)

	for i, e := range m.Files {
		p := filepath.FromSlash(e.Path)
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}

		m.Files[i].Path = filepath.Clean(p)
	}

	return &m, nil
}

// Lookup returns the entry for path.
func (m *Manifest) Lookup(path string) (Entry, bool) {
	want := absPath(path)

	for _, e := range m.Files {
		if absPath(e.Path) == want {
			return e, true
		}
	}

	return Entry{}, false
}

// Merge appends the entries of prev for files this manifest does not list,
// keeping their recorded hashes and run IDs. Entries whose file no longer
// exists are left out. It returns how many entries were carried over.
func (m *Manifest) Merge(prev *Manifest) int {
	listed := make(map[string]bool, len(m.Files))
	for _, e := range m.Files {
		listed[absPath(e.Path)] = true
	}

	carried := 0

	for _, e := range prev.Files {
		if listed[absPath(e.Path)] {
			continue
		}

		if _, err := os.Stat(e.Path); err != nil {
			continue
		}

		m.Files = append(m.Files, e)
		listed[absPath(e.Path)] = true
		carried++
	}

	return carried
}

func absPath(p string) string {
	p = filepath.Clean(p)
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}

	return p
}

// VerifyEntry re-hashes one file against its entry.
func VerifyEntry(e Entry) error {
	sum, size, err := CalculateHash(e.Path)
	if err != nil {
		return err
	}

	if size != e.Size {
		return fmt.Errorf("%w: expected %d bytes, got %d", ErrSizeMismatch, e.Size, size)
	}

	if sum != e.SHA256 {
		return fmt.Errorf("%w: expected %s, got %s", ErrHashMismatch, e.SHA256, sum)
	}

	return nil
}

// Verify re-hashes every listed file and returns the ones that changed or
// disappeared.
func (m *Manifest) Verify() []Problem {
	var problems []Problem

	for _, e := range m.Files {
		if err := VerifyEntry(e); err != nil {
			problems = append(problems, Problem{Path: e.Path, Err: err})
		}
	}

	return problems
}

// VerifyFile checks a single file against the manifest.
func (m *Manifest) VerifyFile(path string) error {
	e, ok := m.Lookup(path)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoEntry, path)
	}

	return VerifyEntry(e)
}
