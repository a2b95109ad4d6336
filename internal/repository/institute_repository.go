package repository

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// ErrStoreCorrupt is returned by Load when the file exists but is not a JSON
// array of strings.
var ErrStoreCorrupt = errors.New("institute store corrupt")

// InstituteRepository persists the institute list as a single JSON document.
type InstituteRepository struct {
	fs   afero.Fs
	path string
}

// NewInstituteRepository creates a repository for the file at path on fs.
func NewInstituteRepository(fs afero.Fs, path string) *InstituteRepository {
	return &InstituteRepository{fs: fs, path: path}
}

// Path returns the backing file location.
func (r *InstituteRepository) Path() string {
	return r.path
}

// Load reads the stored list. A missing file yields an empty list and no
// error. Duplicate entries are collapsed, keeping first occurrence.
func (r *InstituteRepository) Load() ([]string, error) {
	data, err := afero.ReadFile(r.fs, r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return []string{}, fmt.Errorf("read institutes: %w", err)
	}

	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return []string{}, fmt.Errorf("%w: %v", ErrStoreCorrupt, err)
	}

	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out, nil
}

// Save overwrites the stored list. The document is written to a temporary
// file in the same directory and renamed into place.
func (r *InstituteRepository) Save(names []string) error {
	if names == nil {
		names = []string{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(names); err != nil {
		return fmt.Errorf("encode institutes: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := r.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create institutes dir: %w", err)
	}

	tmp, err := afero.TempFile(r.fs, dir, filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		_ = r.fs.Remove(tmpName)
		return fmt.Errorf("write institutes: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		_ = r.fs.Remove(tmpName)
		return fmt.Errorf("sync institutes: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = r.fs.Remove(tmpName)
		return fmt.Errorf("close institutes: %w", err)
	}
	if err := r.fs.Rename(tmpName, r.path); err != nil {
		_ = r.fs.Remove(tmpName)
		return fmt.Errorf("replace institutes: %w", err)
	}
	return nil
}
