// Package storage persists validated images under the output directory.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/imgharvest/imgharvest/internal/logger"
)

// Dir is an output directory for one run. Created on demand.
type Dir struct {
	path string
}

// NewDir creates the output directory if absent.
func NewDir(path string) (*Dir, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create output dir: %w", err)
	}
	return &Dir{path: path}, nil
}

// Path returns the directory path.
func (d *Dir) Path() string {
	return d.path
}

// Write stores data under name and returns the full path.
func (d *Dir) Write(name string, data []byte) (string, error) {
	full := filepath.Join(d.path, name)
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write %s: %w", name, err)
	}
	logger.Debug("image written", "file", name, "size", humanize.Bytes(uint64(len(data))))
	return full, nil
}

// NormalizeQuery lowercases a query and replaces spaces with underscores,
// yielding a filesystem-safe filename stem.
func NormalizeQuery(query string) string {
	return strings.ToLower(strings.ReplaceAll(query, " ", "_"))
}

// Filename builds the output filename for the seq-th candidate (1-based).
// The extension is always .jpg regardless of the true container format.
func Filename(query string, seq int) string {
	return fmt.Sprintf("%s_%d.jpg", NormalizeQuery(query), seq)
}
