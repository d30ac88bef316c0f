package files

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"
)

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Discovery provides file discovery operations
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// FindPDFFiles finds all PDF files in the specified directory, sorted by
// name so batch runs process statements in a stable order
func (d *Discovery) FindPDFFiles(dir string) ([]FileInfo, error) {
	fullPath := d.resolve(dir)

	files, err := findByExtensions(fullPath, ".pdf")
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})

	return files, nil
}

// FindExportFiles finds generated ledger files (xlsx and csv) in the
// specified directory
func (d *Discovery) FindExportFiles(dir string) ([]FileInfo, error) {
	fullPath := d.resolve(dir)

	files, err := findByExtensions(fullPath, ".xlsx", ".csv")
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	return files, nil
}

func (d *Discovery) resolve(dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(d.basePath, dir)
}
