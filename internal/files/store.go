package files

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"taxledger/internal/config"
)

// Store is a directory-backed store for generated export files. All
// filenames are sanitized before they touch the filesystem, so a name
// taken from a URL cannot escape the exports directory.
type Store struct {
	paths *config.Paths
}

// NewStore creates a new export store instance
func NewStore(paths *config.Paths) *Store {
	return &Store{paths: paths}
}

// SanitizeFilename validates a client-supplied export filename and returns
// it unchanged, or an error when it is empty, overlong, or carries path
// elements.
func SanitizeFilename(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "." {
		return "", fmt.Errorf("empty export filename")
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", fmt.Errorf("export filename %q contains path elements", name)
	}
	if len(name) > 255 {
		return "", fmt.Errorf("export filename exceeds 255 characters")
	}
	return name, nil
}

// Save writes an export under its sanitized name and returns the full path
func (s *Store) Save(filename string, data []byte) (string, error) {
	name, err := SanitizeFilename(filename)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.paths.ExportsDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create exports directory: %w", err)
	}

	fullPath := s.paths.GetExportPath(name)

	slog.Info("Writing export file",
		slog.String("filename", name),
		slog.String("full_path", fullPath),
		slog.Int("size_bytes", len(data)))

	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return fullPath, nil
}

// Open opens a stored export for streaming along with its file info.
// The caller owns the returned file handle.
func (s *Store) Open(filename string) (*os.File, os.FileInfo, error) {
	name, err := SanitizeFilename(filename)
	if err != nil {
		return nil, nil, err
	}

	fullPath := s.paths.GetExportPath(name)

	slog.Debug("Opening export file",
		slog.String("filename", name),
		slog.String("full_path", fullPath))

	f, err := os.Open(fullPath)
	if err != nil {
		return nil, nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}

	return f, info, nil
}

// Path returns the full path a sanitized export name resolves to. The
// file does not have to exist yet.
func (s *Store) Path(filename string) (string, error) {
	name, err := SanitizeFilename(filename)
	if err != nil {
		return "", err
	}
	return s.paths.GetExportPath(name), nil
}

// Exists checks if an export with the given name is stored
func (s *Store) Exists(filename string) bool {
	name, err := SanitizeFilename(filename)
	if err != nil {
		return false
	}

	_, err = os.Stat(s.paths.GetExportPath(name))
	exists := err == nil

	slog.Debug("Export exists check",
		slog.String("filename", name),
		slog.Bool("exists", exists))

	return exists
}

// Remove deletes a stored export
func (s *Store) Remove(filename string) error {
	name, err := SanitizeFilename(filename)
	if err != nil {
		return err
	}

	fullPath := s.paths.GetExportPath(name)

	slog.Info("Deleting export file",
		slog.String("filename", name),
		slog.String("full_path", fullPath))

	return os.Remove(fullPath)
}

// List returns the stored exports, newest first. A missing exports
// directory counts as an empty store.
func (s *Store) List() ([]FileInfo, error) {
	files, err := findByExtensions(s.paths.ExportsDir, ".xlsx", ".csv")
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ModTime.After(files[j].ModTime)
	})

	return files, nil
}

// Sweep removes exports whose modification time is older than the given
// retention age and returns the number removed
func (s *Store) Sweep(olderThan time.Duration) (int, error) {
	files, err := s.List()
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-olderThan)
	removed := 0

	for _, f := range files {
		if !f.ModTime.Before(cutoff) {
			continue
		}

		if err := os.Remove(f.Path); err != nil {
			slog.Warn("Failed to remove stale export",
				slog.String("filename", f.Name),
				slog.String("error", err.Error()))
			continue
		}

		removed++
		slog.Info("Removed stale export",
			slog.String("filename", f.Name),
			slog.Time("mod_time", f.ModTime))
	}

	return removed, nil
}

// Size returns the size of a stored export in bytes
func (s *Store) Size(filename string) (int64, error) {
	name, err := SanitizeFilename(filename)
	if err != nil {
		return 0, err
	}

	info, err := os.Stat(s.paths.GetExportPath(name))
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// findByExtensions lists the regular files in dir carrying one of the
// given extensions (compared case-insensitively)
func findByExtensions(dir string, exts ...string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		matched := false
		for _, want := range exts {
			if ext == want {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		files = append(files, FileInfo{
			Path:    filepath.Join(dir, name),
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	return files, nil
}
