package files

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"stocktake/internal/config"
)

// Manager stores uploaded workbooks and resolves paths under the data directories
type Manager struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewManager creates a new file manager instance
func NewManager(paths *config.Paths, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{paths: paths, logger: logger.With(slog.String("component", "files"))}
}

// FileExists checks if a file exists at the given path
func (m *Manager) FileExists(path string) bool {
	_, err := os.Stat(m.ResolvePath(path))
	return err == nil
}

// CreateDirectory creates a directory with all parent directories
func (m *Manager) CreateDirectory(path string) error {
	return os.MkdirAll(m.ResolvePath(path), 0755)
}

// SaveUpload copies an uploaded workbook into the input directory under subdir
// and returns the stored path. Only the base of name is kept.
func (m *Manager) SaveUpload(subdir, name string, r io.Reader) (string, error) {
	clean, err := SanitizeFileName(name)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(m.paths.InputDir, subdir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	dst := filepath.Join(dir, clean)
	file, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dst, err)
	}

	n, err := io.Copy(file, r)
	if err != nil {
		file.Close()
		os.Remove(dst)
		return "", fmt.Errorf("failed to store %s: %w", clean, err)
	}
	if err := file.Close(); err != nil {
		return "", err
	}

	m.logger.Debug("Stored upload",
		slog.String("file_path", dst),
		slog.Int64("bytes", n))
	return dst, nil
}

// ResolvePath resolves a relative path against the base directory
func (m *Manager) ResolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(m.paths.BaseDir, path)
}

// SanitizeFileName reduces an uploaded file name to its base name.
// Names that resolve to nothing are rejected.
func SanitizeFileName(name string) (string, error) {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == ".." || strings.TrimSpace(base) == "" {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	return base, nil
}
