package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Well-known report file names written by the exporters
const (
	DatasetCSVName         = "stocktake_all_depots.csv"
	PivotCSVName           = "stocktake_pivot.csv"
	DuplicatesCSVName      = "stocktake_duplicates.csv"
	DuplicatesPivotCSVName = "stocktake_duplicates_pivot.csv"
	ReportWorkbookName     = "stocktake_report.xlsx"
)

// Paths contains the directories the stock take tools read from and write to
type Paths struct {
	BaseDir    string
	InputDir   string
	ReportsDir string
	LogsDir    string
}

// NewPaths lays out the directory structure under a base directory:
//
//	base/
//	  ├── data/
//	  │   ├── uploads/   (depot workbooks)
//	  │   └── reports/   (generated CSV and XLSX)
//	  └── logs/
func NewPaths(baseDir string) *Paths {
	dataDir := filepath.Join(baseDir, "data")
	return &Paths{
		BaseDir:    baseDir,
		InputDir:   filepath.Join(dataDir, "uploads"),
		ReportsDir: filepath.Join(dataDir, "reports"),
		LogsDir:    filepath.Join(baseDir, "logs"),
	}
}

// GetPaths returns the paths relative to the executable location
func GetPaths() (*Paths, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}

	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable symlinks: %w", err)
	}

	return NewPaths(filepath.Dir(exe)), nil
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.InputDir, p.ReportsDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		slog.Debug("Ensured directory exists", slog.String("directory", dir))
	}
	return nil
}

// GetReportPath returns the path of a report file
func (p *Paths) GetReportPath(filename string) string {
	return filepath.Join(p.ReportsDir, filename)
}

// GetLogPath returns the path of a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
