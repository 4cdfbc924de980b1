package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"stocktake/internal/config"
	apperrors "stocktake/internal/errors"
	"stocktake/pkg/contracts/domain"
)

// Export formats
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatBoth = "both"
)

// Exporter writes every table of a result to an output directory
type Exporter struct {
	outputDir string
	bom       bool
	csv       *CSVWriter
	logger    *slog.Logger
}

// NewExporter creates an exporter from the export config
func NewExporter(cfg config.ExportConfig, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "exporter"))
	return &Exporter{
		outputDir: cfg.OutputDir,
		bom:       cfg.BOMPrefix,
		csv:       NewCSVWriter(cfg.OutputDir, cfg.BOMPrefix, logger),
		logger:    logger,
	}
}

// Export writes the result in the given format and returns the written paths.
// A result without tables is an empty input error and nothing is written.
func (e *Exporter) Export(ctx context.Context, result *domain.Result, format string) ([]string, error) {
	tables := Tables(result)
	if len(tables) == 0 {
		files := 0
		if result != nil {
			files = result.Files
		}
		return nil, apperrors.NewEmptyInputWarning(files)
	}

	format = strings.ToLower(format)
	var written []string

	if format == FormatCSV || format == FormatBoth {
		for _, t := range tables {
			if err := ctx.Err(); err != nil {
				return written, err
			}
			path, err := e.csv.WriteTable(t)
			if err != nil {
				return written, apperrors.NewStorageError(fmt.Sprintf("cannot write %s", FileName(t.Name)), err)
			}
			written = append(written, path)
		}
	}

	if format == FormatXLSX || format == FormatBoth {
		path, err := e.writeReport(tables)
		if err != nil {
			return written, apperrors.NewStorageError("cannot write report workbook", err)
		}
		written = append(written, path)
	}

	if len(written) == 0 {
		return nil, apperrors.NewAppValidationError(fmt.Sprintf("unsupported export format: %s", format))
	}

	e.logger.InfoContext(ctx, "Export complete",
		slog.String("run_id", result.RunID),
		slog.String("format", format),
		slog.Int("files", len(written)))
	return written, nil
}

func (e *Exporter) writeReport(tables []Table) (string, error) {
	path := filepath.Join(e.outputDir, config.ReportWorkbookName)
	if err := os.MkdirAll(e.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := EncodeWorkbook(file, tables); err != nil {
		file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", err
	}

	e.logger.Info("Wrote report workbook", slog.String("file_path", path), slog.Int("sheets", len(tables)))
	return path, nil
}
