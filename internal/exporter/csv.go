package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter writes result tables as CSV files under an output directory
type CSVWriter struct {
	outputDir string
	bom       bool
	logger    *slog.Logger
}

// NewCSVWriter creates a CSV writer. With bom set every file starts with a
// UTF-8 byte order mark so Excel picks the right encoding.
func NewCSVWriter(outputDir string, bom bool, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{outputDir: outputDir, bom: bom, logger: logger}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool
}

// EncodeCSV writes headers and records to w
func EncodeCSV(w io.Writer, options WriteOptions) error {
	if options.BOMPrefix {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)
	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// EncodeTable writes one table to w
func EncodeTable(w io.Writer, t Table, bom bool) error {
	return EncodeCSV(w, WriteOptions{
		Headers:   t.Headers,
		Records:   t.StringRows(),
		BOMPrefix: bom,
	})
}

// WriteCSV writes data to a CSV file, replacing any existing file
func (w *CSVWriter) WriteCSV(fileName string, options WriteOptions) (string, error) {
	fullPath := w.resolvePath(fileName)

	w.logger.Info("Writing CSV file",
		slog.String("file_path", fullPath),
		slog.Int("record_count", len(options.Records)))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}

	if err := EncodeCSV(file, options); err != nil {
		file.Close()
		return "", err
	}
	return fullPath, file.Close()
}

// WriteTable writes a table to its well-known file name
func (w *CSVWriter) WriteTable(t Table) (string, error) {
	return w.WriteCSV(FileName(t.Name), WriteOptions{
		Headers:   t.Headers,
		Records:   t.StringRows(),
		BOMPrefix: w.bom,
	})
}

// resolvePath places relative names under the output directory
func (w *CSVWriter) resolvePath(fileName string) string {
	if filepath.IsAbs(fileName) {
		return fileName
	}
	return filepath.Join(w.outputDir, fileName)
}
