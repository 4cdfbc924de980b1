package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"stocktake/internal/config"
	"stocktake/internal/dataprocessing"
	apperrors "stocktake/internal/errors"
	"stocktake/internal/exporter"
	"stocktake/internal/files"
	"stocktake/internal/infrastructure"
	"stocktake/internal/validation"
	"stocktake/pkg/contracts"
	"stocktake/pkg/contracts/domain"
)

const defaultPreview = 5

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		slog.Error("Stock take failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// options holds the parsed command line
type options struct {
	inDir   string
	outDir  string
	format  string
	preview int
	files   []string
	version bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("stocktake", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: stocktake [flags] [workbook.xlsx ...]\n\n")
		fmt.Fprintf(stderr, "Merges depot stock take workbooks and reports duplicate cylinder codes.\n\n")
		fs.PrintDefaults()
	}

	opts := &options{}
	fs.StringVar(&opts.inDir, "dir", "", "input directory for .xlsx workbooks (defaults to data/uploads relative to executable)")
	fs.StringVar(&opts.outDir, "out", "", "output directory for reports (defaults to data/reports relative to executable)")
	fs.StringVar(&opts.format, "format", "", "export format: csv, xlsx or both (defaults to the configured format)")
	fs.IntVar(&opts.preview, "preview", defaultPreview, "number of dataset rows to print")
	fs.BoolVar(&opts.version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.preview < 0 {
		return nil, fmt.Errorf("preview must not be negative: %d", opts.preview)
	}
	opts.files = fs.Args()
	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if opts.version {
		fmt.Fprintln(stdout, contracts.GetFullVersionString())
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := infrastructure.NewLogger(stderr, cfg.Logging.Level)
	slog.SetDefault(logger)

	if err := resolveDirs(opts, cfg); err != nil {
		return err
	}

	format := strings.ToLower(opts.format)
	if format == "" {
		format = strings.ToLower(cfg.Export.Format)
	}
	switch format {
	case exporter.FormatCSV, exporter.FormatXLSX, exporter.FormatBoth:
	default:
		return fmt.Errorf("unsupported export format: %s", format)
	}

	paths, err := collectWorkbooks(opts, logger)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		fmt.Fprintf(stdout, "No workbooks found in %s\n", opts.inDir)
		return nil
	}

	otelCfg := infrastructure.OTelConfigFrom(cfg.Telemetry)
	otelCfg.TraceWriter = stderr
	providers, err := infrastructure.InitializeOTel(otelCfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := providers.Shutdown(context.Background()); err != nil {
			logger.Warn("Telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	metrics, err := infrastructure.NewPipelineMetrics(providers.Meter)
	if err != nil {
		return fmt.Errorf("failed to create pipeline metrics: %w", err)
	}

	sources := make([]dataprocessing.Source, len(paths))
	for i, p := range paths {
		sources[i] = dataprocessing.FileSource(p)
	}

	processor := dataprocessing.NewProcessor(cfg.Pipeline,
		dataprocessing.WithLogger(logger),
		dataprocessing.WithMetrics(metrics),
		dataprocessing.WithTracer(providers.Tracer),
	)
	result, err := processor.Run(ctx, sources)
	if err != nil {
		return err
	}

	printSummary(stdout, result, opts.preview)

	if !result.HasTables() {
		fmt.Fprintln(stdout, "Nothing exported.")
		return nil
	}

	validator := validation.NewFileValidator(logger)
	if err := validator.ValidateOutputDirectory(opts.outDir); err != nil {
		return err
	}

	exportCfg := cfg.Export
	exportCfg.OutputDir = opts.outDir
	written, err := exporter.NewExporter(exportCfg, logger).Export(ctx, result, format)
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, "\nWritten:")
	for _, p := range written {
		fmt.Fprintf(stdout, "  %s\n", p)
	}
	return nil
}

// resolveDirs fills the input and output directories left unset on the command line.
// A relative configured output directory is replaced by the executable's reports directory.
func resolveDirs(opts *options, cfg *config.Config) error {
	if opts.inDir != "" && opts.outDir != "" {
		return nil
	}

	paths, err := config.GetPaths()
	if err != nil {
		return fmt.Errorf("failed to resolve paths: %w", err)
	}
	if opts.inDir == "" {
		opts.inDir = paths.InputDir
	}
	if opts.outDir == "" {
		if filepath.IsAbs(cfg.Export.OutputDir) {
			opts.outDir = cfg.Export.OutputDir
		} else {
			opts.outDir = paths.ReportsDir
		}
	}
	return nil
}

// collectWorkbooks returns the explicit workbook arguments, or every workbook in the input directory
func collectWorkbooks(opts *options, logger *slog.Logger) ([]string, error) {
	validator := validation.NewFileValidator(logger)

	if len(opts.files) > 0 {
		for _, f := range opts.files {
			if err := validator.ValidateWorkbookFile(f); err != nil {
				return nil, err
			}
		}
		return opts.files, nil
	}

	count, err := validator.ValidateInputDirectory(opts.inDir)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}

	found, err := files.NewDiscovery("").FindWorkbooks(opts.inDir)
	if err != nil {
		return nil, err
	}
	return files.Paths(found), nil
}

func printSummary(w io.Writer, result *domain.Result, preview int) {
	fmt.Fprintf(w, "Run %s\n", result.RunID)
	fmt.Fprintf(w, "Files: %d  Sheets: %d  Records: %d  Coded: %d\n",
		result.Files, result.Fragments, result.Dataset.Len(), result.Dataset.CodedRecords())

	if result.HasTables() {
		fmt.Fprintf(w, "Duplicate codes: %d  Duplicate records: %d\n",
			len(result.DuplicateGroups), len(result.Duplicates))

		if preview > 0 && result.Dataset.Len() > 0 {
			head := domain.Dataset{Columns: result.Dataset.Columns, Records: result.Dataset.Head(preview)}
			fmt.Fprintln(w)
			printTable(w, exporter.DatasetTable(head))
		}

		if len(result.DuplicateGroups) > 0 {
			fmt.Fprintln(w, "\nDuplicates:")
			for _, g := range result.DuplicateGroups {
				marker := ""
				if g.CrossDepot {
					marker = " (cross depot)"
				}
				fmt.Fprintf(w, "  %s x%d: %s%s\n", g.Code, g.Occurrences, strings.Join(g.Depots, ", "), marker)
			}
		}
	}

	printErrors(w, "Diagnostics", result.Diagnostics)
	printErrors(w, "Warnings", result.Warnings)
}

func printTable(w io.Writer, t exporter.Table) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(t.Headers, "\t"))
	for _, row := range t.StringRows() {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	tw.Flush()
}

func printErrors(w io.Writer, title string, errs []error) {
	if len(errs) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	for _, err := range errs {
		fmt.Fprintf(w, "  %s\n", describe(err))
	}
}

// describe drops the error type prefix for terminal output
func describe(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Cause != nil {
			return appErr.Message + ": " + appErr.Cause.Error()
		}
		return appErr.Message
	}
	return err.Error()
}
