package dataprocessing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"stocktake/internal/config"
	apperrors "stocktake/internal/errors"
	"stocktake/internal/infrastructure"
	"stocktake/pkg/contracts/domain"
)

// DefaultWorkers bounds concurrent workbook parsing when the config leaves it unset
const DefaultWorkers = 4

// Processor runs the stock take pipeline over one upload set:
// load every workbook, normalize and enrich each sheet, then aggregate.
type Processor struct {
	cfg        config.PipelineConfig
	classifier *Classifier
	logger     *slog.Logger
	metrics    *infrastructure.PipelineMetrics
	tracer     trace.Tracer
}

// Option configures a Processor
type Option func(*Processor)

// WithLogger sets the logger, infrastructure.GetLogger() by default
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics records pipeline metrics on m
func WithMetrics(m *infrastructure.PipelineMetrics) Option {
	return func(p *Processor) { p.metrics = m }
}

// WithTracer overrides the global tracer
func WithTracer(tracer trace.Tracer) Option {
	return func(p *Processor) {
		if tracer != nil {
			p.tracer = tracer
		}
	}
}

// NewProcessor creates a pipeline processor
func NewProcessor(cfg config.PipelineConfig, opts ...Option) *Processor {
	p := &Processor{
		cfg:        cfg,
		classifier: NewClassifier(cfg.CaseInsensitiveSheets),
		logger:     infrastructure.GetLogger(),
		tracer:     otel.Tracer(infrastructure.TracerName),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = infrastructure.WithComponent(p.logger, "pipeline")
	return p
}

func (p *Processor) workers() int {
	if p.cfg.Workers < 1 {
		return DefaultWorkers
	}
	return p.cfg.Workers
}

// Run processes sources as one stock take.
// Unreadable workbooks and column-less sheets end up in Result.Diagnostics unless
// FailFast is set, which aborts the run with the first ingest error instead.
// An upload set without data yields a Result carrying only an empty input warning.
func (p *Processor) Run(ctx context.Context, sources []Source) (*domain.Result, error) {
	start := time.Now()
	runID := infrastructure.GenerateRunID()
	ctx = infrastructure.WithRunID(ctx, runID)

	ctx, span := p.tracer.Start(ctx, "stocktake.run", trace.WithAttributes(
		attribute.String("stocktake.run_id", runID),
		attribute.Int("stocktake.files", len(sources)),
	))
	defer span.End()

	p.logger.InfoContext(ctx, "Stock take run started", slog.Int("files", len(sources)))

	result, err := p.run(ctx, sources)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		p.metrics.RecordRun(ctx, 0, 0, 0, time.Since(start), false)
		p.logger.ErrorContext(ctx, "Stock take run failed", slog.String("error", err.Error()))
		return nil, err
	}

	result.RunID = runID
	result.Files = len(sources)

	duplicates := len(result.Duplicates)
	p.metrics.RecordRun(ctx, result.Fragments, result.Dataset.Len(), duplicates, time.Since(start), true)
	span.SetAttributes(
		attribute.Int("stocktake.fragments", result.Fragments),
		attribute.Int("stocktake.records", result.Dataset.Len()),
		attribute.Int("stocktake.duplicate_records", duplicates),
		attribute.Int("stocktake.diagnostics", len(result.Diagnostics)),
	)

	p.logger.InfoContext(ctx, "Stock take run completed",
		slog.Int("fragments", result.Fragments),
		slog.Int("records", result.Dataset.Len()),
		slog.Int("duplicate_records", duplicates),
		slog.Int("diagnostics", len(result.Diagnostics)),
		slog.Duration("duration", time.Since(start)))

	return result, nil
}

func (p *Processor) run(ctx context.Context, sources []Source) (*domain.Result, error) {
	workbooks, diagnostics, err := p.load(ctx, sources)
	if err != nil {
		return nil, err
	}

	fragments, schemaDiags, err := p.normalize(ctx, workbooks)
	if err != nil {
		return nil, err
	}
	diagnostics = append(diagnostics, schemaDiags...)

	if len(fragments) == 0 {
		warning := apperrors.NewEmptyInputWarning(len(sources))
		p.logger.WarnContext(ctx, warning.Message, slog.Int("files", len(sources)))
		return &domain.Result{
			Diagnostics: diagnostics,
			Warnings:    []error{warning},
		}, nil
	}

	aggCtx, span := p.tracer.Start(ctx, "stocktake.aggregate")
	result, err := Aggregate(aggCtx, fragments)
	span.End()
	if err != nil {
		return nil, err
	}

	result.Diagnostics = diagnostics
	return result, nil
}

// load parses workbooks concurrently. Sheets are slotted by source index
// so fragment order follows upload order whatever the worker timing.
func (p *Processor) load(ctx context.Context, sources []Source) ([][]RawSheet, []error, error) {
	ctx, span := p.tracer.Start(ctx, "stocktake.load")
	defer span.End()

	slots := make([][]RawSheet, len(sources))
	failures := make([]error, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers())

	for i, src := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			sheets, err := LoadWorkbook(gctx, src)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				p.metrics.RecordFile(ctx, infrastructure.FileResultFailed)
				if p.cfg.FailFast {
					return err
				}
				p.logger.WarnContext(ctx, "Skipping unreadable workbook",
					slog.String("file", src.Name),
					slog.String("error", err.Error()))
				failures[i] = err
				return nil
			}

			p.metrics.RecordFile(ctx, infrastructure.FileResultLoaded)
			p.logger.DebugContext(ctx, "Workbook loaded",
				slog.String("file", src.Name),
				slog.Int("sheets", len(sheets)))
			slots[i] = sheets
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var diagnostics []error
	for _, err := range failures {
		if err != nil {
			diagnostics = append(diagnostics, err)
		}
	}
	return slots, diagnostics, nil
}

func (p *Processor) normalize(ctx context.Context, workbooks [][]RawSheet) ([]domain.Fragment, []error, error) {
	_, span := p.tracer.Start(ctx, "stocktake.normalize")
	defer span.End()

	opts := NormalizeOptions{IncludeSentinel: p.cfg.IncludeSentinel}

	var fragments []domain.Fragment
	var diagnostics []error
	for _, sheets := range workbooks {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		for _, sheet := range sheets {
			frag, err := Normalize(sheet, opts)
			if err != nil {
				p.logger.WarnContext(ctx, "Dropping sheet",
					slog.String("file", sheet.SourceFile),
					slog.String("sheet", sheet.SheetName),
					slog.String("error", err.Error()))
				diagnostics = append(diagnostics, err)
				continue
			}
			Enrich(&frag, p.classifier)
			fragments = append(fragments, frag)
		}
	}

	span.SetAttributes(attribute.Int("stocktake.fragments", len(fragments)))
	return fragments, diagnostics, nil
}
