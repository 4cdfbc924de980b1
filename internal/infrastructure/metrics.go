package infrastructure

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// File results reported on stocktake_files_total
const (
	FileResultLoaded = "loaded"
	FileResultFailed = "failed"
)

// PipelineMetrics holds the instruments of the stock take pipeline
type PipelineMetrics struct {
	FilesTotal            metric.Int64Counter
	FragmentsTotal        metric.Int64Counter
	RecordsTotal          metric.Int64Counter
	DuplicateRecordsTotal metric.Int64Counter
	RunDuration           metric.Float64Histogram
}

// NewPipelineMetrics creates the pipeline instruments on meter.
// A nil meter uses the global meter provider.
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	if meter == nil {
		meter = otel.Meter(MeterName)
	}

	filesTotal, err := meter.Int64Counter(
		"stocktake_files_total",
		metric.WithDescription("Workbooks processed, by result"),
	)
	if err != nil {
		return nil, err
	}

	fragmentsTotal, err := meter.Int64Counter(
		"stocktake_fragments_total",
		metric.WithDescription("Non-empty sheets normalized"),
	)
	if err != nil {
		return nil, err
	}

	recordsTotal, err := meter.Int64Counter(
		"stocktake_records_total",
		metric.WithDescription("Records in merged datasets, sentinels included"),
	)
	if err != nil {
		return nil, err
	}

	duplicateRecordsTotal, err := meter.Int64Counter(
		"stocktake_duplicate_records_total",
		metric.WithDescription("Records whose code occurs more than once in a run"),
	)
	if err != nil {
		return nil, err
	}

	runDuration, err := meter.Float64Histogram(
		"stocktake_run_duration_seconds",
		metric.WithDescription("Duration of a complete stock take run"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		FilesTotal:            filesTotal,
		FragmentsTotal:        fragmentsTotal,
		RecordsTotal:          recordsTotal,
		DuplicateRecordsTotal: duplicateRecordsTotal,
		RunDuration:           runDuration,
	}, nil
}

// RecordFile counts one processed workbook
func (m *PipelineMetrics) RecordFile(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.FilesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// RecordRun records the totals of a finished run
func (m *PipelineMetrics) RecordRun(ctx context.Context, fragments, records, duplicates int, duration time.Duration, success bool) {
	if m == nil {
		return
	}
	m.FragmentsTotal.Add(ctx, int64(fragments))
	m.RecordsTotal.Add(ctx, int64(records))
	m.DuplicateRecordsTotal.Add(ctx, int64(duplicates))

	status := "success"
	if !success {
		status = "failure"
	}
	m.RunDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("status", status)))
}

// HTTPMetrics holds the request instruments used by the logging middleware
type HTTPMetrics struct {
	RequestsTotal   metric.Int64Counter
	RequestDuration metric.Float64Histogram
}

// NewHTTPMetrics creates the HTTP instruments on meter
func NewHTTPMetrics(meter metric.Meter) (*HTTPMetrics, error) {
	if meter == nil {
		meter = otel.Meter(MeterName)
	}

	requestsTotal, err := meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &HTTPMetrics{
		RequestsTotal:   requestsTotal,
		RequestDuration: requestDuration,
	}, nil
}

// Record counts one finished request
func (m *HTTPMetrics) Record(ctx context.Context, method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
	)
	m.RequestsTotal.Add(ctx, 1, attrs)
	m.RequestDuration.Record(ctx, duration.Seconds(), attrs)
}
