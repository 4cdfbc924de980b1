package infrastructure

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"stocktake/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestOTelConfigFrom(t *testing.T) {
	cfg := OTelConfigFrom(config.TelemetryConfig{
		TraceExporter:  "stdout",
		MetricExporter: "none",
		SampleRatio:    0.5,
		Environment:    "test",
	})

	assert.Equal(t, ServiceName, cfg.ServiceName)
	assert.Equal(t, "stdout", cfg.TraceExporter)
	assert.Equal(t, "none", cfg.MetricExporter)
	assert.Equal(t, 0.5, cfg.SampleRatio)
	assert.Equal(t, "test", cfg.Environment)
}

func TestInitializeOTelDisabled(t *testing.T) {
	providers, err := InitializeOTel(&OTelConfig{
		ServiceName:    ServiceName,
		TraceExporter:  "none",
		MetricExporter: "none",
	}, discardLogger())
	require.NoError(t, err)

	assert.Nil(t, providers.TracerProvider)
	assert.Nil(t, providers.MeterProvider)
	assert.Nil(t, providers.PrometheusHTTP)
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.Meter)
	assert.NoError(t, providers.Shutdown(context.Background()))
}

func TestInitializeOTelUnsupportedExporter(t *testing.T) {
	_, err := InitializeOTel(&OTelConfig{TraceExporter: "zipkin", MetricExporter: "none"}, discardLogger())
	assert.Error(t, err)

	_, err = InitializeOTel(&OTelConfig{TraceExporter: "none", MetricExporter: "statsd"}, discardLogger())
	assert.Error(t, err)
}

func TestInitializeOTelEnabled(t *testing.T) {
	prevTP := otel.GetTracerProvider()
	prevMP := otel.GetMeterProvider()
	defer otel.SetTracerProvider(prevTP)
	defer otel.SetMeterProvider(prevMP)

	var spans bytes.Buffer
	providers, err := InitializeOTel(&OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: "test",
		Environment:    "test",
		TraceExporter:  "stdout",
		MetricExporter: "prometheus",
		SampleRatio:    1.0,
		TraceWriter:    &spans,
	}, discardLogger())
	require.NoError(t, err)
	require.NotNil(t, providers.TracerProvider)
	require.NotNil(t, providers.MeterProvider)
	require.NotNil(t, providers.PrometheusHTTP)

	ctx, span := otel.Tracer("test").Start(context.Background(), "stocktake.test")
	assert.NotEmpty(t, TraceIDFromContext(ctx))
	RecordError(ctx, assert.AnError)
	span.End()

	pm, err := NewPipelineMetrics(providers.Meter)
	require.NoError(t, err)
	pm.RecordFile(ctx, FileResultLoaded)
	pm.RecordRun(ctx, 2, 10, 4, 150*time.Millisecond, true)

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "stocktake_files_total")
	assert.Contains(t, body, "stocktake_run_duration_seconds")
	assert.Contains(t, body, "go_goroutines")

	ctxTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, providers.Shutdown(ctxTimeout))
	assert.Contains(t, spans.String(), "stocktake.test")
}

func TestTraceIDFromContextWithoutSpan(t *testing.T) {
	assert.Empty(t, TraceIDFromContext(context.Background()))
	// No panic on a non-recording span
	RecordError(context.Background(), assert.AnError)
}

func TestPipelineMetricsRecording(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	pm, err := NewPipelineMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	pm.RecordFile(ctx, FileResultLoaded)
	pm.RecordFile(ctx, FileResultLoaded)
	pm.RecordFile(ctx, FileResultFailed)
	pm.RecordRun(ctx, 3, 12, 2, time.Second, true)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if data, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range data.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}

	assert.Equal(t, int64(3), sums["stocktake_files_total"])
	assert.Equal(t, int64(3), sums["stocktake_fragments_total"])
	assert.Equal(t, int64(12), sums["stocktake_records_total"])
	assert.Equal(t, int64(2), sums["stocktake_duplicate_records_total"])
}

func TestNilMetricsAreSafe(t *testing.T) {
	var pm *PipelineMetrics
	var hm *HTTPMetrics
	ctx := context.Background()

	assert.NotPanics(t, func() {
		pm.RecordFile(ctx, FileResultFailed)
		pm.RecordRun(ctx, 0, 0, 0, 0, false)
		hm.Record(ctx, http.MethodGet, "/", 200, time.Millisecond)
	})
}

func TestHTTPMetricsOnNoopMeter(t *testing.T) {
	hm, err := NewHTTPMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		hm.Record(context.Background(), http.MethodPost, "/api/stocktake", 200, time.Second)
	})
}
