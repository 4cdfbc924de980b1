package dataprocessing

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"stocktake/internal/config"
	apperrors "stocktake/internal/errors"
	"stocktake/internal/infrastructure"
	"stocktake/internal/shared/testutil"
	"stocktake/pkg/contracts/domain"
)

func pipelineConfig() config.PipelineConfig {
	return config.Default().Pipeline
}

func TestProcessorRun(t *testing.T) {
	dir := t.TempDir()
	d1 := testutil.WriteWorkbook(t, dir, "D1.xlsx",
		testutil.Sheet("Full Cylinders", testutil.Row("QR", "Serial"), testutil.Row("A1", 1), testutil.Row("C1", 2)),
		testutil.Sheet("Empty"),
	)
	d2 := testutil.WriteWorkbook(t, dir, "D2.xlsx",
		testutil.Sheet("Half Cylinders", testutil.Row("Scan"), testutil.Row("https://qr/a1")),
		testutil.Sheet("Full Defectives", testutil.Row("Scan", "Weight"), testutil.Row("D9", 14.2)),
	)

	logger, logs := testutil.NewTestLogger(t)
	p := NewProcessor(pipelineConfig(), WithLogger(logger))

	result, err := p.Run(context.Background(), []Source{FileSource(d1), FileSource(d2)})
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 2, result.Files)
	assert.Equal(t, 3, result.Fragments)
	assert.Empty(t, result.Diagnostics)
	assert.Empty(t, result.Warnings)

	// one sentinel per fragment
	assert.Equal(t, 7, result.Dataset.Len())
	assert.Equal(t, 4, result.Dataset.CodedRecords())
	assert.Equal(t, []string{"Serial", "Weight"}, result.Dataset.Columns)

	assert.Equal(t, 2, result.Pivot.Total("D1"))
	assert.Equal(t, 2, result.Pivot.Total("D2"))
	assert.Equal(t, 1, result.Pivot.Count("D2", domain.StatusDefective))

	assert.Equal(t, []domain.DuplicateEntry{
		{Code: "A1", Depot: "D1", Status: domain.StatusAvailable},
		{Code: "A1", Depot: "D2", Status: domain.StatusNotReady},
	}, result.Duplicates)
	require.Len(t, result.DuplicateGroups, 1)
	assert.True(t, result.DuplicateGroups[0].CrossDepot)
	assert.Equal(t, 1, result.DuplicatePivot.Total("D1"))
	assert.Equal(t, 1, result.DuplicatePivot.Total("D2"))

	testutil.AssertLogContains(t, logs, slog.LevelInfo, "Stock take run completed")
	testutil.AssertLogAttr(t, logs, "component", "pipeline")
	testutil.AssertNoErrors(t, logs)
}

func TestProcessorRunPreservesArrivalOrder(t *testing.T) {
	dir := t.TempDir()
	var sources []Source
	for i := 0; i < 12; i++ {
		name := fmt.Sprintf("DEPOT%02d.xlsx", i)
		path := testutil.WriteWorkbook(t, dir, name,
			testutil.Sheet("Full Cylinders", testutil.Row("QR"), testutil.Row(fmt.Sprintf("C%02d", i))),
		)
		sources = append(sources, FileSource(path))
	}

	cfg := pipelineConfig()
	cfg.Workers = 4
	cfg.IncludeSentinel = false

	result, err := NewProcessor(cfg).Run(context.Background(), sources)
	require.NoError(t, err)
	require.Equal(t, 12, result.Dataset.Len())
	for i, rec := range result.Dataset.Records {
		assert.Equal(t, fmt.Sprintf("C%02d", i), rec.Code)
		assert.Equal(t, fmt.Sprintf("DEPOT%02d", i), rec.Depot)
	}
}

func TestProcessorRunContinuesPastBadWorkbook(t *testing.T) {
	dir := t.TempDir()
	good := testutil.WriteWorkbook(t, dir, "GOOD.xlsx",
		testutil.Sheet("Full Cylinders", testutil.Row("QR"), testutil.Row("A1")),
	)
	bad := filepath.Join(dir, "BAD.xlsx")
	require.NoError(t, os.WriteFile(bad, []byte("garbage"), 0644))

	logger, logs := testutil.NewTestLogger(t)
	result, err := NewProcessor(pipelineConfig(), WithLogger(logger)).
		Run(context.Background(), []Source{FileSource(bad), FileSource(good)})
	require.NoError(t, err)

	require.Len(t, result.Diagnostics, 1)
	assert.True(t, apperrors.IsType(result.Diagnostics[0], apperrors.ErrTypeIngest))
	assert.Equal(t, 1, result.Fragments)
	assert.Equal(t, 1, result.Pivot.Total("GOOD"))
	testutil.AssertLogContains(t, logs, slog.LevelWarn, "Skipping unreadable workbook")
}

func TestProcessorRunFailFast(t *testing.T) {
	dir := t.TempDir()
	good := testutil.WriteWorkbook(t, dir, "GOOD.xlsx",
		testutil.Sheet("Full Cylinders", testutil.Row("QR"), testutil.Row("A1")),
	)
	bad := filepath.Join(dir, "BAD.xlsx")
	require.NoError(t, os.WriteFile(bad, []byte("garbage"), 0644))

	cfg := pipelineConfig()
	cfg.FailFast = true

	result, err := NewProcessor(cfg).Run(context.Background(), []Source{FileSource(good), FileSource(bad)})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeIngest))
}

func TestProcessorRunEmptyInput(t *testing.T) {
	dir := t.TempDir()
	empty := testutil.WriteWorkbook(t, dir, "EMPTY.xlsx",
		testutil.Sheet("Full Cylinders"),
		testutil.Sheet("Half Cylinders", testutil.Row("QR")),
	)

	logger, logs := testutil.NewTestLogger(t)
	result, err := NewProcessor(pipelineConfig(), WithLogger(logger)).
		Run(context.Background(), []Source{FileSource(empty)})
	require.NoError(t, err)

	require.Len(t, result.Warnings, 1)
	assert.True(t, apperrors.IsType(result.Warnings[0], apperrors.ErrTypeEmptyInput))
	assert.Contains(t, result.Warnings[0].Error(), apperrors.EmptyInputMessage)
	assert.False(t, result.HasTables())
	assert.Nil(t, result.DuplicatePivot)
	assert.Empty(t, result.Duplicates)
	assert.Equal(t, 0, result.Dataset.Len())
	testutil.AssertLogContains(t, logs, slog.LevelWarn, apperrors.EmptyInputMessage)
}

func TestProcessorRunNoSources(t *testing.T) {
	result, err := NewProcessor(pipelineConfig()).Run(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.False(t, result.HasTables())
}

func TestProcessorRunCancelled(t *testing.T) {
	path := testutil.WriteWorkbook(t, t.TempDir(), "D1.xlsx",
		testutil.Sheet("Full Cylinders", testutil.Row("QR"), testutil.Row("A1")),
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := NewProcessor(pipelineConfig()).Run(ctx, []Source{FileSource(path)})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
}

func TestProcessorRunCaseInsensitiveSheets(t *testing.T) {
	path := testutil.WriteWorkbook(t, t.TempDir(), "D1.xlsx",
		testutil.Sheet("FULL CYLINDERS", testutil.Row("QR"), testutil.Row("A1")),
	)

	exact, err := NewProcessor(pipelineConfig()).Run(context.Background(), []Source{FileSource(path)})
	require.NoError(t, err)
	assert.Equal(t, 1, exact.Pivot.Count("D1", domain.StatusUnknown))

	cfg := pipelineConfig()
	cfg.CaseInsensitiveSheets = true
	folded, err := NewProcessor(cfg).Run(context.Background(), []Source{FileSource(path)})
	require.NoError(t, err)
	assert.Equal(t, 1, folded.Pivot.Count("D1", domain.StatusAvailable))
}

type slowSource struct {
	data  []byte
	delay time.Duration
}

func (s slowSource) open() (io.ReadCloser, error) {
	time.Sleep(s.delay)
	return BytesSource("x.xlsx", s.data).Open()
}

func TestProcessorRunSlowFirstSource(t *testing.T) {
	slow := slowSource{
		data:  testutil.WorkbookBytes(t, testutil.Sheet("Full Cylinders", testutil.Row("QR"), testutil.Row("FIRST"))),
		delay: 50 * time.Millisecond,
	}
	fast := testutil.WorkbookBytes(t, testutil.Sheet("Full Cylinders", testutil.Row("QR"), testutil.Row("SECOND")))

	cfg := pipelineConfig()
	cfg.IncludeSentinel = false
	result, err := NewProcessor(cfg).Run(context.Background(), []Source{
		{Name: "SLOW.xlsx", Open: slow.open},
		BytesSource("FAST.xlsx", fast),
	})
	require.NoError(t, err)
	require.Equal(t, 2, result.Dataset.Len())
	assert.Equal(t, "FIRST", result.Dataset.Records[0].Code)
	assert.Equal(t, "SLOW", result.Dataset.Records[0].Depot)
	assert.Equal(t, "SECOND", result.Dataset.Records[1].Code)
}

func TestProcessorRecordsMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	metrics, err := infrastructure.NewPipelineMetrics(mp.Meter("test"))
	require.NoError(t, err)

	dir := t.TempDir()
	good := testutil.WriteWorkbook(t, dir, "D1.xlsx",
		testutil.Sheet("Full Cylinders", testutil.Row("QR"), testutil.Row("A1"), testutil.Row("A1")),
	)
	bad := filepath.Join(dir, "BAD.xlsx")
	require.NoError(t, os.WriteFile(bad, []byte("garbage"), 0644))

	_, err = NewProcessor(pipelineConfig(), WithMetrics(metrics)).
		Run(context.Background(), []Source{FileSource(good), FileSource(bad)})
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	files := map[string]int64{}
	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			data, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range data.DataPoints {
				sums[m.Name] += dp.Value
				if m.Name == "stocktake_files_total" {
					result, _ := dp.Attributes.Value("result")
					files[result.AsString()] += dp.Value
				}
			}
		}
	}

	assert.Equal(t, int64(1), files[infrastructure.FileResultLoaded])
	assert.Equal(t, int64(1), files[infrastructure.FileResultFailed])
	assert.Equal(t, int64(1), sums["stocktake_fragments_total"])
	assert.Equal(t, int64(3), sums["stocktake_records_total"])
	assert.Equal(t, int64(2), sums["stocktake_duplicate_records_total"])
}
