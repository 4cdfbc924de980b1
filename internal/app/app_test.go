package app

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocktake/internal/config"
	"stocktake/internal/infrastructure"
	"stocktake/internal/shared/testutil"
	transport "stocktake/internal/transport/http"
)

func newTestApp(t *testing.T, mutate func(*config.Config)) *Application {
	t.Helper()

	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	logger, _ := testutil.NewTestLogger(t)

	a, err := New(cfg, config.NewPaths(t.TempDir()), nil, logger, Options{})
	require.NoError(t, err)
	return a
}

func uploadRequest(t *testing.T, workbooks map[string][]byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, data := range workbooks {
		part, err := mw.CreateFormFile(transport.UploadField, name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/stocktake", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestRoutes(t *testing.T) {
	a := newTestApp(t, nil)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantType   string
	}{
		{"upload page", http.MethodGet, "/", http.StatusOK, "text/html"},
		{"health", http.MethodGet, "/api/health", http.StatusOK, "application/json"},
		{"version", http.MethodGet, "/api/version", http.StatusOK, "application/json"},
		{"metrics disabled", http.MethodGet, "/metrics", http.StatusServiceUnavailable, "application/json"},
		{"unknown route", http.MethodGet, "/api/nothing", http.StatusNotFound, "application/json"},
		{"wrong method", http.MethodGet, "/api/stocktake", http.StatusMethodNotAllowed, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			a.Router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantType != "" {
				assert.Contains(t, rec.Header().Get("Content-Type"), tt.wantType)
			}
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		})
	}
}

func TestUploadEndToEnd(t *testing.T) {
	a := newTestApp(t, nil)

	d1 := testutil.WorkbookBytes(t,
		testutil.Sheet("Full Cylinders", testutil.Row("QR"), testutil.Row("A1"), testutil.Row("A2")),
	)
	d2 := testutil.WorkbookBytes(t,
		testutil.Sheet("Full Defectives", testutil.Row("QR"), testutil.Row("a2")),
	)

	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, uploadRequest(t, map[string][]byte{"D1.xlsx": d1, "D2.xlsx": d2}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp transport.StocktakeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Files)
	require.Len(t, resp.DuplicateGroups, 1)
	assert.Equal(t, "A2", resp.DuplicateGroups[0].Code)
	assert.Equal(t, []string{"D1", "D2"}, resp.DuplicateGroups[0].Depots)
}

func TestUploadRateLimited(t *testing.T) {
	a := newTestApp(t, func(cfg *config.Config) {
		cfg.RateLimit.RPS = 0.001
		cfg.RateLimit.Burst = 1
	})

	wb := testutil.WorkbookBytes(t, testutil.Sheet("Full Cylinders", testutil.Row("QR"), testutil.Row("A1")))

	first := httptest.NewRecorder()
	a.Router.ServeHTTP(first, uploadRequest(t, map[string][]byte{"D1.xlsx": wb}))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	a.Router.ServeHTTP(second, uploadRequest(t, map[string][]byte{"D1.xlsx": wb}))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	// health is outside the limited group
	health := httptest.NewRecorder()
	a.Router.ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, health.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	cfg := config.Default()
	logger, _ := testutil.NewTestLogger(t)
	providers, err := infrastructure.InitializeOTel(&infrastructure.OTelConfig{
		ServiceName:    infrastructure.ServiceName,
		ServiceVersion: "test",
		MetricExporter: "prometheus",
		TraceExporter:  "none",
		SampleRatio:    1,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { providers.Shutdown(context.Background()) })

	a, err := New(cfg, config.NewPaths(t.TempDir()), providers, logger, Options{})
	require.NoError(t, err)

	a.Router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/health", nil))

	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestServeAndStop(t *testing.T) {
	a := newTestApp(t, func(cfg *config.Config) {
		cfg.Server.ShutdownTimeout = 5 * time.Second
	})

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- a.Serve(context.Background(), l) }()

	resp, err := http.Get("http://" + l.Addr().String() + "/api/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, a.Stop(context.Background()))
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
