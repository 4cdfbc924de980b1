package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"stocktake/internal/dataprocessing"
	apierrors "stocktake/internal/errors"
	"stocktake/internal/exporter"
	"stocktake/internal/files"
	"stocktake/internal/infrastructure"
	"stocktake/internal/middleware"
	"stocktake/internal/validation"
	"stocktake/pkg/contracts/domain"
)

// Response formats of the upload endpoint
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// UploadField is the multipart field carrying the depot workbooks
const UploadField = "files"

// DefaultPreview is the number of dataset records returned when ?preview is absent
const DefaultPreview = 5

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// multipartMemory is the part of an upload kept in memory before spilling to disk
	multipartMemory = 32 << 20
)

// UploadOptions are the query options of POST /api/stocktake
type UploadOptions struct {
	Format   string `json:"format" validate:"oneof=json csv xlsx"`
	Table    string `json:"table" validate:"oneof=dataset pivot duplicates duplicates_pivot"`
	Preview  int    `json:"preview" validate:"gte=0,lte=1000"`
	Filename string `json:"filename" validate:"omitempty,filename"`
}

// StocktakeResponse is the JSON body of a finished run
type StocktakeResponse struct {
	RunID           string                  `json:"run_id"`
	Files           int                     `json:"files"`
	Fragments       int                     `json:"fragments"`
	Records         int                     `json:"records"`
	CodedRecords    int                     `json:"coded_records"`
	Columns         []string                `json:"columns"`
	Preview         []map[string]string     `json:"preview"`
	Pivot           *domain.Pivot           `json:"pivot,omitempty"`
	Duplicates      []domain.DuplicateEntry `json:"duplicates"`
	DuplicateGroups []domain.DuplicateGroup `json:"duplicate_groups"`
	DuplicatePivot  *domain.Pivot           `json:"duplicate_pivot,omitempty"`
	Diagnostics     []string                `json:"diagnostics"`
	Warnings        []string                `json:"warnings"`
}

// HandlerConfig sizes the upload handler
type HandlerConfig struct {
	MaxUploadBytes int64
	RunTimeout     time.Duration
	BOMPrefix      bool
}

// StocktakeHandler accepts depot workbook uploads and answers with the run's tables
type StocktakeHandler struct {
	runner       StocktakeRunner
	cfg          HandlerConfig
	validator    *middleware.Validator
	errorHandler *apierrors.ErrorHandler
	archive      *files.Manager
	logger       *slog.Logger
}

// NewStocktakeHandler creates the upload handler. archive may be nil, in
// which case uploads are only held in memory for the duration of the run.
func NewStocktakeHandler(runner StocktakeRunner, cfg HandlerConfig, archive *files.Manager,
	errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *StocktakeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if errorHandler == nil {
		errorHandler = apierrors.NewErrorHandler(logger, false)
	}
	return &StocktakeHandler{
		runner:       runner,
		cfg:          cfg,
		validator:    middleware.NewValidator(logger),
		errorHandler: errorHandler,
		archive:      archive,
		logger:       logger.With(slog.String("component", "stocktake_handler")),
	}
}

// Routes returns the stock take routes
func (h *StocktakeHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(middleware.ContentTypeValidator("multipart/form-data")).Post("/", h.Upload)
	return r
}

// Upload handles POST /api/stocktake
func (h *StocktakeHandler) Upload(w http.ResponseWriter, r *http.Request) {
	opts, err := h.parseOptions(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	if h.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
				http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE",
				"Upload exceeds the maximum allowed size",
				map[string]interface{}{"max_bytes": tooLarge.Limit},
			))
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	uploads := r.MultipartForm.File[UploadField]
	if len(uploads) == 0 {
		h.errorHandler.HandleError(w, r, apierrors.ErrNoFiles)
		return
	}

	ctx := r.Context()
	if h.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.RunTimeout)
		defer cancel()
	}

	sources, rejected := h.collectSources(ctx, uploads)

	result, err := h.runner.Run(ctx, sources)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	result.Diagnostics = append(rejected, result.Diagnostics...)

	h.logger.InfoContext(ctx, "Upload processed",
		slog.String("run_id", result.RunID),
		slog.Int("uploads", len(uploads)),
		slog.Int("rejected", len(rejected)),
		slog.String("format", opts.Format))

	switch opts.Format {
	case FormatCSV:
		h.writeCSV(w, r, result, opts)
	case FormatXLSX:
		h.writeXLSX(w, r, result, opts)
	default:
		render.JSON(w, r, NewStocktakeResponse(result, opts.Preview))
	}
}

// collectSources reads every upload into memory. Files that are not .xlsx are
// returned as ingest diagnostics instead of being run.
func (h *StocktakeHandler) collectSources(ctx context.Context, uploads []*multipart.FileHeader) ([]dataprocessing.Source, []error) {
	var (
		sources  []dataprocessing.Source
		rejected []error
		archived string
	)
	if h.archive != nil {
		archived = infrastructure.GenerateRunID()
	}

	for _, fh := range uploads {
		if err := validation.ValidateWorkbookName(fh.Filename); err != nil {
			h.logger.WarnContext(ctx, "Rejecting upload",
				slog.String("file", fh.Filename),
				slog.String("error", err.Error()))
			rejected = append(rejected, apierrors.NewIngestError(fh.Filename, err))
			continue
		}

		data, err := readUpload(fh)
		if err != nil {
			rejected = append(rejected, apierrors.NewIngestError(fh.Filename, err))
			continue
		}
		sources = append(sources, dataprocessing.BytesSource(fh.Filename, data))

		if h.archive != nil {
			if _, err := h.archive.SaveUpload(archived, fh.Filename, bytes.NewReader(data)); err != nil {
				h.logger.WarnContext(ctx, "Failed to archive upload",
					slog.String("file", fh.Filename),
					slog.String("error", err.Error()))
			}
		}
	}
	return sources, rejected
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (h *StocktakeHandler) parseOptions(r *http.Request) (UploadOptions, error) {
	q := r.URL.Query()
	opts := UploadOptions{
		Format:   q.Get("format"),
		Table:    q.Get("table"),
		Preview:  DefaultPreview,
		Filename: q.Get("filename"),
	}
	if opts.Format == "" {
		opts.Format = FormatJSON
	}
	if opts.Table == "" {
		opts.Table = exporter.TableDataset
	}
	if raw := q.Get("preview"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return opts, apierrors.ErrValidation("preview", "preview must be a valid integer")
		}
		opts.Preview = n
	}

	if err := h.validator.ValidateStruct(opts); err != nil {
		return opts, err
	}
	return opts, nil
}

func (h *StocktakeHandler) writeCSV(w http.ResponseWriter, r *http.Request, result *domain.Result, opts UploadOptions) {
	table, ok := exporter.TableByName(result, opts.Table)
	if !ok {
		h.errorHandler.HandleError(w, r, emptyInputError(result))
		return
	}

	var buf bytes.Buffer
	if err := exporter.EncodeTable(&buf, table, h.cfg.BOMPrefix); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.NewStorageError("cannot encode csv", err))
		return
	}

	name := opts.Filename
	if name == "" {
		name = exporter.FileName(table.Name)
	}
	writeAttachment(w, contentTypeCSV, name, buf.Bytes())
}

func (h *StocktakeHandler) writeXLSX(w http.ResponseWriter, r *http.Request, result *domain.Result, opts UploadOptions) {
	tables := exporter.Tables(result)
	if len(tables) == 0 {
		h.errorHandler.HandleError(w, r, emptyInputError(result))
		return
	}

	var buf bytes.Buffer
	if err := exporter.EncodeWorkbook(&buf, tables); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.NewStorageError("cannot encode workbook", err))
		return
	}

	name := opts.Filename
	if name == "" {
		name = "stocktake_report.xlsx"
	}
	writeAttachment(w, contentTypeXLSX, name, buf.Bytes())
}

func writeAttachment(w http.ResponseWriter, contentType, name string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// emptyInputError returns the run's own empty input warning when it has one
func emptyInputError(result *domain.Result) error {
	for _, warning := range result.Warnings {
		if apierrors.IsType(warning, apierrors.ErrTypeEmptyInput) {
			return warning
		}
	}
	return apierrors.NewEmptyInputWarning(result.Files)
}

// NewStocktakeResponse builds the JSON view of a result with up to preview records
func NewStocktakeResponse(result *domain.Result, preview int) *StocktakeResponse {
	resp := &StocktakeResponse{
		RunID:           result.RunID,
		Files:           result.Files,
		Fragments:       result.Fragments,
		Records:         result.Dataset.Len(),
		CodedRecords:    result.Dataset.CodedRecords(),
		Columns:         result.Dataset.Columns,
		Preview:         []map[string]string{},
		Pivot:           result.Pivot,
		Duplicates:      result.Duplicates,
		DuplicateGroups: result.DuplicateGroups,
		DuplicatePivot:  result.DuplicatePivot,
		Diagnostics:     errorStrings(result.Diagnostics),
		Warnings:        errorStrings(result.Warnings),
	}
	if resp.Columns == nil {
		resp.Columns = []string{}
	}
	if resp.Duplicates == nil {
		resp.Duplicates = []domain.DuplicateEntry{}
	}
	if resp.DuplicateGroups == nil {
		resp.DuplicateGroups = []domain.DuplicateGroup{}
	}

	head := exporter.DatasetTable(domain.Dataset{
		Columns: result.Dataset.Columns,
		Records: result.Dataset.Head(preview),
	})
	for _, row := range head.StringRows() {
		rec := make(map[string]string, len(row))
		for i, v := range row {
			rec[head.Headers[i]] = v
		}
		resp.Preview = append(resp.Preview, rec)
	}
	return resp
}

// errorStrings renders errors for people: pipeline errors without their type tag
func errorStrings(errs []error) []string {
	out := make([]string, 0, len(errs))
	for _, err := range errs {
		var appErr *apierrors.AppError
		switch {
		case errors.As(err, &appErr) && appErr.Cause != nil:
			out = append(out, fmt.Sprintf("%s: %v", appErr.Message, appErr.Cause))
		case errors.As(err, &appErr):
			out = append(out, appErr.Message)
		default:
			out = append(out, err.Error())
		}
	}
	return out
}
