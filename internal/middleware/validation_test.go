package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "stocktake/internal/errors"
)

type exportRequest struct {
	Format   string `json:"format" validate:"oneof=json csv xlsx"`
	Preview  int    `json:"preview" validate:"gte=0,lte=1000"`
	Filename string `json:"filename" validate:"omitempty,filename"`
}

func TestValidator_ValidateStruct(t *testing.T) {
	tests := []struct {
		name      string
		req       exportRequest
		wantField []string
		wantMsg   string
	}{
		{name: "valid", req: exportRequest{Format: "csv", Preview: 5}},
		{name: "valid with filename", req: exportRequest{Format: "xlsx", Filename: "report.xlsx"}},
		{
			name:      "bad format",
			req:       exportRequest{Format: "pdf"},
			wantField: []string{"format"},
			wantMsg:   "format must be one of: json, csv, xlsx",
		},
		{
			name:      "negative preview and traversal",
			req:       exportRequest{Format: "json", Preview: -1, Filename: "../x"},
			wantField: []string{"preview", "filename"},
		},
	}

	v := NewValidator(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateStruct(tt.req)
			if tt.wantField == nil {
				assert.NoError(t, err)
				return
			}

			var apiErr *apierrors.APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)

			details, ok := apiErr.Details.(apierrors.ValidationErrors)
			require.True(t, ok)
			fields := make([]string, len(details.Errors))
			for i, fe := range details.Errors {
				fields[i] = fe.Field
			}
			assert.Equal(t, tt.wantField, fields)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, details.Errors[0].Message)
			}
		})
	}
}

func TestContentTypeValidator(t *testing.T) {
	h := ContentTypeValidator("multipart/form-data")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	tests := []struct {
		name        string
		method      string
		contentType string
		want        int
	}{
		{"get skips check", http.MethodGet, "", http.StatusAccepted},
		{"multipart allowed", http.MethodPost, "multipart/form-data; boundary=x", http.StatusAccepted},
		{"missing content type", http.MethodPost, "", http.StatusBadRequest},
		{"json rejected", http.MethodPost, "application/json", http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", strings.NewReader("x"))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
