package files

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocktake/internal/config"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestSaveUpload(t *testing.T) {
	paths := config.NewPaths(t.TempDir())
	m := NewManager(paths, nil)

	stored, err := m.SaveUpload("run-1", "../../etc/D1.xlsx", strings.NewReader("workbook"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(paths.InputDir, "run-1", "D1.xlsx"), stored)

	data, err := os.ReadFile(stored)
	require.NoError(t, err)
	assert.Equal(t, "workbook", string(data))
}

func TestSaveUploadWindowsName(t *testing.T) {
	paths := config.NewPaths(t.TempDir())

	stored, err := NewManager(paths, nil).SaveUpload("", `C:\Users\depot\Basra.xlsx`, strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "Basra.xlsx", filepath.Base(stored))
}

func TestSaveUploadFailedCopyRemovesFile(t *testing.T) {
	paths := config.NewPaths(t.TempDir())

	_, err := NewManager(paths, nil).SaveUpload("run-2", "D1.xlsx", failingReader{})
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(paths.InputDir, "run-2", "D1.xlsx"))
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{name: "D1.xlsx", want: "D1.xlsx"},
		{name: "a/b/D2.xlsx", want: "D2.xlsx"},
		{name: `dir\D3.xlsx`, want: "D3.xlsx"},
		{name: "", wantErr: true},
		{name: "..", wantErr: true},
		{name: "/", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeFileName(tt.name)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestManagerPaths(t *testing.T) {
	base := t.TempDir()
	m := NewManager(config.NewPaths(base), nil)

	assert.Equal(t, filepath.Join(base, "data"), m.ResolvePath("data"))
	assert.Equal(t, "/abs/path", m.ResolvePath("/abs/path"))

	require.NoError(t, m.CreateDirectory("data/reports"))
	assert.True(t, m.FileExists("data/reports"))
	assert.False(t, m.FileExists("data/missing"))
}
