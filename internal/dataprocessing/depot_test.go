package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveDepot(t *testing.T) {
	tests := []struct {
		sourceFile string
		want       string
	}{
		{"folder/sub/NAIROBI.xlsx", "NAIROBI"},
		{"MOMBASA.xlsx", "MOMBASA"},
		{"/abs/path/KISUMU.XLSX", "KISUMU"},
		{"ELDORET.backup.xlsx", "ELDORET.backup"},
		{"NAKURU", "NAKURU"},
		{"dir.v2/THIKA", "THIKA"},
		{".xlsx", ".xlsx"},
	}

	for _, tt := range tests {
		t.Run(tt.sourceFile, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveDepot(tt.sourceFile))
		})
	}
}
