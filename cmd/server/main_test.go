package main

import (
	"bytes"
	"log/slog"
	"testing"

	"mui-datatable/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportValidation(t *testing.T) {
	tests := []struct {
		name      string
		result    *config.ValidationResult
		expectErr bool
		wantLog   []string
	}{
		{
			name:   "clean result",
			result: &config.ValidationResult{},
		},
		{
			name: "warnings only",
			result: &config.ValidationResult{
				Warnings: []config.ValidationWarning{{Field: "tables", Message: "no tables configured"}},
			},
			wantLog: []string{"configuration warning", "field=tables"},
		},
		{
			name: "errors fail",
			result: &config.ValidationResult{
				Errors: []config.ValidationError{{Field: "server.port", Message: "must be between 1 and 65535"}},
			},
			expectErr: true,
			wantLog:   []string{"configuration error", "field=server.port"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))

			err := reportValidation(logger, tt.result)
			if tt.expectErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "server.port")
			} else {
				require.NoError(t, err)
			}
			for _, want := range tt.wantLog {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestVersionString(t *testing.T) {
	assert.Equal(t, "mui-datatable dev (none)", versionString())
}
