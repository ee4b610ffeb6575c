package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		want    slog.Level
		enabled bool
		wantErr bool
	}{
		{name: "", want: slog.LevelWarn, enabled: true},
		{name: "debug", want: slog.LevelDebug, enabled: true},
		{name: "INFO", want: slog.LevelInfo, enabled: true},
		{name: "error", want: slog.LevelError, enabled: true},
		{name: "off"},
		{name: "loud", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, ok, err := ParseLevel(tt.name)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.enabled, ok)
			if ok {
				assert.Equal(t, tt.want, level)
			}
		})
	}
}

func TestNewWriter_RenamesErrorKey(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriter(&buf, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("call failed", "error", errors.New("boom"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "err=boom")
	assert.NotContains(t, out, "error=boom")
}

func TestFromName(t *testing.T) {
	logger, err := FromName("off")
	require.NoError(t, err)
	assert.False(t, logger.Enabled(t.Context(), slog.LevelError))

	_, err = FromName("verbose")
	assert.Error(t, err)
}
