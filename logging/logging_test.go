package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"INFO", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{"warning", slog.LevelWarn, false},
		{" error ", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFanoutRespectsLevels(t *testing.T) {
	var infoBuf, errBuf bytes.Buffer
	h := fanout{
		slog.NewTextHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewTextHandler(&errBuf, &slog.HandlerOptions{Level: slog.LevelError}),
	}
	logger := slog.New(h).With("stage", "extract")

	logger.Info("inserted", "job_id", 1)
	logger.Error("failed", "job_id", 2)

	assert.Contains(t, infoBuf.String(), "inserted")
	assert.Contains(t, infoBuf.String(), "failed")
	assert.Contains(t, infoBuf.String(), "stage=extract")
	assert.NotContains(t, errBuf.String(), "inserted")
	assert.Contains(t, errBuf.String(), "failed")
	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))
}

func TestSetupWritesFile(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	path := filepath.Join(t.TempDir(), "logs", "pipeline.log")
	closer, err := Setup(Options{Level: "info", File: path})
	require.NoError(t, err)

	slog.Info("hello from test")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello from test")
}
