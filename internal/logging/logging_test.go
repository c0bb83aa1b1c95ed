package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ayusman/mudra/internal/config"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{level: "", want: zapcore.InfoLevel},
		{level: "debug", want: zapcore.DebugLevel},
		{level: "warn", want: zapcore.WarnLevel},
		{level: "ERROR", want: zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			log, err := New(config.LogConfig{Level: tt.level, Mode: "debug"})
			require.NoError(t, err)
			assert.True(t, log.Core().Enabled(tt.want))
			if tt.want > zapcore.DebugLevel {
				assert.False(t, log.Core().Enabled(tt.want-1))
			}
		})
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mudra.log")

	log, err := New(config.LogConfig{Level: "info", Mode: "release", File: path})
	require.NoError(t, err)

	log.Named("osc").Info("osc target", zap.String("target", "127.0.0.1:8000"))
	log.Debug("filtered out")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "osc target", entry["message"])
	assert.Equal(t, "osc", entry["logger"])
	assert.Equal(t, "127.0.0.1:8000", entry["target"])
	assert.Contains(t, entry, "timestamp")
}

func TestNewRotator(t *testing.T) {
	r := NewRotator("/tmp/mudra.log")
	assert.Equal(t, MaxSizeMB, r.MaxSize)
	assert.Equal(t, MaxBackups, r.MaxBackups)
	assert.True(t, r.Compress)
}
