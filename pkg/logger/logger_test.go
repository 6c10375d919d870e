package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"igextract/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{name: "info level", cfg: &config.LoggingConfig{Level: "info", Format: "json"}},
		{name: "debug console", cfg: &config.LoggingConfig{Level: "debug", Format: "console"}},
		{name: "auto format", cfg: &config.LoggingConfig{Level: "warn", Format: "auto"}},
		{name: "invalid level", cfg: &config.LoggingConfig{Level: "loud"}, wantErr: true},
		{
			name: "file output",
			cfg: &config.LoggingConfig{
				Level:  "info",
				Format: "json",
				File:   filepath.Join(t.TempDir(), "logs", "igextract.log"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, log)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"INFO", zerolog.InfoLevel, false},
		{"", zerolog.InfoLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"verbose", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			level, err := parseLogLevel(tt.level)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestStructuredOutput(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, zerolog.DebugLevel)

	log.WithField("username", "natgeo").
		WithError(errors.New("boom")).
		InfoWithFields("page fetched", map[string]interface{}{"page": 2, "cursor": "abc"})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "page fetched", entry["message"])
	assert.Equal(t, "igextract", entry["app"])
	assert.Equal(t, "natgeo", entry["username"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, float64(2), entry["page"])
	assert.Equal(t, "abc", entry["cursor"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, zerolog.WarnLevel)

	log.Debug("hidden")
	log.Info("hidden")
	assert.Zero(t, buf.Len())

	log.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestWithFieldsDoesNotLeakToParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewWithWriter(&buf, zerolog.InfoLevel)
	_ = parent.WithField("run_id", "r1")

	parent.Info("plain")
	assert.NotContains(t, buf.String(), "run_id")
}

func TestTestLogger(t *testing.T) {
	log := NewTestLogger()
	child := log.WithField("run_id", "r1")

	child.Warn("anomaly")
	log.Debug("strategy missed")
	child.WithError(errors.New("x")).Error("failed")

	assert.True(t, log.HasMessage("anomaly"))
	assert.False(t, log.HasMessage("missing"))
	assert.Len(t, log.GetMessages(), 3)

	warns := log.GetMessagesByLevel("WARN")
	require.Len(t, warns, 1)
	assert.Equal(t, "r1", warns[0].Fields["run_id"])

	errs := log.GetMessagesByLevel("ERROR")
	require.Len(t, errs, 1)
	assert.EqualError(t, errs[0].Error, "x")

	log.Clear()
	assert.Empty(t, log.GetMessages())
}

func TestNopLogger(t *testing.T) {
	log := NewNopLogger()
	assert.NotPanics(t, func() {
		log.WithField("k", "v").WithError(errors.New("e")).InfoWithFields("ignored", nil)
	})
}
