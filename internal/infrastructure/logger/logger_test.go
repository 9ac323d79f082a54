package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// bufferedJSONLogger writes JSON entries into buf so tests can assert on
// the rendered output.
func bufferedJSONLogger(buf *bytes.Buffer, encoderConfig zapcore.EncoderConfig) *zap.Logger {
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(buf), zapcore.InfoLevel)
	return zap.New(core)
}

func TestConfigPresets(t *testing.T) {
	t.Run("default is console", func(t *testing.T) {
		cfg := DefaultConfig()
		assert.Equal(t, "info", cfg.Level)
		assert.Equal(t, "console", cfg.Format)
		assert.Equal(t, "stdout", cfg.Output)
		assert.NotEmpty(t, cfg.TimeFormat)
	})

	t.Run("production is json", func(t *testing.T) {
		cfg := ProductionConfig()
		assert.Equal(t, "info", cfg.Level)
		assert.Equal(t, "json", cfg.Format)
		assert.Equal(t, "stdout", cfg.Output)
		assert.NotEmpty(t, cfg.TimeFormat)
	})
}

func TestNew(t *testing.T) {
	cases := map[string]*Config{
		"default config":    DefaultConfig(),
		"production config": ProductionConfig(),
		"debug console":     {Level: "debug", Format: "console", Output: "stdout", TimeFormat: "2006-01-02T15:04:05Z07:00"},
		"json to stderr":    {Level: "warn", Format: "json", Output: "stderr", TimeFormat: "2006-01-02T15:04:05Z07:00"},
	}

	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			log, err := New(cfg)
			require.NoError(t, err)
			assert.NotNil(t, log)
		})
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"DEBUG":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"fatal":   zapcore.FatalLevel,
		"unknown": zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
	}

	for level, expected := range cases {
		t.Run(level, func(t *testing.T) {
			assert.Equal(t, expected, parseLevel(level))
		})
	}
}

func TestNewWriter(t *testing.T) {
	for _, output := range []string{"stdout", "stderr", "STDOUT"} {
		t.Run(output, func(t *testing.T) {
			assert.NotNil(t, newWriter(output))
		})
	}

	t.Run("file", func(t *testing.T) {
		tmpFile, err := os.CreateTemp(t.TempDir(), "charging-log-*.log")
		require.NoError(t, err)
		tmpFile.Close()

		assert.NotNil(t, newWriter(tmpFile.Name()))
	})

	t.Run("unwritable path falls back", func(t *testing.T) {
		// A directory cannot be opened as a log file; must not panic
		assert.NotNil(t, newWriter(os.TempDir()))
	})
}

func TestNewEncoder(t *testing.T) {
	for _, format := range []string{"console", "json"} {
		t.Run(format, func(t *testing.T) {
			cfg := &Config{Level: "info", Format: format, Output: "stdout", TimeFormat: "2006-01-02T15:04:05Z07:00"}
			assert.NotNil(t, newEncoder(cfg))
		})
	}
}

func TestStructuredOutput(t *testing.T) {
	var buf bytes.Buffer
	log := bufferedJSONLogger(&buf, zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		MessageKey:     "msg",
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
	})

	log.Info("Resolving charging", zap.String("order_id", "order-7"))

	var output map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &output))

	assert.Equal(t, "Resolving charging", output["msg"])
	assert.Equal(t, "info", output["level"])
	assert.Equal(t, "order-7", output["order_id"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := bufferedJSONLogger(&buf, zapcore.EncoderConfig{
		LevelKey:    "level",
		MessageKey:  "msg",
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	})

	log.Debug("charge lock released")
	assert.NotContains(t, buf.String(), "charge lock released")

	log.Info("charge committed")
	assert.Contains(t, buf.String(), "charge committed")
}
