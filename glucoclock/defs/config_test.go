package defs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"glucoclock/glucoclock/pkg/window"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

const sampleConfig = `
dexcom:
  account: someone
  password: hunter2
  region: us
glucose:
  low: 4.0
  high: 9.0
poll:
  interval: 5m
  retryInterval: 30s
alarm:
  cooldown: 3m
  window:
    start: "23:00"
    end: "06:30"
brightness:
  nightPercent: 5
timezone: UTC
`

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadOverDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "someone", cfg.Dexcom.Account)
	assert.Equal(t, "us", cfg.Dexcom.Region)
	assert.Equal(t, 4.0, cfg.Glucose.Low)
	assert.Equal(t, 9.0, cfg.Glucose.High)
	assert.Equal(t, 5*time.Minute, cfg.Poll.Interval)
	assert.Equal(t, 3*time.Minute, cfg.Alarm.Cooldown)
	assert.Equal(t, window.Window{Start: 23 * 60, End: 6*60 + 30}, cfg.Alarm.Window)
	assert.Equal(t, 5, cfg.Brightness.NightPercent)

	// Untouched fields keep their defaults.
	assert.Equal(t, 10*time.Second, cfg.Alarm.CheckInterval)
	assert.Equal(t, 100, cfg.Brightness.DayPercent)
	assert.Equal(t, time.Hour, cfg.Mute.Duration)
	assert.Equal(t, window.Window{Start: 22*60 + 30, End: 7 * 60}, cfg.Brightness.Window)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	bad := Default()
	bad.Glucose.Low = 12
	assert.Error(t, bad.Validate())

	bad = Default()
	bad.Poll.RetryInterval = 0
	assert.Error(t, bad.Validate())

	bad = Default()
	bad.Brightness.NightPercent = 120
	assert.Error(t, bad.Validate())

	bad = Default()
	bad.Alarm.Window.End = window.MinutesPerDay
	assert.Error(t, bad.Validate())

	bad = Default()
	bad.Dexcom.Region = "mars"
	assert.Error(t, bad.Validate())

	bad = Default()
	bad.Discord.Token = "token"
	assert.Error(t, bad.Validate())

	bad = Default()
	bad.Logging.Format = "xml"
	assert.Error(t, bad.Validate())
}

func TestRedacted(t *testing.T) {
	cfg := Default()
	cfg.Dexcom.Password = "hunter2"
	cfg.Discord.Token = "token"

	r := cfg.Redacted()
	assert.Equal(t, redacted, r.Dexcom.Password)
	assert.Equal(t, redacted, r.Discord.Token)
	assert.Empty(t, r.Mongo.Password)
	assert.Equal(t, "hunter2", cfg.Dexcom.Password)
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"console", "json", "logfmt"} {
		logger, err := NewLogger(LoggingConfig{Format: format, Level: "debug"})
		require.NoError(t, err, format)
		assert.True(t, logger.Core().Enabled(zapcore.DebugLevel), format)
	}
}
