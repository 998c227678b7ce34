package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/plugsim/internal/config"
	"codeberg.org/mutker/plugsim/internal/errors"
	"codeberg.org/mutker/plugsim/internal/source"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "plugsim.toml")
	err := os.WriteFile(configPath, []byte(content), 0o600)
	require.NoError(t, err)

	return configPath
}

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()

	fs := pflag.NewFlagSet("plugsim", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))

	return fs
}

func TestLoad(t *testing.T) {
	configPath := writeConfig(t, `
sample_size = 2
publish_rate = 250.5
render_every_n = 10
log_sample_rate = 50
recent_window_capacity = 30
interleave = "round_robin"
log_level = "debug"

[[devices]]
id = "fridge_207"
name = "Buzdolabı"
file = "data/fridge_207.csv"

[[devices]]
file = "data/vacuum_254.csv"

[metrics]
enabled = true
interval = "5s"
`)
	t.Setenv("PLUGSIM_CONFIG", configPath)

	cfg, err := config.Load(nil)
	require.NoError(t, err)

	assert.Equal(t, config.Limit(2), cfg.SampleSize, "Expected SampleSize 2")
	assert.InDelta(t, 250.5, cfg.PublishRate.PerSecond(), 1e-9, "Expected PublishRate 250.5")
	assert.Equal(t, 10, cfg.RenderEveryN, "Expected RenderEveryN 10")
	assert.Equal(t, 50, cfg.LogSampleRate, "Expected LogSampleRate 50")
	assert.Equal(t, 30, cfg.RecentWindowCapacity, "Expected RecentWindowCapacity 30")
	assert.Equal(t, source.InterleaveRoundRobin, cfg.Interleave, "Expected round robin")
	assert.Equal(t, "debug", cfg.LogLevel, "Expected LogLevel debug")
	assert.True(t, cfg.Metrics.Enabled, "Expected metrics enabled")
	assert.Equal(t, 5*time.Second, cfg.Metrics.Interval, "Expected metrics interval 5s")

	require.Len(t, cfg.Devices, 2)
	assert.Equal(t, map[string]string{"fridge_207": "Buzdolabı"}, cfg.Labels())
	assert.Equal(t, []source.FileSpec{
		{DeviceID: "fridge_207", Path: "data/fridge_207.csv"},
		{DeviceID: "vacuum_254", Path: "data/vacuum_254.csv"},
	}, cfg.Files())
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PLUGSIM_CONFIG", "")

	cfg, err := config.Load(newFlags(t), config.WithDeviceFiles("fridge_207.csv"))
	require.NoError(t, err, "Failed to load config")

	assert.True(t, cfg.SampleSize.IsUnbounded(), "Expected unbounded sample size")
	assert.Equal(t, config.DefaultPublishRate, cfg.PublishRate, "Expected default publish rate")
	assert.Equal(t, 100, cfg.RenderEveryN, "Expected default RenderEveryN 100")
	assert.Equal(t, 1000, cfg.LogSampleRate, "Expected default LogSampleRate 1000")
	assert.Equal(t, 20, cfg.RecentWindowCapacity, "Expected default window 20")
	assert.Equal(t, source.InterleaveSequential, cfg.Interleave, "Expected sequential")
	assert.Equal(t, "home/appliance", cfg.TopicPrefix, "Expected default topic prefix")
	assert.Equal(t, "readings", cfg.Table, "Expected default table")
	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel, "Expected default LogLevel info")
	assert.False(t, cfg.Metrics.Enabled, "Expected metrics disabled")
	assert.Equal(t, 10*time.Second, cfg.Metrics.Interval, "Expected default metrics interval")
	assert.Equal(t, []config.Device{{ID: "fridge_207", File: "fridge_207.csv"}}, cfg.Devices)
}

func TestFlagsOverrideFile(t *testing.T) {
	configPath := writeConfig(t, `
render_every_n = 10
publish_rate = 50
database = "readings.db"
`)

	fs := newFlags(t, "--render-every", "7", "--publish-rate", "unbounded", "--sample-size", "3")
	cfg, err := config.Load(fs, config.WithConfigFile(configPath))
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.RenderEveryN, "Expected flag to win over file")
	assert.True(t, cfg.PublishRate.IsUnlimited(), "Expected unbounded publish rate")
	assert.Equal(t, config.Limit(3), cfg.SampleSize)
	assert.Equal(t, "readings.db", cfg.Database)
}

func TestEnvOverridesFile(t *testing.T) {
	configPath := writeConfig(t, `
render_every_n = 10
database = "readings.db"
`)
	t.Setenv("PLUGSIM_RENDER_EVERY_N", "3")
	t.Setenv("PLUGSIM_METRICS_ENABLED", "true")

	cfg, err := config.Load(newFlags(t), config.WithConfigFile(configPath))
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.RenderEveryN, "Expected env to win over file")
	assert.True(t, cfg.Metrics.Enabled)
}

func TestDatabaseDevices(t *testing.T) {
	configPath := writeConfig(t, `
database = "readings.db"
database_devices = ["fridge_207"]
`)

	cfg, err := config.Load(newFlags(t), config.WithConfigFile(configPath))
	require.NoError(t, err)
	assert.Equal(t, []string{"fridge_207"}, cfg.DatabaseDevices)

	fs := newFlags(t, "--database-devices", "fridge_207,vacuum_254")
	cfg, err = config.Load(fs, config.WithConfigFile(configPath))
	require.NoError(t, err)
	assert.Equal(t, []string{"fridge_207", "vacuum_254"}, cfg.DatabaseDevices, "Expected flag to win over file")

	t.Setenv("PLUGSIM_DATABASE_DEVICES", "kettle,washer")
	cfg, err = config.Load(newFlags(t), config.WithConfigFile(configPath))
	require.NoError(t, err)
	assert.Equal(t, []string{"kettle", "washer"}, cfg.DatabaseDevices, "Expected env to win over file")
}

func TestDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("PLUGSIM_LOG_SAMPLE_RATE=77\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("PLUGSIM_LOG_SAMPLE_RATE") })
	t.Setenv("PLUGSIM_CONFIG", "")

	cfg, err := config.Load(newFlags(t), config.WithDotEnv(envPath), config.WithDeviceFiles("a.csv"))
	require.NoError(t, err)
	assert.Equal(t, 77, cfg.LogSampleRate)
}

func TestLoadConfigFileInvalidFormat(t *testing.T) {
	configPath := writeConfig(t, `
This is not a valid TOML file
`)

	_, err := config.Load(nil, config.WithConfigFile(configPath))
	require.Error(t, err)
	assert.Equal(t, errors.ErrReadConfig, errors.CodeOf(err))
	assert.Contains(t, err.Error(), "Failed to read config file")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := config.Load(nil, config.WithConfigFile(filepath.Join(t.TempDir(), "nope.toml")))
	require.Error(t, err)
	assert.Equal(t, errors.ErrReadConfig, errors.CodeOf(err))
}

func TestInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{"zero sample size", "sample_size = 0", "sample_size"},
		{"negative sample size", "sample_size = -4", "sample_size"},
		{"garbage sample size", `sample_size = "many"`, "sample_size"},
		{"zero publish rate", "publish_rate = 0", "publish_rate"},
		{"zero render cadence", "render_every_n = 0", "render_every_n"},
		{"zero log sampling", "log_sample_rate = 0", "log_sample_rate"},
		{"zero window", "recent_window_capacity = 0", "recent_window_capacity"},
		{"unknown interleave", `interleave = "shuffle"`, "interleave"},
		{"wildcard prefix", `topic_prefix = "home/+"`, "topic_prefix"},
		{"log level", `log_level = "invalid"`, "log_level"},
		{"empty database device", `database_devices = ["fridge_207", ""]`, "database_devices"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := writeConfig(t, tt.content+"\ndatabase = \"readings.db\"\n")

			_, err := config.Load(nil, config.WithConfigFile(configPath))
			require.Error(t, err)
			assert.Equal(t, errors.ErrInvalidConfig, errors.CodeOf(err))
			assert.True(t, errors.IsConfig(err))
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestValidateReportsAllFields(t *testing.T) {
	cfg := config.New()
	cfg.RenderEveryN = 0
	cfg.LogSampleRate = -1
	cfg.Database = "readings.db"

	err := cfg.Validate()
	require.Error(t, err)

	appErr, ok := err.(errors.Error)
	require.True(t, ok)
	fieldErrs, ok := appErr.GetData().(config.ValidationErrors)
	require.True(t, ok)
	require.Len(t, fieldErrs, 2)
	assert.Equal(t, "render_every_n", fieldErrs[0].Field())
	assert.Equal(t, 0, fieldErrs[0].Value())
	assert.Equal(t, "log_sample_rate", fieldErrs[1].Field())
}

func TestNewAppliesDefaultTags(t *testing.T) {
	var cfg *config.Config
	require.NotPanics(t, func() { cfg = config.New() })

	assert.Equal(t, "readings", cfg.Table)
	assert.Equal(t, 20, cfg.RecentWindowCapacity)
	assert.Equal(t, 10*time.Second, cfg.Metrics.Interval)
}

func TestValidateNoInput(t *testing.T) {
	err := config.New().Validate()
	require.Error(t, err)
	assert.Equal(t, errors.ErrNoInput, errors.CodeOf(err))
}

func TestParseLimit(t *testing.T) {
	for _, in := range []any{"unbounded", "ALL", " unbounded "} {
		l, err := config.ParseLimit(in)
		require.NoError(t, err)
		assert.True(t, l.IsUnbounded())
	}

	l, err := config.ParseLimit(int64(5))
	require.NoError(t, err)
	assert.Equal(t, config.Limit(5), l)
	assert.Equal(t, "5", l.String())

	_, err = config.ParseLimit(2.5)
	assert.Error(t, err)
}

func TestParseRate(t *testing.T) {
	r, err := config.ParseRate("max")
	require.NoError(t, err)
	assert.True(t, r.IsUnlimited())
	assert.Equal(t, "unbounded", r.String())

	r, err = config.ParseRate("0.5")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, r.PerSecond(), 1e-9)

	_, err = config.ParseRate(-3)
	assert.Error(t, err)
}
