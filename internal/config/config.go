package config

import (
	"os"
	"strings"
	"time"

	"codeberg.org/mutker/plugsim/internal/errors"
	"codeberg.org/mutker/plugsim/internal/source"
	"github.com/arloliu/fuda"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultEnvPrefix   = "PLUGSIM"
	DefaultPublishRate = Rate(10000)
	DefaultLogLevel    = string(LogLevelInfo)
	configName         = "plugsim"
)

// Device maps a CSV file onto a device id and a display name
type Device struct {
	ID   string `mapstructure:"id"`
	Name string `mapstructure:"name"`
	File string `mapstructure:"file"`
}

type MetricsConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval" default:"10s"`
}

type Config struct {
	Devices              []Device          `mapstructure:"devices"`
	Database             string            `mapstructure:"database"`
	DatabaseDevices      []string          `mapstructure:"database_devices"`
	Table                string            `mapstructure:"table" default:"readings"`
	Interleave           source.Interleave `mapstructure:"interleave" default:"sequential"`
	SampleSize           Limit             `mapstructure:"sample_size"`
	PublishRate          Rate              `mapstructure:"publish_rate"`
	RenderEveryN         int               `mapstructure:"render_every_n" default:"100"`
	LogSampleRate        int               `mapstructure:"log_sample_rate" default:"1000"`
	RecentWindowCapacity int               `mapstructure:"recent_window_capacity" default:"20"`
	TopicPrefix          string            `mapstructure:"topic_prefix" default:"home/appliance"`
	LogLevel             string            `mapstructure:"log_level" default:"info"`
	LogFormat            string            `mapstructure:"log_format" default:"console"`
	NoColor              bool              `mapstructure:"no_color"`
	ClearScreen          bool              `mapstructure:"clear_screen"`
	Metrics              MetricsConfig     `mapstructure:"metrics"`
}

// flagKeys maps command line flags onto configuration keys
var flagKeys = map[string]string{
	"sample-size":      "sample_size",
	"publish-rate":     "publish_rate",
	"render-every":     "render_every_n",
	"log-sample-rate":  "log_sample_rate",
	"window":           "recent_window_capacity",
	"interleave":       "interleave",
	"topic-prefix":     "topic_prefix",
	"database":         "database",
	"database-devices": "database_devices",
	"table":            "table",
	"log-level":        "log_level",
	"log-format":       "log_format",
	"no-color":         "no_color",
	"clear-screen":     "clear_screen",
	"metrics":          "metrics.enabled",
	"metrics-interval": "metrics.interval",
}

// New returns a configuration holding the defaults
func New() *Config {
	cfg := &Config{}
	if err := fuda.SetDefaults(cfg); err != nil {
		// the default tags are static
		panic(errors.New().Wrap(errors.ErrInvalidConfig, err))
	}
	cfg.SampleSize = Unbounded
	cfg.PublishRate = DefaultPublishRate

	return cfg
}

// RegisterFlags defines the command line flags recognized by Load
func RegisterFlags(fs *pflag.FlagSet) {
	def := New()

	fs.String("sample-size", def.SampleSize.String(), `Readings per device to process, or "unbounded"`)
	fs.String("publish-rate", def.PublishRate.String(), `Messages per second, or "unbounded"`)
	fs.Int("render-every", def.RenderEveryN, "Render the dashboard every N readings")
	fs.Int("log-sample-rate", def.LogSampleRate, "Log one in K per-message lines")
	fs.Int("window", def.RecentWindowCapacity, "Recent window capacity per device")
	fs.String("interleave", string(def.Interleave), "How to merge devices: sequential or round_robin")
	fs.String("topic-prefix", def.TopicPrefix, "Topic namespace for simulated messages")
	fs.String("database", def.Database, "Read readings from this SQLite database")
	fs.String("table", def.Table, "SQLite table holding readings")
	fs.StringSlice("database-devices", def.DatabaseDevices, "Only read these device ids from the database")
	fs.String("log-level", def.LogLevel, "Log level: debug, info, warning, error")
	fs.String("log-format", def.LogFormat, "Log format: console or json")
	fs.Bool("no-color", def.NoColor, "Disable colored output")
	fs.Bool("clear-screen", def.ClearScreen, "Clear the terminal before each render")
	fs.Bool("metrics", def.Metrics.Enabled, "Export OpenTelemetry metrics to stderr")
	fs.Duration("metrics-interval", def.Metrics.Interval, "Metrics export interval")
}

// Load reads defaults, the config file, environment and flags, in
// increasing order of precedence, and validates the result.
func Load(fs *pflag.FlagSet, opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := options{
		envPrefix:  DefaultEnvPrefix,
		dotEnvPath: ".env",
	}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
		}
	}

	if o.dotEnvPath != "" {
		if err := godotenv.Load(o.dotEnvPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	if o.configPath == "" {
		o.configPath = os.Getenv(o.envPrefix + "_CONFIG")
	}

	cfg := New()
	v := viper.New()
	v.SetConfigType("toml")
	if o.configPath != "" {
		v.SetConfigFile(o.configPath)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/plugsim")
		v.AddConfigPath("/etc/plugsim")
	}

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, cfg)

	if fs != nil {
		for name, key := range flagKeys {
			f := fs.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, errFactory.Wrap(errors.ErrBindFlags, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	if err := v.Unmarshal(cfg, viper.DecodeHook(decodeHooks())); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	for _, path := range o.deviceFiles {
		cfg.Devices = append(cfg.Devices, Device{
			ID:   source.DeviceIDFromPath(path),
			File: path,
		})
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("database", cfg.Database)
	v.SetDefault("table", cfg.Table)
	v.SetDefault("database_devices", []string{})
	v.SetDefault("interleave", string(cfg.Interleave))
	v.SetDefault("sample_size", cfg.SampleSize.String())
	v.SetDefault("publish_rate", cfg.PublishRate.String())
	v.SetDefault("render_every_n", cfg.RenderEveryN)
	v.SetDefault("log_sample_rate", cfg.LogSampleRate)
	v.SetDefault("recent_window_capacity", cfg.RecentWindowCapacity)
	v.SetDefault("topic_prefix", cfg.TopicPrefix)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_format", cfg.LogFormat)
	v.SetDefault("no_color", cfg.NoColor)
	v.SetDefault("clear_screen", cfg.ClearScreen)
	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.interval", cfg.Metrics.Interval.String())
}

// Validate checks every option and reports all invalid ones at once
func (c *Config) Validate() error {
	errFactory := errors.New()

	var errs ValidationErrors
	check := func(ok bool, field string, value any, reason string) {
		if !ok {
			errs = append(errs, &FieldError{field: field, value: value, reason: reason})
		}
	}

	check(c.RenderEveryN >= 1, "render_every_n", c.RenderEveryN, "must be at least 1")
	check(c.LogSampleRate >= 1, "log_sample_rate", c.LogSampleRate, "must be at least 1")
	check(c.RecentWindowCapacity >= 1, "recent_window_capacity", c.RecentWindowCapacity, "must be at least 1")
	check(c.SampleSize >= 0, "sample_size", int(c.SampleSize), "must be positive")
	check(c.PublishRate >= 0, "publish_rate", float64(c.PublishRate), "must be positive")
	check(c.Interleave.IsValid(), "interleave", c.Interleave, "must be sequential or round_robin")
	check(strings.Trim(c.TopicPrefix, "/") != "" && !strings.ContainsAny(c.TopicPrefix, "+#"),
		"topic_prefix", c.TopicPrefix, "must be a non-empty topic without wildcards")
	check(LogLevel(strings.ToLower(c.LogLevel)).IsValid(), "log_level", c.LogLevel, "must be debug, info, warning or error")
	check(c.LogFormat == "console" || c.LogFormat == "json", "log_format", c.LogFormat, "must be console or json")
	check(!c.Metrics.Enabled || c.Metrics.Interval > 0, "metrics.interval", c.Metrics.Interval, "must be positive")

	for _, id := range c.DatabaseDevices {
		check(strings.TrimSpace(id) != "", "database_devices", c.DatabaseDevices, "device ids must not be empty")
	}

	for i, d := range c.Devices {
		check(d.File != "", "devices.file", i, "device has no file")
	}

	if len(errs) > 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, errs)
	}

	if len(c.Devices) == 0 && c.Database == "" {
		return errFactory.WithMessage(errors.ErrNoInput, "no input: pass CSV files or set database")
	}

	return nil
}

// Labels maps device ids onto their configured display names
func (c *Config) Labels() map[string]string {
	labels := make(map[string]string, len(c.Devices))
	for _, d := range c.Devices {
		if d.Name != "" {
			labels[c.deviceID(d)] = d.Name
		}
	}

	return labels
}

// Files returns the CSV device files as source specs
func (c *Config) Files() []source.FileSpec {
	files := make([]source.FileSpec, 0, len(c.Devices))
	for _, d := range c.Devices {
		files = append(files, source.FileSpec{DeviceID: c.deviceID(d), Path: d.File})
	}

	return files
}

func (*Config) deviceID(d Device) string {
	if d.ID != "" {
		return d.ID
	}

	return source.DeviceIDFromPath(d.File)
}
