package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/plugsim/internal/config"
	"codeberg.org/mutker/plugsim/internal/dashboard"
	"codeberg.org/mutker/plugsim/internal/errors"
	"codeberg.org/mutker/plugsim/internal/logger"
	"codeberg.org/mutker/plugsim/internal/metrics"
	"codeberg.org/mutker/plugsim/internal/pipeline"
	"codeberg.org/mutker/plugsim/internal/source"
	"codeberg.org/mutker/plugsim/internal/stats"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// coded errors are reported where they occur
		var appErr errors.Error
		if !errors.As(err, &appErr) {
			fmt.Fprintf(os.Stderr, "plugsim: %v\n", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "plugsim [flags] [device.csv ...]",
		Short: "Replay appliance power readings through a simulated MQTT pipeline",
		Long: `plugsim replays historical smart plug power readings as MQTT-style
messages, aggregates them per device and renders a live dashboard.

Each CSV file is one device, named after the file unless configured
otherwise. Readings can also be read from a SQLite table with --database.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, configFile, args)
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to a TOML config file")
	config.RegisterFlags(cmd.Flags())

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "plugsim", version)
		},
	})

	return cmd
}

func run(cmd *cobra.Command, configFile string, args []string) error {
	cfg, err := config.Load(cmd.Flags(),
		config.WithConfigFile(configFile),
		config.WithDeviceFiles(args...),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return err
	}

	if err := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		NoColor: cfg.NoColor,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		return err
	}
	logger.Debug().
		Str("sample_size", cfg.SampleSize.String()).
		Str("publish_rate", cfg.PublishRate.String()).
		Int("devices", len(cfg.Devices)).
		Msg("Config loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(ctx, cancel)

	collector, err := metrics.NewService(ctx, metrics.Config{
		Enabled:  cfg.Metrics.Enabled,
		Interval: cfg.Metrics.Interval,
		Output:   os.Stderr,
	})
	if err != nil {
		return logError(err, "failed to initialize metrics")
	}
	defer shutdownMetrics(collector)

	src, err := openSource(ctx, cfg)
	if err != nil {
		return logError(err, "failed to open reading source")
	}
	defer func() {
		if err := src.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close reading source")
		}
	}()

	if err := simulate(ctx, cfg, src, collector, os.Stdout); err != nil {
		return logError(err, "simulation failed")
	}

	logger.Info().Msg("Exiting...")

	return nil
}

// simulate runs the pipeline over src and writes the dashboard and the
// final summary to out
func simulate(ctx context.Context, cfg *config.Config, src source.Source, collector metrics.Collector, out io.Writer) error {
	errFactory := errors.New()

	engine, err := stats.NewEngine(cfg.RecentWindowCapacity)
	if err != nil {
		return errFactory.Wrap(errors.ErrInitApp, err)
	}

	opts := dashboard.DefaultOptions()
	opts.Labels = cfg.Labels()
	opts.ClearScreen = cfg.ClearScreen
	opts.NoColor = cfg.NoColor
	board := dashboard.New(out, opts)

	driver, err := pipeline.New(src, engine,
		pipeline.WithPublishRate(cfg.PublishRate.PerSecond()),
		pipeline.WithRenderEvery(cfg.RenderEveryN),
		pipeline.WithLogSampleRate(cfg.LogSampleRate),
		pipeline.WithTopicPrefix(cfg.TopicPrefix),
		pipeline.WithRenderer(board),
		pipeline.WithMetrics(collector),
	)
	if err != nil {
		return errFactory.Wrap(errors.ErrInitApp, err)
	}

	summary, err := driver.Run(ctx)
	if err != nil {
		return errFactory.Wrap(errors.ErrMainLoop, err)
	}

	return board.WriteSummary(summary)
}

// openSource combines the configured CSV files and SQLite table. Unreadable
// files are logged and skipped; it fails only when nothing could be opened.
func openSource(ctx context.Context, cfg *config.Config) (source.Source, error) {
	errFactory := errors.New()
	limit := int(cfg.SampleSize)

	var srcs []source.Source
	var openErrs []error

	if files := cfg.Files(); len(files) > 0 {
		src, errs := source.OpenFiles(files, limit, cfg.Interleave)
		for _, err := range errs {
			logger.Warn().Err(err).Msg("Skipping device file")
		}
		openErrs = append(openErrs, errs...)
		if src != nil {
			srcs = append(srcs, src)
		}
	}

	if cfg.Database != "" {
		src, err := source.OpenSQLite(ctx, source.SQLiteConfig{
			Path:           cfg.Database,
			Table:          cfg.Table,
			Devices:        cfg.DatabaseDevices,
			PerDeviceLimit: limit,
		})
		if err != nil {
			logger.Warn().Err(err).Str("database", cfg.Database).Msg("Skipping database")
			openErrs = append(openErrs, err)
		} else {
			srcs = append(srcs, src)
		}
	}

	if len(srcs) == 0 {
		return nil, errFactory.Wrap(errors.ErrSourceUnavailable, errors.Join(openErrs...))
	}

	// a device may appear in several files and the database
	return source.LimitPerDevice(source.Merge(cfg.Interleave, srcs...), limit), nil
}

func handleSignals(ctx context.Context, cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	select {
	case <-sigs:
		logger.Info().Msg("Received termination signal.")
		cancel()
	case <-ctx.Done():
	}
}

func shutdownMetrics(c metrics.Collector) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := c.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to flush metrics")
	}
}

func logError(err error, msg string) error {
	var appErr errors.Error
	if errors.As(err, &appErr) {
		logger.ErrorWithCode(appErr).Msg(msg)
	} else {
		logger.Error().Err(err).Msg(msg)
	}

	return err
}
