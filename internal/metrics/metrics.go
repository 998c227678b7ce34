// Package metrics exports pipeline counters through OpenTelemetry.
package metrics

import (
	"context"

	"codeberg.org/mutker/plugsim/internal/errors"
	"codeberg.org/mutker/plugsim/internal/logger"
	"codeberg.org/mutker/plugsim/internal/stats"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	meterName   = "codeberg.org/mutker/plugsim"
	serviceName = "plugsim"
)

var (
	deviceKey = attribute.Key("device.id")
	reasonKey = attribute.Key("reject.reason")
)

type service struct {
	provider *sdkmetric.MeterProvider
	recorded metric.Int64Counter
	rejected metric.Int64Counter
	power    metric.Float64Histogram
	renders  metric.Int64Counter
}

type noopCollector struct{}

// NewService returns a Collector exporting to cfg.Output every cfg.Interval,
// or a no-op collector when metrics are disabled
func NewService(ctx context.Context, cfg Config) (Collector, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	if !cfg.Enabled {
		logger.Debug().Msg("Metrics collection disabled, using no-op collector")
		return Noop(), nil
	}

	out := cfg.Output
	if out == nil {
		out = DefaultConfig().Output
	}

	exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(out))
	if err != nil {
		return nil, errFactory.Wrap(ErrExporterInit, err)
	}

	res, err := resource.New(ctx,
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, errFactory.Wrap(ErrExporterInit, err)
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.Interval))
	svc, err := newService(sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(res),
	))
	if err != nil {
		return nil, err
	}

	logger.Debug().
		Dur("interval", cfg.Interval).
		Msg("Metrics service initialized successfully")

	return svc, nil
}

// newService creates the instruments on provider
func newService(provider *sdkmetric.MeterProvider) (*service, error) {
	errFactory := errors.New()
	meter := provider.Meter(meterName)

	recorded, err := meter.Int64Counter("plugsim.readings.recorded",
		metric.WithDescription("Readings accepted by the statistics engine"),
		metric.WithUnit("{reading}"))
	if err != nil {
		return nil, errFactory.Wrap(ErrInstrumentCreate, err)
	}

	rejected, err := meter.Int64Counter("plugsim.readings.rejected",
		metric.WithDescription("Readings rejected for data quality"),
		metric.WithUnit("{reading}"))
	if err != nil {
		return nil, errFactory.Wrap(ErrInstrumentCreate, err)
	}

	power, err := meter.Float64Histogram("plugsim.reading.power",
		metric.WithDescription("Instantaneous power of accepted readings"),
		metric.WithUnit("W"),
		metric.WithExplicitBucketBoundaries(0, 5, 10, 25, 50, 100, 250, 500, 1000, 2000, 3500))
	if err != nil {
		return nil, errFactory.Wrap(ErrInstrumentCreate, err)
	}

	renders, err := meter.Int64Counter("plugsim.dashboard.renders",
		metric.WithDescription("Dashboard frames written"),
		metric.WithUnit("{frame}"))
	if err != nil {
		return nil, errFactory.Wrap(ErrInstrumentCreate, err)
	}

	return &service{
		provider: provider,
		recorded: recorded,
		rejected: rejected,
		power:    power,
		renders:  renders,
	}, nil
}

func (s *service) RecordAccepted(ctx context.Context, snapshot stats.DeviceStats) {
	attrs := metric.WithAttributes(deviceKey.String(snapshot.DeviceID))
	s.recorded.Add(ctx, 1, attrs)
	s.power.Record(ctx, snapshot.LastValue, attrs)
}

func (s *service) RecordRejected(ctx context.Context, code errors.ErrorCode) {
	s.rejected.Add(ctx, 1, metric.WithAttributes(reasonKey.String(string(code))))
}

func (s *service) RecordRender(ctx context.Context) {
	s.renders.Add(ctx, 1)
}

// Shutdown flushes pending metrics and stops the periodic reader
func (s *service) Shutdown(ctx context.Context) error {
	if err := s.provider.Shutdown(ctx); err != nil {
		return errors.New().Wrap(ErrServiceShutdown, err)
	}

	return nil
}

func (*noopCollector) RecordAccepted(context.Context, stats.DeviceStats) {}

func (*noopCollector) RecordRejected(context.Context, errors.ErrorCode) {}

func (*noopCollector) RecordRender(context.Context) {}

func (*noopCollector) Shutdown(context.Context) error {
	return nil
}

// Noop returns a collector that discards everything
func Noop() Collector {
	return &noopCollector{}
}
