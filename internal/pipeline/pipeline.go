// Package pipeline drives readings from a source through the simulated
// publish/subscribe path into the statistics engine.
package pipeline

import (
	"context"
	"io"
	"time"

	"codeberg.org/mutker/plugsim/internal/bus"
	"codeberg.org/mutker/plugsim/internal/dashboard"
	"codeberg.org/mutker/plugsim/internal/errors"
	"codeberg.org/mutker/plugsim/internal/logger"
	"codeberg.org/mutker/plugsim/internal/message"
	"codeberg.org/mutker/plugsim/internal/metrics"
	"codeberg.org/mutker/plugsim/internal/reading"
	"codeberg.org/mutker/plugsim/internal/source"
	"codeberg.org/mutker/plugsim/internal/stats"
)

// Driver runs one simulation. It is not safe for concurrent use.
type Driver struct {
	src      source.Source
	engine   *stats.Engine
	bus      *bus.Bus
	renderer dashboard.Renderer
	metrics  metrics.Collector

	rate          float64
	renderEvery   int
	logSampleRate int
	progressEvery int
	prefix        string
	filter        string
	now           func() time.Time
	sleep         sleepFunc

	log    logger.Logger
	msgLog logger.Logger

	run          *stats.RunStats
	processed    int64
	sourceErrors int64
}

// New wires src through an in-process bus into engine
func New(src source.Source, engine *stats.Engine, opts ...Option) (*Driver, error) {
	errFactory := errors.New()

	if src == nil || engine == nil {
		return nil, errFactory.WithMessage(ErrInvalidOption, "source and engine are required")
	}

	d := &Driver{
		src:           src,
		engine:        engine,
		bus:           bus.New(),
		metrics:       metrics.Noop(),
		renderEvery:   DefaultRenderEvery,
		logSampleRate: DefaultLogSampleRate,
		progressEvery: DefaultProgressEvery,
		prefix:        message.DefaultPrefix,
		now:           time.Now,
		sleep:         sleepContext,
	}
	for _, opt := range opts {
		opt(d)
	}

	switch {
	case d.rate < 0:
		return nil, errFactory.WithData(ErrInvalidOption, struct {
			Option string
			Value  any
		}{"publish_rate", d.rate})
	case d.renderEvery < 1:
		return nil, errFactory.WithData(ErrInvalidOption, struct {
			Option string
			Value  any
		}{"render_every_n", d.renderEvery})
	case d.logSampleRate < 1:
		return nil, errFactory.WithData(ErrInvalidOption, struct {
			Option string
			Value  any
		}{"log_sample_rate", d.logSampleRate})
	}

	if d.filter == "" {
		d.filter = message.Filter(d.prefix)
	}
	if d.metrics == nil {
		d.metrics = metrics.Noop()
	}

	d.log = logger.Component("pipeline")
	d.msgLog = logger.Sampled(uint32(d.logSampleRate))

	if err := d.bus.Subscribe(d.filter, d.handle); err != nil {
		return nil, errFactory.Wrap(ErrSubscribe, err)
	}

	return d, nil
}

// Run processes readings until the source is exhausted or ctx is done.
// Cancellation is not an error: the final frame and summary are still
// produced and the run is marked interrupted. A fatal source or publish
// error ends the run and is returned with the partial summary.
func (d *Driver) Run(ctx context.Context) (stats.Summary, error) {
	d.run = stats.NewRunStats(d.now())
	pace := newPacer(d.rate, d.now, d.sleep)

	d.log.Info().
		Str("run_id", d.run.ID).
		Str("filter", d.filter).
		Float64("publish_rate", d.rate).
		Msg("Simulation started")

	interrupted, err := d.loop(ctx, pace)
	if err != nil {
		return d.finish(false), err
	}

	d.render(ctx, true)
	sum := d.finish(interrupted)

	busStats := d.bus.Stats()
	d.log.Info().
		Int64("processed", d.processed).
		Int64("recorded", sum.Run.TotalMessages).
		Int64("rejected", sum.Run.Rejected).
		Int64("skipped_rows", sum.Run.SourceErrors).
		Int64("unrouted", busStats.Unrouted).
		Bool("interrupted", interrupted).
		Dur("elapsed", sum.Run.Elapsed()).
		Msg("Simulation finished")

	return sum, nil
}

func (d *Driver) loop(ctx context.Context, pace *pacer) (bool, error) {
	errFactory := errors.New()

	for {
		if ctx.Err() != nil {
			return true, nil
		}

		if err := pace.Wait(ctx); err != nil {
			return true, nil
		}

		r, err := d.src.Next(ctx)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				return false, nil
			case ctx.Err() != nil:
				return true, nil
			case errors.IsDataQuality(err):
				d.reject(ctx, err)
				continue
			case errors.HasCode(err, errors.ErrMalformedRow):
				d.sourceErrors++
				d.msgLog.Warn().Err(err).Msg("Skipping malformed row")
				continue
			default:
				return false, errFactory.Wrap(ErrSourceRead, err)
			}
		}

		if err := d.publish(ctx, r); err != nil {
			return false, err
		}

		d.processed++
		if d.processed%int64(d.renderEvery) == 0 {
			d.render(ctx, false)
		}
		if d.progressEvery > 0 && d.processed%int64(d.progressEvery) == 0 {
			d.progress()
		}
	}
}

// publish encodes r and hands it to the bus. Data-quality failures are
// counted and swallowed; anything else is fatal.
func (d *Driver) publish(ctx context.Context, r reading.Reading) error {
	pb, err := message.Encode(d.prefix, r)
	if err != nil {
		if errors.IsDataQuality(err) {
			d.reject(ctx, err)
			return nil
		}

		return errors.New().Wrap(ErrPublish, err)
	}

	err = d.bus.Publish(ctx, pb)
	switch {
	case err == nil, errors.IsDataQuality(err):
		// subscriber rejections are already counted
		return nil
	case errors.HasCode(err, bus.ErrInvalidTopic):
		d.reject(ctx, err)
		return nil
	default:
		return errors.New().Wrap(ErrPublish, err)
	}
}

// reject counts a reading that never reached the engine
func (d *Driver) reject(ctx context.Context, err error) {
	code := errors.CodeOf(err)
	d.engine.Reject(code)
	d.metrics.RecordRejected(ctx, code)
	d.msgLog.Warn().
		Str("error_code", string(code)).
		Err(err).
		Msg("Reading rejected")
}

func (d *Driver) render(ctx context.Context, final bool) {
	if d.renderer == nil {
		return
	}

	frame := dashboard.Frame{
		Devices:   d.engine.Snapshots(),
		Processed: d.processed,
		Rejected:  d.engine.Rejected(),
		Elapsed:   d.now().Sub(d.run.StartedAt),
		Final:     final,
	}
	if err := d.renderer.Render(frame); err != nil {
		d.log.Error().Err(err).Msg("Failed to render dashboard")
		return
	}

	d.metrics.RecordRender(ctx)
}

func (d *Driver) progress() {
	elapsed := d.now().Sub(d.run.StartedAt)
	rate := 0.0
	if elapsed > 0 {
		rate = float64(d.processed) / elapsed.Seconds()
	}

	d.log.Info().
		Int64("processed", d.processed).
		Int64("rejected", d.engine.Rejected()).
		Int("devices", len(d.engine.AllDevices())).
		Float64("rate", rate).
		Msg("Progress")
}

func (d *Driver) finish(interrupted bool) stats.Summary {
	d.run.Finish(d.now(), d.engine, d.sourceErrors, interrupted)

	return stats.Summarize(d.run, d.engine)
}
