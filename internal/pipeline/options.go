package pipeline

import (
	"time"

	"codeberg.org/mutker/plugsim/internal/dashboard"
	"codeberg.org/mutker/plugsim/internal/metrics"
)

const (
	DefaultRenderEvery   = 100
	DefaultLogSampleRate = 1000
	DefaultProgressEvery = 10000
)

// Option configures a Driver
type Option func(*Driver)

// WithPublishRate paces publishing at rate messages per second. Zero
// publishes as fast as possible.
func WithPublishRate(rate float64) Option {
	return func(d *Driver) {
		d.rate = rate
	}
}

// WithRenderEvery renders the dashboard after every n processed readings
func WithRenderEvery(n int) Option {
	return func(d *Driver) {
		d.renderEvery = n
	}
}

func WithRenderer(r dashboard.Renderer) Option {
	return func(d *Driver) {
		d.renderer = r
	}
}

// WithLogSampleRate logs the first per-message line and then one in every k
func WithLogSampleRate(k int) Option {
	return func(d *Driver) {
		d.logSampleRate = k
	}
}

// WithProgressEvery logs a progress line after every n processed readings
func WithProgressEvery(n int) Option {
	return func(d *Driver) {
		d.progressEvery = n
	}
}

func WithMetrics(c metrics.Collector) Option {
	return func(d *Driver) {
		d.metrics = c
	}
}

// WithTopicPrefix sets the namespace readings are published under
func WithTopicPrefix(prefix string) Option {
	return func(d *Driver) {
		d.prefix = prefix
	}
}

// WithTopicFilter sets the subscriber's topic filter. It defaults to every
// device under the topic prefix.
func WithTopicFilter(filter string) Option {
	return func(d *Driver) {
		d.filter = filter
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Driver) {
		d.now = now
	}
}
