package stats

import (
	"math"
	"time"

	"codeberg.org/mutker/plugsim/internal/reading"
	"gonum.org/v1/gonum/stat"
)

// steadyTolerance is the window slope, relative to the window mean, below
// which a device is reported as steady.
const steadyTolerance = 0.01

// Trend is the short-term direction of a device's recent window
type Trend int

const (
	TrendSteady Trend = iota
	TrendRising
	TrendFalling
)

func (t Trend) String() string {
	switch t {
	case TrendRising:
		return "rising"
	case TrendFalling:
		return "falling"
	default:
		return "steady"
	}
}

// Symbol returns a single-rune arrow for the trend
func (t Trend) Symbol() string {
	switch t {
	case TrendRising:
		return "↑"
	case TrendFalling:
		return "↓"
	default:
		return "→"
	}
}

// DeviceStats is an immutable point-in-time copy of one device's
// statistics. Min and Max carry a value only when Count is at least one.
type DeviceStats struct {
	DeviceID       string
	Count          int64
	Sum            float64
	Min            float64
	Max            float64
	LastValue      float64
	LastTimestamp  time.Time
	FirstTimestamp time.Time
	Recent         []float64
	WindowCapacity int
}

// Mean returns Sum/Count, or zero before the first reading
func (s DeviceStats) Mean() float64 {
	if s.Count == 0 {
		return 0
	}

	return s.Sum / float64(s.Count)
}

// HasRange reports whether Min and Max hold observed values
func (s DeviceStats) HasRange() bool {
	return s.Count > 0
}

// WindowMean returns the mean of the recent window
func (s DeviceStats) WindowMean() float64 {
	if len(s.Recent) == 0 {
		return 0
	}

	return stat.Mean(s.Recent, nil)
}

// Trend fits a least-squares line through the recent window. The window
// is in arrival order, so out-of-order timestamps can skew it.
func (s DeviceStats) Trend() Trend {
	n := len(s.Recent)
	if n < 2 {
		return TrendSteady
	}

	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}

	_, slope := stat.LinearRegression(xs, s.Recent, nil, false)
	threshold := steadyTolerance * math.Abs(stat.Mean(s.Recent, nil))

	switch {
	case slope > threshold:
		return TrendRising
	case slope < -threshold:
		return TrendFalling
	default:
		return TrendSteady
	}
}

// deviceState is the mutable aggregate owned by the engine's device table
type deviceState struct {
	id      string
	count   int64
	sum     float64
	min     float64
	max     float64
	last    float64
	lastTS  time.Time
	firstTS time.Time
	window  *Window
}

func newDeviceState(id string, capacity int) *deviceState {
	return &deviceState{
		id:     id,
		window: NewWindow(capacity),
	}
}

func (d *deviceState) add(r reading.Reading) {
	if d.count == 0 {
		d.min = r.Power
		d.max = r.Power
		d.firstTS = r.Timestamp
	} else {
		d.min = math.Min(d.min, r.Power)
		d.max = math.Max(d.max, r.Power)
	}

	d.count++
	d.sum += r.Power
	d.last = r.Power
	d.lastTS = r.Timestamp
	d.window.Push(r.Power)
}

func (d *deviceState) snapshot() DeviceStats {
	return DeviceStats{
		DeviceID:       d.id,
		Count:          d.count,
		Sum:            d.sum,
		Min:            d.min,
		Max:            d.max,
		LastValue:      d.last,
		LastTimestamp:  d.lastTS,
		FirstTimestamp: d.firstTS,
		Recent:         d.window.Values(),
		WindowCapacity: d.window.Cap(),
	}
}
