// Package stats holds the streaming statistics engine: a device table of
// running aggregates and recent windows, fed one reading at a time.
package stats

import (
	"sync"

	"codeberg.org/mutker/plugsim/internal/errors"
	"codeberg.org/mutker/plugsim/internal/reading"
)

// Engine owns the per-device statistics. Record is called from a single
// goroutine; snapshots may be taken from any goroutine.
type Engine struct {
	mu         sync.RWMutex
	capacity   int
	devices    map[string]*deviceState
	order      []string
	total      int64
	rejected   int64
	rejectedBy map[errors.ErrorCode]int64
}

// NewEngine returns an empty engine whose devices keep the last capacity
// values in their recent window.
func NewEngine(capacity int) (*Engine, error) {
	if capacity < 1 {
		return nil, errors.New().WithData(errors.ErrInvalidArgument, struct {
			Field string
			Value int
		}{
			Field: "recent_window_capacity",
			Value: capacity,
		})
	}

	return &Engine{
		capacity:   capacity,
		devices:    make(map[string]*deviceState),
		rejectedBy: make(map[errors.ErrorCode]int64),
	}, nil
}

// Record folds r into its device's statistics and returns the updated
// snapshot. An invalid reading is counted as rejected, leaves every device
// untouched, and its data-quality error is returned.
func (e *Engine) Record(r reading.Reading) (DeviceStats, error) {
	if err := r.Validate(); err != nil {
		e.Reject(errors.CodeOf(err))
		return DeviceStats{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	d, ok := e.devices[r.DeviceID]
	if !ok {
		d = newDeviceState(r.DeviceID, e.capacity)
		e.devices[r.DeviceID] = d
		e.order = append(e.order, r.DeviceID)
	}

	d.add(r)
	e.total++

	return d.snapshot(), nil
}

// Reject counts a reading that was rejected before it reached Record
func (e *Engine) Reject(code errors.ErrorCode) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.rejected++
	e.rejectedBy[code]++
}

// Snapshot returns the statistics for deviceID. The boolean is false if
// the device has never been recorded.
func (e *Engine) Snapshot(deviceID string) (DeviceStats, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	d, ok := e.devices[deviceID]
	if !ok {
		return DeviceStats{}, false
	}

	return d.snapshot(), true
}

// AllDevices returns the known device ids in first-seen order
func (e *Engine) AllDevices() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]string, len(e.order))
	copy(out, e.order)

	return out
}

// Snapshots returns a snapshot of every known device in first-seen order
func (e *Engine) Snapshots() []DeviceStats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]DeviceStats, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.devices[id].snapshot())
	}

	return out
}

// Total returns the number of recorded readings across all devices
func (e *Engine) Total() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.total
}

// Rejected returns the number of rejected readings
func (e *Engine) Rejected() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.rejected
}

// RejectedByReason returns the rejected count per error code
func (e *Engine) RejectedByReason() map[errors.ErrorCode]int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(map[errors.ErrorCode]int64, len(e.rejectedBy))
	for code, n := range e.rejectedBy {
		out[code] = n
	}

	return out
}

// Capacity returns the recent window capacity used for new devices
func (e *Engine) Capacity() int {
	return e.capacity
}
