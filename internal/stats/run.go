package stats

import (
	"time"

	"codeberg.org/mutker/plugsim/internal/errors"
	"github.com/google/uuid"
)

// RunStats is the process-wide aggregate reported in the final summary.
// It is created when a run starts and becomes read-only once finished.
type RunStats struct {
	ID            string
	StartedAt     time.Time
	FinishedAt    time.Time
	TotalMessages int64
	Rejected      int64
	SourceErrors  int64
	Interrupted   bool
	finished      bool
}

// NewRunStats starts a run at now
func NewRunStats(now time.Time) *RunStats {
	return &RunStats{
		ID:        uuid.NewString(),
		StartedAt: now,
	}
}

// Finish finalizes the run. Later calls are ignored.
func (r *RunStats) Finish(now time.Time, e *Engine, sourceErrors int64, interrupted bool) {
	if r.finished {
		return
	}

	r.FinishedAt = now
	r.TotalMessages = e.Total()
	r.Rejected = e.Rejected()
	r.SourceErrors = sourceErrors
	r.Interrupted = interrupted
	r.finished = true
}

// Finished reports whether Finish has been called
func (r *RunStats) Finished() bool {
	return r.finished
}

// Elapsed returns the wall-clock duration of the run
func (r *RunStats) Elapsed() time.Duration {
	if !r.finished {
		return 0
	}

	return r.FinishedAt.Sub(r.StartedAt)
}

// Throughput returns recorded readings per second
func (r *RunStats) Throughput() float64 {
	elapsed := r.Elapsed().Seconds()
	if elapsed <= 0 {
		return 0
	}

	return float64(r.TotalMessages) / elapsed
}

// Summary is the end-of-run report: the run aggregate and every device in
// first-seen order
type Summary struct {
	Run      RunStats
	Devices  []DeviceStats
	Rejected map[errors.ErrorCode]int64
}

// Summarize builds the report for a finished run
func Summarize(run *RunStats, e *Engine) Summary {
	return Summary{
		Run:      *run,
		Devices:  e.Snapshots(),
		Rejected: e.RejectedByReason(),
	}
}
