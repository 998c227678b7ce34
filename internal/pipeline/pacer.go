package pipeline

import (
	"context"
	"math"
	"time"
)

// minSleep is the shortest sleep the pacer asks for. Readings are released
// in batches so that one sleep covers at least this long.
const minSleep = 2 * time.Millisecond

type sleepFunc func(ctx context.Context, d time.Duration) error

// pacer releases reading i no earlier than start + i/rate. Falling behind
// schedule never produces more than the readings already due.
type pacer struct {
	interval time.Duration
	batch    int64
	now      func() time.Time
	sleep    sleepFunc
	start    time.Time
	n        int64
}

// newPacer returns a pacer for rate readings per second. A rate of zero
// disables pacing.
func newPacer(rate float64, now func() time.Time, sleep sleepFunc) *pacer {
	p := &pacer{now: now, sleep: sleep, batch: 1}
	if rate <= 0 {
		return p
	}

	p.interval = time.Duration(float64(time.Second) / rate)
	if p.interval <= 0 {
		p.interval = time.Nanosecond
	}
	p.batch = max(int64(math.Ceil(float64(minSleep)/float64(p.interval))), 1)

	return p
}

// Wait blocks until the next reading is due or ctx is done
func (p *pacer) Wait(ctx context.Context) error {
	if p.interval == 0 {
		return nil
	}

	i := p.n
	p.n++
	if i == 0 {
		p.start = p.now()
		return nil
	}
	if i%p.batch != 0 {
		return nil
	}

	due := p.start.Add(time.Duration(i) * p.interval)
	if d := due.Sub(p.now()); d > 0 {
		return p.sleep(ctx, d)
	}

	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
