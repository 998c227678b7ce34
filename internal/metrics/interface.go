package metrics

import (
	"context"

	"codeberg.org/mutker/plugsim/internal/errors"
	"codeberg.org/mutker/plugsim/internal/stats"
)

// Collector records pipeline activity
type Collector interface {
	RecordAccepted(ctx context.Context, snapshot stats.DeviceStats)
	RecordRejected(ctx context.Context, code errors.ErrorCode)
	RecordRender(ctx context.Context)
	Shutdown(ctx context.Context) error
}
