// Package reading defines the timestamped power measurement that flows
// through the pipeline.
package reading

import (
	"math"
	"time"

	"codeberg.org/mutker/plugsim/internal/errors"
)

// Reading is one power measurement for one device. It is passed by value
// and never mutated after the source creates it.
type Reading struct {
	DeviceID  string
	Timestamp time.Time
	Power     float64 // watts
}

// Validate returns a data-quality error when the reading cannot be recorded
func (r Reading) Validate() error {
	errFactory := errors.New()

	switch {
	case r.DeviceID == "":
		return errFactory.New(errors.ErrEmptyDeviceID)
	case r.Timestamp.IsZero():
		return errFactory.WithData(errors.ErrInvalidTimestamp, r.DeviceID)
	case math.IsNaN(r.Power) || math.IsInf(r.Power, 0):
		return errFactory.WithData(errors.ErrInvalidPower, r.Power)
	case r.Power < 0:
		return errFactory.WithData(errors.ErrNegativePower, r.Power)
	}

	return nil
}
