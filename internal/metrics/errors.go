package metrics

import "codeberg.org/mutker/plugsim/internal/errors"

const (
	ErrInvalidConfig    = errors.ErrInvalidConfig
	ErrInvalidInterval  = errors.ErrorCode("metrics_invalid_interval")
	ErrInstrumentCreate = errors.ErrorCode("metrics_instrument_create_failed")
	ErrExporterInit     = errors.ErrInitMetric
	ErrServiceShutdown  = errors.ErrShutdown
)
