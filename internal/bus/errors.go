package bus

import "codeberg.org/mutker/plugsim/internal/errors"

const (
	ErrInvalidFilter = errors.ErrorCode("bus_invalid_filter")
	ErrInvalidTopic  = errors.ErrorCode("bus_invalid_topic")
)
