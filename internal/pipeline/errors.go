package pipeline

import "codeberg.org/mutker/plugsim/internal/errors"

const (
	ErrInvalidOption = errors.ErrInvalidArgument
	ErrSourceRead    = errors.ErrSourceRead
	ErrPublish       = errors.ErrPublish
	ErrSubscribe     = errors.ErrorCode("pipeline_subscribe_failed")
)
