package config

import (
	"math"
	"reflect"
	"strconv"
	"strings"

	"codeberg.org/mutker/plugsim/internal/errors"
	"github.com/mitchellh/mapstructure"
)

const keywordUnbounded = "unbounded"

// Limit is a positive per-device cap on readings, or Unbounded
type Limit int

const Unbounded Limit = 0

func (l Limit) IsUnbounded() bool { return l == Unbounded }

func (l Limit) String() string {
	if l.IsUnbounded() {
		return keywordUnbounded
	}

	return strconv.Itoa(int(l))
}

// ParseLimit accepts a positive integer or one of "unbounded" and "all"
func ParseLimit(v any) (Limit, error) {
	invalid := func(reason string) (Limit, error) {
		return Unbounded, invalidField("sample_size", v, reason)
	}

	switch val := v.(type) {
	case Limit:
		return val, nil
	case string:
		s := strings.ToLower(strings.TrimSpace(val))
		if s == keywordUnbounded || s == "all" {
			return Unbounded, nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return invalid(`must be a positive integer or "unbounded"`)
		}
		return ParseLimit(n)
	case int:
		if val <= 0 {
			return invalid("must be positive")
		}
		return Limit(val), nil
	case int64:
		return ParseLimit(int(val))
	case int32:
		return ParseLimit(int(val))
	case float64:
		if val != math.Trunc(val) {
			return invalid("must be a whole number")
		}
		return ParseLimit(int(val))
	default:
		return invalid("unsupported type")
	}
}

// Rate is a positive publish rate in messages per second, or Unlimited
type Rate float64

const Unlimited Rate = 0

func (r Rate) IsUnlimited() bool { return r == Unlimited }

// PerSecond returns the rate as a float, zero when unlimited
func (r Rate) PerSecond() float64 { return float64(r) }

func (r Rate) String() string {
	if r.IsUnlimited() {
		return keywordUnbounded
	}

	return strconv.FormatFloat(float64(r), 'f', -1, 64)
}

// ParseRate accepts a positive number or one of "unbounded" and "max"
func ParseRate(v any) (Rate, error) {
	invalid := func(reason string) (Rate, error) {
		return Unlimited, invalidField("publish_rate", v, reason)
	}

	switch val := v.(type) {
	case Rate:
		return val, nil
	case string:
		s := strings.ToLower(strings.TrimSpace(val))
		if s == keywordUnbounded || s == "max" {
			return Unlimited, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return invalid(`must be a positive number or "unbounded"`)
		}
		return ParseRate(f)
	case int:
		return ParseRate(float64(val))
	case int64:
		return ParseRate(float64(val))
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) || val <= 0 {
			return invalid("must be positive")
		}
		return Rate(val), nil
	default:
		return invalid("unsupported type")
	}
}

func invalidField(field string, value any, reason string) error {
	return errors.New().WithData(errors.ErrInvalidConfig, &FieldError{
		field:  field,
		value:  value,
		reason: reason,
	})
}

var (
	limitType = reflect.TypeOf(Unbounded)
	rateType  = reflect.TypeOf(Unlimited)
)

func limitHook(_, to reflect.Type, data any) (any, error) {
	switch to {
	case limitType:
		return ParseLimit(data)
	case rateType:
		return ParseRate(data)
	default:
		return data, nil
	}
}

func decodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.DecodeHookFuncType(limitHook),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}
