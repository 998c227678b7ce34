package reading_test

import (
	"math"
	"testing"
	"time"

	"codeberg.org/mutker/plugsim/internal/errors"
	"codeberg.org/mutker/plugsim/internal/reading"
	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		reading reading.Reading
		code    errors.ErrorCode
	}{
		{"valid", reading.Reading{DeviceID: "fridge_1", Timestamp: ts, Power: 40}, ""},
		{"zero power", reading.Reading{DeviceID: "fridge_1", Timestamp: ts, Power: 0}, ""},
		{"empty device", reading.Reading{Timestamp: ts, Power: 40}, errors.ErrEmptyDeviceID},
		{"zero timestamp", reading.Reading{DeviceID: "fridge_1", Power: 40}, errors.ErrInvalidTimestamp},
		{"negative power", reading.Reading{DeviceID: "fridge_1", Timestamp: ts, Power: -5}, errors.ErrNegativePower},
		{"nan power", reading.Reading{DeviceID: "fridge_1", Timestamp: ts, Power: math.NaN()}, errors.ErrInvalidPower},
		{"inf power", reading.Reading{DeviceID: "fridge_1", Timestamp: ts, Power: math.Inf(1)}, errors.ErrInvalidPower},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.reading.Validate()
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.code, errors.CodeOf(err))
			assert.True(t, errors.IsDataQuality(err))
		})
	}
}
