package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"codeberg.org/mutker/plugsim/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactoryMessages(t *testing.T) {
	errFactory := errors.New()

	err := errFactory.New(errors.ErrNegativePower)
	assert.Equal(t, "Reading has a negative power value", err.Error())
	assert.Equal(t, errors.ErrNegativePower, err.Code())

	wrapped := errFactory.Wrap(errors.ErrSourceUnavailable, stderrors.New("no such file"))
	assert.Equal(t, "Input source unavailable: no such file", wrapped.Error())

	custom := errFactory.WithMessage(errors.ErrMalformedRow, "line 4")
	assert.Equal(t, "line 4", custom.Error())

	withData := errFactory.WithData(errors.ErrInvalidTimestamp, "yesterday")
	assert.Equal(t, "yesterday", withData.GetData())
	assert.Contains(t, withData.Error(), "yesterday")
}

func TestCodeOfWrapped(t *testing.T) {
	errFactory := errors.New()

	base := errFactory.New(errors.ErrInvalidPayload)
	chained := fmt.Errorf("subscriber: %w", base)

	assert.Equal(t, errors.ErrInvalidPayload, errors.CodeOf(chained))
	assert.Equal(t, errors.ErrInternal, errors.CodeOf(stderrors.New("plain")))
	assert.True(t, errors.HasCode(chained, errors.ErrInvalidPayload))
	assert.False(t, errors.HasCode(chained, errors.ErrMalformedRow))
}

func TestIsMatchesByCode(t *testing.T) {
	errFactory := errors.New()

	err := errFactory.WithMessage(errors.ErrNegativePower, "power -5")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errFactory.New(errors.ErrNegativePower)))
	assert.False(t, errors.Is(err, errFactory.New(errors.ErrInvalidPower)))
}

func TestCategories(t *testing.T) {
	errFactory := errors.New()

	tests := []struct {
		code     errors.ErrorCode
		category errors.Category
	}{
		{errors.ErrNegativePower, errors.CategoryDataQuality},
		{errors.ErrInvalidTimestamp, errors.CategoryDataQuality},
		{errors.ErrEmptyDeviceID, errors.CategoryDataQuality},
		{errors.ErrMalformedRow, errors.CategorySource},
		{errors.ErrSourceUnavailable, errors.CategorySource},
		{errors.ErrInvalidConfig, errors.CategoryConfig},
		{errors.ErrRender, errors.CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.category, errors.CategoryOf(tt.code))
		})
	}

	assert.True(t, errors.IsDataQuality(errFactory.New(errors.ErrNegativePower)))
	assert.True(t, errors.IsSource(errFactory.New(errors.ErrMalformedRow)))
	assert.True(t, errors.IsConfig(errFactory.New(errors.ErrInvalidConfig)))
	assert.False(t, errors.IsDataQuality(nil))
	assert.Equal(t, "data_quality", errors.CategoryDataQuality.String())
}
