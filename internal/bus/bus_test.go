package bus_test

import (
	"context"
	stderrors "errors"
	"testing"

	"codeberg.org/mutker/plugsim/internal/bus"
	"codeberg.org/mutker/plugsim/internal/errors"
	"github.com/eclipse/paho.golang/paho"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		filter string
		topic  string
		want   bool
	}{
		{"home/appliance/+/power", "home/appliance/fridge_207/power", true},
		{"home/appliance/+/power", "home/appliance/fridge_207/status", false},
		{"home/appliance/+/power", "home/appliance/power", false},
		{"home/appliance/#", "home/appliance/fridge_207/power", true},
		{"home/#", "home", true},
		{"#", "home/appliance/kettle/power", true},
		{"home/appliance/kettle/power", "home/appliance/kettle/power", true},
		{"home/appliance/kettle/power", "home/appliance/kettle/power/extra", false},
		{"home/+", "home/appliance/kettle", false},
		{"$share/dash/home/appliance/+/power", "home/appliance/kettle/power", true},
		{"$share/nogroup", "home/appliance/kettle/power", false},
	}

	for _, tt := range tests {
		t.Run(tt.filter+" "+tt.topic, func(t *testing.T) {
			assert.Equal(t, tt.want, bus.Match(tt.filter, tt.topic))
		})
	}
}

func TestValidateFilter(t *testing.T) {
	assert.NoError(t, bus.ValidateFilter("home/appliance/+/power"))
	assert.NoError(t, bus.ValidateFilter("home/#"))

	for _, bad := range []string{"", "home/#/power", "home/appl+/power", "home/ab#"} {
		err := bus.ValidateFilter(bad)
		require.Error(t, err, bad)
		assert.Equal(t, bus.ErrInvalidFilter, errors.CodeOf(err))
	}
}

func TestPublishDeliversInOrder(t *testing.T) {
	b := bus.New()
	var got []string

	require.NoError(t, b.Subscribe("home/appliance/+/power", func(_ context.Context, pb *paho.Publish) error {
		got = append(got, "first:"+pb.Topic)
		return nil
	}))
	require.NoError(t, b.Subscribe("home/#", func(_ context.Context, pb *paho.Publish) error {
		got = append(got, "second:"+pb.Topic)
		return nil
	}))
	require.NoError(t, b.Subscribe("office/#", func(context.Context, *paho.Publish) error {
		t.Fatal("unexpected delivery")
		return nil
	}))

	err := b.Publish(context.Background(), &paho.Publish{Topic: "home/appliance/kettle/power"})
	require.NoError(t, err)

	assert.Equal(t, []string{"first:home/appliance/kettle/power", "second:home/appliance/kettle/power"}, got)
	assert.Equal(t, bus.Stats{Published: 1, Delivered: 2}, b.Stats())
}

func TestPublishJoinsHandlerErrors(t *testing.T) {
	b := bus.New()
	boom := stderrors.New("boom")
	calls := 0

	require.NoError(t, b.Subscribe("#", func(context.Context, *paho.Publish) error {
		calls++
		return boom
	}))
	require.NoError(t, b.Subscribe("#", func(context.Context, *paho.Publish) error {
		calls++
		return nil
	}))

	err := b.Publish(context.Background(), &paho.Publish{Topic: "a/b"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestPublishUnrouted(t *testing.T) {
	b := bus.New()

	require.NoError(t, b.Publish(context.Background(), &paho.Publish{Topic: "a/b"}))
	assert.Equal(t, int64(1), b.Stats().Unrouted)
}

func TestPublishRejectsWildcardTopic(t *testing.T) {
	b := bus.New()

	err := b.Publish(context.Background(), &paho.Publish{Topic: "home/+/power"})
	assert.Equal(t, bus.ErrInvalidTopic, errors.CodeOf(err))

	err = b.Publish(context.Background(), nil)
	assert.Equal(t, bus.ErrInvalidTopic, errors.CodeOf(err))
}

func TestSubscribeRejectsNilHandler(t *testing.T) {
	err := bus.New().Subscribe("#", nil)
	assert.Equal(t, bus.ErrInvalidFilter, errors.CodeOf(err))
}
