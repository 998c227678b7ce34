// Package bus is an in-process stand-in for an MQTT broker. Publishing is
// synchronous: Publish returns after every matching handler has run.
package bus

import (
	"context"
	"strings"
	"sync"

	"codeberg.org/mutker/plugsim/internal/errors"
	"github.com/eclipse/paho.golang/paho"
)

const sharedPrefix = "$share/"

// Publisher is implemented by anything that can carry a publish packet,
// the in-process Bus or a real MQTT client.
type Publisher interface {
	Publish(ctx context.Context, pb *paho.Publish) error
}

// Handler receives a packet whose topic matched its subscription
type Handler func(ctx context.Context, pb *paho.Publish) error

// Stats counts packets that went through the bus
type Stats struct {
	Published int64
	Delivered int64
	Unrouted  int64
}

type subscription struct {
	filter  string
	handler Handler
}

type Bus struct {
	mu    sync.RWMutex
	subs  []subscription
	stats Stats
}

func New() *Bus {
	return &Bus{}
}

// Subscribe registers h for every topic matching filter
func (b *Bus) Subscribe(filter string, h Handler) error {
	if err := ValidateFilter(filter); err != nil {
		return err
	}
	if h == nil {
		return errors.New().WithMessage(ErrInvalidFilter, "nil handler")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.subs = append(b.subs, subscription{filter: filter, handler: h})

	return nil
}

// Publish delivers pb to matching handlers in subscription order. Handler
// errors do not stop delivery; they are joined and returned.
func (b *Bus) Publish(ctx context.Context, pb *paho.Publish) error {
	errFactory := errors.New()

	if pb == nil || pb.Topic == "" || strings.ContainsAny(pb.Topic, "+#") {
		return errFactory.New(ErrInvalidTopic)
	}

	b.mu.RLock()
	subs := b.subs
	b.mu.RUnlock()

	var errs []error
	delivered := int64(0)
	for _, s := range subs {
		if !Match(s.filter, pb.Topic) {
			continue
		}
		delivered++
		if err := s.handler(ctx, pb); err != nil {
			errs = append(errs, err)
		}
	}

	b.mu.Lock()
	b.stats.Published++
	b.stats.Delivered += delivered
	if delivered == 0 {
		b.stats.Unrouted++
	}
	b.mu.Unlock()

	return errors.Join(errs...)
}

// Stats returns the packet counters
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.stats
}

// Match reports whether topic matches an MQTT topic filter
func Match(filter, topic string) bool {
	if f, ok := strings.CutPrefix(filter, sharedPrefix); ok {
		idx := strings.Index(f, "/")
		if idx == -1 {
			return false
		}
		filter = f[idx+1:]
	}

	filters := strings.Split(filter, "/")
	names := strings.Split(topic, "/")

	for i, level := range filters {
		if level == "#" {
			return i == len(filters)-1
		}
		if level == "+" {
			if i >= len(names) {
				return false
			}
			continue
		}
		if i >= len(names) || level != names[i] {
			return false
		}
	}

	return len(filters) == len(names)
}

// ValidateFilter checks wildcard placement: '#' only as the last level and
// '+' only as a whole level.
func ValidateFilter(filter string) error {
	errFactory := errors.New()

	if filter == "" {
		return errFactory.WithData(ErrInvalidFilter, filter)
	}

	levels := strings.Split(filter, "/")
	for i, level := range levels {
		if strings.Contains(level, "#") && (level != "#" || i != len(levels)-1) {
			return errFactory.WithData(ErrInvalidFilter, filter)
		}
		if strings.Contains(level, "+") && level != "+" {
			return errFactory.WithData(ErrInvalidFilter, filter)
		}
	}

	return nil
}
