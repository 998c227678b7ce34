// Package message maps readings onto simulated MQTT publish packets and
// back. A packet is what would travel over the wire: a topic per device
// and a JSON payload.
package message

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"codeberg.org/mutker/plugsim/internal/errors"
	"codeberg.org/mutker/plugsim/internal/reading"
	"github.com/eclipse/paho.golang/paho"
	"github.com/relvacode/iso8601"
)

const (
	DefaultPrefix = "home/appliance"
	ContentType   = "application/json"

	powerLevel      = "power"
	reservedRunes   = "/+#"
	utf8PayloadFlag = byte(1)
)

// Payload is the JSON body of a power message
type Payload struct {
	DeviceID  string  `json:"device_id"`
	Timestamp string  `json:"timestamp"`
	Power     float64 `json:"power"`
}

// Topic returns the stream topic for a device, e.g.
// home/appliance/fridge_207/power
func Topic(prefix, deviceID string) string {
	return strings.TrimSuffix(prefix, "/") + "/" + deviceID + "/" + powerLevel
}

// Filter returns the subscription filter matching every device under prefix
func Filter(prefix string) string {
	return Topic(prefix, "+")
}

// Encode builds the publish packet for r. An empty device id, a device id
// that is not a single topic level or a non-finite power cannot be encoded
// and yields a data-quality error.
func Encode(prefix string, r reading.Reading) (*paho.Publish, error) {
	errFactory := errors.New()

	if r.DeviceID == "" {
		return nil, errFactory.New(errors.ErrEmptyDeviceID)
	}
	if strings.ContainsAny(r.DeviceID, reservedRunes) {
		return nil, errFactory.WithData(errors.ErrInvalidDeviceID, r.DeviceID)
	}
	if math.IsNaN(r.Power) || math.IsInf(r.Power, 0) {
		return nil, errFactory.WithData(errors.ErrInvalidPower, r.Power)
	}
	if r.Timestamp.IsZero() {
		return nil, errFactory.WithData(errors.ErrInvalidTimestamp, r.DeviceID)
	}

	body, err := json.Marshal(Payload{
		DeviceID:  r.DeviceID,
		Timestamp: r.Timestamp.UTC().Format(time.RFC3339Nano),
		Power:     r.Power,
	})
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidPayload, err)
	}

	payloadFormat := utf8PayloadFlag

	return &paho.Publish{
		QoS:     0,
		Topic:   Topic(prefix, r.DeviceID),
		Payload: body,
		Properties: &paho.PublishProperties{
			ContentType:   ContentType,
			PayloadFormat: &payloadFormat,
		},
	}, nil
}

// Decode parses a publish packet back into a reading. The device in the
// payload must match the device level of the topic.
func Decode(pb *paho.Publish) (reading.Reading, error) {
	errFactory := errors.New()

	if pb == nil {
		return reading.Reading{}, errFactory.New(errors.ErrInvalidPayload)
	}

	var p Payload
	if err := json.Unmarshal(pb.Payload, &p); err != nil {
		return reading.Reading{}, errFactory.Wrap(errors.ErrInvalidPayload, err)
	}

	if id, ok := DeviceFromTopic(pb.Topic); ok && id != p.DeviceID {
		return reading.Reading{}, errFactory.WithData(errors.ErrTopicMismatch, struct {
			Topic   string
			Payload string
		}{
			Topic:   pb.Topic,
			Payload: p.DeviceID,
		})
	}

	ts, err := iso8601.ParseString(p.Timestamp)
	if err != nil {
		return reading.Reading{}, errFactory.Wrap(errors.ErrInvalidTimestamp, err)
	}

	return reading.Reading{
		DeviceID:  p.DeviceID,
		Timestamp: ts,
		Power:     p.Power,
	}, nil
}

// DeviceFromTopic extracts the device level from a .../{device_id}/power
// topic.
func DeviceFromTopic(topic string) (string, bool) {
	levels := strings.Split(topic, "/")
	if len(levels) < 2 || levels[len(levels)-1] != powerLevel {
		return "", false
	}

	return levels[len(levels)-2], true
}
