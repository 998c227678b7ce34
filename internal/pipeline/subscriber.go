package pipeline

import (
	"context"

	"codeberg.org/mutker/plugsim/internal/errors"
	"codeberg.org/mutker/plugsim/internal/message"
	"github.com/eclipse/paho.golang/paho"
)

// handle is the application-side subscriber: it decodes a delivered packet
// and folds the reading into the engine
func (d *Driver) handle(ctx context.Context, pb *paho.Publish) error {
	r, err := message.Decode(pb)
	if err != nil {
		d.reject(ctx, err)
		return err
	}

	snapshot, err := d.engine.Record(r)
	if err != nil {
		code := errors.CodeOf(err)
		d.metrics.RecordRejected(ctx, code)
		d.msgLog.Warn().
			Str("device_id", r.DeviceID).
			Str("error_code", string(code)).
			Err(err).
			Msg("Reading rejected")

		return err
	}

	d.metrics.RecordAccepted(ctx, snapshot)
	d.msgLog.Debug().
		Str("topic", pb.Topic).
		RawJSON("payload", pb.Payload).
		Int64("count", snapshot.Count).
		Float64("mean", snapshot.Mean()).
		Msg("Message received")

	return nil
}
