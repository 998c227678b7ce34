package metrics

import (
	"io"
	"os"
	"time"

	"codeberg.org/mutker/plugsim/internal/errors"
)

const defaultInterval = 10 * time.Second

type Config struct {
	Enabled  bool
	Interval time.Duration
	// Output receives the exported metrics. Defaults to stderr.
	Output io.Writer
}

func DefaultConfig() Config {
	return Config{
		Interval: defaultInterval,
		Output:   os.Stderr,
	}
}

func (c Config) Validate() error {
	// Only validate the interval if metrics is enabled
	if c.Enabled && c.Interval <= 0 {
		return errors.New().WithData(ErrInvalidInterval, c.Interval)
	}

	return nil
}
