package source

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"codeberg.org/mutker/plugsim/internal/errors"
	"codeberg.org/mutker/plugsim/internal/reading"
	"github.com/relvacode/iso8601"
)

const (
	columnTimestamp = "timestamp"
	columnPower     = "power"
	columnDevice    = "device_id"
)

// fallback layouts for timestamps that are not ISO-8601
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"02.01.2006 15:04:05",
}

// CSV reads readings for one device from a file with a header row. The
// header must name a timestamp and a power column; a device_id column, if
// present, overrides the device per row.
type CSV struct {
	reader   *csv.Reader
	closer   io.Closer
	deviceID string
	tsCol    int
	powerCol int
	devCol   int
	width    int
	line     int
}

// OpenCSV opens path and reads its header
func OpenCSV(path, deviceID string) (*CSV, error) {
	errFactory := errors.New()

	f, err := os.Open(path)
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrSourceUnavailable, err)
	}

	c, err := NewCSV(f, deviceID)
	if err != nil {
		f.Close()
		return nil, err
	}
	c.closer = f

	return c, nil
}

// NewCSV reads the header from r
func NewCSV(r io.Reader, deviceID string) (*CSV, error) {
	errFactory := errors.New()

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		return nil, errFactory.WithData(errors.ErrSourceUnavailable, struct {
			Device string
			Error  string
		}{
			Device: deviceID,
			Error:  "missing header: " + err.Error(),
		})
	}

	c := &CSV{
		reader:   reader,
		deviceID: deviceID,
		tsCol:    -1,
		powerCol: -1,
		devCol:   -1,
		line:     1,
	}

	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case columnTimestamp:
			c.tsCol = i
		case columnPower:
			c.powerCol = i
		case columnDevice:
			c.devCol = i
		}
	}

	if c.tsCol < 0 || c.powerCol < 0 {
		return nil, errFactory.WithData(errors.ErrSourceUnavailable, struct {
			Device string
			Header []string
		}{
			Device: deviceID,
			Header: append([]string(nil), header...),
		})
	}

	c.width = max(c.tsCol, c.powerCol, c.devCol) + 1

	return c, nil
}

// Next returns the next row as a reading. Malformed rows yield
// ErrMalformedRow and unparseable timestamps ErrInvalidTimestamp; both
// leave the reader positioned on the following row.
func (c *CSV) Next(ctx context.Context) (reading.Reading, error) {
	errFactory := errors.New()

	if err := ctx.Err(); err != nil {
		return reading.Reading{}, err
	}

	record, err := c.reader.Read()
	if errors.Is(err, io.EOF) {
		return reading.Reading{}, io.EOF
	}
	c.line++
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return reading.Reading{}, errFactory.Wrap(errors.ErrMalformedRow, err)
		}

		return reading.Reading{}, errFactory.Wrap(errors.ErrSourceRead, err)
	}

	if len(record) < c.width {
		return reading.Reading{}, errFactory.WithData(errors.ErrMalformedRow, c.rowInfo("short row"))
	}

	power, err := strconv.ParseFloat(strings.TrimSpace(record[c.powerCol]), 64)
	if err != nil {
		return reading.Reading{}, errFactory.WithData(errors.ErrMalformedRow, c.rowInfo("power: "+record[c.powerCol]))
	}

	deviceID := c.deviceID
	if c.devCol >= 0 {
		deviceID = strings.TrimSpace(record[c.devCol])
	}

	ts, err := ParseTimestamp(record[c.tsCol])
	if err != nil {
		return reading.Reading{}, errFactory.WithData(errors.ErrInvalidTimestamp, c.rowInfo("timestamp: "+record[c.tsCol]))
	}

	return reading.Reading{
		DeviceID:  deviceID,
		Timestamp: ts,
		Power:     power,
	}, nil
}

// HasDeviceColumn reports whether rows carry their own device id
func (c *CSV) HasDeviceColumn() bool {
	return c.devCol >= 0
}

func (c *CSV) Close() error {
	if c.closer == nil {
		return nil
	}

	return c.closer.Close()
}

type rowDetail struct {
	Device string
	Line   int
	Detail string
}

func (c *CSV) rowInfo(detail string) rowDetail {
	return rowDetail{Device: c.deviceID, Line: c.line, Detail: detail}
}

// ParseTimestamp accepts ISO-8601 and a few common log layouts. Values
// without a zone are taken as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)

	ts, err := iso8601.ParseString(s)
	if err == nil {
		return ts, nil
	}

	for _, layout := range timestampLayouts {
		if t, perr := time.Parse(layout, s); perr == nil {
			return t, nil
		}
	}

	return time.Time{}, err
}
