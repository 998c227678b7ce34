// Package source produces the ordered stream of readings fed to the
// pipeline: one CSV file per device, a SQLite table, or an in-memory list.
package source

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"codeberg.org/mutker/plugsim/internal/errors"
	"codeberg.org/mutker/plugsim/internal/reading"
)

// Source yields readings until it returns io.EOF. Errors in the source or
// data-quality categories concern a single row; the caller may skip it and
// call Next again.
type Source interface {
	Next(ctx context.Context) (reading.Reading, error)
	Close() error
}

// Interleave selects how readings from several sources are merged
type Interleave string

const (
	InterleaveSequential Interleave = "sequential"
	InterleaveRoundRobin Interleave = "round_robin"
)

// IsValid returns whether the interleave mode is known
func (i Interleave) IsValid() bool {
	switch i {
	case InterleaveSequential, InterleaveRoundRobin:
		return true
	default:
		return false
	}
}

// FileSpec maps a CSV file onto a device
type FileSpec struct {
	DeviceID string
	Path     string
}

// DeviceIDFromPath derives a device id from a file name,
// e.g. data/fridge_207.csv -> fridge_207
func DeviceIDFromPath(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// OpenFiles opens one CSV source per file, capped at limit readings per
// device when limit is positive. Files that cannot be opened are skipped and
// their errors returned; the source is nil only when no file opened.
func OpenFiles(files []FileSpec, limit int, mode Interleave) (Source, []error) {
	var (
		srcs []Source
		errs []error
	)

	for _, f := range files {
		id := f.DeviceID
		if id == "" {
			id = DeviceIDFromPath(f.Path)
		}

		src, err := OpenCSV(f.Path, id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if src.HasDeviceColumn() {
			srcs = append(srcs, LimitPerDevice(src, limit))
			continue
		}
		srcs = append(srcs, Limit(src, limit))
	}

	if len(srcs) == 0 {
		return nil, errs
	}

	return Merge(mode, srcs...), errs
}

// Merge combines sources according to mode
func Merge(mode Interleave, srcs ...Source) Source {
	if len(srcs) == 1 {
		return srcs[0]
	}
	if mode == InterleaveRoundRobin {
		return RoundRobin(srcs...)
	}

	return Sequential(srcs...)
}

type limited struct {
	src   Source
	limit int
	n     int
}

// Limit stops after n readings without pulling further from src. A
// non-positive n leaves src unbounded.
func Limit(src Source, n int) Source {
	if n <= 0 {
		return src
	}

	return &limited{src: src, limit: n}
}

func (l *limited) Next(ctx context.Context) (reading.Reading, error) {
	if l.n >= l.limit {
		return reading.Reading{}, io.EOF
	}

	r, err := l.src.Next(ctx)
	if err == nil {
		l.n++
	}

	return r, err
}

func (l *limited) Close() error {
	return l.src.Close()
}

type perDevice struct {
	src    Source
	limit  int
	counts map[string]int
}

// LimitPerDevice passes at most n readings per device id and drops the
// rest. Unlike Limit it keeps pulling from src until EOF. A non-positive n
// leaves src unbounded.
func LimitPerDevice(src Source, n int) Source {
	if n <= 0 {
		return src
	}

	return &perDevice{src: src, limit: n, counts: make(map[string]int)}
}

func (p *perDevice) Next(ctx context.Context) (reading.Reading, error) {
	for {
		r, err := p.src.Next(ctx)
		if err != nil {
			return r, err
		}
		if p.counts[r.DeviceID] >= p.limit {
			continue
		}
		p.counts[r.DeviceID]++

		return r, nil
	}
}

func (p *perDevice) Close() error {
	return p.src.Close()
}

type sequential struct {
	srcs []Source
	cur  int
}

// Sequential drains each source in turn, in file order
func Sequential(srcs ...Source) Source {
	return &sequential{srcs: srcs}
}

func (s *sequential) Next(ctx context.Context) (reading.Reading, error) {
	for s.cur < len(s.srcs) {
		r, err := s.srcs[s.cur].Next(ctx)
		if errors.Is(err, io.EOF) {
			s.cur++
			continue
		}

		return r, err
	}

	return reading.Reading{}, io.EOF
}

func (s *sequential) Close() error {
	return closeAll(s.srcs)
}

type roundRobin struct {
	srcs []Source
	done []bool
	live int
	cur  int
}

// RoundRobin takes one item from each live source in turn
func RoundRobin(srcs ...Source) Source {
	return &roundRobin{
		srcs: srcs,
		done: make([]bool, len(srcs)),
		live: len(srcs),
	}
}

func (rr *roundRobin) Next(ctx context.Context) (reading.Reading, error) {
	for rr.live > 0 {
		i := rr.cur
		rr.cur = (rr.cur + 1) % len(rr.srcs)
		if rr.done[i] {
			continue
		}

		r, err := rr.srcs[i].Next(ctx)
		if errors.Is(err, io.EOF) {
			rr.done[i] = true
			rr.live--
			continue
		}

		return r, err
	}

	return reading.Reading{}, io.EOF
}

func (rr *roundRobin) Close() error {
	return closeAll(rr.srcs)
}

// Slice is an in-memory source that counts how often it was pulled
type Slice struct {
	readings []reading.Reading
	pos      int
	pulls    int
}

// FromReadings returns a source over an in-memory list
func FromReadings(rs ...reading.Reading) *Slice {
	return &Slice{readings: rs}
}

func (s *Slice) Next(_ context.Context) (reading.Reading, error) {
	s.pulls++
	if s.pos >= len(s.readings) {
		return reading.Reading{}, io.EOF
	}

	r := s.readings[s.pos]
	s.pos++

	return r, nil
}

func (*Slice) Close() error { return nil }

// Pulls returns the number of Next calls, including the one returning EOF
func (s *Slice) Pulls() int { return s.pulls }

func closeAll(srcs []Source) error {
	var errs []error
	for _, src := range srcs {
		if err := src.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
