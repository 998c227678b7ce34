package main

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/plugsim/internal/config"
	"codeberg.org/mutker/plugsim/internal/errors"
	"codeberg.org/mutker/plugsim/internal/metrics"
	"codeberg.org/mutker/plugsim/internal/reading"
	"codeberg.org/mutker/plugsim/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "plugsim dev\n", out.String())
}

func TestRunWithoutInput(t *testing.T) {
	t.Chdir(t.TempDir())

	cmd := newRootCmd()
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, errors.ErrNoInput, errors.CodeOf(err))
}

func TestRunReplaysCSV(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "fridge_1.csv")
	require.NoError(t, os.WriteFile(path, []byte(
		"timestamp,power\n"+
			"2024-03-01T12:00:00Z,40\n"+
			"2024-03-01T12:00:01Z,55\n"+
			"2024-03-01T12:00:02Z,48.5\n"), 0o644))

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--publish-rate", "unbounded", "--no-color", "--log-level", "error", path})

	require.NoError(t, cmd.Execute())
}

func TestRunMissingFiles(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--log-level", "error", filepath.Join(dir, "missing.csv")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, errors.ErrSourceUnavailable, errors.CodeOf(err))
}

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func writeDB(t *testing.T, dir string) string {
	t.Helper()

	path := filepath.Join(dir, "readings.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE readings (device_id TEXT, timestamp, power REAL)`)
	require.NoError(t, err)
	for _, row := range [][3]any{
		{"fridge_1", "2024-03-01T12:00:03Z", 50.0},
		{"kettle", "2024-03-01T12:00:00Z", 2000.0},
		{"fridge_1", "2024-03-01T12:00:04Z", 51.0},
	} {
		_, err = db.Exec(`INSERT INTO readings (device_id, timestamp, power) VALUES (?, ?, ?)`, row[0], row[1], row[2])
		require.NoError(t, err)
	}

	return path
}

func drainDevices(t *testing.T, src source.Source) []string {
	t.Helper()

	var ids []string
	for {
		r, err := src.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return ids
		}
		require.NoError(t, err)
		ids = append(ids, r.DeviceID)
	}
}

func TestOpenSourceCapsDevicesAcrossInputs(t *testing.T) {
	dir := t.TempDir()

	cfg := config.New()
	cfg.SampleSize = 2
	cfg.Database = writeDB(t, dir)
	cfg.DatabaseDevices = []string{"fridge_1"}
	cfg.Devices = []config.Device{{File: writeCSV(t, dir, "fridge_1.csv",
		"timestamp,power\n"+
			"2024-03-01T12:00:00Z,40\n"+
			"2024-03-01T12:00:01Z,41\n"+
			"2024-03-01T12:00:02Z,42\n")}}

	src, err := openSource(context.Background(), cfg)
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, []string{"fridge_1", "fridge_1"}, drainDevices(t, src),
		"the cap holds per device across files and the database, and the database filter drops kettle")
}

type failingSource struct{ calls int }

func (f *failingSource) Next(context.Context) (reading.Reading, error) {
	f.calls++
	return reading.Reading{}, errors.New().WithMessage(errors.ErrSourceUnavailable, "disk gone")
}

func (*failingSource) Close() error { return nil }

func TestSimulateWrapsErrors(t *testing.T) {
	cfg := config.New()
	cfg.NoColor = true

	var out bytes.Buffer
	err := simulate(context.Background(), cfg, &failingSource{}, metrics.Noop(), &out)
	require.Error(t, err)
	assert.Equal(t, errors.ErrMainLoop, errors.CodeOf(err))
	assert.True(t, errors.HasCode(err, errors.ErrSourceRead))

	cfg.RenderEveryN = 0
	err = simulate(context.Background(), cfg, &failingSource{}, metrics.Noop(), &out)
	require.Error(t, err)
	assert.Equal(t, errors.ErrInitApp, errors.CodeOf(err))
}

func TestSimulateWritesSummary(t *testing.T) {
	cfg := config.New()
	cfg.NoColor = true
	cfg.PublishRate = config.Unlimited

	src := source.FromReadings(reading.Reading{DeviceID: "fridge_1", Timestamp: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), Power: 40})

	var out bytes.Buffer
	require.NoError(t, simulate(context.Background(), cfg, src, metrics.Noop(), &out))
	assert.Contains(t, out.String(), "FINAL DASHBOARD")
	assert.Contains(t, out.String(), "Total messages:  1")
}
