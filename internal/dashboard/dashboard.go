// Package dashboard renders the statistics engine's snapshots as text.
package dashboard

import (
	"fmt"
	"io"
	"strings"
	"time"

	"codeberg.org/mutker/plugsim/internal/errors"
	"codeberg.org/mutker/plugsim/internal/stats"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

const clearScreen = "\033[H\033[2J"

// Frame is one dashboard refresh
type Frame struct {
	Devices   []stats.DeviceStats
	Processed int64
	Rejected  int64
	Elapsed   time.Duration
	Final     bool
}

// Renderer draws a frame
type Renderer interface {
	Render(f Frame) error
}

type Options struct {
	Labels      map[string]string
	BarWidth    int
	PlotWidth   int
	PlotHeight  int
	RecentShown int
	ClearScreen bool
	NoColor     bool
}

// DefaultOptions returns the layout used by the command line
func DefaultOptions() Options {
	return Options{
		BarWidth:    50,
		PlotWidth:   50,
		PlotHeight:  6,
		RecentShown: 10,
	}
}

// Text renders frames as styled text on w. Colors are only emitted when w
// is a terminal.
type Text struct {
	w      io.Writer
	opts   Options
	styles styles
}

func New(w io.Writer, opts Options) *Text {
	def := DefaultOptions()
	if opts.BarWidth <= 0 {
		opts.BarWidth = def.BarWidth
	}
	if opts.PlotWidth <= 0 {
		opts.PlotWidth = def.PlotWidth
	}
	if opts.PlotHeight <= 0 {
		opts.PlotHeight = def.PlotHeight
	}
	if opts.RecentShown <= 0 {
		opts.RecentShown = def.RecentShown
	}

	r := lipgloss.NewRenderer(w)
	if opts.NoColor {
		r.SetColorProfile(termenv.Ascii)
	}

	return &Text{
		w:      w,
		opts:   opts,
		styles: newStyles(r),
	}
}

func (t *Text) Render(f Frame) error {
	var b strings.Builder

	if t.opts.ClearScreen {
		b.WriteString(clearScreen)
	}

	title := "LIVE DASHBOARD"
	if f.Final {
		title = "FINAL DASHBOARD"
	}
	b.WriteString(t.styles.title.Render(title))
	b.WriteString("  ")
	b.WriteString(t.styles.muted.Render(fmt.Sprintf("processed %d  rejected %d  elapsed %s",
		f.Processed, f.Rejected, f.Elapsed.Round(time.Millisecond))))
	b.WriteString("\n")

	if len(f.Devices) == 0 {
		b.WriteString(t.styles.muted.Render("  no readings yet"))
		b.WriteString("\n")
	}

	for _, d := range f.Devices {
		t.device(&b, d)
	}

	if _, err := io.WriteString(t.w, b.String()); err != nil {
		return errors.New().Wrap(errors.ErrRender, err)
	}

	return nil
}

func (t *Text) device(b *strings.Builder, d stats.DeviceStats) {
	s := t.styles

	b.WriteString("\n")
	b.WriteString(s.title.Render(t.label(d.DeviceID)))
	b.WriteString("\n")

	trend := d.Trend()
	trendStyle := s.muted
	switch trend {
	case stats.TrendRising:
		trendStyle = s.rising
	case stats.TrendFalling:
		trendStyle = s.falling
	}

	row := func(name, value string) {
		fmt.Fprintf(b, "  %s %s\n", s.label.Render(fmt.Sprintf("%-9s", name)), value)
	}

	row("Current:", s.value.Render(watts(d.LastValue))+"  "+trendStyle.Render(trend.Symbol()+" "+trend.String()))
	row("Average:", watts(d.Mean()))
	if d.HasRange() {
		row("Max:", watts(d.Max))
		row("Min:", watts(d.Min))
	}
	row("Messages:", fmt.Sprintf("%d", d.Count))
	if !d.LastTimestamp.IsZero() {
		row("Last at:", d.LastTimestamp.Format(time.RFC3339))
	}

	fmt.Fprintf(b, "  [%s]\n", s.bar.Render(powerBar(d.LastValue, d.Max, t.opts.BarWidth)))

	if len(d.Recent) > 0 {
		row("Window:", sparkline(d.Recent))
		row("Recent:", recentValues(d.Recent, t.opts.RecentShown))
	}

	if chart := lineChart(d.Recent, t.opts.PlotWidth, t.opts.PlotHeight, "last "+fmt.Sprint(len(d.Recent))+" readings (W)"); chart != "" {
		b.WriteString(chart)
		b.WriteString("\n")
	}
}

func (t *Text) label(deviceID string) string {
	if name, ok := t.opts.Labels[deviceID]; ok && name != "" {
		return fmt.Sprintf("%s (%s)", name, deviceID)
	}

	return deviceID
}

func watts(v float64) string {
	return fmt.Sprintf("%.2f W", v)
}

func recentValues(values []float64, n int) string {
	if len(values) > n {
		values = values[len(values)-n:]
	}

	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%.1f", v)
	}

	return strings.Join(parts, ", ")
}
