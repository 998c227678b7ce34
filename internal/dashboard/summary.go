package dashboard

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"codeberg.org/mutker/plugsim/internal/errors"
	"codeberg.org/mutker/plugsim/internal/stats"
)

// WriteSummary writes the end-of-run report
func (t *Text) WriteSummary(sum stats.Summary) error {
	s := t.styles
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(s.title.Render("SIMULATION SUMMARY"))
	if sum.Run.Interrupted {
		b.WriteString("  ")
		b.WriteString(s.warn.Render("(interrupted)"))
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "  Run:             %s\n", sum.Run.ID)
	fmt.Fprintf(&b, "  Total messages:  %d\n", sum.Run.TotalMessages)
	fmt.Fprintf(&b, "  Rejected:        %d\n", sum.Run.Rejected)
	for _, code := range sortedCodes(sum.Rejected) {
		fmt.Fprintf(&b, "    %-20s %d\n", code, sum.Rejected[code])
	}
	fmt.Fprintf(&b, "  Skipped rows:    %d\n", sum.Run.SourceErrors)
	fmt.Fprintf(&b, "  Elapsed:         %s\n", sum.Run.Elapsed().Round(time.Millisecond))
	fmt.Fprintf(&b, "  Processing rate: %.0f records/sec\n", sum.Run.Throughput())

	if len(sum.Devices) == 0 {
		b.WriteString(s.muted.Render("  no devices recorded"))
		b.WriteString("\n")
	} else {
		fmt.Fprintf(&b, "\n  %-24s %8s %10s %10s %10s\n", "DEVICE", "COUNT", "MEAN", "MIN", "MAX")
		for _, d := range sum.Devices {
			fmt.Fprintf(&b, "  %-24s %8d %10.2f %10.2f %10.2f\n",
				t.label(d.DeviceID), d.Count, d.Mean(), d.Min, d.Max)
		}
	}

	if _, err := io.WriteString(t.w, b.String()); err != nil {
		return errors.New().Wrap(errors.ErrRender, err)
	}

	return nil
}

func sortedCodes(m map[errors.ErrorCode]int64) []errors.ErrorCode {
	codes := make([]errors.ErrorCode, 0, len(m))
	for code := range m {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })

	return codes
}
