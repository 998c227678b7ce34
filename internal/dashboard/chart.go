package dashboard

import (
	"strings"

	"github.com/guptarohit/asciigraph"
)

var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// powerBar scales current against max into a bar of width cells
func powerBar(current, maxValue float64, width int) string {
	filled := 0
	if maxValue > 0 {
		filled = int(current / maxValue * float64(width))
	}
	filled = min(max(filled, 0), width)

	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// sparkline maps each value onto a block height between the window's min
// and max
func sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}

	var b strings.Builder
	for _, v := range values {
		idx := 0
		if hi > lo {
			idx = int((v - lo) / (hi - lo) * float64(len(sparkChars)-1))
		}
		b.WriteRune(sparkChars[min(max(idx, 0), len(sparkChars)-1)])
	}

	return b.String()
}

// lineChart plots the recent window; it needs at least two points
func lineChart(data []float64, width, height int, caption string) string {
	if len(data) < 2 {
		return ""
	}

	width = max(width, 20)
	height = max(height, 3)

	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}
