package render

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/HatiCode/gradecast/pkg/forecast"
)

const (
	baselineBar   = "█"
	optimisticBar = "░"
	axisSeparator = " │ "

	minBarWidth         = 10
	terminalWidthBackup = 80
)

// TerminalWidth returns the width of stdout, or 80 when it is not a terminal.
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

// Histogram draws one row per bin with a bar for each series. Bars share a
// scale so the two forecasts compare directly. width is the total line width;
// width <= 0 uses the terminal width.
func Histogram(w io.Writer, h forecast.Histogram, width int) error {
	if len(h.Baseline) == 0 {
		_, err := fmt.Fprintln(w, "no samples")
		return err
	}
	if width <= 0 {
		width = TerminalWidth()
	}

	peak := 0
	for i := range h.Baseline {
		peak = max(peak, h.Baseline[i])
		if i < len(h.Optimistic) {
			peak = max(peak, h.Optimistic[i])
		}
	}

	labelWidth := 0
	for _, l := range h.Labels {
		labelWidth = max(labelWidth, runewidth.StringWidth(l))
	}
	countWidth := len(strconv.Itoa(peak))
	barWidth := max(width-labelWidth-runewidth.StringWidth(axisSeparator)-countWidth-1, minBarWidth)

	legend := baselineBar + " baseline"
	if h.Optimistic != nil {
		legend += "   " + optimisticBar + " trend-adjusted"
	}
	if _, err := fmt.Fprintln(w, legend); err != nil {
		return err
	}

	for i, label := range h.Labels {
		if err := writeBar(w, runewidth.FillLeft(label, labelWidth), baselineBar, h.Baseline[i], peak, barWidth, countWidth); err != nil {
			return err
		}
		if i < len(h.Optimistic) {
			if err := writeBar(w, strings.Repeat(" ", labelWidth), optimisticBar, h.Optimistic[i], peak, barWidth, countWidth); err != nil {
				return err
			}
		}
	}

	if discarded := h.DiscardedBaseline + h.DiscardedOptimistic; discarded > 0 {
		if _, err := fmt.Fprintf(w, "%d samples outside the plotted range\n", discarded); err != nil {
			return err
		}
	}
	return nil
}

func writeBar(w io.Writer, label, glyph string, count, peak, barWidth, countWidth int) error {
	n := scaleBar(count, peak, barWidth)
	bar := strings.Repeat(glyph, n) + strings.Repeat(" ", barWidth-n)
	_, err := fmt.Fprintf(w, "%s%s%s %*d\n", label, axisSeparator, bar, countWidth, count)
	return err
}

// scaleBar maps count onto [0, width]; any non-zero count gets at least one cell.
func scaleBar(count, peak, width int) int {
	if count <= 0 || peak <= 0 {
		return 0
	}
	n := count * width / peak
	return max(n, 1)
}
