// Package render draws gradecast results as plain terminal text.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// MaxCellWidth is the display width beyond which table cells are truncated.
const MaxCellWidth = 40

// Table writes headers and rows as space separated, aligned columns.
// Columns listed in rightAlign are right aligned.
func Table(w io.Writer, headers []string, rows [][]string, rightAlign map[int]bool) error {
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, strings.TrimRight(line, " ")); err != nil {
			return err
		}
	}
	return nil
}

func formatTable(headers []string, rows [][]string, rightAlign map[int]bool) []string {
	colCount := len(headers)
	for _, row := range rows {
		colCount = max(colCount, len(row))
	}
	if colCount == 0 {
		return nil
	}

	cell := func(row []string, i int) string {
		if i >= len(row) {
			return ""
		}
		return runewidth.Truncate(row[i], MaxCellWidth, "…")
	}

	widths := make([]int, colCount)
	for i := range headers {
		widths[i] = runewidth.StringWidth(cell(headers, i))
	}
	for _, row := range rows {
		for i := 0; i < colCount; i++ {
			widths[i] = max(widths[i], runewidth.StringWidth(cell(row, i)))
		}
	}

	lines := make([]string, 0, len(rows)+1)
	formatRow := func(row []string) string {
		var b strings.Builder
		for i := 0; i < colCount; i++ {
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(pad(cell(row, i), widths[i], rightAlign[i]))
		}
		return b.String()
	}
	if len(headers) > 0 {
		lines = append(lines, formatRow(headers))
	}
	for _, row := range rows {
		lines = append(lines, formatRow(row))
	}
	return lines
}

func pad(value string, width int, right bool) string {
	if right {
		return runewidth.FillLeft(value, width)
	}
	return runewidth.FillRight(value, width)
}
