// Package render draws dashboards and record histories as terminal tables.
package render

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-runewidth"
	"github.com/shopspring/decimal"
	"golang.org/x/term"

	"github.com/carbonlog/carbonlog/internal/dashboard"
	"github.com/carbonlog/carbonlog/internal/delta"
	"github.com/carbonlog/carbonlog/internal/record"
)

// DefaultWidth is used when the terminal size cannot be determined.
const DefaultWidth = 80

const minTextWidth = 10

// TerminalWidth reports the width of f, or DefaultWidth when f is not a terminal.
func TerminalWidth(f *os.File) int {
	if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
		return width
	}
	return DefaultWidth
}

// History writes one row per record in the order given.
func History(w io.Writer, records []record.Record, width int) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No records.")
		return
	}

	// Six columns, the numeric ones rarely wider than 12 cells.
	sectorWidth := textWidth(width, 6, 10+12*4)

	t := newTable(w)
	t.AppendHeader(table.Row{"DATE", "SECTOR", "TOTAL KG", "SCOPE 1", "SCOPE 2", "SCOPE 3"})
	for _, rec := range records {
		t.AppendRow(table.Row{
			rec.Date,
			runewidth.Truncate(rec.Sector, sectorWidth, "..."),
			rec.Totals.Total.String(),
			rec.Totals.Scope1.String(),
			rec.Totals.Scope2.String(),
			rec.Totals.Scope3.String(),
		})
	}
	t.Render()
}

// Changes writes the top increases followed by the top decreases.
func Changes(w io.Writer, result delta.Result, width int) {
	if len(result.TopIncreases) == 0 && len(result.TopDecreases) == 0 {
		fmt.Fprintln(w, "No material changes.")
		return
	}

	keyWidth := textWidth(width, 5, 8+12*3)

	t := newTable(w)
	t.AppendHeader(table.Row{"TREND", "SOURCE", "DELTA KG", "CURRENT", "PREVIOUS"})
	appendChanges := func(trend string, changes []delta.Change) {
		for _, c := range changes {
			t.AppendRow(table.Row{
				trend,
				runewidth.Truncate(c.Key, keyWidth, "..."),
				signed(c.Delta),
				c.Current.String(),
				c.Previous.String(),
			})
		}
	}
	appendChanges("increase", result.TopIncreases)
	appendChanges("decrease", result.TopDecreases)
	t.Render()
}

// Dashboard writes the latest entry summary, the history window and the changes.
func Dashboard(w io.Writer, data dashboard.Data, width int) {
	if data.Latest == nil {
		fmt.Fprintln(w, "No records yet.")
		return
	}

	fmt.Fprintf(w, "Latest entry: %s (total %s kg)\n", data.Latest.Date, data.Latest.Totals.Total.String())
	if data.Previous != nil {
		fmt.Fprintf(w, "Change since %s: %s kg\n", data.Previous.Date, signed(data.Deltas.TotalDelta))
	}
	fmt.Fprintln(w)
	History(w, data.History, width)
	fmt.Fprintln(w)
	Changes(w, data.Deltas, width)
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

// textWidth is what remains for the one free-text column once the fixed
// columns and borders are accounted for.
func textWidth(termWidth, columns, fixed int) int {
	width := termWidth - columns*3 - 1 - fixed
	if width < minTextWidth {
		return minTextWidth
	}
	return width
}

func signed(d decimal.Decimal) string {
	if d.IsPositive() {
		return "+" + d.String()
	}
	return d.String()
}
