package formatter

import (
	"io"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/robinvdvleuten/ratebook/converter"
	"github.com/robinvdvleuten/ratebook/prices"
)

// Table renders rows as space-separated, aligned columns. Widths are
// measured in terminal cells, so wide and combining characters line up.
type Table struct {
	header []string
	rows   [][]string
	right  map[int]bool
}

// NewTable creates a table. A nil header renders no header line.
func NewTable(header ...string) *Table {
	return &Table{header: header, right: map[int]bool{}}
}

// AlignRight right-aligns the given columns, e.g. for numbers.
func (t *Table) AlignRight(columns ...int) *Table {
	for _, c := range columns {
		t.right[c] = true
	}
	return t
}

// Append adds a row.
func (t *Table) Append(row ...string) {
	t.rows = append(t.rows, row)
}

// Len returns the number of rows, not counting the header.
func (t *Table) Len() int { return len(t.rows) }

// Render writes the table to w. Trailing spaces are trimmed from each line.
func (t *Table) Render(w io.Writer) error {
	all := t.rows
	if len(t.header) > 0 {
		all = append([][]string{t.header}, t.rows...)
	}

	var widths []int
	for _, row := range all {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	var buf strings.Builder
	for _, row := range all {
		var line strings.Builder
		for i, cell := range row {
			if i > 0 {
				line.WriteString("  ")
			}
			if t.right[i] {
				line.WriteString(runewidth.FillLeft(cell, widths[i]))
			} else {
				line.WriteString(runewidth.FillRight(cell, widths[i]))
			}
		}
		buf.WriteString(strings.TrimRight(line.String(), " "))
		buf.WriteByte('\n')
	}

	_, err := io.WriteString(w, buf.String())
	return err
}

// SeriesSummary lists every series of idx with its size and latest price.
func SeriesSummary(idx *prices.Index) *Table {
	table := NewTable("KEY", "POINTS", "FIRST", "LAST", "PRICE").AlignRight(1, 4)
	for _, key := range idx.Keys() {
		s, _ := idx.Series(key)
		last := s.Last()
		table.Append(key, strconv.Itoa(s.Len()), s.First().Date.String(), last.Date.String(), last.Price.String())
	}
	return table
}

// SeriesPoints lists the points of the given series. Unknown keys are
// skipped and returned.
func SeriesPoints(idx *prices.Index, keys ...string) (*Table, []string) {
	table := NewTable("KEY", "DATE", "PRICE").AlignRight(2)
	var missing []string
	for _, key := range keys {
		s, ok := idx.Series(key)
		if !ok {
			missing = append(missing, key)
			continue
		}
		for _, p := range s.All() {
			table.Append(key, p.Date.String(), p.Price.String())
		}
	}
	return table, missing
}

// ConversionTrace lists the steps of a conversion: the price each step used,
// the day it was observed, and the running amount.
//
//	OP  KEY          OBSERVED    PRICE  AMOUNT
//	    EUR                                100
//	*   EUR/USD:ECB  2020-01-01    1.1     110
//	=   USD                                110
func ConversionTrace(conv *converter.Conversion, target string) *Table {
	table := NewTable("OP", "KEY", "OBSERVED", "PRICE", "AMOUNT").AlignRight(3, 4)
	table.Append("", conv.Symbol, "", "", conv.Amount.String())
	for _, step := range conv.Steps {
		table.Append(step.Step.Op.String(), step.Step.Key(), step.Observed.String(), step.Price.String(), step.Running.String())
	}
	table.Append("=", target, "", "", conv.Result.String())
	return table
}
