// Package formatter renders records files and price data as aligned text.
package formatter

import (
	"context"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/exp/slices"

	"github.com/robinvdvleuten/ratebook/ast"
	"github.com/robinvdvleuten/ratebook/telemetry"
)

const (
	// DefaultIndentation is the indentation of metadata lines.
	DefaultIndentation = 2

	// MinimumSpacing is the minimum number of spaces between a price's
	// symbol and its number.
	MinimumSpacing = 2
)

// Formatter writes records files in canonical form: one directive per line,
// quoted metadata values, and price numbers right-aligned so that all
// currencies start in the same column. Standalone comments and blank lines
// of the source are kept; comments at the end of a line are not.
type Formatter struct {
	// CurrencyColumn is the column (1-indexed) price currencies start at.
	// If 0, it is derived from the widest price line.
	CurrencyColumn int

	// PreserveComments controls whether comment lines are kept.
	PreserveComments bool

	// PreserveBlanks controls whether blank lines are kept. Runs of blank
	// lines collapse into one.
	PreserveBlanks bool
}

// Option is a functional option for configuring a Formatter.
type Option func(*Formatter)

// WithCurrencyColumn sets the column price currencies are aligned to.
func WithCurrencyColumn(col int) Option {
	return func(f *Formatter) {
		f.CurrencyColumn = col
	}
}

// WithPreserveComments enables or disables comment preservation.
func WithPreserveComments(preserve bool) Option {
	return func(f *Formatter) {
		f.PreserveComments = preserve
	}
}

// WithPreserveBlanks enables or disables blank line preservation.
func WithPreserveBlanks(preserve bool) Option {
	return func(f *Formatter) {
		f.PreserveBlanks = preserve
	}
}

// New creates a new Formatter with the given options.
func New(opts ...Option) *Formatter {
	f := &Formatter{
		PreserveComments: true,
		PreserveBlanks:   true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

type item struct {
	line      int
	option    *ast.Option
	include   *ast.Include
	directive ast.Directive
}

func (i item) isHeader() bool { return i.directive == nil }

// Format writes file to w. source is the text file was parsed from and is
// only used to recover comments and blank lines; it may be nil.
func (f *Formatter) Format(ctx context.Context, file *ast.File, source []byte, w io.Writer) error {
	timer := telemetry.FromContext(ctx).Start("formatter.format")
	defer timer.End()

	var items []item
	for _, opt := range file.Options {
		items = append(items, item{line: opt.Pos.Line, option: opt})
	}
	for _, inc := range file.Includes {
		items = append(items, item{line: inc.Pos.Line, include: inc})
	}
	for _, d := range file.Directives {
		items = append(items, item{line: d.Position().Line, directive: d})
	}

	// Parsed files keep their source order. Built files have no lines and
	// keep options, includes, then directives.
	slices.SortStableFunc(items, func(a, b item) int {
		return a.line - b.line
	})

	column := f.CurrencyColumn
	if column == 0 {
		column = currencyColumn(file.Directives)
	}

	var lines []string
	if source != nil {
		lines = strings.Split(string(source), "\n")
	}

	var buf strings.Builder
	out := &writer{buf: &buf}
	lastLine := 0

	for i, it := range items {
		if source != nil {
			f.writeBetween(out, lines, lastLine, it.line)
			lastLine = it.line
		} else if i > 0 && items[i-1].isHeader() && !it.isHeader() {
			out.blank()
		}

		switch {
		case it.option != nil:
			out.line("option " + quote(it.option.Name) + " " + quote(it.option.Value))
		case it.include != nil:
			out.line("include " + quote(it.include.Filename))
		default:
			formatDirective(out, it.directive, column)
		}
	}

	if source != nil {
		f.writeBetween(out, lines, lastLine, len(lines)+1)
	}

	_, err := io.WriteString(w, buf.String())
	return err
}

// writeBetween copies comments and blank lines strictly between two source
// lines.
func (f *Formatter) writeBetween(out *writer, lines []string, from, to int) {
	for n := from + 1; n < to && n <= len(lines); n++ {
		trimmed := strings.TrimSpace(lines[n-1])
		switch {
		case trimmed == "":
			if f.PreserveBlanks {
				out.blank()
			}
		case strings.HasPrefix(trimmed, ";"):
			if f.PreserveComments {
				out.line(trimmed)
			}
		}
	}
}

func formatDirective(out *writer, d ast.Directive, column int) {
	switch directive := d.(type) {
	case *ast.Commodity:
		out.line(directive.Date.String() + " commodity " + directive.Currency)
		formatMetadata(out, directive.Metadata)

	case *ast.Price:
		out.line(priceLine(directive, column))
		formatMetadata(out, directive.Metadata)
	}
}

func formatMetadata(out *writer, metadata []*ast.Metadata) {
	indent := strings.Repeat(" ", DefaultIndentation)
	for _, m := range metadata {
		out.line(indent + m.Key + ": " + quote(m.Value))
	}
}

func pricePrefix(p *ast.Price) string {
	return p.Date.String() + " price " + p.Symbol
}

func priceLine(p *ast.Price, column int) string {
	prefix := pricePrefix(p)
	if p.Amount == nil {
		return prefix
	}

	// The currency starts at column, one space after the number.
	pad := column - 1 - runewidth.StringWidth(prefix) - runewidth.StringWidth(p.Amount.Value) - 1
	if pad < MinimumSpacing {
		pad = MinimumSpacing
	}
	return prefix + strings.Repeat(" ", pad) + p.Amount.Value + " " + p.Amount.Currency
}

// currencyColumn returns the column that fits the widest price prefix and
// the widest number.
func currencyColumn(directives ast.Directives) int {
	maxPrefix, maxNumber := 0, 0
	for _, d := range directives {
		p, ok := d.(*ast.Price)
		if !ok || p.Amount == nil {
			continue
		}
		maxPrefix = max(maxPrefix, runewidth.StringWidth(pricePrefix(p)))
		maxNumber = max(maxNumber, runewidth.StringWidth(p.Amount.Value))
	}
	return maxPrefix + MinimumSpacing + maxNumber + 2
}

func quote(s string) string {
	return `"` + escapeString(s) + `"`
}

// writer collapses blank lines: no leading blanks, never two in a row.
type writer struct {
	buf          *strings.Builder
	pendingBlank bool
}

func (w *writer) blank() {
	w.pendingBlank = w.buf.Len() > 0
}

func (w *writer) line(s string) {
	if w.pendingBlank {
		w.buf.WriteByte('\n')
		w.pendingBlank = false
	}
	w.buf.WriteString(s)
	w.buf.WriteByte('\n')
}
