// Package ast declares the types used to represent syntax trees for records
// files.
//
// A records file declares currencies (commodity directives carrying their
// conversion rule as metadata), dated price observations, options and
// includes. The parser package produces these trees; the loader package turns
// them into currencies and observations for the converter.
package ast

import (
	"golang.org/x/exp/slices"

	"github.com/robinvdvleuten/ratebook/date"
)

// Directives is a list of dated directives in file order.
type Directives []Directive

// Sort orders directives by date, commodities before prices on the same
// date. Directives on the same date and of the same kind keep their file
// order, which is what makes the last price for a date win later on.
func (d Directives) Sort() {
	slices.SortStableFunc(d, compareDirectives)
}

func compareDirectives(a, b Directive) int {
	if c := a.date().Compare(b.date()); c != 0 {
		return c
	}
	return directivePriority(a) - directivePriority(b)
}

func directivePriority(d Directive) int {
	switch d.(type) {
	case *Commodity:
		return 0
	default:
		return 1
	}
}

// File is a parsed records file.
type File struct {
	Filename   string
	Directives Directives
	Options    []*Option
	Includes   []*Include
}

// Commodities returns the commodity directives in file order.
func (f *File) Commodities() []*Commodity {
	var out []*Commodity
	for _, d := range f.Directives {
		if c, ok := d.(*Commodity); ok {
			out = append(out, c)
		}
	}
	return out
}

// Prices returns the price directives in file order.
func (f *File) Prices() []*Price {
	var out []*Price
	for _, d := range f.Directives {
		if p, ok := d.(*Price); ok {
			out = append(out, p)
		}
	}
	return out
}

// Directive is a dated entry of a records file.
type Directive interface {
	WithMetadata

	Position() Position
	Directive() string
	date() date.Date
}

// WithMetadata is implemented by nodes that carry key/value metadata lines.
type WithMetadata interface {
	AddMetadata(...*Metadata)
	Meta(key string) (string, bool)
}

type withMetadata struct {
	Metadata []*Metadata
}

func (w *withMetadata) AddMetadata(m ...*Metadata) {
	w.Metadata = append(w.Metadata, m...)
}

// Meta returns the value of the last metadata entry with the given key.
func (w *withMetadata) Meta(key string) (string, bool) {
	for i := len(w.Metadata) - 1; i >= 0; i-- {
		if w.Metadata[i].Key == key {
			return w.Metadata[i].Value, true
		}
	}
	return "", false
}

// Metadata is a single "key: value" line under a directive.
type Metadata struct {
	Key   string
	Value string
}

// Commodity declares a currency. Its "convert" metadata holds the conversion
// rule into the base currency; a commodity without one is the base itself.
//
//	2020-01-01 commodity EUR
//	  convert: "*(EUR/USD:ECB)"
type Commodity struct {
	Pos      Position
	Date     date.Date
	Currency string

	withMetadata
}

var _ Directive = &Commodity{}

func (c *Commodity) Position() Position { return c.Pos }
func (c *Commodity) Directive() string  { return "commodity" }
func (c *Commodity) date() date.Date    { return c.Date }

// Rule returns the raw conversion rule, empty when none was given.
func (c *Commodity) Rule() string {
	rule, _ := c.Meta("convert")
	return rule
}

// Price records one observed price of a symbol in a currency. Its "source"
// metadata names the provider.
//
//	2020-01-01 price EUR 1.10 USD
//	  source: "ECB"
type Price struct {
	Pos    Position
	Date   date.Date
	Symbol string
	Amount *Amount

	withMetadata
}

var _ Directive = &Price{}

func (p *Price) Position() Position { return p.Pos }
func (p *Price) Directive() string  { return "price" }
func (p *Price) date() date.Date    { return p.Date }

// Provider returns the price source, empty when none was given.
func (p *Price) Provider() string {
	source, _ := p.Meta("source")
	return source
}

// Amount is a decimal number as written in the source plus its currency.
type Amount struct {
	Value    string
	Currency string
}

// Option sets a named file-level setting, e.g. option "precision" "4".
type Option struct {
	Pos   Position
	Name  string
	Value string
}

// Include pulls in another records file, resolved relative to the including
// file.
type Include struct {
	Pos      Position
	Filename string
}
