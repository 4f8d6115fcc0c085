// Package rule compiles conversion rules.
//
// A conversion rule describes how an amount in one currency is turned into
// an amount in the target currency by a chain of multiply and divide steps,
// each against the price of an instrument:
//
//	*(EUR/USD:ECB)            multiply by the ECB price of EUR in USD
//	*(BTC/EUR) /(USD/EUR)     multiply by BTC/EUR, then divide by USD/EUR
//	""                        identity (the amount is already in the target currency)
//
// Rules are parsed once and are read-only afterwards.
package rule

import (
	"iter"
	"strings"
)

// Op is the arithmetic operation of a conversion step.
type Op byte

const (
	Multiply Op = '*'
	Divide   Op = '/'
)

func (o Op) String() string {
	switch o {
	case Multiply:
		return "*"
	case Divide:
		return "/"
	default:
		return "?"
	}
}

// Step is a single operation against the price of one instrument.
type Step struct {
	Op       Op
	Symbol   string
	Currency string
	Provider string
}

// Key returns the instrument key of the step: SYMBOL/CURRENCY:PROVIDER, or
// SYMBOL/CURRENCY when no provider is given.
func (s Step) Key() string {
	if s.Provider == "" {
		return s.Symbol + "/" + s.Currency
	}
	return s.Symbol + "/" + s.Currency + ":" + s.Provider
}

func (s Step) String() string {
	return s.Op.String() + "(" + s.Key() + ")"
}

// Rule is an ordered, immutable chain of steps. The zero Rule is the identity.
type Rule struct {
	steps []Step
}

// Len returns the number of steps.
func (r Rule) Len() int { return len(r.steps) }

// At returns the i-th step. It panics if i is out of range.
func (r Rule) At(i int) Step { return r.steps[i] }

// IsIdentity reports whether the rule has no steps.
func (r Rule) IsIdentity() bool { return len(r.steps) == 0 }

// Steps returns a copy of the steps in application order.
func (r Rule) Steps() []Step {
	out := make([]Step, len(r.steps))
	copy(out, r.steps)
	return out
}

// All iterates over the steps in application order.
func (r Rule) All() iter.Seq2[int, Step] {
	return func(yield func(int, Step) bool) {
		for i, s := range r.steps {
			if !yield(i, s) {
				return
			}
		}
	}
}

// String renders the rule in canonical form, without whitespace.
// Parsing the result yields an equal rule.
func (r Rule) String() string {
	var buf strings.Builder
	for _, s := range r.steps {
		buf.WriteString(s.String())
	}
	return buf.String()
}
