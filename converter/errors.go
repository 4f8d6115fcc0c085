package converter

import (
	"fmt"

	"github.com/robinvdvleuten/ratebook/date"
)

// MissingRuleError is returned when converting a symbol that has no conversion rule.
type MissingRuleError struct {
	Symbol string
}

func (e *MissingRuleError) Error() string {
	return fmt.Sprintf("no conversion rule for %q", e.Symbol)
}

// MissingSeriesError is returned when a rule step refers to an instrument
// without any price observations.
type MissingSeriesError struct {
	Symbol string // Symbol being converted
	Key    string // Instrument key of the step
}

func (e *MissingSeriesError) Error() string {
	return fmt.Sprintf("no price series %q for converting %q", e.Key, e.Symbol)
}

// DateOutOfRangeError is returned when the conversion date precedes the first
// price observation of an instrument the rule needs.
type DateOutOfRangeError struct {
	Symbol string
	Key    string
	Date   date.Date // Requested conversion date
	First  date.Date // Earliest observation in the series
}

func (e *DateOutOfRangeError) Error() string {
	return fmt.Sprintf("no %q price on %s for converting %q (prices start on %s)",
		e.Key, e.Date, e.Symbol, e.First)
}

// DivisionByZeroError is returned when a divide step meets a zero price.
type DivisionByZeroError struct {
	Symbol   string
	Key      string
	Date     date.Date // Requested conversion date
	Observed date.Date // Date of the zero price
}

func (e *DivisionByZeroError) Error() string {
	return fmt.Sprintf("division by zero: %q price observed on %s is 0 while converting %q on %s",
		e.Key, e.Observed, e.Symbol, e.Date)
}

// DuplicateCurrencyError is returned when two currency definitions share a code.
type DuplicateCurrencyError struct {
	Code string
}

func (e *DuplicateCurrencyError) Error() string {
	return fmt.Sprintf("currency %q is defined more than once", e.Code)
}

// InvalidRuleError is returned when the rule of a currency does not parse.
// The underlying error is a *rule.SyntaxError.
type InvalidRuleError struct {
	Code       string
	Underlying error
}

func (e *InvalidRuleError) Error() string {
	return fmt.Sprintf("currency %q: %v", e.Code, e.Underlying)
}

func (e *InvalidRuleError) Unwrap() error {
	return e.Underlying
}
