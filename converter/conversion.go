package converter

import (
	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/ratebook/date"
	"github.com/robinvdvleuten/ratebook/rule"
)

// Conversion is the trace of a single conversion.
type Conversion struct {
	Symbol    string
	Date      date.Date
	Amount    decimal.Decimal
	Steps     []AppliedStep
	Unrounded decimal.Decimal
	Result    decimal.Decimal
}

// AppliedStep records how one rule step was resolved.
type AppliedStep struct {
	Step     rule.Step
	Observed date.Date       // Date of the price that was used
	Price    decimal.Decimal // Price that was used
	Running  decimal.Decimal // Unrounded amount after the step
}
