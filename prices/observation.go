package prices

import (
	"github.com/robinvdvleuten/ratebook/date"
	"github.com/shopspring/decimal"
)

// Observation is a single price record as delivered by a loader. Any field may
// be missing: an empty string, a zero Date or an invalid NullDecimal. Provider
// is optional; all other fields are required for the record to be indexed.
type Observation struct {
	Symbol   string
	Currency string
	Provider string
	Date     date.Date
	Price    decimal.NullDecimal
}

// Complete reports whether the observation carries symbol, currency, date and price.
func (o Observation) Complete() bool {
	return o.Symbol != "" && o.Currency != "" && !o.Date.IsZero() && o.Price.Valid
}

// Key returns the instrument key the observation belongs to.
func (o Observation) Key() string {
	return KeyOf(o.Symbol, o.Currency, o.Provider)
}

// KeyOf builds an instrument key: SYMBOL/CURRENCY:PROVIDER, with the trailing
// separator dropped when provider is empty.
func KeyOf(symbol, currency, provider string) string {
	if provider == "" {
		return symbol + "/" + currency
	}
	return symbol + "/" + currency + ":" + provider
}
