package ast

import "github.com/robinvdvleuten/ratebook/date"

// Constructors for building records programmatically, e.g. when generating
// records files or importing prices from another source.

// NewMetadata creates a metadata entry.
func NewMetadata(key, value string) *Metadata {
	return &Metadata{Key: key, Value: value}
}

// NewAmount creates an amount. The value should be a decimal string such as
// "1.10"; it is not validated.
func NewAmount(value, currency string) *Amount {
	return &Amount{Value: value, Currency: currency}
}

// NewCommodity declares a currency. Pass an empty rule for the base currency.
//
//	c := ast.NewCommodity(date.New(2020, 1, 1), "EUR", "*(EUR/USD:ECB)")
func NewCommodity(on date.Date, currency, rule string) *Commodity {
	c := &Commodity{Date: on, Currency: currency}
	if rule != "" {
		c.AddMetadata(NewMetadata("convert", rule))
	}
	return c
}

// NewPrice records a price. Pass an empty provider to omit the source.
//
//	p := ast.NewPrice(date.New(2020, 1, 1), "EUR", ast.NewAmount("1.10", "USD"), "ECB")
func NewPrice(on date.Date, symbol string, amount *Amount, provider string) *Price {
	p := &Price{Date: on, Symbol: symbol, Amount: amount}
	if provider != "" {
		p.AddMetadata(NewMetadata("source", provider))
	}
	return p
}

// NewOption creates an option directive.
func NewOption(name, value string) *Option {
	return &Option{Name: name, Value: value}
}

// NewInclude creates an include directive.
func NewInclude(filename string) *Include {
	return &Include{Filename: filename}
}
