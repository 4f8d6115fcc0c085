package converter

import (
	"context"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/ratebook/date"
	"github.com/robinvdvleuten/ratebook/prices"
)

func mustParseDec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestDate(s string) date.Date {
	return date.MustParse(s)
}

func price(symbol, currency, provider, on, value string) prices.Observation {
	return prices.Observation{
		Symbol:   symbol,
		Currency: currency,
		Provider: provider,
		Date:     date.MustParse(on),
		Price:    decimal.NewNullDecimal(decimal.RequireFromString(value)),
	}
}

// newTestConverter builds a converter over the USD/EUR series used across tests:
// 2020-01-01 1.10, 2020-02-01 1.20, 2020-03-01 1.15.
func newTestConverter(t *testing.T, currencies ...Currency) *Converter {
	t.Helper()

	if len(currencies) == 0 {
		currencies = []Currency{
			{Code: "EUR"},
			{Code: "USD", Rule: "*(USD/EUR)"},
		}
	}

	c, err := New(context.Background(), currencies, []prices.Observation{
		price("USD", "EUR", "", "2020-01-01", "1.10"),
		price("USD", "EUR", "", "2020-02-01", "1.20"),
		price("USD", "EUR", "", "2020-03-01", "1.15"),
	})
	assert.NoError(t, err)
	return c
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(mustParseDec(want)), "want %s, got %s", want, got)
}
