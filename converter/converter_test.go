package converter

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/ratebook/prices"
	"github.com/robinvdvleuten/ratebook/rule"
)

func TestConvertStepFunction(t *testing.T) {
	c := newTestConverter(t)

	tests := []struct {
		name string
		on   string
		want string
	}{
		{name: "BetweenUsesPrevious", on: "2020-01-15", want: "110"},
		{name: "ExactMatch", on: "2020-02-01", want: "120"},
		{name: "CarriedForward", on: "2020-12-31", want: "115"},
		{name: "FirstDay", on: "2020-01-01", want: "110"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Convert(newTestDate(tt.on), decimal.NewFromInt(100), "USD")
			assert.NoError(t, err)
			assertDecimal(t, tt.want, got)
		})
	}
}

func TestConvertBeforeFirstObservation(t *testing.T) {
	c := newTestConverter(t)

	_, err := c.Convert(newTestDate("2019-12-31"), decimal.NewFromInt(100), "USD")
	assert.Error(t, err)

	var rangeErr *DateOutOfRangeError
	assert.True(t, errors.As(err, &rangeErr))
	assert.Equal(t, "USD/EUR", rangeErr.Key)
	assert.Equal(t, "USD", rangeErr.Symbol)
	assert.Equal(t, "2019-12-31", rangeErr.Date.String())
	assert.Equal(t, "2020-01-01", rangeErr.First.String())
}

func TestConvertIdentity(t *testing.T) {
	c := newTestConverter(t)

	got, err := c.Convert(newTestDate("1900-01-01"), mustParseDec("12.345678"), "EUR")
	assert.NoError(t, err)
	assertDecimal(t, "12.3457", got)
}

func TestConvertChaining(t *testing.T) {
	c, err := New(context.Background(),
		[]Currency{{Code: "X", Rule: "*(A/Q) /(B/Q)"}},
		[]prices.Observation{
			price("A", "Q", "", "2020-01-01", "2"),
			price("B", "Q", "", "2020-01-01", "4"),
		},
	)
	assert.NoError(t, err)

	got, err := c.Convert(newTestDate("2020-06-01"), decimal.NewFromInt(100), "X")
	assert.NoError(t, err)
	assertDecimal(t, "50", got)
	assert.Equal(t, "50", got.String())
	assert.Equal(t, "50.0000", got.StringFixed(4))
}

func TestConvertAppliesStepsInOrder(t *testing.T) {
	// (100 / 3) * 3 and (100 * 3) / 3 differ once division is rounded
	observations := []prices.Observation{price("T", "Q", "", "2020-01-01", "3")}

	divideFirst, err := New(context.Background(), []Currency{{Code: "X", Rule: "/(T/Q)*(T/Q)"}}, observations)
	assert.NoError(t, err)
	multiplyFirst, err := New(context.Background(), []Currency{{Code: "X", Rule: "*(T/Q)/(T/Q)"}}, observations)
	assert.NoError(t, err)

	on := newTestDate("2020-01-01")
	a, err := divideFirst.Explain(on, decimal.NewFromInt(100), "X")
	assert.NoError(t, err)
	b, err := multiplyFirst.Explain(on, decimal.NewFromInt(100), "X")
	assert.NoError(t, err)

	assertDecimal(t, "100", b.Unrounded)
	assert.False(t, a.Unrounded.Equal(b.Unrounded))
	assertDecimal(t, "100", a.Result)
}

func TestConvertWithProvider(t *testing.T) {
	c, err := New(context.Background(),
		[]Currency{
			{Code: "ECB", Rule: "*(USD/EUR:ECB)"},
			{Code: "ANY", Rule: "*(USD/EUR)"},
			{Code: "BLANK", Rule: "*(USD/EUR:)"},
		},
		[]prices.Observation{
			price("USD", "EUR", "ECB", "2020-01-01", "2"),
			price("USD", "EUR", "", "2020-01-01", "3"),
		},
	)
	assert.NoError(t, err)

	on := newTestDate("2020-01-01")
	for code, want := range map[string]string{"ECB": "20", "ANY": "30", "BLANK": "30"} {
		got, err := c.Convert(on, decimal.NewFromInt(10), code)
		assert.NoError(t, err)
		assertDecimal(t, want, got)
	}
}

func TestConvertRoundsHalfToEven(t *testing.T) {
	tests := []struct {
		amount string
		want   string
	}{
		{amount: "1.23455", want: "1.2346"},
		{amount: "1.23445", want: "1.2344"},
		{amount: "1.23465", want: "1.2346"},
		{amount: "1.234551", want: "1.2346"},
		{amount: "1.234449", want: "1.2344"},
		{amount: "-1.23455", want: "-1.2346"},
		{amount: "-1.23445", want: "-1.2344"},
		{amount: "0.00005", want: "0"},
		{amount: "0.00015", want: "0.0002"},
	}

	c := newTestConverter(t)
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			got, err := c.Convert(newTestDate("2020-01-01"), mustParseDec(tt.amount), "EUR")
			assert.NoError(t, err)
			assertDecimal(t, tt.want, got)
		})
	}
}

func TestConvertUsesConfiguredPlaces(t *testing.T) {
	ctx := (&Config{Places: 2}).WithContext(context.Background())

	c, err := New(ctx, []Currency{{Code: "EUR"}}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int32(2), c.Config().Places)

	got, err := c.Convert(newTestDate("2020-01-01"), mustParseDec("1.125"), "EUR")
	assert.NoError(t, err)
	assertDecimal(t, "1.12", got)
}

func TestConvertMissingRule(t *testing.T) {
	c := newTestConverter(t)

	_, err := c.Convert(newTestDate("2020-01-01"), decimal.NewFromInt(1), "GBP")

	var missing *MissingRuleError
	assert.True(t, errors.As(err, &missing))
	assert.Equal(t, "GBP", missing.Symbol)
	assert.Contains(t, err.Error(), "GBP")
}

func TestConvertMissingSeries(t *testing.T) {
	c := newTestConverter(t,
		Currency{Code: "EUR"},
		Currency{Code: "GBP", Rule: "*(GBP/USD)*(USD/EUR)"},
	)

	_, err := c.Convert(newTestDate("2020-01-01"), decimal.NewFromInt(1), "GBP")

	var missing *MissingSeriesError
	assert.True(t, errors.As(err, &missing))
	assert.Equal(t, "GBP/USD", missing.Key)
	assert.Equal(t, "GBP", missing.Symbol)
}

func TestConvertDivisionByZero(t *testing.T) {
	c, err := New(context.Background(),
		[]Currency{{Code: "X", Rule: "/(Z/Q)"}, {Code: "Y", Rule: "*(Z/Q)"}},
		[]prices.Observation{price("Z", "Q", "", "2020-01-01", "0")},
	)
	assert.NoError(t, err)

	_, err = c.Convert(newTestDate("2020-01-02"), decimal.NewFromInt(1), "X")
	var zeroErr *DivisionByZeroError
	assert.True(t, errors.As(err, &zeroErr))
	assert.Equal(t, "2020-01-01", zeroErr.Observed.String())

	// Multiplying by a zero price is fine
	got, err := c.Convert(newTestDate("2020-01-02"), decimal.NewFromInt(1), "Y")
	assert.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestConvertIsIdempotent(t *testing.T) {
	c := newTestConverter(t)
	on := newTestDate("2020-02-15")
	amount := mustParseDec("123.456789")

	first, err := c.Convert(on, amount, "USD")
	assert.NoError(t, err)
	second, err := c.Convert(on, amount, "USD")
	assert.NoError(t, err)

	assert.True(t, first.Equal(second))
	assert.Equal(t, first.String(), second.String())
}

func TestConvertConcurrent(t *testing.T) {
	c := newTestConverter(t)
	on := newTestDate("2020-02-15")

	want, err := c.Convert(on, mustParseDec("99.99"), "USD")
	assert.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]string, 64)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := c.Convert(on, mustParseDec("99.99"), "USD")
			if err != nil {
				results[i] = err.Error()
				return
			}
			results[i] = got.String()
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, want.String(), r)
	}
}

func TestExplain(t *testing.T) {
	c, err := New(context.Background(),
		[]Currency{{Code: "X", Rule: "*(A/Q)/(B/Q:P)"}},
		[]prices.Observation{
			price("A", "Q", "", "2020-01-01", "2"),
			price("A", "Q", "", "2020-03-01", "5"),
			price("B", "Q", "P", "2020-02-01", "3"),
		},
	)
	assert.NoError(t, err)

	conv, err := c.Explain(newTestDate("2020-02-10"), decimal.NewFromInt(10), "X")
	assert.NoError(t, err)

	assert.Equal(t, "X", conv.Symbol)
	assert.Equal(t, "2020-02-10", conv.Date.String())
	assert.Equal(t, 2, len(conv.Steps))

	assert.Equal(t, "A/Q", conv.Steps[0].Step.Key())
	assert.Equal(t, "2020-01-01", conv.Steps[0].Observed.String())
	assertDecimal(t, "2", conv.Steps[0].Price)
	assertDecimal(t, "20", conv.Steps[0].Running)

	assert.Equal(t, rule.Divide, conv.Steps[1].Step.Op)
	assert.Equal(t, "2020-02-01", conv.Steps[1].Observed.String())
	assertDecimal(t, "3", conv.Steps[1].Price)

	assertDecimal(t, "6.6667", conv.Result)
	assert.True(t, conv.Result.GreaterThan(conv.Unrounded))

	direct, err := c.Convert(newTestDate("2020-02-10"), decimal.NewFromInt(10), "X")
	assert.NoError(t, err)
	assert.True(t, direct.Equal(conv.Result))
}

func TestExplainError(t *testing.T) {
	c := newTestConverter(t)

	conv, err := c.Explain(newTestDate("2019-01-01"), decimal.NewFromInt(1), "USD")
	assert.Error(t, err)
	assert.Zero(t, conv)
}

func TestNewSkipsEmptyCodes(t *testing.T) {
	c, err := New(context.Background(), []Currency{{Code: ""}, {Code: "", Rule: "garbage"}, {Code: "EUR"}}, nil)
	assert.NoError(t, err)
	assert.Equal(t, []string{"EUR"}, c.Currencies())
}

func TestNewRejectsDuplicateCodes(t *testing.T) {
	_, err := New(context.Background(), []Currency{{Code: "EUR"}, {Code: "EUR", Rule: "*(A/B)"}}, nil)

	var dup *DuplicateCurrencyError
	assert.True(t, errors.As(err, &dup))
	assert.Equal(t, "EUR", dup.Code)
}

func TestNewRejectsInvalidRule(t *testing.T) {
	_, err := New(context.Background(), []Currency{{Code: "USD", Rule: "*(USD/EUR)x"}}, nil)
	assert.Error(t, err)

	var invalid *InvalidRuleError
	assert.True(t, errors.As(err, &invalid))
	assert.Equal(t, "USD", invalid.Code)

	var syntaxErr *rule.SyntaxError
	assert.True(t, errors.As(err, &syntaxErr))
	assert.Equal(t, "*(USD/EUR)x", syntaxErr.Rule)
	assert.Contains(t, err.Error(), "*(USD/EUR)x")
}

func TestAccessors(t *testing.T) {
	c := newTestConverter(t)

	assert.Equal(t, []string{"EUR", "USD"}, c.Currencies())

	r, ok := c.Rule("USD")
	assert.True(t, ok)
	assert.Equal(t, "*(USD/EUR)", r.String())

	r, ok = c.Rule("EUR")
	assert.True(t, ok)
	assert.True(t, r.IsIdentity())

	_, ok = c.Rule("GBP")
	assert.False(t, ok)

	assert.Equal(t, 1, c.Index().Len())

	codes := c.Currencies()
	codes[0] = "tampered"
	assert.Equal(t, []string{"EUR", "USD"}, c.Currencies())
}

func TestValidate(t *testing.T) {
	c := newTestConverter(t,
		Currency{Code: "EUR"},
		Currency{Code: "USD", Rule: "*(USD/EUR)"},
		Currency{Code: "GBP", Rule: "*(GBP/USD)*(USD/EUR)"},
		Currency{Code: "CHF", Rule: "*(CHF/EUR:SNB)"},
	)

	errs := c.Validate()
	assert.Equal(t, 2, len(errs))
	assert.Equal(t, `no price series "CHF/EUR:SNB" for converting "CHF"`, errs[0].Error())
	assert.Equal(t, `no price series "GBP/USD" for converting "GBP"`, errs[1].Error())

	assert.Equal(t, 0, len(newTestConverter(t).Validate()))
}

func BenchmarkConvert(b *testing.B) {
	observations := make([]prices.Observation, 0, 3650*2)
	start := newTestDate("2010-01-01")
	for i := 0; i < 3650; i++ {
		on := start.AddDays(i).String()
		observations = append(observations,
			price("USD", "EUR", "", on, "1.1"),
			price("GBP", "USD", "", on, "1.3"),
		)
	}

	c, err := New(context.Background(),
		[]Currency{{Code: "EUR"}, {Code: "GBP", Rule: "*(GBP/USD)*(USD/EUR)"}},
		observations,
	)
	if err != nil {
		b.Fatal(err)
	}

	on := newTestDate("2015-06-15")
	amount := decimal.NewFromInt(1000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.Convert(on, amount, "GBP")
	}
}
