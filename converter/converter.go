// Package converter converts amounts between currencies as of a given date.
//
// Every currency carries a conversion rule (see package rule) describing how
// its amounts turn into the target currency through a chain of prices. The
// prices come from a step-function index (see package prices): on any day the
// price of an instrument is the last one observed on or before that day.
//
// Example:
//
//	c, err := converter.New(ctx,
//		[]converter.Currency{{Code: "USD"}, {Code: "EUR", Rule: "*(EUR/USD)"}},
//		observations,
//	)
//	usd, err := c.Convert(date.MustParse("2020-01-15"), decimal.NewFromInt(100), "EUR")
//
// A Converter never changes after New returns, so a single instance can
// serve concurrent Convert calls without locking.
package converter

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/robinvdvleuten/ratebook/date"
	"github.com/robinvdvleuten/ratebook/prices"
	"github.com/robinvdvleuten/ratebook/rule"
	"github.com/robinvdvleuten/ratebook/telemetry"
)

// Currency defines how amounts in a currency convert to the target currency.
// An empty Rule means the currency is the target itself.
type Currency struct {
	Code string
	Rule string
}

// Converter answers point-in-time conversion queries.
type Converter struct {
	rules  map[string]rule.Rule
	codes  []string // Sorted ascending
	index  *prices.Index
	config Config
}

// New compiles the currency rules and indexes the price observations.
//
// Currencies with an empty code are skipped. Observations missing a symbol,
// currency, date or price are skipped. Construction fails on the first rule
// that does not parse and on duplicated currency codes.
//
// The context provides the *Config (see ConfigFromContext), the zerolog
// logger and the telemetry collector.
func New(ctx context.Context, currencies []Currency, observations []prices.Observation) (*Converter, error) {
	timer := telemetry.FromContext(ctx).Start("converter.build")
	defer timer.End()

	log := zerolog.Ctx(ctx)

	rulesTimer := timer.Child("converter.compile_rules")
	rules, err := compileRules(currencies)
	rulesTimer.End()
	if err != nil {
		return nil, err
	}

	indexTimer := timer.Child("converter.index_prices")
	idx := prices.Build(observations)
	indexTimer.End()

	if n := idx.Dropped(); n > 0 {
		log.Debug().Int("dropped", n).Msg("skipped incomplete price observations")
	}

	codes := maps.Keys(rules)
	slices.Sort(codes)

	c := &Converter{
		rules:  rules,
		codes:  codes,
		index:  idx,
		config: *ConfigFromContext(ctx),
	}

	log.Debug().
		Int("currencies", len(codes)).
		Int("series", idx.Len()).
		Int32("places", c.config.Places).
		Msg("converter built")

	return c, nil
}

func compileRules(currencies []Currency) (map[string]rule.Rule, error) {
	rules := make(map[string]rule.Rule, len(currencies))

	for _, cur := range currencies {
		if cur.Code == "" {
			continue
		}
		if _, exists := rules[cur.Code]; exists {
			return nil, &DuplicateCurrencyError{Code: cur.Code}
		}

		r, err := rule.Parse(cur.Rule)
		if err != nil {
			return nil, &InvalidRuleError{Code: cur.Code, Underlying: err}
		}
		rules[cur.Code] = r
	}

	return rules, nil
}

// Convert converts amount, denominated in symbol, into the target currency
// using the prices in effect on the given day. The result is rounded half to
// even to the configured number of places (4 by default).
func (c *Converter) Convert(on date.Date, amount decimal.Decimal, symbol string) (decimal.Decimal, error) {
	result, err := c.convert(on, amount, symbol, nil)
	if err != nil {
		return decimal.Zero, err
	}
	return result.RoundBank(c.config.Places), nil
}

// Explain performs the same conversion as Convert and reports every step
// taken along the way.
func (c *Converter) Explain(on date.Date, amount decimal.Decimal, symbol string) (*Conversion, error) {
	conv := &Conversion{
		Symbol: symbol,
		Date:   on,
		Amount: amount,
	}

	unrounded, err := c.convert(on, amount, symbol, &conv.Steps)
	if err != nil {
		return nil, err
	}

	conv.Unrounded = unrounded
	conv.Result = unrounded.RoundBank(c.config.Places)
	return conv, nil
}

// convert folds amount through the rule of symbol. When trace is non-nil every
// applied step is appended to it.
func (c *Converter) convert(on date.Date, amount decimal.Decimal, symbol string, trace *[]AppliedStep) (decimal.Decimal, error) {
	r, ok := c.rules[symbol]
	if !ok {
		return decimal.Zero, &MissingRuleError{Symbol: symbol}
	}

	result := amount
	for _, step := range r.All() {
		key := step.Key()

		series, ok := c.index.Series(key)
		if !ok {
			return decimal.Zero, &MissingSeriesError{Symbol: symbol, Key: key}
		}

		point, ok := series.Lookup(on)
		if !ok {
			return decimal.Zero, &DateOutOfRangeError{
				Symbol: symbol,
				Key:    key,
				Date:   on,
				First:  series.First().Date,
			}
		}

		switch step.Op {
		case rule.Multiply:
			result = result.Mul(point.Price)
		case rule.Divide:
			if point.Price.IsZero() {
				return decimal.Zero, &DivisionByZeroError{
					Symbol:   symbol,
					Key:      key,
					Date:     on,
					Observed: point.Date,
				}
			}
			result = result.Div(point.Price)
		}

		if trace != nil {
			*trace = append(*trace, AppliedStep{
				Step:     step,
				Observed: point.Date,
				Price:    point.Price,
				Running:  result,
			})
		}
	}

	return result, nil
}

// Currencies returns the codes of all known currencies in ascending order.
func (c *Converter) Currencies() []string {
	return slices.Clone(c.codes)
}

// Rule returns the compiled rule of a currency.
func (c *Converter) Rule(code string) (rule.Rule, bool) {
	r, ok := c.rules[code]
	return r, ok
}

// Index returns the price index backing the converter.
func (c *Converter) Index() *prices.Index {
	return c.index
}

// Config returns a copy of the settings the converter was built with.
func (c *Converter) Config() Config {
	return c.config
}

// Validate reports every rule step whose instrument has no price series.
// Such steps make Convert fail for their currency on any date; Validate lets
// callers detect them up front.
func (c *Converter) Validate() []error {
	var errs []error
	for _, code := range c.codes {
		for _, step := range c.rules[code].All() {
			if _, ok := c.index.Series(step.Key()); !ok {
				errs = append(errs, &MissingSeriesError{Symbol: code, Key: step.Key()})
			}
		}
	}
	return errs
}
