package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/ratebook/converter"
	"github.com/robinvdvleuten/ratebook/date"
	"github.com/robinvdvleuten/ratebook/parser"
	"github.com/robinvdvleuten/ratebook/prices"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	assert.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const mainRecords = `
option "precision" "2"

2020-01-01 commodity USD
2020-01-01 commodity EUR
  convert: "*(EUR/USD:ECB)"

2020-01-01 price EUR 1.10 USD
  source: "ECB"
2020-02-01 price EUR 1.20 USD
  source: "ECB"
`

func TestLoadSingleFile(t *testing.T) {
	dir := t.TempDir()
	mainFile := writeFile(t, dir, "main.bean", mainRecords)

	absMainFile, err := filepath.Abs(mainFile)
	assert.NoError(t, err)

	result, err := New().Load(context.Background(), mainFile)
	assert.NoError(t, err)

	assert.Equal(t, absMainFile, result.Root)
	assert.Equal(t, 0, len(result.Includes))
	assert.Equal(t, []converter.Currency{
		{Code: "USD"},
		{Code: "EUR", Rule: "*(EUR/USD:ECB)"},
	}, result.Currencies)
	assert.Equal(t, []prices.Observation{
		{Symbol: "EUR", Currency: "USD", Provider: "ECB", Date: date.New(2020, 1, 1), Price: decimal.NewNullDecimal(decimal.RequireFromString("1.10"))},
		{Symbol: "EUR", Currency: "USD", Provider: "ECB", Date: date.New(2020, 2, 1), Price: decimal.NewNullDecimal(decimal.RequireFromString("1.20"))},
	}, result.Observations)
	assert.Equal(t, map[string][]string{"precision": {"2"}}, result.Options)
}

func TestLoadBuild(t *testing.T) {
	dir := t.TempDir()
	mainFile := writeFile(t, dir, "main.bean", mainRecords)

	ctx := context.Background()
	result, err := New().Load(ctx, mainFile)
	assert.NoError(t, err)

	conv, err := result.Build(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int32(2), conv.Config().Places)

	got, err := conv.Convert(date.New(2020, 1, 15), decimal.RequireFromString("10.005"), "EUR")
	assert.NoError(t, err)
	// 10.005 * 1.10 = 11.0055, half to even at two places
	assert.Equal(t, "11.01", got.String())
}

func TestLoadBuildInvalidPrecision(t *testing.T) {
	dir := t.TempDir()
	mainFile := writeFile(t, dir, "main.bean", `option "precision" "many"`)

	ctx := context.Background()
	result, err := New().Load(ctx, mainFile)
	assert.NoError(t, err)

	_, err = result.Build(ctx)
	assert.Error(t, err)
}

func TestLoadWithIncludeNoFollow(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "rates.bean", "2020-03-01 price EUR 1.15 USD\n")
	mainFile := writeFile(t, dir, "main.bean", "include \"rates.bean\"\n"+mainRecords)

	result, err := New().Load(context.Background(), mainFile)
	assert.NoError(t, err)

	assert.Equal(t, 2, len(result.Observations))
	assert.Equal(t, 1, len(result.File.Includes))
	assert.Equal(t, "rates.bean", result.File.Includes[0].Filename)
	assert.Equal(t, 0, len(result.Includes))
}

func TestLoadWithIncludeFollow(t *testing.T) {
	dir := t.TempDir()
	ratesFile := writeFile(t, dir, "rates/2020.bean", `
option "precision" "6"
2020-03-01 price EUR 1.15 USD
  source: "ECB"
`)
	mainFile := writeFile(t, dir, "main.bean", "include \"rates/2020.bean\"\n"+mainRecords)

	result, err := New(WithFollowIncludes()).Load(context.Background(), mainFile)
	assert.NoError(t, err)

	absRates, err := filepath.Abs(ratesFile)
	assert.NoError(t, err)

	assert.Equal(t, []string{absRates}, result.Includes)
	assert.Equal(t, 0, len(result.File.Includes))
	assert.Equal(t, 3, len(result.Observations))
	// Sorted by date after merging.
	assert.Equal(t, date.New(2020, 3, 1), result.Observations[2].Date)
	// The root file's option comes first.
	assert.Equal(t, []string{"2", "6"}, result.Options["precision"])
	assert.Equal(t, append([]string{result.Root}, absRates), result.Files())
}

func TestLoadIncludeDeduplication(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "rates.bean", "2020-03-01 price EUR 1.15 USD\n")
	writeFile(t, dir, "more.bean", "include \"rates.bean\"\n")
	mainFile := writeFile(t, dir, "main.bean", `
include "rates.bean"
include "more.bean"
include "./rates.bean"
`)

	result, err := New(WithFollowIncludes()).Load(context.Background(), mainFile)
	assert.NoError(t, err)

	assert.Equal(t, 1, len(result.Observations))
	assert.Equal(t, 2, len(result.Includes))
}

func TestLoadIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.bean", "include \"b.bean\"\n2020-01-01 commodity USD\n")
	writeFile(t, dir, "b.bean", "include \"a.bean\"\n2020-01-01 commodity EUR\n  convert: \"*(EUR/USD)\"\n")

	result, err := New(WithFollowIncludes()).Load(context.Background(), filepath.Join(dir, "a.bean"))
	assert.NoError(t, err)

	assert.Equal(t, 2, len(result.Currencies))
	assert.Equal(t, 1, len(result.Includes))
}

func TestLoadMissingInclude(t *testing.T) {
	dir := t.TempDir()
	mainFile := writeFile(t, dir, "main.bean", "\ninclude \"missing.bean\"\n")

	_, err := New(WithFollowIncludes()).Load(context.Background(), mainFile)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Contains(t, err.Error(), "main.bean:2:1")
}

func TestLoadParseErrorInInclude(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.bean", "2020-01-01 price EUR USD\n")
	mainFile := writeFile(t, dir, "main.bean", "include \"broken.bean\"\n")

	_, err := New(WithFollowIncludes()).Load(context.Background(), mainFile)

	var perr *parser.ParseError
	assert.True(t, errors.As(err, &perr))
	assert.Equal(t, "broken.bean", filepath.Base(perr.Pos.Filename))
	assert.Equal(t, 1, perr.Pos.Line)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := New().Load(context.Background(), filepath.Join(t.TempDir(), "nope.bean"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadCancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "rates.bean", "")
	mainFile := writeFile(t, dir, "main.bean", "include \"rates.bean\"\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(WithFollowIncludes()).Load(ctx, mainFile)
	assert.IsError(t, err, context.Canceled)
}

func TestLoadBytes(t *testing.T) {
	result, err := New().LoadBytes(context.Background(), "inline.bean", []byte(mainRecords))
	assert.NoError(t, err)

	assert.Equal(t, 2, len(result.Currencies))
	assert.Equal(t, "inline.bean", filepath.Base(result.Root))
}
