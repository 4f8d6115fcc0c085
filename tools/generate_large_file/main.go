// Large Records File Generator
//
// This tool generates a large records file for performance testing and profiling.
// It declares currencies with chained conversion rules and emits daily prices
// from several providers, so loading, indexing and converting all get exercised.
//
// Usage:
//
//	go run main.go > large.bean
//	go run main.go 20000000 > large.bean   # Specify target size in bytes
//	go run main.go 20000000 csv > large.csv # Emit a CSV price table instead
package main

import (
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

const (
	defaultTargetSize = 10 * 1024 * 1024 // 10MB
)

type instrument struct {
	symbol   string
	currency string
	provider string
	start    float64
}

var (
	// Prices quoted in USD directly, or via EUR.
	instruments = []instrument{
		{"EUR", "USD", "ECB", 1.12},
		{"GBP", "USD", "BOE", 1.27},
		{"CAD", "USD", "", 0.74},
		{"CHF", "EUR", "ECB", 0.92},
		{"SEK", "EUR", "ECB", 10.9},
		{"JPY", "USD", "", 109.5},
		{"AAPL", "USD", "NASDAQ", 75.0},
		{"VTI", "USD", "NYSE", 165.0},
		{"BTC", "USD", "", 7200.0},
	}

	// Conversion rules into USD.
	rules = map[string]string{
		"EUR":  "*(EUR/USD:ECB)",
		"GBP":  "*(GBP/USD:BOE)",
		"CAD":  "*(CAD/USD)",
		"CHF":  "/(CHF/EUR:ECB) *(EUR/USD:ECB)",
		"SEK":  "/(SEK/EUR:ECB) *(EUR/USD:ECB)",
		"JPY":  "/(JPY/USD)",
		"AAPL": "*(AAPL/USD:NASDAQ)",
		"VTI":  "*(VTI/USD:NYSE)",
		"BTC":  "*(BTC/USD)",
	}
)

func main() {
	targetSize := defaultTargetSize
	if len(os.Args) > 1 {
		if size, err := strconv.Atoi(os.Args[1]); err == nil {
			targetSize = size
		}
	}
	asCSV := len(os.Args) > 2 && os.Args[2] == "csv"

	startDate := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	bytesWritten := 0
	if asCSV {
		bytesWritten += write("date,symbol,currency,price,provider\n")
	} else {
		bytesWritten += writeHeader(startDate)
	}

	last := make([]float64, len(instruments))
	for i, inst := range instruments {
		last[i] = inst.start
	}

	priceCount := 0
	currentDate := startDate

	for bytesWritten < targetSize {
		for i, inst := range instruments {
			// Skip some days so lookups hit gaps.
			if rand.Intn(7) == 0 {
				continue
			}

			last[i] = walk(last[i])
			price := decimal.NewFromFloat(last[i]).Round(6).String()

			var output string
			if asCSV {
				output = fmt.Sprintf("%s,%s,%s,%s,%s\n", currentDate.Format(time.DateOnly), inst.symbol, inst.currency, price, inst.provider)
			} else {
				output = generatePriceDirective(currentDate, inst, price)
			}
			bytesWritten += write(output)
			priceCount++
		}

		currentDate = currentDate.AddDate(0, 0, 1)
	}

	fmt.Fprintf(os.Stderr, "\nGenerated %d bytes with %d prices\n", bytesWritten, priceCount)
}

func write(s string) int {
	fmt.Print(s)
	return len(s)
}

func writeHeader(startDate time.Time) int {
	n := write("; Large records file for performance testing\n")
	n += write(fmt.Sprintf("; Generated: %s\n\n", time.Now().Format("2006-01-02 15:04:05")))
	n += write("option \"precision\" \"4\"\n\n")

	dateStr := startDate.Format(time.DateOnly)
	n += write(fmt.Sprintf("%s commodity USD\n", dateStr))
	for _, inst := range instruments {
		n += write(fmt.Sprintf("%s commodity %s\n  convert: %q\n", dateStr, inst.symbol, rules[inst.symbol]))
	}
	return n + write("\n")
}

func generatePriceDirective(date time.Time, inst instrument, price string) string {
	output := fmt.Sprintf("%s price %s %s %s\n", date.Format(time.DateOnly), inst.symbol, price, inst.currency)
	if inst.provider != "" {
		output += fmt.Sprintf("  source: %q\n", inst.provider)
	}
	return output
}

// walk moves a price by up to one percent in either direction.
func walk(price float64) float64 {
	return price * (1 + (rand.Float64()-0.5)/50)
}
