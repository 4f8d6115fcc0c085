package parser

import (
	"context"
	"errors"
	"testing"
)

func FuzzParser(f *testing.F) {
	seeds := []string{
		"2020-01-01 commodity USD",
		"2020-01-01 commodity EUR\n  convert: \"*(EUR/USD:ECB)\"",
		"2020-01-01 price EUR 1.10 USD",
		"2020-01-01 price EUR 1.10 USD\n  source: \"ECB\"",
		"option \"precision\" \"4\"",
		"include \"rates.bean\"",
		"; comment only\n",
		"  \n\n  \n",
		"",
		"2020-13-01 commodity EUR",
		"2020-01-01 price EUR USD",
		"2020-01-01 commodity EUR extra",
	}

	for _, seed := range seeds {
		f.Add([]byte(seed))
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		file, err := ParseBytes(context.Background(), "fuzz", data)
		if err != nil {
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Errorf("expected *ParseError, got %T: %v", err, err)
			}
			return
		}
		if file == nil {
			t.Error("ParseBytes returned nil file with nil error")
		}
	})
}
