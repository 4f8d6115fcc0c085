package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"
	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/ratebook/converter"
	"github.com/robinvdvleuten/ratebook/date"
	"github.com/robinvdvleuten/ratebook/formatter"
	"github.com/robinvdvleuten/ratebook/loader"
)

type ConvertCmd struct {
	File    string   `help:"Records file to convert with." arg:"" type:"existingfile"`
	Args    []string `help:"Currency to convert from (prompted for when omitted on a terminal), followed by the amount." arg:"" name:"args"`
	Date    string   `help:"Conversion date as YYYY-MM-DD (default today)." short:"d"`
	Explain bool     `help:"Show every step of the conversion." short:"e"`
}

func (cmd *ConvertCmd) Run(ctx *kong.Context, globals *Globals) error {
	symbol, rawAmount, err := splitConvertArgs(cmd.Args)
	if err != nil {
		return err
	}

	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		return fmt.Errorf("invalid amount %q", rawAmount)
	}

	on := date.Today()
	if cmd.Date != "" {
		if on, err = date.Parse(cmd.Date); err != nil {
			return err
		}
	}

	runCtx, report := globals.runContext(ctx, fmt.Sprintf("convert %s", filepath.Base(cmd.File)))
	defer report()

	conv, err := buildConverter(runCtx, ctx, cmd.File)
	if err != nil {
		return err
	}

	if symbol == "" {
		symbol, err = promptSymbol(conv.Currencies())
		if errors.Is(err, errNotInteractive) {
			return fmt.Errorf("a currency symbol is required when not running in a terminal")
		}
		if err != nil {
			return err
		}
	}

	places := conv.Config().Places

	if !cmd.Explain {
		value, err := conv.Convert(on, amount, symbol)
		if err != nil {
			printError(ctx.Stderr, err.Error())
			return NewCommandError(1)
		}
		_, _ = fmt.Fprintln(ctx.Stdout, value.StringFixed(places))
		return nil
	}

	trace, err := conv.Explain(on, amount, symbol)
	if err != nil {
		printError(ctx.Stderr, err.Error())
		return NewCommandError(1)
	}

	target := symbol
	if n := len(trace.Steps); n > 0 {
		target = trace.Steps[n-1].Step.Currency
	}
	return formatter.ConversionTrace(trace, target).Render(ctx.Stdout)
}

// splitConvertArgs accepts "AMOUNT" or "SYMBOL AMOUNT".
func splitConvertArgs(args []string) (symbol, amount string, err error) {
	switch len(args) {
	case 1:
		return "", args[0], nil
	case 2:
		return args[0], args[1], nil
	default:
		return "", "", fmt.Errorf("expected [symbol] amount but got %d argument(s)", len(args))
	}
}

// buildConverter loads a records file with its includes and builds a
// converter, rendering load and build errors on stderr.
func buildConverter(runCtx context.Context, ctx *kong.Context, filename string) (*converter.Converter, error) {
	absFilename, err := filepath.Abs(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	result, err := loader.New(loader.WithFollowIncludes()).Load(runCtx, absFilename)
	if err == nil {
		var conv *converter.Converter
		if conv, err = result.Build(runCtx); err == nil {
			return conv, nil
		}
	}

	source, readErr := os.ReadFile(absFilename)
	if readErr != nil {
		return nil, err
	}
	_, _ = fmt.Fprintln(ctx.Stderr, NewErrorRenderer(absFilename, source).Render(err))
	return nil, NewCommandError(1)
}
