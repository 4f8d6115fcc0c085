package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/robinvdvleuten/ratebook/formatter"
)

type PricesCmd struct {
	File string   `help:"Records file to read prices from." arg:"" type:"existingfile"`
	Keys []string `help:"Instrument keys (SYMBOL/CURRENCY[:PROVIDER]) to list the points of." arg:"" optional:""`
}

func (cmd *PricesCmd) Run(ctx *kong.Context, globals *Globals) error {
	runCtx, report := globals.runContext(ctx, fmt.Sprintf("prices %s", filepath.Base(cmd.File)))
	defer report()

	conv, err := buildConverter(runCtx, ctx, cmd.File)
	if err != nil {
		return err
	}
	idx := conv.Index()

	if len(cmd.Keys) == 0 {
		if idx.Len() == 0 {
			printInfof(ctx.Stderr, "No price series in %s", pathStyle.Render(cmd.File))
			return nil
		}
		return formatter.SeriesSummary(idx).Render(ctx.Stdout)
	}

	table, missing := formatter.SeriesPoints(idx, cmd.Keys...)
	if table.Len() > 0 {
		if err := table.Render(ctx.Stdout); err != nil {
			return err
		}
	}
	if len(missing) > 0 {
		printError(ctx.Stderr, fmt.Sprintf("no price series for %s", strings.Join(missing, ", ")))
		return NewCommandError(1)
	}
	return nil
}
