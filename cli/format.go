package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/robinvdvleuten/ratebook/formatter"
	"github.com/robinvdvleuten/ratebook/parser"
)

type FormatCmd struct {
	File           FileOrStdin `help:"Records input filename (use '-' for stdin, or omit for stdin)." arg:"" optional:""`
	CurrencyColumn int         `help:"Column for currency alignment (auto-calculated from content if 0)." default:"0"`
	StripComments  bool        `help:"Drop comment lines."`
	StripBlanks    bool        `help:"Drop blank lines between directives."`
}

func (cmd *FormatCmd) Run(ctx *kong.Context, globals *Globals) error {
	if err := cmd.File.EnsureContents(); err != nil {
		return err
	}

	if strings.EqualFold(filepath.Ext(cmd.File.Filename), ".csv") {
		return fmt.Errorf("%s: only records files can be formatted", cmd.File.Filename)
	}

	runCtx, report := globals.runContext(ctx, fmt.Sprintf("format %s", filepath.Base(cmd.File.Filename)))
	defer report()

	sourceContent, err := cmd.File.SourceContent()
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	filename := cmd.File.AbsoluteFilename()
	file, err := parser.ParseBytes(runCtx, filename, sourceContent)
	if err != nil {
		renderer := NewErrorRenderer(filename, sourceContent)
		_, _ = fmt.Fprint(ctx.Stderr, renderer.Render(err))
		_, _ = fmt.Fprintln(ctx.Stderr)
		printError(ctx.Stderr, "parse error")
		return NewCommandError(1)
	}

	f := formatter.New(
		formatter.WithCurrencyColumn(cmd.CurrencyColumn),
		formatter.WithPreserveComments(!cmd.StripComments),
		formatter.WithPreserveBlanks(!cmd.StripBlanks),
	)

	return f.Format(runCtx, file, sourceContent, ctx.Stdout)
}
