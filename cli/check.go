package cli

import (
	"fmt"
	"path/filepath"

	"github.com/alecthomas/kong"

	"github.com/robinvdvleuten/ratebook/loader"
)

type CheckCmd struct {
	File FileOrStdin `help:"Records input filename (use '-' for stdin, or omit for stdin)." arg:"" optional:""`
}

func (cmd *CheckCmd) Run(ctx *kong.Context, globals *Globals) error {
	if err := cmd.File.EnsureContents(); err != nil {
		return err
	}

	runCtx, report := globals.runContext(ctx, fmt.Sprintf("check %s", filepath.Base(cmd.File.Filename)))
	defer report()

	sourceContent, err := cmd.File.SourceContent()
	if err != nil {
		return fmt.Errorf("failed to read file for error context: %w", err)
	}
	renderer := NewErrorRenderer(cmd.File.AbsoluteFilename(), sourceContent)

	result, err := cmd.File.Load(runCtx, loader.New(loader.WithFollowIncludes()))
	if err != nil {
		_, _ = fmt.Fprintln(ctx.Stderr, renderer.Render(err))
		_, _ = fmt.Fprintln(ctx.Stderr)
		printError(ctx.Stderr, "parse error")
		return NewCommandError(1)
	}

	conv, err := result.Build(runCtx)
	if err != nil {
		_, _ = fmt.Fprintln(ctx.Stderr, renderer.Render(err))
		_, _ = fmt.Fprintln(ctx.Stderr)
		printError(ctx.Stderr, "invalid currency definitions")
		return NewCommandError(1)
	}

	if errs := conv.Validate(); len(errs) > 0 {
		_, _ = fmt.Fprintln(ctx.Stderr, renderer.RenderAll(errs))
		_, _ = fmt.Fprintln(ctx.Stderr)
		printError(ctx.Stderr, fmt.Sprintf("%d validation error(s) found", len(errs)))
		return NewCommandError(1)
	}

	idx := conv.Index()
	if idx.Dropped() > 0 {
		printWarning(ctx.Stderr, fmt.Sprintf("%d incomplete price record(s) ignored", idx.Dropped()))
	}

	printSuccess(ctx.Stdout, fmt.Sprintf("Check passed: %d currencies, %d price series, %d file(s)",
		len(conv.Currencies()), idx.Len(), len(result.Files())))

	return nil
}
