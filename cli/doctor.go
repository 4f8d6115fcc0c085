package cli

import (
	"fmt"
	"path/filepath"

	"github.com/alecthomas/kong"
	"github.com/alecthomas/repr"

	"github.com/robinvdvleuten/ratebook/loader"
	"github.com/robinvdvleuten/ratebook/parser"
	"github.com/robinvdvleuten/ratebook/rule"
)

// DoctorCmd provides doctor utilities for debugging records files.
type DoctorCmd struct {
	Lex   LexCmd   `cmd:"" help:"Show lexical tokens from a records file."`
	Rules RulesCmd `cmd:"" help:"Show the parsed conversion rules of a records file."`
}

// LexCmd shows lexical tokens from a records file.
type LexCmd struct {
	File FileOrStdin `help:"Records input filename (use '-' for stdin, or omit for stdin)." arg:"" optional:""`
}

// Run executes the lex command.
func (cmd *LexCmd) Run(ctx *kong.Context, globals *Globals) error {
	if err := cmd.File.EnsureContents(); err != nil {
		return err
	}

	content, err := cmd.File.SourceContent()
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	tokens, err := parser.NewLexer(content, cmd.File.Filename).ScanAll()
	if err != nil {
		return fmt.Errorf("lexer error: %w", err)
	}

	// Format: TYPE line:col "content"
	for _, token := range tokens {
		if token.Type == parser.EOF {
			continue
		}

		_, _ = fmt.Fprintf(ctx.Stdout, "%-10s %d:%d    %q\n",
			token.Type.String(),
			token.Line,
			token.Column,
			token.String(content))
	}

	return nil
}

// RulesCmd shows how each currency's conversion rule parses.
type RulesCmd struct {
	File FileOrStdin `help:"Records input filename (use '-' for stdin, or omit for stdin)." arg:"" optional:""`
}

// Run executes the rules command.
func (cmd *RulesCmd) Run(ctx *kong.Context, globals *Globals) error {
	if err := cmd.File.EnsureContents(); err != nil {
		return err
	}

	runCtx, report := globals.runContext(ctx, fmt.Sprintf("doctor.rules %s", filepath.Base(cmd.File.Filename)))
	defer report()

	sourceContent, err := cmd.File.SourceContent()
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	renderer := NewErrorRenderer(cmd.File.AbsoluteFilename(), sourceContent)

	result, err := cmd.File.Load(runCtx, loader.New(loader.WithFollowIncludes()))
	if err != nil {
		_, _ = fmt.Fprintln(ctx.Stderr, renderer.Render(err))
		return NewCommandError(1)
	}

	printer := repr.New(ctx.Stdout, repr.Indent("  "))
	invalid := 0
	for _, c := range result.Currencies {
		r, err := rule.Parse(c.Rule)
		if err != nil {
			invalid++
			_, _ = fmt.Fprintf(ctx.Stderr, "%s: %s\n", c.Code, renderer.Render(err))
			continue
		}

		if r.IsIdentity() {
			_, _ = fmt.Fprintf(ctx.Stdout, "%s (base currency)\n", c.Code)
			continue
		}
		_, _ = fmt.Fprintf(ctx.Stdout, "%s %s\n", c.Code, r)
		printer.Println(r.Steps())
	}

	if invalid > 0 {
		printError(ctx.Stderr, fmt.Sprintf("%d invalid rule(s)", invalid))
		return NewCommandError(1)
	}
	return nil
}
