package cli

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"

	"github.com/robinvdvleuten/ratebook/output"
	"github.com/robinvdvleuten/ratebook/telemetry"
)

var (
	Version   = ""
	CommitSHA = ""
)

// Globals defines global flags available to all commands.
type Globals struct {
	Telemetry bool   `help:"Show timing telemetry for operations."`
	LogLevel  string `help:"Log level (${enum})." default:"warn" enum:"debug,info,warn,error" env:"RATEBOOK_LOG_LEVEL"`
	LogFormat string `help:"Log output format (${enum})." default:"console" enum:"console,json" env:"RATEBOOK_LOG_FORMAT"`
}

type Commands struct {
	Globals

	Check   CheckCmd   `cmd:"" help:"Load a records file and check that every conversion rule can be served."`
	Convert ConvertCmd `cmd:"" help:"Convert an amount into the base currency."`
	Batch   BatchCmd   `cmd:"" help:"Convert the queries of a CSV file concurrently."`
	Prices  PricesCmd  `cmd:"" help:"Show the price series of a records file."`
	Format  FormatCmd  `cmd:"" help:"Format a records file to align prices."`
	Doctor  DoctorCmd  `cmd:"" help:"Doctor utilities for debugging records files."`
	Web     WebCmd     `cmd:"" help:"Start an HTTP API server."`
}

// runContext builds the context a command runs with: a logger on stderr and,
// with --telemetry, a timing collector whose root timer is named after the
// command. The returned function ends the root timer and prints the report;
// calling it more than once prints once.
func (g *Globals) runContext(ctx *kong.Context, name string) (context.Context, func()) {
	logger := newLogger(ctx.Stderr, g.LogLevel, g.LogFormat)
	runCtx := logger.WithContext(context.Background())

	if !g.Telemetry {
		return runCtx, func() {}
	}

	collector := telemetry.NewTimingCollector(telemetry.WithStyles(output.NewStyles(ctx.Stderr)))
	runCtx = telemetry.WithCollector(runCtx, collector)
	timer := collector.Start(name)

	var once sync.Once
	return runCtx, func() {
		once.Do(func() {
			timer.End()
			_, _ = fmt.Fprintln(ctx.Stderr)
			collector.Report(ctx.Stderr)
		})
	}
}

// newLogger builds the command logger. Unknown levels fall back to warn.
func newLogger(w io.Writer, level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.WarnLevel
	}

	if format == "json" {
		return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	}

	return zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.TimeOnly,
	}).Level(lvl).With().Timestamp().Logger()
}
