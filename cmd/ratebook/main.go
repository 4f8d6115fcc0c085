package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/robinvdvleuten/ratebook/cli"
)

var app struct {
	Version kong.VersionFlag `help:"Show version information"`
	cli.Commands
}

func main() {
	// A missing .env file is fine; flags and the environment still apply.
	_ = godotenv.Load()

	ctx := kong.Parse(&app,
		kong.Vars{
			"version": buildVersion(),
		},
		kong.Name("ratebook"),
		kong.Description("Convert amounts between currencies using dated price records."),
		kong.UsageOnError(),
		kong.Bind(&app.Globals),
	)

	err := ctx.Run()

	var cmdErr *cli.CommandError
	if errors.As(err, &cmdErr) {
		os.Exit(cmdErr.ExitCode())
	}
	ctx.FatalIfErrorf(err)
}

func buildVersion() string {
	if cli.Version == "" {
		cli.Version = "dev"
	}
	if cli.CommitSHA == "" {
		return cli.Version
	}
	return fmt.Sprintf("%s (%s)", cli.Version, cli.CommitSHA)
}
