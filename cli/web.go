package cli

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/robinvdvleuten/ratebook/web"
)

type WebCmd struct {
	File  string `help:"Records file to serve." arg:"" type:"existingfile"`
	Host  string `help:"Address to bind to." default:"127.0.0.1"`
	Port  int    `help:"Port to listen on." default:"8080" env:"RATEBOOK_PORT"`
	Watch bool   `help:"Rebuild the converter when the records file or its includes change." short:"w"`
}

func (cmd *WebCmd) Run(ctx *kong.Context, globals *Globals) error {
	runCtx, report := globals.runContext(ctx, fmt.Sprintf("web %s", filepath.Base(cmd.File)))
	defer report()

	runCtx, stop := signal.NotifyContext(runCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	recordsFile, err := filepath.Abs(cmd.File)
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	version := Version
	if version == "" {
		version = "dev"
	}
	commitSHA := CommitSHA
	if commitSHA == "" {
		commitSHA = "local"
	}

	server := web.NewWithVersion(cmd.Port, recordsFile, version, commitSHA)
	server.Host = cmd.Host
	server.WatchEnabled = cmd.Watch

	printInfof(ctx.Stdout, "Starting server on %s:%d", server.Host, cmd.Port)
	printInfof(ctx.Stdout, "Serving records: %s", pathStyle.Render(recordsFile))

	if cmd.Watch {
		printInfof(ctx.Stdout, "Watching for changes")
	}

	return server.Start(runCtx)
}
