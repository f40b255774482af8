// Command slotgen generates availability offline from a session-type catalog file and a
// busy feed snapshot, and syncs catalog files into Postgres.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/md-rashed-zaman/slotboard/libs/runtime"
)

type Context struct {
	Out    io.Writer
	Logger *slog.Logger
}

var CLI struct {
	Version  kong.VersionFlag
	LogLevel string `help:"Log level (debug, info, warn, error)." env:"LOG_LEVEL" default:"warn"`

	Generate  GenerateCmd  `cmd:"" help:"Generate slots for every session type."`
	SyncTypes SyncTypesCmd `cmd:"" name:"sync-types" help:"Upsert a catalog file into the session_types table."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("slotgen"),
		kong.Description("Offline appointment slot generator"),
		kong.UsageOnError(),
		kong.Vars{"version": "v0.1.0"},
	)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: runtime.ParseLevel(CLI.LogLevel)}))
	if err := ctx.Run(&Context{Out: os.Stdout, Logger: logger}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
