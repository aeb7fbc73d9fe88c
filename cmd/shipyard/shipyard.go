package main

import (
	"log/slog"
	"os"

	"github.com/cruciblehq/shipyard/internal"
	"github.com/cruciblehq/shipyard/internal/cli"
	"github.com/cruciblehq/shipyard/internal/logging"
)

func main() {
	handler := logging.NewHandler()
	handler.SetLevel(internal.LogLevel())

	// Records are held until cli.Execute has parsed the flags.
	slog.SetDefault(slog.New(handler.WithGroup(internal.Name)))

	slog.Debug("starting", "version", internal.VersionString(), "pid", os.Getpid(), "args", os.Args[1:])

	if err := cli.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}
