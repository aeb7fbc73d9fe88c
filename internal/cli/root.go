package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/cruciblehq/shipyard/internal"
	"github.com/cruciblehq/shipyard/internal/logging"
)

// Represents the root command.
var RootCmd struct {
	Quiet   bool       `short:"q" help:"Suppress informational output."`
	Verbose bool       `short:"v" help:"Enable verbose output."`
	Debug   bool       `short:"d" help:"Enable debug output."`
	Config  string     `short:"c" help:"Override the default configuration file." placeholder:"PATH" type:"path"`
	Socket  string     `short:"s" help:"Override the default Unix socket path." placeholder:"PATH"`
	Run     RunCmd     `cmd:"" help:"Build and publish a release now."`
	Daemon  DaemonCmd  `cmd:"" help:"Serve releases on a Unix socket."`
	Trigger TriggerCmd `cmd:"" help:"Ask the daemon to start a release."`
	Status  StatusCmd  `cmd:"" help:"Show the daemon's status."`
	Version VersionCmd `cmd:"" help:"Show version information."`
}

// Parses arguments, configures logging, and runs the selected subcommand.
func Execute() error {

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kongCtx := kong.Parse(&RootCmd,
		kong.Name(internal.Name),
		kong.Description("Builds, signs and publishes desktop application releases.\n\nPulls the published package tree, builds every configured platform, and pushes the tree back only when every build succeeded."),
		kong.UsageOnError(),
		kong.Vars{
			"version": internal.VersionString(),
		},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	configureLogger()

	return kongCtx.Run()
}

// Applies the final level, formatter and stream to the default handler
// and releases the records buffered since startup.
func configureLogger() {
	handler, ok := slog.Default().Handler().(*logging.Handler)
	if !ok {
		return
	}

	if RootCmd.Debug {
		internal.SetDebug(true)
	}
	if RootCmd.Quiet {
		internal.SetQuiet(true)
	}
	if RootCmd.Verbose {
		internal.SetVerbose(true)
	}

	formatter := logging.NewPrettyFormatter(logging.IsTerminal(os.Stderr))
	formatter.SetVerbose(internal.IsVerbose())

	handler.SetLevel(internal.LogLevel())
	handler.SetFormatter(formatter)
	handler.SetStream(os.Stderr)
	handler.Flush()
}
