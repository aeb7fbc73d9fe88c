// Parses flags and configures logging for the shipyard command.
//
// The command accepts the following global flags:
//
//	-q, --quiet     Suppress informational output.
//	-v, --verbose   Enable verbose output.
//	-d, --debug     Enable debug output.
//	-c, --config    Configuration file path.
//	-s, --socket    Unix socket path.
//
// Subcommands run a release in the foreground (run), serve releases from
// a daemon (daemon), talk to that daemon (trigger, status), or print the
// build version (version).
//
// Flags override build-time defaults set via linker flags. After parsing, the
// global logger is reconfigured to reflect the final level and verbosity before
// the selected subcommand runs.
package cli
