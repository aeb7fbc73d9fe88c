// Provides the slog handler used by shipyard.
//
// The [Handler] buffers records until [Handler.Flush] is called, so records
// emitted before command-line flags are parsed are rendered with the final
// level, formatter and stream. After the flush, records are written
// immediately.
//
// Two formatters are available. [PrettyFormatter] renders colored level
// badges with lipgloss when writing to a terminal. [TextFormatter] renders
// plain key=value lines suitable for log files and CI output.
//
// Example usage:
//
//	handler := logging.NewHandler()
//	slog.SetDefault(slog.New(handler))
//
//	// ... parse flags ...
//
//	handler.SetLevel(slog.LevelDebug)
//	handler.SetFormatter(logging.NewPrettyFormatter(logging.IsTerminal(os.Stderr)))
//	handler.SetStream(os.Stderr)
//	handler.Flush()
package logging
