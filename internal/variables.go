package internal

import (
	"log/slog"
	"strconv"
	"sync/atomic"
)

var (
	quietMode   atomic.Bool // Suppresses informational output.
	debugMode   atomic.Bool // Enables debug records.
	verboseMode atomic.Bool // Adds timestamps and groups to log records.
)

// Seeds the modes from linker flags. Unparseable values leave the mode off.
func init() {
	if v, err := strconv.ParseBool(rawQuiet); err == nil {
		quietMode.Store(v)
	}
	if v, err := strconv.ParseBool(rawDebug); err == nil {
		debugMode.Store(v)
	}
	if v, err := strconv.ParseBool(rawVerbose); err == nil {
		verboseMode.Store(v)
	}
}

// Enables or disables quiet mode.
func SetQuiet(enabled bool) {
	quietMode.Store(enabled)
}

// Returns true if quiet mode is enabled.
func IsQuiet() bool {
	return quietMode.Load()
}

// Enables or disables debug mode.
func SetDebug(enabled bool) {
	debugMode.Store(enabled)
}

// Returns true if debug mode is enabled.
func IsDebug() bool {
	return debugMode.Load()
}

// Enables or disables verbose logging.
func SetVerbose(enabled bool) {
	verboseMode.Store(enabled)
}

// Returns true if verbose logging is enabled.
func IsVerbose() bool {
	return verboseMode.Load()
}

// Returns the log level implied by the current modes.
//
// Debug wins over quiet.
func LogLevel() slog.Level {
	if IsDebug() {
		return slog.LevelDebug
	}
	if IsQuiet() {
		return slog.LevelWarn
	}
	return slog.LevelInfo
}
