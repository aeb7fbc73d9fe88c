package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (

	// Name used for directory and file naming.
	programName = "shipyard"

	// Default permission mode for directories.
	DefaultDirMode os.FileMode = 0755

	// Default permission mode for files.
	DefaultFileMode os.FileMode = 0644
)

// Path to the directory for runtime files (sockets, PIDs).
//
//	Linux:   $XDG_RUNTIME_DIR/shipyard or /run/user/<uid>/shipyard
//	macOS:   ~/Library/Caches/shipyard/run
func Runtime() string {
	if xdg.RuntimeDir != "" {
		return filepath.Join(xdg.RuntimeDir, programName)
	}
	return filepath.Join(xdg.CacheHome, programName, "run")
}

// Default path to the daemon's Unix domain socket.
func Socket() string {
	return filepath.Join(Runtime(), "shipyard.sock")
}

// Default path to the daemon's PID file.
func PIDFile() string {
	return filepath.Join(Runtime(), "shipyard.pid")
}

// Default path to the configuration file.
//
//	Linux:   $XDG_CONFIG_HOME/shipyard/config.yaml
//	macOS:   ~/Library/Application Support/shipyard/config.yaml
func ConfigFile() string {
	return filepath.Join(xdg.ConfigHome, programName, "config.yaml")
}

// Default root for build working directories and the local published tree.
//
//	Linux:   $XDG_DATA_HOME/shipyard
//	macOS:   ~/Library/Application Support/shipyard
func WorkRoot() string {
	return filepath.Join(xdg.DataHome, programName)
}
