package internal

import (
	"fmt"
	"runtime"
	"strings"
)

const (

	// Program name, used for logging groups and default directory names.
	Name = "shipyard"

	// String to indicate an undefined variable
	defaultUndefined = "(undefined)"

	// String to indicate a local (non-pipeline) build
	defaultLocalBuild = "(local)"

	// Main branch name used in version strings
	mainBranch = "main"
)

var (
	version   = "" // Version number (e.g., "1.2.3")
	stage     = "" // Development stage or git branch (e.g., "staging", "main")
	gitCommit = "" // Git commit hash (e.g., "a1b2c3d4")

	rawQuiet   = "false" // Whether to enable quiet mode
	rawDebug   = "false" // Whether to enable debug mode
	rawVerbose = "false" // Whether to enable verbose logging
)

// Returns the current version.
//
// If the version is not set, returns "(undefined)". A leading "v" or "V" is
// stripped.
func Version() string {
	v := strings.TrimSpace(version)
	if v == "" {
		return defaultUndefined
	}

	v = strings.ToLower(v)
	v = strings.TrimPrefix(v, "v")

	return v
}

// Returns the development stage (e.g., "alpha").
func Stage() string {
	s := strings.TrimSpace(stage)
	if s == "" {
		return defaultUndefined
	}
	return strings.ToLower(s)
}

// Returns the git commit hash, or "(undefined)".
func GitCommit() string {
	c := strings.TrimSpace(gitCommit)
	if c == "" {
		return defaultUndefined
	}
	return c
}

// Returns the build architecture.
func Arch() string {
	return runtime.GOARCH
}

// Returns true if this is a local (non-pipeline) build.
//
// Pipeline builds set version, commit and stage via linker flags; a build
// missing any of them is local.
func IsLocal() bool {
	return strings.TrimSpace(version) == "" ||
		strings.TrimSpace(gitCommit) == "" ||
		strings.TrimSpace(stage) == ""
}

// Returns a detailed version string.
//
// Local builds report "(local)". Pipeline builds report
// "<version>+<stage> <git-commit> [<arch>]", omitting the stage on main.
func VersionString() string {
	if IsLocal() {
		return defaultLocalBuild
	}

	s := Stage()
	if s == mainBranch {
		s = ""
	} else {
		s = "+" + s
	}

	return fmt.Sprintf("%s%s %s [%s]", Version(), s, GitCommit(), Arch())
}
