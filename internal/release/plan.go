package release

import (
	"fmt"
	"regexp"

	"github.com/cruciblehq/shipyard/internal/config"
	"github.com/cruciblehq/shipyard/internal/manifest"
)

// Where a platform's commands execute.
type Pipeline int

const (
	Direct   Pipeline = iota // One command at a time, on the host or in a container.
	Scripted                 // Accumulated into a script run on the build machine.
)

func (p Pipeline) String() string {
	switch p {
	case Direct:
		return "direct"
	case Scripted:
		return "scripted"
	}
	return fmt.Sprintf("Pipeline(%d)", int(p))
}

// Copies build outputs matching Pattern from Dir into Dest.
type Rule struct {
	Dir     string         // Output directory, relative to the source tree.
	Pattern *regexp.Regexp // File name filter.
	Dest    string         // Destination, relative to the published desktop tree.
}

// Everything that differs between platforms.
type Plan struct {
	Platform   config.Platform
	Pipeline   Pipeline
	Arch       string   // Published architecture directory; empty when unused.
	NativeArgs []string // Extra arguments for the native module build.
	BuildArgs  []string // Extra arguments for the packaging tool.
	SigningEnv string   // Variable carrying the signing passphrase; empty for unsigned builds.
	Rules      []Rule   // Outputs copied into the published tree.
	Marker     string   // Version marker path, relative to the published desktop tree.
	Debs       *Rule    // Packages ingested into the Debian repository.
}

var (
	dmgPattern      = regexp.MustCompile(`\.dmg$`)
	macZipPattern   = regexp.MustCompile(`-mac\.zip$`)
	exePattern      = regexp.MustCompile(`\.exe$`)
	nupkgPattern    = regexp.MustCompile(`\.nupkg$`)
	releasesPattern = regexp.MustCompile(`^RELEASES$`)
	debPattern      = regexp.MustCompile(`\.deb$`)
)

// Returns the plan for a platform.
func PlanFor(p config.Platform) (Plan, error) {
	switch p {
	case config.Mac:
		return Plan{
			Platform:   p,
			Pipeline:   Direct,
			BuildArgs:  []string{"--universal"},
			SigningEnv: "CSC_KEY_PASSWORD",
			Rules: []Rule{
				{Dir: "dist", Pattern: dmgPattern, Dest: "install/macos"},
				{Dir: "dist", Pattern: macZipPattern, Dest: "update/macos"},
			},
			Marker: "update/macos/latest",
		}, nil

	case config.Win64:
		return windowsPlan(p, "x64", "x86_64-pc-windows-msvc", "dist/squirrel-windows"), nil

	case config.Win32:
		return windowsPlan(p, "ia32", "i686-pc-windows-msvc", "dist/squirrel-windows-ia32"), nil

	case config.Linux:
		return Plan{
			Platform: p,
			Pipeline: Direct,
			Debs:     &Rule{Dir: "dist", Pattern: debPattern},
		}, nil
	}
	return Plan{}, fmt.Errorf("%w: %q", ErrUnknown, p)
}

func windowsPlan(p config.Platform, arch, target, out string) Plan {
	return Plan{
		Platform:   p,
		Pipeline:   Scripted,
		Arch:       arch,
		NativeArgs: []string{"--target", target},
		BuildArgs:  []string{"--win", "--" + arch},
		SigningEnv: "WIN_CSC_KEY_PASSWORD",
		Rules: []Rule{
			{Dir: out, Pattern: exePattern, Dest: "install/win32/" + arch},
			{Dir: out, Pattern: nupkgPattern, Dest: "update/win32/" + arch},
			{Dir: out, Pattern: releasesPattern, Dest: "update/win32/" + arch},
		},
	}
}

// Returns the build command sequence for a source at version.
//
// Dependencies are installed, native modules verified and compiled, the
// matching upstream release assets fetched, and finally the packaging
// tool runs against the generated configuration.
func (p Plan) Commands(version string) [][]string {
	native := append([]string{"yarn", "run", "build:native"}, p.NativeArgs...)
	build := append([]string{"yarn", "build", "--config", manifest.BuildConfigFile}, p.BuildArgs...)

	return [][]string{
		{"yarn", "install"},
		{"yarn", "run", "hak", "check"},
		native,
		{"yarn", "run", "fetch", "--noverify", "--cfgdir", "", "v" + version},
		build,
	}
}
