package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cruciblehq/shipyard/internal/paths"
	"gopkg.in/yaml.v3"
)

// Default values applied to empty fields.
const (
	DefaultProduct          = "element.io"
	DefaultBranch           = "develop"
	DefaultSourceURL        = "https://github.com/element-hq/element-desktop.git"
	DefaultLinuxProductName = "Element"
	DefaultControlTemplate  = "element.io/nightly/control.template"
	DefaultContainerAddress = "/run/containerd/containerd.sock"
	DefaultContainerNS      = "shipyard"
	DefaultContainerImage   = "docker.io/library/node:20-bullseye"
	DefaultContainerArch    = "linux/amd64"
	DefaultVMUser           = "builder"
	DefaultGuestShareDir    = `Z:\`
	DefaultBootTimeout      = 5 * time.Minute
	DefaultCredentialSource = "env"
	DefaultCredentialName   = "SHIPYARD_SIGNING_PASSPHRASE"
)

// Models the configuration file.
type Config struct {
	Product            string            `yaml:"product"`              // Product domain, names the published tree (packages.<product>).
	Branch             string            `yaml:"branch"`               // Source branch or tag to build.
	Platforms          []Platform        `yaml:"platforms"`            // Platforms to build, in order.
	WorkRoot           string            `yaml:"work_root"`            // Root for build directories and the local published tree.
	KeepFailedWorkdirs bool              `yaml:"keep_failed_workdirs"` // Leave a failed platform's build directory in place.
	LinuxProductName   string            `yaml:"linux_product_name"`   // Product name forced for Linux packages.
	Source             SourceConfig      `yaml:"source"`
	Mirror             MirrorConfig      `yaml:"mirror"`
	Debian             DebianConfig      `yaml:"debian"`
	Container          ContainerConfig   `yaml:"container"`
	VM                 VMConfig          `yaml:"vm"`
	Credentials        CredentialsConfig `yaml:"credentials"`
	Schedule           ScheduleConfig    `yaml:"schedule"`
}

// Application source repository.
type SourceConfig struct {
	URL   string `yaml:"url"`   // Clone URL.
	Depth int    `yaml:"depth"` // Clone depth; 0 clones full history.
}

// Remote mirror holding the published tree.
type MirrorConfig struct {
	Root     string `yaml:"root"`     // rsync destination prefix, s3://bucket/prefix, or a local directory.
	Region   string `yaml:"region"`   // S3 region.
	Endpoint string `yaml:"endpoint"` // S3 endpoint override.
}

// Debian packaging.
type DebianConfig struct {
	ControlTemplate string `yaml:"control_template"` // Control file template, relative to the source tree.
}

// Containerized backend used for Linux builds.
type ContainerConfig struct {
	Enabled   bool   `yaml:"enabled"`   // Build Linux in a container instead of on the host.
	Address   string `yaml:"address"`   // containerd socket.
	Namespace string `yaml:"namespace"` // containerd namespace.
	Image     string `yaml:"image"`     // Build image reference.
	Platform  string `yaml:"platform"`  // OCI platform of the build image.
}

// Remote Windows build machine.
type VMConfig struct {
	Name          string        `yaml:"name"`            // VirtualBox machine name.
	SSHAddr       string        `yaml:"ssh_addr"`        // host:port of the guest's SSH server.
	SSHUser       string        `yaml:"ssh_user"`        // Guest user.
	SSHKey        string        `yaml:"ssh_key"`         // Private key file.
	KnownHosts    string        `yaml:"known_hosts"`     // known_hosts file pinning the guest key.
	ShareDir      string        `yaml:"share_dir"`       // Host directory shared with the guest.
	GuestShareDir string        `yaml:"guest_share_dir"` // Guest path of the shared directory.
	BootTimeout   time.Duration `yaml:"boot_timeout"`    // How long to wait for SSH after boot.
}

// Signing credential source.
type CredentialsConfig struct {
	Source   string `yaml:"source"`   // env, file or secretsmanager.
	Name     string `yaml:"name"`     // Variable name, file path or secret id.
	Region   string `yaml:"region"`   // Secrets Manager region.
	Endpoint string `yaml:"endpoint"` // Secrets Manager endpoint override.
}

// Daemon schedule.
type ScheduleConfig struct {
	At string `yaml:"at"` // Local time of the nightly run (HH:MM). Empty disables the schedule.
}

// Returns a configuration with every default applied.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Loads the configuration at path.
//
// An empty path loads [paths.ConfigFile], tolerating its absence. An
// explicit path must exist. Defaults are applied to empty fields; the
// result is not validated.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = paths.ConfigFile()
	}

	c := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrRead, path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		// Defaults only.
	default:
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}

	c.applyDefaults()
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Product == "" {
		c.Product = DefaultProduct
	}
	if c.Branch == "" {
		c.Branch = DefaultBranch
	}
	if c.Platforms == nil {
		c.Platforms = AllPlatforms()
	}
	if c.WorkRoot == "" {
		c.WorkRoot = paths.WorkRoot()
	}
	if c.LinuxProductName == "" {
		c.LinuxProductName = DefaultLinuxProductName
	}
	if c.Source.URL == "" {
		c.Source.URL = DefaultSourceURL
	}
	if c.Debian.ControlTemplate == "" {
		c.Debian.ControlTemplate = DefaultControlTemplate
	}
	if c.Container.Address == "" {
		c.Container.Address = DefaultContainerAddress
	}
	if c.Container.Namespace == "" {
		c.Container.Namespace = DefaultContainerNS
	}
	if c.Container.Image == "" {
		c.Container.Image = DefaultContainerImage
	}
	if c.Container.Platform == "" {
		c.Container.Platform = DefaultContainerArch
	}
	if c.VM.SSHUser == "" {
		c.VM.SSHUser = DefaultVMUser
	}
	if c.VM.GuestShareDir == "" {
		c.VM.GuestShareDir = DefaultGuestShareDir
	}
	if c.VM.BootTimeout == 0 {
		c.VM.BootTimeout = DefaultBootTimeout
	}
	if c.Credentials.Source == "" {
		c.Credentials.Source = DefaultCredentialSource
	}
	if c.Credentials.Name == "" {
		c.Credentials.Name = DefaultCredentialName
	}
}

// Checks the configuration, reporting every problem found.
func (c *Config) Validate() error {
	var errs []error

	if c.Mirror.Root == "" {
		errs = append(errs, errors.New("mirror.root is required"))
	}

	seen := make(map[Platform]bool, len(c.Platforms))
	for _, p := range c.Platforms {
		if _, err := ParsePlatform(string(p)); err != nil {
			errs = append(errs, fmt.Errorf("platforms: %w", err))
			continue
		}
		if seen[p] {
			errs = append(errs, fmt.Errorf("platforms: %s listed twice", p))
		}
		seen[p] = true
	}

	if seen[Win64] || seen[Win32] {
		if c.VM.Name == "" {
			errs = append(errs, errors.New("vm.name is required to build Windows platforms"))
		}
		if c.VM.SSHAddr == "" {
			errs = append(errs, errors.New("vm.ssh_addr is required to build Windows platforms"))
		}
		if c.VM.ShareDir == "" {
			errs = append(errs, errors.New("vm.share_dir is required to build Windows platforms"))
		}
	}

	if c.Source.Depth < 0 {
		errs = append(errs, errors.New("source.depth cannot be negative"))
	}

	switch c.Credentials.Source {
	case "env", "file", "secretsmanager":
	default:
		errs = append(errs, fmt.Errorf("credentials.source: unknown source %q", c.Credentials.Source))
	}

	if c.Schedule.At != "" {
		if _, err := ParseClock(c.Schedule.At); err != nil {
			errs = append(errs, fmt.Errorf("schedule.at: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// Returns the local copy of the published tree (packages.<product>).
func (c *Config) PublishedDir() string {
	return filepath.Join(c.WorkRoot, "packages."+c.Product)
}

// Returns the build directory for a platform and branch.
//
// Windows builds live in the directory shared with the build machine so
// that the guest sees the cloned source and the host sees the output.
func (c *Config) BuildDir(p Platform) string {
	name := p.String() + "-" + strings.NewReplacer("/", "_", `\`, "_").Replace(c.Branch)
	if p.IsWindows() {
		return filepath.Join(c.VM.ShareDir, name)
	}
	return filepath.Join(c.WorkRoot, "builds", name)
}

// Parses an "HH:MM" clock time into hours and minutes past midnight.
func ParseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
