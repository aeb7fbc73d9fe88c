package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "mirror:\n  root: /srv/mirror\n")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if c.Product != DefaultProduct {
		t.Errorf("Product = %q, want %q", c.Product, DefaultProduct)
	}
	if c.Branch != DefaultBranch {
		t.Errorf("Branch = %q, want %q", c.Branch, DefaultBranch)
	}
	if !reflect.DeepEqual(c.Platforms, AllPlatforms()) {
		t.Errorf("Platforms = %v, want %v", c.Platforms, AllPlatforms())
	}
	if c.LinuxProductName != "Element" {
		t.Errorf("LinuxProductName = %q, want Element", c.LinuxProductName)
	}
	if c.VM.BootTimeout != DefaultBootTimeout {
		t.Errorf("VM.BootTimeout = %v, want %v", c.VM.BootTimeout, DefaultBootTimeout)
	}
	if c.Container.Enabled {
		t.Error("Container.Enabled = true, want false")
	}
}

func TestLoadPreservesValues(t *testing.T) {
	path := writeConfig(t, `
product: example.org
branch: v1.11.0
platforms: [linux, mac]
keep_failed_workdirs: true
mirror:
  root: s3://bucket/prefix
container:
  enabled: true
vm:
  boot_timeout: 90s
schedule:
  at: "03:30"
`)

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if c.Product != "example.org" || c.Branch != "v1.11.0" {
		t.Fatalf("Product/Branch = %q/%q", c.Product, c.Branch)
	}
	if !reflect.DeepEqual(c.Platforms, []Platform{Linux, Mac}) {
		t.Fatalf("Platforms = %v, want [linux mac]", c.Platforms)
	}
	if !c.KeepFailedWorkdirs {
		t.Fatal("KeepFailedWorkdirs = false, want true")
	}
	if c.VM.BootTimeout != 90*time.Second {
		t.Fatalf("VM.BootTimeout = %v, want 90s", c.VM.BootTimeout)
	}
	if !c.Container.Enabled || c.Container.Image != DefaultContainerImage {
		t.Fatalf("Container = %+v, want enabled with default image", c.Container)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, ErrRead) {
		t.Fatalf("Load() error = %v, want ErrRead", err)
	}
}

func TestLoadMalformed(t *testing.T) {
	_, err := Load(writeConfig(t, "platforms: {"))
	if !errors.Is(err, ErrRead) {
		t.Fatalf("Load() error = %v, want ErrRead", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{
			name:   "missing mirror",
			mutate: func(c *Config) { c.Mirror.Root = "" },
			want:   "mirror.root is required",
		},
		{
			name:   "unknown platform",
			mutate: func(c *Config) { c.Platforms = []Platform{"beos"} },
			want:   `unknown platform "beos"`,
		},
		{
			name:   "duplicate platform",
			mutate: func(c *Config) { c.Platforms = []Platform{Mac, Mac} },
			want:   "mac listed twice",
		},
		{
			name:   "windows without vm",
			mutate: func(c *Config) { c.Platforms = []Platform{Win64}; c.VM = VMConfig{} },
			want:   "vm.name is required",
		},
		{
			name:   "bad schedule",
			mutate: func(c *Config) { c.Schedule.At = "25:99" },
			want:   "schedule.at",
		},
		{
			name:   "bad credential source",
			mutate: func(c *Config) { c.Credentials.Source = "keychain" },
			want:   "credentials.source",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			c.Mirror.Root = "/srv/mirror"
			c.Platforms = []Platform{Mac, Linux}
			tt.mutate(c)

			err := c.Validate()
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("Validate() error = %v, want ErrInvalid", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate() error = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestBuildDir(t *testing.T) {
	c := Default()
	c.WorkRoot = "/work"
	c.Branch = "release/v1"
	c.VM.ShareDir = "/share"

	if got, want := c.BuildDir(Mac), "/work/builds/mac-release_v1"; got != want {
		t.Errorf("BuildDir(mac) = %q, want %q", got, want)
	}
	if got, want := c.BuildDir(Win32), "/share/win32-release_v1"; got != want {
		t.Errorf("BuildDir(win32) = %q, want %q", got, want)
	}
	if got, want := c.PublishedDir(), "/work/packages.element.io"; got != want {
		t.Errorf("PublishedDir() = %q, want %q", got, want)
	}
}

func TestParseClock(t *testing.T) {
	d, err := ParseClock("03:30")
	if err != nil {
		t.Fatalf("ParseClock() error = %v", err)
	}
	if d != 3*time.Hour+30*time.Minute {
		t.Fatalf("ParseClock() = %v, want 3h30m", d)
	}

	if _, err := ParseClock("3pm"); err == nil {
		t.Fatal("ParseClock(3pm) error = nil, want error")
	}
}

func TestParsePlatform(t *testing.T) {
	for _, p := range AllPlatforms() {
		got, err := ParsePlatform(p.String())
		if err != nil || got != p {
			t.Fatalf("ParsePlatform(%q) = %q, %v", p, got, err)
		}
	}
	if _, err := ParsePlatform("amiga"); err == nil {
		t.Fatal("ParsePlatform(amiga) error = nil, want error")
	}
	if !Win32.IsWindows() || Mac.IsWindows() {
		t.Fatal("IsWindows() misclassifies platforms")
	}
}
