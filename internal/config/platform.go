package config

import "fmt"

// A release target platform.
type Platform string

const (
	Win64 Platform = "win64"
	Win32 Platform = "win32"
	Mac   Platform = "mac"
	Linux Platform = "linux"
)

// Returns every platform in the default build order.
func AllPlatforms() []Platform {
	return []Platform{Win64, Win32, Mac, Linux}
}

// Parses a platform name.
func ParsePlatform(s string) (Platform, error) {
	switch p := Platform(s); p {
	case Win64, Win32, Mac, Linux:
		return p, nil
	}
	return "", fmt.Errorf("unknown platform %q", s)
}

// Reports whether the platform is built on the remote Windows machine.
func (p Platform) IsWindows() bool {
	return p == Win64 || p == Win32
}

func (p Platform) String() string {
	return string(p)
}
