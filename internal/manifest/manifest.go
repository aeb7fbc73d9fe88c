package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
)

// Name of the manifest file at the root of the source tree.
const File = "package.json"

// The fields of package.json a release build needs.
type Manifest struct {
	Name        string         `json:"name"`
	ProductName string         `json:"productName"`
	Version     string         `json:"version"`
	Build       map[string]any `json:"build"`

	semver *semver.Version
}

// Reads and validates the manifest in dir.
func Read(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, File))
	if err != nil {
		return nil, wrap(ErrRead, err)
	}
	return Parse(data)
}

// Parses manifest content. The version must be valid semver.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, wrap(ErrRead, err)
	}

	v, err := semver.NewVersion(m.Version)
	if err != nil {
		return nil, wrap(ErrVersion, err)
	}
	m.semver = v
	return &m, nil
}

// Reports whether the version carries a prerelease tag, e.g. 1.6.0-rc.1.
func (m *Manifest) Prerelease() bool {
	return m.semver != nil && m.semver.Prerelease() != ""
}
