package manifest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cruciblehq/shipyard/internal/config"
	"github.com/cruciblehq/shipyard/internal/paths"
)

const (
	BuildConfigFile = "electron-builder.json" // Generated packaging configuration, relative to the source tree.
	ControlFile     = "debcontrol"            // Generated Debian control file, relative to the source tree.
)

// Returns the packaging configuration for a build.
//
// The result is a deep copy of the manifest's build section with
// extraMetadata.productName set to productName and deb.fpm replaced by
// the custom control flag. The manifest is not modified.
func BuildConfig(m *Manifest, productName string) (map[string]any, error) {
	cfg := map[string]any{}
	if m.Build != nil {
		data, err := json.Marshal(m.Build)
		if err != nil {
			return nil, wrap(ErrWrite, err)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, wrap(ErrWrite, err)
		}
	}

	section(cfg, "extraMetadata")["productName"] = productName
	section(cfg, "deb")["fpm"] = []any{"--deb-custom-control=" + ControlFile}
	return cfg, nil
}

// Returns the object stored under key, replacing any non-object value.
func section(cfg map[string]any, key string) map[string]any {
	if m, ok := cfg[key].(map[string]any); ok {
		return m
	}
	m := map[string]any{}
	cfg[key] = m
	return m
}

// Writes cfg as BuildConfigFile in dir and returns the file path.
func WriteBuildConfig(dir string, cfg map[string]any) (string, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", wrap(ErrWrite, err)
	}

	path := filepath.Join(dir, BuildConfigFile)
	if err := os.WriteFile(path, data, paths.DefaultFileMode); err != nil {
		return "", wrap(ErrWrite, err)
	}
	slog.Debug("wrote build config", "path", path)
	return path, nil
}

// Writes the template content followed by a Version line to outPath.
func WriteControlFile(templatePath, outPath, version string) error {
	tmpl, err := os.ReadFile(templatePath)
	if err != nil {
		return wrap(ErrRead, err)
	}

	data := append(tmpl, fmt.Sprintf("Version: %s\n", version)...)
	if err := os.WriteFile(outPath, data, paths.DefaultFileMode); err != nil {
		return wrap(ErrWrite, err)
	}
	slog.Debug("wrote control file", "path", outPath, "version", version)
	return nil
}

// Returns the product name to package under.
//
// Linux packages always use linuxName; fpm rejects names with spaces.
// Other platforms use the manifest's productName.
func ProductName(p config.Platform, m *Manifest, linuxName string) string {
	if p == config.Linux {
		return linuxName
	}
	return m.ProductName
}
