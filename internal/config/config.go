package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Config carries the file-backed defaults for the command line flags. A flag
// the user sets explicitly always wins over the value loaded here.
type Config struct {
	// Verbose enables debug logging.
	Verbose bool `toml:"verbose"`
	// Compression is the archive compression level, nil when the format
	// default should apply. Zero is a meaningful level, not an absence.
	Compression *int `toml:"compression"`
	// Format overrides the format detected from the output file name.
	Format string `toml:"format"`
	// Exclude controls export-ignore processing. Defaults to true.
	Exclude bool `toml:"exclude"`
	// CheckAttr selects the check-attr exclusion engine.
	CheckAttr bool `toml:"check_attr"`
	// ForceSubmodules initializes submodules before archiving.
	ForceSubmodules bool `toml:"force_submodules"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{Exclude: true}
}

// pathOverride redirects Path so tests never touch the real user config.
var pathOverride string

// SetPathOverride forces Path to return the given file path. Intended for
// tests; call Reset to restore the default resolution.
func SetPathOverride(path string) {
	pathOverride = path
}

// Reset clears test overrides.
func Reset() {
	pathOverride = ""
}

// Path returns the default configuration file location under the user's
// configuration directory.
func Path() (string, error) {
	if pathOverride != "" {
		return pathOverride, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate the user config directory: %w", err)
	}
	return filepath.Join(dir, "git-archive-all", "config.toml"), nil
}

// Load reads the configuration file at path. A missing file yields the
// defaults; keys absent from the file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file %q: %w\nFix or remove the file to continue", path, err)
	}
	return cfg, nil
}
