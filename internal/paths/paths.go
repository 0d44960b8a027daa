// Package paths locates the ideas configuration and data directories.
//
// Precedence for the config dir is flag, then IDEAS_CONFIG_DIR, then the
// platform default. For the data dir it is flag, then the data_dir config
// value, then IDEAS_DATA_DIR, then .ideas-db in the working directory.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// appName names the per-user config directory.
const appName = "ideas"

// ConfigFileName is the config file inside the config dir.
const ConfigFileName = "config.yaml"

// DefaultDataDirName is the data dir created in the working directory when
// nothing else is configured.
const DefaultDataDirName = ".ideas-db"

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "IDEAS_CONFIG_DIR"
	EnvDataDir   = "IDEAS_DATA_DIR"
)

// platform is swapped out in tests.
var platform = struct {
	goos          string
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
	getwd         func() (string, error)
}{
	goos:          runtime.GOOS,
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
	getwd:         os.Getwd,
}

// DefaultConfigDir returns the per-user config directory.
//
// Linux:   $XDG_CONFIG_HOME/ideas, or ~/.config/ideas
// macOS:   ~/Library/Application Support/ideas
// Windows: %AppData%/ideas
func DefaultConfigDir() (string, error) {
	if platform.goos == "linux" {
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
		home, err := platform.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", appName), nil
	}
	dir, err := platform.userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName), nil
}

// ResolveConfigDir returns an absolute config directory.
func ResolveConfigDir(flag string) (string, error) {
	for _, candidate := range []string{flag, os.Getenv(EnvConfigDir)} {
		if candidate != "" {
			return filepath.Abs(candidate)
		}
	}
	return DefaultConfigDir()
}

// ResolveDataDir returns an absolute data directory. configValue is the
// data_dir key from config.yaml, which may be empty.
func ResolveDataDir(flag, configValue string) (string, error) {
	for _, candidate := range []string{flag, configValue, os.Getenv(EnvDataDir)} {
		if candidate != "" {
			return filepath.Abs(candidate)
		}
	}
	cwd, err := platform.getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}

// ConfigFile returns the path of config.yaml inside configDir.
func ConfigFile(configDir string) string {
	return filepath.Join(configDir, ConfigFileName)
}
