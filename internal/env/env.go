// Package env locates the per-user directories cmkit reads and writes.
package env

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const appDir = "cmkit"

// Environment variables overriding the XDG locations.
const (
	EnvConfigDir = "CMKIT_CONFIG_DIR"
	EnvStateDir  = "CMKIT_STATE_DIR"
)

// ConfigDir returns the directory holding the user config file.
func ConfigDir() string {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return dir
	}
	return filepath.Join(xdg.ConfigHome, appDir)
}

// ConfigFile returns the path of the user config file. It may not exist.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// StateDir returns the directory for logs, creating it with mode 0700.
func StateDir() (string, error) {
	dir := os.Getenv(EnvStateDir)
	if dir == "" {
		dir = filepath.Join(xdg.StateHome, appDir)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}
