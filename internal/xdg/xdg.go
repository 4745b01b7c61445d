// Package xdg resolves the XDG base directories the shell writes into: the
// config home for config.toml and the state home for the input history. Both
// fall back to the traditional dotfile locations when the XDG variables are
// unset, and both are created private since they can hold credentials and
// query text.
package xdg

import (
	"os"
	"path/filepath"
)

// ConfigDir returns the colsql config directory, creating it if missing.
func ConfigDir() (string, error) {
	return appDir("XDG_CONFIG_HOME", ".config")
}

// StateDir returns the colsql state directory, home of the shell's input
// history, creating it if missing.
func StateDir() (string, error) {
	return appDir("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

func appDir(envVar, fallback string) (string, error) {
	base := os.Getenv(envVar)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, fallback)
	}
	dir := filepath.Join(base, "colsql")
	if err := os.MkdirAll(dir, 0o700); err != nil { // private dir
		return "", err
	}
	return dir, nil
}
