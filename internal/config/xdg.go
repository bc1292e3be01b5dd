// Package config provides XDG path helpers.
package config

import (
	"os"
	"path/filepath"
)

// AppName names the config and data directories.
const AppName = "codetype"

// XDGConfigHome returns the XDG config home or a default fallback.
func XDGConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".config")
}

// XDGDataHome returns the XDG data home or a default fallback.
func XDGDataHome() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}

// DataDir returns the directory holding the database, log and identity files.
func DataDir() string {
	return filepath.Join(XDGDataHome(), AppName)
}

// DefaultDBPath returns the default path for the SQLite database.
func DefaultDBPath() string {
	return filepath.Join(DataDir(), AppName+".db")
}

// DefaultLogPath returns the log file used by terminal commands.
func DefaultLogPath() string {
	return filepath.Join(DataDir(), AppName+".log")
}

// DefaultTokenPath returns where the signed-in identity token is kept.
func DefaultTokenPath() string {
	return filepath.Join(DataDir(), "token")
}

// DefaultSecretPath returns where the generated signing secret is kept.
func DefaultSecretPath() string {
	return filepath.Join(DataDir(), "secret.key")
}

// DefaultConfigPath returns the default TOML config path.
func DefaultConfigPath() string {
	return filepath.Join(XDGConfigHome(), AppName, "config.toml")
}
