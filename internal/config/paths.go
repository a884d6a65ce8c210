package config

import (
	"os"
	"path/filepath"
)

const appName = "queuemaster"

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", appName)
	}
	return filepath.Join(home, ".config", appName)
}

func dataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".local", "share", appName)
	}
	return filepath.Join(home, ".local", "share", appName)
}

// SessionPath is the preferences file shared by every launch.
func SessionPath() string {
	return filepath.Join(configDir(), "session.toml")
}

// LogPath is where logs go while the dashboard owns the terminal.
func LogPath() string {
	return filepath.Join(dataDir(), "launcher.log")
}
