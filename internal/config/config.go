// Package config loads the launcher configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/peanut-b/QueuMaster-Pro-Enterprise/internal/toolchain"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in the app directory.
const FileName = ".queuemaster.yaml"

// Config describes how the dev server is found, launched and stopped.
type Config struct {
	Manager         string        `yaml:"manager,omitempty"`
	Script          string        `yaml:"script,omitempty"`
	Port            int           `yaml:"port,omitempty"`
	GracePeriod     time.Duration `yaml:"grace_period,omitempty"`
	KillTimeout     time.Duration `yaml:"kill_timeout,omitempty"`
	BenignExitCodes []int         `yaml:"benign_exit_codes,omitempty"`
	SearchDirs      []string      `yaml:"search_dirs,omitempty"`
	AutoInstall     bool          `yaml:"auto_install"`
	LogLevel        string        `yaml:"log_level,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Manager:         string(toolchain.NPM),
		Script:          "dev",
		Port:            3000,
		GracePeriod:     time.Second,
		KillTimeout:     5 * time.Second,
		BenignExitCodes: []int{0, 1},
		AutoInstall:     true,
		LogLevel:        "info",
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if _, ok := toolchain.ParseManager(c.Manager); !ok {
		return fmt.Errorf("invalid configuration: unknown manager %q", c.Manager)
	}
	if c.Script == "" {
		return errors.New("invalid configuration: missing script")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid configuration: port %d out of range", c.Port)
	}
	if c.GracePeriod < 0 || c.KillTimeout < 0 {
		return errors.New("invalid configuration: negative timeout")
	}
	return nil
}

// Write writes the configuration as a YAML file.
func Write(path string, cfg Config) error {
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Read decodes the file at path over the defaults, so keys left out keep
// their default values.
func Read(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	// An empty list means "not configured", not "no exit is benign".
	if len(cfg.BenignExitCodes) == 0 {
		cfg.BenignExitCodes = Default().BenignExitCodes
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads path, or FileName inside appDir when path is empty. A missing
// file yields the defaults.
func Load(appDir, path string) (Config, error) {
	if path == "" {
		path = filepath.Join(appDir, FileName)
	}
	cfg, err := Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// AppDir returns the directory the launcher is installed in: the directory
// of the running executable with symlinks resolved. When that directory has
// no package.json but the working directory does, the working directory wins.
func AppDir() string {
	cwd, cwdErr := os.Getwd()

	if exe, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		dir := filepath.Dir(exe)
		if cwdErr != nil || hasPackageJSON(dir) || !hasPackageJSON(cwd) {
			return dir
		}
	}
	if cwdErr == nil {
		return cwd
	}
	return "."
}

func hasPackageJSON(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, "package.json"))
	return err == nil
}
