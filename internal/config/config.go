// Package config handles guishell path and settings configuration.
package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// Backend names accepted in settings and on the command line. "auto" picks
// the richest backend available on the platform.
var ValidBackends = []string{"auto", "term", "tui", "tray"}

// Paths holds common paths used by guishell.
type Paths struct {
	Home     string
	Settings string
	Logs     string
	ShellLog string
}

// GetPaths returns the paths for the current user.
func GetPaths() (*Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	shellHome := filepath.Join(home, ".guishell")
	logsDir := filepath.Join(shellHome, "logs")
	return &Paths{
		Home:     shellHome,
		Settings: filepath.Join(shellHome, "settings.yaml"),
		Logs:     logsDir,
		ShellLog: filepath.Join(logsDir, "guishell.log"),
	}, nil
}

// EnsureDirectories creates the required directories if they don't exist.
func (p *Paths) EnsureDirectories() error {
	dirs := []string{p.Home, p.Logs}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

// LogSettings are the rotation knobs for the shell log.
type LogSettings struct {
	MaxSizeMB  int  `yaml:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups"`
	MaxAgeDays int  `yaml:"max_age_days"`
	Compress   bool `yaml:"compress"`
}

// Settings is the optional user configuration from settings.yaml. Anything
// the user does not set keeps its default.
type Settings struct {
	Backend  string      `yaml:"backend"`
	LogLevel string      `yaml:"log_level"`
	Log      LogSettings `yaml:"log"`
}

// DefaultSettings returns the settings used when no file exists.
func DefaultSettings() Settings {
	return Settings{
		Backend:  "auto",
		LogLevel: "info",
		Log: LogSettings{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
	}
}

// LoadSettings reads settings.yaml, layering it over the defaults. A missing
// file is not an error; an unknown key is, since it usually means a typo the
// user would otherwise never notice.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return settings, nil
	}
	if err != nil {
		return settings, fmt.Errorf("read settings: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&settings); err != nil {
		return settings, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}

	if err := settings.Validate(); err != nil {
		return settings, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return settings, nil
}

// Validate checks the settings for values the shell cannot honor.
func (s *Settings) Validate() error {
	if !slices.Contains(ValidBackends, s.Backend) {
		return fmt.Errorf("unknown backend %q (valid: %v)", s.Backend, ValidBackends)
	}
	if _, err := s.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses the configured log level.
func (s *Settings) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s.LogLevel)
	}
	return level, nil
}
