package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Settings holds the server settings read from a YAML file
type Settings struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	MapsDir          string        `yaml:"maps_dir"`
	DefaultMap       string        `yaml:"default_map"`
	SessionTTL       time.Duration `yaml:"session_ttl"`
	CleanupInterval  time.Duration `yaml:"cleanup_interval"`
	AutoplayInterval time.Duration `yaml:"autoplay_interval"`
	LogLevel         string        `yaml:"log_level"`
}

// DefaultSettings returns the settings used when no file is given
func DefaultSettings() Settings {
	return Settings{
		Host:             "localhost",
		Port:             8080,
		MapsDir:          "maps",
		SessionTTL:       24 * time.Hour,
		CleanupInterval:  10 * time.Minute,
		AutoplayInterval: 100 * time.Millisecond,
		LogLevel:         "info",
	}
}

// LoadSettings reads path over the defaults. An empty path or a missing file
// yields the defaults.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	if strings.TrimSpace(path) == "" {
		return s, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, fmt.Errorf("failed to read settings: %w", err)
	}
	if err := yaml.Unmarshal(b, &s); err != nil {
		return s, fmt.Errorf("%s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Validate checks ranges and the log level name
func (s Settings) Validate() error {
	if s.Port < 0 || s.Port > 65535 {
		return fmt.Errorf("port %d out of range", s.Port)
	}
	if s.SessionTTL < 0 || s.CleanupInterval < 0 || s.AutoplayInterval < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	if _, err := s.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel, defaulting to info when unset
func (s Settings) Level() (log.Level, error) {
	if s.LogLevel == "" {
		return log.InfoLevel, nil
	}
	return log.ParseLevel(s.LogLevel)
}
