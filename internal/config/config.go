package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines venue and tooling configuration.
type Config struct {
	Venue     VenueConfig     `yaml:"venue"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	DB        DBConfig        `yaml:"db"`
	Log       LogConfig       `yaml:"log"`
}

type VenueConfig struct {
	// Capacity is the admission ceiling. 0 means unlimited.
	Capacity      int           `yaml:"capacity"`
	ReentryWindow time.Duration `yaml:"reentry_window"`
}

type AnalyticsConfig struct {
	RecentWindow int `yaml:"recent_window"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Venue: VenueConfig{
			ReentryWindow: 5 * time.Minute,
		},
		Analytics: AnalyticsConfig{
			RecentWindow: 100,
		},
		DB: DBConfig{
			Path: "turnstile.db",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from an optional YAML file and environment
// variables, in that order. An empty path skips the file. The result is
// validated.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if s := os.Getenv("TURNSTILE_CAPACITY"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid TURNSTILE_CAPACITY: %w", err)
		}
		cfg.Venue.Capacity = n
	}
	if s := os.Getenv("TURNSTILE_REENTRY_WINDOW"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid TURNSTILE_REENTRY_WINDOW: %w", err)
		}
		cfg.Venue.ReentryWindow = d
	}
	if s := os.Getenv("TURNSTILE_RECENT_WINDOW"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid TURNSTILE_RECENT_WINDOW: %w", err)
		}
		cfg.Analytics.RecentWindow = n
	}
	if s := os.Getenv("TURNSTILE_DB_PATH"); s != "" {
		cfg.DB.Path = s
	}
	if s := os.Getenv("TURNSTILE_LOG_LEVEL"); s != "" {
		cfg.Log.Level = s
	}
	return nil
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if c.Venue.Capacity < 0 {
		return fmt.Errorf("venue.capacity must be >= 0, got %d", c.Venue.Capacity)
	}
	if c.Venue.ReentryWindow <= 0 {
		return fmt.Errorf("venue.reentry_window must be positive, got %s", c.Venue.ReentryWindow)
	}
	if c.Analytics.RecentWindow <= 0 {
		return fmt.Errorf("analytics.recent_window must be positive, got %d", c.Analytics.RecentWindow)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// SlogLevel returns the configured log level. Validate has already rejected
// unknown names.
func (c Config) SlogLevel() slog.Level {
	lvl, _ := ParseLevel(c.Log.Level)
	return lvl
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log.level %q is not one of debug, info, warn, error", s)
	}
}
