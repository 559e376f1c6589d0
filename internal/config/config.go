package config

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration. A YAML file supplies the base
// values; CHOREBOARD_* environment variables override individual keys.
type Config struct {
	Port     string `yaml:"port"`
	DBPath   string `yaml:"db_path"`
	LogLevel string `yaml:"log_level"`

	EvaluateAt   string `yaml:"evaluate_at"`   // HH:MM, UTC
	DistributeAt string `yaml:"distribute_at"` // HH:MM, UTC
	WeekEndDay   string `yaml:"week_end_day"`  // weekday name

	ClaimLimit           int           `yaml:"claim_limit"`
	UndoWindow           time.Duration `yaml:"undo_window"`
	OneTimeArchiveWindow time.Duration `yaml:"one_time_archive_window"`
	ConversionUndoWindow time.Duration `yaml:"conversion_undo_window"`
}

// Default returns the documented household defaults.
func Default() *Config {
	return &Config{
		Port:                 "8080",
		DBPath:               "choreboard.db",
		LogLevel:             "info",
		EvaluateAt:           "00:05",
		DistributeAt:         "01:00",
		WeekEndDay:           "sunday",
		ClaimLimit:           5,
		UndoWindow:           24 * time.Hour,
		OneTimeArchiveWindow: 2 * time.Hour,
		ConversionUndoWindow: 24 * time.Hour,
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// any), then environment overrides. An empty path skips the file step.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(cfg)

	if _, err := cfg.Weekday(); err != nil {
		return nil, err
	}
	for _, hhmm := range []string{cfg.EvaluateAt, cfg.DistributeAt} {
		if _, err := time.Parse("15:04", hhmm); err != nil {
			return nil, fmt.Errorf("invalid time of day %q: %w", hhmm, err)
		}
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Port, "CHOREBOARD_PORT")
	setString(&cfg.DBPath, "CHOREBOARD_DB_PATH")
	setString(&cfg.LogLevel, "CHOREBOARD_LOG_LEVEL")
	setString(&cfg.EvaluateAt, "CHOREBOARD_EVALUATE_AT")
	setString(&cfg.DistributeAt, "CHOREBOARD_DISTRIBUTE_AT")
	setString(&cfg.WeekEndDay, "CHOREBOARD_WEEK_END_DAY")
	setInt(&cfg.ClaimLimit, "CHOREBOARD_CLAIM_LIMIT")
	setDuration(&cfg.UndoWindow, "CHOREBOARD_UNDO_WINDOW")
	setDuration(&cfg.OneTimeArchiveWindow, "CHOREBOARD_ONE_TIME_ARCHIVE_WINDOW")
	setDuration(&cfg.ConversionUndoWindow, "CHOREBOARD_CONVERSION_UNDO_WINDOW")
}

// Weekday resolves the configured week-end day name.
func (c *Config) Weekday() (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(c.WeekEndDay))
	days := map[string]time.Weekday{
		"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
		"wednesday": time.Wednesday, "thursday": time.Thursday,
		"friday": time.Friday, "saturday": time.Saturday,
	}
	d, ok := days[name]
	if !ok {
		return 0, fmt.Errorf("unknown weekday %q", c.WeekEndDay)
	}
	return d, nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
