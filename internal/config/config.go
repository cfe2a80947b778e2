package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all cadence configuration.
type Config struct {
	Server     ServerConfig      `toml:"server"`
	Database   DatabaseConfig    `toml:"database"`
	Log        LogConfig         `toml:"log"`
	Timezone   string            `toml:"timezone"` // IANA name; empty means local
	Escalation EscalationConfig  `toml:"escalation"`
	Tiers      map[string]string `toml:"tiers"` // category → tier id overrides
	Snooze     SnoozeConfig      `toml:"snooze"`
	Delivery   DeliveryConfig    `toml:"delivery"`
}

type ServerConfig struct {
	Bind string `toml:"bind"`
	Port int    `toml:"port"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type LogConfig struct {
	Level       string `toml:"level"` // debug, info, warn, error
	Development bool   `toml:"development"`
}

type EscalationConfig struct {
	OffsetMinutes []int `toml:"offset_minutes"` // one per level; last is the caregiver level
}

type SnoozeConfig struct {
	HistoryDays int `toml:"history_days"`
	PatternDays int `toml:"pattern_days"`
}

type DeliveryConfig struct {
	Enabled     bool `toml:"enabled"`
	PollSeconds int  `toml:"poll_seconds"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 37778,
		},
		Database: DatabaseConfig{
			Path: "", // resolved at runtime via store.DefaultDBPath()
		},
		Log: LogConfig{
			Level: "info",
		},
		Escalation: EscalationConfig{
			OffsetMinutes: []int{15, 45, 60},
		},
		Snooze: SnoozeConfig{
			HistoryDays: 14,
			PatternDays: 3,
		},
		Delivery: DeliveryConfig{
			Enabled:     true,
			PollSeconds: 30,
		},
	}
}

// Load reads a TOML file over the defaults. A missing file yields the
// defaults. CADENCE_DB overrides the database path.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return cfg, fmt.Errorf("load config %s: %w", path, err)
			}
		}
	}
	if p := os.Getenv("CADENCE_DB"); p != "" {
		cfg.Database.Path = p
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if len(c.Escalation.OffsetMinutes) == 0 {
		return errors.New("escalation.offset_minutes must not be empty")
	}
	prev := 0
	for _, m := range c.Escalation.OffsetMinutes {
		if m <= prev {
			return fmt.Errorf("escalation.offset_minutes must be positive and increasing, got %v", c.Escalation.OffsetMinutes)
		}
		prev = m
	}
	if c.Snooze.PatternDays < 1 || c.Snooze.HistoryDays <= c.Snooze.PatternDays {
		return fmt.Errorf("snooze.history_days (%d) must exceed snooze.pattern_days (%d) >= 1",
			c.Snooze.HistoryDays, c.Snooze.PatternDays)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// EscalationOffsets converts the configured minutes into durations.
func (c *Config) EscalationOffsets() []time.Duration {
	out := make([]time.Duration, len(c.Escalation.OffsetMinutes))
	for i, m := range c.Escalation.OffsetMinutes {
		out[i] = time.Duration(m) * time.Minute
	}
	return out
}

// PollInterval is the delivery dispatcher's polling period.
func (c *Config) PollInterval() time.Duration {
	if c.Delivery.PollSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Delivery.PollSeconds) * time.Second
}
