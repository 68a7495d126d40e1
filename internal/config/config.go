// Package config provides configuration loading and defaults for the
// Exilecord daemon.
//
// Configuration is loaded from a TOML file in the user's data directory and
// covers the game log location, Discord presence settings, display templates,
// privacy controls, and daemon behavior.
package config

//go:generate go run ../../cmd/genconfig

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"tools.zach/dev/exilecord/internal/atomicfile"
	"tools.zach/dev/exilecord/internal/migrate"
	"tools.zach/dev/exilecord/internal/paths"
)

// DefaultDiscordAppID is the Discord application carrying the Path of Exile 2
// class and ascendancy image assets.
const DefaultDiscordAppID = "550890770056347648"

// ///////////////////////////////////////////////
// Configuration Types
// ///////////////////////////////////////////////

// Config represents the top-level application configuration.
type Config struct {
	// Version is the config schema version used for migrations.
	Version int `toml:"version"`
	// Game holds game client settings.
	Game GameConfig `toml:"game"`
	// Discord holds Discord connection settings.
	Discord DiscordConfig `toml:"discord"`
	// Display holds presence display settings.
	Display DisplayConfig `toml:"display"`
	// Privacy holds character-hiding settings.
	Privacy PrivacyConfig `toml:"privacy"`
	// Behavior holds daemon timing settings.
	Behavior BehaviorConfig `toml:"behavior"`
	// Areas holds area name table source settings.
	Areas AreasConfig `toml:"areas"`
	// Log holds logging settings.
	Log LogConfig `toml:"log"`
}

// GameConfig holds game client settings.
type GameConfig struct {
	// LogFile is the path to the game's Client.txt log. Required; the game
	// install location cannot be reliably discovered.
	LogFile string `toml:"log_file"`
}

// DiscordConfig holds Discord connection settings.
type DiscordConfig struct {
	// AppID is the Discord application ID for Rich Presence.
	AppID string `toml:"app_id"`
}

// DisplayConfig holds presence display templates. Placeholders: {character},
// {class}, {level}, {area}, {area_level}.
type DisplayConfig struct {
	// Details is the template for the top line of the presence card.
	Details string `toml:"details"`
	// State is the template for the bottom line.
	State string `toml:"state"`
	// StateNoLevel is the state template for towns, hideouts, and areas
	// with no known monster level.
	StateNoLevel string `toml:"state_no_level"`
}

// PrivacyConfig holds character-hiding settings.
type PrivacyConfig struct {
	// HideCharacterName shows the class instead of the character name.
	HideCharacterName bool `toml:"hide_character_name"`
	// Ignore lists glob patterns for character names whose presence is
	// suppressed entirely.
	Ignore []string `toml:"ignore"`
}

// BehaviorConfig holds daemon timing settings.
type BehaviorConfig struct {
	// PollIntervalMS is how often the log is polled for growth, in
	// milliseconds. File watching is primary; this is the fallback cadence.
	PollIntervalMS int `toml:"poll_interval_ms"`
	// DebounceMS is how long to wait after a status change before
	// publishing, collapsing bursts to their latest value.
	DebounceMS int `toml:"debounce_ms"`
	// ReconnectIntervalSeconds is the Discord reconnect interval.
	ReconnectIntervalSeconds int `toml:"reconnect_interval_seconds"`
	// ActivityAsLiveness treats any recognized-or-not log line as a
	// liveness signal, refreshing the status timestamp.
	ActivityAsLiveness bool `toml:"activity_as_liveness"`
}

// AreasConfig holds settings for where the area name table is loaded from.
type AreasConfig struct {
	// Source selects the table source: "embedded", "file", or "url".
	Source string `toml:"source"`
	// URL is a custom table endpoint for source "url".
	URL string `toml:"url,omitempty"`
	// File is the local file path for source "file".
	File string `toml:"file,omitempty"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string `toml:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation.
	MaxSizeMB int `toml:"max_size_mb"`
}

// ///////////////////////////////////////////////
// Default Configuration
// ///////////////////////////////////////////////

// DefaultConfig returns a Config populated with sensible defaults. The game
// log path has no default; it must be configured.
func DefaultConfig() *Config {
	return &Config{
		Version: migrate.Config.CurrentVersion,
		Discord: DiscordConfig{
			AppID: DefaultDiscordAppID,
		},
		Display: DisplayConfig{
			Details:      "{character} (Level {level})",
			State:        "{area} ({area_level})",
			StateNoLevel: "{area}",
		},
		Privacy: PrivacyConfig{
			Ignore: []string{},
		},
		Behavior: BehaviorConfig{
			PollIntervalMS:           1000,
			DebounceMS:               1500,
			ReconnectIntervalSeconds: 15,
			ActivityAsLiveness:       false,
		},
		Areas: AreasConfig{
			Source: "embedded",
		},
		Log: LogConfig{
			Level:     "info",
			MaxSizeMB: 10,
		},
	}
}

// ExampleConfig returns a Config suitable for generating config.default.toml.
// The log file gets a representative Windows install path so users see the
// expected shape.
func ExampleConfig() *Config {
	cfg := DefaultConfig()
	cfg.Game.LogFile = `C:\Program Files (x86)\Grinding Gear Games\Path of Exile 2\logs\Client.txt`
	return cfg
}

// ///////////////////////////////////////////////
// PeekVersion
// ///////////////////////////////////////////////

// PeekVersion reads just the version field from raw TOML bytes.
// Returns 1 if the version field is missing or zero.
func PeekVersion(data []byte) int {
	var v struct {
		Version int `toml:"version"`
	}
	if err := toml.Unmarshal(data, &v); err != nil {
		return 1
	}
	if v.Version == 0 {
		return 1
	}
	return v.Version
}

// ///////////////////////////////////////////////
// Loading and Saving
// ///////////////////////////////////////////////

// Load reads and parses the configuration file from dataDir/config.toml.
// If the file doesn't exist, returns DefaultConfig. Outdated files are
// migrated, backed up, and re-saved.
func Load(dataDir string) (*Config, error) {
	path := filepath.Join(dataDir, paths.ConfigFile)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	version := PeekVersion(data)
	migrated := version != migrate.Config.CurrentVersion
	if migrated {
		if backupErr := os.WriteFile(path+".bak", data, 0o644); backupErr != nil {
			slog.Warn("failed to write config backup", "error", backupErr)
		}
		var migrateErr error
		data, _, migrateErr = migrate.Config.Run(data, version)
		if migrateErr != nil {
			return nil, fmt.Errorf("migrate config: %w", migrateErr)
		}
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Version = migrate.Config.CurrentVersion

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if migrated {
		if err := cfg.Save(path); err != nil {
			slog.Warn("failed to save migrated config", "error", err)
		}
	}

	return cfg, nil
}

// Save writes the config to disk as TOML using atomic file write.
func (c *Config) Save(path string) error {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return atomicfile.Write(path, buf.Bytes(), 0o644)
}

// ///////////////////////////////////////////////
// Validation
// ///////////////////////////////////////////////

// validLogLevels is the set of accepted log level strings.
var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

// Validate checks that all configuration values are within acceptable
// ranges. An empty game.log_file passes here — the daemon checks it at
// startup so a freshly written default config still loads.
func (c *Config) Validate() error {
	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log.level %q: must be trace, debug, info, warn, or error", c.Log.Level)
	}

	if c.Behavior.PollIntervalMS <= 0 {
		return fmt.Errorf("poll_interval_ms must be > 0, got %d", c.Behavior.PollIntervalMS)
	}

	if c.Behavior.DebounceMS < 0 {
		return fmt.Errorf("debounce_ms must be >= 0, got %d", c.Behavior.DebounceMS)
	}

	if c.Behavior.ReconnectIntervalSeconds <= 0 {
		return fmt.Errorf("reconnect_interval_seconds must be > 0, got %d", c.Behavior.ReconnectIntervalSeconds)
	}

	if c.Discord.AppID == "" {
		return fmt.Errorf("discord.app_id must not be empty")
	}

	switch c.Areas.Source {
	case "embedded", "file", "url":
	default:
		return fmt.Errorf("invalid areas.source %q: must be embedded, file, or url", c.Areas.Source)
	}
	if c.Areas.Source == "file" && c.Areas.File == "" {
		return fmt.Errorf("areas.file is required when areas.source is \"file\"")
	}

	return nil
}
