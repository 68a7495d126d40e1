// Package exilecord provides embedded assets for the Exilecord daemon.
//
// The root package exists solely to embed default assets: the first-run
// configuration file and the English area name table. The config and game
// packages consume these at startup to seed defaults.
package exilecord

import _ "embed"

// DefaultConfigTOML holds the raw bytes of config.default.toml, embedded at
// build time. Copied to the data directory on first run.
//
//go:embed config.default.toml
var DefaultConfigTOML []byte

// DefaultAreasJSON holds the raw bytes of areas_en.json, the built-in mapping
// from internal area codes (as they appear in Client.txt) to English display
// names. Used when [areas] source is "embedded", and as the final fallback
// when a custom file or URL source fails.
//
//go:embed areas_en.json
var DefaultAreasJSON []byte
