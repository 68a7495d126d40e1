// Package paths centralizes file and directory names used across the project.
// All data directory file names are defined here as the single source of truth.
package paths

import "path/filepath"

// ///////////////////////////////////////////////
// Constants
// ///////////////////////////////////////////////

// Data directory file names.
const (
	PIDFile        = "daemon.pid"
	ConfigFile     = "config.toml"
	LogFile        = "daemon.log"
	PositionFile   = "position.json"
	AreasCacheFile = "areas-cache.json"
)

const (
	BinaryName = "exilecord"
	DataDirRel = ".exilecord" // relative to $HOME
)

// ClientLogRel is the client log location relative to the game directory.
const ClientLogRel = "logs/Client.txt"

// ///////////////////////////////////////////////
// DataDir
// ///////////////////////////////////////////////

// DataDir provides path construction methods rooted at a data directory.
type DataDir struct {
	Root string
}

// PID returns the full path to the PID file.
func (d DataDir) PID() string { return filepath.Join(d.Root, PIDFile) }

// Config returns the full path to the config file.
func (d DataDir) Config() string { return filepath.Join(d.Root, ConfigFile) }

// Log returns the full path to the daemon log file.
func (d DataDir) Log() string { return filepath.Join(d.Root, LogFile) }

// Position returns the full path to the persisted log position file.
func (d DataDir) Position() string { return filepath.Join(d.Root, PositionFile) }

// AreasCache returns the full path to the cached area table file.
func (d DataDir) AreasCache() string { return filepath.Join(d.Root, AreasCacheFile) }
