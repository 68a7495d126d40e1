// Package main implements the Exilecord daemon, which tails the Path of
// Exile 2 client log and publishes Discord Rich Presence updates.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	rootpkg "tools.zach/dev/exilecord"
	"tools.zach/dev/exilecord/internal/config"
	"tools.zach/dev/exilecord/internal/discord"
	"tools.zach/dev/exilecord/internal/game"
	"tools.zach/dev/exilecord/internal/logger"
	"tools.zach/dev/exilecord/internal/parser"
	"tools.zach/dev/exilecord/internal/paths"
	"tools.zach/dev/exilecord/internal/presence"
	"tools.zach/dev/exilecord/internal/status"
	"tools.zach/dev/exilecord/internal/tail"
)

// ///////////////////////////////////////////////
// Version
// ///////////////////////////////////////////////

// version is set at build time via ldflags:
//   - goreleaser: -X main.version={{.Version}}  -> "0.1.0"
//   - make build: -X main.version=$(VERSION)    -> "0.0.0-dev+05ffee5"
//
// When ldflags are not set (bare go build), resolveVersion reads the VCS info
// that Go embeds automatically, so dev builds get a useful version string
// without needing git at runtime.
var version = "dev"

// resolveVersion returns the build version string. If [version] was set via
// ldflags at build time it is returned as-is; otherwise VCS revision and dirty
// state embedded by the Go toolchain are used to construct a "dev+<hash>" tag.
func resolveVersion() string {
	if version != "dev" {
		return version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version
	}
	var revision string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if revision == "" {
		return version
	}
	hash := revision[:min(7, len(revision))]
	if dirty {
		return "dev+" + hash + ".dirty"
	}
	return "dev+" + hash
}

// ///////////////////////////////////////////////
// PID Management
// ///////////////////////////////////////////////

// pidToken generates a random 16-character hex token used to prove ownership
// of the PID file, so [removePID] only deletes the file if this instance wrote it.
func pidToken() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// writePID creates or opens the PID file at [DataPaths.PID], acquires an
// advisory file lock, and writes "PID:TOKEN" content. The returned file handle
// must be kept open for the lifetime of the daemon to hold the lock; pass it to
// [removePID] on shutdown.
func writePID(paths DataPaths, token string) (*os.File, error) {
	f, err := os.OpenFile(paths.PID(), os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open PID file: %w", err)
	}
	if err := lockFile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("lock PID file: %w", err)
	}
	if err := f.Truncate(0); err != nil {
		_ = unlockFile(f)
		f.Close()
		return nil, fmt.Errorf("truncate PID file: %w", err)
	}
	content := fmt.Sprintf("%d:%s", os.Getpid(), token)
	if _, err := f.WriteString(content); err != nil {
		_ = unlockFile(f)
		f.Close()
		return nil, fmt.Errorf("write PID file: %w", err)
	}
	return f, nil
}

// removePID releases the advisory lock, closes the file handle, and removes the
// PID file only if the stored token matches, preventing accidental removal of a
// file owned by a different daemon instance.
func removePID(paths DataPaths, token string, f *os.File) {
	if f != nil {
		_ = unlockFile(f)
		f.Close()
	}
	data, err := os.ReadFile(paths.PID())
	if err != nil {
		return
	}
	parts := strings.SplitN(string(data), ":", 2)
	if len(parts) == 2 && parts[1] == token {
		os.Remove(paths.PID())
	}
}

// checkStalePID checks whether another daemon instance is running. It attempts
// to acquire the advisory lock on the PID file; if the lock fails, another
// instance holds it. If the lock succeeds, any previous instance is dead and
// the stale file is cleaned up.
func checkStalePID(paths DataPaths) (alive bool, pid int) {
	f, err := os.OpenFile(paths.PID(), os.O_RDWR, 0o600)
	if err != nil {
		return false, 0
	}

	if lockErr := lockFile(f); lockErr != nil {
		data, _ := os.ReadFile(paths.PID())
		f.Close()
		parts := strings.SplitN(string(data), ":", 2)
		if len(parts) >= 1 {
			if p, convErr := strconv.Atoi(parts[0]); convErr == nil {
				return true, p
			}
		}
		return true, 0
	}

	// Lock acquired -- previous instance is dead. Clean up stale file.
	_ = unlockFile(f)
	f.Close()
	os.Remove(paths.PID())
	return false, 0
}

// ///////////////////////////////////////////////
// Config Mapping
// ///////////////////////////////////////////////

// publisherOptions maps the loaded [config.Config] onto the flat options
// struct the presence publisher expects.
func publisherOptions(cfg *config.Config) presence.Options {
	return presence.Options{
		Debounce:           time.Duration(cfg.Behavior.DebounceMS) * time.Millisecond,
		ReconnectInterval:  time.Duration(cfg.Behavior.ReconnectIntervalSeconds) * time.Second,
		DetailsFormat:      cfg.Display.Details,
		StateFormat:        cfg.Display.State,
		StateNoLevelFormat: cfg.Display.StateNoLevel,
		HideCharacterName:  cfg.Privacy.HideCharacterName,
		IgnoredCharacters:  cfg.Privacy.Ignore,
	}
}

// areaSource builds a [game.SourceConfig] from the loaded config.
func areaSource(cfg *config.Config) game.SourceConfig {
	return game.SourceConfig{
		Source: cfg.Areas.Source,
		URL:    cfg.Areas.URL,
		File:   cfg.Areas.File,
	}
}

// ///////////////////////////////////////////////
// Log File Access
// ///////////////////////////////////////////////

// checkLogAccess verifies the configured client log is usable. A missing file
// is acceptable at startup (the game may not have run yet) as long as its
// directory can be read; a permission error on the file or its directory is
// fatal because every future poll would fail the same way.
func checkLogAccess(path string) error {
	f, err := os.Open(path)
	if err == nil {
		f.Close()
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("open log file: %w", err)
	}
	if _, statErr := os.Stat(filepath.Dir(path)); statErr != nil {
		return fmt.Errorf("log directory: %w", statErr)
	}
	return nil
}

// ///////////////////////////////////////////////
// Default Data Directory
// ///////////////////////////////////////////////

// defaultDataDir returns the platform default directory for Exilecord data,
// typically ~/.exilecord. Falls back to ./.exilecord if the home directory
// cannot be determined.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", paths.DataDirRel)
	}
	return filepath.Join(home, paths.DataDirRel)
}

// ///////////////////////////////////////////////
// Main
// ///////////////////////////////////////////////

func main() {
	dataDir := flag.String("data-dir", defaultDataDir(), "Data directory for config, state, and logs")
	logFile := flag.String("log-file", "", "Path to the game's Client.txt (overrides config)")
	flag.Parse()

	dataPaths := DataPaths{Root: *dataDir}

	if err := os.MkdirAll(dataPaths.Root, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: create data dir: %v\n", err)
		os.Exit(1)
	}

	if alive, pid := checkStalePID(dataPaths); alive {
		fmt.Fprintf(os.Stderr, "daemon already running (pid %d)\n", pid)
		os.Exit(1)
	}

	if _, err := os.Stat(dataPaths.Config()); os.IsNotExist(err) {
		if writeErr := os.WriteFile(dataPaths.Config(), rootpkg.DefaultConfigTOML, 0o644); writeErr != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to write default config: %v\n", writeErr)
		}
	}

	cfg, err := config.Load(dataPaths.Root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: load config: %v\n", err)
		os.Exit(1)
	}

	log, logCloser := logger.New(dataPaths.Log(), logger.ParseLevel(cfg.Log.Level), cfg.Log.MaxSizeMB)
	defer logCloser.Close()
	slog.SetDefault(log)

	slog.Info("exilecord starting", "version", resolveVersion(), "data_dir", dataPaths.Root)

	token := pidToken()
	pidFile, err := writePID(dataPaths, token)
	if err != nil {
		slog.Error("failed to write PID file", "error", err)
		os.Exit(1)
	}
	defer removePID(dataPaths, token, pidFile)

	if *logFile != "" {
		cfg.Game.LogFile = *logFile
	}
	if cfg.Game.LogFile == "" {
		slog.Error("no client log configured")
		fmt.Fprintf(os.Stderr, "fatal: game.log_file is not set; edit %s\n", dataPaths.Config())
		os.Exit(1)
	}
	if err := checkLogAccess(cfg.Game.LogFile); err != nil {
		slog.Error("client log is not accessible", "path", cfg.Game.LogFile, "error", err)
		fmt.Fprintf(os.Stderr, "fatal: client log not accessible: %v\n", err)
		os.Exit(1)
	}

	areas, areasErr := game.Load(areaSource(cfg), dataPaths.AreasCache(), rootpkg.DefaultAreasJSON)
	if areasErr != nil {
		slog.Warn("area table load used fallback", "error", areasErr)
	}

	reader := tail.NewReader(cfg.Game.LogFile)
	pos, posErr := tail.LoadPosition(dataPaths.Position())
	if posErr != nil {
		// A corrupt position file means re-reading from the top, which at
		// worst replays old log lines into an eventually correct status.
		slog.Warn("position file unusable, reading log from start", "error", posErr)
	}
	reader.Restore(pos)

	agg := status.NewAggregator(areas, cfg.Behavior.ActivityAsLiveness)
	pub := presence.NewPublisher(discord.NewClient(cfg.Discord.AppID), publisherOptions(cfg), slog.Default())

	pollInterval := time.Duration(cfg.Behavior.PollIntervalMS) * time.Millisecond
	watcher, err := tail.NewWatcher(cfg.Game.LogFile, pollInterval)
	if err != nil {
		slog.Error("failed to create log watcher", "error", err)
		pub.Stop()
		os.Exit(1)
	}
	defer watcher.Close()
	if watcher.Polling() {
		slog.Info("using polling mode for log watching")
	}

	run(reader, watcher, agg, pub, dataPaths, pollInterval)

	if saveErr := tail.SavePosition(dataPaths.Position(), reader.Position()); saveErr != nil {
		slog.Warn("failed to persist log position", "error", saveErr)
	}
	// Stop flushes any pending update, then clears presence and closes the
	// Discord socket.
	pub.Stop()
	slog.Info("exilecord stopped")
}

// ///////////////////////////////////////////////
// Event Loop
// ///////////////////////////////////////////////

// run is the main event loop. It drains the client log on file-system change
// events from the [tail.Watcher] and on a periodic poll tick, and returns when
// an OS interrupt/terminate signal is received.
func run(
	reader *tail.Reader,
	watcher *tail.Watcher,
	agg *status.Aggregator,
	pub *presence.Publisher,
	dataPaths DataPaths,
	pollInterval time.Duration,
) {
	pollTicker := time.NewTicker(pollInterval)
	defer pollTicker.Stop()

	sigCh := signalChannel()

	// Catch up on lines appended while the daemon was down.
	drainLog(reader, agg, pub, dataPaths)

	for {
		select {
		case <-sigCh:
			slog.Info("received shutdown signal")
			return

		case <-watcher.Events():
			drainLog(reader, agg, pub, dataPaths)

		case <-pollTicker.C:
			drainLog(reader, agg, pub, dataPaths)
		}
	}
}

// drainLog reads all newly appended log lines, folds them into the running
// status, and offers the resulting snapshot to the publisher. The read
// position is persisted only after the whole batch is applied, so a crash
// replays lines rather than skipping them.
func drainLog(reader *tail.Reader, agg *status.Aggregator, pub *presence.Publisher, dataPaths DataPaths) {
	lines, err := reader.Poll()
	if err != nil {
		slog.Warn("log poll failed", "error", err)
		return
	}
	if len(lines) == 0 {
		return
	}

	for _, line := range lines {
		ev := parser.Parse(line)
		if ev.Kind != parser.KindUnrecognized {
			logger.Trace(slog.Default(), "parsed line", "kind", ev.Kind.String())
		}
		agg.Apply(ev)
	}
	pub.Offer(agg.Snapshot())

	if saveErr := tail.SavePosition(dataPaths.Position(), reader.Position()); saveErr != nil {
		slog.Warn("failed to persist log position", "error", saveErr)
	}
}
