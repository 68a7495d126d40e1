package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"tools.zach/dev/exilecord/internal/config"
	"tools.zach/dev/exilecord/internal/discord"
	"tools.zach/dev/exilecord/internal/game"
	"tools.zach/dev/exilecord/internal/presence"
	"tools.zach/dev/exilecord/internal/status"
	"tools.zach/dev/exilecord/internal/tail"
)

// ///////////////////////////////////////////////
// resolveVersion Tests
// ///////////////////////////////////////////////

func TestResolveVersionWithLdflags(t *testing.T) {
	// When version is set to something other than "dev", it should be returned as-is.
	original := version
	defer func() { version = original }()

	version = "1.2.3"
	got := resolveVersion()
	if got != "1.2.3" {
		t.Errorf("resolveVersion() = %q, want %q", got, "1.2.3")
	}
}

func TestResolveVersionDev(t *testing.T) {
	// When version is "dev", resolveVersion falls through to debug.ReadBuildInfo.
	// In test binaries, ReadBuildInfo may or may not return VCS info.
	// We just verify it returns a non-empty string.
	original := version
	defer func() { version = original }()

	version = "dev"
	got := resolveVersion()
	if got == "" {
		t.Error("resolveVersion() returned empty string")
	}
	// It should either be "dev" (no VCS info) or "dev+<hash>" or "dev+<hash>.dirty".
	if !strings.HasPrefix(got, "dev") {
		t.Errorf("resolveVersion() = %q, expected to start with 'dev'", got)
	}
}

// ///////////////////////////////////////////////
// Config Mapping Tests
// ///////////////////////////////////////////////

func TestPublisherOptions(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Behavior.DebounceMS = 2000
	cfg.Behavior.ReconnectIntervalSeconds = 30
	cfg.Display.Details = "{character}"
	cfg.Display.State = "{area}"
	cfg.Display.StateNoLevel = "In {area}"
	cfg.Privacy.HideCharacterName = true
	cfg.Privacy.Ignore = []string{"Secret*"}

	opts := publisherOptions(cfg)

	if opts.Debounce != 2*time.Second {
		t.Errorf("Debounce = %v, want 2s", opts.Debounce)
	}
	if opts.ReconnectInterval != 30*time.Second {
		t.Errorf("ReconnectInterval = %v, want 30s", opts.ReconnectInterval)
	}
	if opts.DetailsFormat != "{character}" {
		t.Errorf("DetailsFormat = %q", opts.DetailsFormat)
	}
	if opts.StateFormat != "{area}" {
		t.Errorf("StateFormat = %q", opts.StateFormat)
	}
	if opts.StateNoLevelFormat != "In {area}" {
		t.Errorf("StateNoLevelFormat = %q", opts.StateNoLevelFormat)
	}
	if !opts.HideCharacterName {
		t.Error("HideCharacterName not carried over")
	}
	if len(opts.IgnoredCharacters) != 1 || opts.IgnoredCharacters[0] != "Secret*" {
		t.Errorf("IgnoredCharacters = %v", opts.IgnoredCharacters)
	}
}

func TestAreaSource(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Areas.Source = "url"
	cfg.Areas.URL = "https://example.com/areas_en.json"

	src := areaSource(cfg)
	if src.Source != "url" {
		t.Errorf("Source = %q, want url", src.Source)
	}
	if src.URL != "https://example.com/areas_en.json" {
		t.Errorf("URL = %q", src.URL)
	}
	if src.File != "" {
		t.Errorf("File = %q, want empty", src.File)
	}
}

// ///////////////////////////////////////////////
// checkLogAccess Tests
// ///////////////////////////////////////////////

func TestCheckLogAccess_ExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Client.txt")
	if err := os.WriteFile(path, []byte("line\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	if err := checkLogAccess(path); err != nil {
		t.Errorf("checkLogAccess() = %v, want nil", err)
	}
}

func TestCheckLogAccess_MissingFileReadableDir(t *testing.T) {
	// The game may not have written the log yet; that is not a startup error
	// as long as the directory exists.
	path := filepath.Join(t.TempDir(), "Client.txt")
	if err := checkLogAccess(path); err != nil {
		t.Errorf("checkLogAccess() = %v, want nil for missing file", err)
	}
}

func TestCheckLogAccess_MissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "no-such-dir", "Client.txt")
	if err := checkLogAccess(path); err == nil {
		t.Error("checkLogAccess() = nil, want error for missing directory")
	}
}

// ///////////////////////////////////////////////
// defaultDataDir Tests
// ///////////////////////////////////////////////

func TestDefaultDataDir(t *testing.T) {
	dir := defaultDataDir()
	if dir == "" {
		t.Fatal("defaultDataDir() returned empty string")
	}
	// filepath.Join normalizes separators for the current OS.
	suffix := ".exilecord"
	if !strings.HasSuffix(dir, suffix) {
		t.Errorf("defaultDataDir() = %q, want path ending in %q", dir, suffix)
	}
}

// ///////////////////////////////////////////////
// drainLog Tests
// ///////////////////////////////////////////////

// nullSink is a presence.Sink that accepts everything, used to exercise the
// drain path without a Discord socket.
type nullSink struct {
	mu     sync.Mutex
	active *discord.Activity
}

func (s *nullSink) Connect() error { return nil }

func (s *nullSink) SetActivity(a *discord.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = a
	return nil
}

func (s *nullSink) ClearActivity() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = nil
	return nil
}

func (s *nullSink) Close() error { return nil }

func (s *nullSink) activity() *discord.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func TestDrainLogFoldsAndPersistsPosition(t *testing.T) {
	dir := t.TempDir()
	dp := DataPaths{Root: dir}
	logPath := filepath.Join(dir, "Client.txt")

	content := strings.Join([]string{
		"2025/12/14 20:05:10 278085156 3ef2773a [INFO Client 12345] : Kara (Gemling Legionnaire) is now level 61",
		`2025/12/14 20:05:30 278105000 cffb0716 [DEBUG Client 12345] Generating level 60 area "G3_town" with seed 1`,
		"",
	}, "\n")
	if err := os.WriteFile(logPath, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	areas, err := game.ParseAreaTable([]byte(`{"areas":{"G3_town":"Ziggurat Encampment"}}`))
	if err != nil {
		t.Fatalf("ParseAreaTable() error: %v", err)
	}

	sink := &nullSink{}
	pub := presence.NewPublisher(sink, presence.Options{
		Debounce:          10 * time.Millisecond,
		ReconnectInterval: 10 * time.Millisecond,
		DetailsFormat:     "{character} (Level {level})",
		StateFormat:       "{area} ({area_level})",
	}, nil)
	defer pub.Stop()

	reader := tail.NewReader(logPath)
	agg := status.NewAggregator(areas, false)

	drainLog(reader, agg, pub, dp)

	snap := agg.Snapshot()
	if snap.CharacterName != "Kara" || snap.Level != 61 {
		t.Errorf("snapshot character = %q level %d", snap.CharacterName, snap.Level)
	}
	if snap.Area != "Ziggurat Encampment" {
		t.Errorf("snapshot area = %q", snap.Area)
	}

	pos, err := tail.LoadPosition(dp.Position())
	if err != nil {
		t.Fatalf("LoadPosition() error: %v", err)
	}
	if pos.Offset != int64(len(content)) {
		t.Errorf("persisted offset = %d, want %d", pos.Offset, len(content))
	}

	// The debounced publish should eventually reach the sink.
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if a := sink.activity(); a != nil {
			if a.Details != "Kara (Level 61)" {
				t.Errorf("activity details = %q", a.Details)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("no activity published")
}

func TestDrainLogNoGrowthIsNoOp(t *testing.T) {
	dir := t.TempDir()
	dp := DataPaths{Root: dir}
	logPath := filepath.Join(dir, "Client.txt")
	if err := os.WriteFile(logPath, []byte{}, 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	sink := &nullSink{}
	pub := presence.NewPublisher(sink, presence.DefaultOptions(), nil)
	defer pub.Stop()

	reader := tail.NewReader(logPath)
	agg := status.NewAggregator(&game.AreaTable{Areas: map[string]string{}}, false)

	drainLog(reader, agg, pub, dp)

	// No lines, so no position file is written.
	if _, err := os.Stat(dp.Position()); !os.IsNotExist(err) {
		t.Error("position file written despite empty log")
	}
}

// ///////////////////////////////////////////////
// pidToken Tests
// ///////////////////////////////////////////////

func TestPidToken_Unique(t *testing.T) {
	a := pidToken()
	b := pidToken()
	if a == b {
		t.Errorf("pidToken() returned the same value twice: %q", a)
	}
}

func TestPidToken_Length(t *testing.T) {
	tok := pidToken()
	if len(tok) != 16 {
		t.Errorf("pidToken() length = %d, want 16", len(tok))
	}
}

// ///////////////////////////////////////////////
// writePID / removePID Tests
// ///////////////////////////////////////////////

func TestWritePID_CreatesFile(t *testing.T) {
	dp := DataPaths{Root: t.TempDir()}
	token := pidToken()

	f, err := writePID(dp, token)
	if err != nil {
		t.Fatalf("writePID() error: %v", err)
	}
	defer func() {
		_ = unlockFile(f)
		f.Close()
	}()

	if _, err := os.Stat(dp.PID()); os.IsNotExist(err) {
		t.Fatal("PID file was not created")
	}
}

func TestWritePID_FileContainsPID(t *testing.T) {
	dp := DataPaths{Root: t.TempDir()}
	token := pidToken()

	f, err := writePID(dp, token)
	if err != nil {
		t.Fatalf("writePID() error: %v", err)
	}
	defer func() {
		_ = unlockFile(f)
		f.Close()
	}()

	// Read through the open handle — on Windows the lock prevents os.ReadFile.
	if _, err := f.Seek(0, 0); err != nil {
		t.Fatalf("Seek() error: %v", err)
	}
	data := make([]byte, 256)
	n, err := f.Read(data)
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}

	expected := fmt.Sprintf("%d:%s", os.Getpid(), token)
	if string(data[:n]) != expected {
		t.Errorf("PID file content = %q, want %q", string(data[:n]), expected)
	}
}

func TestRemovePID_MatchingToken(t *testing.T) {
	dp := DataPaths{Root: t.TempDir()}
	token := pidToken()

	f, err := writePID(dp, token)
	if err != nil {
		t.Fatalf("writePID() error: %v", err)
	}

	removePID(dp, token, f)

	if _, err := os.Stat(dp.PID()); !os.IsNotExist(err) {
		t.Error("PID file should have been removed with matching token")
	}
}

func TestRemovePID_MismatchedToken(t *testing.T) {
	dp := DataPaths{Root: t.TempDir()}
	token := pidToken()

	f, err := writePID(dp, token)
	if err != nil {
		t.Fatalf("writePID() error: %v", err)
	}

	removePID(dp, "wrong-token", f)

	if _, err := os.Stat(dp.PID()); os.IsNotExist(err) {
		t.Error("PID file should NOT have been removed with mismatched token")
	}

	// Clean up the file that was intentionally kept.
	os.Remove(dp.PID())
}

func TestRemovePID_NilFile(t *testing.T) {
	dp := DataPaths{Root: t.TempDir()}

	// Should not panic with a nil file handle.
	removePID(dp, "any-token", nil)
}

// ///////////////////////////////////////////////
// checkStalePID Tests
// ///////////////////////////////////////////////

func TestCheckStalePID_NoFile(t *testing.T) {
	dp := DataPaths{Root: t.TempDir()}

	alive, pid := checkStalePID(dp)
	if alive {
		t.Error("checkStalePID() returned alive=true with no PID file")
	}
	if pid != 0 {
		t.Errorf("checkStalePID() pid = %d, want 0", pid)
	}
}

func TestCheckStalePID_StalePID(t *testing.T) {
	dp := DataPaths{Root: t.TempDir()}

	// Write a PID file without holding a lock — simulates a dead process.
	if err := os.WriteFile(dp.PID(), []byte("99999:staletoken"), 0o600); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	alive, pid := checkStalePID(dp)
	if alive {
		t.Error("checkStalePID() returned alive=true for stale PID")
	}
	if pid != 0 {
		t.Errorf("checkStalePID() pid = %d, want 0 for stale", pid)
	}

	// Stale PID file should have been cleaned up.
	if _, err := os.Stat(dp.PID()); !os.IsNotExist(err) {
		t.Error("stale PID file should have been removed")
	}
}
