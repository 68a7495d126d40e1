// Tests for the log reader: incremental polls, partial-line holdback,
// rotation/truncation recovery, and position persistence.
package tail

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// writeLog truncates the file at path and writes content.
func writeLog(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
}

// appendLog appends content to the file at path.
func appendLog(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open log for append: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("append log: %v", err)
	}
}

func mustPoll(t *testing.T, r *Reader) []string {
	t.Helper()
	lines, err := r.Poll()
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	return lines
}

// ///////////////////////////////////////////////
// Basic Reading
// ///////////////////////////////////////////////

func TestPollReadsCompleteLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Client.txt")
	writeLog(t, path, "alpha\nbeta\n")

	r := NewReader(path)
	got := mustPoll(t, r)
	want := []string{"alpha", "beta"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("lines = %v, want %v", got, want)
	}
}

func TestPollStripsCarriageReturns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Client.txt")
	writeLog(t, path, "alpha\r\nbeta\r\n")

	r := NewReader(path)
	got := mustPoll(t, r)
	want := []string{"alpha", "beta"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("lines = %v, want %v", got, want)
	}
}

func TestPollIncremental(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Client.txt")
	writeLog(t, path, "one\n")

	r := NewReader(path)
	if got := mustPoll(t, r); !reflect.DeepEqual(got, []string{"one"}) {
		t.Fatalf("first poll = %v", got)
	}

	appendLog(t, path, "two\nthree\n")
	if got := mustPoll(t, r); !reflect.DeepEqual(got, []string{"two", "three"}) {
		t.Errorf("second poll = %v", got)
	}
}

// ///////////////////////////////////////////////
// Idempotence and Monotonicity
// ///////////////////////////////////////////////

func TestPollIdempotentWithoutGrowth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Client.txt")
	writeLog(t, path, "one\n")

	r := NewReader(path)
	mustPoll(t, r)
	pos := r.Position()

	for i := 0; i < 3; i++ {
		if got := mustPoll(t, r); got != nil {
			t.Errorf("re-poll produced lines: %v", got)
		}
		if r.Position() != pos {
			t.Errorf("position changed without growth: %+v -> %+v", pos, r.Position())
		}
	}
}

func TestOffsetMonotonicWithoutRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Client.txt")
	r := NewReader(path)

	var last int64
	chunks := []string{"a\n", "bb\n", "", "ccc\nd\n"}
	for _, chunk := range chunks {
		if chunk != "" {
			appendLog(t, path, chunk)
		}
		mustPoll(t, r)
		if off := r.Position().Offset; off < last {
			t.Fatalf("offset went backward: %d -> %d", last, off)
		} else {
			last = off
		}
	}
}

// ///////////////////////////////////////////////
// Partial Lines
// ///////////////////////////////////////////////

func TestPartialLineHeldBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Client.txt")
	writeLog(t, path, "done\npart")

	r := NewReader(path)
	if got := mustPoll(t, r); !reflect.DeepEqual(got, []string{"done"}) {
		t.Fatalf("poll = %v, want only the complete line", got)
	}
	if off := r.Position().Offset; off != int64(len("done\n")) {
		t.Errorf("offset = %d, want %d (not past the partial line)", off, len("done\n"))
	}

	appendLog(t, path, "ial\n")
	if got := mustPoll(t, r); !reflect.DeepEqual(got, []string{"partial"}) {
		t.Errorf("completed line = %v, want [partial]", got)
	}
}

func TestPartialAccumulatesAcrossPolls(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Client.txt")
	writeLog(t, path, "ab")

	r := NewReader(path)
	mustPoll(t, r)
	appendLog(t, path, "cd")
	mustPoll(t, r)
	appendLog(t, path, "ef\n")

	if got := mustPoll(t, r); !reflect.DeepEqual(got, []string{"abcdef"}) {
		t.Errorf("line = %v, want [abcdef]", got)
	}
}

// ///////////////////////////////////////////////
// Rotation and Truncation
// ///////////////////////////////////////////////

func TestTruncationResetsToStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Client.txt")
	writeLog(t, path, "old line one\nold line two\n")

	r := NewReader(path)
	mustPoll(t, r)

	// Game rotated: file replaced with shorter content.
	writeLog(t, path, "fresh\n")
	got := mustPoll(t, r)
	if !reflect.DeepEqual(got, []string{"fresh"}) {
		t.Errorf("post-rotation lines = %v, want [fresh]", got)
	}
	if off := r.Position().Offset; off != int64(len("fresh\n")) {
		t.Errorf("post-rotation offset = %d", off)
	}
}

func TestReplacementDetectedBySameFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Client.txt")
	writeLog(t, path, "aaaa\n")

	r := NewReader(path)
	mustPoll(t, r)

	// Replace with a different file of equal or larger size. The offset
	// alone cannot reveal this; identity comparison must.
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	writeLog(t, path, "bbbb\ncccc\n")

	got := mustPoll(t, r)
	want := []string{"bbbb", "cccc"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("post-replacement lines = %v, want %v", got, want)
	}
}

func TestRotationDiscardsHeldPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Client.txt")
	writeLog(t, path, "stale-part")

	r := NewReader(path)
	mustPoll(t, r)

	writeLog(t, path, "new\n")
	if got := mustPoll(t, r); !reflect.DeepEqual(got, []string{"new"}) {
		t.Errorf("lines = %v, want [new] with no stale prefix", got)
	}
}

// ///////////////////////////////////////////////
// Missing File
// ///////////////////////////////////////////////

func TestMissingFileIsTransient(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Client.txt")

	r := NewReader(path)
	if got := mustPoll(t, r); got != nil {
		t.Fatalf("poll on missing file = %v, want nil", got)
	}

	writeLog(t, path, "appeared\n")
	if got := mustPoll(t, r); !reflect.DeepEqual(got, []string{"appeared"}) {
		t.Errorf("lines = %v, want [appeared]", got)
	}
}

func TestFileVanishesMidStream(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Client.txt")
	writeLog(t, path, "one\n")

	r := NewReader(path)
	mustPoll(t, r)

	os.Remove(path)
	if got := mustPoll(t, r); got != nil {
		t.Fatalf("poll while missing = %v, want nil", got)
	}

	// Log reappears (new file, size below the old offset triggers reset).
	writeLog(t, path, "hi\n")
	if got := mustPoll(t, r); !reflect.DeepEqual(got, []string{"hi"}) {
		t.Errorf("lines = %v, want [hi]", got)
	}
}

// ///////////////////////////////////////////////
// Position Persistence
// ///////////////////////////////////////////////

func TestPositionRoundTrip(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "Client.txt")
	posPath := filepath.Join(dir, "position.json")
	writeLog(t, logPath, "one\ntwo\n")

	r := NewReader(logPath)
	mustPoll(t, r)
	if err := SavePosition(posPath, r.Position()); err != nil {
		t.Fatalf("SavePosition: %v", err)
	}

	// Fresh reader, as after a daemon restart.
	pos, err := LoadPosition(posPath)
	if err != nil {
		t.Fatalf("LoadPosition: %v", err)
	}
	r2 := NewReader(logPath)
	r2.Restore(pos)

	appendLog(t, logPath, "three\n")
	if got := mustPoll(t, r2); !reflect.DeepEqual(got, []string{"three"}) {
		t.Errorf("post-restore lines = %v, want [three]", got)
	}
}

func TestRestoredPositionPastShrunkFile(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "Client.txt")
	writeLog(t, logPath, "tiny\n")

	r := NewReader(logPath)
	r.Restore(Position{Offset: 9999, Size: 10000})

	if got := mustPoll(t, r); !reflect.DeepEqual(got, []string{"tiny"}) {
		t.Errorf("lines = %v, want [tiny] from offset 0", got)
	}
}

func TestLoadPositionMissingFile(t *testing.T) {
	pos, err := LoadPosition(filepath.Join(t.TempDir(), "position.json"))
	if err != nil {
		t.Fatalf("LoadPosition: %v", err)
	}
	if pos != (Position{}) {
		t.Errorf("pos = %+v, want zero", pos)
	}
}

func TestLoadPositionCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "position.json")
	os.WriteFile(path, []byte("{not json"), 0o644)

	pos, err := LoadPosition(path)
	if err == nil {
		t.Fatal("expected error for corrupt position file")
	}
	if pos != (Position{}) {
		t.Errorf("pos = %+v, want zero on corrupt file", pos)
	}
}
