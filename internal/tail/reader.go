// Package tail reads newly appended lines from the game client log.
//
// The game owns the log file and rotates it by truncation or replacement, so
// the reader cannot hold a single open handle and follow it forever. Instead
// [Reader.Poll] stats the file on every call, compares the result against the
// stored [Position] fingerprint, and reads only the bytes appended since the
// previous poll. A trailing partial line (no newline yet) is held back until
// the writer finishes it.
//
// Change detection between polls is handled by [Watcher], which wakes the
// daemon loop on writes via fsnotify with a polling fallback.
package tail

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// ///////////////////////////////////////////////
// Position
// ///////////////////////////////////////////////

// Position records how far into the client log the reader has consumed.
// Offset only ever advances past fully delimited lines; it is reset to zero
// when the fingerprint indicates the file was truncated or replaced.
type Position struct {
	// Offset is the byte offset of the first unconsumed line.
	Offset int64 `json:"offset"`
	// Size is the file size observed at the last poll, part of the
	// rotation fingerprint.
	Size int64 `json:"size"`
	// ModTimeUnix is the file modification time (Unix nanoseconds) observed
	// at the last poll, part of the rotation fingerprint.
	ModTimeUnix int64 `json:"mod_time_unix"`
}

// ///////////////////////////////////////////////
// Reader
// ///////////////////////////////////////////////

// Reader polls a single log file for appended lines. It is not safe for
// concurrent use; the daemon loop is the only caller.
type Reader struct {
	// path is the absolute path of the client log.
	path string
	// pos is the current read position and fingerprint.
	pos Position
	// ident is the FileInfo of the file Offset refers to, used with
	// [os.SameFile] to detect replacement. nil until the first read, or after
	// restoring a persisted position.
	ident os.FileInfo
	// partial holds bytes after the last newline, carried to the next poll.
	partial []byte
}

// NewReader creates a Reader for the log file at path, starting at offset 0.
func NewReader(path string) *Reader {
	return &Reader{path: path}
}

// Position returns the current read position.
func (r *Reader) Position() Position {
	return r.pos
}

// Restore sets the read position from a persisted value, typically loaded via
// [LoadPosition]. File identity cannot survive a restart, so the next poll
// falls back to the size fingerprint alone: a file smaller than the restored
// offset is treated as rotated.
func (r *Reader) Restore(pos Position) {
	r.pos = pos
	r.ident = nil
	r.partial = nil
}

// Poll reads all complete lines appended since the previous poll.
//
// A missing file is transient (mid-rotation) and yields no lines and no
// error. Any other stat/open/read failure is returned to the caller, which
// logs it and retries on the next tick; the reader's position is left
// unchanged so no lines are skipped.
func (r *Reader) Poll() ([]string, error) {
	fi, err := os.Stat(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat %s: %w", r.path, err)
	}

	if r.rotated(fi) {
		r.pos = Position{}
		r.ident = nil
		r.partial = nil
	}

	// Bytes before the watermark are either consumed lines (Offset) or
	// buffered in partial; only read past it.
	watermark := r.pos.Offset + int64(len(r.partial))
	if fi.Size() == watermark {
		// No growth. Leave the position untouched so repeated polls are
		// exact no-ops.
		return nil, nil
	}

	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", r.path, err)
	}
	defer f.Close()

	// Bind identity to the opened handle, not the earlier stat, in case the
	// file was swapped between the two calls.
	ident, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat open %s: %w", r.path, err)
	}

	if _, err := f.Seek(watermark, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek %s: %w", r.path, err)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.path, err)
	}

	lines, consumed := splitComplete(r.partial, data)
	if consumed > 0 {
		// The held prefix and data up to the last newline became lines.
		r.pos.Offset = watermark + int64(consumed)
		r.partial = append([]byte{}, data[consumed:]...)
	} else {
		r.partial = append(r.partial, data...)
	}

	r.pos.Size = ident.Size()
	r.pos.ModTimeUnix = ident.ModTime().UnixNano()
	r.ident = ident
	return lines, nil
}

// rotated reports whether fi indicates the log was truncated or replaced
// since the stored position was taken. The comparison point includes held
// partial bytes: a file smaller than everything already read must be a new
// file even if no full line was consumed yet.
func (r *Reader) rotated(fi os.FileInfo) bool {
	if fi.Size() < r.pos.Offset+int64(len(r.partial)) {
		return true
	}
	return r.ident != nil && !os.SameFile(r.ident, fi)
}

// splitComplete splits the concatenation of held-back and freshly read bytes
// into complete lines, returning them along with the number of fresh bytes
// consumed (up to and including the last newline in data). Bytes after the
// last newline are not consumed. Lines are stripped of the trailing LF and
// any CR before it.
func splitComplete(held, data []byte) (lines []string, consumed int) {
	last := bytes.LastIndexByte(data, '\n')
	if last < 0 {
		return nil, 0
	}
	consumed = last + 1

	// Drop the final newline before splitting so every element is a line.
	buf := data[:last]
	if len(held) > 0 {
		buf = append(append([]byte{}, held...), buf...)
	}
	for _, raw := range bytes.Split(buf, []byte{'\n'}) {
		lines = append(lines, string(bytes.TrimSuffix(raw, []byte{'\r'})))
	}
	return lines, consumed
}
