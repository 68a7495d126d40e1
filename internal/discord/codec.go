package discord

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ///////////////////////////////////////////////
// Wire Format
// ///////////////////////////////////////////////

// Opcode identifies a Discord IPC frame type.
type Opcode uint32

const (
	// OpHandshake opens the connection and declares the application ID.
	OpHandshake Opcode = 0
	// OpFrame carries a JSON command or event.
	OpFrame Opcode = 1
	// OpClose ends the connection.
	OpClose Opcode = 2

	// headerSize is the frame header: 4-byte LE opcode, 4-byte LE length.
	headerSize = 8

	// MaxPayloadSize caps a frame payload at 1 MB. Presence payloads are a
	// few hundred bytes; anything near the cap is a protocol error.
	MaxPayloadSize = 1 << 20

	// ipcSlots is how many socket/pipe slots Discord may listen on (0-9).
	ipcSlots = 10
)

// ErrPayloadTooLarge is returned for frames exceeding MaxPayloadSize.
var ErrPayloadTooLarge = errors.New("payload too large")

// ErrIPCNotAvailable is returned when no Discord IPC endpoint can be reached.
var ErrIPCNotAvailable = errors.New("discord IPC not available")

// writeFrame writes one IPC frame: [opcode][length][payload].
func writeFrame(w io.Writer, op Opcode, payload []byte) error {
	if len(payload) > MaxPayloadSize {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(payload), MaxPayloadSize)
	}
	frame := make([]byte, headerSize+len(payload))
	binary.LittleEndian.PutUint32(frame[0:4], uint32(op))
	binary.LittleEndian.PutUint32(frame[4:8], uint32(len(payload)))
	copy(frame[headerSize:], payload)
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	return nil
}

// readFrame reads one IPC frame, tolerating partial reads via io.ReadFull.
func readFrame(r io.Reader) (Opcode, []byte, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, nil, fmt.Errorf("reading frame header: %w", err)
	}

	op := Opcode(binary.LittleEndian.Uint32(header[0:4]))
	length := binary.LittleEndian.Uint32(header[4:8])
	if length > MaxPayloadSize {
		return 0, nil, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, length, MaxPayloadSize)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, fmt.Errorf("reading frame payload: %w", err)
	}
	return op, payload, nil
}
