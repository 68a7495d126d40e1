package tail

import (
	"encoding/json"
	"fmt"
	"os"

	"tools.zach/dev/exilecord/internal/atomicfile"
)

// ///////////////////////////////////////////////
// Position Persistence
// ///////////////////////////////////////////////

// LoadPosition reads a persisted Position from path. A missing file is not an
// error and yields the zero Position, so a fresh daemon starts from the top
// of the log.
func LoadPosition(path string) (Position, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Position{}, nil
		}
		return Position{}, fmt.Errorf("read position file: %w", err)
	}
	var pos Position
	if err := json.Unmarshal(data, &pos); err != nil {
		// A corrupt position file means re-reading the log from the start,
		// which is safe; don't wedge startup over it.
		return Position{}, fmt.Errorf("parse position file: %w", err)
	}
	return pos, nil
}

// SavePosition atomically writes pos to path.
func SavePosition(path string, pos Position) error {
	data, err := json.Marshal(pos)
	if err != nil {
		return fmt.Errorf("marshal position: %w", err)
	}
	return atomicfile.Write(path, data, 0o644)
}
