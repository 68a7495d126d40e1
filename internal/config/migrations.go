package config

import (
	"bytes"
	"fmt"

	"github.com/BurntSushi/toml"

	"tools.zach/dev/exilecord/internal/migrate"
)

// Schema history:
//
//	v1: behavior.poll_interval_seconds (whole seconds)
//	v2: behavior.poll_interval_ms — sub-second polling keeps presence closer
//	    to area transitions, and second granularity could not express the
//	    1.5s debounce default.
func init() {
	migrate.Config.Register(migrate.Migration{
		Version:     2,
		Description: "behavior.poll_interval_seconds -> poll_interval_ms",
		Upgrade:     upgradePollIntervalToMS,
	})
}

// upgradePollIntervalToMS rewrites the v1 seconds-based poll interval as
// milliseconds. Files without the old key pass through unchanged.
func upgradePollIntervalToMS(data []byte) ([]byte, error) {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse v1 config: %w", err)
	}

	behavior, ok := raw["behavior"].(map[string]any)
	if ok {
		if secs, present := behavior["poll_interval_seconds"]; present {
			if n, isInt := secs.(int64); isInt && n > 0 {
				behavior["poll_interval_ms"] = n * 1000
			}
			delete(behavior, "poll_interval_seconds")
		}
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(raw); err != nil {
		return nil, fmt.Errorf("encode migrated config: %w", err)
	}
	return buf.Bytes(), nil
}
