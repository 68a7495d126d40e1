package game

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"tools.zach/dev/exilecord/internal/atomicfile"
)

// httpClient is a lazily-initialized retryablehttp client shared across all
// area table fetches. Initialized once via httpClientOnce.
var (
	httpClient     *retryablehttp.Client
	httpClientOnce sync.Once
)

// getHTTPClient returns the shared retryable HTTP client, initializing it on
// first call.
func getHTTPClient() *retryablehttp.Client {
	httpClientOnce.Do(func() {
		httpClient = retryablehttp.NewClient()
		httpClient.RetryMax = 2
		httpClient.HTTPClient.Timeout = 10 * time.Second
		httpClient.Logger = nil // suppress retryablehttp's default logging
	})
	return httpClient
}

// ///////////////////////////////////////////////
// Area Table
// ///////////////////////////////////////////////

// AreaTable maps internal area codes from Client.txt (e.g. "G1_1") to
// display names (e.g. "The Riverbank").
type AreaTable struct {
	// Areas holds the code-to-display-name mapping.
	Areas map[string]string `json:"areas"`
}

// ParseAreaTable decodes an area table from JSON bytes.
func ParseAreaTable(data []byte) (*AreaTable, error) {
	var t AreaTable
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse area table: %w", err)
	}
	if t.Areas == nil {
		return nil, fmt.Errorf("area table has no areas key")
	}
	return &t, nil
}

// DisplayName resolves an area code to its display name. A "C_" prefix marks
// the cruel (second) playthrough of a campaign area and is rendered as a
// "Cruel " name prefix. Unknown codes are returned as-is so presence still
// shows something useful when the table is stale.
func (t *AreaTable) DisplayName(code string) string {
	base, cruel := strings.CutPrefix(code, "C_")
	name, ok := t.Areas[base]
	if !ok {
		return code
	}
	if cruel {
		return "Cruel " + name
	}
	return name
}

// ///////////////////////////////////////////////
// Classification
// ///////////////////////////////////////////////

// townMarkers are display-name substrings that identify a town-like area.
// There is no authoritative area-type metadata in the log, so this is a
// name heuristic and classification is best-effort.
var townMarkers = []string{"Encampment", "Caravan", "Refuge", "Town"}

// IsHideout reports whether the area code or display name looks like a
// player hideout.
func IsHideout(code, display string) bool {
	return strings.Contains(code, "Hideout") || strings.Contains(display, "Hideout")
}

// IsTown reports whether the area looks like a town. Area codes use a
// "_town" suffix for act hubs; translated names are matched against
// townMarkers as a fallback.
func IsTown(code, display string) bool {
	if strings.HasSuffix(strings.ToLower(strings.TrimPrefix(code, "C_")), "_town") {
		return true
	}
	for _, m := range townMarkers {
		if strings.Contains(display, m) {
			return true
		}
	}
	return false
}

// ///////////////////////////////////////////////
// Loading
// ///////////////////////////////////////////////

// SourceConfig describes where the area table is loaded from.
// Built from config.AreasConfig at startup.
type SourceConfig struct {
	Source string // "embedded", "file", "url"
	URL    string // remote table location (for source = "url")
	File   string // local file path (for source = "file")
}

// Load retrieves the area table for the given source. URL sources fall back
// to the on-disk cache at cachePath, and every source falls back to the
// embedded table, so a usable table is always returned. The returned error
// is non-nil when a fallback was taken.
func Load(src SourceConfig, cachePath string, embedded []byte) (*AreaTable, error) {
	switch src.Source {
	case "file":
		t, err := loadFile(src.File)
		if err == nil {
			return t, nil
		}
		return mustEmbedded(embedded), fmt.Errorf("area table file, using embedded: %w", err)

	case "url":
		t, err := fetchURL(src.URL)
		if err == nil {
			if cacheErr := saveCache(cachePath, t); cacheErr != nil {
				return t, fmt.Errorf("cache area table: %w", cacheErr)
			}
			return t, nil
		}
		if cached, cacheErr := loadFile(cachePath); cacheErr == nil {
			return cached, fmt.Errorf("area table fetch, using cache: %w", err)
		}
		return mustEmbedded(embedded), fmt.Errorf("area table fetch, using embedded: %w", err)

	default: // "embedded"
		return mustEmbedded(embedded), nil
	}
}

// mustEmbedded parses the built-in table. The embedded bytes are validated by
// tests, so a parse failure yields an empty table rather than a crash.
func mustEmbedded(embedded []byte) *AreaTable {
	t, err := ParseAreaTable(embedded)
	if err != nil {
		return &AreaTable{Areas: map[string]string{}}
	}
	return t
}

// loadFile reads and parses an area table from a local path.
func loadFile(path string) (*AreaTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read area table: %w", err)
	}
	return ParseAreaTable(data)
}

// fetchURL downloads and parses an area table.
func fetchURL(url string) (*AreaTable, error) {
	if url == "" {
		return nil, fmt.Errorf("no area table URL configured")
	}
	resp, err := getHTTPClient().Get(url)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return ParseAreaTable(data)
}

// saveCache atomically writes the table to the cache path.
func saveCache(path string, t *AreaTable) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal area table: %w", err)
	}
	return atomicfile.Write(path, data, 0o644)
}
