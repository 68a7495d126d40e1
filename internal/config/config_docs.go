package config

// ///////////////////////////////////////////////
// Documentation Types
// ///////////////////////////////////////////////

// FieldDoc holds documentation and alternative examples for a single config
// field. The genconfig tool uses [FieldDoc] values to annotate the generated
// config.default.toml.
type FieldDoc struct {
	// Comment is shown as a header comment above the field.
	Comment string

	// Alternatives are shown as commented-out lines below the active value.
	Alternatives []string
}

// ///////////////////////////////////////////////
// Field Documentation Map
// ///////////////////////////////////////////////

// ConfigDocs maps TOML field paths (dot-separated, e.g. "behavior.debounce_ms")
// to their [FieldDoc] entries.
var ConfigDocs = map[string]FieldDoc{
	"version": {
		Comment: "Config schema version — do not edit.",
	},

	"game.log_file": {
		Comment: "Path to the game client log. Required.\nTypical locations:\n  Windows: C:\\Program Files (x86)\\Grinding Gear Games\\Path of Exile 2\\logs\\Client.txt\n  Steam:   C:\\Program Files (x86)\\Steam\\steamapps\\common\\Path of Exile 2\\logs\\Client.txt",
	},

	"discord.app_id": {
		Comment: "Application ID for Discord Rich Presence.\nThe default app carries the class and ascendancy images; override with\nyour own Discord app if you want custom artwork.",
	},

	"display.details": {
		Comment: "Templates for the presence card.\nAvailable variables: {character}, {class}, {level}, {area}, {area_level}\n{class} renders the ascendancy once one is chosen.\n\ndetails = top line, state = bottom line",
	},
	"display.state": {},
	"display.state_no_level": {
		Comment: "State line for towns, hideouts, and areas without a monster level.",
	},

	"privacy.hide_character_name": {
		Comment: "Show the class instead of the character name.",
	},
	"privacy.ignore": {
		Comment: "Character names to completely ignore — no presence shown while\nplaying these. Glob patterns supported.",
		Alternatives: []string{
			`# ignore = [`,
			`#   "SecretAlt",`,
			`#   "Hc*",`,
			`# ]`,
		},
	},

	"behavior.poll_interval_ms": {
		Comment: "How often to poll the log for growth (milliseconds). File watching\nis primary; this is the fallback cadence.",
	},
	"behavior.debounce_ms": {
		Comment: "How long to wait after a status change before updating Discord,\nso a burst of log lines becomes a single update.",
	},
	"behavior.reconnect_interval_seconds": {
		Comment: "Discord reconnect interval (seconds)",
	},
	"behavior.activity_as_liveness": {
		Comment: "Treat any log line, recognized or not, as a sign the game is alive.",
	},

	"areas.source": {
		Comment: "Where to get the area name table. Options: \"embedded\", \"file\", \"url\"\n  embedded: the table built into the binary (default)\n  file:     read from a local JSON file\n  url:      fetch from a remote endpoint, cached on disk",
		Alternatives: []string{
			`source = "file"`,
			`source = "url"`,
		},
	},
	"areas.url": {
		Comment: "Custom table endpoint (for source = \"url\").",
		Alternatives: []string{
			`# url = "https://example.com/areas_en.json"`,
		},
	},
	"areas.file": {
		Comment: "Local table path (for source = \"file\").",
		Alternatives: []string{
			`# file = "/path/to/areas_en.json"`,
		},
	},

	"log": {
		Comment: "Logging configuration",
	},
	"log.level": {
		Comment: "Minimum log level. Options: \"trace\", \"debug\", \"info\", \"warn\", \"error\"",
		Alternatives: []string{
			`level = "debug"`,
			`level = "warn"`,
		},
	},
	"log.max_size_mb": {
		Comment: "Maximum log file size in megabytes before rotation.",
	},
}
