// Package parser converts raw Client.txt lines into typed game events.
//
// Parsing is a pure, total function over single lines: every line yields an
// [Event], with unmatched lines classified as [KindUnrecognized] rather than
// an error. The vast majority of log lines are irrelevant (engine chatter,
// shader compilation, chat), so the matcher table rejects them cheaply and in
// a fixed order that keeps the patterns' precedence auditable.
package parser

import (
	"strconv"
	"strings"
	"time"

	"tools.zach/dev/exilecord/internal/game"
)

// ///////////////////////////////////////////////
// Events
// ///////////////////////////////////////////////

// Kind identifies the type of a parsed event.
type Kind int

const (
	// KindUnrecognized marks a line that matched no pattern.
	KindUnrecognized Kind = iota
	// KindCharacterLoaded carries a full character identity: name, class,
	// optional ascendancy, and level.
	KindCharacterLoaded
	// KindLevelUp carries a new character level with no identity.
	KindLevelUp
	// KindAreaEntered marks an area transition.
	KindAreaEntered
	// KindPlayerJoined marks another player entering the current area.
	KindPlayerJoined
)

// String returns the kind name for logs and test failures.
func (k Kind) String() string {
	switch k {
	case KindCharacterLoaded:
		return "character_loaded"
	case KindLevelUp:
		return "level_up"
	case KindAreaEntered:
		return "area_entered"
	case KindPlayerJoined:
		return "player_joined"
	default:
		return "unrecognized"
	}
}

// Event is a single parsed log line. Only the fields relevant to Kind are
// set; the rest stay at their zero values.
type Event struct {
	Kind Kind
	// Time is the line's own timestamp when present, else ingestion time.
	Time time.Time

	// Name is the character name (KindCharacterLoaded) or the joining
	// player's name (KindPlayerJoined).
	Name string
	// Class and Ascendancy describe the character (KindCharacterLoaded).
	// Ascendancy is empty before one is chosen.
	Class      game.Class
	Ascendancy game.Ascendancy
	// Level is the character level (KindCharacterLoaded, KindLevelUp).
	Level int

	// Area is the raw area token: an internal code from a generation line
	// (e.g. "G1_1") or a display name from an entered line. AreaLevel and
	// Seed are only set by generation lines.
	Area      string
	AreaLevel int
	Seed      uint64
}

// ///////////////////////////////////////////////
// Parse
// ///////////////////////////////////////////////

// Parse converts one log line into an Event. It never fails; lines that
// match no pattern come back as KindUnrecognized.
func Parse(line string) Event {
	return parseAt(line, time.Now())
}

// parseAt is Parse with an explicit ingestion time, for deterministic tests.
func parseAt(line string, ingested time.Time) Event {
	line = strings.TrimRight(line, "\r")
	ts := lineTime(line, ingested)

	if m := generatingPattern.FindStringSubmatch(line); m != nil {
		return Event{
			Kind:      KindAreaEntered,
			Time:      ts,
			Area:      m[2],
			AreaLevel: atoi(m[1]),
			Seed:      atou(m[3]),
		}
	}
	if m := characterPattern.FindStringSubmatch(line); m != nil {
		class, asc, ok := game.ResolveClassToken(m[2])
		if !ok {
			// The line shape also fits NPC and monster flavor text; without
			// a recognizable class it is not a character signal.
			return Event{Kind: KindUnrecognized, Time: ts}
		}
		return Event{
			Kind:       KindCharacterLoaded,
			Time:       ts,
			Name:       m[1],
			Class:      class,
			Ascendancy: asc,
			Level:      atoi(m[3]),
		}
	}
	if m := levelUpPattern.FindStringSubmatch(line); m != nil {
		return Event{Kind: KindLevelUp, Time: ts, Level: atoi(m[1])}
	}
	if m := joinedPattern.FindStringSubmatch(line); m != nil {
		return Event{Kind: KindPlayerJoined, Time: ts, Name: m[1]}
	}
	if m := enteredPattern.FindStringSubmatch(line); m != nil {
		return Event{Kind: KindAreaEntered, Time: ts, Area: m[1]}
	}
	if m := generatingLoosePattern.FindStringSubmatch(line); m != nil {
		return Event{Kind: KindAreaEntered, Time: ts, Area: m[2], AreaLevel: atoi(m[1])}
	}

	return Event{Kind: KindUnrecognized, Time: ts}
}

// lineTime extracts the line's own timestamp, falling back to ingested.
// Client.txt timestamps are in local time.
func lineTime(line string, ingested time.Time) time.Time {
	m := timestampPattern.FindStringSubmatch(line)
	if m == nil {
		return ingested
	}
	ts, err := time.ParseInLocation(timestampLayout, m[1], time.Local)
	if err != nil {
		return ingested
	}
	return ts
}

// atoi converts a digits-only capture, returning 0 for an empty optional group.
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// atou converts a digits-only capture to uint64.
func atou(s string) uint64 {
	n, _ := strconv.ParseUint(s, 10, 64)
	return n
}
