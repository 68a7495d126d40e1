// Package status folds the parsed event stream into the player's current
// state.
//
// The log is the only source of truth and it never announces "character
// switched" outright; identity is inferred from the most recent character
// line. The reducer therefore applies precedence rules rather than trusting
// every line: identity lines replace the character wholesale, level and area
// lines touch only their own fields, and names known to belong to other
// players in the area are ignored. When the player switches characters
// without reaching a loggable milestone, the previous identity remains on
// display until the next character line appears. That staleness is inherent
// to the log format and is deliberately left visible.
package status

import (
	"time"

	"tools.zach/dev/exilecord/internal/game"
	"tools.zach/dev/exilecord/internal/parser"
)

// ///////////////////////////////////////////////
// Status
// ///////////////////////////////////////////////

// Status is a snapshot of the inferred player state. Fields start empty and
// are only ever overwritten by events that carry equal or better information;
// they are never blanked except when a new character identity clears the
// stale area.
type Status struct {
	// CharacterName, Class, Ascendancy, and Level describe the character.
	// Ascendancy is empty before one is chosen.
	CharacterName string
	Class         game.Class
	Ascendancy    game.Ascendancy
	Level         int

	// Area is the display name of the current area. Hideout/town flags are
	// name heuristics recorded for the publisher; the aggregator stores the
	// area regardless of its kind.
	Area          string
	AreaLevel     int
	AreaIsHideout bool
	AreaIsTown    bool
	// AreaEnteredAt is when the current area was entered, used as the
	// presence activity start timestamp.
	AreaEnteredAt time.Time

	// LastUpdated is refreshed on every applied event, even when no field
	// value changed, so display clients can make staleness decisions.
	LastUpdated time.Time
}

// HasCharacter reports whether a character identity has been seen.
func (s Status) HasCharacter() bool {
	return s.CharacterName != ""
}

// HasArea reports whether an area has been seen.
func (s Status) HasArea() bool {
	return s.Area != ""
}

// ///////////////////////////////////////////////
// Aggregator
// ///////////////////////////////////////////////

// Aggregator owns the running Status and folds events into it in log order.
// It is not safe for concurrent use; the daemon loop is the single writer,
// and everything else sees copied snapshots.
type Aggregator struct {
	// areas translates area codes to display names.
	areas *game.AreaTable
	// activityAsLiveness makes unrecognized lines refresh LastUpdated.
	activityAsLiveness bool

	// cur is the running fold accumulator.
	cur Status
	// others holds names seen in "has joined the area" lines. Those players'
	// level-up lines appear in this log too and must not overwrite the
	// tracked identity.
	others map[string]struct{}
}

// NewAggregator creates an Aggregator with an empty Status.
func NewAggregator(areas *game.AreaTable, activityAsLiveness bool) *Aggregator {
	return &Aggregator{
		areas:              areas,
		activityAsLiveness: activityAsLiveness,
		others:             make(map[string]struct{}),
	}
}

// Snapshot returns a copy of the current Status.
func (a *Aggregator) Snapshot() Status {
	return a.cur
}

// Apply folds one event into the Status and returns the resulting snapshot.
// Events must be applied in the order their lines appear in the log.
func (a *Aggregator) Apply(ev parser.Event) Status {
	switch ev.Kind {
	case parser.KindCharacterLoaded:
		if _, other := a.others[ev.Name]; other {
			// Another player's milestone, not ours.
			return a.cur
		}
		if a.cur.CharacterName != "" && a.cur.CharacterName != ev.Name {
			// New character session: the previous area belongs to the old
			// identity. Each identity line is authoritative, last write wins.
			a.cur.Area = ""
			a.cur.AreaLevel = 0
			a.cur.AreaIsHideout = false
			a.cur.AreaIsTown = false
			a.cur.AreaEnteredAt = time.Time{}
		}
		a.cur.CharacterName = ev.Name
		a.cur.Class = ev.Class
		a.cur.Ascendancy = ev.Ascendancy
		a.cur.Level = ev.Level
		a.cur.LastUpdated = ev.Time

	case parser.KindLevelUp:
		a.cur.Level = ev.Level
		a.cur.LastUpdated = ev.Time

	case parser.KindAreaEntered:
		display := a.areas.DisplayName(ev.Area)
		a.cur.Area = display
		a.cur.AreaLevel = ev.AreaLevel
		a.cur.AreaIsHideout = game.IsHideout(ev.Area, display)
		a.cur.AreaIsTown = game.IsTown(ev.Area, display)
		a.cur.AreaEnteredAt = ev.Time
		a.cur.LastUpdated = ev.Time

	case parser.KindPlayerJoined:
		a.others[ev.Name] = struct{}{}
		a.cur.LastUpdated = ev.Time

	default: // parser.KindUnrecognized
		if a.activityAsLiveness {
			a.cur.LastUpdated = ev.Time
		}
	}

	return a.cur
}
