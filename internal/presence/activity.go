package presence

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"tools.zach/dev/exilecord/internal/discord"
	"tools.zach/dev/exilecord/internal/status"
)

// ///////////////////////////////////////////////
// Activity Building
// ///////////////////////////////////////////////

// BuildActivity maps a Status snapshot to the Discord activity payload, or nil
// when there is nothing to show (no character seen yet, or the character is
// suppressed by a privacy pattern). Classification flags on the Status only
// affect presentation here; the aggregator records areas literally.
func BuildActivity(s status.Status, opts Options) *discord.Activity {
	if !s.HasCharacter() && !s.HasArea() {
		return nil
	}
	if matchesIgnorePattern(opts.IgnoredCharacters, s.CharacterName) {
		return nil
	}

	vars := templateVars(s, opts)

	a := &discord.Activity{
		Details: applyTemplate(resolveDetailsFormat(s, opts), vars),
		State:   applyTemplate(resolveStateFormat(s, opts), vars),
	}
	if !s.AreaEnteredAt.IsZero() {
		a.Timestamps = &discord.Timestamps{Start: s.AreaEnteredAt.Unix()}
	}
	if s.Class != "" {
		key, text := s.Class.AssetKey(), string(s.Class)
		if s.Ascendancy != "" {
			key, text = s.Ascendancy.AssetKey(), string(s.Ascendancy)
		}
		a.Assets = &discord.Assets{
			LargeImage: key,
			LargeText:  text,
		}
	}
	return a
}

// resolveDetailsFormat picks the details template for the snapshot. Before a
// character line has been seen there is nothing to template, so a fixed
// placeholder is shown instead.
func resolveDetailsFormat(s status.Status, opts Options) string {
	if !s.HasCharacter() {
		return "Loading character"
	}
	return opts.DetailsFormat
}

// resolveStateFormat picks the state template. Towns and hideouts drop the
// area-level framing: a level number on a safe zone reads like a map tier.
func resolveStateFormat(s status.Status, opts Options) string {
	switch {
	case !s.HasArea():
		return ""
	case s.AreaIsHideout, s.AreaIsTown, s.AreaLevel == 0:
		return opts.StateNoLevelFormat
	default:
		return opts.StateFormat
	}
}

// templateVars computes the placeholder substitutions for one snapshot.
// HideCharacterName swaps the name for the class so templates keep working
// without leaking the character.
func templateVars(s status.Status, opts Options) map[string]string {
	name := s.CharacterName
	if opts.HideCharacterName || name == "" {
		name = string(s.Class)
	}
	class := string(s.Class)
	if s.Ascendancy != "" {
		class = string(s.Ascendancy)
	}
	return map[string]string{
		"{character}":  name,
		"{class}":      class,
		"{level}":      strconv.Itoa(s.Level),
		"{area}":       s.Area,
		"{area_level}": strconv.Itoa(s.AreaLevel),
	}
}

// applyTemplate renders a template string by replacing {name} placeholders.
// Unknown placeholders are left as-is so config typos are visible in the
// rendered presence instead of silently vanishing.
func applyTemplate(tmpl string, vars map[string]string) string {
	s := tmpl
	for k, v := range vars {
		s = strings.ReplaceAll(s, k, v)
	}
	return strings.TrimSpace(s)
}

// matchesIgnorePattern reports whether name matches any of the configured
// doublestar privacy patterns. Invalid patterns never match.
func matchesIgnorePattern(patterns []string, name string) bool {
	if name == "" {
		return false
	}
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}

// ///////////////////////////////////////////////
// Activity Hashing
// ///////////////////////////////////////////////

// activityHash returns a digest of the payload fields for dedup comparison,
// so identical consecutive snapshots do not hit the socket. A nil activity
// hashes to a distinct constant so clear-vs-set transitions are never
// suppressed.
func activityHash(a *discord.Activity) string {
	if a == nil {
		return "nil"
	}
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s", a.Details, a.State)
	if a.Timestamps != nil {
		fmt.Fprintf(h, "|%d", a.Timestamps.Start)
	}
	if a.Assets != nil {
		fmt.Fprintf(h, "|%s|%s", a.Assets.LargeImage, a.Assets.LargeText)
	}
	return hex.EncodeToString(h.Sum(nil))
}
