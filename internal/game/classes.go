// Package game holds Path of Exile 2 domain knowledge: the character class
// and ascendancy model, and the area name table with its hideout/town
// classification heuristics.
package game

import "strings"

// ///////////////////////////////////////////////
// Classes
// ///////////////////////////////////////////////

// Class is a base character class.
type Class string

const (
	ClassMercenary Class = "Mercenary"
	ClassMonk      Class = "Monk"
	ClassRanger    Class = "Ranger"
	ClassSorceress Class = "Sorceress"
	ClassWarrior   Class = "Warrior"
	ClassWitch     Class = "Witch"
)

// classes maps lowercase names to classes for parsing.
var classes = map[string]Class{
	"mercenary": ClassMercenary,
	"monk":      ClassMonk,
	"ranger":    ClassRanger,
	"sorceress": ClassSorceress,
	"warrior":   ClassWarrior,
	"witch":     ClassWitch,
}

// ParseClass resolves a class name from the log, case-insensitively.
func ParseClass(s string) (Class, bool) {
	c, ok := classes[strings.ToLower(s)]
	return c, ok
}

// AssetKey returns the Discord image asset key for the class.
func (c Class) AssetKey() string {
	return strings.ToLower(string(c))
}

// ///////////////////////////////////////////////
// Ascendancies
// ///////////////////////////////////////////////

// Ascendancy is a class specialization chosen during the campaign. Log lines
// report the ascendancy in place of the base class once one is picked.
type Ascendancy string

const (
	AscWitchhunter        Ascendancy = "Witchhunter"
	AscGemlingLegionnaire Ascendancy = "Gemling Legionnaire"
	AscAcolyteOfChayula   Ascendancy = "Acolyte of Chayula"
	AscInvoker            Ascendancy = "Invoker"
	AscDeadeye            Ascendancy = "Deadeye"
	AscPathfinder         Ascendancy = "Pathfinder"
	AscChronomancer       Ascendancy = "Chronomancer"
	AscStormweaver        Ascendancy = "Stormweaver"
	AscTitan              Ascendancy = "Titan"
	AscWarbringer         Ascendancy = "Warbringer"
	AscBloodMage          Ascendancy = "Blood Mage"
	AscInfernalist        Ascendancy = "Infernalist"
)

// ascendancyClass maps each ascendancy to its base class.
var ascendancyClass = map[Ascendancy]Class{
	AscWitchhunter:        ClassMercenary,
	AscGemlingLegionnaire: ClassMercenary,
	AscAcolyteOfChayula:   ClassMonk,
	AscInvoker:            ClassMonk,
	AscDeadeye:            ClassRanger,
	AscPathfinder:         ClassRanger,
	AscChronomancer:       ClassSorceress,
	AscStormweaver:        ClassSorceress,
	AscTitan:              ClassWarrior,
	AscWarbringer:         ClassWarrior,
	AscBloodMage:          ClassWitch,
	AscInfernalist:        ClassWitch,
}

// ascendancies maps lowercase names to ascendancies for parsing.
var ascendancies = func() map[string]Ascendancy {
	m := make(map[string]Ascendancy, len(ascendancyClass))
	for a := range ascendancyClass {
		m[strings.ToLower(string(a))] = a
	}
	return m
}()

// ParseAscendancy resolves an ascendancy name from the log, case-insensitively.
func ParseAscendancy(s string) (Ascendancy, bool) {
	a, ok := ascendancies[strings.ToLower(s)]
	return a, ok
}

// Class returns the base class the ascendancy belongs to.
func (a Ascendancy) Class() Class {
	return ascendancyClass[a]
}

// AssetKey returns the Discord image asset key for the ascendancy, e.g.
// "witch_infernalist" or "mercenary_gemling_legionnaire".
func (a Ascendancy) AssetKey() string {
	name := strings.ReplaceAll(strings.ToLower(string(a)), " ", "_")
	return strings.ToLower(string(a.Class())) + "_" + name
}

// ///////////////////////////////////////////////
// Token Resolution
// ///////////////////////////////////////////////

// ResolveClassToken resolves the parenthesized token from a level-up line,
// which carries the ascendancy once one is chosen and the base class before
// that. Ascendancies are tried first since their names are the more specific
// set. Returns ok=false for tokens that are neither, such as monster or NPC
// names that happen to match the line shape.
func ResolveClassToken(s string) (Class, Ascendancy, bool) {
	if a, ok := ParseAscendancy(s); ok {
		return a.Class(), a, true
	}
	if c, ok := ParseClass(s); ok {
		return c, "", true
	}
	return "", "", false
}
