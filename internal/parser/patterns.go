package parser

import "regexp"

// Timestamp prefix format in Client.txt: "2026/08/29 20:01:02"
const timestampLayout = "2006/01/02 15:04:05"

// timestampPattern matches the leading timestamp of a standard log line.
var timestampPattern = regexp.MustCompile(`^(\d{4}/\d{2}/\d{2} \d{2}:\d{2}:\d{2})`)

// Compiled patterns for event detection, in match order. First match wins, so
// the strict instance-generation shape precedes its tolerant fallback.
var (
	// Matches: `Generating level 1 area "G1_1" with seed 1084891804`
	// Captures: (1) area level, (2) area code, (3) seed
	generatingPattern = regexp.MustCompile(
		`Generating level (\d+) area "([^"]+)" with seed (\d+)`,
	)

	// Tolerant fallback for generation lines with drifted framing (missing
	// quotes, level, or seed).
	// Matches: `Generating area The Riverbank`
	// Captures: (1) area level (optional), (2) area name
	generatingLoosePattern = regexp.MustCompile(
		`Generating (?:level (\d+) )?area ([^"]+?)\s*$`,
	)

	// Matches: `: Foo (Witch) is now level 2`
	// Matches: `: Foo (Gemling Legionnaire) is now level 65`
	// Captures: (1) character name, (2) class or ascendancy, (3) level
	characterPattern = regexp.MustCompile(
		`: (\S+) \(([A-Za-z ]+)\) is now level (\d+)`,
	)

	// Matches: `Level up! You have reached Level 12`
	// Captures: (1) level
	levelUpPattern = regexp.MustCompile(
		`(?i)Level up! You have reached level (\d+)`,
	)

	// Matches: `: You have entered Clearfell Encampment.`
	// Captures: (1) area display name
	enteredPattern = regexp.MustCompile(
		`: You have entered (.+)\.\s*$`,
	)

	// Matches: `: Foo has joined the area.`
	// Captures: (1) player name
	joinedPattern = regexp.MustCompile(
		`: (\S+) has joined the area\.`,
	)
)
