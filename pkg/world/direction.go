package world

import "strings"

// Direction is one of the eight compass directions an exit can point.
type Direction string

const (
	North     Direction = "n"
	NorthEast Direction = "ne"
	East      Direction = "e"
	SouthEast Direction = "se"
	South     Direction = "s"
	SouthWest Direction = "sw"
	West      Direction = "w"
	NorthWest Direction = "nw"
)

// Directions lists every direction in compass order, starting north and turning clockwise.
var Directions = []Direction{North, NorthEast, East, SouthEast, South, SouthWest, West, NorthWest}

var directionNames = map[Direction]string{
	North:     "north",
	NorthEast: "northeast",
	East:      "east",
	SouthEast: "southeast",
	South:     "south",
	SouthWest: "southwest",
	West:      "west",
	NorthWest: "northwest",
}

// ParseDirection accepts short ("ne") and long ("northeast", "north-east", "north east") forms.
func ParseDirection(s string) (Direction, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("-", "", "_", "", " ", "").Replace(s)
	if s == "" {
		return "", false
	}
	for d, name := range directionNames {
		if s == string(d) || s == name {
			return d, true
		}
	}
	return "", false
}

// Valid reports whether d is one of the eight compass directions.
func (d Direction) Valid() bool {
	_, ok := directionNames[d]
	return ok
}

// Name returns the long lowercase name, e.g. "northeast".
func (d Direction) Name() string {
	return directionNames[d]
}

// Label returns the short uppercase label used in log lines, e.g. "NE".
func (d Direction) Label() string {
	return strings.ToUpper(string(d))
}
