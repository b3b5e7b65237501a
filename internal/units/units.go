// Package units defines the four troop types, their base stats and the
// matchup table used by the battle model.
package units

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed is returned when a unit type or unit count cannot be parsed.
var ErrMalformed = errors.New("malformed input")

// Type identifies a troop type. The zero value is Infantry.
type Type int

const (
	// None marks the absence of a unit type, e.g. siege has no unit it is strong against.
	None Type = iota - 1
	Infantry
	Ranged
	Cavalry
	Siege
)

// Count is the number of troop types.
const Count = 4

// All lists every troop type in declaration order. Every iteration over
// troop types uses this order; tie-breaking depends on it.
var All = [Count]Type{Infantry, Ranged, Cavalry, Siege}

var typeNames = [Count]string{"infantry", "ranged", "cavalry", "siege"}

// String returns the lowercase name of the troop type.
func (t Type) String() string {
	if !t.IsValid() {
		return "none"
	}
	return typeNames[t]
}

// IsValid returns true for the four real troop types.
func (t Type) IsValid() bool {
	return t >= Infantry && t <= Siege
}

// ParseType parses a troop type name, case-insensitive.
func ParseType(s string) (Type, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	for _, t := range All {
		if typeNames[t] == normalized {
			return t, nil
		}
	}
	return None, fmt.Errorf("%w: unknown unit type %q", ErrMalformed, s)
}

// parseMatchup parses a strong/weak against entry. Non-unit targets such as
// "wall" or "all" have no unit-type matchup and map to None.
func parseMatchup(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "wall", "walls", "all":
		return None, nil
	}
	return ParseType(s)
}
