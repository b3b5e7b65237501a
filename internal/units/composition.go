package units

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Composition is the number of troops of each type, indexed by Type.
// Counts are taken as given; negative counts are not rejected.
type Composition [Count]int

// NewComposition builds a composition from the four counts in declaration order.
func NewComposition(infantry, ranged, cavalry, siege int) Composition {
	return Composition{Infantry: infantry, Ranged: ranged, Cavalry: cavalry, Siege: siege}
}

// Total returns the sum of all four counts.
func (c Composition) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// IsEmpty returns true when every count is zero.
func (c Composition) IsEmpty() bool {
	return c == Composition{}
}

// Dominant returns the troop type with the highest count. Ties go to the
// type that comes first in All.
func (c Composition) Dominant() Type {
	best := Infantry
	for _, t := range All[1:] {
		if c[t] > c[best] {
			best = t
		}
	}
	return best
}

// Scale multiplies every count by factor, truncating toward zero.
func (c Composition) Scale(factor float64) Composition {
	var out Composition
	for _, t := range All {
		out[t] = int(float64(c[t]) * factor)
	}
	return out
}

// compositionFields is the wire shape shared by JSON and YAML.
type compositionFields struct {
	Infantry int `json:"infantry" yaml:"infantry"`
	Ranged   int `json:"ranged" yaml:"ranged"`
	Cavalry  int `json:"cavalry" yaml:"cavalry"`
	Siege    int `json:"siege" yaml:"siege"`
}

func (c Composition) fields() compositionFields {
	return compositionFields{
		Infantry: c[Infantry],
		Ranged:   c[Ranged],
		Cavalry:  c[Cavalry],
		Siege:    c[Siege],
	}
}

// MarshalJSON encodes the composition as {"infantry":..,"ranged":..,"cavalry":..,"siege":..}.
func (c Composition) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.fields())
}

// UnmarshalJSON decodes a composition object. Missing types default to zero,
// unknown keys are ignored and non-integer counts are malformed input.
func (c *Composition) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: composition must be an object: %v", ErrMalformed, err)
	}

	var out Composition
	for _, t := range All {
		value, ok := raw[t.String()]
		if !ok {
			continue
		}
		if err := json.Unmarshal(value, &out[t]); err != nil {
			return fmt.Errorf("%w: %s count must be an integer", ErrMalformed, t)
		}
	}

	*c = out
	return nil
}

// MarshalYAML encodes the composition as a mapping keyed by troop type.
func (c Composition) MarshalYAML() (interface{}, error) {
	return c.fields(), nil
}

// UnmarshalYAML decodes a mapping keyed by troop type. Unlike JSON, unknown
// troop types are rejected so typos in army files surface.
func (c *Composition) UnmarshalYAML(value *yaml.Node) error {
	var raw map[string]int
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("%w: composition: %v", ErrMalformed, err)
	}

	var out Composition
	for name, n := range raw {
		t, err := ParseType(name)
		if err != nil {
			return err
		}
		out[t] = n
	}

	*c = out
	return nil
}
