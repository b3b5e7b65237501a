package units

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Stats holds the base stats of one troop type.
type Stats struct {
	Attack        float64
	Defense       float64
	HP            float64
	StrongAgainst Type
	WeakAgainst   Type
}

// Table holds the stats of every troop type, indexed by Type.
// Tables are values; a loaded table is never modified afterwards.
type Table [Count]Stats

// DefaultTable returns the built-in stat table.
func DefaultTable() Table {
	return Table{
		Infantry: {Attack: 100, Defense: 120, HP: 800, StrongAgainst: Ranged, WeakAgainst: Cavalry},
		Ranged:   {Attack: 110, Defense: 80, HP: 600, StrongAgainst: Cavalry, WeakAgainst: Infantry},
		Cavalry:  {Attack: 130, Defense: 90, HP: 700, StrongAgainst: Infantry, WeakAgainst: Ranged},
		// Siege is strong against walls and weak against everything, neither of
		// which is a unit matchup.
		Siege: {Attack: 200, Defense: 60, HP: 500, StrongAgainst: None, WeakAgainst: None},
	}
}

// Get returns the stats for a troop type.
func (t Table) Get(ut Type) Stats {
	return t[ut]
}

// CounterOf returns the first troop type that is strong against target,
// or None if nothing counters it.
func (t Table) CounterOf(target Type) Type {
	if !target.IsValid() {
		return None
	}
	for _, ut := range All {
		if t[ut].StrongAgainst == target {
			return ut
		}
	}
	return None
}

// statsDefinition is a single unit row in units.yaml.
type statsDefinition struct {
	Attack        *float64 `yaml:"attack"`
	Defense       *float64 `yaml:"defense"`
	HP            *float64 `yaml:"hp"`
	StrongAgainst *string  `yaml:"strong_against"`
	WeakAgainst   *string  `yaml:"weak_against"`
}

// tableFile is the structure of units.yaml.
type tableFile struct {
	Units map[string]statsDefinition `yaml:"units"`
}

// LoadTable reads a units.yaml override file. Rows and fields missing from the
// file keep their built-in values.
func LoadTable(filename string) (Table, error) {
	table := DefaultTable()

	data, err := os.ReadFile(filename)
	if err != nil {
		return table, fmt.Errorf("failed to read units file: %w", err)
	}

	var file tableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return table, fmt.Errorf("failed to parse units file: %w", err)
	}

	return table.apply(file)
}

func (t Table) apply(file tableFile) (Table, error) {
	for name, def := range file.Units {
		ut, err := ParseType(name)
		if err != nil {
			return t, err
		}
		row := t[ut]
		if def.Attack != nil {
			row.Attack = *def.Attack
		}
		if def.Defense != nil {
			row.Defense = *def.Defense
		}
		if def.HP != nil {
			row.HP = *def.HP
		}
		if def.StrongAgainst != nil {
			if row.StrongAgainst, err = parseMatchup(*def.StrongAgainst); err != nil {
				return t, fmt.Errorf("unit %s: %w", name, err)
			}
		}
		if def.WeakAgainst != nil {
			if row.WeakAgainst, err = parseMatchup(*def.WeakAgainst); err != nil {
				return t, fmt.Errorf("unit %s: %w", name, err)
			}
		}
		t[ut] = row
	}
	return t, nil
}
