// Package battle implements the battle outcome model: effective army stats,
// unit-type advantage, win probability, expected losses, recommendations and
// counter-composition suggestions.
//
// Every function in this package is a pure function of its arguments and is
// safe for concurrent use.
package battle

import (
	"fmt"
	"math"

	"github.com/lawnchairsociety/battleadvisor/internal/units"
)

// ErrMalformedInput is the single failure class of the battle model.
var ErrMalformedInput = units.ErrMalformed

// Hero is the optional commander of an army. Bonuses are percentages.
// AttackBonus, DefenseBonus and HPBonus apply to the hero alone and are not
// used by the model; the Army* bonuses apply to every troop.
type Hero struct {
	Name         string  `json:"name" yaml:"name"`
	AttackBonus  float64 `json:"attack_bonus" yaml:"attack_bonus"`
	DefenseBonus float64 `json:"defense_bonus" yaml:"defense_bonus"`
	HPBonus      float64 `json:"hp_bonus" yaml:"hp_bonus"`
	ArmyAttack   float64 `json:"army_attack" yaml:"army_attack"`
	ArmyDefense  float64 `json:"army_defense" yaml:"army_defense"`
	ArmyHP       float64 `json:"army_hp" yaml:"army_hp"`
}

// Research holds the three research percentage bonuses of an army.
type Research struct {
	Attack  float64
	Defense float64
	HP      float64
}

// Army is one side of a battle.
type Army struct {
	Composition     units.Composition `json:"composition" yaml:"composition"`
	Hero            *Hero             `json:"hero,omitempty" yaml:"hero,omitempty"`
	ResearchAttack  float64           `json:"research_attack" yaml:"research_attack"`
	ResearchDefense float64           `json:"research_defense" yaml:"research_defense"`
	ResearchHP      float64           `json:"research_hp" yaml:"research_hp"`
}

// Research returns the army's research bonuses.
func (a Army) Research() Research {
	return Research{Attack: a.ResearchAttack, Defense: a.ResearchDefense, HP: a.ResearchHP}
}

type namedBonus struct {
	name  string
	value float64
}

// Validate reports malformed bonuses. Unit counts are accepted as given.
func (a Army) Validate() error {
	bonuses := []namedBonus{
		{"research_attack", a.ResearchAttack},
		{"research_defense", a.ResearchDefense},
		{"research_hp", a.ResearchHP},
	}
	if a.Hero != nil {
		bonuses = append(bonuses,
			namedBonus{"hero.army_attack", a.Hero.ArmyAttack},
			namedBonus{"hero.army_defense", a.Hero.ArmyDefense},
			namedBonus{"hero.army_hp", a.Hero.ArmyHP},
		)
	}

	for _, b := range bonuses {
		if math.IsNaN(b.value) || math.IsInf(b.value, 0) {
			return fmt.Errorf("%w: %s must be a finite number", ErrMalformedInput, b.name)
		}
	}
	return nil
}
