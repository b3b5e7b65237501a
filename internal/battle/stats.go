package battle

import "github.com/lawnchairsociety/battleadvisor/internal/units"

// Stats are the aggregate effective stats of an army.
type Stats struct {
	TotalAttack  float64 `json:"total_attack"`
	TotalDefense float64 `json:"total_defense"`
	TotalHP      float64 `json:"total_hp"`
	UnitCount    int     `json:"unit_count"`
}

// EffectiveStats multiplies each troop type's base stats by the research
// bonus and, when a hero is present, the hero's army bonus, then sums them
// over the composition. Types with a count of zero or less contribute no
// stats, but UnitCount is the plain sum of all four counts.
func (m Model) EffectiveStats(comp units.Composition, hero *Hero, research Research) Stats {
	var s Stats
	for _, t := range units.All {
		count := comp[t]
		s.UnitCount += count
		if count <= 0 {
			continue
		}

		base := m.Units.Get(t)
		attack := base.Attack * (1 + research.Attack/100)
		defense := base.Defense * (1 + research.Defense/100)
		hp := base.HP * (1 + research.HP/100)

		if hero != nil {
			attack *= 1 + hero.ArmyAttack/100
			defense *= 1 + hero.ArmyDefense/100
			hp *= 1 + hero.ArmyHP/100
		}

		s.TotalAttack += attack * float64(count)
		s.TotalDefense += defense * float64(count)
		s.TotalHP += hp * float64(count)
	}
	return s
}
