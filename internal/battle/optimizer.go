package battle

import (
	"fmt"

	"github.com/lawnchairsociety/battleadvisor/internal/units"
)

const (
	balancedShare = 0.3
	siegeShare    = 0.1
	counterFactor = 1.2
)

// CounteredCounts records the enemy troop counts each suggested type is
// meant to counter.
type CounteredCounts struct {
	InfantryCounters int `json:"infantry_counters"`
	RangedCounters   int `json:"ranged_counters"`
	CavalryCounters  int `json:"cavalry_counters"`
}

// Optimization is a suggested troop mix.
type Optimization struct {
	Composition units.Composition `json:"optimal_composition"`
	Rationale   string            `json:"reasoning"`
	Countered   CounteredCounts   `json:"type_advantages"`
}

// Optimize suggests how to split totalTroops against an enemy composition.
//
// With no enemy troops it returns a 30/30/30/10 split. Otherwise it asks for
// 1.2 troops per countered enemy troop (infantry for ranged, ranged for
// cavalry, cavalry for infantry) plus a 10% siege reserve, scales the whole
// request down proportionally when it exceeds the budget, and hands any
// leftover troops to infantry, ranged and cavalry. Every step truncates.
func Optimize(totalTroops int, enemy units.Composition) Optimization {
	opt := Optimization{
		Rationale: fmt.Sprintf("Optimized for %d troops against the given enemy composition", totalTroops),
		Countered: CounteredCounts{
			InfantryCounters: enemy[units.Ranged],
			RangedCounters:   enemy[units.Cavalry],
			CavalryCounters:  enemy[units.Infantry],
		},
	}

	if enemy.Total() == 0 {
		balanced := int(float64(totalTroops) * balancedShare)
		opt.Composition = units.NewComposition(balanced, balanced, balanced, int(float64(totalTroops)*siegeShare))
		return opt
	}

	needed := units.NewComposition(
		int(float64(enemy[units.Ranged])*counterFactor),
		int(float64(enemy[units.Cavalry])*counterFactor),
		int(float64(enemy[units.Infantry])*counterFactor),
		int(float64(totalTroops)*siegeShare),
	)

	if sum := needed.Total(); sum > totalTroops {
		needed = needed.Scale(float64(totalTroops) / float64(sum))
	}

	if remaining := totalTroops - needed.Total(); remaining > 0 {
		third := remaining / 3
		needed[units.Infantry] += third
		needed[units.Ranged] += third
		needed[units.Cavalry] += remaining - 2*third
	}

	opt.Composition = needed
	return opt
}
