package battle

import "github.com/lawnchairsociety/battleadvisor/internal/units"

// advantageWeight is the score per own-troop/countered-troop pair.
const advantageWeight = 0.25

// TypeAdvantage returns the attack multiplier own gains from unit-type
// matchups against opposing. It is 1.0 when either side has no troops and
// grows as own's troops counter opposing's. The result is directional: call it
// once per side with the arguments swapped.
func (m Model) TypeAdvantage(own, opposing units.Composition) float64 {
	score := 0.0
	for _, t := range units.All {
		count := own[t]
		if count <= 0 {
			continue
		}
		target := m.Units.Get(t).StrongAgainst
		if !target.IsValid() {
			continue
		}
		score += float64(count) * float64(opposing[target]) * advantageWeight
	}

	totalOwn := own.Total()
	totalOpposing := opposing.Total()
	if totalOwn > 0 && totalOpposing > 0 {
		return 1 + score/(float64(totalOwn)*float64(totalOpposing))
	}
	return 1.0
}
