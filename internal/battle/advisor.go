package battle

import "fmt"

// ConfidenceLevel labels how decisive a predicted outcome is.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "High"
	ConfidenceMedium ConfidenceLevel = "Medium"
	ConfidenceLow    ConfidenceLevel = "Low"
)

const (
	confidentWin  = 0.7
	favorableWin  = 0.5
	closeBattle   = 0.3
	poorMatchup   = -0.1
	highUpper     = 0.7
	highLower     = 0.3
	mediumUpper   = 0.6
	mediumLower   = 0.4
	closeBattleAt = "Close battle. "
	highRiskAt    = "High risk of defeat. "
)

// Recommendation texts.
const (
	AdviceConfidentWin    = "Strong victory expected! Proceed with confidence."
	AdviceFavorable       = "Favorable battle. Consider attacking if losses are acceptable."
	AdviceAdjustMatchup   = "Consider adjusting army composition for better type advantage."
	AdviceAddStrength     = "Consider adding more troops or improving hero/research bonuses."
	AdviceWeakMatchup     = "Your army composition is weak against enemy. "
	AdviceIncreaseOverall = "Consider significantly increasing army size or improving bonuses."
)

// Recommend turns a simulated outcome into advice for the player.
//
// Below 30% win probability with a clearly unfavourable matchup, it names the
// enemy's most numerous troop type and the type that counters it.
func (m Model) Recommend(outcome Outcome, player, enemy Army) string {
	p := outcome.WinProbability

	switch {
	case p >= confidentWin:
		return AdviceConfidentWin
	case p >= favorableWin:
		return AdviceFavorable
	case p >= closeBattle:
		if outcome.TypeAdvantage < poorMatchup {
			return closeBattleAt + AdviceAdjustMatchup
		}
		return closeBattleAt + AdviceAddStrength
	}

	if outcome.TypeAdvantage >= poorMatchup {
		return highRiskAt + AdviceIncreaseOverall
	}

	advice := highRiskAt + AdviceWeakMatchup
	dominant := enemy.Composition.Dominant()
	if counter := m.Units.CounterOf(dominant); counter.IsValid() {
		advice += fmt.Sprintf("Add more %s to counter their %s.", counter, dominant)
	}
	return advice
}

// Confidence labels a win probability. The bands overlap; the first match
// wins, so 0.70 is High rather than Medium.
func Confidence(winProbability float64) ConfidenceLevel {
	switch {
	case winProbability >= highUpper || winProbability <= highLower:
		return ConfidenceHigh
	case winProbability >= mediumUpper || winProbability <= mediumLower:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
