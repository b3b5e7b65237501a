package battle

import (
	"math"

	"github.com/lawnchairsociety/battleadvisor/internal/units"
)

// Result is the presentation form of a Report as returned to API clients
// and stored in battle history. Figures are rounded; the Report they come
// from is not.
type Result struct {
	BattleID        string            `json:"battle_id"`
	WinProbability  float64           `json:"win_probability"`
	ExpectedLosses  units.Composition `json:"expected_losses"`
	EnemyLosses     units.Composition `json:"enemy_losses"`
	Recommendation  string            `json:"recommendation"`
	ConfidenceLevel ConfidenceLevel   `json:"confidence_level"`
	Details         Details           `json:"details"`
}

// Details carries the rounded power figures behind a Result.
type Details struct {
	PlayerPower   float64 `json:"player_power"`
	EnemyPower    float64 `json:"enemy_power"`
	TypeAdvantage float64 `json:"type_advantage"`
}

// NewResult rounds a report for presentation: win probability and type
// advantage to 3 decimals, powers to 2.
func NewResult(battleID string, r Report) Result {
	return Result{
		BattleID:        battleID,
		WinProbability:  round(r.WinProbability, 3),
		ExpectedLosses:  r.PlayerLosses,
		EnemyLosses:     r.EnemyLosses,
		Recommendation:  r.Recommendation,
		ConfidenceLevel: r.Confidence,
		Details: Details{
			PlayerPower:   round(r.PlayerPower, 2),
			EnemyPower:    round(r.EnemyPower, 2),
			TypeAdvantage: round(r.TypeAdvantage, 3),
		},
	}
}

func round(x float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(x*scale) / scale
}
