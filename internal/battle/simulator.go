package battle

import (
	"math"

	"github.com/lawnchairsociety/battleadvisor/internal/units"
)

const (
	// powerScale divides attack × hp into a readable power figure.
	powerScale = 1000

	// evenOdds is the win probability when neither side has any power.
	evenOdds = 0.5

	lossPerDamage   = 0.3
	maxBaseLossRate = 0.8
	underdogPenalty = 1.5
	maxLossRate     = 0.9
)

// Outcome is the result of a single simulated battle.
type Outcome struct {
	WinProbability float64           `json:"win_probability"`
	PlayerLosses   units.Composition `json:"player_losses"`
	EnemyLosses    units.Composition `json:"enemy_losses"`
	PlayerPower    float64           `json:"player_power"`
	EnemyPower     float64           `json:"enemy_power"`

	// TypeAdvantage is PlayerAdvantage - EnemyAdvantage; positive favours the player.
	TypeAdvantage   float64 `json:"type_advantage"`
	PlayerAdvantage float64 `json:"player_advantage"`
	EnemyAdvantage  float64 `json:"enemy_advantage"`

	PlayerLossRate float64 `json:"player_loss_rate"`
	EnemyLossRate  float64 `json:"enemy_loss_rate"`

	PlayerStats Stats `json:"player_stats"`
	EnemyStats  Stats `json:"enemy_stats"`
}

// Simulate resolves a battle between the player's army and the enemy's.
//
// Each side's power is its total attack, scaled by its type advantage, times
// its total hp. The win probability is the player's share of the combined
// power. Each side loses a fraction of every troop type proportional to the
// opposing power ratio, capped at 80%; the side behind on probability takes
// a further 1.5× penalty capped at 90%.
func (m Model) Simulate(player, enemy Army) Outcome {
	playerStats := m.EffectiveStats(player.Composition, player.Hero, player.Research())
	enemyStats := m.EffectiveStats(enemy.Composition, enemy.Hero, enemy.Research())

	playerAdvantage := m.TypeAdvantage(player.Composition, enemy.Composition)
	enemyAdvantage := m.TypeAdvantage(enemy.Composition, player.Composition)

	playerAttack := playerStats.TotalAttack * playerAdvantage
	enemyAttack := enemyStats.TotalAttack * enemyAdvantage

	playerPower := playerAttack * playerStats.TotalHP / powerScale
	enemyPower := enemyAttack * enemyStats.TotalHP / powerScale

	winProbability := evenOdds
	if total := playerPower + enemyPower; total > 0 {
		winProbability = playerPower / total
	}

	playerLossRate := baseLossRate(damageRatio(enemyPower, playerPower))
	enemyLossRate := baseLossRate(damageRatio(playerPower, enemyPower))

	if winProbability < evenOdds {
		playerLossRate = math.Min(playerLossRate*underdogPenalty, maxLossRate)
	} else {
		enemyLossRate = math.Min(enemyLossRate*underdogPenalty, maxLossRate)
	}

	return Outcome{
		WinProbability:  winProbability,
		PlayerLosses:    player.Composition.Scale(playerLossRate),
		EnemyLosses:     enemy.Composition.Scale(enemyLossRate),
		PlayerPower:     playerPower,
		EnemyPower:      enemyPower,
		TypeAdvantage:   playerAdvantage - enemyAdvantage,
		PlayerAdvantage: playerAdvantage,
		EnemyAdvantage:  enemyAdvantage,
		PlayerLossRate:  playerLossRate,
		EnemyLossRate:   enemyLossRate,
		PlayerStats:     playerStats,
		EnemyStats:      enemyStats,
	}
}

// damageRatio is the damage a side with power defender receives from a side
// with power attacker. A powerless defender takes a ratio of 1.
func damageRatio(attacker, defender float64) float64 {
	if defender > 0 {
		return attacker / defender
	}
	return 1
}

func baseLossRate(damage float64) float64 {
	return math.Min(damage*lossPerDamage, maxBaseLossRate)
}
