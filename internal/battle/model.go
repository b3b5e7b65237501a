package battle

import "github.com/lawnchairsociety/battleadvisor/internal/units"

// Model evaluates battles against a fixed unit stat table.
// A Model is a value; copying it is cheap and it is never mutated.
type Model struct {
	Units units.Table
}

// NewModel returns a model using the given stat table.
func NewModel(table units.Table) Model {
	return Model{Units: table}
}

// DefaultModel uses the built-in stat table.
var DefaultModel = NewModel(units.DefaultTable())

// EffectiveStats computes army stats with DefaultModel.
func EffectiveStats(comp units.Composition, hero *Hero, research Research) Stats {
	return DefaultModel.EffectiveStats(comp, hero, research)
}

// TypeAdvantage computes the advantage multiplier with DefaultModel.
func TypeAdvantage(own, opposing units.Composition) float64 {
	return DefaultModel.TypeAdvantage(own, opposing)
}

// Simulate runs a battle with DefaultModel.
func Simulate(player, enemy Army) Outcome {
	return DefaultModel.Simulate(player, enemy)
}

// Recommend produces advice with DefaultModel.
func Recommend(outcome Outcome, player, enemy Army) string {
	return DefaultModel.Recommend(outcome, player, enemy)
}

// SimulateAndAdvise runs a full evaluation with DefaultModel.
func SimulateAndAdvise(player, enemy Army) (Report, error) {
	return DefaultModel.SimulateAndAdvise(player, enemy)
}
