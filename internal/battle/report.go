package battle

import "fmt"

// Report is the full evaluation of a battle: the simulated outcome plus the
// advice derived from it.
type Report struct {
	Outcome
	Recommendation string          `json:"recommendation"`
	Confidence     ConfidenceLevel `json:"confidence"`
}

// SimulateAndAdvise validates both armies, simulates the battle and derives
// the recommendation and confidence label. It either returns a complete
// report or an error wrapping ErrMalformedInput.
func (m Model) SimulateAndAdvise(player, enemy Army) (Report, error) {
	if err := player.Validate(); err != nil {
		return Report{}, fmt.Errorf("player army: %w", err)
	}
	if err := enemy.Validate(); err != nil {
		return Report{}, fmt.Errorf("enemy army: %w", err)
	}

	outcome := m.Simulate(player, enemy)
	return Report{
		Outcome:        outcome,
		Recommendation: m.Recommend(outcome, player, enemy),
		Confidence:     Confidence(outcome.WinProbability),
	}, nil
}
