package main

import (
	"fmt"
	"io"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/lawnchairsociety/battleadvisor/internal/battle"
)

// sweepPoint is the estimate for the player army scaled by Percent.
type sweepPoint struct {
	Percent        int                    `json:"percent"`
	Troops         int                    `json:"troops"`
	WinProbability float64                `json:"win_probability"`
	Confidence     battle.ConfidenceLevel `json:"confidence"`
	PlayerLosses   int                    `json:"player_losses"`
	EnemyLosses    int                    `json:"enemy_losses"`
}

// sweep re-simulates the battle with the player's troop counts scaled from
// fromPct to toPct percent. Bonuses are left unchanged.
func sweep(model battle.Model, player, enemy battle.Army, fromPct, toPct, stepPct int) ([]sweepPoint, error) {
	if stepPct <= 0 {
		return nil, fmt.Errorf("step must be positive, got %d", stepPct)
	}
	if fromPct < 0 || toPct < fromPct {
		return nil, fmt.Errorf("invalid range %d%%..%d%%", fromPct, toPct)
	}

	var points []sweepPoint
	for pct := fromPct; pct <= toPct; pct += stepPct {
		scaled := player
		scaled.Composition = player.Composition.Scale(float64(pct) / 100)

		report, err := model.SimulateAndAdvise(scaled, enemy)
		if err != nil {
			return nil, err
		}
		points = append(points, sweepPoint{
			Percent:        pct,
			Troops:         scaled.Composition.Total(),
			WinProbability: report.WinProbability,
			Confidence:     report.Confidence,
			PlayerLosses:   report.PlayerLosses.Total(),
			EnemyLosses:    report.EnemyLosses.Total(),
		})
	}
	return points, nil
}

// breakEven returns the first point at which the player is favoured.
func breakEven(points []sweepPoint) (sweepPoint, bool) {
	for _, p := range points {
		if p.WinProbability >= 0.5 {
			return p, true
		}
	}
	return sweepPoint{}, false
}

func printSweep(w io.Writer, points []sweepPoint) {
	titleColor.Fprintln(w, "\n📈 Troop Count Sweep")
	fmt.Fprintln(w)

	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Scale", "Troops", "Win", "Confidence", "Player Losses", "Enemy Losses"}),
	)
	for _, p := range points {
		table.Append([]string{
			fmt.Sprintf("%d%%", p.Percent),
			count(p.Troops),
			verdictColor(p.WinProbability).Sprint(percent(p.WinProbability)),
			string(p.Confidence),
			count(p.PlayerLosses),
			count(p.EnemyLosses),
		})
	}
	table.Render()

	fmt.Fprintln(w)
	if p, ok := breakEven(points); ok {
		successColor.Fprintf(w, "✓ Favoured from %d%% (%s troops)\n", p.Percent, count(p.Troops))
	} else {
		dangerColor.Fprintln(w, "✗ Not favoured anywhere in this range")
	}
}

func newSweepCmd() *cobra.Command {
	var (
		playerFile, enemyFile string
		fromPct, toPct, step  int
	)

	cmd := &cobra.Command{
		Use:     "sweep",
		Short:   "Show how the estimate changes with the size of the player army",
		Example: `  battlecalc sweep -p player.yaml -e enemy.yaml --from 50 --to 200 --step 25`,
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := loadModel()
			if err != nil {
				return err
			}
			player, err := loadArmy(playerFile)
			if err != nil {
				return err
			}
			enemy, err := loadArmy(enemyFile)
			if err != nil {
				return err
			}

			points, err := sweep(model, player, enemy, fromPct, toPct, step)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(os.Stdout, points)
			}
			printSweep(os.Stdout, points)
			return nil
		},
	}

	cmd.Flags().StringVarP(&playerFile, "player", "p", "", "Path to the player army YAML file")
	cmd.Flags().StringVarP(&enemyFile, "enemy", "e", "", "Path to the enemy army YAML file")
	cmd.Flags().IntVar(&fromPct, "from", 50, "Smallest scale, in percent of the player army")
	cmd.Flags().IntVar(&toPct, "to", 200, "Largest scale, in percent of the player army")
	cmd.Flags().IntVar(&step, "step", 10, "Scale increment, in percent")
	cmd.MarkFlagRequired("player")
	cmd.MarkFlagRequired("enemy")
	return cmd
}
