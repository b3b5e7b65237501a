package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lawnchairsociety/battleadvisor/internal/battle"
	"github.com/lawnchairsociety/battleadvisor/internal/units"
)

func newOptimizeCmd() *cobra.Command {
	var (
		total     int
		enemyFile string
		counts    [units.Count]int
	)

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Suggest a composition that counters an enemy army",
		Example: `  battlecalc optimize --total 2000 --infantry 900 --ranged 700 --cavalry 500 --siege 100
  battlecalc optimize --total 2000 --enemy enemy.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if total < 0 {
				return fmt.Errorf("total must not be negative, got %d", total)
			}

			var enemy units.Composition
			if enemyFile != "" {
				army, err := loadArmy(enemyFile)
				if err != nil {
					return err
				}
				enemy = army.Composition
			}
			for _, t := range units.All {
				if cmd.Flags().Changed(t.String()) {
					enemy[t] = counts[t]
				}
			}

			opt := battle.Optimize(total, enemy)
			if jsonOutput {
				return printJSON(os.Stdout, opt)
			}
			printOptimization(os.Stdout, total, enemy, opt)
			return nil
		},
	}

	cmd.Flags().IntVarP(&total, "total", "t", 0, "Total troops available")
	cmd.Flags().StringVarP(&enemyFile, "enemy", "e", "", "Path to an enemy army YAML file")
	for _, t := range units.All {
		cmd.Flags().IntVar(&counts[t], t.String(), 0, fmt.Sprintf("Enemy %s count (overrides --enemy)", t))
	}
	cmd.MarkFlagRequired("total")
	return cmd
}
