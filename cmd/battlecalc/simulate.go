package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newSimulateCmd() *cobra.Command {
	var playerFile, enemyFile string

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Estimate the outcome of a battle",
		Example: `  battlecalc simulate --player data/armies/player.yaml --enemy data/armies/enemy.yaml
  battlecalc simulate -p player.yaml -e enemy.yaml --json`,
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

			report, err := model.SimulateAndAdvise(player, enemy)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(os.Stdout, report)
			}
			printReport(os.Stdout, report, player, enemy)
			return nil
		},
	}

	cmd.Flags().StringVarP(&playerFile, "player", "p", "", "Path to the player army YAML file")
	cmd.Flags().StringVarP(&enemyFile, "enemy", "e", "", "Path to the enemy army YAML file")
	cmd.MarkFlagRequired("player")
	cmd.MarkFlagRequired("enemy")
	return cmd
}
