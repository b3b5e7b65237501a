package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lawnchairsociety/battleadvisor/internal/battle"
	"github.com/lawnchairsociety/battleadvisor/internal/units"
)

var (
	unitsFile  string
	jsonOutput bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "battlecalc",
		Short: "Battle outcome estimator",
		Long: `Estimates the outcome of a battle between two armies, suggests
counter compositions and inspects the battle history kept by battled.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&unitsFile, "units", "u", "", "Path to unit stats YAML file")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")

	rootCmd.AddCommand(
		newSimulateCmd(),
		newSweepCmd(),
		newOptimizeCmd(),
		newHistoryCmd(),
		newHashKeyCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadModel returns the model for --units, or the built-in one.
func loadModel() (battle.Model, error) {
	if unitsFile == "" {
		return battle.DefaultModel, nil
	}
	table, err := units.LoadTable(unitsFile)
	if err != nil {
		return battle.Model{}, err
	}
	return battle.NewModel(table), nil
}
