package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/lawnchairsociety/battleadvisor/internal/config"
	"github.com/lawnchairsociety/battleadvisor/internal/database"
	"github.com/lawnchairsociety/battleadvisor/internal/units"
)

const historyTimeout = 30 * time.Second

func newHistoryCmd() *cobra.Command {
	var (
		configFile string
		dbFile     string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "history [battle-id]",
		Short: "List stored battles, or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			serverCfg, err := config.LoadConfig(configFile)
			if err != nil {
				infoColor.Fprintf(os.Stderr, "Warning: could not load %s, using defaults: %v\n", configFile, err)
			}
			dbCfg := database.FromServerConfig(serverCfg.Database)
			if dbFile != "" {
				dbCfg = database.DefaultConfig(dbFile)
			}

			db, err := database.OpenWithConfig(dbCfg)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), historyTimeout)
			defer cancel()

			if len(args) == 1 {
				rec, err := db.GetBattle(ctx, args[0])
				if err != nil {
					return fmt.Errorf("%s: %w", args[0], err)
				}
				if jsonOutput {
					return printJSON(os.Stdout, rec)
				}
				printBattle(os.Stdout, rec, time.Now())
				return nil
			}

			battles, err := db.RecentBattles(ctx, limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(os.Stdout, battles)
			}
			total, err := db.CountBattles(ctx)
			if err != nil {
				return err
			}
			printHistory(os.Stdout, battles, total, time.Now())
			return nil
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "data/server.yaml", "Path to server config YAML file")
	cmd.Flags().StringVar(&dbFile, "db", "", "Path to a SQLite battle database (overrides --config)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of battles to list (0 for all)")
	return cmd
}

func printHistory(w io.Writer, battles []database.BattleRecord, total int, now time.Time) {
	titleColor.Fprintln(w, "\n📜 Battle History")
	fmt.Fprintln(w)

	if len(battles) == 0 {
		infoColor.Fprintln(w, "No battles recorded yet.")
		return
	}

	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Battle", "When", "Scenario", "Player", "Enemy", "Win", "Confidence"}),
	)
	for _, b := range battles {
		table.Append([]string{
			b.BattleID,
			humanize.RelTime(b.Timestamp, now, "ago", "from now"),
			b.Scenario,
			count(b.PlayerArmy.Composition.Total()),
			count(b.EnemyArmy.Composition.Total()),
			verdictColor(b.Result.WinProbability).Sprint(percent(b.Result.WinProbability)),
			string(b.Result.ConfidenceLevel),
		})
	}
	table.Render()

	fmt.Fprintf(w, "\nShowing %d of %s battles\n", len(battles), count(total))
}

func printBattle(w io.Writer, b *database.BattleRecord, now time.Time) {
	titleColor.Fprintf(w, "\n⚔️  Battle %s\n", b.BattleID)
	fmt.Fprintf(w, "   %s, %s (%s)\n\n",
		b.Scenario,
		humanize.RelTime(b.Timestamp, now, "ago", "from now"),
		b.Timestamp.Format(time.RFC3339))

	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Troop", "Player", "Player Losses", "Enemy", "Enemy Losses"}),
	)
	for _, t := range units.All {
		table.Append([]string{
			t.String(),
			count(b.PlayerArmy.Composition[t]),
			count(b.Result.ExpectedLosses[t]),
			count(b.EnemyArmy.Composition[t]),
			count(b.Result.EnemyLosses[t]),
		})
	}
	table.Render()

	fmt.Fprintln(w, "\n📊 Power:")
	fmt.Fprintf(w, "   Player: %s\n", power(b.Result.Details.PlayerPower))
	fmt.Fprintf(w, "   Enemy:  %s\n", power(b.Result.Details.EnemyPower))
	fmt.Fprintf(w, "   Type advantage: %+.3f\n", b.Result.Details.TypeAdvantage)

	fmt.Fprintln(w)
	verdictColor(b.Result.WinProbability).Fprintf(w, "Win probability: %s (%s confidence)\n",
		percent(b.Result.WinProbability), b.Result.ConfidenceLevel)
	infoColor.Fprintf(w, "💡 %s\n", b.Result.Recommendation)
}
