package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/lawnchairsociety/battleadvisor/internal/battle"
	"github.com/lawnchairsociety/battleadvisor/internal/units"
)

var (
	titleColor   = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen, color.Bold)
	warnColor    = color.New(color.FgYellow, color.Bold)
	dangerColor  = color.New(color.FgRed, color.Bold)
	infoColor    = color.New(color.FgYellow)
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// verdictColor picks the colour for a win probability.
func verdictColor(winProbability float64) *color.Color {
	switch {
	case winProbability >= 0.5:
		return successColor
	case winProbability >= 0.3:
		return warnColor
	default:
		return dangerColor
	}
}

func percent(p float64) string {
	return fmt.Sprintf("%.1f%%", p*100)
}

func power(p float64) string {
	return humanize.CommafWithDigits(p, 2)
}

func count(n int) string {
	return humanize.Comma(int64(n))
}

func printReport(w io.Writer, report battle.Report, player, enemy battle.Army) {
	titleColor.Fprintln(w, "\n⚔️  Battle Estimate")
	fmt.Fprintln(w)

	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Troop", "Player", "Player Losses", "Enemy", "Enemy Losses"}),
	)
	for _, t := range units.All {
		table.Append([]string{
			t.String(),
			count(player.Composition[t]),
			count(report.PlayerLosses[t]),
			count(enemy.Composition[t]),
			count(report.EnemyLosses[t]),
		})
	}
	table.Append([]string{
		"total",
		count(player.Composition.Total()),
		count(report.PlayerLosses.Total()),
		count(enemy.Composition.Total()),
		count(report.EnemyLosses.Total()),
	})
	table.Render()

	fmt.Fprintln(w, "\n📊 Power:")
	fmt.Fprintf(w, "   Player: %s (advantage ×%.3f)\n", power(report.PlayerPower), report.PlayerAdvantage)
	fmt.Fprintf(w, "   Enemy:  %s (advantage ×%.3f)\n", power(report.EnemyPower), report.EnemyAdvantage)
	fmt.Fprintf(w, "   Type advantage: %+.3f\n", report.TypeAdvantage)

	fmt.Fprintln(w)
	verdictColor(report.WinProbability).Fprintf(w, "Win probability: %s (%s confidence)\n",
		percent(report.WinProbability), report.Confidence)
	infoColor.Fprintf(w, "💡 %s\n", report.Recommendation)
}

func printOptimization(w io.Writer, total int, enemy units.Composition, opt battle.Optimization) {
	titleColor.Fprintln(w, "\n🛡️  Suggested Composition")
	fmt.Fprintln(w)

	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Troop", "Enemy", "Suggested", "Share"}),
	)
	for _, t := range units.All {
		share := "-"
		if total > 0 {
			share = percent(float64(opt.Composition[t]) / float64(total))
		}
		table.Append([]string{
			t.String(),
			count(enemy[t]),
			count(opt.Composition[t]),
			share,
		})
	}
	table.Render()

	fmt.Fprintln(w)
	infoColor.Fprintf(w, "💡 %s\n", opt.Rationale)
	fmt.Fprintf(w, "   Infantry counters %s ranged, ranged counters %s cavalry, cavalry counters %s infantry\n",
		count(opt.Countered.InfantryCounters),
		count(opt.Countered.RangedCounters),
		count(opt.Countered.CavalryCounters))
}
