package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lawnchairsociety/battleadvisor/internal/battle"
	"github.com/lawnchairsociety/battleadvisor/internal/units"
)

const playerYAML = `
composition:
  infantry: 1000
  ranged: 800
  cavalry: 600
  siege: 200
hero:
  name: Aldric
  army_attack: 15
  army_defense: 10
  army_hp: 8
research_attack: 25
research_defense: 20
research_hp: 15
`

const enemyYAML = `
composition:
  infantry: 900
  ranged: 700
  cavalry: 500
  siege: 100
hero:
  name: Morgath
  army_attack: 12
  army_defense: 8
  army_hp: 5
research_attack: 20
research_defense: 15
research_hp: 10
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadArmy(t *testing.T) {
	army, err := loadArmy(writeFile(t, "player.yaml", playerYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if army.Composition != units.NewComposition(1000, 800, 600, 200) {
		t.Errorf("unexpected composition %v", army.Composition)
	}
	if army.Hero == nil || army.Hero.Name != "Aldric" || army.Hero.ArmyAttack != 15 {
		t.Errorf("unexpected hero %+v", army.Hero)
	}
	if army.Research() != (battle.Research{Attack: 25, Defense: 20, HP: 15}) {
		t.Errorf("unexpected research %+v", army.Research())
	}
}

func TestLoadArmy_Errors(t *testing.T) {
	if _, err := loadArmy(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	_, err := loadArmy(writeFile(t, "typo.yaml", "composition:\n  infantri: 10\n"))
	if !errors.Is(err, units.ErrMalformed) {
		t.Errorf("expected malformed error for unknown troop type, got %v", err)
	}

	_, err = loadArmy(writeFile(t, "nan.yaml", "composition:\n  infantry: 10\nresearch_attack: .nan\n"))
	if !errors.Is(err, battle.ErrMalformedInput) {
		t.Errorf("expected malformed error for NaN bonus, got %v", err)
	}
}

func TestSweep(t *testing.T) {
	player, err := loadArmy(writeFile(t, "player.yaml", playerYAML))
	if err != nil {
		t.Fatal(err)
	}
	enemy, err := loadArmy(writeFile(t, "enemy.yaml", enemyYAML))
	if err != nil {
		t.Fatal(err)
	}

	points, err := sweep(battle.DefaultModel, player, enemy, 50, 150, 25)
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 5 {
		t.Fatalf("expected 5 points, got %d", len(points))
	}

	if points[2].Percent != 100 || points[2].Troops != 2600 {
		t.Errorf("unexpected midpoint %+v", points[2])
	}
	want, _ := battle.SimulateAndAdvise(player, enemy)
	if points[2].WinProbability != want.WinProbability {
		t.Errorf("100%% point should match a plain simulation: %v vs %v", points[2].WinProbability, want.WinProbability)
	}

	for i := 1; i < len(points); i++ {
		if points[i].WinProbability < points[i-1].WinProbability {
			t.Errorf("win probability should not fall as the army grows: %+v then %+v", points[i-1], points[i])
		}
	}

	p, ok := breakEven(points)
	if !ok || p.Percent > 100 {
		t.Errorf("expected break-even at or below 100%%, got %+v (%v)", p, ok)
	}
}

func TestSweep_InvalidRange(t *testing.T) {
	army := battle.Army{Composition: units.NewComposition(10, 0, 0, 0)}

	for _, tt := range []struct{ from, to, step int }{
		{50, 100, 0},
		{100, 50, 10},
		{-10, 50, 10},
	} {
		if _, err := sweep(battle.DefaultModel, army, army, tt.from, tt.to, tt.step); err == nil {
			t.Errorf("sweep(%d, %d, %d): expected error", tt.from, tt.to, tt.step)
		}
	}
}

func TestBreakEven_None(t *testing.T) {
	if _, ok := breakEven([]sweepPoint{{Percent: 50, WinProbability: 0.2}}); ok {
		t.Error("expected no break-even point")
	}
}

func TestPrintReport(t *testing.T) {
	player, _ := loadArmy(writeFile(t, "player.yaml", playerYAML))
	enemy, _ := loadArmy(writeFile(t, "enemy.yaml", enemyYAML))
	report, err := battle.SimulateAndAdvise(player, enemy)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	printReport(&buf, report, player, enemy)
	out := buf.String()

	for _, want := range []string{"infantry", "1,000", "62.0%", "Medium", battle.AdviceFavorable} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestFormatting(t *testing.T) {
	if got := count(1234567); got != "1,234,567" {
		t.Errorf("count = %q", got)
	}
	if got := percent(0.6201); got != "62.0%" {
		t.Errorf("percent = %q", got)
	}
	if got := power(1053871904.11); got != "1,053,871,904.11" {
		t.Errorf("power = %q", got)
	}
}
