package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lawnchairsociety/battleadvisor/internal/battle"
)

// loadArmy reads an army from a YAML file:
//
//	composition:
//	  infantry: 1000
//	  ranged: 800
//	hero:
//	  name: Aldric
//	  army_attack: 15
//	research_attack: 25
func loadArmy(filename string) (battle.Army, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return battle.Army{}, fmt.Errorf("failed to read army file: %w", err)
	}

	var army battle.Army
	if err := yaml.Unmarshal(data, &army); err != nil {
		return battle.Army{}, fmt.Errorf("failed to parse army file %s: %w", filename, err)
	}
	if err := army.Validate(); err != nil {
		return battle.Army{}, fmt.Errorf("%s: %w", filename, err)
	}
	return army, nil
}
