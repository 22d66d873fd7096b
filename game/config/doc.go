// Package config provides configuration management for Operation Skytrack.
//
// The config package handles:
//   - Loading rule sets from JSON files in the configs directory
//   - Loading the world (countries, airports, clues, informants) from YAML
//   - Process settings from the environment, database selection included
//
// Rule Sets:
//
// Each JSON file in the configs directory is one rule set, validated by
// engine.ParseRules. Two ship with the game:
//   - classic: refuels capped at 1000 units, fuel sold everywhere
//   - priced: refuels uncapped but only where fuel is sold, at a price
//
// When no classic.json exists the built-in engine.DefaultRules are used.
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//	rules, err := manager.LoadConfig("priced")
//
//	world, err := config.LoadWorld("data/world.yaml")
//
//	settings, err := config.LoadSettings()
//	dialector := settings.Database.GetDialector()
package config
