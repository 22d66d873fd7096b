// Command validate provides a small CLI that lints the world file and the
// rule sets in the configs directory. It checks:
//   - YAML/JSON structure, unknown fields and required fields
//   - Airport ids, idents, country references and coordinates
//   - Fuel stops: at least one, and no fuel_available airport without a price
//   - Rule values (positive fuel and rate, distinct start and target)
//   - Rule airports exist in the world
//   - Feasibility: the target can be reached within the refuel limit
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/skytrack/game/config"
	"github.com/wricardo/skytrack/game/engine"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// validateWorld loads and lints a world file. The returned world is nil when
// the file could not be parsed.
func validateWorld(filePath string) (ValidationResult, *config.World) {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	world, err := config.LoadWorld(filePath)
	if err != nil {
		result.fail("%v", err)
		return result, nil
	}

	idents := make(map[string]int64)
	fuelStops := 0
	clues := 0
	for _, a := range world.Airports {
		if a.Ident != "" {
			if other, exists := idents[a.Ident]; exists {
				result.fail("Duplicate ident %s on airports %d and %d", a.Ident, other, a.ID)
			}
			idents[a.Ident] = a.ID
		}
		if a.FuelAvailable && a.FuelPrice <= 0 {
			result.fail("Airport %d (%s) sells fuel but has no fuel_price", a.ID, a.Name)
		}
		if a.FuelAvailable && a.FuelPrice > 0 {
			fuelStops++
		}
		for i, c := range a.Clues {
			if strings.TrimSpace(c.Description) == "" {
				result.fail("Airport %d (%s) clue %d has no description", a.ID, a.Name, i+1)
			}
		}
		clues += len(a.Clues)
		for i, n := range a.NPCs {
			if strings.TrimSpace(n.Name) == "" {
				result.fail("Airport %d (%s) NPC %d has no name", a.ID, a.Name, i+1)
			}
		}
	}
	if fuelStops == 0 {
		result.fail("Must have at least 1 airport that sells fuel")
	}

	if result.Valid {
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Name: %s", world.Name))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Countries: %d", len(world.Countries)))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Airports: %d", len(world.Airports)))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Fuel stops: %d", fuelStops))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Clues: %d", clues))
	}
	return result, world
}

// validateRules loads and lints a rule set against world. Unknown JSON
// fields are errors so a misspelt key does not silently take its default.
func validateRules(filePath string, world *config.World) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	var raw engine.Rules
	if err := decoder.Decode(&raw); err != nil {
		result.fail("Invalid JSON: %v", err)
		return result
	}

	rules, err := engine.ParseRules(data)
	if err != nil {
		result.fail("%v", err)
		return result
	}

	if world != nil {
		if err := world.CheckRules(rules); err != nil {
			result.fail("%v", err)
		} else {
			feasibility := validateFeasibility(world, rules)
			if !feasibility.Valid {
				result.Valid = false
			}
			result.Errors = append(result.Errors, feasibility.Errors...)
		}
	}

	if result.Valid {
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Name: %s", rules.Name))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Route: %d -> %d", rules.StartAirportID, rules.TargetAirportID))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Fuel: %.2f at %.2f units/km", rules.StartingFuel, rules.ConsumptionRate))
		if rules.MaxUnitsPerRefuel > 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("✓ Refuels: %d x %.0f units", rules.MaxRefuelAttempts, rules.MaxUnitsPerRefuel))
		} else {
			result.Errors = append(result.Errors, fmt.Sprintf("✓ Refuels: %d, uncapped", rules.MaxRefuelAttempts))
		}
	}
	return result
}

// validateFeasibility checks that the target can be reached at all: either
// directly on the starting fuel, or after refuelling at the start airport or
// at a fuel stop in range of it, with total fuel inside the refuel limit.
func validateFeasibility(world *config.World, rules *engine.Rules) ValidationResult {
	result := ValidationResult{Valid: true, Errors: []string{}}

	airports := world.ReferenceAirports()
	var start, target engine.Airport
	for _, a := range airports {
		switch a.ID {
		case rules.StartAirportID:
			start = a
		case rules.TargetAirportID:
			target = a
		}
	}

	ledger := engine.NewFuelLedger(rules, nil)
	direct := ledger.ComputeTripCost(start.Coordinates, target.Coordinates)
	if direct <= rules.StartingFuel {
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Target in range on starting fuel (%.2f units)", direct))
		return result
	}

	budget := math.Inf(1)
	if rules.MaxUnitsPerRefuel > 0 {
		budget = rules.StartingFuel + float64(rules.MaxRefuelAttempts)*rules.MaxUnitsPerRefuel
	}
	if rules.MaxRefuelAttempts == 0 {
		budget = rules.StartingFuel
	}
	if direct > budget {
		result.fail("Target needs %.2f units but at most %.2f can be loaded", direct, budget)
		return result
	}

	if !rules.RequireFuelAvailable || ledger.FuelAvailableAt(&start) {
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Target reachable after refuelling (%.2f units)", direct))
		return result
	}

	for _, stop := range airports {
		if stop.ID == start.ID || stop.ID == target.ID || !ledger.FuelAvailableAt(&stop) {
			continue
		}
		if ledger.ComputeTripCost(start.Coordinates, stop.Coordinates) <= rules.StartingFuel {
			result.Errors = append(result.Errors, fmt.Sprintf("✓ Fuel stop %s in range of the start", stop.Name))
			return result
		}
	}
	result.fail("No fuel stop is in range of start airport %d and the target is out of range", start.ID)
	return result
}

func printResult(result ValidationResult) {
	fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

	if result.Valid {
		fmt.Println("✅ VALID")
		for _, info := range result.Errors {
			fmt.Println("  " + info)
		}
		return
	}

	fmt.Println("❌ INVALID")
	for _, err := range result.Errors {
		if !strings.HasPrefix(err, "✓") {
			fmt.Println("  ❌ " + err)
		}
	}
}

// validateAll lints the world file and every *.json rule set in configDir,
// printing a concise report. It reports whether everything was valid.
func validateAll(worldPath, configDir string) (bool, error) {
	files, err := filepath.Glob(filepath.Join(configDir, "*.json"))
	if err != nil {
		return false, fmt.Errorf("finding config files: %w", err)
	}

	worldResult, world := validateWorld(worldPath)
	printResult(worldResult)
	allValid := worldResult.Valid

	for _, file := range files {
		result := validateRules(file, world)
		printResult(result)
		if !result.Valid {
			allValid = false
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All configurations are valid!")
	} else {
		fmt.Println("❌ Some configurations have errors")
	}
	return allValid, nil
}

// main validates the world and rule sets, exiting with non-zero status if
// any are invalid.
func main() {
	cmd := &cli.Command{
		Name:  "validate",
		Usage: "Lint the world file and rule sets",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "world", Value: "data/world.yaml", Usage: "World file"},
			&cli.StringFlag{Name: "config-dir", Value: "configs", Usage: "Directory containing rule sets"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			allValid, err := validateAll(cmd.String("world"), cmd.String("config-dir"))
			if err != nil {
				return err
			}
			if !allValid {
				os.Exit(1)
			}
			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatalf("%v", err)
	}
}
