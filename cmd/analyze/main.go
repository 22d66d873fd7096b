// Command analyze prints quick, human-readable heuristics about each rule set
// in the configs directory played over the world file. It reports the direct
// flight from start to target, the refuels that flight needs, whether the
// chase is winnable within the refuel limit, and which airports are out of
// reach on the starting fuel.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/skytrack/game/config"
	"github.com/wricardo/skytrack/game/engine"
)

// Analysis is the result of analysing one rule set over a world
type Analysis struct {
	Rules *engine.Rules

	Start  engine.Airport
	Target engine.Airport

	DirectKm   float64
	DirectCost float64

	// Route is the suggested itinerary and RefuelsNeeded the refuels it takes.
	// Winnable is false when no route fits inside the refuel limit.
	Route         []engine.Airport
	RefuelsNeeded int
	Winnable      bool

	FuelStops            int
	ReachableFromStart   int
	UnreachableFromStart []engine.Airport
}

func main() {
	cmd := &cli.Command{
		Name:  "analyze",
		Usage: "Report reachability heuristics for every rule set",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "world", Value: "data/world.yaml", Usage: "World file"},
			&cli.StringFlag{Name: "config-dir", Value: "configs", Usage: "Directory containing rule sets"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return run(os.Stdout, cmd.String("world"), cmd.String("config-dir"))
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatalf("%v", err)
	}
}

// run analyses every *.json rule set in configDir against the world file
func run(out io.Writer, worldPath, configDir string) error {
	world, err := config.LoadWorld(worldPath)
	if err != nil {
		return err
	}

	files, err := filepath.Glob(filepath.Join(configDir, "*.json"))
	if err != nil {
		return fmt.Errorf("finding rule sets: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no rule sets found in %s", configDir)
	}
	sort.Strings(files)

	for _, file := range files {
		fmt.Fprintf(out, "\n=== Analyzing %s ===\n", filepath.Base(file))

		rules, err := engine.LoadRules(file)
		if err != nil {
			fmt.Fprintf(out, "Error loading rules: %v\n", err)
			continue
		}
		analysis, err := analyzeRules(world, rules)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		printAnalysis(out, analysis)
	}
	return nil
}

// analyzeRules evaluates a rule set over the world. The suggested route is the
// direct flight, refuelling at the start airport, or, when the start airport
// cannot sell fuel, a detour through the fuel stop that needs the fewest
// refuels.
func analyzeRules(world *config.World, rules *engine.Rules) (*Analysis, error) {
	if err := world.CheckRules(rules); err != nil {
		return nil, err
	}

	airports := world.ReferenceAirports()
	byID := make(map[int64]engine.Airport, len(airports))
	for _, a := range airports {
		byID[a.ID] = a
	}

	ledger := engine.NewFuelLedger(rules, nil)
	a := &Analysis{
		Rules:  rules,
		Start:  byID[rules.StartAirportID],
		Target: byID[rules.TargetAirportID],
	}
	a.DirectKm = engine.DistanceKm(a.Start.Coordinates, a.Target.Coordinates)
	a.DirectCost = ledger.CostForDistance(a.DirectKm)

	sellsFuel := func(ap engine.Airport) bool {
		return !rules.RequireFuelAvailable || ledger.FuelAvailableAt(&ap)
	}

	for _, ap := range airports {
		if ap.ID == a.Start.ID {
			continue
		}
		if sellsFuel(ap) {
			a.FuelStops++
		}
		if ledger.ComputeTripCost(a.Start.Coordinates, ap.Coordinates) <= rules.StartingFuel {
			a.ReachableFromStart++
		} else {
			a.UnreachableFromStart = append(a.UnreachableFromStart, ap)
		}
	}

	if a.DirectCost <= rules.StartingFuel || sellsFuel(a.Start) {
		a.Route = []engine.Airport{a.Start, a.Target}
		a.RefuelsNeeded = refuelsFor(a.DirectCost-rules.StartingFuel, rules.MaxUnitsPerRefuel)
	} else {
		best := math.MaxInt
		for _, stop := range airports {
			if stop.ID == a.Start.ID || stop.ID == a.Target.ID || !sellsFuel(stop) {
				continue
			}
			firstLeg := ledger.ComputeTripCost(a.Start.Coordinates, stop.Coordinates)
			if firstLeg > rules.StartingFuel {
				continue
			}
			secondLeg := ledger.ComputeTripCost(stop.Coordinates, a.Target.Coordinates)
			refuels := refuelsFor(secondLeg-(rules.StartingFuel-firstLeg), rules.MaxUnitsPerRefuel)
			if refuels < best {
				best = refuels
				a.Route = []engine.Airport{a.Start, stop, a.Target}
			}
		}
		a.RefuelsNeeded = best
	}

	a.Winnable = a.Route != nil && a.RefuelsNeeded <= rules.MaxRefuelAttempts
	return a, nil
}

// refuelsFor returns how many refuels cover shortfall units of fuel. An
// uncapped refuel covers any shortfall at once.
func refuelsFor(shortfall, maxUnits float64) int {
	if shortfall <= 0 {
		return 0
	}
	if maxUnits <= 0 {
		return 1
	}
	return int(math.Ceil(shortfall / maxUnits))
}

func printAnalysis(out io.Writer, a *Analysis) {
	rules := a.Rules
	fmt.Fprintf(out, "Name: %s\n", rules.Name)
	fmt.Fprintf(out, "Start: %s (%d), %s\n", a.Start.Name, a.Start.ID, a.Start.Country)
	fmt.Fprintf(out, "Target: %s (%d), %s\n", a.Target.Name, a.Target.ID, a.Target.Country)
	fmt.Fprintf(out, "Starting Fuel: %.2f\n", rules.StartingFuel)
	if rules.MaxUnitsPerRefuel > 0 {
		fmt.Fprintf(out, "Refuels: %d of up to %.0f units\n", rules.MaxRefuelAttempts, rules.MaxUnitsPerRefuel)
	} else {
		fmt.Fprintf(out, "Refuels: %d, uncapped\n", rules.MaxRefuelAttempts)
	}
	fmt.Fprintf(out, "Direct Flight: %.1f km, %.2f fuel units\n", a.DirectKm, a.DirectCost)
	fmt.Fprintf(out, "Fuel Stops: %d\n", a.FuelStops)
	fmt.Fprintf(out, "Reachable From Start: %d airports\n", a.ReachableFromStart)

	if len(a.UnreachableFromStart) > 0 {
		fmt.Fprintf(out, "⚠️  WARNING: %d airports are out of range on the starting fuel\n", len(a.UnreachableFromStart))
		for i, ap := range a.UnreachableFromStart {
			if i < 5 {
				fmt.Fprintf(out, "   Out of range: %s (%d)\n", ap.Name, ap.ID)
			}
		}
		if len(a.UnreachableFromStart) > 5 {
			fmt.Fprintf(out, "   ... and %d more\n", len(a.UnreachableFromStart)-5)
		}
	}

	if a.Route == nil {
		fmt.Fprintf(out, "⚠️  CRITICAL: no fuel stop is reachable from %s\n", a.Start.Name)
		return
	}

	route := ""
	for i, ap := range a.Route {
		if i > 0 {
			route += " -> "
		}
		route += ap.Name
	}
	fmt.Fprintf(out, "Suggested Route: %s (%d refuels)\n", route, a.RefuelsNeeded)

	if a.Winnable {
		fmt.Fprintf(out, "✅ Winnable with %d of %d refuels\n", a.RefuelsNeeded, rules.MaxRefuelAttempts)
	} else {
		fmt.Fprintf(out, "⚠️  CRITICAL: needs %d refuels but only %d are allowed\n", a.RefuelsNeeded, rules.MaxRefuelAttempts)
	}
}
