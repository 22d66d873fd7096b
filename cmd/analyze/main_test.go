package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wricardo/skytrack/game/config"
	"github.com/wricardo/skytrack/game/engine"
)

// Four airports on the equator: 1 (no fuel), 2 one degree east (fuel),
// 3 five degrees east (fuel) and 4 ten degrees east (no fuel).
func equatorWorld() *config.World {
	return &config.World{
		Name:      "equator",
		Countries: []engine.Country{{ISOCode: "EC", Name: "Ecuador"}},
		Airports: []config.AirportSpec{
			{ID: 1, Name: "Origin", ISOCountry: "EC"},
			{ID: 2, Name: "Pump", ISOCountry: "EC", Longitude: 1, FuelPrice: 1, FuelAvailable: true},
			{ID: 3, Name: "Depot", ISOCountry: "EC", Longitude: 5, FuelPrice: 1, FuelAvailable: true},
			{ID: 4, Name: "Hideout", ISOCountry: "EC", Longitude: 10},
		},
	}
}

func equatorRules() *engine.Rules {
	return &engine.Rules{
		Name:                 "equator",
		StartingFuel:         200,
		StartAirportID:       1,
		TargetAirportID:      4,
		ConsumptionRate:      1,
		MaxRefuelAttempts:    5,
		MaxUnitsPerRefuel:    500,
		RequireFuelAvailable: true,
	}
}

func routeNames(route []engine.Airport) string {
	names := make([]string, len(route))
	for i, a := range route {
		names[i] = a.Name
	}
	return strings.Join(names, ",")
}

func TestAnalyzeRules(t *testing.T) {
	tests := []struct {
		name         string
		world        func() *config.World
		rules        func(r *engine.Rules)
		wantRoute    string
		wantRefuels  int
		wantWinnable bool
	}{
		{
			name:         "detour through the nearest pump",
			wantRoute:    "Origin,Pump,Hideout",
			wantRefuels:  2,
			wantWinnable: true,
		},
		{
			name:         "too few refuels",
			rules:        func(r *engine.Rules) { r.MaxRefuelAttempts = 1 },
			wantRoute:    "Origin,Pump,Hideout",
			wantRefuels:  2,
			wantWinnable: false,
		},
		{
			name:         "refuel anywhere flies direct",
			rules:        func(r *engine.Rules) { r.RequireFuelAvailable = false },
			wantRoute:    "Origin,Hideout",
			wantRefuels:  2,
			wantWinnable: true,
		},
		{
			name: "uncapped refuel",
			rules: func(r *engine.Rules) {
				r.RequireFuelAvailable = false
				r.MaxUnitsPerRefuel = 0
			},
			wantRoute:    "Origin,Hideout",
			wantRefuels:  1,
			wantWinnable: true,
		},
		{
			name:         "enough fuel for the direct flight",
			rules:        func(r *engine.Rules) { r.StartingFuel = 2000 },
			wantRoute:    "Origin,Hideout",
			wantRefuels:  0,
			wantWinnable: true,
		},
		{
			name: "no reachable fuel stop",
			world: func() *config.World {
				w := equatorWorld()
				w.Airports[1].FuelAvailable = false
				return w
			},
			wantRoute:    "",
			wantWinnable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			world := equatorWorld()
			if tt.world != nil {
				world = tt.world()
			}
			rules := equatorRules()
			if tt.rules != nil {
				tt.rules(rules)
			}

			a, err := analyzeRules(world, rules)
			if err != nil {
				t.Fatalf("analyzeRules failed: %v", err)
			}
			if got := routeNames(a.Route); got != tt.wantRoute {
				t.Errorf("Expected route %q, got %q", tt.wantRoute, got)
			}
			if a.Route != nil && a.RefuelsNeeded != tt.wantRefuels {
				t.Errorf("Expected %d refuels, got %d", tt.wantRefuels, a.RefuelsNeeded)
			}
			if a.Winnable != tt.wantWinnable {
				t.Errorf("Expected winnable %v, got %v", tt.wantWinnable, a.Winnable)
			}
		})
	}
}

func TestAnalyzeRules_Reachability(t *testing.T) {
	a, err := analyzeRules(equatorWorld(), equatorRules())
	if err != nil {
		t.Fatalf("analyzeRules failed: %v", err)
	}

	if a.DirectKm < 1110 || a.DirectKm > 1115 {
		t.Errorf("Expected about 1113 km along the equator, got %.1f", a.DirectKm)
	}
	if a.DirectCost != a.DirectKm {
		t.Errorf("Expected cost to equal distance at rate 1, got %.2f", a.DirectCost)
	}
	if a.FuelStops != 2 {
		t.Errorf("Expected 2 fuel stops, got %d", a.FuelStops)
	}
	if a.ReachableFromStart != 1 {
		t.Errorf("Expected 1 airport in range, got %d", a.ReachableFromStart)
	}
	if got := routeNames(a.UnreachableFromStart); got != "Depot,Hideout" {
		t.Errorf("Expected Depot and Hideout out of range, got %q", got)
	}
}

func TestAnalyzeRules_UnknownAirport(t *testing.T) {
	rules := equatorRules()
	rules.TargetAirportID = 99
	if _, err := analyzeRules(equatorWorld(), rules); err == nil {
		t.Error("Expected error for a target outside the world")
	}
}

func TestRefuelsFor(t *testing.T) {
	tests := []struct {
		shortfall, maxUnits float64
		want                int
	}{
		{-10, 100, 0},
		{0, 100, 0},
		{1, 100, 1},
		{100, 100, 1},
		{100.5, 100, 2},
		{5000, 0, 1},
	}
	for _, tt := range tests {
		if got := refuelsFor(tt.shortfall, tt.maxUnits); got != tt.want {
			t.Errorf("refuelsFor(%v, %v) = %d, want %d", tt.shortfall, tt.maxUnits, got, tt.want)
		}
	}
}

func TestRun(t *testing.T) {
	var out bytes.Buffer
	if err := run(&out, "../../data/world.yaml", "../../configs"); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	report := out.String()
	for _, want := range []string{
		"=== Analyzing classic.json ===",
		"=== Analyzing priced.json ===",
		"Start: Helsinki-Vantaa Airport (1), Finland",
		"Target: Rome Fiumicino Airport (15), Italy",
		"Suggested Route: Helsinki-Vantaa Airport -> Rome Fiumicino Airport (1 refuels)",
		"✅ Winnable with 1 of 5 refuels",
		"Refuels: 5, uncapped",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("Expected %q in report:\n%s", want, report)
		}
	}
	if strings.Index(report, "classic.json") > strings.Index(report, "priced.json") {
		t.Error("Rule sets should be analysed in name order")
	}
}

func TestRun_Errors(t *testing.T) {
	var out bytes.Buffer
	if err := run(&out, "missing.yaml", "../../configs"); err == nil {
		t.Error("Expected error for a missing world file")
	}
	if err := run(&out, "../../data/world.yaml", t.TempDir()); err == nil {
		t.Error("Expected error for a directory without rule sets")
	}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{ not json"), 0644); err != nil {
		t.Fatalf("Failed to write rule set: %v", err)
	}
	out.Reset()
	if err := run(&out, "../../data/world.yaml", dir); err != nil {
		t.Fatalf("A broken rule set should be reported, not fail the run: %v", err)
	}
	if !strings.Contains(out.String(), "Error loading rules") {
		t.Errorf("Expected load error in report:\n%s", out.String())
	}
}
