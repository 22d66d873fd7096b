package engine

import (
	"strings"
	"testing"
)

func option(cost, km float64, affordable, fuelStop bool) DestinationOption {
	return DestinationOption{
		TripPlan:   TripPlan{DistanceKm: km, FuelCost: cost},
		Affordable: affordable,
		IsFuelStop: fuelStop,
	}
}

func TestFindCheapestDestination(t *testing.T) {
	if _, ok := FindCheapestDestination(nil); ok {
		t.Error("Expected no destination for an empty list")
	}

	options := []DestinationOption{
		option(300, 600, false, true),
		option(40, 80, true, false),
		option(120, 240, true, true),
	}
	cheapest, ok := FindCheapestDestination(options)
	if !ok || cheapest.FuelCost != 40 {
		t.Errorf("Expected cheapest cost 40, got %v (%v)", cheapest.FuelCost, ok)
	}

	nearest, ok := FindNearestFuelStop(options)
	if !ok || nearest.DistanceKm != 240 {
		t.Errorf("Expected nearest fuel stop at 240 km, got %v (%v)", nearest.DistanceKm, ok)
	}

	if CountAffordable(options) != 2 {
		t.Errorf("Expected 2 affordable destinations, got %d", CountAffordable(options))
	}
}

func TestAnalyzeFuelRisk(t *testing.T) {
	reachable := []DestinationOption{option(40, 80, true, true), option(60, 120, true, false)}
	unreachable := []DestinationOption{option(400, 800, false, true), option(600, 1200, false, false)}
	sparse := []DestinationOption{
		option(40, 80, true, false),
		option(400, 800, false, true),
		option(500, 1000, false, false),
		option(600, 1200, false, false),
	}

	tests := []struct {
		name     string
		fuel     float64
		attempts int
		options  []DestinationOption
		prefix   string
	}{
		{"empty tank no refuels", 0, 5, reachable, "CRITICAL: Fuel tank empty and no refuels"},
		{"empty tank", 0, 2, reachable, "CRITICAL: Fuel tank empty!"},
		{"nowhere to go", 100, 0, nil, "WARNING"},
		{"stranded", 100, 5, unreachable, "CRITICAL: Stranded"},
		{"refuel first", 100, 1, unreachable, "DANGER: No destination in range"},
		{"fuel stop out of range", 100, 5, sparse, "DANGER: Nearest fuel stop"},
		{"few in range", 100, 2, sparse, "CAUTION: Only 1 of 4"},
		{"no refuels left", 100, 5, reachable, "LOW"},
		{"safe", 250, 0, reachable, "SAFE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			player := &Player{Fuel: tt.fuel, RefuelAttempts: tt.attempts}
			got := AnalyzeFuelRisk(player, DefaultMaxRefuelAttempts, tt.options)
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("Expected risk starting with '%s', got '%s'", tt.prefix, got)
			}
		})
	}
}
