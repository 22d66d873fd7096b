package engine

import (
	"fmt"
	"math"
)

// DestinationOption is a candidate destination with its trip plan
type DestinationOption struct {
	TripPlan
	Affordable bool `json:"affordable"`
	IsFuelStop bool `json:"is_fuel_stop"`
}

// CountAffordable counts the destinations within reach
func CountAffordable(options []DestinationOption) int {
	count := 0
	for _, opt := range options {
		if opt.Affordable {
			count++
		}
	}
	return count
}

// FindCheapestDestination returns the destination with the lowest fuel cost
func FindCheapestDestination(options []DestinationOption) (DestinationOption, bool) {
	var cheapest DestinationOption
	found := false
	for _, opt := range options {
		if !found || opt.FuelCost < cheapest.FuelCost {
			cheapest = opt
			found = true
		}
	}
	return cheapest, found
}

// FindNearestFuelStop returns the closest destination that sells fuel
func FindNearestFuelStop(options []DestinationOption) (DestinationOption, bool) {
	var nearest DestinationOption
	minDistance := math.Inf(1)
	found := false
	for _, opt := range options {
		if opt.IsFuelStop && opt.DistanceKm < minDistance {
			nearest = opt
			minDistance = opt.DistanceKm
			found = true
		}
	}
	return nearest, found
}

// AnalyzeFuelRisk assesses how close the player is to being stranded
func AnalyzeFuelRisk(player *Player, maxAttempts int, options []DestinationOption) string {
	remaining := maxAttempts - player.RefuelAttempts
	if remaining < 0 {
		remaining = 0
	}

	if player.Fuel <= 0 {
		if remaining == 0 {
			return "CRITICAL: Fuel tank empty and no refuels left!"
		}
		return "CRITICAL: Fuel tank empty!"
	}

	if len(options) == 0 {
		return "WARNING: No destinations available!"
	}

	inRange := CountAffordable(options)
	if inRange == 0 {
		if remaining == 0 {
			return "CRITICAL: Stranded, no destination in range and no refuels left!"
		}
		return "DANGER: No destination in range, refuel before flying"
	}

	if nearest, ok := FindNearestFuelStop(options); ok && !nearest.Affordable && remaining == 0 {
		return "DANGER: Nearest fuel stop is out of range"
	}

	if inRange*3 < len(options) {
		return fmt.Sprintf("CAUTION: Only %d of %d destinations in range", inRange, len(options))
	}
	if remaining == 0 {
		return "LOW: No refuels left, plan carefully"
	}

	return "SAFE: Fuel sufficient"
}
