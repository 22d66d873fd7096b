package engine

import (
	"fmt"
	"math"
)

// FuelLedger holds the fuel arithmetic. It never touches storage; callers
// persist what it returns.
type FuelLedger struct {
	rate        float64
	maxAttempts int
	maxUnits    float64
	ceiling     float64
	distance    DistanceFunc
}

// NewFuelLedger creates a ledger for the given rules. A nil distance uses DistanceKm.
func NewFuelLedger(rules *Rules, distance DistanceFunc) *FuelLedger {
	if distance == nil {
		distance = DistanceKm
	}
	return &FuelLedger{
		rate:        rules.ConsumptionRate,
		maxAttempts: rules.MaxRefuelAttempts,
		maxUnits:    rules.MaxUnitsPerRefuel,
		ceiling:     rules.Ceiling(),
		distance:    distance,
	}
}

// ComputeTripCost returns the fuel units needed to fly between two points
func (l *FuelLedger) ComputeTripCost(origin, destination Coordinates) float64 {
	return l.CostForDistance(l.distance(origin, destination))
}

// CostForDistance converts a distance in kilometres to fuel units
func (l *FuelLedger) CostForDistance(km float64) float64 {
	if km <= 0 || math.IsNaN(km) {
		return 0
	}
	return km * l.rate
}

// CanAfford reports whether currentFuel covers tripCost
func (l *FuelLedger) CanAfford(currentFuel, tripCost float64) bool {
	return currentFuel >= tripCost
}

// Debit subtracts tripCost from currentFuel
func (l *FuelLedger) Debit(currentFuel, tripCost float64) (float64, error) {
	if !l.CanAfford(currentFuel, tripCost) {
		return currentFuel, insufficientFuel(tripCost, currentFuel)
	}
	return currentFuel - tripCost, nil
}

// MaxAttempts returns the refuel attempt ceiling
func (l *FuelLedger) MaxAttempts() int {
	return l.maxAttempts
}

// CheckAttempts rejects a refuel once all attempts have been used
func (l *FuelLedger) CheckAttempts(attempts int) error {
	if attempts >= l.maxAttempts {
		return &Error{
			Code:      CodeMaxAttemptsExceeded,
			Message:   fmt.Sprintf("all %d refuel attempts have been used", l.maxAttempts),
			Required:  float64(attempts + 1),
			Available: float64(l.maxAttempts),
		}
	}
	return nil
}

// ApplyRefuel validates a refuel of units at pricePerUnit and returns the new
// fuel level and attempt count. A rejection leaves both unchanged.
func (l *FuelLedger) ApplyRefuel(currentFuel float64, attempts int, units, pricePerUnit float64) (RefuelResult, error) {
	unchanged := RefuelResult{Fuel: currentFuel, Attempts: attempts}

	if err := l.CheckAttempts(attempts); err != nil {
		return unchanged, err
	}
	if math.IsNaN(units) || math.IsInf(units, 0) || units <= 0 {
		return unchanged, &Error{
			Code:     CodeLimitExceeded,
			Message:  fmt.Sprintf("refuel amount must be positive, got %v", units),
			Required: units,
		}
	}
	if l.maxUnits > 0 && units > l.maxUnits {
		return unchanged, &Error{
			Code:      CodeLimitExceeded,
			Message:   fmt.Sprintf("cannot refuel more than %.0f units in a single session", l.maxUnits),
			Required:  units,
			Available: l.maxUnits,
		}
	}
	if currentFuel+units > l.ceiling {
		return unchanged, &Error{
			Code:      CodeLimitExceeded,
			Message:   fmt.Sprintf("refuel would exceed the fuel ceiling of %.0f units", l.ceiling),
			Required:  currentFuel + units,
			Available: l.ceiling,
		}
	}

	result := RefuelResult{
		Fuel:     currentFuel + units,
		Attempts: attempts + 1,
		Units:    units,
	}
	if pricePerUnit > 0 {
		result.TotalPrice = units * pricePerUnit
	}
	return result, nil
}

// FuelAvailableAt reports whether the airport sells fuel
func (l *FuelLedger) FuelAvailableAt(airport *Airport) bool {
	if airport == nil {
		return false
	}
	return airport.SellsFuel()
}
