package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Rules is a rule set loaded from JSON. Two variants ship by default:
// "classic" caps a refuel at 1000 units and ignores airport fuel sales,
// "priced" is uncapped but only refuels where fuel is sold.
type Rules struct {
	Name                   string  `json:"name"`
	Description            string  `json:"description"`
	StartingFuel           float64 `json:"starting_fuel"`
	StartAirportID         int64   `json:"start_airport_id"`
	TargetAirportID        int64   `json:"target_airport_id"`
	ConsumptionRate        float64 `json:"fuel_consumption_rate"`
	MaxRefuelAttempts      int     `json:"max_refuel_attempts"`
	MaxUnitsPerRefuel      float64 `json:"max_units_per_refuel"` // 0 = uncapped
	FuelCeiling            float64 `json:"fuel_ceiling,omitempty"`
	RequireFuelAvailable   bool    `json:"require_fuel_available"`
	StrandedEndsGame       bool    `json:"stranded_ends_game"`
	PurgeHistoryOnConclude bool    `json:"purge_history_on_conclude"`
}

// DefaultRules returns the classic rule set
func DefaultRules() *Rules {
	return &Rules{
		Name:                   "classic",
		Description:            "Catch the fugitive with 250 units of fuel and five refuels of up to 1000 units",
		StartingFuel:           DefaultStartingFuel,
		StartAirportID:         DefaultStartAirportID,
		TargetAirportID:        DefaultTargetAirportID,
		ConsumptionRate:        DefaultConsumptionRate,
		MaxRefuelAttempts:      DefaultMaxRefuelAttempts,
		MaxUnitsPerRefuel:      DefaultMaxUnitsPerRefuel,
		FuelCeiling:            FuelCeiling,
		PurgeHistoryOnConclude: true,
	}
}

// Ceiling returns the effective fuel ceiling
func (r *Rules) Ceiling() float64 {
	if r.FuelCeiling <= 0 || r.FuelCeiling > FuelCeiling {
		return FuelCeiling
	}
	return r.FuelCeiling
}

// ValidateRules validates a rule set for correctness and playability
func ValidateRules(rules *Rules) error {
	if rules == nil {
		return fmt.Errorf("rules validation: rules are required")
	}
	if rules.Name == "" {
		return fmt.Errorf("rules validation: name is required")
	}
	if rules.Description == "" {
		return fmt.Errorf("rules validation: description is required")
	}
	if math.IsNaN(rules.StartingFuel) || rules.StartingFuel <= 0 || rules.StartingFuel > rules.Ceiling() {
		return fmt.Errorf("rules validation: starting_fuel must be between 0 and %.0f, got %v", rules.Ceiling(), rules.StartingFuel)
	}
	if math.IsNaN(rules.ConsumptionRate) || rules.ConsumptionRate <= 0 {
		return fmt.Errorf("rules validation: fuel_consumption_rate must be positive, got %v", rules.ConsumptionRate)
	}
	if rules.MaxRefuelAttempts < 0 {
		return fmt.Errorf("rules validation: max_refuel_attempts must not be negative, got %d", rules.MaxRefuelAttempts)
	}
	if math.IsNaN(rules.MaxUnitsPerRefuel) || rules.MaxUnitsPerRefuel < 0 {
		return fmt.Errorf("rules validation: max_units_per_refuel must not be negative, got %v", rules.MaxUnitsPerRefuel)
	}
	if rules.StartAirportID <= 0 {
		return fmt.Errorf("rules validation: start_airport_id is required")
	}
	if rules.TargetAirportID <= 0 {
		return fmt.Errorf("rules validation: target_airport_id is required")
	}
	if rules.StartAirportID == rules.TargetAirportID {
		return fmt.Errorf("rules validation: target_airport_id must differ from start_airport_id (%d)", rules.StartAirportID)
	}
	return nil
}

// LoadRules loads a rule set from a JSON file
func LoadRules(filename string) (*Rules, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	rules, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("invalid rules '%s': %w", filename, err)
	}
	return rules, nil
}

// ParseRules decodes and validates a JSON rule set. Missing fields take the
// classic defaults.
func ParseRules(data []byte) (*Rules, error) {
	rules := DefaultRules()
	rules.Name = ""
	rules.Description = ""
	if err := json.Unmarshal(data, rules); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	if err := ValidateRules(rules); err != nil {
		return nil, err
	}
	return rules, nil
}
