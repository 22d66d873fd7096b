package engine

import "time"

// Status is the lifecycle state of a game
type Status string

const (
	StatusActive Status = "active"
	StatusWon    Status = "won"
	StatusLost   Status = "lost"

	// Default rule values
	DefaultStartingFuel      = 250
	DefaultConsumptionRate   = 0.5
	DefaultMaxRefuelAttempts = 5
	DefaultMaxUnitsPerRefuel = 1000
	DefaultStartAirportID    = 1
	DefaultTargetAirportID   = 15

	// FuelCeiling is the hard upper bound on a player's fuel level (2^31-1)
	FuelCeiling = 2147483647
)

// Coordinates is a latitude/longitude pair in decimal degrees
type Coordinates struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// Country is a reference country an airport belongs to
type Country struct {
	ISOCode string `json:"iso_country" yaml:"iso_country"`
	Name    string `json:"name" yaml:"name"`
}

// Airport is an immutable reference airport
type Airport struct {
	ID            int64       `json:"id"`
	Ident         string      `json:"ident,omitempty"`
	Name          string      `json:"name"`
	ISOCountry    string      `json:"iso_country,omitempty"`
	Country       string      `json:"country"`
	Coordinates   Coordinates `json:"coordinates"`
	FuelPrice     float64     `json:"fuel_price,omitempty"` // 0 means no fuel sold here
	FuelAvailable bool        `json:"fuel_available"`
}

// SellsFuel reports whether fuel can be bought here at a posted price
func (a *Airport) SellsFuel() bool {
	return a.FuelAvailable && a.FuelPrice > 0
}

// Player is the persisted player profile
type Player struct {
	ID               int64   `json:"id"`
	ScreenName       string  `json:"screen_name"`
	CurrentAirportID int64   `json:"current_airport_id"`
	Fuel             float64 `json:"fuel"`
	RefuelAttempts   int     `json:"refuel_attempts"`
	GameOver         bool    `json:"game_over"`
}

// GameState is one game session owned by a player
type GameState struct {
	ID             int64     `json:"id"`
	PlayerID       int64     `json:"player_id"`
	MovesCount     int       `json:"moves_count"`
	CriminalCaught bool      `json:"criminal_caught"`
	GameOver       bool      `json:"game_over"`
	CreatedAt      time.Time `json:"created_at"`
}

// Status derives the lifecycle state from the persisted flags
func (g *GameState) Status() Status {
	switch {
	case g.CriminalCaught:
		return StatusWon
	case g.GameOver:
		return StatusLost
	default:
		return StatusActive
	}
}

// IsTerminal reports whether no further mutations are accepted
func (g *GameState) IsTerminal() bool {
	return g.CriminalCaught || g.GameOver
}

// MovementRecord is an append-only travel log entry
type MovementRecord struct {
	ID            int64     `json:"id"`
	PlayerID      int64     `json:"player_id"`
	FromAirportID int64     `json:"from_airport_id"`
	ToAirportID   int64     `json:"to_airport_id"`
	DistanceKm    float64   `json:"distance_km"`
	MovedAt       time.Time `json:"moved_at"`
}

// Clue is an investigative hint found at an airport
type Clue struct {
	Description string `json:"description" yaml:"description"`
	Valid       bool   `json:"valid" yaml:"valid"`
}

// NPC is an informant stationed at an airport
type NPC struct {
	Name string `json:"name" yaml:"name"`
	Role string `json:"role" yaml:"role"`
	Info string `json:"info" yaml:"info"`
}

// TripPlan is the precomputed cost of a prospective trip
type TripPlan struct {
	From       Airport `json:"from"`
	To         Airport `json:"to"`
	DistanceKm float64 `json:"distance_km"`
	FuelCost   float64 `json:"fuel_cost"`
}

// TravelOutcome reports a committed trip
type TravelOutcome struct {
	Plan          TripPlan `json:"plan"`
	FuelBefore    float64  `json:"fuel_before"`
	FuelAfter     float64  `json:"fuel_after"`
	MovesCount    int      `json:"moves_count"`
	ReachedTarget bool     `json:"reached_target"`
}

// RefuelResult is the ledger's answer to a refuel request
type RefuelResult struct {
	Fuel       float64 `json:"fuel"`
	Attempts   int     `json:"attempts"`
	Units      float64 `json:"units"`
	TotalPrice float64 `json:"total_price,omitempty"`
}

// GameOutcome is the result of a terminal-condition check
type GameOutcome struct {
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// MovementView is a movement record joined with airport names
type MovementView struct {
	MovementRecord
	FromName string `json:"from_name"`
	ToName   string `json:"to_name"`
}
