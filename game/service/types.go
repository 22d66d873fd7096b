package service

import (
	"time"

	"github.com/wricardo/skytrack/game/engine"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string               `json:"id"`
	ConfigName     string               `json:"config_name"`
	ScreenName     string               `json:"screen_name"`
	PlayerID       int64                `json:"player_id"`
	GameID         int64                `json:"game_id"`
	CreatedAt      time.Time            `json:"created_at"`
	LastAccessedAt time.Time            `json:"last_accessed_at"`
	Message        string               `json:"message,omitempty"`
	Rules          *engine.Rules        `json:"rules"`
	Status         *engine.StatusReport `json:"status,omitempty"`
}

// TravelResult contains the result of a travel operation
type TravelResult struct {
	Success  bool                 `json:"success"`
	Message  string               `json:"message"`
	Report   *engine.TravelReport `json:"report"`
	Events   []GameEvent          `json:"events,omitempty"`
	FuelRisk string               `json:"fuel_risk,omitempty"`
}

// RefuelResult contains the result of a refuel operation
type RefuelResult struct {
	Success bool                 `json:"success"`
	Message string               `json:"message"`
	Report  *engine.RefuelReport `json:"report"`
	Result  engine.GameOutcome   `json:"result"`
	Events  []GameEvent          `json:"events,omitempty"`
}

// DestinationsResult lists every airport reachable in principle from the
// current one, with decision aids
type DestinationsResult struct {
	Current         engine.Airport             `json:"current"`
	Fuel            float64                    `json:"fuel"`
	Destinations    []engine.DestinationOption `json:"destinations"`
	AffordableCount int                        `json:"affordable_count"`
	Cheapest        *engine.DestinationOption  `json:"cheapest,omitempty"`
	NearestFuelStop *engine.DestinationOption  `json:"nearest_fuel_stop,omitempty"`
	FuelRisk        string                     `json:"fuel_risk"`
}

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	Type      string    `json:"type"` // "travel", "refuel", "victory", "game_over", "start"
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	AirportID int64     `json:"airport_id,omitempty"`
}

// HistoryOptions configures travel history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated travel history
type HistoryResponse struct {
	Movements      []engine.MovementView `json:"movements"`
	TotalMovements int                   `json:"total_movements"`
	Page           int                   `json:"page"`
	PageSize       int                   `json:"page_size"`
	TotalPages     int                   `json:"total_pages"`
	HasNext        bool                  `json:"has_next"`
	HasPrevious    bool                  `json:"has_previous"`
}

// ConfigInfo provides information about a rule set
type ConfigInfo struct {
	Filename             string  `json:"filename"`
	ConfigID             string  `json:"config_id"` // The identifier to use for session creation
	Name                 string  `json:"name"`      // Display name
	Description          string  `json:"description"`
	StartingFuel         float64 `json:"starting_fuel"`
	MaxRefuelAttempts    int     `json:"max_refuel_attempts"`
	MaxUnitsPerRefuel    float64 `json:"max_units_per_refuel"`
	RequireFuelAvailable bool    `json:"require_fuel_available"`
}
