package engine

import "context"

// PlayerStore persists player profiles
type PlayerStore interface {
	GetPlayer(ctx context.Context, id int64) (*Player, error)
	FindPlayerByName(ctx context.Context, screenName string) (*Player, error)
	CreatePlayer(ctx context.Context, screenName string, startAirportID int64, startingFuel float64) (*Player, error)
	UpdatePlayerFuel(ctx context.Context, id int64, fuel float64) error
	UpdatePlayerLocation(ctx context.Context, id int64, airportID int64) error
	UpdatePlayerRefuelAttempts(ctx context.Context, id int64, attempts int) error
	SetPlayerGameOver(ctx context.Context, id int64, over bool) error
}

// GameUpdate selects which game fields to write; nil fields are left alone
type GameUpdate struct {
	MovesCount     *int
	CriminalCaught *bool
	GameOver       *bool
}

// IsEmpty reports whether the update changes nothing
func (u GameUpdate) IsEmpty() bool {
	return u.MovesCount == nil && u.CriminalCaught == nil && u.GameOver == nil
}

// GameStore persists game sessions
type GameStore interface {
	CreateGame(ctx context.Context, playerID int64) (int64, error)
	GetGame(ctx context.Context, id int64) (*GameState, error)
	UpdateGame(ctx context.Context, id int64, update GameUpdate) error
}

// MovementStore persists the travel log
type MovementStore interface {
	AppendMovement(ctx context.Context, playerID, fromID, toID int64, distanceKm float64) error
	// ListMovements returns the player's history oldest first
	ListMovements(ctx context.Context, playerID int64) ([]MovementRecord, error)
	PurgeMovements(ctx context.Context, playerID int64) error
}

// ReferenceStore reads immutable world data
type ReferenceStore interface {
	GetAirport(ctx context.Context, id int64) (*Airport, error)
	// ListAirportsExcept returns every airport but id, ordered by country then name
	ListAirportsExcept(ctx context.Context, id int64) ([]Airport, error)
	GetCluesAt(ctx context.Context, airportID int64) ([]Clue, error)
	GetNpcsAt(ctx context.Context, airportID int64) ([]NPC, error)
}

// Store is the persistence collaborator. WithinTx runs fn against a
// transactional view: if fn returns an error, none of its writes are kept.
// Calling WithinTx on a transactional view joins the outer transaction.
type Store interface {
	PlayerStore
	GameStore
	MovementStore
	ReferenceStore
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}
