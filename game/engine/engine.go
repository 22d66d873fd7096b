package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// MaxScreenNameLength bounds a player's screen name
const MaxScreenNameLength = 64

// Engine bundles the game components for one rule set and exposes the
// player intents: start, travel, refuel, investigate and status.
type Engine struct {
	rules   *Rules
	ledger  *FuelLedger
	travel  *TravelEngine
	machine *StateMachine
	browser *ClueNpcBrowser
}

// Option customises an Engine
type Option func(*engineOptions)

type engineOptions struct {
	distance DistanceFunc
}

// WithDistanceFunc replaces the geodesic distance function
func WithDistanceFunc(fn DistanceFunc) Option {
	return func(o *engineOptions) {
		o.distance = fn
	}
}

// NewEngine creates a game engine with the provided rules
func NewEngine(rules *Rules, opts ...Option) (*Engine, error) {
	if err := ValidateRules(rules); err != nil {
		return nil, err
	}

	o := engineOptions{distance: DistanceKm}
	for _, opt := range opts {
		opt(&o)
	}

	ledger := NewFuelLedger(rules, o.distance)
	machine := NewStateMachine(rules)
	return &Engine{
		rules:   rules,
		ledger:  ledger,
		machine: machine,
		travel:  NewTravelEngine(rules, ledger, machine, o.distance),
		browser: &ClueNpcBrowser{},
	}, nil
}

// NewEngineWithDefaults creates an engine using the classic rules
func NewEngineWithDefaults() *Engine {
	e, err := NewEngine(DefaultRules())
	if err != nil {
		panic(fmt.Sprintf("default rules are invalid: %v", err))
	}
	return e
}

func (e *Engine) Rules() *Rules { return e.rules }
func (e *Engine) Ledger() *FuelLedger { return e.ledger }
func (e *Engine) Travel() *TravelEngine { return e.travel }
func (e *Engine) Machine() *StateMachine { return e.machine }
func (e *Engine) Browser() *ClueNpcBrowser { return e.browser }

// GameStart is the result of starting a game
type GameStart struct {
	Player       Player    `json:"player"`
	Game         GameState `json:"game"`
	StartAirport Airport   `json:"start_airport"`
	Returning    bool      `json:"returning"`
}

// TravelReport is the result of a travel intent
type TravelReport struct {
	Outcome TravelOutcome `json:"outcome"`
	Player  Player        `json:"player"`
	Game    GameState     `json:"game"`
	Result  GameOutcome   `json:"result"`
}

// RefuelReport is the result of a refuel intent
type RefuelReport struct {
	Result       RefuelResult `json:"result"`
	Airport      Airport      `json:"airport"`
	PricePerUnit float64      `json:"price_per_unit,omitempty"`
	Remaining    int          `json:"remaining_refuels"`
}

// Investigation lists what a player finds at their current airport
type Investigation struct {
	Airport Airport `json:"airport"`
	Clues   []Clue  `json:"clues"`
	NPCs    []NPC   `json:"npcs"`
}

// StatusReport is a snapshot of the player's situation
type StatusReport struct {
	Player           Player         `json:"player"`
	Airport          Airport        `json:"airport"`
	Game             GameState      `json:"game"`
	Result           GameOutcome    `json:"result"`
	RemainingRefuels int            `json:"remaining_refuels"`
	MaxRefuels       int            `json:"max_refuels"`
	FuelRisk         string         `json:"fuel_risk"`
	History          []MovementView `json:"history"`
}

// ValidateScreenName normalises and checks a screen name
func ValidateScreenName(screenName string) (string, error) {
	name := strings.TrimSpace(screenName)
	if name == "" {
		return "", newError(CodeInvalidInput, "screen name is required")
	}
	if len(name) > MaxScreenNameLength {
		return "", newError(CodeInvalidInput, "screen name must be at most %d characters", MaxScreenNameLength)
	}
	return name, nil
}

// RegisterPlayer creates a new player at the start airport. A taken screen
// name is rejected with ErrAlreadyExists.
func (e *Engine) RegisterPlayer(ctx context.Context, store Store, screenName string) (*Player, error) {
	name, err := ValidateScreenName(screenName)
	if err != nil {
		return nil, err
	}

	var player *Player
	err = store.WithinTx(ctx, func(tx Store) error {
		if _, err := e.travel.lookupAirport(ctx, tx, e.rules.StartAirportID); err != nil {
			return err
		}
		existing, err := tx.FindPlayerByName(ctx, name)
		if err == nil && existing != nil {
			return newError(CodeAlreadyExists, "screen name '%s' is already taken", name)
		}
		if err != nil && !errors.Is(err, ErrRecordNotFound) {
			return storageError("find player", err)
		}
		player, err = tx.CreatePlayer(ctx, name, e.rules.StartAirportID, e.rules.StartingFuel)
		if err != nil {
			return storageError("create player", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return player, nil
}

// StartGame looks up the player by screen name, registering them on first
// use, resets their fuel, refuel attempts and location, and opens a new game.
func (e *Engine) StartGame(ctx context.Context, store Store, screenName string) (*GameStart, error) {
	name, err := ValidateScreenName(screenName)
	if err != nil {
		return nil, err
	}

	var start *GameStart
	err = store.WithinTx(ctx, func(tx Store) error {
		airport, err := e.travel.lookupAirport(ctx, tx, e.rules.StartAirportID)
		if err != nil {
			return err
		}

		returning := true
		player, err := tx.FindPlayerByName(ctx, name)
		if errors.Is(err, ErrRecordNotFound) {
			returning = false
			player, err = tx.CreatePlayer(ctx, name, airport.ID, e.rules.StartingFuel)
			if err != nil {
				return storageError("create player", err)
			}
		} else if err != nil {
			return storageError("find player", err)
		}

		if returning {
			if err := e.resetPlayer(ctx, tx, player.ID, airport.ID); err != nil {
				return err
			}
		}

		gameID, err := tx.CreateGame(ctx, player.ID)
		if err != nil {
			return storageError("create game", err)
		}
		game, err := tx.GetGame(ctx, gameID)
		if err != nil {
			return storageError("load game", err)
		}
		fresh, err := tx.GetPlayer(ctx, player.ID)
		if err != nil {
			return storageError("load player", err)
		}

		start = &GameStart{
			Player:       *fresh,
			Game:         *game,
			StartAirport: *airport,
			Returning:    returning,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return start, nil
}

// resetPlayer restores the starting fuel, attempts and location. Movement
// history kept after the previous game is purged here.
func (e *Engine) resetPlayer(ctx context.Context, tx Store, playerID, airportID int64) error {
	if err := tx.UpdatePlayerFuel(ctx, playerID, e.rules.StartingFuel); err != nil {
		return storageError("reset fuel", err)
	}
	if err := tx.UpdatePlayerRefuelAttempts(ctx, playerID, 0); err != nil {
		return storageError("reset refuel attempts", err)
	}
	if err := tx.UpdatePlayerLocation(ctx, playerID, airportID); err != nil {
		return storageError("reset location", err)
	}
	if err := tx.SetPlayerGameOver(ctx, playerID, false); err != nil {
		return storageError("reset game over", err)
	}
	if err := tx.PurgeMovements(ctx, playerID); err != nil {
		return storageError("purge travel history", err)
	}
	return nil
}

// TravelTo flies the player to destinationID and concludes the game when the
// fugitive's airport is reached or the player is left without resources.
func (e *Engine) TravelTo(ctx context.Context, store Store, playerID, gameID, destinationID int64) (*TravelReport, error) {
	var report *TravelReport

	err := store.WithinTx(ctx, func(tx Store) error {
		outcome, err := e.travel.ExecuteTravel(ctx, tx, playerID, gameID, destinationID)
		if err != nil {
			return err
		}

		game, err := tx.GetGame(ctx, gameID)
		if err != nil {
			return storageError("load game", err)
		}

		result := GameOutcome{Status: StatusActive}
		if outcome.ReachedTarget {
			concluded, err := e.machine.Conclude(ctx, tx, *game, true)
			if err != nil {
				return err
			}
			game = &concluded
			result = GameOutcome{Status: StatusWon, Reason: "fugitive caught"}
		} else {
			result, game, err = e.evaluate(ctx, tx, playerID, game)
			if err != nil {
				return err
			}
		}

		player, err := tx.GetPlayer(ctx, playerID)
		if err != nil {
			return storageError("load player", err)
		}

		report = &TravelReport{
			Outcome: *outcome,
			Player:  *player,
			Game:    *game,
			Result:  result,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// Refuel buys units of fuel at the player's current airport
func (e *Engine) Refuel(ctx context.Context, store Store, playerID, gameID int64, units float64) (*RefuelReport, error) {
	var report *RefuelReport

	err := store.WithinTx(ctx, func(tx Store) error {
		player, err := tx.GetPlayer(ctx, playerID)
		if err != nil {
			return storageError(fmt.Sprintf("load player %d", playerID), err)
		}
		game, err := tx.GetGame(ctx, gameID)
		if err != nil {
			return storageError(fmt.Sprintf("load game %d", gameID), err)
		}
		if game.IsTerminal() {
			return alreadyConcluded(game)
		}

		airport, err := e.travel.lookupAirport(ctx, tx, player.CurrentAirportID)
		if err != nil {
			return err
		}

		if err := e.ledger.CheckAttempts(player.RefuelAttempts); err != nil {
			return err
		}

		price := 0.0
		if e.rules.RequireFuelAvailable {
			if !e.ledger.FuelAvailableAt(airport) {
				return newError(CodeFuelUnavailable, "fuel is not available at %s", airport.Name)
			}
			price = airport.FuelPrice
		}

		result, err := e.ledger.ApplyRefuel(player.Fuel, player.RefuelAttempts, units, price)
		if err != nil {
			return err
		}

		if err := tx.UpdatePlayerFuel(ctx, player.ID, result.Fuel); err != nil {
			return storageError("update player fuel", err)
		}
		if err := tx.UpdatePlayerRefuelAttempts(ctx, player.ID, result.Attempts); err != nil {
			return storageError("update refuel attempts", err)
		}

		report = &RefuelReport{
			Result:       result,
			Airport:      *airport,
			PricePerUnit: price,
			Remaining:    e.remainingRefuels(result.Attempts),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// Investigate lists the clues and informants at the player's airport
func (e *Engine) Investigate(ctx context.Context, store Store, playerID int64) (*Investigation, error) {
	player, err := store.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, storageError(fmt.Sprintf("load player %d", playerID), err)
	}
	airport, err := e.travel.lookupAirport(ctx, store, player.CurrentAirportID)
	if err != nil {
		return nil, err
	}
	clues, err := e.browser.CluesAt(ctx, store, airport.ID)
	if err != nil {
		return nil, err
	}
	npcs, err := e.browser.NpcsAt(ctx, store, airport.ID)
	if err != nil {
		return nil, err
	}
	return &Investigation{Airport: *airport, Clues: clues, NPCs: npcs}, nil
}

// Destinations lists every other airport with its trip plan
func (e *Engine) Destinations(ctx context.Context, store Store, playerID int64) ([]DestinationOption, error) {
	player, err := store.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, storageError(fmt.Sprintf("load player %d", playerID), err)
	}
	return e.destinationsFor(ctx, store, player)
}

func (e *Engine) destinationsFor(ctx context.Context, store Store, player *Player) ([]DestinationOption, error) {
	current, err := e.travel.lookupAirport(ctx, store, player.CurrentAirportID)
	if err != nil {
		return nil, err
	}
	airports, err := store.ListAirportsExcept(ctx, current.ID)
	if err != nil {
		return nil, storageError("list airports", err)
	}

	options := make([]DestinationOption, 0, len(airports))
	for _, airport := range airports {
		plan := e.travel.PlanTrip(*current, airport)
		options = append(options, DestinationOption{
			TripPlan:   plan,
			Affordable: e.ledger.CanAfford(player.Fuel, plan.FuelCost),
			IsFuelStop: e.ledger.FuelAvailableAt(&airport),
		})
	}
	return options, nil
}

// PlanTrip previews the distance and fuel needed to reach destinationID
func (e *Engine) PlanTrip(ctx context.Context, store Store, playerID, destinationID int64) (*DestinationOption, error) {
	player, err := store.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, storageError(fmt.Sprintf("load player %d", playerID), err)
	}
	current, err := e.travel.lookupAirport(ctx, store, player.CurrentAirportID)
	if err != nil {
		return nil, err
	}
	destination, err := e.travel.lookupAirport(ctx, store, destinationID)
	if err != nil {
		return nil, err
	}
	if current.ID == destination.ID {
		return nil, newError(CodeInvalidAirport, "already at %s", current.Name)
	}
	plan := e.travel.PlanTrip(*current, *destination)
	return &DestinationOption{
		TripPlan:   plan,
		Affordable: e.ledger.CanAfford(player.Fuel, plan.FuelCost),
		IsFuelStop: e.ledger.FuelAvailableAt(destination),
	}, nil
}

// Evaluate runs the terminal check for the player's game and concludes it as
// lost when the player is out of resources. Callers run it after every action.
func (e *Engine) Evaluate(ctx context.Context, store Store, playerID, gameID int64) (GameOutcome, *GameState, error) {
	var (
		outcome GameOutcome
		game    *GameState
	)
	err := store.WithinTx(ctx, func(tx Store) error {
		g, err := tx.GetGame(ctx, gameID)
		if err != nil {
			return storageError(fmt.Sprintf("load game %d", gameID), err)
		}
		outcome, game, err = e.evaluate(ctx, tx, playerID, g)
		return err
	})
	if err != nil {
		return GameOutcome{}, nil, err
	}
	return outcome, game, nil
}

func (e *Engine) evaluate(ctx context.Context, tx Store, playerID int64, game *GameState) (GameOutcome, *GameState, error) {
	switch game.Status() {
	case StatusWon:
		return GameOutcome{Status: StatusWon, Reason: "fugitive caught"}, game, nil
	case StatusLost:
		return GameOutcome{Status: StatusLost, Reason: "game over"}, game, nil
	}

	player, err := tx.GetPlayer(ctx, playerID)
	if err != nil {
		return GameOutcome{}, nil, storageError(fmt.Sprintf("load player %d", playerID), err)
	}

	outcome := e.machine.CheckTerminal(player)
	if outcome.Status == StatusActive && e.rules.StrandedEndsGame {
		reason, err := e.strandedReason(ctx, tx, player)
		if err != nil {
			return GameOutcome{}, nil, err
		}
		if reason != "" {
			outcome = GameOutcome{Status: StatusLost, Reason: reason}
		}
	}
	if outcome.Status != StatusLost {
		return outcome, game, nil
	}

	concluded, err := e.machine.Conclude(ctx, tx, *game, false)
	if err != nil {
		return GameOutcome{}, nil, err
	}
	return outcome, &concluded, nil
}

// strandedReason explains why the player can neither fly nor refuel, or
// returns "" when some way forward remains.
func (e *Engine) strandedReason(ctx context.Context, tx Store, player *Player) (string, error) {
	var reason string
	if player.RefuelAttempts >= e.rules.MaxRefuelAttempts {
		reason = "stranded: no destination in range and no refuel attempts left"
	} else if e.rules.RequireFuelAvailable {
		airport, err := e.travel.lookupAirport(ctx, tx, player.CurrentAirportID)
		if err != nil {
			return "", err
		}
		if e.ledger.FuelAvailableAt(airport) {
			return "", nil
		}
		reason = fmt.Sprintf("stranded: no destination in range and no fuel sold at %s", airport.Name)
	} else {
		return "", nil
	}

	options, err := e.destinationsFor(ctx, tx, player)
	if err != nil {
		return "", err
	}
	if len(options) == 0 || CountAffordable(options) > 0 {
		return "", nil
	}
	return reason, nil
}

// Status reports the player's situation, travel history included
func (e *Engine) Status(ctx context.Context, store Store, playerID, gameID int64) (*StatusReport, error) {
	player, err := store.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, storageError(fmt.Sprintf("load player %d", playerID), err)
	}
	game, err := store.GetGame(ctx, gameID)
	if err != nil {
		return nil, storageError(fmt.Sprintf("load game %d", gameID), err)
	}
	airport, err := e.travel.lookupAirport(ctx, store, player.CurrentAirportID)
	if err != nil {
		return nil, err
	}
	history, err := e.History(ctx, store, playerID)
	if err != nil {
		return nil, err
	}

	report := &StatusReport{
		Player:           *player,
		Airport:          *airport,
		Game:             *game,
		Result:           GameOutcome{Status: game.Status()},
		RemainingRefuels: e.remainingRefuels(player.RefuelAttempts),
		MaxRefuels:       e.rules.MaxRefuelAttempts,
		History:          history,
	}
	if game.IsTerminal() {
		report.FuelRisk = "GAME OVER"
		return report, nil
	}
	options, err := e.destinationsFor(ctx, store, player)
	if err != nil {
		return nil, err
	}
	report.FuelRisk = AnalyzeFuelRisk(player, e.rules.MaxRefuelAttempts, options)
	return report, nil
}

// History returns the player's travel log joined with airport names
func (e *Engine) History(ctx context.Context, store Store, playerID int64) ([]MovementView, error) {
	records, err := store.ListMovements(ctx, playerID)
	if err != nil {
		return nil, storageError("list travel history", err)
	}

	names := make(map[int64]string)
	nameOf := func(id int64) string {
		if name, ok := names[id]; ok {
			return name
		}
		name := fmt.Sprintf("airport #%d", id)
		if airport, err := store.GetAirport(ctx, id); err == nil {
			name = airport.Name
		}
		names[id] = name
		return name
	}

	views := make([]MovementView, 0, len(records))
	for _, rec := range records {
		views = append(views, MovementView{
			MovementRecord: rec,
			FromName:       nameOf(rec.FromAirportID),
			ToName:         nameOf(rec.ToAirportID),
		})
	}
	return views, nil
}

func (e *Engine) remainingRefuels(attempts int) int {
	remaining := e.rules.MaxRefuelAttempts - attempts
	if remaining < 0 {
		return 0
	}
	return remaining
}
