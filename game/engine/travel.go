package engine

import (
	"context"
	"errors"
	"fmt"
)

// TravelEngine moves a player between airports
type TravelEngine struct {
	ledger   *FuelLedger
	machine  *StateMachine
	distance DistanceFunc
	targetID int64
}

// NewTravelEngine creates a travel engine. A nil distance uses DistanceKm.
func NewTravelEngine(rules *Rules, ledger *FuelLedger, machine *StateMachine, distance DistanceFunc) *TravelEngine {
	if distance == nil {
		distance = DistanceKm
	}
	return &TravelEngine{
		ledger:   ledger,
		machine:  machine,
		distance: distance,
		targetID: rules.TargetAirportID,
	}
}

// PlanTrip computes distance and fuel cost between two airports
func (t *TravelEngine) PlanTrip(current, destination Airport) TripPlan {
	km := t.distance(current.Coordinates, destination.Coordinates)
	return TripPlan{
		From:       current,
		To:         destination,
		DistanceKm: km,
		FuelCost:   t.ledger.CostForDistance(km),
	}
}

// IsTarget reports whether the airport is where the fugitive hides
func (t *TravelEngine) IsTarget(airportID int64) bool {
	return airportID == t.targetID
}

// ExecuteTravel flies the player to destinationID. The fuel debit, location
// update, movement record and move counter are written in one transaction;
// on any error nothing is written.
func (t *TravelEngine) ExecuteTravel(ctx context.Context, store Store, playerID, gameID, destinationID int64) (*TravelOutcome, error) {
	var outcome *TravelOutcome

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

		current, err := t.lookupAirport(ctx, tx, player.CurrentAirportID)
		if err != nil {
			return err
		}
		destination, err := t.lookupAirport(ctx, tx, destinationID)
		if err != nil {
			return err
		}
		if current.ID == destination.ID {
			return newError(CodeInvalidAirport, "already at %s", current.Name)
		}

		plan := t.PlanTrip(*current, *destination)
		if !t.ledger.CanAfford(player.Fuel, plan.FuelCost) {
			return insufficientFuel(plan.FuelCost, player.Fuel)
		}
		newFuel, err := t.ledger.Debit(player.Fuel, plan.FuelCost)
		if err != nil {
			return err
		}

		if err := tx.UpdatePlayerFuel(ctx, player.ID, newFuel); err != nil {
			return storageError("update player fuel", err)
		}
		if err := tx.UpdatePlayerLocation(ctx, player.ID, destination.ID); err != nil {
			return storageError("update player location", err)
		}
		if err := tx.AppendMovement(ctx, player.ID, current.ID, destination.ID, plan.DistanceKm); err != nil {
			return storageError("record movement", err)
		}
		moved, err := t.machine.RecordMove(*game)
		if err != nil {
			return err
		}
		if err := tx.UpdateGame(ctx, game.ID, GameUpdate{MovesCount: &moved.MovesCount}); err != nil {
			return storageError("update move count", err)
		}

		outcome = &TravelOutcome{
			Plan:          plan,
			FuelBefore:    player.Fuel,
			FuelAfter:     newFuel,
			MovesCount:    moved.MovesCount,
			ReachedTarget: t.IsTarget(destination.ID),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

func (t *TravelEngine) lookupAirport(ctx context.Context, store ReferenceStore, id int64) (*Airport, error) {
	airport, err := store.GetAirport(ctx, id)
	if err == nil {
		return airport, nil
	}
	if errors.Is(err, ErrRecordNotFound) {
		return nil, &Error{Code: CodeInvalidAirport, Message: fmt.Sprintf("invalid airport id %d", id), Err: err}
	}
	return nil, storageError(fmt.Sprintf("load airport %d", id), err)
}
