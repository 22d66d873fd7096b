package engine

import (
	"context"
	"fmt"
)

// StateMachine owns the game lifecycle: active, won, lost
type StateMachine struct {
	maxAttempts  int
	purgeHistory bool
}

// NewStateMachine creates a state machine for the given rules
func NewStateMachine(rules *Rules) *StateMachine {
	return &StateMachine{
		maxAttempts:  rules.MaxRefuelAttempts,
		purgeHistory: rules.PurgeHistoryOnConclude,
	}
}

// CheckTerminal evaluates the loss condition against the player's persisted
// fields: no fuel and no refuel attempts left.
func (m *StateMachine) CheckTerminal(player *Player) GameOutcome {
	if player.Fuel <= 0 && player.RefuelAttempts >= m.maxAttempts {
		return GameOutcome{
			Status: StatusLost,
			Reason: "no fuel and no refuel attempts left",
		}
	}
	return GameOutcome{Status: StatusActive}
}

// RecordMove increments the move counter by one. A concluded game is
// returned unchanged together with ErrAlreadyConcluded.
func (m *StateMachine) RecordMove(game GameState) (GameState, error) {
	if game.IsTerminal() {
		return game, alreadyConcluded(&game)
	}
	game.MovesCount++
	return game, nil
}

// Conclude sets the terminal flags on the game and the player together and,
// when the rules ask for it, purges the player's movement history.
func (m *StateMachine) Conclude(ctx context.Context, store Store, game GameState, won bool) (GameState, error) {
	if game.IsTerminal() {
		return game, alreadyConcluded(&game)
	}

	concluded := game
	concluded.GameOver = true
	concluded.CriminalCaught = won

	err := store.WithinTx(ctx, func(tx Store) error {
		over := true
		update := GameUpdate{GameOver: &over}
		if won {
			caught := true
			update.CriminalCaught = &caught
		}
		if err := tx.UpdateGame(ctx, game.ID, update); err != nil {
			return storageError("update game state", err)
		}
		if err := tx.SetPlayerGameOver(ctx, game.PlayerID, true); err != nil {
			return storageError("update player game over", err)
		}
		if m.purgeHistory {
			if err := tx.PurgeMovements(ctx, game.PlayerID); err != nil {
				return storageError("purge travel history", err)
			}
		}
		return nil
	})
	if err != nil {
		return game, err
	}
	return concluded, nil
}

// PurgesHistoryOnConclude reports the history policy in effect
func (m *StateMachine) PurgesHistoryOnConclude() bool {
	return m.purgeHistory
}

func alreadyConcluded(game *GameState) *Error {
	return &Error{
		Code:    CodeAlreadyConcluded,
		Message: fmt.Sprintf("game %d already concluded (%s)", game.ID, game.Status()),
	}
}
