package engine

import (
	"errors"
	"testing"
)

func TestStateMachine_CheckTerminal(t *testing.T) {
	machine := NewStateMachine(DefaultRules())

	tests := []struct {
		name     string
		fuel     float64
		attempts int
		want     Status
	}{
		{"fresh player", 250, 0, StatusActive},
		{"empty tank with refuels left", 0, 4, StatusActive},
		{"refuels used but fuel left", 10, 5, StatusActive},
		{"empty tank and no refuels", 0, 5, StatusLost},
		{"negative fuel and no refuels", -1, 5, StatusLost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := machine.CheckTerminal(&Player{Fuel: tt.fuel, RefuelAttempts: tt.attempts})
			if outcome.Status != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, outcome.Status)
			}
		})
	}
}

func TestStateMachine_RecordMove(t *testing.T) {
	machine := NewStateMachine(DefaultRules())

	game, err := machine.RecordMove(GameState{ID: 1, MovesCount: 2})
	if err != nil {
		t.Fatalf("RecordMove failed: %v", err)
	}
	if game.MovesCount != 3 {
		t.Errorf("Expected 3 moves, got %d", game.MovesCount)
	}

	won := GameState{ID: 2, MovesCount: 4, CriminalCaught: true, GameOver: true}
	game, err = machine.RecordMove(won)
	if !errors.Is(err, ErrAlreadyConcluded) {
		t.Errorf("Expected ErrAlreadyConcluded, got %v", err)
	}
	if game.MovesCount != 4 {
		t.Errorf("Expected concluded game unchanged, got %d moves", game.MovesCount)
	}
}

func TestGameState_Status(t *testing.T) {
	tests := []struct {
		game GameState
		want Status
	}{
		{GameState{}, StatusActive},
		{GameState{GameOver: true}, StatusLost},
		{GameState{GameOver: true, CriminalCaught: true}, StatusWon},
	}
	for _, tt := range tests {
		if got := tt.game.Status(); got != tt.want {
			t.Errorf("Status(%+v) = %s, want %s", tt.game, got, tt.want)
		}
		if tt.game.IsTerminal() != (tt.want != StatusActive) {
			t.Errorf("IsTerminal(%+v) disagrees with status %s", tt.game, tt.want)
		}
	}
}

func TestError_Is(t *testing.T) {
	err := insufficientFuel(150, 100)
	if !errors.Is(err, ErrInsufficientFuel) {
		t.Error("Expected insufficient fuel error to match its sentinel")
	}
	if errors.Is(err, ErrLimitExceeded) {
		t.Error("Expected codes to differ")
	}
	if CodeOf(err) != CodeInsufficientFuel {
		t.Errorf("Expected code %s, got %s", CodeInsufficientFuel, CodeOf(err))
	}
	if CodeOf(errors.New("plain")) != CodeUnknown {
		t.Error("Expected plain errors to be unknown")
	}

	wrapped := storageError("load player", errors.Join(ErrRecordNotFound))
	if CodeOf(wrapped) != CodeNotFound {
		t.Errorf("Expected NOT_FOUND for a missing record, got %s", CodeOf(wrapped))
	}
	if CodeOf(storageError("load player", errors.New("connection reset"))) != CodeStorageUnavailable {
		t.Error("Expected STORAGE_UNAVAILABLE for other store errors")
	}
	if storageError("noop", nil) != nil {
		t.Error("Expected nil for nil error")
	}
}
