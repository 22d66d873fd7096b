package session

import (
	"time"

	"github.com/wricardo/skytrack/game/engine"
	"github.com/wricardo/skytrack/game/service"
)

// SessionPersistence defines the interface for persisting sessions
type SessionPersistence interface {
	// Save persists a session to storage
	Save(session *service.Session) error

	// Load retrieves a session from storage by ID
	Load(id string) (*service.Session, error)

	// Delete removes a session from storage
	Delete(id string) error

	// ListAll returns all persisted session IDs
	ListAll() ([]string, error)

	// Exists checks if a session exists in storage
	Exists(id string) bool
}

// PersistedSessionData represents the JSON structure for persisted sessions.
// Game progress itself lives in the store; the file only binds the session
// id to a player, a game and the rules it is played under.
type PersistedSessionData struct {
	ID             string        `json:"id"`
	ConfigName     string        `json:"config_name"`
	ScreenName     string        `json:"screen_name"`
	PlayerID       int64         `json:"player_id"`
	GameID         int64         `json:"game_id"`
	Rules          *engine.Rules `json:"rules,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	LastAccessedAt time.Time     `json:"last_accessed_at"`
}
