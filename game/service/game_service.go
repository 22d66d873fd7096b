package service

import (
	"context"
	"errors"
	"time"

	"github.com/wricardo/skytrack/game/engine"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrConfigNotFound  = errors.New("config not found")
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	StartGame(ctx context.Context, screenName, configName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	Travel(ctx context.Context, sessionID string, destinationID int64) (*TravelResult, error)
	Refuel(ctx context.Context, sessionID string, units float64) (*RefuelResult, error)
	Investigate(ctx context.Context, sessionID string) (*engine.Investigation, error)

	// Game State
	Status(ctx context.Context, sessionID string) (*engine.StatusReport, error)
	Destinations(ctx context.Context, sessionID string) (*DestinationsResult, error)
	PlanTrip(ctx context.Context, sessionID string, destinationID int64) (*engine.DestinationOption, error)
	GetTravelHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.Rules, error)
	SaveConfig(ctx context.Context, configName string, rules *engine.Rules) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, spec SessionSpec) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// ConfigManager handles rule set loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.Rules, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.Rules
	SaveConfig(name string, rules *engine.Rules) error
}

// SessionSpec carries what a session manager needs to register a game
type SessionSpec struct {
	ConfigName string
	Rules      *engine.Rules
	PlayerID   int64
	GameID     int64
	ScreenName string
}

// Session binds a player's current game to the rules it is played under
type Session struct {
	ID             string
	ConfigName     string
	ScreenName     string
	PlayerID       int64
	GameID         int64
	Rules          *engine.Rules
	Engine         *engine.Engine
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
