// Package service provides the business logic layer for Operation Skytrack.
//
// The service package implements:
//   - Multi-session chase management, one session per screen name
//   - Rule set loading and saving
//   - Travel and refuel intents with event reporting
//   - Destination listings, trip previews and fuel risk
//   - Paginated travel history
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager loads and saves rule sets.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP and
// the terminal console) and the game engine. Each session binds a player and
// game in the engine.Store to the Rules it is played under; the engine itself
// is stateless, so sessions survive restarts as long as the store does.
//
// Usage:
//
//	store := memory.NewStoreWithWorld(world)
//	configMgr, _ := config.NewManager("configs")
//	gameService := service.NewGameService(store, session.NewManager(), configMgr)
//
//	info, err := gameService.StartGame(ctx, "maverick", "classic")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := gameService.Travel(ctx, info.ID, 5)
//	if engine.CodeOf(err) == engine.CodeInsufficientFuel {
//		// refuel first
//	}
//
// Session Management:
//
// Sessions are identified by unique 4-character IDs. Starting a new game for
// a screen name replaces that player's previous sessions. Rejected intents
// return an *engine.Error and leave the game untouched; unknown sessions and
// rule sets return ErrSessionNotFound and ErrConfigNotFound.
package service
