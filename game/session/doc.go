// Package session provides session management for Operation Skytrack.
//
// A session binds a short, shareable identifier to one player's current game
// and the rule set it is played under. The game progress itself (fuel,
// location, moves, history) lives in the engine store; sessions only remember
// which player and game to act on.
//
// Core Types:
//
// Manager is the thread-safe session registry. FilePersistence stores each
// session as a JSON file so that sessions survive restarts.
//
// Session Identifiers:
//
// Sessions use 4-character hex IDs generated from crypto/rand. Lookups are
// case-insensitive.
//
// Usage:
//
//	persistence, _ := session.NewFilePersistence("sessions", configManager)
//	manager := session.NewManagerWithPersistence(persistence)
//	_ = manager.LoadPersistedSessions()
//
//	sess, err := manager.Create("", service.SessionSpec{
//		ConfigName: "classic",
//		Rules:      rules,
//		PlayerID:   start.Player.ID,
//		GameID:     start.Game.ID,
//	})
//
// Cleanup:
//
// CleanupExpiredSessions drops sessions idle for longer than a TTL and
// PruneOrphaned drops sessions whose file was deleted on disk. The server
// runs both on a schedule.
package session
