// Package engine provides the core game logic for Operation Skytrack.
//
// The engine package implements the chase mechanics including:
//   - Geodesic distance between airports and fuel cost per trip
//   - The fuel ledger: debits, capped refuels and the attempt counter
//   - Atomic travel: fuel, location, travel log and move count together
//   - The game lifecycle: active, won (fugitive caught) or lost
//   - Clue and informant lookup at the player's airport
//
// Core Types:
//
// Engine bundles FuelLedger, TravelEngine, StateMachine and ClueNpcBrowser
// for one Rules set and exposes the player intents. All state lives behind
// the Store interface; the engine holds no per-player state of its own, so
// one Engine serves any number of games.
//
// Usage:
//
//	rules, err := engine.LoadRules("configs/classic.json")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	eng, err := engine.NewEngine(rules)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	start, err := eng.StartGame(ctx, store, "maverick")
//	report, err := eng.TravelTo(ctx, store, start.Player.ID, start.Game.ID, 7)
//
// Game Rules:
//
// The player starts at the start airport with 250 units of fuel. Each trip
// burns 0.5 units per kilometre. Up to five refuels are allowed. Reaching
// the target airport wins; running dry with no refuels left loses. Rejected
// actions return an *Error whose Code says why, and leave state untouched.
package engine
