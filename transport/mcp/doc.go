// Package mcp exposes Operation Skytrack to AI agents over the Model Context
// Protocol.
//
// The Client is a thin proxy: every tool call becomes a REST request against
// the api package, so an agent sees exactly the same rules and rejections a
// browser does. Rejections come back as tool errors prefixed with the engine
// code, for example "INSUFFICIENT_FUEL: not enough fuel: ...".
//
// MCP Tools:
//   - start_game: start or restart a chase for a screen name
//   - game_status: airport, fuel, refuels left, fuel risk and result
//   - list_destinations: every other airport with cost and affordability
//   - plan_trip: preview one trip
//   - travel, refuel: the two actions that change state; both take an intent
//   - investigate: clues and NPCs at the current airport
//   - travel_history: paginated flight log
//   - list_sessions, get_session, list_configs, game_instructions
//
// Transport Modes:
//   - Stdio: server.ServeStdio(client.GetMCPServer())
//   - HTTP: the server mounts GetMCPServer().HandleMessage at /mcp
package mcp
