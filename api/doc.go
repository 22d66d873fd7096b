// Package api provides the HTTP REST API for Operation Skytrack.
//
// Endpoints:
//
// Sessions:
//   - POST   /api/sessions                     - Start a game {"screen_name", "config_id"}
//   - GET    /api/sessions?sort=&order=&limit=  - List sessions
//   - GET    /api/sessions/{id}                - Get one session
//   - DELETE /api/sessions/{id}                - Delete a session
//
// Game Operations:
//   - GET  /api/sessions/{id}/status                  - Player, airport, game result and fuel risk
//   - GET  /api/sessions/{id}/destinations            - Every other airport with its trip cost
//   - GET  /api/sessions/{id}/plan?destination={id}   - Preview one trip
//   - POST /api/sessions/{id}/travel                  - Fly {"destination_id": 5}
//   - POST /api/sessions/{id}/refuel                  - Refuel {"units": 500}
//   - GET  /api/sessions/{id}/investigate             - Clues and NPCs at the current airport
//   - GET  /api/sessions/{id}/history?page=&limit=&order= - Paginated flight log
//
// Configuration:
//   - GET  /api/configs          - List rule sets
//   - GET  /api/configs/{name}   - Get one rule set
//   - POST /api/configs?id=name  - Save a rule set
//
// Other:
//   - GET /api/health      - Liveness plus an optional storage probe
//   - GET /ws?session={id} - WebSocket state updates
//
// Error Handling:
//
// Rejected actions return the engine's rejection code. Fuel rejections also
// carry the amount required and the amount available:
//
//	{
//	  "error": "not enough fuel: need 1101.35 units but only have 250.00",
//	  "code": "INSUFFICIENT_FUEL",
//	  "required": 1101.35,
//	  "available": 250
//	}
//
// NOT_FOUND maps to 404, INVALID_INPUT and INVALID_AIRPORT to 400, fuel and
// refuel rejections to 422, ALREADY_CONCLUDED to 409 and STORAGE_UNAVAILABLE
// to 503.
package api
