// Package websocket pushes live game updates to browsers and dashboards.
//
// A central Hub owns every connection. Clients subscribe to one session with
// the ?session=<id> query parameter and receive a JSON Message after each
// travel or refuel in that session:
//
//	{"id": "<uuid>", "session_id": "ab12", "event": "state_update",
//	 "status": {...}, "events": [...], "timestamp": "..."}
//
// Broadcasting never blocks the caller: messages go through a buffered queue
// and are dropped with a warning when the queue is full.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run()
//	defer hub.Close()
//
//	hub.BroadcastToSession(sessionID, status, events)
package websocket
