// Package websocket provides the live event feed for simulation sessions.
//
// Architecture:
//
// A central Hub manages all WebSocket connections. Each client connection is
// served by a read goroutine and a write goroutine; the hub loop owns
// registration and fan-out. The Hub implements service.Notifier, so the
// service layer publishes every step, including auto-play steps, without
// knowing about connections.
//
// Message Protocol:
//
// Outgoing messages are JSON objects, one per frame:
//   - {"event": "connected", "session_id": "ab12"} once per connection
//   - {"event": "outcome", "outcome": {...}, "log": "Lara advances south to (1,2)"}
//   - {"event": "state_update", "state": {...}} with the full engine state
//
// Incoming messages are ignored.
//
// Session Integration:
//
// Clients choose a session with the query parameter (?session=ab12). Updates
// are delivered only to clients of the same session.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run()
//	defer hub.Stop()
//
//	svc := service.NewSimulationService(sessions, maps, hub)
//	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"))
//	})
//
// Broadcasting never blocks the caller: when the hub falls behind, messages
// are dropped and a warning is logged.
package websocket
