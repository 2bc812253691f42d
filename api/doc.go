// Package api provides the HTTP REST API for treasure hunt simulations.
//
// The api package implements:
//   - One-shot simulation of an uploaded map
//   - Session management and step-by-step control
//   - Timed auto-play with pause
//   - Paginated outcome history and result download
//   - Map catalog listing, download and upload
//   - WebSocket upgrade for the live event feed
//
// Endpoints:
//
// Simulation:
//   - POST /api/simulate - Run a map to completion and return the result file
//     (text/plain, or JSON with ?format=json)
//
// Session Management:
//   - POST /api/sessions - Create a session from {"map_id"} or {"map_text"}
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/sessions/{id} - Get session info
//   - DELETE /api/sessions/{id} - Delete a session
//
// Simulation Control:
//   - GET /api/sessions/{id}/state - Full engine state
//   - POST /api/sessions/{id}/step - Execute one adventurer turn
//   - POST /api/sessions/{id}/run - Run to completion
//   - POST /api/sessions/{id}/reset - Reload the initial map
//   - POST /api/sessions/{id}/play - Auto-play, body {"interval_ms": 200}
//   - POST /api/sessions/{id}/pause - Stop auto-play
//   - GET /api/sessions/{id}/history - Outcome log (?page=1&limit=20&order=desc)
//   - GET /api/sessions/{id}/output - Result file as an attachment
//
// Maps:
//   - GET /api/maps - List catalog maps
//   - GET /api/maps/{name} - Map source text
//   - POST /api/maps - Save a map, body {"name": "...", "text": "..."}
//
// Live feed:
//   - GET /ws?session={id} - WebSocket stream of outcomes and state updates
//
// Usage:
//
//	server := api.NewServer(svc, hub)
//	http.ListenAndServe(":8080", server)
//
// Error Handling:
//
// Errors are returned as JSON with an HTTP status derived from the service error:
// 404 for unknown sessions or maps, 409 for stepping an ended simulation,
// 400 for invalid maps or intervals.
//
//	{
//	  "error": "session ab12: session not found"
//	}
package api
