// Package mcp provides a Model Context Protocol server for treasure hunt
// simulations.
//
// The Client is a thin proxy: every tool call is translated into a request to
// the REST API (see package api) and the JSON response is rendered as text
// for the agent.
//
// MCP Tools:
//   - create_session, list_sessions, get_session: session management
//   - game_state: grid drawing, turn counters and adventurers
//   - step, run, reset_game: simulation control
//   - play, pause: timed auto-play
//   - outcome_log: paginated outcome history
//   - export_result: the result file
//   - list_maps, simulate: map catalog and one-shot simulation
//   - describe_cell: terrain, occupant and nearest treasure for one cell
//   - game_instructions: map format and movement rules
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
//
// Tool failures, including REST errors, are reported as tool error results
// rather than protocol errors.
package mcp
