// Package service provides the orchestration layer between the transports
// (HTTP, WebSocket, MCP) and the simulation engine.
//
// The service package implements:
//   - Multi-session simulation management
//   - Map catalog access
//   - Single-step, run-to-completion and reset controls
//   - Auto-play driven by a ticker
//   - Paginated outcome logs and result export
//
// Core Interfaces:
//
// SimulationService is the main service interface. SessionManager stores
// sessions, MapCatalog loads and saves map files and Notifier receives state
// and outcome events (the websocket hub implements it).
//
// Concurrency:
//
// Each Session owns one engine and a mutex. Every engine call, including the
// ones made by the auto-play goroutine, happens with that mutex held, so a
// session's adventurers only ever move one at a time.
//
// Usage:
//
//	sessions := session.NewManager()
//	maps, _ := config.NewManager("maps")
//	svc := service.NewSimulationService(sessions, maps, hub)
//	defer svc.Shutdown()
//
//	info, err := svc.CreateSession(ctx, service.CreateSessionRequest{MapID: "classic"})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := svc.Step(ctx, info.ID)
//	fmt.Println(result.Message)
package service
