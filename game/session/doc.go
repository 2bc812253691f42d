// Package session provides in-memory session management for treasure quest
// simulations.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Unique session ID generation
//   - Session cleanup and expiration
//
// Core Types:
//
// Manager stores service.Session values, each wrapping its own engine loaded
// from a map text. Sessions are not persisted; a restart forgets them.
//
// Session Identifiers:
//
// Generated IDs are 4 hex characters drawn from crypto/rand. Lookups are
// case-insensitive.
//
// Usage:
//
//	manager := session.NewManager()
//
//	sess, err := manager.Create("", "classic", mapText)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sess, err = manager.Get(sess.ID)
//
// Cleanup:
//
// CleanupExpiredSessions drops sessions idle for longer than a given age,
// skipping those that are auto-playing.
package session
