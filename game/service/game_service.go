package service

import (
	"context"
	"sync"
	"time"

	"github.com/wricardo/treasure-quest/game/engine"
)

// SimulationService defines all simulation-related operations
type SimulationService interface {
	// Session Management
	CreateSession(ctx context.Context, req CreateSessionRequest) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Simulation Control
	Step(ctx context.Context, sessionID string) (*StepResult, error)
	Run(ctx context.Context, sessionID string) (*RunResult, error)
	Reset(ctx context.Context, sessionID string) (*engine.State, error)
	Play(ctx context.Context, sessionID string, interval time.Duration) (*SessionInfo, error)
	Pause(ctx context.Context, sessionID string) (*SessionInfo, error)

	// Simulation State
	GetState(ctx context.Context, sessionID string) (*engine.State, error)
	GetHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)
	Export(ctx context.Context, sessionID string) (string, error)

	// One-shot simulation of a map text
	Simulate(ctx context.Context, text string) (*SimulationResult, error)

	// Map catalog
	ListMaps(ctx context.Context) ([]*MapInfo, error)
	LoadMap(ctx context.Context, name string) (string, error)
	SaveMap(ctx context.Context, name, text string) error

	// Shutdown stops every auto-play loop
	Shutdown()
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id, mapName, source string) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// MapCatalog handles map file loading
type MapCatalog interface {
	LoadMap(name string) (string, error)
	ListMaps() ([]*MapInfo, error)
	GetDefault() string
	SaveMap(name, text string) error
}

// Notifier receives simulation events as they happen
type Notifier interface {
	BroadcastState(sessionID string, state *engine.State)
	BroadcastOutcome(sessionID string, outcome engine.Outcome)
}

// Session represents an active simulation session. The engine is only
// touched with mu held.
type Session struct {
	ID        string
	MapName   string
	Engine    engine.Engine
	CreatedAt time.Time

	mu           sync.Mutex
	lastAccessed time.Time
	playCtx      context.Context
	stopPlay     context.CancelFunc
	interval     time.Duration
}

// NewSession wraps an engine in a session
func NewSession(id, mapName string, eng engine.Engine) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		MapName:      mapName,
		Engine:       eng,
		CreatedAt:    now,
		lastAccessed: now,
	}
}

// Touch records an access to the session
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastAccessed = time.Now()
	s.mu.Unlock()
}

// LastAccessed returns when the session was last used
func (s *Session) LastAccessed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccessed
}

// Playing reports whether auto-play is running
func (s *Session) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopPlay != nil
}
