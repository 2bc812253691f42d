package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/wricardo/treasure-quest/game/engine"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100

	DefaultPlayInterval = 100 * time.Millisecond
	MinPlayInterval     = 10 * time.Millisecond
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrMapNotFound     = errors.New("map not found")
	ErrInvalidMap      = errors.New("invalid map")
	ErrInvalidInterval = errors.New("invalid auto-play interval")
)

// simulationServiceImpl implements the SimulationService interface
type simulationServiceImpl struct {
	sessions SessionManager
	maps     MapCatalog
	notifier Notifier
	wg       sync.WaitGroup
}

// NewSimulationService creates a new simulation service. notifier may be nil.
func NewSimulationService(sessions SessionManager, maps MapCatalog, notifier Notifier) SimulationService {
	return &simulationServiceImpl{
		sessions: sessions,
		maps:     maps,
		notifier: notifier,
	}
}

// CreateSession creates a new simulation session
func (s *simulationServiceImpl) CreateSession(ctx context.Context, req CreateSessionRequest) (*SessionInfo, error) {
	mapName := req.MapID
	source := req.MapText

	if source == "" {
		var err error
		if mapName == "" {
			mapName = s.maps.GetDefault()
		}
		source, err = s.maps.LoadMap(mapName)
		if err != nil {
			if errors.Is(err, ErrMapNotFound) {
				if maps, listErr := s.maps.ListMaps(); listErr == nil && len(maps) > 0 {
					ids := make([]string, 0, len(maps))
					for _, m := range maps {
						ids = append(ids, m.MapID)
					}
					return nil, fmt.Errorf("%w: '%s'. Available maps: %v", ErrMapNotFound, mapName, ids)
				}
			}
			return nil, fmt.Errorf("failed to load map %s: %w", mapName, err)
		}
	} else if mapName == "" {
		mapName = "custom"
	}

	// Let session manager generate a proper 4-character ID
	sess, err := s.sessions.Create("", mapName, source)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	log.WithFields(log.Fields{
		"session":  sess.ID,
		"map":      mapName,
		"warnings": len(sess.Engine.Warnings()),
	}).Info("session created")

	return s.sessionInfo(sess), nil
}

// GetSession retrieves session information
func (s *simulationServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return s.sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *simulationServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession stops auto-play and removes a session
func (s *simulationServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return fmt.Errorf("session %s: %w", sessionID, err)
	}

	sess.mu.Lock()
	s.stopLocked(sess)
	sess.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("session %s: %w", sessionID, err)
	}
	log.WithField("session", sess.ID).Info("session deleted")
	return nil
}

// Step advances the next adventurer by one action
func (s *simulationServiceImpl) Step(ctx context.Context, sessionID string) (*StepResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	outcome, err := sess.Engine.Step()
	state := sess.Engine.State()
	sess.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.logOutcome(sess.ID, outcome)
	s.notifyOutcome(sess.ID, outcome)
	s.notifyState(sess.ID, state)

	return &StepResult{
		Outcome: outcome,
		Message: outcome.String(),
		State:   state,
	}, nil
}

// Run steps the session until every script is exhausted
func (s *simulationServiceImpl) Run(ctx context.Context, sessionID string) (*RunResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	s.stopLocked(sess)
	if sess.Engine.IsEnded() {
		sess.mu.Unlock()
		return nil, engine.ErrGameEnded
	}
	outcomes := sess.Engine.RunToCompletion()
	state := sess.Engine.State()
	output := sess.Engine.Output()
	sess.mu.Unlock()

	for _, o := range outcomes {
		s.logOutcome(sess.ID, o)
		s.notifyOutcome(sess.ID, o)
	}
	s.notifyState(sess.ID, state)

	log.WithFields(log.Fields{
		"session": sess.ID,
		"steps":   len(outcomes),
	}).Info("simulation ran to completion")

	return &RunResult{
		StepsExecuted: len(outcomes),
		Outcomes:      outcomes,
		Log:           logLines(outcomes),
		State:         state,
		Output:        output,
	}, nil
}

// Reset restores the session to its freshly loaded map
func (s *simulationServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.State, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	s.stopLocked(sess)
	err = sess.Engine.Reset()
	state := sess.Engine.State()
	sess.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to reset session %s: %w", sess.ID, err)
	}

	s.notifyState(sess.ID, state)
	return state, nil
}

// Play starts stepping the session on a ticker. Calling Play on a session
// that is already playing restarts it with the new interval.
func (s *simulationServiceImpl) Play(ctx context.Context, sessionID string, interval time.Duration) (*SessionInfo, error) {
	if interval == 0 {
		interval = DefaultPlayInterval
	}
	if interval < MinPlayInterval {
		return nil, fmt.Errorf("%w: must be at least %s", ErrInvalidInterval, MinPlayInterval)
	}

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	if sess.Engine.IsEnded() {
		sess.mu.Unlock()
		return nil, engine.ErrGameEnded
	}
	s.stopLocked(sess)
	playCtx, cancel := context.WithCancel(context.Background())
	sess.playCtx = playCtx
	sess.stopPlay = cancel
	sess.interval = interval
	sess.mu.Unlock()

	log.WithFields(log.Fields{
		"session":  sess.ID,
		"interval": interval,
	}).Info("auto-play started")

	s.wg.Add(1)
	go s.autoplay(playCtx, sess, interval)

	return s.sessionInfo(sess), nil
}

// Pause stops auto-play; pausing a session that is not playing is a no-op
func (s *simulationServiceImpl) Pause(ctx context.Context, sessionID string) (*SessionInfo, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	wasPlaying := s.stopLocked(sess)
	sess.mu.Unlock()

	if wasPlaying {
		log.WithField("session", sess.ID).Info("auto-play paused")
	}
	return s.sessionInfo(sess), nil
}

// Shutdown stops every auto-play loop and waits for them to exit
func (s *simulationServiceImpl) Shutdown() {
	for _, sess := range s.sessions.List() {
		sess.mu.Lock()
		s.stopLocked(sess)
		sess.mu.Unlock()
	}
	s.wg.Wait()
}

// autoplay steps the session once per tick until cancelled or ended
func (s *simulationServiceImpl) autoplay(ctx context.Context, sess *Session, interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		sess.mu.Lock()
		if ctx.Err() != nil {
			sess.mu.Unlock()
			return
		}
		outcome, err := sess.Engine.Step()
		state := sess.Engine.State()
		done := err != nil || sess.Engine.IsEnded()
		if done && sess.playCtx == ctx {
			s.stopLocked(sess)
		}
		sess.mu.Unlock()

		if err != nil {
			return
		}
		s.logOutcome(sess.ID, outcome)
		s.notifyOutcome(sess.ID, outcome)
		s.notifyState(sess.ID, state)

		if done {
			log.WithField("session", sess.ID).Info("auto-play finished")
			return
		}
	}
}

// stopLocked cancels auto-play; sess.mu must be held
func (s *simulationServiceImpl) stopLocked(sess *Session) bool {
	if sess.stopPlay == nil {
		return false
	}
	sess.stopPlay()
	sess.playCtx = nil
	sess.stopPlay = nil
	sess.interval = 0
	return true
}

// GetState returns the current simulation state
func (s *simulationServiceImpl) GetState(ctx context.Context, sessionID string) (*engine.State, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.Engine.State(), nil
}

// GetHistory returns the paginated outcome log
func (s *simulationServiceImpl) GetHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	history := append([]engine.Outcome(nil), sess.Engine.History()...)
	sess.mu.Unlock()

	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultHistoryLimit
	}
	if opts.Limit > MaxHistoryLimit {
		opts.Limit = MaxHistoryLimit
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	// Calculate pagination
	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	entries := []HistoryEntry{}
	if opts.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			entries = append(entries, historyEntry(i, history[i]))
		}
	} else {
		for i := start; i < end; i++ {
			entries = append(entries, historyEntry(i, history[i]))
		}
	}

	return &HistoryResponse{
		Entries:     entries,
		TotalSteps:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

func historyEntry(i int, o engine.Outcome) HistoryEntry {
	return HistoryEntry{Step: i + 1, Message: o.String(), Outcome: o}
}

// Export serializes the current state in the map format
func (s *simulationServiceImpl) Export(ctx context.Context, sessionID string) (string, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return "", err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.Engine.Output(), nil
}

// Simulate runs a map text to completion without creating a session
func (s *simulationServiceImpl) Simulate(ctx context.Context, text string) (*SimulationResult, error) {
	eng, err := engine.Load(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMap, err)
	}

	outcomes := eng.RunToCompletion()
	log.WithFields(log.Fields{
		"steps":    len(outcomes),
		"warnings": len(eng.Warnings()),
	}).Debug("one-shot simulation finished")

	return &SimulationResult{
		Output:   eng.Output(),
		Steps:    len(outcomes),
		Outcomes: outcomes,
		Log:      logLines(outcomes),
		Warnings: warningStrings(eng.Warnings()),
	}, nil
}

// ListMaps returns the maps in the catalog
func (s *simulationServiceImpl) ListMaps(ctx context.Context) ([]*MapInfo, error) {
	return s.maps.ListMaps()
}

// LoadMap returns the text of a catalog map
func (s *simulationServiceImpl) LoadMap(ctx context.Context, name string) (string, error) {
	return s.maps.LoadMap(name)
}

// SaveMap stores a map text in the catalog
func (s *simulationServiceImpl) SaveMap(ctx context.Context, name, text string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: map name is required", ErrInvalidMap)
	}
	if err := s.maps.SaveMap(name, text); err != nil {
		return err
	}
	log.WithField("map", name).Info("map saved")
	return nil
}

// session looks a session up and marks it as accessed
func (s *simulationServiceImpl) session(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	if err := s.sessions.UpdateLastAccessed(sess.ID); err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	return sess, nil
}

func (s *simulationServiceImpl) sessionInfo(sess *Session) *SessionInfo {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	return &SessionInfo{
		ID:             sess.ID,
		MapName:        sess.MapName,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.lastAccessed,
		Playing:        sess.stopPlay != nil,
		IntervalMS:     sess.interval.Milliseconds(),
		Warnings:       warningStrings(sess.Engine.Warnings()),
		State:          sess.Engine.State(),
	}
}

func (s *simulationServiceImpl) logOutcome(sessionID string, outcome engine.Outcome) {
	entry := log.WithFields(log.Fields{
		"session":   sessionID,
		"game_turn": outcome.GameTurn,
	})
	switch outcome.Kind {
	case engine.Blocked, engine.Rejected:
		entry.Info(outcome.String())
	default:
		entry.Debug(outcome.String())
	}
}

func (s *simulationServiceImpl) notifyOutcome(sessionID string, outcome engine.Outcome) {
	if s.notifier != nil {
		s.notifier.BroadcastOutcome(sessionID, outcome)
	}
}

func (s *simulationServiceImpl) notifyState(sessionID string, state *engine.State) {
	if s.notifier != nil {
		s.notifier.BroadcastState(sessionID, state)
	}
}
