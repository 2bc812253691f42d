package service_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wricardo/treasure-quest/game/engine"
	"github.com/wricardo/treasure-quest/game/service"
)

const classicMap = `C - 3 - 4
M - 1 - 0
M - 2 - 1
T - 0 - 3 - 2
T - 1 - 3 - 3
A - Lara - 1 - 1 - S - AADADAGGA
`

const classicOutput = "C - 3 - 4\nM - 1 - 0\nM - 2 - 1\nT - 1 - 3 - 2\nA - Lara - 0 - 3 - S - 3\n"

// MockSessionManager implements service.SessionManager for testing
type MockSessionManager struct {
	sessions map[string]*service.Session
	mu       sync.Mutex
}

func NewMockSessionManager() *MockSessionManager {
	return &MockSessionManager{
		sessions: make(map[string]*service.Session),
	}
}

func (m *MockSessionManager) Create(id, mapName, source string) (*service.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Generate ID if empty (mimics real session manager behavior)
	if id == "" {
		id = fmt.Sprintf("test_%d", len(m.sessions)+1)
	}
	if _, exists := m.sessions[id]; exists {
		return nil, errors.New("session already exists")
	}

	eng, err := engine.Load(source)
	if err != nil {
		return nil, err
	}
	sess := service.NewSession(id, mapName, eng)
	m.sessions[id] = sess
	return sess, nil
}

func (m *MockSessionManager) Get(id string) (*service.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, exists := m.sessions[strings.ToLower(id)]
	if !exists {
		return nil, service.ErrSessionNotFound
	}
	return sess, nil
}

func (m *MockSessionManager) List() []*service.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*service.Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		result = append(result, sess)
	}
	return result
}

func (m *MockSessionManager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[strings.ToLower(id)]; !exists {
		return service.ErrSessionNotFound
	}
	delete(m.sessions, strings.ToLower(id))
	return nil
}

func (m *MockSessionManager) UpdateLastAccessed(id string) error {
	sess, err := m.Get(id)
	if err != nil {
		return err
	}
	sess.Touch()
	return nil
}

// MockMapCatalog implements service.MapCatalog for testing
type MockMapCatalog struct {
	maps map[string]string
}

func NewMockMapCatalog() *MockMapCatalog {
	return &MockMapCatalog{
		maps: map[string]string{
			"classic": classicMap,
			"duel":    "C - 3 - 1\nA - Lara - 0 - 0 - E - A\nA - Bob - 2 - 0 - W - A\n",
		},
	}
}

func (m *MockMapCatalog) LoadMap(name string) (string, error) {
	text, exists := m.maps[name]
	if !exists {
		return "", service.ErrMapNotFound
	}
	return text, nil
}

func (m *MockMapCatalog) ListMaps() ([]*service.MapInfo, error) {
	result := make([]*service.MapInfo, 0, len(m.maps))
	for name := range m.maps {
		result = append(result, &service.MapInfo{Filename: name + ".txt", MapID: name})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].MapID < result[j].MapID })
	return result, nil
}

func (m *MockMapCatalog) GetDefault() string {
	return "classic"
}

func (m *MockMapCatalog) SaveMap(name, text string) error {
	if _, err := engine.Parse(text); err != nil {
		return fmt.Errorf("%w: %v", service.ErrInvalidMap, err)
	}
	m.maps[name] = text
	return nil
}

// recordingNotifier captures broadcast events
type recordingNotifier struct {
	mu       sync.Mutex
	outcomes []engine.Outcome
	states   int
	ids      map[string]int
}

func (n *recordingNotifier) record(sessionID string) {
	if n.ids == nil {
		n.ids = make(map[string]int)
	}
	n.ids[sessionID]++
}

func (n *recordingNotifier) BroadcastState(sessionID string, state *engine.State) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.record(sessionID)
	n.states++
}

func (n *recordingNotifier) BroadcastOutcome(sessionID string, outcome engine.Outcome) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.record(sessionID)
	n.outcomes = append(n.outcomes, outcome)
}

func (n *recordingNotifier) sessionIDs() map[string]int {
	n.mu.Lock()
	defer n.mu.Unlock()
	ids := make(map[string]int, len(n.ids))
	for id, count := range n.ids {
		ids[id] = count
	}
	return ids
}

func (n *recordingNotifier) counts() (int, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.outcomes), n.states
}

func newTestService(t *testing.T) (service.SimulationService, *recordingNotifier) {
	t.Helper()
	notifier := &recordingNotifier{}
	svc := service.NewSimulationService(NewMockSessionManager(), NewMockMapCatalog(), notifier)
	t.Cleanup(svc.Shutdown)
	return svc, notifier
}

func TestSimulationService_CreateSession(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	tests := []struct {
		name    string
		req     service.CreateSessionRequest
		mapName string
		wantErr error
	}{
		{"default map", service.CreateSessionRequest{}, "classic", nil},
		{"named map", service.CreateSessionRequest{MapID: "duel"}, "duel", nil},
		{"inline text", service.CreateSessionRequest{MapText: "C - 2 - 2\n"}, "custom", nil},
		{"inline text with label", service.CreateSessionRequest{MapID: "mine", MapText: "C - 2 - 2\n"}, "mine", nil},
		{"unknown map", service.CreateSessionRequest{MapID: "nowhere"}, "", service.ErrMapNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := svc.CreateSession(ctx, tt.req)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, info.ID)
			assert.Equal(t, tt.mapName, info.MapName)
			assert.NotNil(t, info.State)
			assert.False(t, info.Playing)
		})
	}
}

func TestSimulationService_UnknownMapListsAlternatives(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.CreateSession(context.Background(), service.CreateSessionRequest{MapID: "nowhere"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "classic")
	assert.Contains(t, err.Error(), "duel")
}

func TestSimulationService_SessionWarnings(t *testing.T) {
	svc, _ := newTestService(t)
	info, err := svc.CreateSession(context.Background(), service.CreateSessionRequest{
		MapText: "C - 2 - 2\nM - 5 - 5\nA - Lara - 0 - 0 - S - A\n",
	})
	require.NoError(t, err)
	require.Len(t, info.Warnings, 1)
	assert.Contains(t, info.Warnings[0], "line 2")
}

func TestSimulationService_SessionNotFound(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.GetSession(ctx, "nope")
	assert.True(t, errors.Is(err, service.ErrSessionNotFound))
	_, err = svc.Step(ctx, "nope")
	assert.True(t, errors.Is(err, service.ErrSessionNotFound))
	_, err = svc.Export(ctx, "nope")
	assert.True(t, errors.Is(err, service.ErrSessionNotFound))
	assert.True(t, errors.Is(svc.DeleteSession(ctx, "nope"), service.ErrSessionNotFound))
}

func TestSimulationService_Step(t *testing.T) {
	ctx := context.Background()
	svc, notifier := newTestService(t)
	info, err := svc.CreateSession(ctx, service.CreateSessionRequest{MapID: "duel"})
	require.NoError(t, err)

	first, err := svc.Step(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, engine.Moved, first.Outcome.Kind)
	assert.Equal(t, "Lara advances east to (1,0)", first.Message)

	second, err := svc.Step(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, engine.Blocked, second.Outcome.Kind)
	assert.True(t, second.State.Ended)

	_, err = svc.Step(ctx, info.ID)
	assert.True(t, errors.Is(err, engine.ErrGameEnded))

	outcomes, states := notifier.counts()
	assert.Equal(t, 2, outcomes)
	assert.Equal(t, 2, states)
}

func TestSimulationService_EventsUseStoredID(t *testing.T) {
	ctx := context.Background()
	svc, notifier := newTestService(t)
	info, err := svc.CreateSession(ctx, service.CreateSessionRequest{MapID: "classic"})
	require.NoError(t, err)

	upper := strings.ToUpper(info.ID)
	require.NotEqual(t, info.ID, upper)

	_, err = svc.Step(ctx, upper)
	require.NoError(t, err)
	_, err = svc.Run(ctx, upper)
	require.NoError(t, err)
	_, err = svc.Reset(ctx, upper)
	require.NoError(t, err)

	ids := notifier.sessionIDs()
	require.Len(t, ids, 1)
	// 9 outcomes plus state updates after step, run and reset
	assert.Equal(t, 12, ids[info.ID])
}

func TestSimulationService_RunAndExport(t *testing.T) {
	ctx := context.Background()
	svc, notifier := newTestService(t)
	info, err := svc.CreateSession(ctx, service.CreateSessionRequest{MapID: "classic"})
	require.NoError(t, err)

	result, err := svc.Run(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, result.StepsExecuted)
	assert.Len(t, result.Log, 9)
	assert.Equal(t, classicOutput, result.Output)
	assert.True(t, result.State.Ended)

	output, err := svc.Export(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, classicOutput, output)

	_, err = svc.Run(ctx, info.ID)
	assert.True(t, errors.Is(err, engine.ErrGameEnded))

	outcomes, _ := notifier.counts()
	assert.Equal(t, 9, outcomes)
}

func TestSimulationService_Reset(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	info, err := svc.CreateSession(ctx, service.CreateSessionRequest{})
	require.NoError(t, err)

	_, err = svc.Run(ctx, info.ID)
	require.NoError(t, err)

	state, err := svc.Reset(ctx, info.ID)
	require.NoError(t, err)
	assert.False(t, state.Ended)
	assert.Equal(t, 0, state.Steps)
	assert.Equal(t, 5, state.RemainingTreasure)

	output, err := svc.Export(ctx, info.ID)
	require.NoError(t, err)
	assert.Contains(t, output, "A - Lara - 1 - 1 - S - 0")
}

func TestSimulationService_GetHistory(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	info, err := svc.CreateSession(ctx, service.CreateSessionRequest{})
	require.NoError(t, err)
	_, err = svc.Run(ctx, info.ID)
	require.NoError(t, err)

	tests := []struct {
		name      string
		opts      service.HistoryOptions
		wantSteps []int
		hasNext   bool
		hasPrev   bool
		pages     int
	}{
		{"defaults are newest first", service.HistoryOptions{}, []int{9, 8, 7, 6, 5, 4, 3, 2, 1}, false, false, 1},
		{"ascending first page", service.HistoryOptions{Page: 1, Limit: 4, Order: "asc"}, []int{1, 2, 3, 4}, true, false, 3},
		{"ascending last page", service.HistoryOptions{Page: 3, Limit: 4, Order: "asc"}, []int{9}, false, true, 3},
		{"descending second page", service.HistoryOptions{Page: 2, Limit: 4, Order: "desc"}, []int{5, 4, 3, 2}, true, true, 3},
		{"past the end", service.HistoryOptions{Page: 5, Limit: 4, Order: "asc"}, []int{}, false, true, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.GetHistory(ctx, info.ID, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, 9, resp.TotalSteps)
			assert.Equal(t, tt.pages, resp.TotalPages)
			assert.Equal(t, tt.hasNext, resp.HasNext)
			assert.Equal(t, tt.hasPrev, resp.HasPrevious)

			steps := []int{}
			for _, e := range resp.Entries {
				steps = append(steps, e.Step)
				assert.Equal(t, e.Outcome.String(), e.Message)
			}
			assert.Equal(t, tt.wantSteps, steps)
		})
	}

	resp, err := svc.GetHistory(ctx, info.ID, service.HistoryOptions{Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, service.MaxHistoryLimit, resp.PageSize)
}

func TestSimulationService_Simulate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	result, err := svc.Simulate(ctx, classicMap)
	require.NoError(t, err)
	assert.Equal(t, classicOutput, result.Output)
	assert.Equal(t, 9, result.Steps)
	assert.Empty(t, result.Warnings)

	_, err = svc.Simulate(ctx, "C - -1 - 2\n")
	assert.True(t, errors.Is(err, service.ErrInvalidMap))

	sessions, err := svc.ListSessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions, "one-shot simulations do not create sessions")
}

func TestSimulationService_PlayRunsToCompletion(t *testing.T) {
	ctx := context.Background()
	svc, notifier := newTestService(t)
	info, err := svc.CreateSession(ctx, service.CreateSessionRequest{})
	require.NoError(t, err)

	playing, err := svc.Play(ctx, info.ID, service.MinPlayInterval)
	require.NoError(t, err)
	assert.True(t, playing.Playing)
	assert.Equal(t, service.MinPlayInterval.Milliseconds(), playing.IntervalMS)

	require.Eventually(t, func() bool {
		state, err := svc.GetState(ctx, info.ID)
		return err == nil && state.Ended
	}, 5*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		got, err := svc.GetSession(ctx, info.ID)
		return err == nil && !got.Playing
	}, time.Second, 10*time.Millisecond)

	output, err := svc.Export(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, classicOutput, output)

	outcomes, _ := notifier.counts()
	assert.Equal(t, 9, outcomes)
}

func TestSimulationService_PauseStopsStepping(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	info, err := svc.CreateSession(ctx, service.CreateSessionRequest{})
	require.NoError(t, err)

	_, err = svc.Play(ctx, info.ID, time.Hour)
	require.NoError(t, err)

	paused, err := svc.Pause(ctx, info.ID)
	require.NoError(t, err)
	assert.False(t, paused.Playing)
	assert.Equal(t, 0, paused.State.Steps)

	// Pausing twice is harmless
	_, err = svc.Pause(ctx, info.ID)
	assert.NoError(t, err)
}

func TestSimulationService_PlayValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	info, err := svc.CreateSession(ctx, service.CreateSessionRequest{MapText: "C - 2 - 2\n"})
	require.NoError(t, err)

	_, err = svc.Play(ctx, info.ID, time.Millisecond)
	assert.True(t, errors.Is(err, service.ErrInvalidInterval))

	_, err = svc.Play(ctx, info.ID, 0)
	assert.True(t, errors.Is(err, engine.ErrGameEnded), "a map without adventurers starts ended")
}

func TestSimulationService_DeleteStopsPlay(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	info, err := svc.CreateSession(ctx, service.CreateSessionRequest{})
	require.NoError(t, err)

	_, err = svc.Play(ctx, info.ID, time.Hour)
	require.NoError(t, err)
	require.NoError(t, svc.DeleteSession(ctx, info.ID))

	_, err = svc.GetSession(ctx, info.ID)
	assert.True(t, errors.Is(err, service.ErrSessionNotFound))
}

func TestSimulationService_Maps(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	maps, err := svc.ListMaps(ctx)
	require.NoError(t, err)
	assert.Len(t, maps, 2)

	require.NoError(t, svc.SaveMap(ctx, "tiny", "C - 1 - 1\n"))
	text, err := svc.LoadMap(ctx, "tiny")
	require.NoError(t, err)
	assert.Equal(t, "C - 1 - 1\n", text)

	assert.True(t, errors.Is(svc.SaveMap(ctx, "", "C - 1 - 1\n"), service.ErrInvalidMap))
	assert.True(t, errors.Is(svc.SaveMap(ctx, "bad", "C - -1 - 1\n"), service.ErrInvalidMap))
}
