package engine

import "fmt"

// Engine provides the main interface for simulation operations
type Engine interface {
	// Turn scheduling
	Step() (Outcome, error)
	RunToCompletion() []Outcome
	IsEnded() bool
	Reset() error

	// State inspection
	State() *State
	Grid() *Grid
	Adventurers() *Registry
	GameTurn() int
	MaxTurns() int
	CurrentAdventurer() *Adventurer

	// History
	History() []Outcome
	LastOutcome() *Outcome

	// Output
	Output() string
	Warnings() []*ParseWarning
}

var _ Engine = (*GameEngine)(nil)

// GameEngine implements the Engine interface. It exclusively owns its grid
// and registry; nothing outside the engine mutates them.
type GameEngine struct {
	source      string
	grid        *Grid
	adventurers *Registry
	warnings    []*ParseWarning

	turn     int // index of the adventurer whose action is next
	gameTurn int // script index shared by every adventurer
	maxTurns int
	ended    bool

	history []Outcome
}

// Load parses a map and returns an engine ready to run it
func Load(text string) (*GameEngine, error) {
	m, err := Parse(text)
	if err != nil {
		return nil, err
	}
	e := NewEngine(m)
	e.source = text
	return e, nil
}

// NewEngine creates an engine over an already parsed map
func NewEngine(m *Map) *GameEngine {
	e := &GameEngine{
		grid:        m.Grid,
		adventurers: m.Adventurers,
		warnings:    m.Warnings,
		maxTurns:    m.MaxTurns,
		history:     []Outcome{},
	}
	e.ended = e.gameTurn == e.maxTurns
	return e
}

// Step advances exactly one adventurer by one scripted action
func (e *GameEngine) Step() (Outcome, error) {
	if e.ended {
		return Outcome{}, ErrGameEnded
	}

	adv := e.adventurers.At(e.turn)
	var outcome Outcome
	if symbol, ok := adv.ActionAt(e.gameTurn); ok {
		outcome = Resolve(e.grid, adv, symbol)
		e.apply(adv, outcome)
	} else {
		outcome = Outcome{
			Kind:        Idle,
			Adventurer:  adv.Name,
			Orientation: adv.Orientation,
			From:        adv.Position,
			To:          adv.Position,
		}
	}
	outcome.GameTurn = e.gameTurn
	e.history = append(e.history, outcome)

	e.turn++
	if e.turn == e.adventurers.Len() {
		e.turn = 0
		e.gameTurn++
	}
	e.ended = e.gameTurn == e.maxTurns

	return outcome, nil
}

// apply commits a resolved outcome to the grid and the adventurer
func (e *GameEngine) apply(adv *Adventurer, outcome Outcome) {
	switch outcome.Kind {
	case Rotated:
		adv.Orientation = outcome.Orientation
	case Moved:
		e.grid.ClearOccupant(adv.Position)
		// The resolver has already checked the target is free and in bounds.
		if err := e.grid.PlaceOccupant(outcome.To, adv.Name); err != nil {
			panic(fmt.Sprintf("engine: resolved move rejected by grid: %v", err))
		}
		adv.Position = outcome.To
		if outcome.Collected && e.grid.takeTreasure(outcome.To) {
			adv.Treasures++
		}
	case Blocked, Rejected, Idle:
	}
}

// RunToCompletion steps until every script is exhausted
func (e *GameEngine) RunToCompletion() []Outcome {
	var outcomes []Outcome
	for !e.ended {
		outcome, err := e.Step()
		if err != nil {
			break
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// IsEnded returns whether the simulation is over
func (e *GameEngine) IsEnded() bool {
	return e.ended
}

// Reset reloads the map the engine was created from
func (e *GameEngine) Reset() error {
	if e.source == "" {
		return fmt.Errorf("engine was not loaded from text and cannot be reset")
	}
	m, err := Parse(e.source)
	if err != nil {
		return err
	}
	fresh := NewEngine(m)
	fresh.source = e.source
	*e = *fresh
	return nil
}

// Grid returns the simulation grid
func (e *GameEngine) Grid() *Grid {
	return e.grid
}

// Adventurers returns the adventurer registry
func (e *GameEngine) Adventurers() *Registry {
	return e.adventurers
}

// GameTurn returns the current script index
func (e *GameEngine) GameTurn() int {
	return e.gameTurn
}

// MaxTurns returns the length of the longest script
func (e *GameEngine) MaxTurns() int {
	return e.maxTurns
}

// CurrentAdventurer returns the adventurer who acts next, or nil once ended
func (e *GameEngine) CurrentAdventurer() *Adventurer {
	if e.ended || e.adventurers.Len() == 0 {
		return nil
	}
	return e.adventurers.At(e.turn)
}

// History returns every outcome since the engine was loaded or reset
func (e *GameEngine) History() []Outcome {
	return e.history
}

// LastOutcome returns the most recent outcome, or nil before the first step
func (e *GameEngine) LastOutcome() *Outcome {
	if len(e.history) == 0 {
		return nil
	}
	last := e.history[len(e.history)-1]
	return &last
}

// Output serializes the current state in the map format
func (e *GameEngine) Output() string {
	return Serialize(e.grid, e.adventurers)
}

// Warnings returns the records skipped while loading
func (e *GameEngine) Warnings() []*ParseWarning {
	return e.warnings
}

// State returns a snapshot of the simulation
func (e *GameEngine) State() *State {
	collected := 0
	for _, adv := range e.adventurers.All() {
		collected += adv.Treasures
	}
	return &State{
		Width:             e.grid.Width(),
		Height:            e.grid.Height(),
		Grid:              e.grid.Snapshot(),
		Adventurers:       e.adventurers.Snapshot(),
		GameTurn:          e.gameTurn,
		CurrentAdventurer: e.turn,
		MaxTurns:          e.maxTurns,
		Ended:             e.ended,
		Steps:             len(e.history),
		RemainingTreasure: CountTreasures(e.grid),
		CollectedTreasure: collected,
		LastOutcome:       e.LastOutcome(),
	}
}
