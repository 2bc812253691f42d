package engine

import "strings"

// Terrain represents the kind of ground a cell is made of
type Terrain string

const (
	Plain    Terrain = "plain"
	Mountain Terrain = "mountain"
	Treasure Terrain = "treasure"
)

// Cell represents a single grid cell
type Cell struct {
	Terrain   Terrain `json:"terrain"`
	Treasures int     `json:"treasures,omitempty"` // Only meaningful on treasure cells
	Occupant  string  `json:"occupant,omitempty"`  // Name of the adventurer standing here
}

// Position represents row/column coordinates
type Position struct {
	Row    int `json:"row"`
	Column int `json:"column"`
}

// Orientation is the direction an adventurer faces
type Orientation string

const (
	North Orientation = "N"
	East  Orientation = "E"
	South Orientation = "S"
	West  Orientation = "W"
)

// ParseOrientation maps a single-letter code onto an Orientation.
// "O" (ouest) is accepted as an alias of West.
func ParseOrientation(code string) (Orientation, bool) {
	switch strings.ToUpper(code) {
	case "N":
		return North, true
	case "E":
		return East, true
	case "S":
		return South, true
	case "W", "O":
		return West, true
	}
	return "", false
}

// Left returns the orientation after a quarter turn to the left
func (o Orientation) Left() Orientation {
	switch o {
	case North:
		return West
	case East:
		return North
	case South:
		return East
	case West:
		return South
	}
	return o
}

// Right returns the orientation after a quarter turn to the right
func (o Orientation) Right() Orientation {
	switch o {
	case North:
		return East
	case East:
		return South
	case South:
		return West
	case West:
		return North
	}
	return o
}

// Ahead returns the position one cell forward from pos
func (o Orientation) Ahead(pos Position) Position {
	switch o {
	case North:
		pos.Row--
	case East:
		pos.Column++
	case South:
		pos.Row++
	case West:
		pos.Column--
	}
	return pos
}

// Word returns a human-readable direction name
func (o Orientation) Word() string {
	switch o {
	case North:
		return "north"
	case East:
		return "east"
	case South:
		return "south"
	case West:
		return "west"
	}
	return string(o)
}

// Action is one symbol of a movement script
type Action rune

const (
	TurnLeft  Action = 'G'
	TurnRight Action = 'D'
	Advance   Action = 'A'
)

// ParseAction maps a script symbol onto an Action
func ParseAction(symbol rune) (Action, bool) {
	switch Action(symbol) {
	case TurnLeft, TurnRight, Advance:
		return Action(symbol), true
	}
	return 0, false
}

// Adventurer is a scripted actor on the grid
type Adventurer struct {
	Name        string      `json:"name"`
	Position    Position    `json:"position"`
	Orientation Orientation `json:"orientation"`
	Script      string      `json:"script"`
	Treasures   int         `json:"treasures"`
}

// ScriptLength returns the number of actions in the adventurer's script
func (a *Adventurer) ScriptLength() int {
	return len([]rune(a.Script))
}

// ActionAt returns the script symbol for the given game turn, or false once
// the script is exhausted
func (a *Adventurer) ActionAt(turn int) (rune, bool) {
	script := []rune(a.Script)
	if turn < 0 || turn >= len(script) {
		return 0, false
	}
	return script[turn], true
}

// State is a JSON-friendly snapshot of a running simulation
type State struct {
	Width             int          `json:"width"`
	Height            int          `json:"height"`
	Grid              [][]Cell     `json:"grid"`
	Adventurers       []Adventurer `json:"adventurers"`
	GameTurn          int          `json:"game_turn"`
	CurrentAdventurer int          `json:"current_adventurer"`
	MaxTurns          int          `json:"max_turns"`
	Ended             bool         `json:"ended"`
	Steps             int          `json:"steps"`
	RemainingTreasure int          `json:"remaining_treasure"`
	CollectedTreasure int          `json:"collected_treasure"`
	LastOutcome       *Outcome     `json:"last_outcome,omitempty"`
}
