package engine

import "fmt"

// OutcomeKind tags the variant carried by an Outcome
type OutcomeKind string

const (
	Rotated  OutcomeKind = "rotated"
	Moved    OutcomeKind = "moved"
	Blocked  OutcomeKind = "blocked"
	Rejected OutcomeKind = "rejected"
	Idle     OutcomeKind = "idle" // Script exhausted for this game turn
)

// BlockReason explains why an advance was refused
type BlockReason string

const (
	BlockedOutOfBounds BlockReason = "out_of_bounds"
	BlockedMountain    BlockReason = "mountain"
	BlockedOccupied    BlockReason = "occupied"
)

// Outcome is the result of resolving one adventurer's action for one game turn
type Outcome struct {
	Kind        OutcomeKind `json:"kind"`
	Adventurer  string      `json:"adventurer"`
	Symbol      string      `json:"symbol,omitempty"`
	GameTurn    int         `json:"game_turn"`
	Orientation Orientation `json:"orientation"`
	From        Position    `json:"from"`
	To          Position    `json:"to"`
	Reason      BlockReason `json:"reason,omitempty"`
	Collected   bool        `json:"collected,omitempty"`
}

// String renders the outcome as a log line
func (o Outcome) String() string {
	switch o.Kind {
	case Rotated:
		return fmt.Sprintf("%s turns to face %s", o.Adventurer, o.Orientation.Word())
	case Moved:
		msg := fmt.Sprintf("%s advances %s to (%d,%d)", o.Adventurer, o.Orientation.Word(), o.To.Column, o.To.Row)
		if o.Collected {
			msg += " and picks up a treasure"
		}
		return msg
	case Blocked:
		switch o.Reason {
		case BlockedMountain:
			return fmt.Sprintf("%s cannot advance %s: mountain at (%d,%d)", o.Adventurer, o.Orientation.Word(), o.To.Column, o.To.Row)
		case BlockedOccupied:
			return fmt.Sprintf("%s cannot advance %s: (%d,%d) is occupied", o.Adventurer, o.Orientation.Word(), o.To.Column, o.To.Row)
		default:
			return fmt.Sprintf("%s cannot advance %s: edge of the map", o.Adventurer, o.Orientation.Word())
		}
	case Rejected:
		return fmt.Sprintf("%s attempts an unknown move %q", o.Adventurer, o.Symbol)
	case Idle:
		return fmt.Sprintf("%s has no move left", o.Adventurer)
	}
	return fmt.Sprintf("%s: %s", o.Adventurer, o.Kind)
}

// Changed reports whether the outcome alters adventurer or grid state
func (o Outcome) Changed() bool {
	return o.Kind == Rotated || o.Kind == Moved
}

// Resolve decides what a single script symbol does to an adventurer. It has
// no side effects: the scheduler applies the returned outcome.
func Resolve(grid *Grid, adv *Adventurer, symbol rune) Outcome {
	outcome := Outcome{
		Adventurer:  adv.Name,
		Symbol:      string(symbol),
		Orientation: adv.Orientation,
		From:        adv.Position,
		To:          adv.Position,
	}

	action, ok := ParseAction(symbol)
	if !ok {
		outcome.Kind = Rejected
		return outcome
	}

	switch action {
	case TurnLeft:
		outcome.Kind = Rotated
		outcome.Orientation = adv.Orientation.Left()
	case TurnRight:
		outcome.Kind = Rotated
		outcome.Orientation = adv.Orientation.Right()
	case Advance:
		target := adv.Orientation.Ahead(adv.Position)
		outcome.To = target
		if reason, blocked := checkTarget(grid, target); blocked {
			outcome.Kind = Blocked
			outcome.Reason = reason
			return outcome
		}
		cell, _ := grid.CellAt(target)
		outcome.Kind = Moved
		outcome.Collected = cell.Terrain == Treasure && cell.Treasures > 0
	}

	return outcome
}

// checkTarget validates an advance in order: bounds, terrain, occupancy
func checkTarget(grid *Grid, target Position) (BlockReason, bool) {
	cell, err := grid.CellAt(target)
	if err != nil {
		return BlockedOutOfBounds, true
	}
	if cell.Terrain == Mountain {
		return BlockedMountain, true
	}
	if cell.Occupant != "" {
		return BlockedOccupied, true
	}
	return "", false
}

// CanAdvance reports whether adv could step forward right now
func CanAdvance(grid *Grid, adv *Adventurer) bool {
	_, blocked := checkTarget(grid, adv.Orientation.Ahead(adv.Position))
	return !blocked
}
