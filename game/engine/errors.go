package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDimension is returned when a grid is created with a negative size.
	// It is the only fatal load error.
	ErrInvalidDimension = errors.New("invalid grid dimension")

	ErrMalformedRecord     = errors.New("malformed record")
	ErrOutOfBounds         = errors.New("coordinates out of bounds")
	ErrCellOccupied        = errors.New("cell already occupied")
	ErrCellBlocked         = errors.New("cell is a mountain")
	ErrDuplicateAdventurer = errors.New("duplicate adventurer name")
	ErrInvalidOrientation  = errors.New("invalid orientation")

	// ErrGameEnded is returned by Step once every script has been consumed.
	ErrGameEnded = errors.New("game has ended")
)

// ParseWarning reports a record that was skipped while loading a map.
type ParseWarning struct {
	Line   int
	Record string
	Err    error
}

func (w *ParseWarning) Error() string {
	return fmt.Sprintf("line %d: %v: %q", w.Line, w.Err, w.Record)
}

func (w *ParseWarning) Unwrap() error {
	return w.Err
}
