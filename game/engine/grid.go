package engine

import "fmt"

// Grid is a fixed-size matrix of cells indexed by (row, column).
//
// Placement methods never resize the grid. A coordinate outside the grid is
// an explicit no-op that returns ErrOutOfBounds, leaving it to the caller to
// decide whether that is worth a warning.
type Grid struct {
	width  int
	height int
	cells  [][]Cell
}

// NewGrid allocates a width x height grid of plain cells
func NewGrid(width, height int) (*Grid, error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimension, width, height)
	}

	cells := make([][]Cell, height)
	for row := range cells {
		cells[row] = make([]Cell, width)
		for col := range cells[row] {
			cells[row][col] = Cell{Terrain: Plain}
		}
	}

	return &Grid{width: width, height: height, cells: cells}, nil
}

// Width returns the number of columns
func (g *Grid) Width() int {
	return g.width
}

// Height returns the number of rows
func (g *Grid) Height() int {
	return g.height
}

// InBounds reports whether pos lies inside the grid
func (g *Grid) InBounds(pos Position) bool {
	return pos.Row >= 0 && pos.Row < g.height && pos.Column >= 0 && pos.Column < g.width
}

// CellAt returns a copy of the cell at pos
func (g *Grid) CellAt(pos Position) (Cell, error) {
	if !g.InBounds(pos) {
		return Cell{}, fmt.Errorf("%w: (%d,%d)", ErrOutOfBounds, pos.Row, pos.Column)
	}
	return g.cells[pos.Row][pos.Column], nil
}

// SetMountain turns the cell at pos into a mountain, dropping any treasure
func (g *Grid) SetMountain(pos Position) error {
	if !g.InBounds(pos) {
		return fmt.Errorf("%w: (%d,%d)", ErrOutOfBounds, pos.Row, pos.Column)
	}
	cell := &g.cells[pos.Row][pos.Column]
	cell.Terrain = Mountain
	cell.Treasures = 0
	return nil
}

// SetTreasure places count treasures at pos. A count of zero leaves the cell
// plain, matching what happens once the last treasure is picked up.
func (g *Grid) SetTreasure(pos Position, count int) error {
	if count < 0 {
		return fmt.Errorf("%w: negative treasure count %d", ErrMalformedRecord, count)
	}
	if !g.InBounds(pos) {
		return fmt.Errorf("%w: (%d,%d)", ErrOutOfBounds, pos.Row, pos.Column)
	}
	cell := &g.cells[pos.Row][pos.Column]
	if count == 0 {
		cell.Terrain = Plain
		cell.Treasures = 0
		return nil
	}
	cell.Terrain = Treasure
	cell.Treasures = count
	return nil
}

// PlaceOccupant marks the cell at pos as occupied by the named adventurer
func (g *Grid) PlaceOccupant(pos Position, name string) error {
	if !g.InBounds(pos) {
		return fmt.Errorf("%w: (%d,%d)", ErrOutOfBounds, pos.Row, pos.Column)
	}
	cell := &g.cells[pos.Row][pos.Column]
	if cell.Occupant != "" && cell.Occupant != name {
		return fmt.Errorf("%w: (%d,%d) by %s", ErrCellOccupied, pos.Row, pos.Column, cell.Occupant)
	}
	cell.Occupant = name
	return nil
}

// ClearOccupant frees the cell at pos. Out of range coordinates are ignored.
func (g *Grid) ClearOccupant(pos Position) {
	if !g.InBounds(pos) {
		return
	}
	g.cells[pos.Row][pos.Column].Occupant = ""
}

// takeTreasure removes one treasure from pos and downgrades the cell to plain
// when it runs out. It reports whether a treasure was actually taken.
func (g *Grid) takeTreasure(pos Position) bool {
	if !g.InBounds(pos) {
		return false
	}
	cell := &g.cells[pos.Row][pos.Column]
	if cell.Terrain != Treasure || cell.Treasures <= 0 {
		return false
	}
	cell.Treasures--
	if cell.Treasures == 0 {
		cell.Terrain = Plain
	}
	return true
}

// Mountains returns mountain positions in row-major order
func (g *Grid) Mountains() []Position {
	var positions []Position
	for row := 0; row < g.height; row++ {
		for col := 0; col < g.width; col++ {
			if g.cells[row][col].Terrain == Mountain {
				positions = append(positions, Position{Row: row, Column: col})
			}
		}
	}
	return positions
}

// TreasureCells returns positions still holding treasure, in row-major order
func (g *Grid) TreasureCells() []Position {
	var positions []Position
	for row := 0; row < g.height; row++ {
		for col := 0; col < g.width; col++ {
			cell := g.cells[row][col]
			if cell.Terrain == Treasure && cell.Treasures > 0 {
				positions = append(positions, Position{Row: row, Column: col})
			}
		}
	}
	return positions
}

// Snapshot returns a deep copy of the cells
func (g *Grid) Snapshot() [][]Cell {
	out := make([][]Cell, g.height)
	for row := range g.cells {
		out[row] = make([]Cell, g.width)
		copy(out[row], g.cells[row])
	}
	return out
}
