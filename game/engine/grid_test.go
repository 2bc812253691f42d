package engine

import (
	"errors"
	"testing"
)

func TestNewGrid(t *testing.T) {
	grid, err := NewGrid(4, 2)
	if err != nil {
		t.Fatalf("Failed to create grid: %v", err)
	}
	if grid.Width() != 4 || grid.Height() != 2 {
		t.Errorf("Expected 4x2 grid, got %dx%d", grid.Width(), grid.Height())
	}
	if got := CountTerrain(grid, Plain); got != 8 {
		t.Errorf("Expected 8 plain cells, got %d", got)
	}

	if _, err := NewGrid(-1, 2); !errors.Is(err, ErrInvalidDimension) {
		t.Errorf("Expected ErrInvalidDimension, got %v", err)
	}
}

func TestGrid_BoundsPolicy(t *testing.T) {
	grid, _ := NewGrid(2, 2)
	outside := []Position{{Row: -1, Column: 0}, {Row: 0, Column: -1}, {Row: 2, Column: 0}, {Row: 0, Column: 2}}

	for _, pos := range outside {
		if err := grid.SetMountain(pos); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("SetMountain(%+v): expected ErrOutOfBounds, got %v", pos, err)
		}
		if err := grid.SetTreasure(pos, 1); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("SetTreasure(%+v): expected ErrOutOfBounds, got %v", pos, err)
		}
		if err := grid.PlaceOccupant(pos, "Lara"); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("PlaceOccupant(%+v): expected ErrOutOfBounds, got %v", pos, err)
		}
		if _, err := grid.CellAt(pos); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("CellAt(%+v): expected ErrOutOfBounds, got %v", pos, err)
		}
		grid.ClearOccupant(pos)
	}

	if got := CountTerrain(grid, Plain); got != 4 {
		t.Errorf("Out of bounds placements must not change the grid, %d plain cells left", got)
	}
}

func TestGrid_Occupancy(t *testing.T) {
	grid, _ := NewGrid(2, 2)
	pos := Position{Row: 1, Column: 1}

	if err := grid.PlaceOccupant(pos, "Lara"); err != nil {
		t.Fatalf("Failed to place occupant: %v", err)
	}
	if err := grid.PlaceOccupant(pos, "Bob"); !errors.Is(err, ErrCellOccupied) {
		t.Errorf("Expected ErrCellOccupied, got %v", err)
	}

	grid.ClearOccupant(pos)
	if err := grid.PlaceOccupant(pos, "Bob"); err != nil {
		t.Errorf("Expected cleared cell to accept a new occupant: %v", err)
	}
}

func TestGrid_TakeTreasure(t *testing.T) {
	grid, _ := NewGrid(1, 1)
	pos := Position{}
	grid.SetTreasure(pos, 2)

	for i := 0; i < 2; i++ {
		if !grid.takeTreasure(pos) {
			t.Fatalf("Expected pickup %d to succeed", i+1)
		}
	}
	if grid.takeTreasure(pos) {
		t.Error("Expected empty cell to yield nothing")
	}

	cell, _ := grid.CellAt(pos)
	if cell.Terrain != Plain {
		t.Errorf("Expected exhausted cell to be plain, got %s", cell.Terrain)
	}
}

func TestRender(t *testing.T) {
	grid, _ := NewGrid(3, 2)
	grid.SetMountain(Position{Row: 0, Column: 1})
	grid.SetTreasure(Position{Row: 1, Column: 2}, 3)
	grid.PlaceOccupant(Position{Row: 1, Column: 0}, "Lara")

	expected := ".M.\nL.3\n"
	if got := Render(grid); got != expected {
		t.Errorf("Expected %q, got %q", expected, got)
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Add(&Adventurer{Name: "Lara", Script: "AAGA"}); err != nil {
		t.Fatalf("Failed to add adventurer: %v", err)
	}
	if err := reg.Add(&Adventurer{Name: "Bob", Script: "A"}); err != nil {
		t.Fatalf("Failed to add adventurer: %v", err)
	}
	if err := reg.Add(&Adventurer{Name: "Lara"}); !errors.Is(err, ErrDuplicateAdventurer) {
		t.Errorf("Expected ErrDuplicateAdventurer, got %v", err)
	}
	if err := reg.Add(&Adventurer{}); !errors.Is(err, ErrMalformedRecord) {
		t.Errorf("Expected ErrMalformedRecord for empty name, got %v", err)
	}

	if reg.Len() != 2 || reg.At(0).Name != "Lara" || reg.At(1).Name != "Bob" {
		t.Error("Expected insertion order to be kept")
	}
	if reg.MaxScriptLength() != 4 {
		t.Errorf("Expected max script length 4, got %d", reg.MaxScriptLength())
	}
	if _, ok := reg.Get("Bob"); !ok {
		t.Error("Expected to find Bob by name")
	}
}

func TestFindNearestTreasure(t *testing.T) {
	grid, _ := NewGrid(5, 5)
	if _, _, found := FindNearestTreasure(grid, Position{}); found {
		t.Error("Expected no treasure on an empty grid")
	}

	grid.SetTreasure(Position{Row: 4, Column: 4}, 1)
	grid.SetTreasure(Position{Row: 1, Column: 2}, 1)
	pos, dist, found := FindNearestTreasure(grid, Position{})
	if !found || pos != (Position{Row: 1, Column: 2}) || dist != 3 {
		t.Errorf("Expected (1,2) at distance 3, got %+v at %d", pos, dist)
	}
}
