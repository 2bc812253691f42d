package engine

import "strings"

// CountTreasures counts the treasures still lying on the grid
func CountTreasures(grid *Grid) int {
	total := 0
	for _, pos := range grid.TreasureCells() {
		cell, _ := grid.CellAt(pos)
		total += cell.Treasures
	}
	return total
}

// CountTerrain counts the cells of a specific terrain
func CountTerrain(grid *Grid, terrain Terrain) int {
	count := 0
	for _, row := range grid.cells {
		for _, cell := range row {
			if cell.Terrain == terrain {
				count++
			}
		}
	}
	return count
}

// ManhattanDistance calculates the Manhattan distance between two positions
func ManhattanDistance(from, to Position) int {
	dr := from.Row - to.Row
	if dr < 0 {
		dr = -dr
	}
	dc := from.Column - to.Column
	if dc < 0 {
		dc = -dc
	}
	return dr + dc
}

// FindNearestTreasure finds the closest cell still holding treasure
func FindNearestTreasure(grid *Grid, from Position) (Position, int, bool) {
	minDistance := -1
	var nearest Position
	for _, pos := range grid.TreasureCells() {
		if d := ManhattanDistance(from, pos); minDistance == -1 || d < minDistance {
			minDistance = d
			nearest = pos
		}
	}
	return nearest, minDistance, minDistance >= 0
}

// CellChar returns the single character used to draw a cell: the first
// letter of the occupant, M for mountains, the treasure count (capped at 9)
// for treasures and a dot for plains.
func CellChar(cell Cell) string {
	switch {
	case cell.Occupant != "":
		return string([]rune(cell.Occupant)[0])
	case cell.Terrain == Mountain:
		return "M"
	case cell.Terrain == Treasure:
		if cell.Treasures > 9 {
			return "9"
		}
		return string(rune('0' + cell.Treasures))
	}
	return "."
}

// Render draws the grid as text, one row per line
func Render(grid *Grid) string {
	var b strings.Builder
	for _, row := range grid.cells {
		for _, cell := range row {
			b.WriteString(CellChar(cell))
		}
		b.WriteByte('\n')
	}
	return b.String()
}
