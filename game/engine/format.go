package engine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// FieldSeparator splits the fields of a record
const FieldSeparator = " - "

// Record kinds recognised by the first field of a line
const (
	RecordComment    = "#"
	RecordMap        = "C"
	RecordMountain   = "M"
	RecordTreasure   = "T"
	RecordAdventurer = "A"
)

// Map is the result of parsing a map file
type Map struct {
	Grid        *Grid
	Adventurers *Registry
	MaxTurns    int
	Warnings    []*ParseWarning
}

// Parse reads the line-oriented map format. Records are applied in file order;
// anything that cannot be applied is skipped and reported as a warning. The
// only fatal error is a map record with a negative dimension.
func Parse(text string) (*Map, error) {
	grid, _ := NewGrid(0, 0)
	m := &Map{
		Grid:        grid,
		Adventurers: NewRegistry(),
	}
	sawMap := false

	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(strings.TrimSpace(line), RecordComment) {
			continue
		}

		// The script field is kept verbatim: stray spaces are actions too
		raw := strings.Split(line, FieldSeparator)
		fields := make([]string, len(raw))
		for j := range raw {
			fields[j] = strings.TrimSpace(raw[j])
		}

		var err error
		switch fields[0] {
		case RecordMap:
			if sawMap {
				err = fmt.Errorf("%w: map size already set", ErrMalformedRecord)
				break
			}
			var g *Grid
			g, err = parseMapRecord(fields)
			if errors.Is(err, ErrInvalidDimension) {
				return nil, fmt.Errorf("line %d: %w", i+1, err)
			}
			if err == nil {
				m.Grid = g
				sawMap = true
			}
		case RecordMountain:
			err = applyMountain(m.Grid, fields)
		case RecordTreasure:
			err = applyTreasure(m.Grid, fields)
		default:
			err = applyAdventurer(m, fields, raw)
		}

		if err != nil {
			m.Warnings = append(m.Warnings, &ParseWarning{Line: i + 1, Record: line, Err: err})
		}
	}

	m.MaxTurns = m.Adventurers.MaxScriptLength()
	return m, nil
}

func parseMapRecord(fields []string) (*Grid, error) {
	nums, err := atois(fields, 3)
	if err != nil {
		return nil, err
	}
	return NewGrid(nums[0], nums[1])
}

func applyMountain(grid *Grid, fields []string) error {
	nums, err := atois(fields, 3)
	if err != nil {
		return err
	}
	pos := Position{Column: nums[0], Row: nums[1]}
	cell, err := grid.CellAt(pos)
	if err != nil {
		return err
	}
	if cell.Occupant != "" {
		return fmt.Errorf("%w: %s stands there", ErrCellOccupied, cell.Occupant)
	}
	return grid.SetMountain(pos)
}

func applyTreasure(grid *Grid, fields []string) error {
	nums, err := atois(fields, 4)
	if err != nil {
		return err
	}
	return grid.SetTreasure(Position{Column: nums[0], Row: nums[1]}, nums[2])
}

func applyAdventurer(m *Map, fields, raw []string) error {
	if len(fields) < 6 {
		return fmt.Errorf("%w: adventurer needs 6 fields, got %d", ErrMalformedRecord, len(fields))
	}
	name := fields[1]
	if name == "" {
		return fmt.Errorf("%w: adventurer name is required", ErrMalformedRecord)
	}
	if _, exists := m.Adventurers.Get(name); exists {
		return fmt.Errorf("%w: %s", ErrDuplicateAdventurer, name)
	}
	nums, err := atois(fields[1:], 3)
	if err != nil {
		return err
	}
	orientation, ok := ParseOrientation(fields[4])
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidOrientation, fields[4])
	}

	pos := Position{Column: nums[0], Row: nums[1]}
	cell, err := m.Grid.CellAt(pos)
	if err != nil {
		return err
	}
	if cell.Terrain == Mountain {
		return fmt.Errorf("%w: cannot place %s", ErrCellBlocked, name)
	}
	if err := m.Grid.PlaceOccupant(pos, name); err != nil {
		return err
	}

	return m.Adventurers.Add(&Adventurer{
		Name:        name,
		Position:    pos,
		Orientation: orientation,
		Script:      raw[5],
	})
}

// atois converts fields[1:n] to integers after checking there are at least n fields
func atois(fields []string, n int) ([]int, error) {
	if len(fields) < n {
		return nil, fmt.Errorf("%w: %q record needs %d fields, got %d", ErrMalformedRecord, fields[0], n, len(fields))
	}
	nums := make([]int, 0, n-1)
	for _, f := range fields[1:n] {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", ErrMalformedRecord, f)
		}
		nums = append(nums, v)
	}
	return nums, nil
}

// Serialize renders the grid and adventurers back into the map format.
// Adventurer lines report the treasures collected in place of the script.
func Serialize(grid *Grid, adventurers *Registry) string {
	var b strings.Builder

	writeRecord(&b, RecordMap, strconv.Itoa(grid.Width()), strconv.Itoa(grid.Height()))

	for _, pos := range grid.Mountains() {
		writeRecord(&b, RecordMountain, strconv.Itoa(pos.Column), strconv.Itoa(pos.Row))
	}

	for _, pos := range grid.TreasureCells() {
		cell, _ := grid.CellAt(pos)
		writeRecord(&b, RecordTreasure, strconv.Itoa(pos.Column), strconv.Itoa(pos.Row), strconv.Itoa(cell.Treasures))
	}

	for _, adv := range adventurers.All() {
		writeRecord(&b, RecordAdventurer, adv.Name,
			strconv.Itoa(adv.Position.Column), strconv.Itoa(adv.Position.Row),
			string(adv.Orientation), strconv.Itoa(adv.Treasures))
	}

	return b.String()
}

func writeRecord(b *strings.Builder, fields ...string) {
	b.WriteString(strings.Join(fields, FieldSeparator))
	b.WriteByte('\n')
}
