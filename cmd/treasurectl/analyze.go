package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/treasure-quest/game/engine"
)

// Analysis summarizes a map file before it is run
type Analysis struct {
	File        string
	Width       int
	Height      int
	Mountains   int
	Piles       int
	Treasures   int
	MaxTurns    int
	Adventurers []AdventurerReport
	Warnings    []*engine.ParseWarning
	Drawing     string

	// Piles farther from every start than that adventurer can advance
	OutOfReach []engine.Position
	// Piles that no start connects to through passable cells
	Isolated []engine.Position
}

// AdventurerReport describes one adventurer's script
type AdventurerReport struct {
	Name     string
	Start    engine.Position
	Facing   engine.Orientation
	Actions  int
	Advances int

	// BlockedAhead is set when the first advance would be refused
	BlockedAhead bool
	// NearestTreasure is the distance to the closest pile, -1 without treasure
	NearestTreasure int
}

func analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "print heuristics about map files",
		ArgsUsage: "<map-file>...",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() == 0 {
				return fmt.Errorf("analyze expects at least one map file")
			}

			out := cmd.Root().Writer
			for _, path := range cmd.Args().Slice() {
				fmt.Fprintf(out, "\n=== Analyzing %s ===\n", filepath.Base(path))
				text, err := readMapFile(path, cmd.Root().Reader)
				if err != nil {
					fmt.Fprintf(out, "Error: %v\n", err)
					continue
				}
				analysis, err := analyzeMap(path, text)
				if err != nil {
					fmt.Fprintf(out, "Error: %v\n", err)
					continue
				}
				printAnalysis(out, analysis)
			}
			return nil
		},
	}
}

func analyzeMap(path, text string) (*Analysis, error) {
	m, err := engine.Parse(text)
	if err != nil {
		return nil, err
	}

	a := &Analysis{
		File:      filepath.Base(path),
		Width:     m.Grid.Width(),
		Height:    m.Grid.Height(),
		Mountains: engine.CountTerrain(m.Grid, engine.Mountain),
		Piles:     len(m.Grid.TreasureCells()),
		Treasures: engine.CountTreasures(m.Grid),
		MaxTurns:  m.MaxTurns,
		Warnings:  m.Warnings,
		Drawing:   engine.Render(m.Grid),
	}

	var starts []engine.Position
	for _, adv := range m.Adventurers.All() {
		report := AdventurerReport{
			Name:            adv.Name,
			Start:           adv.Position,
			Facing:          adv.Orientation,
			Actions:         adv.ScriptLength(),
			Advances:        strings.Count(adv.Script, string(engine.Advance)),
			BlockedAhead:    !engine.CanAdvance(m.Grid, adv),
			NearestTreasure: -1,
		}
		if _, distance, found := engine.FindNearestTreasure(m.Grid, adv.Position); found {
			report.NearestTreasure = distance
		}
		a.Adventurers = append(a.Adventurers, report)
		starts = append(starts, adv.Position)
	}

	reachable := reachableCells(m.Grid, starts)
	for _, pile := range m.Grid.TreasureCells() {
		if !reachable[pile] {
			a.Isolated = append(a.Isolated, pile)
		}

		inReach := false
		for _, adv := range a.Adventurers {
			if engine.ManhattanDistance(adv.Start, pile) <= adv.Advances {
				inReach = true
				break
			}
		}
		if !inReach {
			a.OutOfReach = append(a.OutOfReach, pile)
		}
	}

	return a, nil
}

// reachableCells flood-fills from starts across every cell that is not a
// mountain, using 4-directional movement.
func reachableCells(grid *engine.Grid, starts []engine.Position) map[engine.Position]bool {
	visited := make(map[engine.Position]bool)
	queue := append([]engine.Position(nil), starts...)

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if visited[current] {
			continue
		}
		visited[current] = true

		for _, o := range []engine.Orientation{engine.North, engine.East, engine.South, engine.West} {
			next := o.Ahead(current)
			if visited[next] {
				continue
			}
			if cell, err := grid.CellAt(next); err == nil && cell.Terrain != engine.Mountain {
				queue = append(queue, next)
			}
		}
	}
	return visited
}

func printAnalysis(w io.Writer, a *Analysis) {
	fmt.Fprintf(w, "Grid Size: %d x %d\n", a.Width, a.Height)
	fmt.Fprintf(w, "Mountains: %d\n", a.Mountains)
	fmt.Fprintf(w, "Treasure: %d in %d piles\n", a.Treasures, a.Piles)
	fmt.Fprintf(w, "Game Turns: %d\n", a.MaxTurns)
	fmt.Fprintf(w, "Adventurers: %d\n", len(a.Adventurers))
	for _, adv := range a.Adventurers {
		fmt.Fprintf(w, "  %s at (%d,%d) facing %s: %d actions, %d advances",
			adv.Name, adv.Start.Column, adv.Start.Row, adv.Facing.Word(), adv.Actions, adv.Advances)
		if adv.NearestTreasure >= 0 {
			fmt.Fprintf(w, ", nearest treasure %d away", adv.NearestTreasure)
		}
		if adv.BlockedAhead {
			fmt.Fprint(w, " (blocked ahead)")
		}
		fmt.Fprintln(w)
	}

	if len(a.Warnings) > 0 {
		fmt.Fprintf(w, "⚠️  %d records skipped while loading:\n", len(a.Warnings))
		for _, warning := range a.Warnings {
			fmt.Fprintf(w, "   %v\n", warning)
		}
	}

	fmt.Fprintf(w, "\n%s\n", a.Drawing)

	if len(a.Isolated) > 0 {
		fmt.Fprintf(w, "⚠️  WARNING: %d treasure piles are walled off from every adventurer\n", len(a.Isolated))
		for i, p := range a.Isolated {
			if i < 5 {
				fmt.Fprintf(w, "   Isolated: (%d,%d)\n", p.Column, p.Row)
			}
		}
		if len(a.Isolated) > 5 {
			fmt.Fprintf(w, "   ... and %d more\n", len(a.Isolated)-5)
		}
	} else if a.Piles > 0 {
		fmt.Fprintf(w, "✅ Every treasure pile is connected to an adventurer\n")
	}

	if len(a.OutOfReach) > 0 {
		fmt.Fprintf(w, "ℹ️  %d treasure piles are farther than any script can advance\n", len(a.OutOfReach))
	}
}
