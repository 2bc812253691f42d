package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/treasure-quest/game/config"
	"github.com/wricardo/treasure-quest/game/engine"
)

// ValidationResult captures the outcome of validating a single file.
// Problems make the file invalid; Notes are informational.
type ValidationResult struct {
	File     string
	Valid    bool
	Problems []string
	Notes    []string
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "check that map files load, reporting skipped records",
		ArgsUsage: "<map-file>...",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "strict",
				Usage: "treat skipped records and walled-off treasure as errors",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() == 0 {
				return fmt.Errorf("validate expects at least one map file")
			}

			invalid := 0
			for _, path := range cmd.Args().Slice() {
				result := validateFile(path, cmd.Bool("strict"))
				printValidation(cmd.Root().Writer, result)
				if !result.Valid {
					invalid++
				}
			}

			fmt.Fprintf(cmd.Root().Writer, "\n%s\n", strings.Repeat("=", 40))
			if invalid > 0 {
				return fmt.Errorf("%d of %d maps have errors", invalid, cmd.NArg())
			}
			fmt.Fprintln(cmd.Root().Writer, "✅ All maps are valid!")
			return nil
		},
	}
}

func validateFile(path string, strict bool) ValidationResult {
	text, err := readMapFile(path, nil)
	if err != nil {
		return ValidationResult{File: filepath.Base(path), Problems: []string{err.Error()}}
	}
	return validateMap(filepath.Base(path), text, strict)
}

// validateMap loads text the way the server does and checks it. Only a
// negative map size is always fatal; skipped records, missing adventurers and
// walled-off treasure fail the map in strict mode.
func validateMap(name, text string, strict bool) ValidationResult {
	result := ValidationResult{File: name, Valid: true}

	warnings, err := config.Validate(text)
	if err != nil {
		result.Valid = false
		result.Problems = append(result.Problems, err.Error())
		return result
	}

	var concerns []string
	for _, w := range warnings {
		concerns = append(concerns, w.Error())
	}

	m, err := engine.Parse(text)
	if err != nil {
		result.Valid = false
		result.Problems = append(result.Problems, err.Error())
		return result
	}

	if m.Adventurers.Len() == 0 {
		concerns = append(concerns, "no adventurers: the simulation ends immediately")
	}

	var starts []engine.Position
	for _, adv := range m.Adventurers.All() {
		starts = append(starts, adv.Position)
	}
	reachable := reachableCells(m.Grid, starts)
	for _, pile := range m.Grid.TreasureCells() {
		if !reachable[pile] {
			concerns = append(concerns, fmt.Sprintf("treasure at (%d,%d) is walled off from every adventurer", pile.Column, pile.Row))
		}
	}

	if strict && len(concerns) > 0 {
		result.Valid = false
		result.Problems = append(result.Problems, concerns...)
	} else {
		result.Notes = append(result.Notes, concerns...)
	}

	if result.Valid {
		result.Notes = append(result.Notes,
			fmt.Sprintf("✓ Grid: %dx%d", m.Grid.Width(), m.Grid.Height()),
			fmt.Sprintf("✓ Mountains: %d", engine.CountTerrain(m.Grid, engine.Mountain)),
			fmt.Sprintf("✓ Treasure: %d", engine.CountTreasures(m.Grid)),
			fmt.Sprintf("✓ Adventurers: %d", m.Adventurers.Len()),
			fmt.Sprintf("✓ Game turns: %d", m.MaxTurns),
		)
	}
	return result
}

func printValidation(w io.Writer, result ValidationResult) {
	fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)

	if !result.Valid {
		fmt.Fprintln(w, "❌ INVALID")
		for _, problem := range result.Problems {
			fmt.Fprintln(w, "  ❌ "+problem)
		}
		return
	}

	fmt.Fprintln(w, "✅ VALID")
	for _, note := range result.Notes {
		if strings.HasPrefix(note, "✓") {
			fmt.Fprintln(w, "  "+note)
		} else {
			fmt.Fprintln(w, "  ⚠️  "+note)
		}
	}
}
