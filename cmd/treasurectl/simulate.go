package main

import (
	"context"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/treasure-quest/game/engine"
)

func simulateCommand() *cli.Command {
	return &cli.Command{
		Name:      "simulate",
		Usage:     "run a map to completion and write the result file",
		ArgsUsage: "<map-file|->",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "write the result to this file instead of stdout",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "print the outcome of every step",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return fmt.Errorf("simulate expects exactly one map file")
			}
			path := cmd.Args().First()

			text, err := readMapFile(path, cmd.Root().Reader)
			if err != nil {
				return err
			}

			output, err := simulate(cmd.Root().Writer, path, text, cmd.Bool("verbose"))
			if err != nil {
				return err
			}

			if target := cmd.String("output"); target != "" {
				if err := os.WriteFile(target, []byte(output), 0644); err != nil {
					return fmt.Errorf("failed to write result: %w", err)
				}
				log.WithField("file", target).Info("result written")
				return nil
			}
			_, err = io.WriteString(cmd.Root().Writer, output)
			return err
		},
	}
}

// simulate runs text to completion and returns the result file. With verbose
// set every outcome is written to w as it happens.
func simulate(w io.Writer, name, text string, verbose bool) (string, error) {
	eng, err := engine.Load(text)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}

	logWarnings(name, eng.Warnings())

	outcomes := eng.RunToCompletion()
	if verbose {
		for i, outcome := range outcomes {
			fmt.Fprintf(w, "%4d  %s\n", i+1, outcome)
		}
		fmt.Fprintf(w, "-- %d steps, %d game turns\n", len(outcomes), eng.GameTurn())
	}

	return eng.Output(), nil
}

func readMapFile(path string, stdin io.Reader) (string, error) {
	if path == "-" {
		if stdin == nil {
			stdin = os.Stdin
		}
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read map: %w", err)
	}
	return string(data), nil
}

func logWarnings(name string, warnings []*engine.ParseWarning) {
	for _, w := range warnings {
		log.WithFields(log.Fields{
			"file":   name,
			"line":   w.Line,
			"record": w.Record,
		}).Warn(w.Err)
	}
}
