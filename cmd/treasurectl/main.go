// Command treasurectl works with treasure map files offline: it runs them to
// completion, prints heuristics about them and validates them, without
// starting the server.
//
//	treasurectl simulate maps/classic.txt -o result.txt
//	treasurectl analyze maps/*.txt
//	treasurectl validate --strict maps/*.txt
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

const version = "1.0.0"

func newApp(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "treasurectl",
		Usage:   "simulate, analyze and validate treasure maps",
		Version: version,
		Writer:  out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Value: "warn",
				Usage: "logrus level for parse warnings and diagnostics",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			level, err := log.ParseLevel(cmd.String("log-level"))
			if err != nil {
				return ctx, err
			}
			log.SetLevel(level)
			return ctx, nil
		},
		Commands: []*cli.Command{
			simulateCommand(),
			analyzeCommand(),
			validateCommand(),
		},
	}
}

func main() {
	if err := newApp(os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
