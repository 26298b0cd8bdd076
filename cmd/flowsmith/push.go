package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dukex/flowsmith/pkg/services"
	cli "github.com/urfave/cli/v3"
)

func NewPushCommand() *cli.Command {
	return &cli.Command{
		Name:  "push",
		Usage: "Compile, validate and push every changed document",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Push every tracked document, changed or not",
			},
			&cli.IntFlag{
				Name:    "concurrency",
				Usage:   "Documents pushed at the same time",
				Sources: cli.EnvVars("FLOWSMITH_PUSH_CONCURRENCY"),
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Usage:   "Timeout of a single push",
				Sources: cli.EnvVars("FLOWSMITH_PUSH_TIMEOUT"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			project, _, err := openProject(ctx, command, "push")
			if err != nil {
				return err
			}
			defer closeProject(ctx, project)

			deploy := project.Deployer.DeployDirty
			if command.Bool("all") {
				deploy = project.Deployer.DeployAll
			}

			batch, err := deploy(ctx)
			if errors.Is(err, services.ErrNothingToDeploy) {
				fmt.Fprintln(command.Root().Writer, "Nothing to deploy")

				return nil
			}

			if err != nil {
				return err
			}

			printBatch(command.Root().Writer, batch)

			failed := len(batch.Failed())
			if failed > 0 {
				return cli.Exit(fmt.Sprintf("%d of %d documents failed to deploy", failed, len(batch.Results)), 1)
			}

			return nil
		},
	}
}

func printBatch(w io.Writer, batch *services.BatchResult) {
	for _, result := range batch.Results {
		if result.Success {
			note := ""
			if !result.Deployed {
				note = " (changed during push, still dirty)"
			}

			fmt.Fprintf(w, "ok      %s %s%s\n", result.Path, result.Duration.Round(time.Millisecond), note)

			for _, warning := range result.Warnings {
				fmt.Fprintf(w, "        warning: %v\n", warning)
			}

			continue
		}

		fmt.Fprintf(w, "FAILED  %s [%s] %v\n", result.Path, result.Stage, result.Err)

		if result.Excerpt != "" {
			fmt.Fprintf(w, "        %s\n", result.Excerpt)
		}
	}

	fmt.Fprintf(w, "%d succeeded, %d failed in %s\n", len(batch.Succeeded()), len(batch.Failed()), batch.Duration.Round(time.Millisecond))
}
