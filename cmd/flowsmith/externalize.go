package main

import (
	"context"
	"fmt"

	cli "github.com/urfave/cli/v3"
)

func NewExternalizeCommand() *cli.Command {
	return &cli.Command{
		Name:      "externalize",
		Aliases:   []string{"x"},
		Usage:     "Move embedded scripts, queries, prompts and templates into content files",
		ArgsUsage: "[document...]",
		Action: func(ctx context.Context, command *cli.Command) error {
			project, logger, err := openProject(ctx, command, "externalize")
			if err != nil {
				return err
			}
			defer closeProject(ctx, project)

			results, err := project.Workspace.Externalize(ctx, command.Args().Slice()...)
			if err != nil {
				return fmt.Errorf("failed to externalize: %w", err)
			}

			out := command.Root().Writer
			extracted := 0

			for _, result := range results {
				if !result.Result.Changed() {
					fmt.Fprintf(out, "%s: nothing to externalize\n", result.Path)

					continue
				}

				fmt.Fprintf(out, "%s:\n", result.Path)

				for _, record := range result.Result.Extracted {
					fmt.Fprintf(out, "  %s -> %s\n", record.Node, record.Path)
				}

				for _, skipped := range result.Result.Skipped {
					fmt.Fprintf(out, "  skipped %s\n", skipped)
				}

				extracted += len(result.Result.Extracted)
			}

			logger.InfoContext(ctx, "Externalized documents", "documents", len(results), "files", extracted)

			return nil
		},
	}
}
