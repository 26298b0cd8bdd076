package main

import (
	"context"
	"fmt"

	cli "github.com/urfave/cli/v3"
)

func NewMarkDeployedCommand() *cli.Command {
	return &cli.Command{
		Name:      "mark-deployed",
		Usage:     "Record documents as deployed without pushing them",
		ArgsUsage: "<document...>",
		Action: func(ctx context.Context, command *cli.Command) error {
			if command.Args().Len() == 0 {
				return cli.Exit("mark-deployed expects at least one document", 2)
			}

			project, _, err := openProject(ctx, command, "mark-deployed")
			if err != nil {
				return err
			}
			defer closeProject(ctx, project)

			paths, err := resolveAll(ctx, project.Repository, command.Args().Slice())
			if err != nil {
				return err
			}

			for _, path := range paths {
				fingerprint, err := project.Ledger.Fingerprint(path)
				if err != nil {
					return fmt.Errorf("failed to fingerprint %s: %w", path, err)
				}

				_, err = project.Ledger.MarkDeployed(ctx, path, fingerprint)
				if err != nil {
					return err
				}

				fmt.Fprintf(command.Root().Writer, "%s marked deployed\n", path)
			}

			return nil
		},
	}
}
