package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dukex/flowsmith/pkg/persistence/file"
	cli "github.com/urfave/cli/v3"
)

func NewCompileCommand() *cli.Command {
	return &cli.Command{
		Name:      "compile",
		Usage:     "Print the push-ready copy of a document with its content injected",
		ArgsUsage: "<document>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Write the compiled document to this file instead of stdout",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			if command.Args().Len() != 1 {
				return cli.Exit("compile expects exactly one document", 2)
			}

			project, _, err := openProject(ctx, command, "compile")
			if err != nil {
				return err
			}
			defer closeProject(ctx, project)

			path, err := project.Repository.Resolve(ctx, command.Args().First())
			if err != nil {
				return err
			}

			doc, err := project.Repository.Load(ctx, path)
			if err != nil {
				return err
			}

			prepared, err := project.Pipeline.Prepare(ctx, path, doc)
			if prepared != nil {
				printReport(command.Root().ErrWriter, path, prepared.Report, prepared.Fixes)

				for _, warning := range prepared.Warnings {
					fmt.Fprintf(command.Root().ErrWriter, "  warning: %v\n", warning)
				}
			}

			if err != nil {
				return err
			}

			data, err := file.Marshal(prepared.Document)
			if err != nil {
				return err
			}

			out := command.String("out")
			if out == "" {
				_, err = command.Root().Writer.Write(data)

				return err
			}

			return os.WriteFile(out, data, 0o600)
		},
	}
}
