package main

import (
	"context"
	"fmt"
	"io"

	"github.com/dukex/flowsmith/pkg/services"
	"github.com/dukex/flowsmith/pkg/validation"
	cli "github.com/urfave/cli/v3"
)

func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Aliases:   []string{"v"},
		Usage:     "Check stored documents against the structural rules and parameter contracts",
		ArgsUsage: "[document...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "fix",
				Usage: "Apply deterministic fixes before reporting",
			},
			&cli.BoolFlag{
				Name:  "write",
				Usage: "Save fixed documents back to the flows directory (implies --fix)",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			project, logger, err := openProject(ctx, command, "validate")
			if err != nil {
				return err
			}
			defer closeProject(ctx, project)

			write := command.Bool("write")
			fix := command.Bool("fix") || write

			paths, err := resolveAll(ctx, project.Repository, command.Args().Slice())
			if err != nil {
				return err
			}

			invalid := 0

			for _, path := range paths {
				doc, err := project.Repository.Load(ctx, path)
				if err != nil {
					fmt.Fprintf(command.Root().Writer, "%s: %v\n", path, err)
					invalid++

					continue
				}

				fixes := make([]validation.Fix, 0)

				var report *validation.Report
				if fix {
					report, fixes = project.Pipeline.Fix(doc)
				} else {
					report = project.Pipeline.Validate(doc)
				}

				printReport(command.Root().Writer, path, report, fixes)

				if services.Blocking(path, report) != nil {
					invalid++
				}

				if write && len(fixes) > 0 {
					err = project.Repository.Save(ctx, path, doc)
					if err != nil {
						return err
					}

					logger.InfoContext(ctx, "Saved fixed document", "document", path, "fixes", len(fixes))
				}
			}

			if invalid > 0 {
				return cli.Exit(fmt.Sprintf("%d of %d documents are invalid", invalid, len(paths)), 1)
			}

			return nil
		},
	}
}

func printReport(w io.Writer, path string, report *validation.Report, fixes []validation.Fix) {
	status := "ok"
	if report.HasErrors() {
		status = "invalid"
	}

	fmt.Fprintf(w, "%s: %s (%s)\n", path, status, report.Summary())

	for _, fix := range fixes {
		fmt.Fprintf(w, "  fixed [%s] %s\n", fix.Code, fix.Description)
	}

	for _, issue := range report.Issues {
		fmt.Fprintf(w, "  %s\n", issue)
	}
}
