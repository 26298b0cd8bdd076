package main

import (
	"context"
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/dukex/flowsmith/pkg/models"
	cli "github.com/urfave/cli/v3"
)

func NewStatusCommand() *cli.Command {
	return &cli.Command{
		Name:    "status",
		Aliases: []string{"s"},
		Usage:   "Show which documents changed since their last successful push",
		Action: func(ctx context.Context, command *cli.Command) error {
			project, _, err := openProject(ctx, command, "status")
			if err != nil {
				return err
			}
			defer closeProject(ctx, project)

			_, err = project.Ledger.Scan(ctx)
			if err != nil {
				return fmt.Errorf("failed to scan flows: %w", err)
			}

			records, err := project.Ledger.Status(ctx)
			if err != nil {
				return err
			}

			paths := make([]string, 0, len(records))
			for path := range records {
				paths = append(paths, path)
			}

			sort.Strings(paths)

			w := tabwriter.NewWriter(command.Root().Writer, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "DOCUMENT\tSTATE\tDEPLOYED AT")

			for _, path := range paths {
				record := records[path]
				fmt.Fprintf(w, "%s\t%s\t%s\n", path, record.State(), deployedAt(record))
			}

			return w.Flush()
		},
	}
}

func deployedAt(record *models.ChangeRecord) string {
	if record.DeployedAt == nil {
		return "-"
	}

	return record.DeployedAt.Format(time.RFC3339)
}
