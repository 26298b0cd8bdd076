package main

import (
	"context"
	"time"

	"github.com/dukex/flowsmith/pkg/services"
	"github.com/dukex/flowsmith/pkg/web"
	"github.com/gofiber/fiber/v3"
	cli "github.com/urfave/cli/v3"
)

func NewWatchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Push changed documents on a cron schedule until interrupted",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "schedule",
				Usage:   `Cron expression or descriptor such as "@every 5m"`,
				Sources: cli.EnvVars("FLOWSMITH_WATCH_SCHEDULE"),
			},
			&cli.StringFlag{
				Name:    "listen",
				Usage:   "Serve the control API on this address (e.g. :9091)",
				Sources: cli.EnvVars("FLOWSMITH_LISTEN"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			project, logger, err := openProject(ctx, command, "watch")
			if err != nil {
				return err
			}
			defer closeProject(ctx, project)

			scheduler, err := services.NewScheduler(project.Deployer, project.Config.Watch.Schedule, logger)
			if err != nil {
				return err
			}

			runs := make(chan *services.BatchResult, 1)
			scheduler.Runs(runs)

			err = scheduler.Start(ctx)
			if err != nil {
				return err
			}
			defer scheduler.Stop()

			if listen := command.String("listen"); listen != "" {
				app := web.NewApp(web.NewAPIHandlers(
					project.Repository,
					project.Ledger,
					project.Pipeline,
					project.Deployer,
					web.NewValidator(),
				))

				go func() {
					err := app.Listen(listen, fiber.ListenConfig{DisableStartupMessage: true})
					if err != nil {
						logger.ErrorContext(ctx, "Control API stopped", "error", err)
					}
				}()

				defer func() {
					err := app.ShutdownWithTimeout(5 * time.Second)
					if err != nil {
						logger.ErrorContext(ctx, "Failed to shutdown control API", "error", err)
					}
				}()

				logger.InfoContext(ctx, "Serving control API", "address", listen)
			}

			logger.InfoContext(ctx, "Watching flows", "schedule", project.Config.Watch.Schedule)

			for {
				select {
				case <-ctx.Done():
					logger.InfoContext(ctx, "Stopping watch")

					return nil
				case batch := <-runs:
					if len(batch.Results) == 0 {
						continue
					}

					printBatch(command.Root().Writer, batch)
				}
			}
		},
	}
}
