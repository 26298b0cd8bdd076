package main

import (
	"context"
	"log/slog"

	"github.com/dukex/flowsmith/pkg/channels/kafka"
	"github.com/dukex/flowsmith/pkg/cmd"
	"github.com/dukex/flowsmith/pkg/config"
	"github.com/dukex/flowsmith/pkg/log"
	"github.com/dukex/flowsmith/pkg/persistence"
	cli "github.com/urfave/cli/v3"
)

// loadConfig reads the project configuration; flags set on the command line
// win over the file and the environment.
func loadConfig(command *cli.Command) (*config.Config, error) {
	overlay := &config.Config{
		LogLevel:  command.String("log-level"),
		LedgerURL: command.String("ledger-url"),
		Events: config.EventsConfig{
			Bus:     command.String("event-bus"),
			Brokers: kafka.ParseBrokers(command.String("kafka-brokers")),
		},
	}

	if command.IsSet("concurrency") {
		overlay.Push.Concurrency = command.Int("concurrency")
	}

	if command.IsSet("timeout") {
		overlay.Push.Timeout = command.Duration("timeout").String()
	}

	if command.IsSet("schedule") {
		overlay.Watch.Schedule = command.String("schedule")
	}

	return config.Load(command.String("config"), command.String("project"), overlay)
}

// openProject loads the configuration, installs the logger and wires the
// services of the project.
func openProject(ctx context.Context, command *cli.Command, action string) (*cmd.Project, *slog.Logger, error) {
	cfg, err := loadConfig(command)
	if err != nil {
		return nil, nil, err
	}

	log.Setup(cfg.LogLevel, "text")

	logger := log.WithModule("flowsmith").With("action", action, "project", cfg.Project)

	project, err := cmd.NewProject(ctx, cfg, cmd.ProjectOptions{Tracing: command.Bool("tracing")}, logger)
	if err != nil {
		return nil, nil, err
	}

	return project, logger, nil
}

func closeProject(ctx context.Context, project *cmd.Project) {
	_ = project.Close(context.WithoutCancel(ctx))
}

// resolveAll maps refs to stored document paths, or lists every document
// when refs is empty.
func resolveAll(ctx context.Context, repository persistence.DocumentRepository, refs []string) ([]string, error) {
	if len(refs) == 0 {
		return repository.List(ctx)
	}

	paths := make([]string, 0, len(refs))

	for _, ref := range refs {
		path, err := repository.Resolve(ctx, ref)
		if err != nil {
			return nil, err
		}

		paths = append(paths, path)
	}

	return paths, nil
}
