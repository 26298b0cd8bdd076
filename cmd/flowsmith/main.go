package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newApp().Run(ctx, os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:                  "flowsmith",
		Usage:                 "Externalize, compile, validate and push workflow documents",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to flowsmith.toml (defaults to <project>/flowsmith.toml when present)",
				Sources: cli.EnvVars("FLOWSMITH_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "project",
				Aliases: []string{"p"},
				Usage:   "Project directory holding flows/ and content/",
				Value:   ".",
				Sources: cli.EnvVars("FLOWSMITH_PROJECT"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Sources: cli.EnvVars("FLOWSMITH_LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "ledger-url",
				Usage:   "Change ledger location (file://, postgres://, redis://)",
				Sources: cli.EnvVars("FLOWSMITH_LEDGER_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Deployment event bus (none, memory, kafka)",
				Sources: cli.EnvVars("FLOWSMITH_EVENT_BUS"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers for the kafka event bus",
				Sources: cli.EnvVars("FLOWSMITH_KAFKA_BROKERS"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export deployment traces over OTLP/HTTP",
				Sources: cli.EnvVars("FLOWSMITH_TRACING"),
			},
		},
		Commands: []*cli.Command{
			NewExternalizeCommand(),
			NewCompileCommand(),
			NewValidateCommand(),
			NewStatusCommand(),
			NewPushCommand(),
			NewMarkDeployedCommand(),
			NewWatchCommand(),
		},
	}
}
