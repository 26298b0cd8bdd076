// Package cmd builds the services a flowsmith command needs from configuration.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/flowsmith/pkg/compiler"
	"github.com/dukex/flowsmith/pkg/config"
	"github.com/dukex/flowsmith/pkg/content"
	"github.com/dukex/flowsmith/pkg/contracts"
	"github.com/dukex/flowsmith/pkg/eventbus"
	"github.com/dukex/flowsmith/pkg/externalizer"
	"github.com/dukex/flowsmith/pkg/ledger"
	"github.com/dukex/flowsmith/pkg/otelhelper"
	"github.com/dukex/flowsmith/pkg/persistence/file"
	"github.com/dukex/flowsmith/pkg/push"
	"github.com/dukex/flowsmith/pkg/services"
	"github.com/dukex/flowsmith/pkg/validation"
	"go.opentelemetry.io/otel/trace"
)

// Project holds the wired services of one flowsmith project.
type Project struct {
	Config     *config.Config
	Repository *file.DocumentRepository
	Store      ledger.Store
	Ledger     *ledger.Ledger
	Compiler   *compiler.Compiler
	Structural *validation.Validator
	Contracts  *contracts.Validator
	Pipeline   *services.Pipeline
	Workspace  *services.Workspace
	Deployer   *services.Deployer
	EventBus   eventbus.EventBus

	shutdown otelhelper.Shutdown
	logger   *slog.Logger
}

// ProjectOptions toggles the optional services.
type ProjectOptions struct {
	Tracing bool
}

// NewProject opens the ledger store and event bus and wires every service.
func NewProject(ctx context.Context, cfg *config.Config, opts ProjectOptions, logger *slog.Logger) (*Project, error) {
	store, err := NewLedgerStore(ctx, logger, cfg.LedgerURL, cfg.Namespace, cfg.Project)
	if err != nil {
		return nil, err
	}

	bus, err := NewEventBus(cfg.Events.Bus, cfg.Events.Brokers, logger)
	if err != nil {
		_ = store.Close(ctx)

		return nil, err
	}

	boundary, err := NewBoundary(logger, cfg.Push, cfg.Project)
	if err != nil {
		_ = bus.Close()
		_ = store.Close(ctx)

		return nil, err
	}

	tracer := otelhelper.NoopTracer()

	var shutdown otelhelper.Shutdown

	if opts.Tracing {
		var tracingErr error

		tracer, shutdown, tracingErr = otelhelper.NewTracer(ctx, serviceName)
		if tracingErr != nil {
			_ = bus.Close()
			_ = store.Close(ctx)

			return nil, fmt.Errorf("failed to initialize tracer: %w", tracingErr)
		}
	}

	return newProject(cfg, store, bus, boundary, tracer, shutdown, logger), nil
}

func newProject(
	cfg *config.Config,
	store ledger.Store,
	bus eventbus.EventBus,
	boundary push.Boundary,
	tracer trace.Tracer,
	shutdown otelhelper.Shutdown,
	logger *slog.Logger,
) *Project {
	structuralConfig := validation.DefaultConfig()
	if len(cfg.Validation.AllowedFamilies) > 0 {
		structuralConfig.AllowedFamilies = cfg.Validation.AllowedFamilies
	}

	if len(cfg.Validation.BannedTokens) > 0 {
		structuralConfig.BannedTokens = cfg.Validation.BannedTokens
	}

	root := content.NewRoot(cfg.ContentPath())

	p := &Project{
		Config:     cfg,
		Repository: file.NewDocumentRepository(cfg.FlowsPath()),
		Store:      store,
		Ledger:     ledger.New(store, cfg.FlowsPath(), logger),
		Compiler:   compiler.New(root, logger),
		Structural: validation.New(structuralConfig),
		Contracts:  contracts.Default(),
		EventBus:   bus,
		shutdown:   shutdown,
		logger:     logger,
	}

	p.Pipeline = services.NewPipeline(p.Compiler, p.Structural, p.Contracts, cfg.AutoFix(), logger)
	p.Workspace = services.NewWorkspace(p.Repository, externalizer.New(root, logger), bus, logger)
	p.Deployer = services.NewDeployer(
		p.Repository,
		p.Ledger,
		p.Pipeline,
		boundary,
		bus,
		tracer,
		services.DeployerConfig{
			Concurrency: cfg.Push.Concurrency,
			Timeout:     cfg.TimeoutDuration(),
		},
		logger,
	)

	return p
}

// Close releases the event bus, the ledger store and the tracer.
func (p *Project) Close(ctx context.Context) error {
	var errs []error

	if err := p.EventBus.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close event bus: %w", err))
	}

	if err := p.Store.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to close ledger store: %w", err))
	}

	if p.shutdown != nil {
		if err := p.shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown tracer: %w", err))
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to close project", "error", err)
	}

	return err
}
