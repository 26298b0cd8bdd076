package services

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/dukex/flowsmith/pkg/compiler"
	"github.com/dukex/flowsmith/pkg/content"
	"github.com/dukex/flowsmith/pkg/contracts"
	"github.com/dukex/flowsmith/pkg/eventbus"
	"github.com/dukex/flowsmith/pkg/ledger"
	"github.com/dukex/flowsmith/pkg/log"
	"github.com/dukex/flowsmith/pkg/mocks"
	"github.com/dukex/flowsmith/pkg/persistence/file"
	"github.com/dukex/flowsmith/pkg/validation"
	"github.com/stretchr/testify/mock"
)

type project struct {
	dir       string
	flows     string
	content   string
	artifacts string
	repo      *file.DocumentRepository
	ledger    *ledger.Ledger
	boundary  *mocks.MockBoundary
	bus       *mocks.MockEventBus
}

func newProject(t *testing.T) *project {
	t.Helper()

	dir := t.TempDir()
	p := &project{
		dir:       dir,
		flows:     filepath.Join(dir, "flows"),
		content:   filepath.Join(dir, "content"),
		artifacts: t.TempDir(),
		boundary:  &mocks.MockBoundary{},
		bus:       &mocks.MockEventBus{},
	}

	p.repo = file.NewDocumentRepository(p.flows)
	p.ledger = ledger.New(ledger.NewFileStore(filepath.Join(dir, ledger.DefaultPath)), p.flows, log.Discard())
	p.bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	return p
}

func (p *project) pipeline(autoFix bool) *Pipeline {
	return NewPipeline(
		compiler.New(content.NewRoot(p.content), log.Discard()),
		validation.New(validation.DefaultConfig()),
		contracts.Default(),
		autoFix,
		log.Discard(),
	)
}

func (p *project) deployer(bus eventbus.EventPublisher) *Deployer {
	return NewDeployer(p.repo, p.ledger, p.pipeline(true), p.boundary, bus, nil, DeployerConfig{
		Concurrency: 2,
		Timeout:     time.Second,
		ArtifactDir: p.artifacts,
	}, log.Discard())
}

// published returns the events passed to the mock bus, by type name.
func (p *project) published() []eventbus.Event {
	published := make([]eventbus.Event, 0)

	for _, call := range p.bus.Calls {
		if call.Method == "Publish" {
			published = append(published, call.Arguments.Get(2).(eventbus.Event))
		}
	}

	return published
}
