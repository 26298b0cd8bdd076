package services

import (
	"context"
	"log/slog"

	"github.com/dukex/flowsmith/pkg/eventbus"
	"github.com/dukex/flowsmith/pkg/events"
	"github.com/dukex/flowsmith/pkg/externalizer"
	"github.com/dukex/flowsmith/pkg/persistence"
)

// Workspace externalizes the content embedded in stored documents.
type Workspace struct {
	repository   persistence.DocumentRepository
	externalizer *externalizer.Externalizer
	publisher    eventbus.EventPublisher
	logger       *slog.Logger
}

// NewWorkspace creates a workspace service. A nil publisher drops events.
func NewWorkspace(repository persistence.DocumentRepository, ext *externalizer.Externalizer, publisher eventbus.EventPublisher, logger *slog.Logger) *Workspace {
	if publisher == nil {
		publisher = eventbus.Discard{}
	}

	return &Workspace{
		repository:   repository,
		externalizer: ext,
		publisher:    publisher,
		logger:       logger.With("component", "workspace"),
	}
}

// ExternalizeResult pairs a flow path with what was extracted from it.
type ExternalizeResult struct {
	Path   string
	Result *externalizer.Result
}

// Externalize processes the given documents, or every stored document when
// refs is empty. A document is saved only when something was extracted.
func (w *Workspace) Externalize(ctx context.Context, refs ...string) ([]ExternalizeResult, error) {
	paths, err := w.resolve(ctx, refs)
	if err != nil {
		return nil, err
	}

	results := make([]ExternalizeResult, 0, len(paths))

	for _, path := range paths {
		result, err := w.externalizeOne(ctx, path)
		if err != nil {
			return results, err
		}

		results = append(results, ExternalizeResult{Path: path, Result: result})
	}

	return results, nil
}

func (w *Workspace) externalizeOne(ctx context.Context, path string) (*externalizer.Result, error) {
	doc, err := w.repository.Load(ctx, path)
	if err != nil {
		return nil, newStageError("externalize", path, events.StageLoad, err)
	}

	result, err := w.externalizer.Document(ctx, doc)
	if err != nil {
		return nil, &ServiceError{Op: "externalize", Document: path, Err: err}
	}

	if !result.Changed() {
		w.logger.DebugContext(ctx, "Nothing to externalize", "document", path)

		return result, nil
	}

	err = w.repository.Save(ctx, path, doc)
	if err != nil {
		return nil, &ServiceError{Op: "externalize", Document: path, Err: err}
	}

	event := events.DocumentExternalized{
		BaseEvent: events.NewBaseEvent(events.DocumentExternalizedEvent, path),
		Nodes:     make([]string, 0, len(result.Extracted)),
		Files:     make([]string, 0, len(result.Extracted)),
	}
	event.DocumentID = doc.ID

	for _, record := range result.Extracted {
		event.Nodes = append(event.Nodes, record.Node)
		event.Files = append(event.Files, record.Path)
	}

	err = w.publisher.Publish(ctx, path, event)
	if err != nil {
		w.logger.WarnContext(ctx, "Failed to publish event", "event", event.GetType(), "error", err)
	}

	w.logger.InfoContext(ctx, "Externalized document", "document", path, "extracted", len(result.Extracted), "skipped", len(result.Skipped))

	return result, nil
}

func (w *Workspace) resolve(ctx context.Context, refs []string) ([]string, error) {
	if len(refs) == 0 {
		return w.repository.List(ctx)
	}

	paths := make([]string, 0, len(refs))

	for _, ref := range refs {
		path, err := w.repository.Resolve(ctx, ref)
		if err != nil {
			return nil, err
		}

		paths = append(paths, path)
	}

	return paths, nil
}
