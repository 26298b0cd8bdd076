package services

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/dukex/flowsmith/pkg/compiler"
	"github.com/dukex/flowsmith/pkg/eventbus"
	"github.com/dukex/flowsmith/pkg/events"
	"github.com/dukex/flowsmith/pkg/ledger"
	"github.com/dukex/flowsmith/pkg/models"
	"github.com/dukex/flowsmith/pkg/otelhelper"
	"github.com/dukex/flowsmith/pkg/persistence"
	"github.com/dukex/flowsmith/pkg/push"
	"github.com/dukex/flowsmith/pkg/validation"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of documents pushed at the same time.
const DefaultConcurrency = 4

// DeployerConfig tunes a batch deploy.
type DeployerConfig struct {
	Concurrency int
	Timeout     time.Duration
	// ArtifactDir holds the transient compiled documents; os.TempDir when empty.
	ArtifactDir string
}

// Result is the outcome of deploying one document.
type Result struct {
	Path        string
	ID          string
	Name        string
	Success     bool
	Stage       string
	Fingerprint string
	Deployed    bool
	Warnings    []compiler.Warning
	Fixes       []validation.Fix
	Report      *validation.Report
	Excerpt     string
	Diagnostics string
	Err         error
	Duration    time.Duration
}

// BatchResult holds one Result per document, sorted by path.
type BatchResult struct {
	Results  []Result
	Duration time.Duration
}

// Succeeded returns the successful results.
func (b *BatchResult) Succeeded() []Result {
	return b.filter(true)
}

// Failed returns the failed results.
func (b *BatchResult) Failed() []Result {
	return b.filter(false)
}

func (b *BatchResult) filter(success bool) []Result {
	results := make([]Result, 0, len(b.Results))

	for _, result := range b.Results {
		if result.Success == success {
			results = append(results, result)
		}
	}

	return results
}

// Deployer pushes documents the ledger reports as dirty.
type Deployer struct {
	repository persistence.DocumentRepository
	ledger     *ledger.Ledger
	pipeline   *Pipeline
	boundary   push.Boundary
	publisher  eventbus.EventPublisher
	tracer     trace.Tracer
	config     DeployerConfig
	logger     *slog.Logger
}

// NewDeployer creates a deployer. A nil publisher drops events and a nil
// tracer records nothing.
func NewDeployer(
	repository persistence.DocumentRepository,
	changes *ledger.Ledger,
	pipeline *Pipeline,
	boundary push.Boundary,
	publisher eventbus.EventPublisher,
	tracer trace.Tracer,
	config DeployerConfig,
	logger *slog.Logger,
) *Deployer {
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultConcurrency
	}

	if config.Timeout <= 0 {
		config.Timeout = push.DefaultTimeout
	}

	if config.ArtifactDir == "" {
		config.ArtifactDir = os.TempDir()
	}

	if publisher == nil {
		publisher = eventbus.Discard{}
	}

	if tracer == nil {
		tracer = otelhelper.NoopTracer()
	}

	return &Deployer{
		repository: repository,
		ledger:     changes,
		pipeline:   pipeline,
		boundary:   boundary,
		publisher:  publisher,
		tracer:     tracer,
		config:     config,
		logger:     logger.With("component", "deployer"),
	}
}

// DeployDirty scans the ledger and deploys every dirty document. It returns
// ErrNothingToDeploy with an empty batch when nothing changed.
func (d *Deployer) DeployDirty(ctx context.Context) (*BatchResult, error) {
	dirty, err := d.ledger.Scan(ctx)
	if err != nil {
		return nil, err
	}

	if len(dirty) == 0 {
		return &BatchResult{Results: []Result{}}, ErrNothingToDeploy
	}

	return d.Deploy(ctx, dirty), nil
}

// DeployAll scans the ledger and deploys every tracked document.
func (d *Deployer) DeployAll(ctx context.Context) (*BatchResult, error) {
	_, err := d.ledger.Scan(ctx)
	if err != nil {
		return nil, err
	}

	status, err := d.ledger.Status(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]*models.ChangeRecord, 0, len(status))
	for _, record := range status {
		records = append(records, record)
	}

	if len(records) == 0 {
		return &BatchResult{Results: []Result{}}, ErrNothingToDeploy
	}

	return d.Deploy(ctx, records), nil
}

// Deploy pushes records through a bounded pool. A failing document never
// cancels its siblings; every record gets a Result.
func (d *Deployer) Deploy(ctx context.Context, records []*models.ChangeRecord) *BatchResult {
	started := time.Now()

	ctx, span := otelhelper.StartSpan(ctx, d.tracer, "deploy.batch",
		attribute.Int(otelhelper.BatchSizeKey, len(records)),
		attribute.Int(otelhelper.ConcurrencyKey, d.config.Concurrency),
	)
	defer span.End()

	results := make([]Result, len(records))

	group := new(errgroup.Group)
	group.SetLimit(d.config.Concurrency)

	for i, record := range records {
		group.Go(func() error {
			results[i] = d.deployOne(ctx, record)

			return nil
		})
	}

	_ = group.Wait()

	sort.Slice(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})

	batch := &BatchResult{Results: results, Duration: time.Since(started)}

	d.publish(ctx, "batch", events.BatchCompleted{
		BaseEvent:  events.NewBaseEvent(events.BatchCompletedEvent, ""),
		Succeeded:  len(batch.Succeeded()),
		Failed:     len(batch.Failed()),
		DurationMs: batch.Duration.Milliseconds(),
	})

	d.logger.InfoContext(ctx, "Deploy batch finished",
		"documents", len(results),
		"succeeded", len(batch.Succeeded()),
		"failed", len(batch.Failed()),
		"duration", batch.Duration,
	)

	return batch
}

func (d *Deployer) deployOne(ctx context.Context, record *models.ChangeRecord) Result {
	started := time.Now()
	result := Result{Path: record.Path, Fingerprint: record.Fingerprint}

	ctx, span := otelhelper.StartSpan(ctx, d.tracer, "deploy.document",
		attribute.String(otelhelper.DocumentPathKey, record.Path),
		attribute.String(otelhelper.FingerprintKey, record.Fingerprint),
	)
	defer span.End()

	err := d.run(ctx, record, &result)
	result.Duration = time.Since(started)

	if err != nil {
		result.Err = err
		result.Stage = StageOf(err)
		otelhelper.SetDeployError(span, err, result.Stage, attribute.String(otelhelper.DocumentPathKey, record.Path))

		d.logger.ErrorContext(ctx, "Deploy failed", "document", record.Path, "stage", result.Stage, "error", err)
		d.publish(ctx, record.Path, events.DocumentDeployFailed{
			BaseEvent:  d.baseEvent(events.DocumentDeployFailedEvent, result),
			Stage:      result.Stage,
			Error:      err.Error(),
			Excerpt:    result.Excerpt,
			DurationMs: result.Duration.Milliseconds(),
		})

		return result
	}

	result.Success = true

	d.logger.InfoContext(ctx, "Deployed document", "document", record.Path, "deployed", result.Deployed, "duration", result.Duration)
	d.publish(ctx, record.Path, events.DocumentDeployed{
		BaseEvent:    d.baseEvent(events.DocumentDeployedEvent, result),
		Name:         result.Name,
		Fingerprint:  result.Fingerprint,
		DeployedAt:   time.Now().UTC(),
		Warnings:     len(result.Warnings),
		FixesApplied: len(result.Fixes),
		DurationMs:   result.Duration.Milliseconds(),
	})

	return result
}

// run loads, prepares and pushes one document, then marks it deployed. The
// ledger records the fingerprint of the bytes that were loaded and pushed, so
// an edit made after loading keeps the document dirty.
func (d *Deployer) run(ctx context.Context, record *models.ChangeRecord, result *Result) error {
	doc, pushed, err := d.repository.LoadVersion(ctx, record.Path)
	if err != nil {
		return newStageError("deploy", record.Path, events.StageLoad, err)
	}

	result.Name = doc.Name
	result.Fingerprint = pushed

	prepared, err := d.pipeline.Prepare(ctx, record.Path, doc)
	if prepared != nil {
		result.Warnings = prepared.Warnings
		result.Fixes = prepared.Fixes
		result.Report = prepared.Report
	}

	if err != nil {
		return err
	}

	result.ID = prepared.Document.ID

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String(otelhelper.DocumentIDKey, prepared.Document.ID),
		attribute.String(otelhelper.DocumentNameKey, prepared.Document.Name),
		attribute.Int(otelhelper.WarningsKey, len(prepared.Warnings)),
		attribute.Int(otelhelper.FixesAppliedKey, len(prepared.Fixes)),
	)

	outcome, err := push.Run(ctx, d.boundary, d.config.ArtifactDir, record.Path, prepared.Document, d.config.Timeout)
	result.Diagnostics = outcome.Diagnostics
	result.Excerpt = push.Excerpt(outcome.Diagnostics, push.ExcerptLimit)

	trace.SpanFromContext(ctx).SetAttributes(attribute.Int(otelhelper.DiagnosticBytesKey, len(outcome.Diagnostics)))

	if err != nil {
		return newStageError("deploy", record.Path, events.StagePush, err)
	}

	marked, err := d.ledger.MarkDeployed(ctx, record.Path, pushed)
	if err != nil {
		return newStageError("deploy", record.Path, events.StageLedger, err)
	}

	result.Deployed = marked.Deployed
	if !marked.Deployed {
		d.logger.WarnContext(ctx, "Document changed while it was pushed; it stays dirty", "document", record.Path)
	}

	return nil
}

func (d *Deployer) baseEvent(eventType events.EventType, result Result) events.BaseEvent {
	base := events.NewBaseEvent(eventType, result.Path)
	base.DocumentID = result.ID

	return base
}

func (d *Deployer) publish(ctx context.Context, key string, event eventbus.Event) {
	err := d.publisher.Publish(ctx, key, event)
	if err != nil && !errors.Is(err, context.Canceled) {
		d.logger.WarnContext(ctx, "Failed to publish event", "event", event.GetType(), "error", err)
	}
}
