package push

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"

	"github.com/dukex/flowsmith/pkg/template"
)

// ErrNoCommand is returned when an exec boundary has no command configured.
var ErrNoCommand = errors.New("push command is not configured")

// ExecBoundary pushes by running the engine's command line client. Args are
// rendered with {{.Path}}, {{.ID}}, {{.Name}} and {{.File}} (the source flow path).
type ExecBoundary struct {
	Command    string
	Args       []string
	Dir        string
	Classifier *Classifier
	logger     *slog.Logger
}

// NewExecBoundary creates a boundary running command with args.
func NewExecBoundary(logger *slog.Logger, command string, args []string) *ExecBoundary {
	return &ExecBoundary{
		Command:    command,
		Args:       args,
		Classifier: DefaultClassifier(),
		logger:     logger.With("component", "exec_boundary"),
	}
}

// Push runs the command. A non-zero exit or a failure line in the combined
// output fails the push; output made only of benign lines does not.
func (b *ExecBoundary) Push(ctx context.Context, artifact Artifact) (Outcome, error) {
	if b.Command == "" {
		return Outcome{}, ErrNoCommand
	}

	data := template.Data{Path: artifact.Path, File: artifact.Source}
	if artifact.Document != nil {
		data.ID = artifact.Document.ID
		data.Name = artifact.Document.Name
	}

	args, err := template.RenderArgs(b.Args, data)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to render push arguments: %w", err)
	}

	var output bytes.Buffer

	cmd := exec.CommandContext(ctx, b.Command, args...)
	cmd.Dir = b.Dir
	cmd.Stdout = &output
	cmd.Stderr = &output

	b.logger.DebugContext(ctx, "Running push command", "command", b.Command, "source", artifact.Source)

	runErr := cmd.Run()

	classification := b.Classifier.Classify(output.String())
	outcome := Outcome{
		Success:     runErr == nil && !classification.Failed(),
		Diagnostics: output.String(),
		Failures:    classification.Failures,
		Benign:      classification.Benign,
	}

	if len(outcome.Benign) > 0 {
		b.logger.DebugContext(ctx, "Push reported benign diagnostics", "source", artifact.Source, "lines", len(outcome.Benign))
	}

	var exitErr *exec.ExitError
	if runErr != nil && !errors.As(runErr, &exitErr) {
		return outcome, fmt.Errorf("failed to run push command: %w", runErr)
	}

	return outcome, nil
}
