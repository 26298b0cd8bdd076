package cmd

import (
	"fmt"
	"log/slog"

	"github.com/dukex/flowsmith/pkg/config"
	"github.com/dukex/flowsmith/pkg/push"
)

// NewBoundary builds the exec push boundary. Configured allow and deny
// patterns extend the default diagnostic classifier.
func NewBoundary(logger *slog.Logger, cfg config.PushConfig, project string) (*push.ExecBoundary, error) {
	boundary := push.NewExecBoundary(logger, cfg.Command, cfg.Args)
	boundary.Dir = project

	if len(cfg.Allow) == 0 && len(cfg.Deny) == 0 {
		return boundary, nil
	}

	allow := append(append([]string{}, push.DefaultAllowPatterns...), cfg.Allow...)
	deny := append(append([]string{}, push.DefaultDenyPatterns...), cfg.Deny...)

	classifier, err := push.NewClassifier(allow, deny)
	if err != nil {
		return nil, fmt.Errorf("%w: push diagnostic pattern: %w", config.ErrInvalidConfig, err)
	}

	boundary.Classifier = classifier

	return boundary, nil
}
