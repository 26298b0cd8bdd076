package push

import (
	"regexp"
	"strings"
)

// DefaultAllowPatterns match diagnostic lines that never indicate failure.
var DefaultAllowPatterns = []string{
	`(?i)deprecat`,
	`(?i)experimental`,
	`(?i)permissions? (notice|warning)`,
	`(?i)update available`,
	`(?i)new version`,
	`(?i)^\s*(\(node:\d+\)\s*)?\[?(warn|warning|notice|info)\]?\b`,
}

// DefaultDenyPatterns match diagnostic lines that indicate failure.
var DefaultDenyPatterns = []string{
	`(?i)\berror\b`,
	`(?i)\bfailed\b`,
	`(?i)\binvalid\b`,
	`(?i)\bunauthorized\b`,
	`(?i)\bforbidden\b`,
	`ECONNREFUSED`,
	`(?i)\bnot found\b`,
}

// Classification splits diagnostics by line.
type Classification struct {
	Benign   []string
	Failures []string
	Other    []string
}

// Failed reports whether any line matched the deny-list.
func (c Classification) Failed() bool {
	return len(c.Failures) > 0
}

// Classifier separates benign diagnostic lines from failure lines. The
// allow-list wins, so a deprecation notice mentioning "error" stays benign.
type Classifier struct {
	allow []*regexp.Regexp
	deny  []*regexp.Regexp
}

// NewClassifier compiles the given patterns.
func NewClassifier(allow, deny []string) (*Classifier, error) {
	classifier := &Classifier{}

	for _, pattern := range allow {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, err
		}

		classifier.allow = append(classifier.allow, re)
	}

	for _, pattern := range deny {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, err
		}

		classifier.deny = append(classifier.deny, re)
	}

	return classifier, nil
}

// DefaultClassifier uses DefaultAllowPatterns and DefaultDenyPatterns.
func DefaultClassifier() *Classifier {
	classifier, err := NewClassifier(DefaultAllowPatterns, DefaultDenyPatterns)
	if err != nil {
		panic(err)
	}

	return classifier
}

// Classify sorts every non-blank line of diagnostics.
func (c *Classifier) Classify(diagnostics string) Classification {
	var result Classification

	for _, line := range strings.Split(diagnostics, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		switch {
		case matchAny(c.allow, line):
			result.Benign = append(result.Benign, line)
		case matchAny(c.deny, line):
			result.Failures = append(result.Failures, line)
		default:
			result.Other = append(result.Other, line)
		}
	}

	return result
}

func matchAny(patterns []*regexp.Regexp, line string) bool {
	for _, re := range patterns {
		if re.MatchString(line) {
			return true
		}
	}

	return false
}
