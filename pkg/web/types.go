// Package web provides the HTTP control API served by the watch command.
package web

import (
	"time"

	"github.com/dukex/flowsmith/pkg/models"
	"github.com/dukex/flowsmith/pkg/services"
	"github.com/dukex/flowsmith/pkg/validation"
)

// DeployRequest is the body of POST /deploy.
type DeployRequest struct {
	All bool `json:"all"`
}

// ValidateRequest is the body of POST /validate. An empty list validates
// every document.
type ValidateRequest struct {
	Documents []string `json:"documents" validate:"omitempty,dive,required"`
	Fix       bool     `json:"fix"`
}

// DocumentStatus describes one ledger record.
type DocumentStatus struct {
	Path                string     `json:"path"`
	State               string     `json:"state"`
	Fingerprint         string     `json:"fingerprint"`
	DeployedFingerprint string     `json:"deployed_fingerprint,omitempty"`
	DeployedAt          *time.Time `json:"deployed_at,omitempty"`
}

// ValidationResponse is the report of one document.
type ValidationResponse struct {
	Path   string             `json:"path"`
	Valid  bool               `json:"valid"`
	Issues []validation.Issue `json:"issues"`
	Fixes  []validation.Fix   `json:"fixes"`
}

// DeployResult is the outcome of one document in a batch.
type DeployResult struct {
	Path       string `json:"path"`
	Success    bool   `json:"success"`
	Deployed   bool   `json:"deployed"`
	Stage      string `json:"stage,omitempty"`
	Error      string `json:"error,omitempty"`
	Excerpt    string `json:"excerpt,omitempty"`
	Warnings   int    `json:"warnings"`
	Fixes      int    `json:"fixes"`
	DurationMs int64  `json:"duration_ms"`
}

// DeployResponse summarizes a batch.
type DeployResponse struct {
	Results    []DeployResult `json:"results"`
	Succeeded  int            `json:"succeeded"`
	Failed     int            `json:"failed"`
	DurationMs int64          `json:"duration_ms"`
}

// TransformStatus builds the response for a ledger record.
func TransformStatus(record *models.ChangeRecord) DocumentStatus {
	return DocumentStatus{
		Path:                record.Path,
		State:               record.State(),
		Fingerprint:         record.Fingerprint,
		DeployedFingerprint: record.DeployedFingerprint,
		DeployedAt:          record.DeployedAt,
	}
}

// TransformBatch builds the response for a deploy batch.
func TransformBatch(batch *services.BatchResult) DeployResponse {
	response := DeployResponse{
		Results:    make([]DeployResult, 0, len(batch.Results)),
		Succeeded:  len(batch.Succeeded()),
		Failed:     len(batch.Failed()),
		DurationMs: batch.Duration.Milliseconds(),
	}

	for _, result := range batch.Results {
		item := DeployResult{
			Path:       result.Path,
			Success:    result.Success,
			Deployed:   result.Deployed,
			Excerpt:    result.Excerpt,
			Warnings:   len(result.Warnings),
			Fixes:      len(result.Fixes),
			DurationMs: result.Duration.Milliseconds(),
		}

		if !result.Success {
			item.Stage = result.Stage
		}

		if result.Err != nil {
			item.Error = result.Err.Error()
		}

		response.Results = append(response.Results, item)
	}

	return response
}
