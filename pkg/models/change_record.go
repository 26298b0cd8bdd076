package models

import "time"

// ChangeRecord tracks the fingerprint and deployment state of one flow file.
type ChangeRecord struct {
	Path                string     `json:"path"`
	Fingerprint         string     `json:"fingerprint"`
	LastModified        time.Time  `json:"last_modified"`
	Deployed            bool       `json:"deployed"`
	DeployedAt          *time.Time `json:"deployed_at,omitempty"`
	DeployedFingerprint string     `json:"deployed_fingerprint,omitempty"`
}

// Dirty reports whether the file needs to be pushed again.
func (r *ChangeRecord) Dirty() bool {
	return !r.Deployed || r.Fingerprint != r.DeployedFingerprint
}

// State is "new" before the first push, "modified" when dirty after a push
// and "deployed" otherwise.
func (r *ChangeRecord) State() string {
	switch {
	case r.DeployedAt == nil:
		return "new"
	case r.Dirty():
		return "modified"
	default:
		return "deployed"
	}
}

// ChangeRecords is the ledger collection keyed by flow path.
type ChangeRecords map[string]*ChangeRecord
