// Package events defines the notifications published while deploying workflow documents.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic carries every deployment event.
const Topic = "flowsmith.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	DocumentExternalizedEvent EventType = "document.externalized"
	DocumentDeployedEvent     EventType = "document.deployed"
	DocumentDeployFailedEvent EventType = "document.deploy_failed"
	BatchCompletedEvent       EventType = "batch.completed"
)

// Deployment stages a document can fail in.
const (
	StageLoad     = "load"
	StageCompile  = "compile"
	StageValidate = "validate"
	StagePush     = "push"
	StageLedger   = "ledger"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	Document   string         `json:"document"`
	DocumentID string         `json:"document_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type DocumentExternalized struct {
	BaseEvent

	Nodes []string `json:"nodes"`
	Files []string `json:"files"`
}

func (e DocumentExternalized) GetType() EventType {
	return DocumentExternalizedEvent
}

type DocumentDeployed struct {
	BaseEvent

	Name         string    `json:"name"`
	Fingerprint  string    `json:"fingerprint"`
	DeployedAt   time.Time `json:"deployed_at"`
	Warnings     int       `json:"warnings"`
	FixesApplied int       `json:"fixes_applied"`
	DurationMs   int64     `json:"duration_ms"`
}

func (e DocumentDeployed) GetType() EventType {
	return DocumentDeployedEvent
}

type DocumentDeployFailed struct {
	BaseEvent

	Stage      string `json:"stage"`
	Error      string `json:"error"`
	Excerpt    string `json:"excerpt,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

func (e DocumentDeployFailed) GetType() EventType {
	return DocumentDeployFailedEvent
}

type BatchCompleted struct {
	BaseEvent

	Succeeded  int   `json:"succeeded"`
	Failed     int   `json:"failed"`
	DurationMs int64 `json:"duration_ms"`
}

func (e BatchCompleted) GetType() EventType {
	return BatchCompletedEvent
}

func NewBaseEvent(eventType EventType, document string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Document:  document,
		Metadata:  make(map[string]any),
	}
}

// New returns an empty event value for eventType, ready to be decoded into.
// ok is false for unknown types.
func New(eventType EventType) (any, bool) {
	switch eventType {
	case DocumentExternalizedEvent:
		return &DocumentExternalized{}, true
	case DocumentDeployedEvent:
		return &DocumentDeployed{}, true
	case DocumentDeployFailedEvent:
		return &DocumentDeployFailed{}, true
	case BatchCompletedEvent:
		return &BatchCompleted{}, true
	default:
		return nil, false
	}
}
