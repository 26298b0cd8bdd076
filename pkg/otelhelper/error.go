package otelhelper

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DeployFailedEvent names the span event added when a document fails to deploy.
const DeployFailedEvent = "flowsmith.deploy.failed"

// SetDeployError marks span as failed at stage. The stage is set on the span
// and repeated on the failure event together with attrs.
func SetDeployError(span trace.Span, err error, stage string, attrs ...attribute.KeyValue) {
	stageAttr := attribute.String(StageKey, stage)

	span.SetAttributes(stageAttr)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.AddEvent(DeployFailedEvent, trace.WithAttributes(append(attrs, stageAttr)...))
}
