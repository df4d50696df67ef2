package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Standard attribute keys for t spans and metrics.
var (
	AttrList      = attribute.Key("t.list.name")
	AttrPath      = attribute.Key("t.list.path")
	AttrTaskID    = attribute.Key("t.task.id")
	AttrTaskCount = attribute.Key("t.task.count")
	AttrAction    = attribute.Key("t.action")
	AttrSaveMode  = attribute.Key("t.save.mode")
	AttrRunID     = attribute.Key("t.run.id")
)

// StartSpan starts an internal span with common attributes.
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
