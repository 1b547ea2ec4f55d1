package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys.
const (
	AttrKey     = attribute.Key("plantkeep.cache.key")
	AttrRefresh = attribute.Key("plantkeep.load.refresh")
	AttrSource  = attribute.Key("plantkeep.load.source")
	AttrOffline = attribute.Key("plantkeep.load.offline")
	AttrState   = attribute.Key("plantkeep.load.state")
)

// Span names.
const (
	SpanLoad  = "plantkeep.load"
	SpanFetch = "plantkeep.fetch"
)

// GlobalTracer returns the plantkeep tracer from the global provider.
func GlobalTracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}

// StartLoad starts the span covering one cache load.
func StartLoad(ctx context.Context, tracer trace.Tracer, key string, refresh bool) (context.Context, trace.Span) {
	return tracer.Start(ctx, SpanLoad,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(AttrKey.String(key), AttrRefresh.Bool(refresh)),
	)
}

// StartFetch starts the span covering one remote fetch.
func StartFetch(ctx context.Context, tracer trace.Tracer, key string) (context.Context, trace.Span) {
	return tracer.Start(ctx, SpanFetch,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(AttrKey.String(key)),
	)
}

// Transition records a load chart transition on the span in ctx.
func Transition(ctx context.Context, to string) {
	trace.SpanFromContext(ctx).AddEvent("transition", trace.WithAttributes(AttrState.String(to)))
}

// End finishes span, marking it failed when err is non-nil.
func End(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
