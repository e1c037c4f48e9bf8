package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Governance semantic convention attributes.
var (
	AttrEventType  = attribute.Key("mintgov.event.type")
	AttrActionKind = attribute.Key("mintgov.action.kind")
	AttrSigner     = attribute.Key("mintgov.signer")
	AttrMintTier   = attribute.Key("mintgov.mint.tier")
	AttrMintIndex  = attribute.Key("mintgov.mint.index")
	AttrErrorKind  = attribute.Key("mintgov.error.kind")

	AttrHTTPRoute  = attribute.Key("http.route")
	AttrHTTPMethod = attribute.Key("http.request.method")
	AttrHTTPStatus = attribute.Key("http.response.status_code")
)

// ActionOperation describes an engine call.
func ActionOperation(kind, signer string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrActionKind.String(kind),
		AttrSigner.String(signer),
	}
}

// MintOperation describes a pipeline call on one operation.
func MintOperation(index int64, tier string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{AttrMintIndex.Int64(index)}
	if tier != "" {
		attrs = append(attrs, AttrMintTier.String(tier))
	}
	return attrs
}

// AddSpanEvent adds an event to the current span.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}
