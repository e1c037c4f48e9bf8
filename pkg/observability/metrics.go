package observability

import (
	"context"
	"math/big"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/Mindburn-Labs/mintgov/pkg/contracts"
)

// baseUnits per token, matching contracts.Tokens.
var baseUnits = new(big.Float).SetFloat64(1e18)

// GovernanceMetrics counts committed governance events. It implements
// contracts.EventSink.
type GovernanceMetrics struct {
	events  metric.Int64Counter
	minted  metric.Float64Counter
	refills metric.Int64Counter
}

func NewGovernanceMetrics(p *Provider) (*GovernanceMetrics, error) {
	m := &GovernanceMetrics{}
	var err error
	if m.events, err = p.meter.Int64Counter("mintgov.governance.events",
		metric.WithDescription("Committed governance events by type"),
		metric.WithUnit("{event}"),
	); err != nil {
		return nil, err
	}
	if m.minted, err = p.meter.Float64Counter("mintgov.mint.volume",
		metric.WithDescription("Tokens minted, in whole tokens"),
		metric.WithUnit("{token}"),
	); err != nil {
		return nil, err
	}
	if m.refills, err = p.meter.Int64Counter("mintgov.pool.refills",
		metric.WithDescription("Mint pool refills by tier"),
		metric.WithUnit("{refill}"),
	); err != nil {
		return nil, err
	}
	return m, nil
}

// Emit implements contracts.EventSink.
func (m *GovernanceMetrics) Emit(ctx context.Context, ev contracts.Event) {
	m.events.Add(ctx, 1, metric.WithAttributes(AttrEventType.String(ev.Type)))

	switch ev.Type {
	case contracts.EventMintInstant, contracts.EventMintFinalized:
		amount, _ := ev.Data["amount"].(string)
		v, ok := new(big.Float).SetString(amount)
		if !ok {
			return
		}
		tokens, _ := new(big.Float).Quo(v, baseUnits).Float64()
		tier, _ := ev.Data["tier"].(string)
		if tier == "" {
			tier = "owner"
		}
		m.minted.Add(ctx, tokens, metric.WithAttributes(AttrMintTier.String(tier)))
	case contracts.EventPoolRefilled:
		tier, _ := ev.Data["tier"].(string)
		m.refills.Add(ctx, 1, metric.WithAttributes(AttrMintTier.String(tier)))
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// HTTPMiddleware traces each request and records RED metrics. The route
// attribute is the matched mux pattern when next is the mux itself.
func (p *Provider) HTTPMiddleware(next http.Handler) http.Handler {
	propagator := propagation.TraceContext{}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := p.tracer.Start(ctx, r.Method+" "+r.URL.Path, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		inner := r.WithContext(ctx)
		next.ServeHTTP(sw, inner)

		route := inner.Pattern
		if route == "" {
			route = r.URL.Path
		}
		attrs := []attribute.KeyValue{
			AttrHTTPMethod.String(r.Method),
			AttrHTTPRoute.String(route),
			AttrHTTPStatus.Int(sw.status),
		}
		span.SetAttributes(attrs...)
		p.RecordRequest(ctx, attrs...)
		p.RecordDuration(ctx, time.Since(start), attrs...)
		if sw.status >= http.StatusBadRequest {
			p.RecordError(ctx, http.StatusText(sw.status), attrs...)
		}
	})
}
