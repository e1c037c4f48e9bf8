package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Mindburn-Labs/mintgov/pkg/contracts"
)

func newTestProvider(t *testing.T) (*Provider, *sdkmetric.ManualReader, *tracetest.InMemoryExporter) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	spans := tracetest.NewInMemoryExporter()
	p, err := New(context.Background(), &Config{
		ServiceName:  "mintgov-test",
		Enabled:      true,
		SampleRate:   1,
		Reader:       reader,
		SpanExporter: spans,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })
	return p, reader, spans
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	require.Equal(t, "mintgov", config.ServiceName)
	require.Equal(t, "localhost:4317", config.OTLPEndpoint)
	require.Equal(t, 1.0, config.SampleRate)
	require.True(t, config.Enabled)
	require.False(t, config.Insecure)
}

func TestNewProviderDisabled(t *testing.T) {
	p, err := New(context.Background(), &Config{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, p.Tracer())
	require.NotNil(t, p.Meter())

	// No-op instruments must accept calls.
	ctx := context.Background()
	p.RecordRequest(ctx, attribute.String("test", "value"))
	p.RecordError(ctx, "boom")
	p.RecordDuration(ctx, 100*time.Millisecond)
	_, finish := p.TrackOperation(ctx, "noop")
	finish(errors.New("ignored"))
	require.NoError(t, p.Shutdown(ctx))
}

func TestTrackOperation(t *testing.T) {
	p, reader, spans := newTestProvider(t)

	_, finish := p.TrackOperation(context.Background(), "multisig.approve", ActionOperation("pauseMints", "owner-1")...)
	finish(nil)
	_, finish = p.TrackOperation(context.Background(), "multisig.approve", ActionOperation("pauseMints", "owner-2")...)
	finish(errors.New("execution failed"))

	require.Len(t, spans.GetSpans(), 2)
	require.Equal(t, "multisig.approve", spans.GetSpans()[0].Name)

	data := collect(t, reader)
	requests := data["mintgov.requests.total"].(metricdata.Sum[int64])
	var total int64
	for _, dp := range requests.DataPoints {
		total += dp.Value
	}
	require.Equal(t, int64(2), total)

	errs := data["mintgov.errors.total"].(metricdata.Sum[int64])
	require.Len(t, errs.DataPoints, 1)
	require.Equal(t, int64(1), errs.DataPoints[0].Value)
}

func TestGovernanceMetrics(t *testing.T) {
	p, reader, _ := newTestProvider(t)
	m, err := NewGovernanceMetrics(p)
	require.NoError(t, err)

	ctx := context.Background()
	m.Emit(ctx, contracts.Event{Type: contracts.EventActionExecuted})
	m.Emit(ctx, contracts.Event{Type: contracts.EventMintInstant, Data: map[string]any{
		"amount": contracts.Tokens(110).Dec(), "tier": "instant",
	}})
	m.Emit(ctx, contracts.Event{Type: contracts.EventMintFinalized, Data: map[string]any{
		"amount": contracts.Tokens(5).Dec(),
	}})
	m.Emit(ctx, contracts.Event{Type: contracts.EventPoolRefilled, Data: map[string]any{"tier": "ratified"}})

	data := collect(t, reader)
	events := data["mintgov.governance.events"].(metricdata.Sum[int64])
	require.Len(t, events.DataPoints, 4)

	volume := data["mintgov.mint.volume"].(metricdata.Sum[float64])
	byTier := map[string]float64{}
	for _, dp := range volume.DataPoints {
		tier, _ := dp.Attributes.Value(AttrMintTier)
		byTier[tier.AsString()] = dp.Value
	}
	require.InDelta(t, 110, byTier["instant"], 1e-9)
	require.InDelta(t, 5, byTier["owner"], 1e-9)

	refills := data["mintgov.pool.refills"].(metricdata.Sum[int64])
	require.Equal(t, int64(1), refills.DataPoints[0].Value)
}

func TestHTTPMiddleware(t *testing.T) {
	p, reader, spans := newTestProvider(t)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/mint/operations/{index}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	handler := p.HTTPMiddleware(mux)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/v1/mint/operations/7", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	require.Len(t, spans.GetSpans(), 1)
	data := collect(t, reader)
	errs := data["mintgov.errors.total"].(metricdata.Sum[int64])
	require.Len(t, errs.DataPoints, 1)
	route, ok := errs.DataPoints[0].Attributes.Value(AttrHTTPRoute)
	require.True(t, ok)
	require.Equal(t, "GET /v1/mint/operations/{index}", route.AsString())
}

func TestHelpers(t *testing.T) {
	attrs := MintOperation(3, "jumbo")
	require.Len(t, attrs, 2)
	require.Equal(t, "mintgov.mint.tier", string(attrs[1].Key))
	require.Len(t, MintOperation(3, ""), 1)

	// Should not panic without a span.
	AddSpanEvent(context.Background(), "test.event", attribute.String("key", "value"))
}
