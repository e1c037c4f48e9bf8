// Package audit records who did what to the governance surface and packages
// the ledger into evidence bundles.
package audit

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Mindburn-Labs/mintgov/pkg/auth"
	"github.com/Mindburn-Labs/mintgov/pkg/contracts"
)

// EventType defines the category of the audit event.
type EventType string

const (
	EventAccess     EventType = "ACCESS"
	EventMutation   EventType = "MUTATION"
	EventSystem     EventType = "SYSTEM"
	EventGovernance EventType = "GOVERNANCE"
)

// Event represents a structured audit record.
type Event struct {
	ID        string            `json:"id"`
	ActorID   string            `json:"actor_id"`
	Address   contracts.Address `json:"address,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	Type      EventType         `json:"type"`
	Action    string            `json:"action"`
	Resource  string            `json:"resource"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]any    `json:"metadata,omitempty"`
}

// Logger defines the interface for recording audit events.
type Logger interface {
	Record(ctx context.Context, eventType EventType, action, resource string, metadata map[string]any) error
}

// newEvent fills in the actor from the request context. Unauthenticated
// work is attributed to "system".
func newEvent(ctx context.Context, eventType EventType, action, resource string, metadata map[string]any) Event {
	evt := Event{
		ID:        uuid.New().String(),
		ActorID:   "system",
		RequestID: auth.GetRequestID(ctx),
		Type:      eventType,
		Action:    action,
		Resource:  resource,
		Timestamp: time.Now().UTC(),
		Metadata:  metadata,
	}
	if p, err := auth.GetPrincipal(ctx); err == nil {
		evt.ActorID = p.GetID()
		evt.Address = p.GetAddress()
	}
	return evt
}

// logger writes one JSON line per event.
type logger struct {
	mu     sync.Mutex
	writer io.Writer
}

// NewLogger creates a Logger writing to os.Stdout.
func NewLogger() Logger {
	return NewLoggerWithWriter(os.Stdout)
}

func NewLoggerWithWriter(w io.Writer) Logger {
	if w == nil {
		w = os.Stdout
	}
	return &logger{writer: w}
}

func (l *logger) Record(ctx context.Context, eventType EventType, action, resource string, metadata map[string]any) error {
	bytes, err := json.Marshal(newEvent(ctx, eventType, action, resource, metadata))
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	// AUDIT: prefix keeps the lines greppable in mixed output.
	_, err = l.writer.Write(append([]byte("AUDIT: "), append(bytes, '\n')...))
	return err
}

// Sink records committed governance events through l.
type Sink struct {
	l Logger
}

func NewSink(l Logger) *Sink { return &Sink{l: l} }

// Emit implements contracts.EventSink. Record failures are dropped; the
// ledger remains the authoritative record.
func (s *Sink) Emit(ctx context.Context, ev contracts.Event) {
	meta := map[string]any{"actor": string(ev.Actor)}
	for k, v := range ev.Data {
		meta[k] = v
	}
	_ = s.l.Record(ctx, EventGovernance, ev.Type, ev.Subject, meta)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records every mutating request with its response status.
func Middleware(l Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			_ = l.Record(r.Context(), EventMutation, r.Method, r.URL.Path, map[string]any{
				"status":     rec.status,
				"idempotent": r.Header.Get("Idempotency-Key") != "",
			})
		})
	}
}
