package node

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Mindburn-Labs/mintgov/pkg/api"
	"github.com/Mindburn-Labs/mintgov/pkg/audit"
	"github.com/Mindburn-Labs/mintgov/pkg/auth"
	"github.com/Mindburn-Labs/mintgov/pkg/observability"
)

// HTTPConfig configures the node's HTTP surface.
type HTTPConfig struct {
	// Validator checks bearer tokens. A nil validator rejects every
	// authenticated route.
	Validator   *auth.JWTValidator
	CORSOrigins []string
	// Limiter enforces Budget per operator; nil disables rate limiting.
	Limiter     auth.LimiterStore
	Budget      auth.Budget
	Idempotency api.IdempotencyStore
	// Telemetry adds request metrics and spans when set.
	Telemetry *observability.Provider
}

// Handler returns the governance API with its middleware chain. Mutating
// requests are recorded in the ledger by the audit middleware.
func (n *Node) Handler(hc HTTPConfig) http.Handler {
	srv := api.NewServer(n.engine, n.controller.Mints(), auth.Caller,
		api.WithKeys(n.controller.Roles()),
		api.WithLedger(n.ledger),
		api.WithIdempotency(hc.Idempotency),
		api.WithLogger(n.component("api")),
	)

	mux := http.NewServeMux()
	mux.Handle("/", srv.Handler())
	mux.HandleFunc("GET /v1/node", n.handleStatus)
	mux.HandleFunc("GET /v1/audit/export", n.handleExport)

	var h http.Handler = mux
	h = audit.Middleware(audit.NewLedgerLogger(n.ledger))(h)
	h = n.shared(h)
	h = auth.RateLimitMiddleware(hc.Limiter, hc.Budget)(h)
	h = auth.ReadOnlyObservers(h)
	h = auth.NewMiddleware(hc.Validator)(h)
	if hc.Telemetry != nil {
		h = hc.Telemetry.HTTPMiddleware(h)
	}
	h = auth.CORSMiddleware(hc.CORSOrigins)(h)
	return auth.RequestIDMiddleware(h)
}

// shared holds the node's shared lock for the duration of mutating
// requests, so a checkpoint never observes half an operation.
func (n *Node) shared(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		n.mu.RLock()
		defer n.mu.RUnlock()
		next.ServeHTTP(w, r)
	})
}

// Status summarises the node for operators.
type Status struct {
	Engine        string   `json:"engine"`
	Controller    string   `json:"controller"`
	Token         string   `json:"token"`
	Registry      string   `json:"registry"`
	Signers       int      `json:"signers"`
	Threshold     int      `json:"threshold"`
	VetoThreshold int      `json:"veto_threshold"`
	Pending       string   `json:"pending,omitempty"`
	MintsPaused   bool     `json:"mints_paused"`
	Revision      int64    `json:"revision"`
	LedgerLength  int      `json:"ledger_length"`
	LedgerHead    string   `json:"ledger_head"`
	ArchiveHead   string   `json:"archive_head,omitempty"`
	Policy        []string `json:"policy,omitempty"`
}

func (n *Node) Status() Status {
	st := Status{
		Engine:        string(n.engine.Address()),
		Controller:    string(n.controller.Address()),
		Token:         string(n.controller.Token()),
		Registry:      string(n.controller.Registry()),
		Signers:       len(n.engine.Roster()),
		Threshold:     n.engine.Threshold(),
		VetoThreshold: n.engine.VetoThreshold(),
		MintsPaused:   n.controller.Mints().Paused(),
		Revision:      n.Revision(),
		LedgerLength:  n.ledger.Length(),
		LedgerHead:    n.ledger.Head(),
	}
	if p, ok := n.engine.Pending(); ok {
		st.Pending = string(p.Kind)
	}
	if n.archiver != nil {
		st.ArchiveHead = n.archiver.Cursor().Digest
	}
	if n.deployment.Policy != nil {
		for _, r := range n.deployment.Policy.Rules {
			st.Policy = append(st.Policy, r.Name)
		}
	}
	return st
}

func (n *Node) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(n.Status())
}

// handleExport streams an evidence pack. Query parameters: start and end
// (RFC 3339) and a comma-separated types list.
func (n *Node) handleExport(w http.ResponseWriter, r *http.Request) {
	var req audit.ExportRequest
	q := r.URL.Query()
	for _, p := range []struct {
		name string
		dst  *time.Time
	}{{"start", &req.StartTime}, {"end", &req.EndTime}} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			api.WriteBadRequest(w, p.name+" must be an RFC 3339 timestamp")
			return
		}
		*p.dst = t
	}
	if v := q.Get("types"); v != "" {
		req.Types = strings.Split(v, ",")
	}

	pack, sum, err := audit.NewExporter(n.ledger).GeneratePack(r.Context(), req)
	switch {
	case errors.Is(err, audit.ErrInvalidTimeRange):
		api.WriteBadRequest(w, err.Error())
		return
	case err != nil:
		api.WriteInternal(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="evidence.zip"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(pack)))
	w.Header().Set("X-Evidence-SHA256", sum)
	_, _ = w.Write(pack)
}
