package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/holiman/uint256"

	"github.com/Mindburn-Labs/mintgov/pkg/contracts"
	"github.com/Mindburn-Labs/mintgov/pkg/ledger"
	"github.com/Mindburn-Labs/mintgov/pkg/mint"
	"github.com/Mindburn-Labs/mintgov/pkg/multisig"
)

// maxBody bounds request bodies.
const maxBody = 1 << 20

// CallerFunc resolves the authenticated address behind a request.
type CallerFunc func(r *http.Request) (contracts.Address, error)

// Engine is the quorum surface the API drives.
type Engine interface {
	ProposeOrCosign(ctx context.Context, signer contracts.Address, a multisig.Action) (multisig.Outcome, error)
	Veto(ctx context.Context, signer contracts.Address) (multisig.Outcome, error)
	Pending() (multisig.PendingAction, bool)
	Roster() []contracts.Address
	Threshold() int
	VetoThreshold() int
	Address() contracts.Address
	Controller() contracts.Address
}

// Mints is the pipeline surface role holders call directly.
type Mints interface {
	RequestMint(ctx context.Context, caller, to contracts.Address, amount *uint256.Int) (uint64, error)
	InstantMint(ctx context.Context, caller, to contracts.Address, amount *uint256.Int) error
	RatifyMint(ctx context.Context, caller contracts.Address, index uint64, to contracts.Address, amount *uint256.Int) (bool, error)
	FinalizeMint(ctx context.Context, caller contracts.Address, index uint64) error
	RevokeMint(ctx context.Context, caller contracts.Address, index uint64) error
	PauseMint(ctx context.Context, caller contracts.Address, index uint64) error
	UnpauseMint(ctx context.Context, caller contracts.Address, index uint64) error
	PauseMints(ctx context.Context, caller contracts.Address) error
	RefillInstantPool(ctx context.Context, caller contracts.Address) error
	RefillRatifiedPool(ctx context.Context, caller contracts.Address) (bool, error)
	RefillJumboPool(ctx context.Context, caller contracts.Address) error
	Thresholds() mint.Triple
	Limits() mint.Triple
	Pools() mint.Triple
	Rules() [3]mint.TierRule
	Paused() bool
	Watermark() time.Time
	Operation(index uint64) (mint.Operation, error)
	Operations() []mint.Operation
}

// Keys reports the current role-key holders.
type Keys interface {
	MintKey() contracts.Address
	PauseKey() contracts.Address
}

// Ledger is the read side of the governance record.
type Ledger interface {
	Since(after uint64) []ledger.Entry
	Head() string
	Length() int
}

// Server routes governance requests.
type Server struct {
	engine Engine
	mints  Mints
	keys   Keys
	ledger Ledger
	caller CallerFunc
	idem   IdempotencyStore
	logger *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

func WithKeys(k Keys) Option {
	return func(s *Server) { s.keys = k }
}

func WithLedger(l Ledger) Option {
	return func(s *Server) { s.ledger = l }
}

// WithIdempotency enables Idempotency-Key replay for POST requests.
func WithIdempotency(store IdempotencyStore) Option {
	return func(s *Server) { s.idem = store }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer creates a server. caller must reject unauthenticated requests.
func NewServer(engine Engine, mints Mints, caller CallerFunc, opts ...Option) *Server {
	s := &Server{
		engine: engine,
		mints:  mints,
		caller: caller,
		logger: slog.Default().With("component", "api"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler. Authentication and rate limiting are
// applied by the caller around it.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /v1/signers", s.handleSigners)
	mux.HandleFunc("GET /v1/actions/pending", s.handlePending)
	mux.HandleFunc("GET /v1/actions/kinds", s.handleKinds)
	mux.Handle("POST /v1/actions", s.signed(s.handleApprove))
	mux.Handle("POST /v1/actions/veto", s.signed(s.handleVeto))

	mux.HandleFunc("GET /v1/mint", s.handleMintSummary)
	mux.HandleFunc("GET /v1/mint/operations", s.handleOperations)
	mux.HandleFunc("GET /v1/mint/operations/{index}", s.handleOperation)
	mux.Handle("POST /v1/mint/requests", s.signed(s.handleRequestMint))
	mux.Handle("POST /v1/mint/instant", s.signed(s.handleInstantMint))
	mux.Handle("POST /v1/mint/operations/{index}/ratify", s.signed(s.handleRatify))
	mux.Handle("POST /v1/mint/operations/{index}/{verb}", s.signed(s.handleOperationVerb))
	mux.Handle("POST /v1/mint/pools/{tier}/refill", s.signed(s.handleRefill))
	mux.Handle("POST /v1/mint/pause", s.signed(s.handlePauseMints))

	mux.HandleFunc("GET /v1/ledger", s.handleLedger)

	scope := func(r *http.Request) string {
		who, _ := s.caller(r)
		return string(who)
	}
	return IdempotencyMiddleware(s.idem, scope)(mux)
}

type signedHandler func(w http.ResponseWriter, r *http.Request, caller contracts.Address)

func (s *Server) signed(h signedHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, err := s.caller(r)
		if err != nil || caller.IsZero() {
			WriteUnauthorized(w, "Caller identity required")
			return
		}
		h(w, r, caller)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decode reads a JSON body into v, writing a 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		WriteBadRequest(w, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func pathIndex(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	idx, err := strconv.ParseUint(r.PathValue("index"), 10, 64)
	if err != nil {
		WriteBadRequest(w, "Mint index must be a non-negative integer")
		return 0, false
	}
	return idx, true
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, caller contracts.Address, err error) {
	s.logger.InfoContext(r.Context(), "request rejected",
		"path", r.URL.Path, "caller", caller, "kind", contracts.Kind(err), "error", err)
	WriteGovernanceError(w, r, err)
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		WriteNotFound(w, "Ledger not configured")
		return
	}
	var since uint64
	if v := r.URL.Query().Get("since"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			WriteBadRequest(w, "since must be a non-negative integer")
			return
		}
		since = n
	}
	entries := s.ledger.Since(since)
	if entries == nil {
		entries = []ledger.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"head":    s.ledger.Head(),
		"length":  s.ledger.Length(),
		"entries": entries,
	})
}
