// Package multisig implements the action authorisation engine: privileged
// calls are proposed by one signer, co-signed by others and executed once a
// quorum agrees. At most one action is pending at any time.
package multisig

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Mindburn-Labs/mintgov/pkg/contracts"
	"github.com/Mindburn-Labs/mintgov/pkg/quorum"
)

// DefaultThreshold is the co-signature quorum used when none is configured.
const DefaultThreshold = 2

// Executor carries out actions aimed at a registered target. caller is the
// engine's own address.
type Executor interface {
	Execute(ctx context.Context, caller contracts.Address, p Payload) error
}

// Outcome describes what a successful engine call did.
type Outcome string

const (
	OutcomeProposed Outcome = "proposed"
	OutcomeCosigned Outcome = "cosigned"
	OutcomeExecuted Outcome = "executed"
	OutcomeVetoed   Outcome = "vetoed"
	OutcomeCleared  Outcome = "cleared"
)

// Config configures an Engine.
type Config struct {
	// Self is the engine's own address; actions targeting it run internally.
	Self contracts.Address
	// Threshold is the number of approvals that executes an action.
	Threshold int
	// VetoThreshold is the number of vetoes that clears an action. One
	// veto from any signer who has not approved clears it by default.
	VetoThreshold int
}

type pending struct {
	action  Action
	encoded []byte
	tally   *quorum.Tally
	created time.Time
}

// Engine is the single-pending-action state machine.
type Engine struct {
	mu            sync.Mutex
	self          contracts.Address
	threshold     int
	vetoThreshold int
	signers       *quorum.Set
	controller    contracts.Address
	targets       map[contracts.Address]Executor
	owned         map[contracts.Address]contracts.Ownable
	vault         contracts.Vault
	pending       *pending
	executing     bool

	clock  func() time.Time
	logger *slog.Logger
	sink   contracts.EventSink
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the clock for testing.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithSink sets the event sink for committed transitions.
func WithSink(s contracts.EventSink) Option {
	return func(e *Engine) { e.sink = s }
}

// WithVault sets the holder used by the reclaim operations.
func WithVault(v contracts.Vault) Option {
	return func(e *Engine) { e.vault = v }
}

// New creates an uninitialised engine.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if cfg.Self.IsZero() {
		return nil, fmt.Errorf("%w: engine address required", contracts.ErrInvalidAddress)
	}
	if cfg.Threshold == 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.VetoThreshold == 0 {
		cfg.VetoThreshold = 1
	}
	e := &Engine{
		self:          cfg.Self,
		threshold:     cfg.Threshold,
		vetoThreshold: cfg.VetoThreshold,
		targets:       make(map[contracts.Address]Executor),
		owned:         make(map[contracts.Address]contracts.Ownable),
		clock:         time.Now,
		logger:        slog.Default().With("component", "multisig"),
		sink:          contracts.NopSink{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Initialize installs the signer set. It may run only once.
func (e *Engine) Initialize(ctx context.Context, signers []contracts.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.signers != nil {
		return contracts.ErrReinitialization
	}
	set, err := quorum.New(signers)
	if err != nil {
		return err
	}
	if err := quorum.ValidateThreshold(e.threshold, set.Size()); err != nil {
		return err
	}
	if err := quorum.ValidateThreshold(e.vetoThreshold, set.Size()); err != nil {
		return fmt.Errorf("veto %w", err)
	}
	e.signers = set
	e.logger.InfoContext(ctx, "signers initialized", "signers", set.Size(), "threshold", e.threshold)
	return nil
}

// RegisterTarget makes addr executable. The first registered target becomes
// the controller used by the named controller operations.
func (e *Engine) RegisterTarget(addr contracts.Address, ex Executor) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.targets[addr] = ex
	if e.controller.IsZero() {
		e.controller = addr
	}
	if o, ok := ex.(contracts.Ownable); ok {
		e.owned[addr] = o
	}
}

// RegisterContract makes addr reachable by ClaimContract and ReclaimContract.
func (e *Engine) RegisterContract(addr contracts.Address, o contracts.Ownable) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.owned[addr] = o
}

// ProposeOrCosign records signer's approval of a. The first approval
// creates the pending action; reaching the threshold executes it. A failed
// execution leaves the action pending without signer's approval and
// returns an error wrapping contracts.ErrExecutionFailed.
func (e *Engine) ProposeOrCosign(ctx context.Context, signer contracts.Address, a Action) (Outcome, error) {
	e.mu.Lock()
	if err := e.guard(ctx, signer); err != nil {
		e.mu.Unlock()
		return "", err
	}
	if err := e.validateTarget(a); err != nil {
		e.mu.Unlock()
		return "", err
	}
	enc, err := a.Encode()
	if err != nil {
		e.mu.Unlock()
		return "", err
	}

	created := false
	switch {
	case e.pending == nil:
		e.pending = &pending{action: a, encoded: enc, tally: &quorum.Tally{}, created: e.clock()}
		created = true
	case !bytes.Equal(e.pending.encoded, enc):
		e.mu.Unlock()
		return "", contracts.ErrActionInFlight
	case e.pending.tally.HasApproved(signer):
		e.mu.Unlock()
		return "", contracts.ErrAlreadySigned
	case e.pending.tally.HasVetoed(signer):
		e.mu.Unlock()
		return "", contracts.ErrAlreadyVetoed
	}
	p := e.pending
	p.tally.Approve(signer)

	if p.tally.Approvals() < e.threshold {
		outcome, evType := OutcomeCosigned, contracts.EventActionCosigned
		if created {
			outcome, evType = OutcomeProposed, contracts.EventActionProposed
		}
		e.emit(ctx, evType, signer, p, nil)
		e.mu.Unlock()
		return outcome, nil
	}

	e.executing = true
	e.mu.Unlock()

	rollback := func() {
		if created {
			e.pending = nil
		} else {
			p.tally.Unapprove(signer)
		}
	}
	returned := false
	defer func() {
		if returned {
			return
		}
		// dispatch panicked.
		e.mu.Lock()
		e.executing = false
		rollback()
		e.mu.Unlock()
	}()

	execErr := e.dispatch(context.WithValue(ctx, executingKey{}, e), p.action)
	returned = true

	e.mu.Lock()
	defer e.mu.Unlock()
	e.executing = false

	if execErr != nil {
		rollback()
		e.logger.WarnContext(ctx, "action execution failed",
			"kind", p.action.Payload.Kind(), "signer", signer, "error", execErr)
		e.emit(ctx, contracts.EventActionFailed, signer, p, map[string]any{"error": execErr.Error()})
		return "", fmt.Errorf("%w: %s: %w", contracts.ErrExecutionFailed, p.action.Payload.Kind(), execErr)
	}

	e.pending = nil
	e.logger.InfoContext(ctx, "action executed",
		"kind", p.action.Payload.Kind(), "target", p.action.Target, "approvals", p.tally.Approvals())
	e.emit(ctx, contracts.EventActionExecuted, signer, p, nil)
	return OutcomeExecuted, nil
}

// Veto records signer's objection to the pending action and clears it once
// the veto threshold is met. Signers who approved the action cannot veto it.
func (e *Engine) Veto(ctx context.Context, signer contracts.Address) (Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.guard(ctx, signer); err != nil {
		return "", err
	}
	p := e.pending
	if p == nil {
		return "", contracts.ErrNoActionPending
	}
	if p.tally.HasApproved(signer) {
		return "", contracts.ErrAlreadySigned
	}
	if p.tally.HasVetoed(signer) {
		return "", contracts.ErrAlreadyVetoed
	}
	p.tally.Veto(signer)

	if p.tally.Vetoes() < e.vetoThreshold {
		e.emit(ctx, contracts.EventActionVetoed, signer, p, nil)
		return OutcomeVetoed, nil
	}
	e.pending = nil
	e.logger.InfoContext(ctx, "action vetoed", "kind", p.action.Payload.Kind(), "signer", signer)
	e.emit(ctx, contracts.EventActionCleared, signer, p, nil)
	return OutcomeCleared, nil
}

// executingKey marks contexts derived from an executing action.
type executingKey struct{}

// guard runs with e.mu held. Calls made from within an executing action
// are reentrant; calls from elsewhere meanwhile find the action in flight.
func (e *Engine) guard(ctx context.Context, signer contracts.Address) error {
	if e.executing {
		if ctx.Value(executingKey{}) == e {
			return contracts.ErrReentrant
		}
		return contracts.ErrActionInFlight
	}
	if e.signers == nil {
		return contracts.ErrNotInitialized
	}
	if !e.signers.IsMember(signer) {
		return fmt.Errorf("%w: %s is not a signer", contracts.ErrNotAuthorized, signer)
	}
	return nil
}

// validateTarget runs with e.mu held.
func (e *Engine) validateTarget(a Action) error {
	if a.Payload == nil {
		return fmt.Errorf("%w: empty action", contracts.ErrInvalidArgument)
	}
	if a.Target == e.self {
		if !isSelf(a.Payload) {
			return fmt.Errorf("%w: %s cannot target the engine", contracts.ErrInvalidArgument, a.Payload.Kind())
		}
		return nil
	}
	if isSelf(a.Payload) {
		return fmt.Errorf("%w: %s must target the engine", contracts.ErrInvalidArgument, a.Payload.Kind())
	}
	if _, ok := e.targets[a.Target]; !ok {
		return fmt.Errorf("%w: unknown target %s", contracts.ErrInvalidArgument, a.Target)
	}
	return nil
}

// dispatch runs without e.mu held and with e.executing set.
func (e *Engine) dispatch(ctx context.Context, a Action) error {
	if a.Target == e.self {
		return e.executeSelf(ctx, a.Payload)
	}
	e.mu.Lock()
	ex := e.targets[a.Target]
	e.mu.Unlock()
	if ex == nil {
		return fmt.Errorf("no executor for %s", a.Target)
	}
	return ex.Execute(ctx, e.self, a.Payload)
}

func (e *Engine) emit(ctx context.Context, typ string, actor contracts.Address, p *pending, extra map[string]any) {
	data := map[string]any{
		"kind":      string(p.action.Payload.Kind()),
		"target":    string(p.action.Target),
		"approvals": p.tally.Approvals(),
		"vetoes":    p.tally.Vetoes(),
	}
	for k, v := range extra {
		data[k] = v
	}
	e.sink.Emit(ctx, contracts.Event{
		Type:    typ,
		Actor:   actor,
		Subject: string(e.self),
		Data:    data,
		At:      e.clock(),
	})
}
