package multisig

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Mindburn-Labs/mintgov/pkg/contracts"
	"github.com/Mindburn-Labs/mintgov/pkg/quorum"
)

// PendingAction is a read-only view of the in-flight action.
type PendingAction struct {
	Target    contracts.Address   `json:"target"`
	Kind      Kind                `json:"kind"`
	Selector  string              `json:"selector"`
	Args      json.RawMessage     `json:"args"`
	Digest    string              `json:"digest"`
	Approvals []contracts.Address `json:"approvals"`
	Vetoes    []contracts.Address `json:"vetoes"`
	CreatedAt time.Time           `json:"created_at"`
	Payload   Payload             `json:"-"`
}

// Pending returns the in-flight action, if any.
func (e *Engine) Pending() (PendingAction, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pending == nil {
		return PendingAction{}, false
	}
	return e.pending.view(), true
}

func (p *pending) view() PendingAction {
	sig, _ := p.action.Signature()
	sel := Selector(sig)
	args, _ := p.action.Args()
	digest, _ := p.action.Digest()
	return PendingAction{
		Target:    p.action.Target,
		Kind:      p.action.Payload.Kind(),
		Selector:  "0x" + hex.EncodeToString(sel[:]),
		Args:      args,
		Digest:    digest,
		Approvals: p.tally.Approvers(),
		Vetoes:    p.tally.Vetoers(),
		CreatedAt: p.created,
		Payload:   p.action.Payload,
	}
}

// Roster returns the signers in roster order, nil before initialisation.
func (e *Engine) Roster() []contracts.Address {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.signers == nil {
		return nil
	}
	return e.signers.Roster()
}

// IsSigner reports current membership.
func (e *Engine) IsSigner(a contracts.Address) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.signers != nil && e.signers.IsMember(a)
}

func (e *Engine) Threshold() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.threshold
}

func (e *Engine) VetoThreshold() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.vetoThreshold
}

// Address is the engine's own identity.
func (e *Engine) Address() contracts.Address { return e.self }

// Controller is the target used by the named controller operations.
func (e *Engine) Controller() contracts.Address {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.controller
}

// Initialized reports whether the signer set is installed.
func (e *Engine) Initialized() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.signers != nil
}

// State is the persisted form of the engine.
type State struct {
	Signers       []contracts.Address `json:"signers"`
	Threshold     int                 `json:"threshold"`
	VetoThreshold int                 `json:"veto_threshold"`
	Controller    contracts.Address   `json:"controller,omitempty"`
	Pending       *PendingState       `json:"pending,omitempty"`
}

// PendingState is the persisted form of the in-flight action.
type PendingState struct {
	Target    contracts.Address   `json:"target"`
	Kind      Kind                `json:"kind"`
	Args      json.RawMessage     `json:"args"`
	Approvals []contracts.Address `json:"approvals"`
	Vetoes    []contracts.Address `json:"vetoes,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

// State captures the engine for persistence.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := State{
		Threshold:     e.threshold,
		VetoThreshold: e.vetoThreshold,
		Controller:    e.controller,
	}
	if e.signers != nil {
		st.Signers = e.signers.Roster()
	}
	if e.pending != nil {
		v := e.pending.view()
		st.Pending = &PendingState{
			Target:    v.Target,
			Kind:      v.Kind,
			Args:      v.Args,
			Approvals: v.Approvals,
			Vetoes:    v.Vetoes,
			CreatedAt: v.CreatedAt,
		}
	}
	return st
}

// Restore loads persisted state into an uninitialised engine. Targets must
// be registered first.
func (e *Engine) Restore(st State) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.signers != nil {
		return contracts.ErrReinitialization
	}
	set, err := quorum.New(st.Signers)
	if err != nil {
		return fmt.Errorf("restore signers: %w", err)
	}
	if err := quorum.ValidateThreshold(st.Threshold, set.Size()); err != nil {
		return fmt.Errorf("restore threshold: %w", err)
	}
	if err := quorum.ValidateThreshold(st.VetoThreshold, set.Size()); err != nil {
		return fmt.Errorf("restore veto threshold: %w", err)
	}

	var p *pending
	if st.Pending != nil {
		payload, err := DecodePayload(st.Pending.Kind, st.Pending.Args)
		if err != nil {
			return fmt.Errorf("restore pending action: %w", err)
		}
		a := Action{Target: st.Pending.Target, Payload: payload}
		if err := e.validateTarget(a); err != nil {
			return fmt.Errorf("restore pending action: %w", err)
		}
		enc, err := a.Encode()
		if err != nil {
			return fmt.Errorf("restore pending action: %w", err)
		}
		for _, s := range append(append([]contracts.Address(nil), st.Pending.Approvals...), st.Pending.Vetoes...) {
			if !set.IsMember(s) {
				return fmt.Errorf("restore pending action: %w: %s", contracts.ErrNotAMember, s)
			}
		}
		p = &pending{
			action:  a,
			encoded: enc,
			tally:   quorum.Restore(st.Pending.Approvals, st.Pending.Vetoes),
			created: st.Pending.CreatedAt,
		}
	}

	e.signers = set
	e.threshold = st.Threshold
	e.vetoThreshold = st.VetoThreshold
	if !st.Controller.IsZero() {
		e.controller = st.Controller
	}
	e.pending = p
	return nil
}
