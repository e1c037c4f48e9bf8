// Package roles implements the key-role registry: single-holder mint and
// pause keys plus attribute-backed ratifier and checker sets, all distinct
// from the owner quorum.
package roles

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Mindburn-Labs/mintgov/pkg/contracts"
)

// Role names used in events and errors.
const (
	RoleMintKey  = "mintKey"
	RolePauseKey = "pauseKey"
)

// OwnerSource reports the current owner of the host contract.
type OwnerSource interface {
	Owner() contracts.Address
}

// Registry answers role questions for the mint pipeline and controller.
type Registry struct {
	mu       sync.RWMutex
	owner    OwnerSource
	attrs    contracts.Registry
	mintKey  contracts.Address
	pauseKey contracts.Address

	logger *slog.Logger
	sink   contracts.EventSink
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithSink sets the event sink.
func WithSink(s contracts.EventSink) Option {
	return func(r *Registry) { r.sink = s }
}

// New creates a registry. attrs may be nil until SetAttributes is called;
// attribute-backed roles are then empty.
func New(owner OwnerSource, attrs contracts.Registry, opts ...Option) *Registry {
	r := &Registry{
		owner:  owner,
		attrs:  attrs,
		logger: slog.Default().With("component", "roles"),
		sink:   contracts.NopSink{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetAttributes replaces the compliance registry consulted for
// attribute-backed roles.
func (r *Registry) SetAttributes(attrs contracts.Registry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attrs = attrs
}

func (r *Registry) IsOwner(a contracts.Address) bool {
	return !a.IsZero() && r.owner != nil && r.owner.Owner() == a
}

func (r *Registry) IsMintKey(a contracts.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return !a.IsZero() && a == r.mintKey
}

// IsRatifier reports whether a carries the mint ratifier attribute.
func (r *Registry) IsRatifier(a contracts.Address) bool {
	return r.hasAttribute(a, contracts.AttrMintRatifier)
}

// IsPauser reports whether a holds the pause key or carries the mint
// checker attribute.
func (r *Registry) IsPauser(a contracts.Address) bool {
	r.mu.RLock()
	key := r.pauseKey
	r.mu.RUnlock()
	if !a.IsZero() && a == key {
		return true
	}
	return r.hasAttribute(a, contracts.AttrMintChecker)
}

func (r *Registry) hasAttribute(a contracts.Address, attr string) bool {
	r.mu.RLock()
	attrs := r.attrs
	r.mu.RUnlock()
	return !a.IsZero() && attrs != nil && attrs.HasAttribute(a, attr)
}

// MintKey returns the current mint key holder.
func (r *Registry) MintKey() contracts.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mintKey
}

// PauseKey returns the current pause key holder.
func (r *Registry) PauseKey() contracts.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pauseKey
}

// TransferMintKey hands the mint key to next. Only the current holder or
// the owner may transfer it.
func (r *Registry) TransferMintKey(ctx context.Context, caller, next contracts.Address) error {
	return r.transfer(ctx, caller, next, RoleMintKey, &r.mintKey)
}

// TransferPauseKey hands the pause key to next. Only the current holder or
// the owner may transfer it.
func (r *Registry) TransferPauseKey(ctx context.Context, caller, next contracts.Address) error {
	return r.transfer(ctx, caller, next, RolePauseKey, &r.pauseKey)
}

func (r *Registry) transfer(ctx context.Context, caller, next contracts.Address, role string, slot *contracts.Address) error {
	if next.IsZero() {
		return fmt.Errorf("%w: new %s holder", contracts.ErrInvalidAddress, role)
	}
	owner := r.IsOwner(caller)

	r.mu.Lock()
	if !owner && (caller.IsZero() || caller != *slot) {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s cannot transfer %s", contracts.ErrNotAuthorized, caller, role)
	}
	prev := *slot
	*slot = next
	r.mu.Unlock()

	r.logger.InfoContext(ctx, "role transferred", "role", role, "from", prev, "to", next, "by", caller)
	r.sink.Emit(ctx, contracts.Event{
		Type:    contracts.EventRoleTransferred,
		Actor:   caller,
		Subject: role,
		Data:    map[string]any{"from": string(prev), "to": string(next)},
	})
	return nil
}

// State is the persisted form of the key slots. Attribute-backed roles
// live in the compliance registry.
type State struct {
	MintKey  contracts.Address `json:"mint_key"`
	PauseKey contracts.Address `json:"pause_key"`
}

func (r *Registry) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return State{MintKey: r.mintKey, PauseKey: r.pauseKey}
}

// Restore sets both key slots directly. It is used at bootstrap and when
// loading a snapshot.
func (r *Registry) Restore(st State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mintKey, r.pauseKey = st.MintKey, st.PauseKey
}
