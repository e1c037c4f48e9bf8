// Package custody implements two-step claimable ownership and the
// passthrough that forwards ownership and reclaim calls to child contracts.
package custody

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Mindburn-Labs/mintgov/pkg/contracts"
)

// Claimable is a contract identity whose ownership moves in two steps: the
// owner names a pending owner, who must then claim.
type Claimable struct {
	mu      sync.RWMutex
	self    contracts.Address
	owner   contracts.Address
	pending contracts.Address

	clock  func() time.Time
	logger *slog.Logger
	sink   contracts.EventSink
}

// Option configures a Claimable.
type Option func(*Claimable)

func WithClock(clock func() time.Time) Option {
	return func(c *Claimable) { c.clock = clock }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Claimable) { c.logger = l }
}

func WithSink(s contracts.EventSink) Option {
	return func(c *Claimable) { c.sink = s }
}

// NewClaimable creates a contract identity self owned by owner.
func NewClaimable(self, owner contracts.Address, opts ...Option) *Claimable {
	c := &Claimable{
		self:   self,
		owner:  owner,
		clock:  time.Now,
		logger: slog.Default().With("component", "custody", "contract", string(self)),
		sink:   contracts.NopSink{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Address returns the contract's own identity.
func (c *Claimable) Address() contracts.Address { return c.self }

func (c *Claimable) Owner() contracts.Address {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.owner
}

func (c *Claimable) PendingOwner() contracts.Address {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pending
}

// TransferOwnership names next as pending owner. Ownership does not move
// until next claims it.
func (c *Claimable) TransferOwnership(ctx context.Context, caller, next contracts.Address) error {
	if next.IsZero() {
		return fmt.Errorf("%w: new owner", contracts.ErrInvalidAddress)
	}
	c.mu.Lock()
	if caller.IsZero() || caller != c.owner {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s does not own %s", contracts.ErrNotAuthorized, caller, c.self)
	}
	c.pending = next
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "ownership transfer pending", "owner", caller, "pending", next)
	c.emit(ctx, contracts.EventOwnerPending, caller, next)
	return nil
}

// ClaimOwnership completes a transfer. Only the pending owner may claim.
func (c *Claimable) ClaimOwnership(ctx context.Context, caller contracts.Address) error {
	c.mu.Lock()
	if c.pending.IsZero() || caller != c.pending {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s is not the pending owner of %s", contracts.ErrNotAuthorized, caller, c.self)
	}
	c.owner, c.pending = c.pending, contracts.ZeroAddress
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "ownership claimed", "owner", caller)
	c.emit(ctx, contracts.EventOwnerClaimed, caller, caller)
	return nil
}

// RequireOwner fails with ErrNotAuthorized unless caller is the owner.
func (c *Claimable) RequireOwner(caller contracts.Address) error {
	if caller.IsZero() || caller != c.Owner() {
		return fmt.Errorf("%w: %s does not own %s", contracts.ErrNotAuthorized, caller, c.self)
	}
	return nil
}

// Ownership is the persisted owner pair.
type Ownership struct {
	Owner   contracts.Address `json:"owner"`
	Pending contracts.Address `json:"pending,omitempty"`
}

func (c *Claimable) Ownership() Ownership {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Ownership{Owner: c.owner, Pending: c.pending}
}

func (c *Claimable) RestoreOwnership(o Ownership) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.owner, c.pending = o.Owner, o.Pending
}

func (c *Claimable) emit(ctx context.Context, typ string, actor, who contracts.Address) {
	c.sink.Emit(ctx, contracts.Event{
		Type:    typ,
		Actor:   actor,
		Subject: string(c.self),
		Data:    map[string]any{"owner": string(who)},
		At:      c.clock(),
	})
}
