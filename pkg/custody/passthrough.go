package custody

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Mindburn-Labs/mintgov/pkg/contracts"
)

var errNoVault = errors.New("no vault configured")

// Forward wraps a downstream failure as ErrExecutionFailed so the calling
// action stays pending. A nil err passes through.
func Forward(op string, target contracts.Address, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s on %s: %w", contracts.ErrExecutionFailed, op, target, err)
}

// Directory resolves child contract addresses to their implementations.
type Directory struct {
	mu       sync.RWMutex
	children map[contracts.Address]any
}

func NewDirectory() *Directory {
	return &Directory{children: make(map[contracts.Address]any)}
}

// Register binds addr to c, replacing any earlier binding.
func (d *Directory) Register(addr contracts.Address, c any) error {
	if addr.IsZero() || c == nil {
		return fmt.Errorf("%w: contract registration", contracts.ErrInvalidAddress)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.children[addr] = c
	return nil
}

func (d *Directory) lookup(addr contracts.Address) (any, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.children[addr]
	if !ok {
		return nil, fmt.Errorf("%w: no contract at %s", contracts.ErrInvalidAddress, addr)
	}
	return c, nil
}

// Ownable returns the contract at addr if it supports claimable ownership.
func (d *Directory) Ownable(addr contracts.Address) (contracts.Ownable, error) {
	c, err := d.lookup(addr)
	if err != nil {
		return nil, err
	}
	o, ok := c.(contracts.Ownable)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not ownable", contracts.ErrInvalidArgument, addr)
	}
	return o, nil
}

// Token returns the contract at addr if it is a token ledger.
func (d *Directory) Token(addr contracts.Address) (contracts.Token, error) {
	c, err := d.lookup(addr)
	if err != nil {
		return nil, err
	}
	t, ok := c.(contracts.Token)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a token", contracts.ErrInvalidArgument, addr)
	}
	return t, nil
}

// Registry returns the contract at addr if it is a compliance registry.
func (d *Directory) Registry(addr contracts.Address) (contracts.Registry, error) {
	c, err := d.lookup(addr)
	if err != nil {
		return nil, err
	}
	r, ok := c.(contracts.Registry)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a registry", contracts.ErrInvalidArgument, addr)
	}
	return r, nil
}

// Addresses lists registered contracts in sorted order.
func (d *Directory) Addresses() []contracts.Address {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]contracts.Address, 0, len(d.children))
	for a := range d.children {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// TransferChild starts handing the child at addr to next, acting as caller.
func (d *Directory) TransferChild(ctx context.Context, caller, child, next contracts.Address) error {
	o, err := d.Ownable(child)
	if err != nil {
		return Forward("transferOwnership", child, err)
	}
	return Forward("transferOwnership", child, o.TransferOwnership(ctx, caller, next))
}

// ClaimChild claims a child whose pending owner is caller.
func (d *Directory) ClaimChild(ctx context.Context, caller, child contracts.Address) error {
	o, err := d.Ownable(child)
	if err != nil {
		return Forward("claimOwnership", child, err)
	}
	return Forward("claimOwnership", child, o.ClaimOwnership(ctx, caller))
}

// Reclaimer sweeps native balance and foreign tokens held by one contract.
type Reclaimer struct {
	self  contracts.Address
	vault contracts.Vault
}

func NewReclaimer(self contracts.Address, vault contracts.Vault) *Reclaimer {
	return &Reclaimer{self: self, vault: vault}
}

// ReclaimEther moves the whole native balance of the contract to to.
func (r *Reclaimer) ReclaimEther(ctx context.Context, to contracts.Address) error {
	if to.IsZero() {
		return fmt.Errorf("%w: reclaim recipient", contracts.ErrInvalidAddress)
	}
	if r.vault == nil {
		return Forward("reclaimEther", r.self, errNoVault)
	}
	return Forward("reclaimEther", r.self, r.vault.SweepEther(ctx, r.self, to))
}

// ReclaimToken moves the contract's whole balance of token to to.
func (r *Reclaimer) ReclaimToken(ctx context.Context, token, to contracts.Address) error {
	if to.IsZero() || token.IsZero() {
		return fmt.Errorf("%w: reclaim token or recipient", contracts.ErrInvalidAddress)
	}
	if r.vault == nil {
		return Forward("reclaimToken", r.self, errNoVault)
	}
	return Forward("reclaimToken", r.self, r.vault.SweepToken(ctx, token, r.self, to))
}
