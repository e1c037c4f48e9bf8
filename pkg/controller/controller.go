// Package controller implements the token controller: the contract the
// signer quorum owns, which in turn owns the token and its satellites. It
// hosts the mint pipeline and key roles and exposes the owner-only token
// administration surface.
package controller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/holiman/uint256"

	"github.com/Mindburn-Labs/mintgov/pkg/contracts"
	"github.com/Mindburn-Labs/mintgov/pkg/custody"
	"github.com/Mindburn-Labs/mintgov/pkg/mint"
	"github.com/Mindburn-Labs/mintgov/pkg/roles"
)

// Config configures a Controller.
type Config struct {
	Self  contracts.Address
	Owner contracts.Address
	// Mint configures the hosted pipeline; its Self is set to the
	// controller's address.
	Mint mint.Config
}

// Controller owns the token and gates every balance mutation behind the
// mint pipeline.
type Controller struct {
	*custody.Claimable

	mu        sync.RWMutex
	token     contracts.Address
	registry  contracts.Address
	fastPause contracts.Address

	children *custody.Directory
	vault    contracts.Vault
	roles    *roles.Registry
	mints    *mint.Pipeline

	clock  func() time.Time
	logger *slog.Logger
	sink   contracts.EventSink
}

// Option configures a Controller.
type Option func(*Controller)

func WithClock(clock func() time.Time) Option {
	return func(c *Controller) { c.clock = clock }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

func WithSink(s contracts.EventSink) Option {
	return func(c *Controller) { c.sink = s }
}

// WithDirectory sets the resolver for the token, registry and other
// contracts the controller talks to.
func WithDirectory(d *custody.Directory) Option {
	return func(c *Controller) { c.children = d }
}

// WithVault sets the holder of the controller's native and foreign
// balances.
func WithVault(v contracts.Vault) Option {
	return func(c *Controller) { c.vault = v }
}

// New creates a controller owned by cfg.Owner.
func New(cfg Config, opts ...Option) (*Controller, error) {
	if cfg.Self.IsZero() || cfg.Owner.IsZero() {
		return nil, fmt.Errorf("%w: controller and owner addresses are required", contracts.ErrInvalidAddress)
	}
	c := &Controller{
		children: custody.NewDirectory(),
		clock:    time.Now,
		logger:   slog.Default().With("component", "controller"),
		sink:     contracts.NopSink{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.Claimable = custody.NewClaimable(cfg.Self, cfg.Owner,
		custody.WithClock(c.clock), custody.WithLogger(c.logger), custody.WithSink(c.sink))
	c.roles = roles.New(c.Claimable, nil, roles.WithLogger(c.logger), roles.WithSink(c.sink))

	mcfg := cfg.Mint
	mcfg.Self = cfg.Self
	mints, err := mint.New(mcfg, c.roles, tokenMinter{c},
		mint.WithClock(c.clock), mint.WithLogger(c.logger), mint.WithSink(c.sink))
	if err != nil {
		return nil, err
	}
	c.mints = mints
	return c, nil
}

// Mints returns the hosted mint pipeline. Role holders call it directly;
// the owner quorum reaches it through Execute.
func (c *Controller) Mints() *mint.Pipeline { return c.mints }

// Roles returns the key-role registry.
func (c *Controller) Roles() *roles.Registry { return c.roles }

// Directory returns the contract resolver.
func (c *Controller) Directory() *custody.Directory { return c.children }

// Token returns the address of the administered token.
func (c *Controller) Token() contracts.Address {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Controller) Registry() contracts.Address {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.registry
}

func (c *Controller) FastPause() contracts.Address {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fastPause
}

func (c *Controller) currentToken() (contracts.Token, error) {
	addr := c.Token()
	if addr.IsZero() {
		return nil, fmt.Errorf("%w: no token configured", contracts.ErrNotInitialized)
	}
	return c.children.Token(addr)
}

type tokenMinter struct{ c *Controller }

func (m tokenMinter) Mint(ctx context.Context, caller, to contracts.Address, amount *uint256.Int) error {
	t, err := m.c.currentToken()
	if err != nil {
		return err
	}
	return t.Mint(ctx, caller, to, amount)
}

func (c *Controller) emit(ctx context.Context, op string, actor contracts.Address, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	data["op"] = op
	c.sink.Emit(ctx, contracts.Event{
		Type:    contracts.EventTokenAdmin,
		Actor:   actor,
		Subject: string(c.Address()),
		Data:    data,
		At:      c.clock(),
	})
}
