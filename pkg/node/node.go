// Package node assembles a governed token from a deployment: the signer
// quorum, the controller with its mint pipeline and key roles, and the
// reference token collaborators. It restores and checkpoints state through
// a snapshot store, seals the ledger into an archive and runs the optional
// veto policy.
package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Mindburn-Labs/mintgov/pkg/archive"
	"github.com/Mindburn-Labs/mintgov/pkg/audit"
	"github.com/Mindburn-Labs/mintgov/pkg/config"
	"github.com/Mindburn-Labs/mintgov/pkg/contracts"
	"github.com/Mindburn-Labs/mintgov/pkg/controller"
	"github.com/Mindburn-Labs/mintgov/pkg/custody"
	"github.com/Mindburn-Labs/mintgov/pkg/ledger"
	"github.com/Mindburn-Labs/mintgov/pkg/multisig"
	"github.com/Mindburn-Labs/mintgov/pkg/policy"
	"github.com/Mindburn-Labs/mintgov/pkg/store"
	"github.com/Mindburn-Labs/mintgov/pkg/token"
)

// Addresses used when the deployment leaves the token section empty.
const (
	DefaultTokenAddress    contracts.Address = "token"
	DefaultRegistryAddress contracts.Address = "registry"
)

// ErrDeploymentMismatch is returned when a stored snapshot belongs to a
// different engine or controller than the deployment.
var ErrDeploymentMismatch = errors.New("snapshot does not match deployment")

// Node is one running governed token.
type Node struct {
	deployment *config.Deployment
	tokenAddr  contracts.Address
	regAddr    contracts.Address

	// mu is held shared by every mutation and exclusively while a
	// checkpoint captures state.
	mu       sync.RWMutex
	revision int64

	ledger     *ledger.Ledger
	engine     *multisig.Engine
	controller *controller.Controller
	token      *token.Ledger
	attrs      *token.Attributes
	vault      *token.Vault
	directory  *custody.Directory

	store    store.Store
	archive  archive.Store
	archiver *archive.Archiver
	sweeper  *policy.Sweeper

	audit    audit.Logger
	extra    []contracts.EventSink
	interval time.Duration
	clock    func() time.Time
	base     *slog.Logger
	logger   *slog.Logger

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Node.
type Option func(*Node)

// WithStore persists state in s. Without a store the node starts from the
// deployment every time.
func WithStore(s store.Store) Option {
	return func(n *Node) { n.store = s }
}

// WithArchive seals ledger segments into s on every checkpoint.
func WithArchive(s archive.Store) Option {
	return func(n *Node) { n.archive = s }
}

// WithSinks adds observers of committed governance events.
func WithSinks(sinks ...contracts.EventSink) Option {
	return func(n *Node) { n.extra = append(n.extra, sinks...) }
}

// WithAuditLogger replaces the audit logger governance events are recorded
// through.
func WithAuditLogger(l audit.Logger) Option {
	return func(n *Node) { n.audit = l }
}

// WithCheckpointInterval sets how often Start checkpoints.
func WithCheckpointInterval(d time.Duration) Option {
	return func(n *Node) { n.interval = d }
}

func WithClock(clock func() time.Time) Option {
	return func(n *Node) { n.clock = clock }
}

func WithLogger(l *slog.Logger) Option {
	return func(n *Node) { n.base = l }
}

// New builds the node for d. When the store holds a snapshot the node is
// restored from it; otherwise the deployment's genesis state is applied and
// checkpointed.
func New(ctx context.Context, d *config.Deployment, opts ...Option) (*Node, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: deployment is required", contracts.ErrInvalidArgument)
	}
	n := &Node{
		deployment: d,
		tokenAddr:  d.Token.Address,
		regAddr:    d.Token.Registry,
		interval:   30 * time.Second,
		clock:      time.Now,
		base:       slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.tokenAddr.IsZero() {
		n.tokenAddr = DefaultTokenAddress
	}
	if n.regAddr.IsZero() {
		n.regAddr = DefaultRegistryAddress
	}
	if n.audit == nil {
		n.audit = audit.NewLogger()
	}
	n.logger = n.component("node")

	if err := n.assemble(d); err != nil {
		return nil, err
	}
	if err := n.load(ctx); err != nil {
		return nil, err
	}

	if d.Policy != nil {
		rules := make([]policy.Rule, 0, len(d.Policy.Rules))
		for _, r := range d.Policy.Rules {
			rules = append(rules, policy.Rule{Name: r.Name, Expr: r.Expr})
		}
		p, err := policy.Compile(rules)
		if err != nil {
			return nil, err
		}
		interval, err := d.Policy.SweepInterval()
		if err != nil {
			return nil, err
		}
		n.sweeper = policy.NewSweeper(p, lockedEngine{n}, d.Policy.Signer, interval,
			policy.WithClock(n.clock), policy.WithLogger(n.component("policy")))
	}
	return n, nil
}

func (n *Node) component(name string) *slog.Logger {
	return n.base.With("component", name)
}

// assemble creates every component and wires the controller into the
// engine. No state is applied yet.
func (n *Node) assemble(d *config.Deployment) error {
	n.ledger = ledger.New().WithClock(n.clock).WithLogger(n.component("ledger"))
	sinks := append(contracts.Sinks{n.ledger, audit.NewSink(n.audit)}, n.extra...)

	n.directory = custody.NewDirectory()
	n.vault = token.NewVault()
	n.attrs = token.NewAttributes()
	n.token = token.NewLedger(n.tokenAddr, d.Controller.Address, n.directory, n.vault)
	if err := n.directory.Register(n.tokenAddr, n.token); err != nil {
		return err
	}
	if err := n.directory.Register(n.regAddr, n.attrs); err != nil {
		return err
	}

	mcfg, err := d.MintConfig()
	if err != nil {
		return err
	}
	ctrl, err := controller.New(controller.Config{
		Self:  d.Controller.Address,
		Owner: d.Engine.Address,
		Mint:  mcfg,
	},
		controller.WithDirectory(n.directory),
		controller.WithVault(n.vault),
		controller.WithClock(n.clock),
		controller.WithLogger(n.component("controller")),
		controller.WithSink(sinks),
	)
	if err != nil {
		return err
	}
	engine, err := multisig.New(d.EngineConfig(),
		multisig.WithClock(n.clock),
		multisig.WithLogger(n.component("multisig")),
		multisig.WithSink(sinks),
		multisig.WithVault(n.vault),
	)
	if err != nil {
		return err
	}
	engine.RegisterTarget(ctrl.Address(), ctrl)
	engine.RegisterContract(n.tokenAddr, n.token)

	n.controller, n.engine = ctrl, engine
	if n.archive != nil {
		n.archiver = archive.NewArchiver(n.ledger, n.archive,
			archive.WithClock(n.clock), archive.WithLogger(n.component("archive")))
	}
	return nil
}

func (n *Node) load(ctx context.Context) error {
	if n.store == nil {
		return n.genesis(ctx)
	}
	snap, err := n.store.Load(ctx)
	if errors.Is(err, store.ErrNotFound) {
		if err := n.genesis(ctx); err != nil {
			return err
		}
		_, err = n.Checkpoint(ctx)
		return err
	}
	if err != nil {
		return err
	}
	return n.restore(snap)
}

// genesis applies the deployment to freshly assembled components. The
// engine is the controller's owner, so it is the caller of every setup
// step.
func (n *Node) genesis(ctx context.Context) error {
	d := n.deployment
	owner := d.Engine.Address
	if err := n.engine.Initialize(ctx, d.Engine.Signers); err != nil {
		return err
	}

	c := n.controller
	if err := c.SetRegistry(ctx, owner, n.regAddr); err != nil {
		return err
	}
	if err := c.SetToken(ctx, owner, n.tokenAddr); err != nil {
		return err
	}
	if err := c.SetTokenRegistry(ctx, owner, n.regAddr); err != nil {
		return err
	}
	if d.Token.Name != "" || d.Token.Symbol != "" {
		info := n.token.Info()
		name, symbol := d.Token.Name, d.Token.Symbol
		if name == "" {
			name = info.Name
		}
		if symbol == "" {
			symbol = info.Symbol
		}
		if err := c.ChangeTokenName(ctx, owner, name, symbol); err != nil {
			return err
		}
	}

	for _, r := range d.Roles.Ratifiers {
		n.attrs.Set(r, contracts.AttrMintRatifier, true)
	}
	for _, r := range d.Roles.Checkers {
		n.attrs.Set(r, contracts.AttrMintChecker, true)
	}
	if !d.Roles.MintKey.IsZero() {
		if err := c.Roles().TransferMintKey(ctx, owner, d.Roles.MintKey); err != nil {
			return err
		}
	}
	if !d.Roles.PauseKey.IsZero() {
		if err := c.Roles().TransferPauseKey(ctx, owner, d.Roles.PauseKey); err != nil {
			return err
		}
	}
	if !d.Roles.FastPause.IsZero() {
		if err := c.SetFastPause(ctx, owner, d.Roles.FastPause); err != nil {
			return err
		}
	}

	n.logger.InfoContext(ctx, "genesis applied",
		"engine", owner,
		"controller", c.Address(),
		"signers", len(d.Engine.Signers),
		"ledger_length", n.ledger.Length())
	return nil
}

func (n *Node) Engine() *multisig.Engine { return n.engine }

func (n *Node) Controller() *controller.Controller { return n.controller }

func (n *Node) Ledger() *ledger.Ledger { return n.ledger }

// Token returns the reference token the controller administers.
func (n *Node) Token() *token.Ledger { return n.token }

// Attributes returns the compliance registry holding ratifier and checker
// attributes.
func (n *Node) Attributes() *token.Attributes { return n.attrs }

func (n *Node) Vault() *token.Vault { return n.vault }

// Sweeper returns the veto policy sweeper, or nil when none is configured.
func (n *Node) Sweeper() *policy.Sweeper { return n.sweeper }

// Revision is the store revision of the last checkpoint.
func (n *Node) Revision() int64 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.revision
}

// lockedEngine holds the node's shared lock around engine mutations made
// outside the HTTP surface.
type lockedEngine struct{ n *Node }

func (l lockedEngine) Pending() (multisig.PendingAction, bool) {
	return l.n.engine.Pending()
}

func (l lockedEngine) Veto(ctx context.Context, signer contracts.Address) (multisig.Outcome, error) {
	l.n.mu.RLock()
	defer l.n.mu.RUnlock()
	return l.n.engine.Veto(ctx, signer)
}
