// Package mint implements the tiered mint request pipeline: requests are
// classified by amount at finalisation time, each tier has its own
// approval rule and its own pool, and pools are refilled in cascade.
package mint

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/holiman/uint256"

	"github.com/Mindburn-Labs/mintgov/pkg/contracts"
)

// Config configures a Pipeline.
type Config struct {
	// Self is the host contract; it is the caller of every Mint.
	Self       contracts.Address
	Thresholds Triple
	Limits     Triple
	// Rules defaults to DefaultRules when left zero.
	Rules [3]TierRule
	// FillPools starts every pool at its limit instead of empty.
	FillPools bool
}

// Pipeline holds the pools, limits and mint operations. All methods are
// atomic: on error nothing changes.
type Pipeline struct {
	mu     sync.Mutex
	self   contracts.Address
	auth   Authorizer
	minter Minter

	thresholds Triple
	limits     Triple
	pools      Triple
	rules      [3]TierRule

	ops           []*operation
	paused        bool
	nextSeq       uint64
	invalidBefore uint64
	watermark     time.Time
	refillVotes   []contracts.Address

	clock  func() time.Time
	logger *slog.Logger
	sink   contracts.EventSink
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock overrides the clock for testing.
func WithClock(clock func() time.Time) Option {
	return func(p *Pipeline) { p.clock = clock }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithSink sets the event sink.
func WithSink(s contracts.EventSink) Option {
	return func(p *Pipeline) { p.sink = s }
}

// New validates cfg and creates a pipeline.
func New(cfg Config, auth Authorizer, minter Minter, opts ...Option) (*Pipeline, error) {
	if auth == nil || minter == nil {
		return nil, fmt.Errorf("%w: authorizer and minter are required", contracts.ErrInvalidArgument)
	}
	if err := ValidateThresholds(cfg.Thresholds); err != nil {
		return nil, err
	}
	if err := ValidateLimits(cfg.Limits); err != nil {
		return nil, err
	}
	rules := cfg.Rules
	if rules == ([3]TierRule{}) {
		rules = DefaultRules()
	}
	for _, r := range rules {
		if err := validateRule(r); err != nil {
			return nil, err
		}
	}
	p := &Pipeline{
		self:       cfg.Self,
		auth:       auth,
		minter:     minter,
		thresholds: cfg.Thresholds.clone(),
		limits:     cfg.Limits.clone(),
		pools:      Triple{new(uint256.Int), new(uint256.Int), new(uint256.Int)},
		rules:      rules,
		clock:      time.Now,
		logger:     slog.Default().With("component", "mint"),
		sink:       contracts.NopSink{},
	}
	if cfg.FillPools {
		p.pools = cfg.Limits.clone()
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func validateRule(r TierRule) error {
	if r.Ratifications < 0 || r.Delay < 0 {
		return fmt.Errorf("%w: negative tier rule", contracts.ErrInvalidArgument)
	}
	return nil
}

// RequestMint records a mint request without moving funds and returns its
// index. Amounts are checked only at finalisation.
func (p *Pipeline) RequestMint(ctx context.Context, caller, to contracts.Address, amount *uint256.Int) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.auth.IsMintKey(caller) && !p.auth.IsOwner(caller) {
		return 0, fmt.Errorf("%w: %s cannot request mints", contracts.ErrNotAuthorized, caller)
	}
	if to.IsZero() {
		return 0, fmt.Errorf("%w: mint recipient", contracts.ErrInvalidAddress)
	}
	if amount == nil {
		return 0, fmt.Errorf("%w: missing amount", contracts.ErrInvalidAmount)
	}
	op := &operation{
		to:          to,
		amount:      amount.Clone(),
		requestedAt: p.clock(),
		seq:         p.nextSeq,
		status:      StatusPending,
	}
	p.nextSeq++
	p.ops = append(p.ops, op)
	index := uint64(len(p.ops) - 1)

	p.logger.InfoContext(ctx, "mint requested", "index", index, "to", to, "amount", amount.Dec())
	p.emit(ctx, contracts.EventMintRequested, caller, map[string]any{
		"index": index, "to": string(to), "amount": amount.Dec(),
	})
	return index, nil
}

// InstantMint mints immediately from the instant pool. The amount must not
// exceed the instant threshold or the remaining instant pool.
func (p *Pipeline) InstantMint(ctx context.Context, caller, to contracts.Address, amount *uint256.Int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.auth.IsMintKey(caller) && !p.auth.IsOwner(caller) {
		return fmt.Errorf("%w: %s cannot mint", contracts.ErrNotAuthorized, caller)
	}
	if p.paused {
		return contracts.ErrMintsPaused
	}
	if to.IsZero() {
		return fmt.Errorf("%w: mint recipient", contracts.ErrInvalidAddress)
	}
	if amount == nil || amount.IsZero() {
		return contracts.ErrInvalidAmount
	}
	if amount.Gt(p.thresholds[TierInstant]) {
		return fmt.Errorf("%w: %s above instant threshold %s",
			contracts.ErrThresholdExceeded, amount.Dec(), p.thresholds[TierInstant].Dec())
	}
	if amount.Gt(p.pools[TierInstant]) {
		return fmt.Errorf("%w: instant pool has %s", contracts.ErrPoolExhausted, p.pools[TierInstant].Dec())
	}
	if err := p.minter.Mint(ctx, p.self, to, amount); err != nil {
		return fmt.Errorf("%w: mint: %w", contracts.ErrExecutionFailed, err)
	}
	p.pools[TierInstant] = new(uint256.Int).Sub(p.pools[TierInstant], amount)

	p.logger.InfoContext(ctx, "instant mint", "to", to, "amount", amount.Dec())
	p.emit(ctx, contracts.EventMintInstant, caller, map[string]any{
		"to": string(to), "amount": amount.Dec(), "tier": TierInstant.String(),
	})
	return nil
}

// RatifyMint adds caller's ratification to the operation at index, which
// must match (to, amount) exactly. When the operation's tier rule becomes
// satisfied it is finalised in the same call, and a finalisation failure
// rejects the ratification too. If no tier can currently cover the amount
// the ratification is kept and finalisation waits. It reports whether the
// operation was finalised.
func (p *Pipeline) RatifyMint(ctx context.Context, caller contracts.Address, index uint64, to contracts.Address, amount *uint256.Int) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	owner := p.auth.IsOwner(caller)
	if !owner && !p.auth.IsRatifier(caller) {
		return false, fmt.Errorf("%w: %s cannot ratify mints", contracts.ErrNotAuthorized, caller)
	}
	op, err := p.live(index)
	if err != nil {
		return false, err
	}
	if op.to != to || amount == nil || !op.amount.Eq(amount) {
		return false, fmt.Errorf("%w: operation %d", contracts.ErrMintMismatch, index)
	}
	if (owner && op.ownerRatified) || (!owner && op.ratifiedBy(caller)) {
		return false, contracts.ErrAlreadySigned
	}

	prevRatifiers, prevOwner := op.ratifiers, op.ownerRatified
	if owner {
		op.ownerRatified = true
	} else {
		op.ratifiers = append(append([]contracts.Address(nil), op.ratifiers...), caller)
	}

	ready := owner
	if !owner {
		tier, cerr := p.classify(op.amount)
		if cerr != nil {
			p.logger.InfoContext(ctx, "mint ratified, finalization deferred",
				"index", index, "reason", cerr.Error())
		} else {
			ready = p.satisfied(op, tier)
		}
	}
	count := len(op.ratifiers)
	if ready {
		if err := p.finalize(ctx, caller, index, op, owner); err != nil {
			op.ratifiers, op.ownerRatified = prevRatifiers, prevOwner
			return false, err
		}
	}

	p.emit(ctx, contracts.EventMintRatified, caller, map[string]any{
		"index": index, "ratifications": count, "finalized": ready,
	})
	return ready, nil
}

// FinalizeMint mints an operation whose tier rule is satisfied. Owners
// finalise without ratifications and without drawing on a pool.
func (p *Pipeline) FinalizeMint(ctx context.Context, caller contracts.Address, index uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	owner := p.auth.IsOwner(caller)
	if !owner && !p.auth.IsMintKey(caller) && !p.auth.IsRatifier(caller) {
		return fmt.Errorf("%w: %s cannot finalize mints", contracts.ErrNotAuthorized, caller)
	}
	op, err := p.live(index)
	if err != nil {
		return err
	}
	return p.finalize(ctx, caller, index, op, owner)
}

// RevokeMint voids the operation at index. Revoking a void operation is a
// no-op.
func (p *Pipeline) RevokeMint(ctx context.Context, caller contracts.Address, index uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.auth.IsMintKey(caller) && !p.auth.IsOwner(caller) {
		return fmt.Errorf("%w: %s cannot revoke mints", contracts.ErrNotAuthorized, caller)
	}
	if index >= uint64(len(p.ops)) {
		return fmt.Errorf("%w: index %d", contracts.ErrMintNotFound, index)
	}
	op := p.ops[index]
	if op.status != StatusPending {
		return nil
	}
	op.clear(StatusRevoked)
	p.emit(ctx, contracts.EventMintRevoked, caller, map[string]any{"index": index})
	return nil
}

// PauseMint blocks ratification and finalisation of one operation.
func (p *Pipeline) PauseMint(ctx context.Context, caller contracts.Address, index uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.auth.IsPauser(caller) && !p.auth.IsOwner(caller) {
		return fmt.Errorf("%w: %s cannot pause mints", contracts.ErrNotAuthorized, caller)
	}
	op, err := p.pending(index)
	if err != nil {
		return err
	}
	op.paused = true
	p.emit(ctx, contracts.EventMintPaused, caller, map[string]any{"index": index})
	return nil
}

// UnpauseMint is owner-only.
func (p *Pipeline) UnpauseMint(ctx context.Context, caller contracts.Address, index uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.auth.IsOwner(caller) {
		return fmt.Errorf("%w: %s cannot unpause mints", contracts.ErrNotAuthorized, caller)
	}
	op, err := p.pending(index)
	if err != nil {
		return err
	}
	op.paused = false
	p.emit(ctx, contracts.EventMintUnpaused, caller, map[string]any{"index": index})
	return nil
}

// PauseMints blocks every mint until UnpauseMints.
func (p *Pipeline) PauseMints(ctx context.Context, caller contracts.Address) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.auth.IsPauser(caller) && !p.auth.IsOwner(caller) {
		return fmt.Errorf("%w: %s cannot pause mints", contracts.ErrNotAuthorized, caller)
	}
	p.paused = true
	p.logger.WarnContext(ctx, "minting paused", "by", caller)
	p.emit(ctx, contracts.EventMintsPaused, caller, nil)
	return nil
}

// UnpauseMints is owner-only.
func (p *Pipeline) UnpauseMints(ctx context.Context, caller contracts.Address) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.auth.IsOwner(caller) {
		return fmt.Errorf("%w: %s cannot unpause mints", contracts.ErrNotAuthorized, caller)
	}
	p.paused = false
	p.emit(ctx, contracts.EventMintsUnpaused, caller, nil)
	return nil
}

// InvalidateAllPendingMints voids every operation requested so far. It
// moves a watermark and never iterates the operations.
func (p *Pipeline) InvalidateAllPendingMints(ctx context.Context, caller contracts.Address) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.auth.IsPauser(caller) && !p.auth.IsOwner(caller) {
		return fmt.Errorf("%w: %s cannot invalidate mints", contracts.ErrNotAuthorized, caller)
	}
	p.invalidBefore = p.nextSeq
	p.watermark = p.clock()
	p.logger.WarnContext(ctx, "pending mints invalidated", "by", caller, "before_seq", p.invalidBefore)
	p.emit(ctx, contracts.EventMintsInvalidated, caller, map[string]any{
		"watermark": p.watermark, "invalid_before": p.invalidBefore,
	})
	return nil
}

// live returns a pending, non-invalidated, unpaused operation while minting
// is enabled. p.mu must be held.
func (p *Pipeline) live(index uint64) (*operation, error) {
	if p.paused {
		return nil, contracts.ErrMintsPaused
	}
	op, err := p.pending(index)
	if err != nil {
		return nil, err
	}
	if op.paused {
		return nil, fmt.Errorf("%w: operation %d", contracts.ErrMintPaused, index)
	}
	return op, nil
}

// pending returns a pending, non-invalidated operation. p.mu must be held.
func (p *Pipeline) pending(index uint64) (*operation, error) {
	if index >= uint64(len(p.ops)) || p.ops[index].status != StatusPending {
		return nil, fmt.Errorf("%w: index %d", contracts.ErrMintNotFound, index)
	}
	op := p.ops[index]
	if op.seq < p.invalidBefore {
		return nil, fmt.Errorf("%w: operation %d", contracts.ErrMintInvalidated, index)
	}
	return op, nil
}

// classify picks the cheapest tier whose threshold and remaining pool both
// cover amount. An amount equal to a threshold belongs to that tier.
func (p *Pipeline) classify(amount *uint256.Int) (Tier, error) {
	for _, t := range Tiers {
		if !amount.Gt(p.thresholds[t]) && !amount.Gt(p.pools[t]) {
			return t, nil
		}
	}
	if amount.Gt(p.thresholds[TierJumbo]) {
		return 0, fmt.Errorf("%w: %s above jumbo threshold %s",
			contracts.ErrThresholdExceeded, amount.Dec(), p.thresholds[TierJumbo].Dec())
	}
	return 0, fmt.Errorf("%w: no pool covers %s", contracts.ErrPoolExhausted, amount.Dec())
}

func (p *Pipeline) satisfied(op *operation, t Tier) bool {
	if op.ownerRatified {
		return true
	}
	rule := p.rules[t]
	return len(op.ratifiers) >= rule.Ratifications && p.clock().Sub(op.requestedAt) >= rule.Delay
}

// finalize mints op and clears it. p.mu must be held.
func (p *Pipeline) finalize(ctx context.Context, caller contracts.Address, index uint64, op *operation, owner bool) error {
	if op.amount.IsZero() {
		return fmt.Errorf("%w: operation %d has zero amount", contracts.ErrInvalidAmount, index)
	}
	tier := Tier(-1)
	if !owner {
		t, err := p.classify(op.amount)
		if err != nil {
			return err
		}
		if !p.satisfied(op, t) {
			return fmt.Errorf("%w: operation %d needs %d ratifications and %s delay as a %s mint",
				contracts.ErrApprovalsPending, index, p.rules[t].Ratifications, p.rules[t].Delay, t)
		}
		tier = t
	}
	if err := p.minter.Mint(ctx, p.self, op.to, op.amount); err != nil {
		return fmt.Errorf("%w: mint: %w", contracts.ErrExecutionFailed, err)
	}
	if tier >= 0 {
		p.pools[tier] = new(uint256.Int).Sub(p.pools[tier], op.amount)
	}

	data := map[string]any{"index": index, "to": string(op.to), "amount": op.amount.Dec(), "owner": owner}
	if tier >= 0 {
		data["tier"] = tier.String()
	}
	op.clear(StatusFinalized)
	p.logger.InfoContext(ctx, "mint finalized", "index", index, "to", data["to"], "amount", data["amount"])
	p.emit(ctx, contracts.EventMintFinalized, caller, data)
	return nil
}

func (o *operation) clear(status Status) {
	o.to = contracts.ZeroAddress
	o.amount = new(uint256.Int)
	o.ratifiers = nil
	o.ownerRatified = false
	o.paused = false
	o.status = status
}

func (p *Pipeline) emit(ctx context.Context, typ string, actor contracts.Address, data map[string]any) {
	p.sink.Emit(ctx, contracts.Event{
		Type:    typ,
		Actor:   actor,
		Subject: string(p.self),
		Data:    data,
		At:      p.clock(),
	})
}
