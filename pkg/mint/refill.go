package mint

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/Mindburn-Labs/mintgov/pkg/contracts"
)

// RefillJumboPool resets the jumbo pool to its limit. Owner only.
func (p *Pipeline) RefillJumboPool(ctx context.Context, caller contracts.Address) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.auth.IsOwner(caller) {
		return fmt.Errorf("%w: %s cannot refill the jumbo pool", contracts.ErrNotAuthorized, caller)
	}
	p.pools[TierJumbo] = p.limits[TierJumbo].Clone()
	p.refilled(ctx, caller, TierJumbo)
	return nil
}

// RefillRatifiedPool tops the ratified pool up to its limit, drawing the
// difference from the jumbo pool. The owner refills alone; ratifiers need
// two distinct votes and the call that casts the second vote performs the
// refill. It reports whether the refill happened.
func (p *Pipeline) RefillRatifiedPool(ctx context.Context, caller contracts.Address) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	owner := p.auth.IsOwner(caller)
	if !owner && !p.auth.IsRatifier(caller) {
		return false, fmt.Errorf("%w: %s cannot refill the ratified pool", contracts.ErrNotAuthorized, caller)
	}
	if !owner {
		for _, v := range p.refillVotes {
			if v == caller {
				return false, contracts.ErrAlreadySigned
			}
		}
		if len(p.refillVotes) == 0 {
			p.refillVotes = []contracts.Address{caller}
			p.logger.InfoContext(ctx, "ratified pool refill vote", "by", caller)
			return false, nil
		}
	}
	if err := p.cascade(TierJumbo, TierRatified); err != nil {
		return false, err
	}
	p.refillVotes = nil
	p.refilled(ctx, caller, TierRatified)
	return true, nil
}

// RefillInstantPool tops the instant pool up to its limit, drawing the
// difference from the ratified pool.
func (p *Pipeline) RefillInstantPool(ctx context.Context, caller contracts.Address) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.auth.IsRatifier(caller) && !p.auth.IsOwner(caller) {
		return fmt.Errorf("%w: %s cannot refill the instant pool", contracts.ErrNotAuthorized, caller)
	}
	if err := p.cascade(TierRatified, TierInstant); err != nil {
		return err
	}
	p.refilled(ctx, caller, TierInstant)
	return nil
}

// cascade moves limit-minus-pool from the source pool into dst.
func (p *Pipeline) cascade(src, dst Tier) error {
	if !p.pools[dst].Lt(p.limits[dst]) {
		return nil
	}
	need := new(uint256.Int).Sub(p.limits[dst], p.pools[dst])
	if need.Gt(p.pools[src]) {
		return fmt.Errorf("%w: %s pool has %s, %s refill needs %s",
			contracts.ErrPoolExhausted, src, p.pools[src].Dec(), dst, need.Dec())
	}
	p.pools[src] = new(uint256.Int).Sub(p.pools[src], need)
	p.pools[dst] = p.limits[dst].Clone()
	return nil
}

func (p *Pipeline) refilled(ctx context.Context, caller contracts.Address, t Tier) {
	pool := p.pools[t].Dec()
	p.logger.InfoContext(ctx, "pool refilled", "tier", t.String(), "pool", pool)
	p.emit(ctx, contracts.EventPoolRefilled, caller, map[string]any{"tier": t.String(), "pool": pool})
}

// SetMintThresholds replaces the tier thresholds. Owner only.
func (p *Pipeline) SetMintThresholds(ctx context.Context, caller contracts.Address, t Triple) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.auth.IsOwner(caller) {
		return fmt.Errorf("%w: %s cannot set thresholds", contracts.ErrNotAuthorized, caller)
	}
	if err := ValidateThresholds(t); err != nil {
		return err
	}
	p.thresholds = t.clone()
	p.emit(ctx, contracts.EventLimitsChanged, caller, map[string]any{
		"thresholds": decs(p.thresholds),
	})
	return nil
}

// SetMintLimits replaces the pool limits, lowering any pool above its new
// limit. Owner only.
func (p *Pipeline) SetMintLimits(ctx context.Context, caller contracts.Address, l Triple) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.auth.IsOwner(caller) {
		return fmt.Errorf("%w: %s cannot set limits", contracts.ErrNotAuthorized, caller)
	}
	if err := ValidateLimits(l); err != nil {
		return err
	}
	p.limits = l.clone()
	for _, t := range Tiers {
		if p.pools[t].Gt(p.limits[t]) {
			p.pools[t] = p.limits[t].Clone()
		}
	}
	p.emit(ctx, contracts.EventLimitsChanged, caller, map[string]any{
		"limits": decs(p.limits),
	})
	return nil
}

// SetTierRule replaces the approval rule of one tier. Owner only.
func (p *Pipeline) SetTierRule(ctx context.Context, caller contracts.Address, t Tier, rule TierRule) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.auth.IsOwner(caller) {
		return fmt.Errorf("%w: %s cannot set tier rules", contracts.ErrNotAuthorized, caller)
	}
	if t < TierInstant || t > TierJumbo {
		return fmt.Errorf("%w: unknown tier %d", contracts.ErrInvalidArgument, int(t))
	}
	if err := validateRule(rule); err != nil {
		return err
	}
	p.rules[t] = rule
	p.emit(ctx, contracts.EventLimitsChanged, caller, map[string]any{
		"tier": t.String(), "ratifications": rule.Ratifications, "delay": rule.Delay.String(),
	})
	return nil
}

func decs(t Triple) [3]string {
	return [3]string{contracts.Dec(t[0]), contracts.Dec(t[1]), contracts.Dec(t[2])}
}
