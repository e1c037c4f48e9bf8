package controller

import (
	"context"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"golang.org/x/text/unicode/norm"

	"github.com/Mindburn-Labs/mintgov/pkg/contracts"
	"github.com/Mindburn-Labs/mintgov/pkg/custody"
)

// onToken runs fn against the current token on behalf of the owner. Any
// token failure is reported as ErrExecutionFailed.
func (c *Controller) onToken(ctx context.Context, caller contracts.Address, op string, data map[string]any, fn func(contracts.Token) error) error {
	if err := c.RequireOwner(caller); err != nil {
		return err
	}
	return c.call(ctx, caller, op, data, fn)
}

func (c *Controller) call(ctx context.Context, caller contracts.Address, op string, data map[string]any, fn func(contracts.Token) error) error {
	t, err := c.currentToken()
	if err != nil {
		return err
	}
	if err := custody.Forward(op, c.Token(), fn(t)); err != nil {
		c.logger.WarnContext(ctx, "token call failed", "op", op, "error", err)
		return err
	}
	c.logger.InfoContext(ctx, "token administered", "op", op, "by", caller)
	c.emit(ctx, op, caller, data)
	return nil
}

// SetToken points the controller at the token registered at addr.
func (c *Controller) SetToken(ctx context.Context, caller, addr contracts.Address) error {
	if err := c.RequireOwner(caller); err != nil {
		return err
	}
	if _, err := c.children.Token(addr); err != nil {
		return err
	}
	c.mu.Lock()
	c.token = addr
	c.mu.Unlock()
	c.emit(ctx, "setToken", caller, map[string]any{"token": string(addr)})
	return nil
}

// SetRegistry points role checks at the compliance registry at addr.
func (c *Controller) SetRegistry(ctx context.Context, caller, addr contracts.Address) error {
	if err := c.RequireOwner(caller); err != nil {
		return err
	}
	reg, err := c.children.Registry(addr)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.registry = addr
	c.mu.Unlock()
	c.roles.SetAttributes(reg)
	c.emit(ctx, "setRegistry", caller, map[string]any{"registry": string(addr)})
	return nil
}

func (c *Controller) SetTokenRegistry(ctx context.Context, caller, registry contracts.Address) error {
	if registry.IsZero() {
		return fmt.Errorf("%w: registry", contracts.ErrInvalidAddress)
	}
	return c.onToken(ctx, caller, "setTokenRegistry", map[string]any{"registry": string(registry)},
		func(t contracts.Token) error { return t.SetRegistry(ctx, c.Address(), registry) })
}

// ChangeTokenName renames the token. Name and symbol are NFC-normalised.
func (c *Controller) ChangeTokenName(ctx context.Context, caller contracts.Address, name, symbol string) error {
	name = norm.NFC.String(strings.TrimSpace(name))
	symbol = norm.NFC.String(strings.TrimSpace(symbol))
	if name == "" || symbol == "" {
		return fmt.Errorf("%w: token name and symbol are required", contracts.ErrInvalidArgument)
	}
	return c.onToken(ctx, caller, "changeTokenName", map[string]any{"name": name, "symbol": symbol},
		func(t contracts.Token) error { return t.ChangeName(ctx, c.Address(), name, symbol) })
}

// TransferChild starts handing a contract the controller owns to next.
func (c *Controller) TransferChild(ctx context.Context, caller, child, next contracts.Address) error {
	if err := c.RequireOwner(caller); err != nil {
		return err
	}
	if err := c.children.TransferChild(ctx, c.Address(), child, next); err != nil {
		return err
	}
	c.emit(ctx, "transferChild", caller, map[string]any{"child": string(child), "new_owner": string(next)})
	return nil
}

// IssueClaimOwnership claims a contract whose pending owner is the
// controller.
func (c *Controller) IssueClaimOwnership(ctx context.Context, caller, child contracts.Address) error {
	if err := c.RequireOwner(caller); err != nil {
		return err
	}
	if err := c.children.ClaimChild(ctx, c.Address(), child); err != nil {
		return err
	}
	c.emit(ctx, "issueClaimOwnership", caller, map[string]any{"child": string(child)})
	return nil
}

// RequestReclaimContract asks the token to hand a satellite back to the
// controller.
func (c *Controller) RequestReclaimContract(ctx context.Context, caller, child contracts.Address) error {
	return c.onToken(ctx, caller, "requestReclaimContract", map[string]any{"child": string(child)},
		func(t contracts.Token) error { return t.ReclaimContract(ctx, c.Address(), child) })
}

// RequestReclaimEther moves the token's native balance to the controller.
func (c *Controller) RequestReclaimEther(ctx context.Context, caller contracts.Address) error {
	return c.onToken(ctx, caller, "requestReclaimEther", nil,
		func(t contracts.Token) error { return t.ReclaimEther(ctx, c.Address(), c.Address()) })
}

// RequestReclaimToken moves the token's holdings of a foreign token to the
// controller.
func (c *Controller) RequestReclaimToken(ctx context.Context, caller, foreign contracts.Address) error {
	return c.onToken(ctx, caller, "requestReclaimToken", map[string]any{"token": string(foreign)},
		func(t contracts.Token) error { return t.ReclaimToken(ctx, c.Address(), foreign, c.Address()) })
}

func (c *Controller) SetGlobalPause(ctx context.Context, caller, pauser contracts.Address) error {
	return c.onToken(ctx, caller, "setGlobalPause", map[string]any{"pauser": string(pauser)},
		func(t contracts.Token) error { return t.SetGlobalPause(ctx, c.Address(), pauser) })
}

// SetFastPause names the key allowed to pause the token without a quorum.
func (c *Controller) SetFastPause(ctx context.Context, caller, key contracts.Address) error {
	if err := c.RequireOwner(caller); err != nil {
		return err
	}
	c.mu.Lock()
	c.fastPause = key
	c.mu.Unlock()
	c.emit(ctx, "setFastPause", caller, map[string]any{"key": string(key)})
	return nil
}

// PauseToken halts the token. The fast-pause key may call it alone.
func (c *Controller) PauseToken(ctx context.Context, caller contracts.Address) error {
	pause := func(t contracts.Token) error { return t.Pause(ctx, c.Address()) }
	if fast := c.FastPause(); !fast.IsZero() && caller == fast {
		c.logger.WarnContext(ctx, "fast pause used", "key", fast)
		return c.call(ctx, caller, "pauseToken", nil, pause)
	}
	return c.onToken(ctx, caller, "pauseToken", nil, pause)
}

func (c *Controller) UnpauseToken(ctx context.Context, caller contracts.Address) error {
	return c.onToken(ctx, caller, "unpauseToken", nil,
		func(t contracts.Token) error { return t.Unpause(ctx, c.Address()) })
}

// WipeBlacklisted burns the balance of an account the registry marks as
// blacklisted.
func (c *Controller) WipeBlacklisted(ctx context.Context, caller, account contracts.Address) error {
	if err := c.RequireOwner(caller); err != nil {
		return err
	}
	if !c.blacklisted(account) {
		return fmt.Errorf("%w: %s is not blacklisted", contracts.ErrInvalidArgument, account)
	}
	return c.onToken(ctx, caller, "wipeBlacklisted", map[string]any{"account": string(account)},
		func(t contracts.Token) error { return t.WipeBlacklisted(ctx, c.Address(), account) })
}

func (c *Controller) blacklisted(account contracts.Address) bool {
	addr := c.Registry()
	if addr.IsZero() {
		return false
	}
	reg, err := c.children.Registry(addr)
	return err == nil && reg.HasAttribute(account, contracts.AttrBlacklisted)
}

func (c *Controller) SetBurnBounds(ctx context.Context, caller contracts.Address, min, max *uint256.Int) error {
	if min == nil || max == nil {
		return fmt.Errorf("%w: burn bounds", contracts.ErrInvalidAmount)
	}
	if min.Gt(max) {
		return fmt.Errorf("%w: burn minimum %s above maximum %s", contracts.ErrInvalidArgument, min.Dec(), max.Dec())
	}
	return c.onToken(ctx, caller, "setBurnBounds", map[string]any{"min": min.Dec(), "max": max.Dec()},
		func(t contracts.Token) error { return t.SetBurnBounds(ctx, c.Address(), min, max) })
}

func (c *Controller) ChangeStakingFees(ctx context.Context, caller contracts.Address, fees contracts.StakingFees) error {
	if fees.TransferFeeDenominator == 0 || fees.MintFeeDenominator == 0 || fees.BurnFeeDenominator == 0 {
		return fmt.Errorf("%w: fee denominators must be non-zero", contracts.ErrInvalidArgument)
	}
	return c.onToken(ctx, caller, "changeStakingFees", nil,
		func(t contracts.Token) error { return t.ChangeStakingFees(ctx, c.Address(), fees) })
}

func (c *Controller) ChangeStaker(ctx context.Context, caller, staker contracts.Address) error {
	if staker.IsZero() {
		return fmt.Errorf("%w: staker", contracts.ErrInvalidAddress)
	}
	return c.onToken(ctx, caller, "changeStaker", map[string]any{"staker": string(staker)},
		func(t contracts.Token) error { return t.ChangeStaker(ctx, c.Address(), staker) })
}

// ReclaimEther sweeps the controller's own native balance to to.
func (c *Controller) ReclaimEther(ctx context.Context, caller, to contracts.Address) error {
	if err := c.RequireOwner(caller); err != nil {
		return err
	}
	if err := custody.NewReclaimer(c.Address(), c.vault).ReclaimEther(ctx, to); err != nil {
		return err
	}
	c.emit(ctx, "reclaimEther", caller, map[string]any{"to": string(to)})
	return nil
}

// ReclaimToken sweeps the controller's holdings of a foreign token to to.
func (c *Controller) ReclaimToken(ctx context.Context, caller, foreign, to contracts.Address) error {
	if err := c.RequireOwner(caller); err != nil {
		return err
	}
	if err := custody.NewReclaimer(c.Address(), c.vault).ReclaimToken(ctx, foreign, to); err != nil {
		return err
	}
	c.emit(ctx, "reclaimToken", caller, map[string]any{"token": string(foreign), "to": string(to)})
	return nil
}
